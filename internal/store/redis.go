package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
)

const (
	defaultRedisPoolSize    = 20
	defaultRedisMaxRetries  = 3
	defaultRedisDialTimeout = 5 * time.Second

	// DefaultRedisKeyPrefix namespaces every counter key.
	DefaultRedisKeyPrefix = "tollgate:rl:"
)

// incrementScript bumps the counter and sets the expiry in one server-side
// step so concurrent processes never observe a counter without a window.
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisConfig configures the shared Redis backend.
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password,omitempty"`
	DB           int           `json:"db"`
	Cluster      bool          `json:"cluster"`
	ClusterNodes []string      `json:"cluster_nodes,omitempty"`
	PoolSize     int           `json:"pool_size"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	KeyPrefix    string        `json:"key_prefix,omitempty"`
}

// RedisStore shares counters between Tollgate processes.
type RedisStore struct {
	client redis.UniversalClient
	clock  clock.Clock
	prefix string

	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *RedisConfig, clk clock.Clock) (*RedisStore, error) {
	conf, err := normalizeRedisConfig(cfg)
	if err != nil {
		return nil, err
	}

	s := NewRedisStoreFromClient(newRedisClient(conf), conf.KeyPrefix, clk)
	if err := s.pingWithRetry(context.Background(), conf.MaxRetries); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The store owns the
// client afterwards and closes it on Close.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, clk clock.Clock) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	if clk == nil {
		clk = clock.NewReal()
	}
	return &RedisStore{
		client: client,
		clock:  clk,
		prefix: prefix,
	}
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Window, error) {
	if err := validate(key, window); err != nil {
		return Window{}, err
	}

	res, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return Window{}, fmt.Errorf("running redis increment script: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return Window{}, fmt.Errorf("unexpected redis script result: %T", res)
	}
	count, err := asInt64(values[0])
	if err != nil {
		return Window{}, fmt.Errorf("parsing count: %w", err)
	}
	ttl, err := asInt64(values[1])
	if err != nil {
		return Window{}, fmt.Errorf("parsing ttl: %w", err)
	}

	return Window{
		Count:   count,
		ResetAt: s.clock.Now().Add(time.Duration(ttl) * time.Millisecond),
	}, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases Redis resources. It is idempotent.
func (s *RedisStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

func (s *RedisStore) pingWithRetry(ctx context.Context, maxRetries int) error {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for i := 0; i < attempts; i++ {
		if lastErr = s.client.Ping(ctx).Err(); lastErr == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("ping failed with unknown error")
	}
	return lastErr
}

func normalizeRedisConfig(cfg *RedisConfig) (*RedisConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	conf := *cfg
	if conf.PoolSize <= 0 {
		conf.PoolSize = defaultRedisPoolSize
	}
	if conf.MaxRetries <= 0 {
		conf.MaxRetries = defaultRedisMaxRetries
	}
	if conf.DialTimeout <= 0 {
		conf.DialTimeout = defaultRedisDialTimeout
	}
	if conf.KeyPrefix == "" {
		conf.KeyPrefix = DefaultRedisKeyPrefix
	}

	if conf.Cluster {
		if len(conf.ClusterNodes) == 0 {
			return nil, fmt.Errorf("cluster_nodes is required when cluster=true")
		}
		return &conf, nil
	}
	if conf.Host == "" {
		return nil, fmt.Errorf("host is required when cluster=false")
	}
	if conf.Port <= 0 {
		return nil, fmt.Errorf("port must be positive when cluster=false, got %d", conf.Port)
	}
	return &conf, nil
}

func newRedisClient(cfg *RedisConfig) redis.UniversalClient {
	if cfg.Cluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       cfg.ClusterNodes,
			Password:    cfg.Password,
			PoolSize:    cfg.PoolSize,
			MaxRetries:  cfg.MaxRetries,
			DialTimeout: cfg.DialTimeout,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		MaxRetries:  cfg.MaxRetries,
		DialTimeout: cfg.DialTimeout,
	})
}

func asInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse int64 from %q: %w", x, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
