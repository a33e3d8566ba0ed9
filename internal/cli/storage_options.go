package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/config"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

type storageOptions struct {
	backend           string
	cleanupInterval   time.Duration
	primaryTimeout    time.Duration
	redisHost         string
	redisPort         int
	redisPassword     string
	redisDB           int
	redisCluster      bool
	redisClusterNodes []string
	redisPoolSize     int
	redisMaxRetries   int
	redisDialTimeout  time.Duration
	redisKeyPrefix    string
}

func (o *storageOptions) addFlags(cmd *cobra.Command) {
	def := config.Default().Storage

	cmd.Flags().StringVar(&o.backend, "storage", def.Backend, "counter store backend (memory, redis)")
	cmd.Flags().DurationVar(&o.cleanupInterval, "storage-cleanup-interval", def.CleanupInterval, "expired window sweep interval for the memory store")
	cmd.Flags().DurationVar(&o.primaryTimeout, "storage-primary-timeout", def.PrimaryTimeout, "per-call timeout before falling back to local counters")
	cmd.Flags().StringVar(&o.redisHost, "redis-host", def.Redis.Host, "redis host (or host:port)")
	cmd.Flags().IntVar(&o.redisPort, "redis-port", def.Redis.Port, "redis port")
	cmd.Flags().StringVar(&o.redisPassword, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.redisDB, "redis-db", 0, "redis database index")
	cmd.Flags().BoolVar(&o.redisCluster, "redis-cluster", false, "enable redis cluster mode")
	cmd.Flags().StringSliceVar(&o.redisClusterNodes, "redis-cluster-nodes", nil, "redis cluster nodes host:port list")
	cmd.Flags().IntVar(&o.redisPoolSize, "redis-pool-size", def.Redis.PoolSize, "redis connection pool size")
	cmd.Flags().IntVar(&o.redisMaxRetries, "redis-max-retries", def.Redis.MaxRetries, "redis max retries")
	cmd.Flags().DurationVar(&o.redisDialTimeout, "redis-dial-timeout", def.Redis.DialTimeout, "redis dial timeout")
	cmd.Flags().StringVar(&o.redisKeyPrefix, "redis-key-prefix", def.Redis.KeyPrefix, "prefix for redis counter keys")
}

// applyTo overrides cfg with every flag the user set explicitly, so flags
// win over both the config file and the environment.
func (o *storageOptions) applyTo(cmd *cobra.Command, cfg *config.StorageConfig) error {
	changed := cmd.Flags().Changed

	if changed("storage") {
		cfg.Backend = o.backend
	}
	if changed("storage-cleanup-interval") {
		cfg.CleanupInterval = o.cleanupInterval
	}
	if changed("storage-primary-timeout") {
		cfg.PrimaryTimeout = o.primaryTimeout
	}
	if changed("redis-host") {
		cfg.Redis.Host = o.redisHost
	}
	if changed("redis-port") {
		cfg.Redis.Port = o.redisPort
	}
	if changed("redis-password") {
		cfg.Redis.Password = o.redisPassword
	}
	if changed("redis-db") {
		cfg.Redis.DB = o.redisDB
	}
	if changed("redis-cluster") {
		cfg.Redis.Cluster = o.redisCluster
	}
	if changed("redis-cluster-nodes") {
		cfg.Redis.ClusterNodes = append([]string(nil), o.redisClusterNodes...)
	}
	if changed("redis-pool-size") {
		cfg.Redis.PoolSize = o.redisPoolSize
	}
	if changed("redis-max-retries") {
		cfg.Redis.MaxRetries = o.redisMaxRetries
	}
	if changed("redis-dial-timeout") {
		cfg.Redis.DialTimeout = o.redisDialTimeout
	}
	if changed("redis-key-prefix") {
		cfg.Redis.KeyPrefix = o.redisKeyPrefix
	}

	if cfg.Redis.Cluster {
		return nil
	}
	host, port, err := normalizeRedisHostPort(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		if cfg.Backend == store.BackendRedis {
			return err
		}
		return nil
	}
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	return nil
}

// openStore builds the counter store for cfg. A redis backend is always
// wrapped in a FallbackStore so a redis outage degrades to local counters
// instead of failing requests.
func openStore(cfg config.StorageConfig, clk clock.Clock, logger *zap.Logger) (store.Store, error) {
	local, err := store.NewMemoryStore(&store.MemoryConfig{
		CleanupInterval: cfg.CleanupInterval,
		Clock:           clk,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case store.BackendMemory, "":
		return local, nil
	case store.BackendRedis:
		redisCfg := cfg.Redis
		primary, err := store.NewRedisStore(&redisCfg, clk)
		if err != nil {
			_ = local.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return store.NewFallbackStore(primary, local, cfg.PrimaryTimeout, logger), nil
	default:
		_ = local.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func normalizeRedisHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid --redis-host value %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in --redis-host %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}
