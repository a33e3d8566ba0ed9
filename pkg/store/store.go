package store

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	internalstore "github.com/SmitUplenchwar2687/Tollgate/internal/store"
	"github.com/SmitUplenchwar2687/Tollgate/pkg/clock"
)

// Store is the interface implemented by counter backends.
type Store = internalstore.Store

// Window is the state of a counter right after an increment.
type Window = internalstore.Window

// MemoryConfig configures the process-local store.
type MemoryConfig = internalstore.MemoryConfig

// MemoryStore keeps counters in process memory.
type MemoryStore = internalstore.MemoryStore

// RedisConfig configures the Redis store.
type RedisConfig = internalstore.RedisConfig

// RedisStore keeps counters in Redis so every process shares them.
type RedisStore = internalstore.RedisStore

// FallbackStore degrades from a shared store to a local one on failure.
type FallbackStore = internalstore.FallbackStore

const (
	BackendMemory         = internalstore.BackendMemory
	BackendRedis          = internalstore.BackendRedis
	DefaultPrimaryTimeout = internalstore.DefaultPrimaryTimeout
)

var (
	ErrInvalidKey    = internalstore.ErrInvalidKey
	ErrInvalidWindow = internalstore.ErrInvalidWindow
)

// NewMemoryStore creates a process-local store.
func NewMemoryStore(cfg *MemoryConfig) (*MemoryStore, error) {
	return internalstore.NewMemoryStore(cfg)
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *RedisConfig, c clock.Clock) (*RedisStore, error) {
	return internalstore.NewRedisStore(cfg, c)
}

// NewRedisStoreFromClient wraps an existing go-redis client.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, c clock.Clock) *RedisStore {
	return internalstore.NewRedisStoreFromClient(client, prefix, c)
}

// NewFallbackStore composes a shared primary with a local store.
func NewFallbackStore(primary, local Store, timeout time.Duration, logger *zap.Logger) *FallbackStore {
	return internalstore.NewFallbackStore(primary, local, timeout, logger)
}
