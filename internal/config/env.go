package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable Tollgate reads.
const EnvPrefix = "TOLLGATE"

// envOverrides maps TOLLGATE_* variables onto Config. Zero values leave
// the corresponding setting untouched.
type envOverrides struct {
	Addr            string        `envconfig:"ADDR"`
	LogLevel        string        `envconfig:"LOG_LEVEL"`
	LogFormat       string        `envconfig:"LOG_FORMAT"`
	StorageBackend  string        `envconfig:"STORAGE_BACKEND"`
	PrimaryTimeout  time.Duration `envconfig:"STORAGE_PRIMARY_TIMEOUT"`
	RedisHost       string        `envconfig:"REDIS_HOST"`
	RedisPort       int           `envconfig:"REDIS_PORT"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         *int          `envconfig:"REDIS_DB"`
	RedisCluster    []string      `envconfig:"REDIS_CLUSTER_NODES"`
	CatalogSource   string        `envconfig:"CATALOG_SOURCE"`
	CatalogPath     string        `envconfig:"CATALOG_PATH"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	CatalogRefresh  time.Duration `envconfig:"CATALOG_REFRESH_INTERVAL"`
	KafkaBrokers    []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic      string        `envconfig:"KAFKA_TOPIC"`
	DefaultWindow   time.Duration `envconfig:"LIMIT_WINDOW"`
	DefaultRequests int           `envconfig:"LIMIT_MAX_REQUESTS"`
}

// ApplyEnv overlays TOLLGATE_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.StorageBackend != "" {
		cfg.Storage.Backend = env.StorageBackend
	}
	if env.PrimaryTimeout > 0 {
		cfg.Storage.PrimaryTimeout = env.PrimaryTimeout
	}
	if env.RedisHost != "" {
		cfg.Storage.Redis.Host = env.RedisHost
	}
	if env.RedisPort > 0 {
		cfg.Storage.Redis.Port = env.RedisPort
	}
	if env.RedisPassword != "" {
		cfg.Storage.Redis.Password = env.RedisPassword
	}
	if env.RedisDB != nil {
		cfg.Storage.Redis.DB = *env.RedisDB
	}
	if len(env.RedisCluster) > 0 {
		cfg.Storage.Redis.Cluster = true
		cfg.Storage.Redis.ClusterNodes = env.RedisCluster
	}
	if env.CatalogSource != "" {
		cfg.Catalog.Source = env.CatalogSource
	}
	if env.CatalogPath != "" {
		cfg.Catalog.Path = env.CatalogPath
	}
	if env.DatabaseURL != "" {
		cfg.Catalog.DSN = env.DatabaseURL
	}
	if env.CatalogRefresh > 0 {
		cfg.Catalog.RefreshInterval = env.CatalogRefresh
	}
	if len(env.KafkaBrokers) > 0 {
		cfg.Events.Brokers = env.KafkaBrokers
	}
	if env.KafkaTopic != "" {
		cfg.Events.Topic = env.KafkaTopic
	}
	if env.DefaultWindow > 0 {
		cfg.Limits.Default.Window = env.DefaultWindow
	}
	if env.DefaultRequests > 0 {
		cfg.Limits.Default.MaxRequests = env.DefaultRequests
	}
	return nil
}
