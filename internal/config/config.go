// Package config loads Tollgate's settings. Values come from built-in
// defaults, then an optional JSON file, then TOLLGATE_* environment
// variables. Command-line flags are applied on top by the cli package.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

// Catalog source kinds.
const (
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

// Config is the top-level configuration for a Tollgate process.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Limits  LimitsConfig  `json:"limits"`
	Storage StorageConfig `json:"storage"`
	Catalog CatalogConfig `json:"catalog"`
	Events  EventsConfig  `json:"events"`
	Log     LogConfig     `json:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `json:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// LimitsConfig is the admission limit per route. Routes without an entry
// use Default.
type LimitsConfig struct {
	Default admission.Limit            `json:"default"`
	Routes  map[string]admission.Limit `json:"routes,omitempty"`
}

// For returns the limit that applies to route.
func (l LimitsConfig) For(route string) admission.Limit {
	if lim, ok := l.Routes[route]; ok {
		return lim
	}
	return l.Default
}

// StorageConfig selects and configures the counter store.
type StorageConfig struct {
	Backend         string            `json:"backend"`
	CleanupInterval time.Duration     `json:"cleanup_interval"`
	PrimaryTimeout  time.Duration     `json:"primary_timeout"`
	Redis           store.RedisConfig `json:"redis"`
}

// CatalogConfig says where promo codes and bundles come from.
type CatalogConfig struct {
	Source          string        `json:"source"`
	Path            string        `json:"path,omitempty"`
	DSN             string        `json:"dsn,omitempty"`
	RefreshInterval time.Duration `json:"refresh_interval"`
}

// EventsConfig configures evaluation event publishing. Kafka is enabled
// when Brokers is non-empty.
type EventsConfig struct {
	Brokers []string `json:"brokers,omitempty"`
	Topic   string   `json:"topic"`
	Log     bool     `json:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Limits: LimitsConfig{
			Default: admission.Limit{Window: time.Minute, MaxRequests: 60},
			Routes: map[string]admission.Limit{
				"promo": {Window: time.Minute, MaxRequests: 10},
			},
		},
		Storage: StorageConfig{
			Backend:         store.BackendMemory,
			CleanupInterval: time.Minute,
			PrimaryTimeout:  store.DefaultPrimaryTimeout,
			Redis: store.RedisConfig{
				Host:        "localhost",
				Port:        6379,
				PoolSize:    20,
				MaxRetries:  3,
				DialTimeout: 5 * time.Second,
				KeyPrefix:   store.DefaultRedisKeyPrefix,
			},
		},
		Catalog: CatalogConfig{
			Source:          CatalogFile,
			Path:            "catalog.json",
			RefreshInterval: 30 * time.Second,
		},
		Events: EventsConfig{
			Topic: "tollgate.evaluations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if err := c.Limits.Default.Validate(); err != nil {
		return fmt.Errorf("limits.default: %w", err)
	}
	for _, route := range c.Limits.routeNames() {
		if err := c.Limits.Routes[route].Validate(); err != nil {
			return fmt.Errorf("limits.routes.%s: %w", route, err)
		}
	}

	switch c.Storage.Backend {
	case store.BackendMemory:
	case store.BackendRedis:
		if !c.Storage.Redis.Cluster && c.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required for the redis backend")
		}
		if c.Storage.Redis.Cluster && len(c.Storage.Redis.ClusterNodes) == 0 {
			return fmt.Errorf("storage.redis.cluster_nodes is required in cluster mode")
		}
		if c.Storage.PrimaryTimeout <= 0 {
			return fmt.Errorf("storage.primary_timeout must be positive, got %s", c.Storage.PrimaryTimeout)
		}
	default:
		return fmt.Errorf("unknown storage backend %q, must be one of: memory, redis", c.Storage.Backend)
	}
	if c.Storage.CleanupInterval <= 0 {
		return fmt.Errorf("storage.cleanup_interval must be positive, got %s", c.Storage.CleanupInterval)
	}

	switch c.Catalog.Source {
	case CatalogFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the file source")
		}
	case CatalogPostgres:
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for the postgres source")
		}
	default:
		return fmt.Errorf("unknown catalog source %q, must be one of: file, postgres", c.Catalog.Source)
	}
	if c.Catalog.RefreshInterval < 0 {
		return fmt.Errorf("catalog.refresh_interval must not be negative, got %s", c.Catalog.RefreshInterval)
	}

	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when brokers are set")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q, must be one of: json, console", c.Log.Format)
	}
	return nil
}

func (l LimitsConfig) routeNames() []string {
	names := make([]string, 0, len(l.Routes))
	for name := range l.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the effective configuration: defaults, then the file at path
// if path is non-empty, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads a JSON config file and merges it with defaults.
// Fields not specified in the file retain their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// Use a raw intermediate struct to handle duration parsing.
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if raw.Server.Addr != "" {
		cfg.Server.Addr = raw.Server.Addr
	}
	if err := setDuration(&cfg.Server.ShutdownTimeout, raw.Server.ShutdownTimeout, "server.shutdown_timeout"); err != nil {
		return cfg, err
	}

	if raw.Limits.Default != nil {
		if err := raw.Limits.Default.mergeInto(&cfg.Limits.Default, "limits.default"); err != nil {
			return cfg, err
		}
	}
	for route, rl := range raw.Limits.Routes {
		lim := cfg.Limits.For(route)
		if err := rl.mergeInto(&lim, "limits.routes."+route); err != nil {
			return cfg, err
		}
		if cfg.Limits.Routes == nil {
			cfg.Limits.Routes = make(map[string]admission.Limit)
		}
		cfg.Limits.Routes[route] = lim
	}

	if raw.Storage.Backend != "" {
		cfg.Storage.Backend = raw.Storage.Backend
	}
	if err := setDuration(&cfg.Storage.CleanupInterval, raw.Storage.CleanupInterval, "storage.cleanup_interval"); err != nil {
		return cfg, err
	}
	if err := setDuration(&cfg.Storage.PrimaryTimeout, raw.Storage.PrimaryTimeout, "storage.primary_timeout"); err != nil {
		return cfg, err
	}
	r := raw.Storage.Redis
	if r.Host != "" {
		cfg.Storage.Redis.Host = r.Host
	}
	if r.Port > 0 {
		cfg.Storage.Redis.Port = r.Port
	}
	if r.Password != "" {
		cfg.Storage.Redis.Password = r.Password
	}
	if r.DB > 0 {
		cfg.Storage.Redis.DB = r.DB
	}
	if r.Cluster {
		cfg.Storage.Redis.Cluster = true
	}
	if len(r.ClusterNodes) > 0 {
		cfg.Storage.Redis.ClusterNodes = r.ClusterNodes
	}
	if r.PoolSize > 0 {
		cfg.Storage.Redis.PoolSize = r.PoolSize
	}
	if r.MaxRetries > 0 {
		cfg.Storage.Redis.MaxRetries = r.MaxRetries
	}
	if err := setDuration(&cfg.Storage.Redis.DialTimeout, r.DialTimeout, "storage.redis.dial_timeout"); err != nil {
		return cfg, err
	}
	if r.KeyPrefix != "" {
		cfg.Storage.Redis.KeyPrefix = r.KeyPrefix
	}

	if raw.Catalog.Source != "" {
		cfg.Catalog.Source = raw.Catalog.Source
	}
	if raw.Catalog.Path != "" {
		cfg.Catalog.Path = raw.Catalog.Path
	}
	if raw.Catalog.DSN != "" {
		cfg.Catalog.DSN = raw.Catalog.DSN
	}
	if err := setDuration(&cfg.Catalog.RefreshInterval, raw.Catalog.RefreshInterval, "catalog.refresh_interval"); err != nil {
		return cfg, err
	}

	if len(raw.Events.Brokers) > 0 {
		cfg.Events.Brokers = raw.Events.Brokers
	}
	if raw.Events.Topic != "" {
		cfg.Events.Topic = raw.Events.Topic
	}
	if raw.Events.Log != nil {
		cfg.Events.Log = *raw.Events.Log
	}

	if raw.Log.Level != "" {
		cfg.Log.Level = raw.Log.Level
	}
	if raw.Log.Format != "" {
		cfg.Log.Format = raw.Log.Format
	}

	return cfg, nil
}

func setDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", field, err)
	}
	*dst = d
	return nil
}

// rawConfig is the JSON-friendly representation with string durations.
type rawConfig struct {
	Server struct {
		Addr            string `json:"addr"`
		ShutdownTimeout string `json:"shutdown_timeout"`
	} `json:"server"`
	Limits struct {
		Default *rawLimit           `json:"default"`
		Routes  map[string]rawLimit `json:"routes"`
	} `json:"limits"`
	Storage struct {
		Backend         string `json:"backend"`
		CleanupInterval string `json:"cleanup_interval"`
		PrimaryTimeout  string `json:"primary_timeout"`
		Redis           struct {
			Host         string   `json:"host"`
			Port         int      `json:"port"`
			Password     string   `json:"password"`
			DB           int      `json:"db"`
			Cluster      bool     `json:"cluster"`
			ClusterNodes []string `json:"cluster_nodes"`
			PoolSize     int      `json:"pool_size"`
			MaxRetries   int      `json:"max_retries"`
			DialTimeout  string   `json:"dial_timeout"`
			KeyPrefix    string   `json:"key_prefix"`
		} `json:"redis"`
	} `json:"storage"`
	Catalog struct {
		Source          string `json:"source"`
		Path            string `json:"path"`
		DSN             string `json:"dsn"`
		RefreshInterval string `json:"refresh_interval"`
	} `json:"catalog"`
	Events struct {
		Brokers []string `json:"brokers"`
		Topic   string   `json:"topic"`
		Log     *bool    `json:"log"`
	} `json:"events"`
	Log struct {
		Level  string `json:"level"`
		Format string `json:"format"`
	} `json:"log"`
}

type rawLimit struct {
	Window      string `json:"window"`
	MaxRequests int    `json:"max_requests"`
}

func (r rawLimit) mergeInto(dst *admission.Limit, field string) error {
	if err := setDuration(&dst.Window, r.Window, field+".window"); err != nil {
		return err
	}
	if r.MaxRequests > 0 {
		dst.MaxRequests = r.MaxRequests
	}
	return nil
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	example := `{
  "server": {
    "addr": ":8080",
    "shutdown_timeout": "5s"
  },
  "limits": {
    "default": { "window": "1m", "max_requests": 60 },
    "routes": {
      "promo": { "window": "1m", "max_requests": 10 }
    }
  },
  "storage": {
    "backend": "memory",
    "cleanup_interval": "1m",
    "primary_timeout": "250ms",
    "redis": {
      "host": "localhost",
      "port": 6379,
      "pool_size": 20,
      "max_retries": 3,
      "dial_timeout": "5s"
    }
  },
  "catalog": {
    "source": "file",
    "path": "catalog.json",
    "refresh_interval": "30s"
  },
  "events": {
    "topic": "tollgate.evaluations",
    "log": false
  },
  "log": {
    "level": "info",
    "format": "json"
  }
}
`
	return os.WriteFile(path, []byte(example), 0o644)
}
