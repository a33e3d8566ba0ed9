package config

import internalconfig "github.com/SmitUplenchwar2687/Tollgate/internal/config"

// Config is the top-level configuration for a Tollgate process.
type Config = internalconfig.Config

// ServerConfig holds HTTP server settings.
type ServerConfig = internalconfig.ServerConfig

// LimitsConfig holds the admission limit per route.
type LimitsConfig = internalconfig.LimitsConfig

// StorageConfig selects and configures the counter store.
type StorageConfig = internalconfig.StorageConfig

// CatalogConfig says where promo codes and bundles come from.
type CatalogConfig = internalconfig.CatalogConfig

// EventsConfig configures evaluation event publishing.
type EventsConfig = internalconfig.EventsConfig

// LogConfig configures the logger.
type LogConfig = internalconfig.LogConfig

// Default returns a Config with sensible defaults.
func Default() Config {
	return internalconfig.Default()
}

// Load merges defaults, the file at path (if any) and TOLLGATE_* variables.
func Load(path string) (Config, error) {
	return internalconfig.Load(path)
}

// LoadFile reads a JSON config file and merges it with defaults.
func LoadFile(path string) (Config, error) {
	return internalconfig.LoadFile(path)
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	return internalconfig.WriteExample(path)
}
