package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// Cache modes accepted by ASSET_CACHE_MODE
const (
	CacheModeNone         = "none"
	CacheModePerInputHash = "per-input-hash"
	CacheModeMonolithic   = "monolithic"
)

// Compression values accepted by ASSET_CACHE_COMPRESSION
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Config holds all application configuration.
type Config struct {
	Scan     ScanConfig
	Cache    CacheConfig
	Registry RegistryConfig
	Logging  LogConfig
}

// ScanConfig holds discovery and gathering configuration.
type ScanConfig struct {
	Roots              []string `envconfig:"ASSET_ROOTS"`
	Files              []string `envconfig:"ASSET_FILES"`
	DenyList           []string `envconfig:"ASSET_DENY_LIST"`
	Extensions         []string `envconfig:"ASSET_EXTENSIONS" default:".asset,.map"`
	Synchronous        bool     `envconfig:"ASSET_SYNCHRONOUS" default:"false"`
	GatherDependencies bool     `envconfig:"ASSET_GATHER_DEPENDENCIES" default:"true"`
	Interactive        bool     `envconfig:"ASSET_INTERACTIVE" default:"false"`
	ParseWorkers       int      `envconfig:"ASSET_PARSE_WORKERS" default:"0"`
	LoadWorkers        int      `envconfig:"ASSET_LOAD_WORKERS" default:"4"`
}

// CacheConfig holds discovery cache configuration.
type CacheConfig struct {
	Mode          string        `envconfig:"ASSET_CACHE_MODE" default:"monolithic"`
	Dir           string        `envconfig:"ASSET_CACHE_DIR" default:".assetcache"`
	WriteInterval time.Duration `envconfig:"ASSET_CACHE_WRITE_INTERVAL" default:"60s"`
	Compression   string        `envconfig:"ASSET_CACHE_COMPRESSION" default:"none"`
}

// RegistryConfig holds snapshot configuration.
type RegistryConfig struct {
	SnapshotPath         string `envconfig:"ASSET_SNAPSHOT_PATH" default:"AssetRegistry.bin"`
	SerializationOptions string `envconfig:"ASSET_SERIALIZATION_OPTIONS"`

	// Class patterns hidden from queries
	ExcludedClasses   []string `envconfig:"ASSET_EXCLUDED_CLASSES"`
	ExcludeEditorOnly bool     `envconfig:"ASSET_EXCLUDE_EDITOR_ONLY" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions:         []string{".asset", ".map"},
			GatherDependencies: true,
			LoadWorkers:        4,
		},
		Cache: CacheConfig{
			Mode:          CacheModeMonolithic,
			Dir:           ".assetcache",
			WriteInterval: 60 * time.Second,
			Compression:   CompressionNone,
		},
		Registry: RegistryConfig{
			SnapshotPath: "AssetRegistry.bin",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks enumerated values and numeric ranges.
func (c *Config) Validate() error {
	switch c.Cache.Mode {
	case CacheModeNone, CacheModePerInputHash, CacheModeMonolithic:
	default:
		return fmt.Errorf("invalid ASSET_CACHE_MODE %q", c.Cache.Mode)
	}
	switch c.Cache.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("invalid ASSET_CACHE_COMPRESSION %q", c.Cache.Compression)
	}
	if c.Scan.ParseWorkers < 0 || c.Scan.LoadWorkers < 0 {
		return fmt.Errorf("worker counts must not be negative")
	}
	if c.Cache.WriteInterval < 0 {
		return fmt.Errorf("invalid ASSET_CACHE_WRITE_INTERVAL %s", c.Cache.WriteInterval)
	}
	_, err := c.Scan.Mounts()
	return err
}

// Mounts parses the configured content roots.
func (s ScanConfig) Mounts() ([]paths.Mount, error) {
	mounts := make([]paths.Mount, 0, len(s.Roots))
	for _, root := range s.Roots {
		m, err := paths.ParseMount(root)
		if err != nil {
			return nil, fmt.Errorf("invalid ASSET_ROOTS entry: %w", err)
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}
