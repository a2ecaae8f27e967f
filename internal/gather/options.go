package gather

import (
	"fmt"
	"runtime"
	"time"

	"github.com/GriffinCanCode/assetregistry/internal/codec"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/config"
	"github.com/GriffinCanCode/assetregistry/internal/pkgfile"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// CacheMode selects the discovery cache file.
type CacheMode int

const (
	// NoCache disables the discovery cache.
	NoCache CacheMode = iota
	// PerInputHash uses one cache file per set of content roots.
	PerInputHash
	// Monolithic shares one cache file across all runs.
	Monolithic
)

func (m CacheMode) String() string {
	switch m {
	case NoCache:
		return config.CacheModeNone
	case PerInputHash:
		return config.CacheModePerInputHash
	default:
		return config.CacheModeMonolithic
	}
}

// ParseCacheMode parses a configuration value.
func ParseCacheMode(s string) (CacheMode, error) {
	switch s {
	case config.CacheModeNone:
		return NoCache, nil
	case config.CacheModePerInputHash:
		return PerInputHash, nil
	case config.CacheModeMonolithic, "":
		return Monolithic, nil
	default:
		return NoCache, fmt.Errorf("unknown cache mode %q", s)
	}
}

// Options configures a Gatherer.
type Options struct {
	Mounts []paths.Mount
	// Files are gathered even when the deny list would exclude them.
	Files      []string
	DenyList   []string
	Extensions []string

	GatherDependencies bool
	CacheMode          CacheMode
	CacheDir           string
	Compression        codec.Compression
	CacheWriteInterval time.Duration

	Synchronous bool
	Interactive bool

	ParseWorkers int
	LoadWorkers  int
	// BatchSize defaults to three files per parse worker.
	BatchSize int

	CustomVersions *pkgfile.CustomVersions
	IdlePoll       time.Duration
}

// OptionsFromConfig builds options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mounts, err := cfg.Scan.Mounts()
	if err != nil {
		return Options{}, err
	}
	mode, err := ParseCacheMode(cfg.Cache.Mode)
	if err != nil {
		return Options{}, err
	}
	compression, err := codec.ParseCompression(cfg.Cache.Compression)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Mounts:             mounts,
		Files:              cfg.Scan.Files,
		DenyList:           cfg.Scan.DenyList,
		Extensions:         cfg.Scan.Extensions,
		GatherDependencies: cfg.Scan.GatherDependencies,
		CacheMode:          mode,
		CacheDir:           cfg.Cache.Dir,
		Compression:        compression,
		CacheWriteInterval: cfg.Cache.WriteInterval,
		Synchronous:        cfg.Scan.Synchronous,
		Interactive:        cfg.Scan.Interactive,
		ParseWorkers:       cfg.Scan.ParseWorkers,
		LoadWorkers:        cfg.Scan.LoadWorkers,
	}, nil
}

func (o *Options) applyDefaults() {
	if o.ParseWorkers <= 0 {
		o.ParseWorkers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = o.ParseWorkers * 3
	}
	if o.CacheWriteInterval <= 0 {
		o.CacheWriteInterval = 60 * time.Second
	}
	if o.CacheDir == "" {
		o.CacheDir = ".assetcache"
	}
	if o.IdlePoll <= 0 {
		o.IdlePoll = 100 * time.Millisecond
	}
	if o.CustomVersions == nil {
		o.CustomVersions = pkgfile.NewCustomVersions()
	}
}
