// Package config loads scanner configuration from the environment using
// envconfig.
//
// Variables:
//   - ASSET_ROOTS: comma list of "localDir=/Mount" content roots
//   - ASSET_FILES: explicit files, always gathered
//   - ASSET_DENY_LIST: path prefixes or glob patterns to skip
//   - ASSET_CACHE_MODE: none, per-input-hash or monolithic
//   - ASSET_SYNCHRONOUS, ASSET_GATHER_DEPENDENCIES, ASSET_INTERACTIVE
//   - ASSET_PARSE_WORKERS, ASSET_LOAD_WORKERS
//   - ASSET_EXCLUDED_CLASSES, ASSET_EXCLUDE_EDITOR_ONLY: records hidden from queries
//   - LOG_LEVEL, LOG_DEV
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	mounts, err := cfg.Scan.Mounts()
package config
