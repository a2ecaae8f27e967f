package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default().Cache, cfg.Cache)
	assert.Equal(t, []string{".asset", ".map"}, cfg.Scan.Extensions)
	assert.True(t, cfg.Scan.GatherDependencies)
	assert.Equal(t, 4, cfg.Scan.LoadWorkers)
	assert.Equal(t, "AssetRegistry.bin", cfg.Registry.SnapshotPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ASSET_ROOTS", dir+"=/Game")
	t.Setenv("ASSET_DENY_LIST", "/Game/Dev,**/Temp")
	t.Setenv("ASSET_CACHE_MODE", CacheModePerInputHash)
	t.Setenv("ASSET_CACHE_WRITE_INTERVAL", "2m")
	t.Setenv("ASSET_CACHE_COMPRESSION", CompressionZstd)
	t.Setenv("ASSET_SYNCHRONOUS", "true")
	t.Setenv("ASSET_PARSE_WORKERS", "8")
	t.Setenv("ASSET_EXCLUDED_CLASSES", "Editor*,ObjectRedirector")
	t.Setenv("ASSET_EXCLUDE_EDITOR_ONLY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"/Game/Dev", "**/Temp"}, cfg.Scan.DenyList)
	assert.Equal(t, 2*time.Minute, cfg.Cache.WriteInterval)
	assert.True(t, cfg.Scan.Synchronous)
	assert.Equal(t, 8, cfg.Scan.ParseWorkers)
	assert.Equal(t, []string{"Editor*", "ObjectRedirector"}, cfg.Registry.ExcludedClasses)
	assert.True(t, cfg.Registry.ExcludeEditorOnly)

	mounts, err := cfg.Scan.Mounts()
	require.NoError(t, err)
	require.Len(t, mounts, 1)
	assert.Equal(t, "/Game", mounts[0].PackageRoot)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Cache.Mode = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Cache.Compression = "lz4"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scan.Roots = []string{"/tmp=NoSlash"}
	assert.Error(t, cfg.Validate())
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("ASSET_PARSE_WORKERS", "many")
	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}
