package registry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/gather"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/config"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/assetregistry/internal/pkgfile"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

type content struct {
	root  string
	cache string
	mount paths.Mount
}

func newContent(t *testing.T) *content {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Content")
	m, err := paths.ParseMount(root + "=/Game")
	require.NoError(t, err)

	c := &content{root: root, cache: t.TempDir(), mount: m}
	rock := pkgfile.NewPackage()
	rock.AddAsset("Rock", "StaticMesh", map[string]string{"Triangles": "12"})
	rock.AddPackageImport("/Game/Materials/Stone", true)
	c.write(t, "Props/Rock.asset", rock)

	stone := pkgfile.NewPackage()
	stone.AddAsset("Stone", "Material", map[string]string{"Shading": "Lit"})
	c.write(t, "Materials/Stone.asset", stone)

	level := pkgfile.NewPackage()
	level.AddAsset("Arena", "World", nil)
	level.AddPackageImport("/Game/Props/Rock", true)
	level.AddSoftReference("/Game/Materials/Stone", false)
	c.write(t, "Maps/Arena.asset", level)
	return c
}

func (c *content) write(t *testing.T, rel string, p *pkgfile.Package) {
	t.Helper()
	require.NoError(t, pkgfile.WriteFile(filepath.Join(c.root, filepath.FromSlash(rel)), p))
}

func (c *content) options(synchronous bool) Options {
	return Options{
		Gather: gather.Options{
			Mounts:             []paths.Mount{c.mount},
			Extensions:         []string{".asset"},
			GatherDependencies: true,
			CacheMode:          gather.Monolithic,
			CacheDir:           c.cache,
			Synchronous:        synchronous,
			ParseWorkers:       2,
			IdlePoll:           5 * time.Millisecond,
		},
		Serialization: DefaultSerializationOptions(),
		LoadWorkers:   2,
	}
}

func scan(t *testing.T, opts Options, metrics *monitoring.Metrics) *Registry {
	t.Helper()
	r := New(opts, nil, metrics)
	t.Cleanup(r.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.SearchAllAssets(ctx))
	require.NoError(t, r.WaitForCompletion(ctx))
	return r
}

func registryDump(t *testing.T, r *Registry) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Dump(&buf, DumpAll()))
	return buf.String()
}

func TestRegistrySearchAllAssets(t *testing.T) {
	c := newContent(t)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	r := scan(t, c.options(true), metrics)

	all := r.GetAllAssets()
	assert.Equal(t, []string{"/Game/Maps/Arena.Arena", "/Game/Materials/Stone.Stone", "/Game/Props/Rock.Rock"}, objectPaths(all))
	assert.False(t, r.IsLoadingAssets())

	worlds := r.GetAssets(Filter{ClassNames: []names.Name{names.Intern("World")}})
	assert.Equal(t, []string{"/Game/Maps/Arena.Arena"}, objectPaths(worlds))

	deps, ok := r.GetDependencies(pkgID("/Game/Maps/Arena"), CategoryPackage, NewQuery(QueryHard))
	require.True(t, ok)
	assert.Equal(t, []asset.AssetIdentifier{pkgID("/Game/Props/Rock")}, deps)

	refs, ok := r.GetReferencers(pkgID("/Game/Materials/Stone"), CategoryPackage, DependencyQuery{})
	require.True(t, ok)
	assert.Equal(t, []asset.AssetIdentifier{pkgID("/Game/Maps/Arena"), pkgID("/Game/Props/Rock")}, refs)

	_, ok = r.GetAssetPackageData(names.Intern("/Game/Props/Rock"))
	assert.True(t, ok)
	assert.True(t, r.HasAssets(names.Intern("/Game/Props")))
	assert.Subset(t, r.GetCachedPaths(), []string{"/Game", "/Game/Maps", "/Game/Materials", "/Game/Props"})

	stats := r.Stats()
	assert.Equal(t, 3, stats.Assets)
	assert.EqualValues(t, 3, stats.Gather.Parsed)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.RegistryAssets))
}

func TestRegistryRescanIsIdempotent(t *testing.T) {
	c := newContent(t)
	first := scan(t, c.options(true), nil)
	second := scan(t, c.options(true), nil)

	stats := second.Stats()
	assert.EqualValues(t, 3, stats.Gather.CacheHits)
	assert.Zero(t, stats.Gather.Parsed)
	assert.Equal(t, registryDump(t, first), registryDump(t, second))
}

func TestRegistryAsynchronousMatchesSynchronous(t *testing.T) {
	c := newContent(t)
	sync := scan(t, c.options(true), nil)

	opts := c.options(false)
	opts.Gather.CacheMode = gather.NoCache
	async := scan(t, opts, nil)

	assert.Equal(t, registryDump(t, sync), registryDump(t, async))
}

func TestRegistryTickUpdatesChangedRecords(t *testing.T) {
	c := newContent(t)
	r := scan(t, c.options(true), nil)

	updated := pkgfile.NewPackage()
	updated.AddAsset("Rock", "StaticMesh", map[string]string{"Triangles": "48"})
	c.write(t, "Props/Rock.asset", updated)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(c.root, "Props", "Rock.asset"), future, future))

	require.True(t, r.ScanPath(filepath.Join(c.root, "Props")))

	rock, ok := r.GetAssetByObjectPath(names.Intern("/Game/Props/Rock.Rock"))
	require.True(t, ok)
	assert.True(t, rock.Tags.ContainsKeyValue(names.Intern("Triangles"), "48"))
	assert.Equal(t, 3, r.Stats().Assets)

	deps, _ := r.GetDependencies(pkgID("/Game/Props/Rock"), CategoryPackage, DependencyQuery{})
	assert.Empty(t, deps)
}

func TestRegistrySnapshotRoundTrip(t *testing.T) {
	c := newContent(t)
	r := scan(t, c.options(true), nil)
	path := filepath.Join(t.TempDir(), "snapshots", "AssetRegistry.bin")
	require.NoError(t, r.SaveSnapshot(path))

	loaded := New(c.options(true), nil, nil)
	require.NoError(t, loaded.LoadSnapshot(path))
	assert.Equal(t, registryDump(t, r), registryDump(t, loaded))
	assert.Equal(t, r.GetCachedPaths(), loaded.GetCachedPaths())

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	assert.Error(t, loaded.LoadSnapshot(path))
	assert.Zero(t, loaded.Stats().Assets)
}

func TestRegistryWithoutSearch(t *testing.T) {
	r := New(Options{Serialization: DefaultSerializationOptions()}, nil, nil)
	assert.True(t, r.Tick())
	assert.NoError(t, r.WaitForCompletion(context.Background()))
	assert.False(t, r.ScanPath("/nowhere"))
	assert.Empty(t, r.GetAllAssets())
	r.Close()
}

func TestRegistryGlobalFilter(t *testing.T) {
	c := newContent(t)
	cfg := config.Default()
	cfg.Registry.ExcludedClasses = []string{"World"}
	cfg.Registry.ExcludeEditorOnly = true
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, asset.FlagFilterEditorOnly, opts.GlobalFilter.ExcludedPackageFlags)

	custom := c.options(true)
	custom.GlobalFilter = opts.GlobalFilter
	r := scan(t, custom, nil)

	assert.Equal(t, []string{"/Game/Materials/Stone.Stone", "/Game/Props/Rock.Rock"}, objectPaths(r.GetAllAssets()))
	assert.Empty(t, r.GetAssets(Filter{ClassNames: []names.Name{names.Intern("World")}}))
	assert.Equal(t, 3, r.Stats().Assets)

	require.NoError(t, r.SetGlobalFilter(GlobalFilter{}))
	assert.Len(t, r.GetAllAssets(), 3)

	cfg.Registry.ExcludedClasses = []string{"[World"}
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
