package gather

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/assetregistry/internal/discovery"
	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/pkgfile"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

type fixture struct {
	root  string
	cache string
	mount paths.Mount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Content")
	require.NoError(t, os.MkdirAll(root, 0o755))
	m, err := paths.ParseMount(root + "=/Game")
	require.NoError(t, err)
	return &fixture{root: root, cache: t.TempDir(), mount: m}
}

func (f *fixture) write(t *testing.T, rel string, p *pkgfile.Package) string {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, pkgfile.WriteFile(path, p))
	return path
}

func (f *fixture) options() Options {
	return Options{
		Mounts:             []paths.Mount{f.mount},
		Extensions:         []string{".asset"},
		GatherDependencies: true,
		CacheMode:          Monolithic,
		CacheDir:           f.cache,
		Synchronous:        true,
		ParseWorkers:       2,
		IdlePoll:           5 * time.Millisecond,
	}
}

func meshPackage(name string) *pkgfile.Package {
	p := pkgfile.NewPackage()
	p.AddAsset(name, "StaticMesh", map[string]string{"Triangles": "12"})
	p.AddPackageImport("/Game/Materials/Stone", true)
	return p
}

func gatherAll(t *testing.T, opts Options) (Results, Stats) {
	t.Helper()
	g, err := New(opts, nil, nil)
	require.NoError(t, err)
	g.Start(context.Background())
	if !opts.Synchronous {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, g.WaitForIdle(ctx))
	}
	res, gathering := g.GetAndTrimResults()
	assert.False(t, gathering)
	g.EnsureCompletion()
	return res, g.Stats()
}

func objectPaths(res Results) []string {
	var out []string
	for _, a := range res.Assets {
		out = append(out, a.ObjectPath.String())
	}
	slices.Sort(out)
	return out
}

func TestGatherSynchronous(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Meshes/Rock.asset", meshPackage("Rock"))
	f.write(t, "Meshes/Tree.asset", meshPackage("Tree"))
	f.write(t, "Maps/Level.asset", meshPackage("Level"))

	res, stats := gatherAll(t, f.options())

	assert.Equal(t, []string{"/Game/Maps/Level.Level", "/Game/Meshes/Rock.Rock", "/Game/Meshes/Tree.Tree"}, objectPaths(res))
	assert.Len(t, res.Dependencies, 3)
	assert.Contains(t, res.Paths, "/Game/Meshes")
	assert.EqualValues(t, 3, stats.Parsed)
	assert.EqualValues(t, 0, stats.CacheHits)
	assert.FileExists(t, filepath.Join(f.cache, "CachedAssetRegistry.bin"))
}

func TestGatherAsynchronous(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		f.write(t, "Dir"+n+"/"+n+".asset", meshPackage(n))
	}
	opts := f.options()
	opts.Synchronous = false

	res, stats := gatherAll(t, opts)

	assert.Len(t, res.Assets, 7)
	assert.EqualValues(t, 7, stats.Parsed)
	assert.Zero(t, stats.Pending)
}

func TestCacheHitsOnSecondRun(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))
	f.write(t, "Tree.asset", meshPackage("Tree"))

	first, _ := gatherAll(t, f.options())
	second, stats := gatherAll(t, f.options())

	assert.EqualValues(t, 2, stats.CacheHits)
	assert.EqualValues(t, 0, stats.Parsed)
	assert.Equal(t, objectPaths(first), objectPaths(second))
	require.Len(t, second.Dependencies, 2)
	for _, d := range second.Dependencies {
		assert.Equal(t, names.Intern("/Game/Materials/Stone"), d.Imports[0].ObjectName)
	}
}

func TestCacheInvalidatedByModTime(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))
	tree := f.write(t, "Tree.asset", meshPackage("Tree"))
	gatherAll(t, f.options())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(tree, later, later))

	_, stats := gatherAll(t, f.options())
	assert.EqualValues(t, 1, stats.CacheHits)
	assert.EqualValues(t, 1, stats.Parsed)
}

func TestCacheInvalidatedByExtension(t *testing.T) {
	f := newFixture(t)
	rock := f.write(t, "Rock.asset", meshPackage("Rock"))
	opts := f.options()
	opts.Extensions = []string{".asset", ".map"}
	gatherAll(t, opts)

	info, err := os.Stat(rock)
	require.NoError(t, err)
	moved := filepath.Join(f.root, "Rock.map")
	require.NoError(t, os.Rename(rock, moved))
	require.NoError(t, os.Chtimes(moved, info.ModTime(), info.ModTime()))

	res, stats := gatherAll(t, opts)
	assert.Equal(t, []string{"/Game/Rock.Rock"}, objectPaths(res))
	assert.EqualValues(t, 0, stats.CacheHits)
	assert.EqualValues(t, 1, stats.CacheMisses)
	assert.EqualValues(t, 1, stats.Parsed)
}

func TestCacheRejectsMismatchedPackageName(t *testing.T) {
	f := newFixture(t)
	g, err := New(f.options(), nil, nil)
	require.NoError(t, err)

	modTime := time.Unix(1700000000, 0)
	file := newPending(discovery.FileResult{LocalPath: "/x/Rock.asset", PackageName: "/Game/Rock", Extension: ".asset", ModTime: modTime})
	entry := &cacheEntry{
		ModTime:      modTime.UnixNano(),
		Extension:    ".asset",
		Dependencies: &asset.DependencyRecord{PackageName: names.Intern("/Game/Rock")},
	}
	g.diskCache = map[names.Name]*cacheEntry{file.name: entry}

	_, ok := g.lookupCache(file)
	assert.True(t, ok)

	entry.Dependencies = &asset.DependencyRecord{PackageName: names.Intern("/Game/ROCK")}
	_, ok = g.lookupCache(file)
	assert.False(t, ok)
}

func TestCacheRequiresDependencies(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))

	opts := f.options()
	opts.GatherDependencies = false
	gatherAll(t, opts)

	_, stats := gatherAll(t, f.options())
	assert.EqualValues(t, 0, stats.CacheHits)
	assert.EqualValues(t, 1, stats.Parsed)
}

func TestCorruptFileIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "Broken.asset"), []byte("not a package"), 0o644))

	res, stats := gatherAll(t, f.options())

	assert.Equal(t, []string{"/Game/Rock.Rock"}, objectPaths(res))
	assert.EqualValues(t, 1, stats.Failed)
}

func TestCorruptCacheIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))
	require.NoError(t, os.WriteFile(filepath.Join(f.cache, "CachedAssetRegistry.bin"), []byte("garbage!"), 0o644))

	res, stats := gatherAll(t, f.options())
	assert.Len(t, res.Assets, 1)
	assert.EqualValues(t, 1, stats.Parsed)
}

func TestRetryAfterPluginsLoad(t *testing.T) {
	f := newFixture(t)
	key := uuid.New()
	p := meshPackage("Plugin")
	p.CustomVersions = []pkgfile.CustomVersion{{Key: key, Version: 2}}
	f.write(t, "Plugin.asset", p)
	f.write(t, "Rock.asset", meshPackage("Rock"))

	opts := f.options()
	opts.Synchronous = false
	opts.Interactive = true
	versions := pkgfile.NewCustomVersions()
	opts.CustomVersions = versions

	g, err := New(opts, nil, nil)
	require.NoError(t, err)
	g.Start(context.Background())
	defer g.EnsureCompletion()

	require.Eventually(t, func() bool { return g.Stats().Retried == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.False(t, g.IsIdle())

	versions.Register(key, 3)
	g.SetInitialPluginsLoaded()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, g.WaitForIdle(ctx))

	res, gathering := g.GetAndTrimResults()
	assert.False(t, gathering)
	assert.Equal(t, []string{"/Game/Plugin.Plugin", "/Game/Rock.Rock"}, objectPaths(res))
}

func TestAddPathRacingDrainKeepsGathering(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))
	opts := f.options()
	opts.Synchronous = false
	g, err := New(opts, nil, nil)
	require.NoError(t, err)
	defer g.EnsureCompletion()

	g.discovery.Start(opts.Mounts, nil, false)
	require.Eventually(t, g.discovery.IsIdle, 5*time.Second, 5*time.Millisecond)

	g.mu.Lock()
	gen := g.discoveryGen
	g.mu.Unlock()
	res, scanning := g.discovery.GetAndTrimResults()
	require.False(t, scanning)

	extra := filepath.Join(f.root, "Extra")
	require.NoError(t, pkgfile.WriteFile(filepath.Join(extra, "Tree.asset"), meshPackage("Tree")))
	require.True(t, g.AddPath(extra))

	g.applyDiscovery(gen, res, scanning)
	assert.False(t, g.IsIdle())

	require.Eventually(t, func() bool {
		g.drainDiscovery()
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.discoveryComplete
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, g.IsIdle(), "Tree.asset is still pending")
}

func TestMissingCustomVersionFailsWhenNotInteractive(t *testing.T) {
	f := newFixture(t)
	p := meshPackage("Plugin")
	p.CustomVersions = []pkgfile.CustomVersion{{Key: uuid.New(), Version: 1}}
	f.write(t, "Plugin.asset", p)

	res, stats := gatherAll(t, f.options())
	assert.Empty(t, res.Assets)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 0, stats.Retried)
}

func TestCookedPackages(t *testing.T) {
	f := newFixture(t)

	withExport := pkgfile.NewPackage()
	withExport.Flags = asset.FlagFilterEditorOnly
	engine := withExport.AddPackageImport("/Script/Engine", true)
	class := withExport.AddImport(pkgfile.Import{ClassPackage: "/Script/CoreUObject", ClassName: "Class", Outer: engine, ObjectName: "Texture", UsedInGame: true})
	withExport.AddExport(pkgfile.Export{ClassIndex: class, ObjectName: "Albedo"})
	f.write(t, "Albedo.asset", withExport)

	empty := pkgfile.NewPackage()
	empty.Flags = asset.FlagFilterEditorOnly
	f.write(t, "Empty.asset", empty)

	res, _ := gatherAll(t, f.options())
	assert.Equal(t, []string{"/Game/Albedo.Albedo"}, objectPaths(res))
	assert.Equal(t, "Texture", res.Assets[0].AssetClass.String())
	assert.Equal(t, []string{"/Game/Empty"}, res.CookedPackagesWithoutAssetData)

	_, stats := gatherAll(t, f.options())
	assert.EqualValues(t, 0, stats.CacheHits)
	assert.EqualValues(t, 2, stats.Parsed)
}

func TestRedirectorMarksImportsUsedInGame(t *testing.T) {
	f := newFixture(t)
	p := pkgfile.NewPackage()
	p.AddAsset("Old", asset.RedirectorClass, nil)
	p.AddPackageImport("/Game/New", false)
	f.write(t, "Old.asset", p)

	res, _ := gatherAll(t, f.options())
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, []bool{true}, res.Dependencies[0].ImportUsedInGame)
}

func TestExplicitFilesIgnoreDenyList(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))
	hidden := f.write(t, "Hidden/Secret.asset", meshPackage("Secret"))

	opts := f.options()
	opts.DenyList = []string{"/Game/Hidden"}
	res, _ := gatherAll(t, opts)
	assert.Equal(t, []string{"/Game/Rock.Rock"}, objectPaths(res))

	opts.Files = []string{hidden}
	res, _ = gatherAll(t, opts)
	assert.Equal(t, []string{"/Game/Hidden/Secret.Secret", "/Game/Rock.Rock"}, objectPaths(res))
}

func TestNoCacheMode(t *testing.T) {
	f := newFixture(t)
	f.write(t, "Rock.asset", meshPackage("Rock"))

	opts := f.options()
	opts.CacheMode = NoCache
	g, err := New(opts, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, g.CacheFilename())

	gatherAll(t, opts)
	_, stats := gatherAll(t, opts)
	assert.EqualValues(t, 0, stats.CacheHits)
	assert.EqualValues(t, 0, stats.CacheMisses)
	assert.NoFileExists(t, filepath.Join(f.cache, "CachedAssetRegistry.bin"))
}

func TestPerInputHashCacheFile(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.CacheMode = PerInputHash
	g, err := New(opts, nil, nil)
	require.NoError(t, err)
	assert.Regexp(t, `CachedAssetRegistry_[0-9a-f]{8}\.bin$`, g.CacheFilename())

	opts.GatherDependencies = false
	g2, err := New(opts, nil, nil)
	require.NoError(t, err)
	assert.Regexp(t, `NoDeps\.bin$`, g2.CacheFilename())
}

func TestStopRequeuesUnparsedFiles(t *testing.T) {
	f := newFixture(t)
	a := f.write(t, "A.asset", meshPackage("A"))
	b := f.write(t, "B.asset", meshPackage("B"))

	g, err := New(f.options(), nil, nil)
	require.NoError(t, err)
	g.pending = []pendingFile{newPending(discovery.FileResult{LocalPath: "/elsewhere/C.asset", PackageName: "/Game/C"})}

	batch := []pendingFile{
		newPending(discovery.FileResult{LocalPath: a, PackageName: "/Game/A", Extension: ".asset"}),
		newPending(discovery.FileResult{LocalPath: b, PackageName: "/Game/B", Extension: ".asset"}),
	}
	g.stopCount.Add(1)
	g.processBatch(batch)

	require.Len(t, g.pending, 3)
	assert.Equal(t, "/Game/A", g.pending[0].PackageName)
	assert.Equal(t, "/Game/B", g.pending[1].PackageName)
	assert.Equal(t, "/Game/C", g.pending[2].PackageName)
	assert.Empty(t, g.out.Assets)
}

func TestPrioritizePathReordersPending(t *testing.T) {
	f := newFixture(t)
	g, err := New(f.options(), nil, nil)
	require.NoError(t, err)
	for _, n := range []string{"/Game/A/One", "/Game/B/Two", "/Game/A/Three", "/Game/C/Four"} {
		g.pending = append(g.pending, newPending(discovery.FileResult{PackageName: n}))
	}

	g.PrioritizePath("/Game/A/")

	var order []string
	for _, p := range g.pending {
		order = append(order, p.PackageName)
	}
	assert.Equal(t, []string{"/Game/A/One", "/Game/A/Three", "/Game/B/Two", "/Game/C/Four"}, order)
}
