package registry

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/assetregistry/internal/codec"
	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/gather"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/config"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/utils"
)

// Options configures a Registry.
type Options struct {
	Gather              gather.Options
	Serialization       SerializationOptions
	SnapshotCompression codec.Compression
	LoadWorkers         int
	GlobalFilter        GlobalFilter
}

// OptionsFromConfig builds registry options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	g, err := gather.OptionsFromConfig(cfg)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Gather:              g,
		Serialization:       DefaultSerializationOptions(),
		SnapshotCompression: g.Compression,
		LoadWorkers:         cfg.Scan.LoadWorkers,
		GlobalFilter:        GlobalFilter{ExcludedClasses: cfg.Registry.ExcludedClasses},
	}
	if cfg.Registry.ExcludeEditorOnly {
		opts.GlobalFilter.ExcludedPackageFlags = asset.FlagFilterEditorOnly
	}
	if err := opts.GlobalFilter.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid ASSET_EXCLUDED_CLASSES: %w", err)
	}
	if cfg.Registry.SerializationOptions != "" {
		opts.Serialization, err = LoadSerializationOptions(cfg.Registry.SerializationOptions)
		if err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

// Stats summarizes registry contents and gather progress.
type Stats struct {
	Assets       int
	DependsNodes int
	PackageData  int
	Paths        int
	Gather       gather.Stats
}

// Registry is a State fed by a gather.Gatherer. Queries take the read lock;
// ingestion and snapshot loads take the write lock.
type Registry struct {
	mu     sync.RWMutex
	state  *State
	paths  names.Set
	cooked map[string]struct{}

	gatherMu sync.Mutex
	gatherer *gather.Gatherer
	searched bool
	started  time.Time

	opts    Options
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// New creates an empty registry.
func New(opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := NewState(logger.Named("state"))
	if err := state.SetGlobalFilter(opts.GlobalFilter); err != nil {
		logger.Warn("Ignoring global filter", zap.Error(err))
	}
	return &Registry{
		state:   state,
		paths:   names.NewSet(),
		cooked:  make(map[string]struct{}),
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// SearchAllAssets starts gathering every configured mount. In synchronous
// mode the scan has completed and been ingested when it returns.
func (r *Registry) SearchAllAssets(ctx context.Context) error {
	r.gatherMu.Lock()
	if r.searched {
		r.gatherMu.Unlock()
		return nil
	}
	g, err := gather.New(r.opts.Gather, r.logger.Named("gather"), r.metrics)
	if err != nil {
		r.gatherMu.Unlock()
		return fmt.Errorf("create gatherer: %w", err)
	}
	r.gatherer = g
	r.searched = true
	r.started = time.Now()
	r.gatherMu.Unlock()

	r.logger.Info("Asset search started",
		zap.Int("mounts", len(r.opts.Gather.Mounts)),
		zap.Bool("synchronous", r.opts.Gather.Synchronous),
		zap.String("cache", g.CacheFilename()))

	g.Start(ctx)
	if r.opts.Gather.Synchronous {
		r.Tick()
	}
	return nil
}

func (r *Registry) currentGatherer() *gather.Gatherer {
	r.gatherMu.Lock()
	defer r.gatherMu.Unlock()
	return r.gatherer
}

// Tick drains the gatherer into the state. It reports whether gathering is
// idle.
func (r *Registry) Tick() bool {
	g := r.currentGatherer()
	if g == nil {
		return true
	}
	res, gathering := g.GetAndTrimResults()
	if len(res.Assets) > 0 || len(res.Dependencies) > 0 || len(res.Paths) > 0 || len(res.CookedPackagesWithoutAssetData) > 0 {
		r.ingest(res)
	}
	return !gathering
}

func (r *Registry) ingest(res gather.Results) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range res.Paths {
		r.addPathLocked(p)
	}
	for _, a := range res.Assets {
		if existing, ok := r.state.AssetByObjectPath(a.ObjectPath); ok {
			if !existing.Equal(a) {
				r.state.UpdateRecord(a)
			}
		} else {
			r.state.AddRecord(a)
		}
		r.addPathLocked(a.PackagePath.String())
	}
	for _, d := range res.Dependencies {
		r.state.AddDependencyData(d)
	}
	for _, p := range res.CookedPackagesWithoutAssetData {
		r.cooked[p] = struct{}{}
	}
	r.metrics.SetRegistrySize(r.state.NumAssets(), r.state.NumDependsNodes(), r.state.NumPackageData())
}

// addPathLocked records a package path and all of its parents.
func (r *Registry) addPathLocked(p string) {
	for p != "" && p != "/" {
		n := names.Intern(p)
		if r.paths.Contains(n) {
			return
		}
		r.paths.Add(n)
		i := strings.LastIndexByte(p, '/')
		if i <= 0 {
			return
		}
		p = p[:i]
	}
}

// WaitForCompletion ticks until the gatherer is idle and fully ingested.
func (r *Registry) WaitForCompletion(ctx context.Context) error {
	g := r.currentGatherer()
	if g == nil {
		return nil
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if r.Tick() {
			stats := r.Stats()
			r.logger.Info("Asset search completed",
				zap.Duration("elapsed", time.Since(r.started)),
				zap.Int("assets", stats.Assets),
				zap.Int("depends_nodes", stats.DependsNodes),
				zap.Int64("cache_hits", stats.Gather.CacheHits),
				zap.Int64("parsed", stats.Gather.Parsed),
				zap.Int64("failed", stats.Gather.Failed))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// IsLoadingAssets reports whether a started search still has work.
func (r *Registry) IsLoadingAssets() bool {
	g := r.currentGatherer()
	return g != nil && !g.IsIdle()
}

// PrioritizePath moves files under a package path to the front of the queue.
func (r *Registry) PrioritizePath(packagePath string) {
	if g := r.currentGatherer(); g != nil {
		g.PrioritizePath(packagePath)
	}
}

// ScanPath adds a local directory to the running search and ingests what is
// available. In synchronous mode the directory is fully gathered.
func (r *Registry) ScanPath(localDir string) bool {
	g := r.currentGatherer()
	if g == nil {
		return false
	}
	ok := g.AddPath(localDir)
	r.Tick()
	return ok
}

// SetInitialPluginsLoaded releases files held back for missing custom versions.
func (r *Registry) SetInitialPluginsLoaded() {
	if g := r.currentGatherer(); g != nil {
		g.SetInitialPluginsLoaded()
	}
}

// Close stops gathering and waits for the gatherer to exit.
func (r *Registry) Close() {
	if g := r.currentGatherer(); g != nil {
		g.Stop()
		g.EnsureCompletion()
	}
}

// SetGlobalFilter replaces the filter that hides records from queries.
func (r *Registry) SetGlobalFilter(g GlobalFilter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.SetGlobalFilter(g)
}

// GetAssets returns copies of the records matching f.
func (r *Registry) GetAssets(f Filter) []*asset.AssetData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, _ := r.state.GetAssets(f, nil)
	return out
}

// GetAllAssets returns copies of every record.
func (r *Registry) GetAllAssets() []*asset.AssetData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GetAllAssets(nil)
}

// GetAssetByObjectPath returns a copy of one record.
func (r *Registry) GetAssetByObjectPath(objectPath names.Name) (*asset.AssetData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.state.AssetByObjectPath(objectPath)
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// HasAssets reports whether any record lives directly under packagePath.
func (r *Registry) HasAssets(packagePath names.Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.HasAssets(packagePath)
}

// GetDependencies returns what id depends on.
func (r *Registry) GetDependencies(id asset.AssetIdentifier, mask Category, q DependencyQuery) ([]asset.AssetIdentifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GetDependencies(id, mask, q)
}

// GetReferencers returns what depends on id.
func (r *Registry) GetReferencers(id asset.AssetIdentifier, mask Category, q DependencyQuery) ([]asset.AssetIdentifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GetReferencers(id, mask, q)
}

// GetAssetPackageData returns the package data of packageName.
func (r *Registry) GetAssetPackageData(packageName names.Name) (asset.PackageData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GetAssetPackageData(packageName)
}

// ResolveRedirector follows redirector packages from id.
func (r *Registry) ResolveRedirector(id asset.AssetIdentifier) (asset.AssetIdentifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.ResolveRedirector(id, nil, nil)
}

// GetCachedPaths returns every known package path, sorted.
func (r *Registry) GetCachedPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.paths))
	for p := range r.paths {
		out = append(out, p.String())
	}
	slices.Sort(out)
	return out
}

// GetCookedPackagesWithoutAssetData returns editor-stripped packages whose
// records could not be read.
func (r *Registry) GetCookedPackagesWithoutAssetData() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.cooked))
	for p := range r.cooked {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Dump writes a text rendering of the state.
func (r *Registry) Dump(w io.Writer, o DumpOptions) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Dump(w, o)
}

// Stats returns current counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	s := Stats{
		Assets:       r.state.NumAssets(),
		DependsNodes: r.state.NumDependsNodes(),
		PackageData:  r.state.NumPackageData(),
		Paths:        len(r.paths),
	}
	r.mu.RUnlock()
	if g := r.currentGatherer(); g != nil {
		s.Gather = g.Stats()
	}
	return s
}

// SaveSnapshot atomically writes the state to path.
func (r *Registry) SaveSnapshot(path string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	timer := r.metrics.StartCacheSave()
	defer timer.ObserveDuration()

	err := utils.WriteFileAtomic(path, func(w io.Writer) error {
		return r.state.Save(w, r.opts.Serialization, r.opts.SnapshotCompression)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}
	r.logger.Info("Snapshot saved",
		zap.String("path", path),
		zap.Int("assets", r.state.NumAssets()),
		zap.Int("depends_nodes", r.state.NumDependsNodes()))
	return nil
}

// LoadSnapshot replaces the state with the snapshot at path. On failure the
// state is empty.
func (r *Registry) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	timer := r.metrics.StartCacheLoad()
	defer timer.ObserveDuration()

	r.paths = names.NewSet()
	r.cooked = make(map[string]struct{})
	if err := r.state.Load(bufio.NewReaderSize(f, 256*1024), r.opts.Serialization, r.opts.LoadWorkers); err != nil {
		return fmt.Errorf("load snapshot %s: %w", path, err)
	}
	for _, a := range r.state.sortedAssets() {
		r.addPathLocked(a.PackagePath.String())
	}
	r.metrics.SetRegistrySize(r.state.NumAssets(), r.state.NumDependsNodes(), r.state.NumPackageData())
	return nil
}

// Prune removes records and graph nodes under the registry lock.
func (r *Registry) Prune(f PruneFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Prune(f, r.opts.Serialization)
	r.metrics.SetRegistrySize(r.state.NumAssets(), r.state.NumDependsNodes(), r.state.NumPackageData())
}
