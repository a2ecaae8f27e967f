package gather

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/assetregistry/internal/discovery"
	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/assetregistry/internal/logging"
	"github.com/GriffinCanCode/assetregistry/internal/pkgfile"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// Results is one drain of gathered data.
type Results struct {
	Assets       []*asset.AssetData
	Dependencies []*asset.DependencyRecord
	// Package paths of directories discovered since the last drain
	Paths []string
	// Editor-stripped packages whose assets could not be read from the header
	CookedPackagesWithoutAssetData []string
}

// Stats are cumulative counters for one Gatherer.
type Stats struct {
	CacheHits   int64
	CacheMisses int64
	Parsed      int64
	Failed      int64
	Retried     int64
	CacheWrites int64
	Pending     int
}

// pendingFile is a file waiting to be gathered.
type pendingFile struct {
	discovery.FileResult
	name names.Name
}

// Gatherer gathers asset records from discovered files.
type Gatherer struct {
	opts      Options
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	discovery *discovery.Worker
	cachePath string

	mu                sync.Mutex
	pending           []pendingFile
	retry             []pendingFile
	priorities        []string
	busy              bool
	discoveryComplete bool
	out               Results

	// bumped by AddPath; a drain that raced it must not mark discovery complete
	discoveryGen uint64

	// owned by the gather goroutine
	diskCache  map[names.Name]*cacheEntry
	newCache   map[names.Name]*cacheEntry
	cacheDirty bool
	limiter    *rate.Limiter

	initialPluginsLoaded atomic.Bool
	started              atomic.Bool
	stopCount            atomic.Int32
	stopOnce             sync.Once
	stopCh               chan struct{}
	wake                 chan struct{}
	done                 chan struct{}

	hits, misses, parsed, failed, retried, writes atomic.Int64
}

// New creates a Gatherer. Nothing runs until Start.
func New(opts Options, logger *zap.Logger, metrics *monitoring.Metrics) (*Gatherer, error) {
	opts.applyDefaults()
	logger = logging.OrNop(logger)

	g := &Gatherer{
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		cachePath: cacheFilename(&opts),
		newCache:  make(map[names.Name]*cacheEntry),
		stopCh:    make(chan struct{}),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	g.discovery = discovery.New(discovery.Options{
		Extensions: opts.Extensions,
		IdlePoll:   opts.IdlePoll,
	}, logger.Named("discovery"), metrics)

	limiter := rate.NewLimiter(rate.Every(opts.CacheWriteInterval), 1)
	limiter.Allow() // the first periodic write waits a full interval
	g.limiter = limiter
	return g, nil
}

// CacheFilename returns the cache file path, or "" when caching is off.
func (g *Gatherer) CacheFilename() string { return g.cachePath }

// Start loads the cache and begins gathering. In synchronous mode it returns
// once every file has been gathered.
func (g *Gatherer) Start(ctx context.Context) {
	if !g.started.CompareAndSwap(false, true) {
		return
	}
	g.loadDiskCache()
	g.queueExplicitFiles()

	if g.opts.Synchronous {
		g.discovery.Start(g.opts.Mounts, g.opts.DenyList, true)
		for !g.shouldStop(ctx) && g.tick() {
		}
		g.finish()
		close(g.done)
		return
	}

	g.discovery.Start(g.opts.Mounts, g.opts.DenyList, false)
	go g.run(ctx)
}

func (g *Gatherer) loadDiskCache() {
	g.diskCache = map[names.Name]*cacheEntry{}
	if g.cachePath == "" {
		return
	}
	timer := g.metrics.StartCacheLoad()
	entries, err := loadCache(g.cachePath, g.opts.LoadWorkers)
	timer.ObserveDuration()
	if err != nil {
		g.logger.Warn("Discarding unreadable discovery cache", zap.String("file", g.cachePath), zap.Error(err))
		return
	}
	g.diskCache = entries
	g.logger.Debug("Loaded discovery cache", zap.String("file", g.cachePath), zap.Int("entries", len(entries)))
}

func (g *Gatherer) queueExplicitFiles() {
	var files []pendingFile
	for _, f := range g.opts.Files {
		local := paths.NormalizeLocal(f)
		m, ok := paths.FindMount(g.opts.Mounts, local)
		if !ok {
			g.logger.Warn("Explicit file is not inside any mount", zap.String("file", local))
			continue
		}
		pkg, ok := m.PackageNameFor(local)
		info, err := os.Stat(local)
		if !ok || err != nil || !info.Mode().IsRegular() {
			g.logger.Debug("Skipping explicit file", zap.String("file", local))
			continue
		}
		files = append(files, newPending(discovery.FileResult{
			LocalPath:   local,
			PackageName: pkg,
			Extension:   filepath.Ext(local),
			ModTime:     info.ModTime(),
		}))
	}
	g.mu.Lock()
	g.pending = append(files, g.pending...)
	g.mu.Unlock()
}

func newPending(f discovery.FileResult) pendingFile {
	return pendingFile{FileResult: f, name: names.Intern(f.PackageName)}
}

func (g *Gatherer) run(ctx context.Context) {
	defer close(g.done)
	timer := time.NewTimer(g.opts.IdlePoll)
	defer timer.Stop()

	for !g.shouldStop(ctx) {
		if g.tick() {
			continue
		}
		timer.Reset(g.opts.IdlePoll)
		select {
		case <-g.wake:
		case <-timer.C:
		case <-g.stopCh:
		case <-ctx.Done():
		}
	}
	g.finish()
}

func (g *Gatherer) shouldStop(ctx context.Context) bool {
	return g.stopCount.Load() > 0 || ctx.Err() != nil
}

func (g *Gatherer) stopping() bool { return g.stopCount.Load() > 0 }

// finish writes the cache at shutdown.
func (g *Gatherer) finish() {
	g.saveCache("shutdown")
}

// tick processes one batch. It returns false when there was nothing to do.
func (g *Gatherer) tick() bool {
	g.drainDiscovery()

	g.mu.Lock()
	n := min(g.opts.BatchSize, len(g.pending))
	batch := make([]pendingFile, n)
	copy(batch, g.pending[:n])
	g.pending = g.pending[n:]
	g.busy = n > 0
	complete := g.discoveryComplete && len(g.pending) == 0
	pendingCount := len(g.pending)
	g.mu.Unlock()
	g.metrics.SetPendingFiles(pendingCount)

	if n == 0 {
		if complete {
			g.saveCache("discovery complete")
		} else if g.limiter.Allow() {
			g.saveCache("periodic")
		}
		return false
	}

	g.processBatch(batch)

	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()

	if g.limiter.Allow() {
		g.saveCache("periodic")
	}
	return true
}

func (g *Gatherer) drainDiscovery() {
	g.mu.Lock()
	gen := g.discoveryGen
	g.mu.Unlock()

	res, scanning := g.discovery.GetAndTrimResults()
	g.applyDiscovery(gen, res, scanning)
}

// applyDiscovery queues one drain of discovery results taken at generation gen.
func (g *Gatherer) applyDiscovery(gen uint64, res discovery.Results, scanning bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, f := range res.Files {
		g.pending = append(g.pending, newPending(f))
	}
	if len(res.Files) > 0 && len(g.priorities) > 0 {
		g.prioritizeLocked()
	}
	g.out.Paths = append(g.out.Paths, res.Paths...)
	g.discoveryComplete = !scanning && gen == g.discoveryGen
}

// parseResult is the outcome of gathering one file.
type parseResult struct {
	assets    []*asset.AssetData
	deps      *asset.DependencyRecord
	cooked    []string
	cacheable bool
	err       error
	canceled  bool
	fromCache bool
}

func (g *Gatherer) processBatch(batch []pendingFile) {
	results := make([]parseResult, len(batch))
	var misses []int

	// Cache lookups happen here, before the parallel phase, so the cache
	// maps are only touched by this goroutine.
	for i, f := range batch {
		if e, ok := g.lookupCache(f); ok {
			results[i] = parseResult{assets: e.Assets, deps: e.Dependencies, fromCache: true}
			g.newCache[f.name] = e
			g.hits.Add(1)
			g.metrics.RecordCacheLookup(true)
			continue
		}
		if g.cachePath != "" {
			g.misses.Add(1)
			g.metrics.RecordCacheLookup(false)
		}
		misses = append(misses, i)
	}

	var eg errgroup.Group
	eg.SetLimit(g.opts.ParseWorkers)
	for _, i := range misses {
		eg.Go(func() error {
			if g.stopping() {
				results[i].canceled = true
				return nil
			}
			results[i] = g.parse(batch[i].FileResult)
			return nil
		})
	}
	eg.Wait()

	var canceled, retry []pendingFile
	var out Results
	for i, res := range results {
		f := batch[i]
		switch {
		case res.canceled:
			canceled = append(canceled, f)
			continue
		case res.err != nil:
			if pkgfile.IsRetryable(res.err) && g.canRetry() {
				retry = append(retry, f)
				g.retried.Add(1)
				g.metrics.RecordRetry()
			} else {
				g.failed.Add(1)
				g.metrics.RecordParseFailure(pkgfile.ResultOf(res.err).String())
				g.logger.Debug("Skipping package", zap.String("file", f.LocalPath), zap.String("reason", res.err.Error()))
			}
			continue
		}

		if !res.fromCache {
			g.parsed.Add(1)
			g.metrics.RecordParse()
			if res.cacheable && g.cachePath != "" {
				g.newCache[f.name] = &cacheEntry{
					ModTime:      f.ModTime.UnixNano(),
					Extension:    f.Extension,
					Assets:       res.assets,
					Dependencies: res.deps,
				}
				g.cacheDirty = true
			}
		}
		for _, a := range res.assets {
			out.Assets = append(out.Assets, a.Clone())
		}
		if res.deps != nil {
			out.Dependencies = append(out.Dependencies, res.deps)
		}
		out.CookedPackagesWithoutAssetData = append(out.CookedPackagesWithoutAssetData, res.cooked...)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = append(canceled, g.pending...)
	if g.initialPluginsLoaded.Load() {
		// Plugins finished loading while this batch was parsing
		g.pending = append(g.pending, retry...)
	} else {
		g.retry = append(g.retry, retry...)
	}
	g.out.Assets = append(g.out.Assets, out.Assets...)
	g.out.Dependencies = append(g.out.Dependencies, out.Dependencies...)
	g.out.CookedPackagesWithoutAssetData = append(g.out.CookedPackagesWithoutAssetData, out.CookedPackagesWithoutAssetData...)
}

func (g *Gatherer) canRetry() bool {
	return g.opts.Interactive && !g.opts.Synchronous && !g.initialPluginsLoaded.Load()
}

// lookupCache returns a valid cache entry for f.
func (g *Gatherer) lookupCache(f pendingFile) (*cacheEntry, bool) {
	e, ok := g.newCache[f.name]
	if !ok {
		e, ok = g.diskCache[f.name]
	}
	if !ok {
		return nil, false
	}
	if e.ModTime != f.ModTime.UnixNano() || e.Extension != f.Extension {
		return nil, false
	}
	if g.opts.GatherDependencies {
		// Guards against keys that collide by case
		if e.Dependencies == nil || e.Dependencies.PackageName != f.name {
			return nil, false
		}
	}
	return e, true
}

// parse reads one file. It runs on parse workers.
func (g *Gatherer) parse(f discovery.FileResult) parseResult {
	r, err := pkgfile.Open(f.LocalPath, f.PackageName, g.opts.CustomVersions)
	if err != nil {
		return parseResult{err: err}
	}
	defer r.Close()

	var res parseResult
	if r.Summary().PackageFlags&asset.FlagFilterEditorOnly != 0 {
		assets, unresolved, err := r.ReadMetadataForDistributedBuild()
		if err != nil {
			return parseResult{err: err}
		}
		res.assets = assets
		res.cooked = unresolved
	} else {
		assets, err := r.ReadMetadata()
		if err != nil {
			return parseResult{err: err}
		}
		res.assets = assets
		res.cacheable = true
	}

	if g.opts.GatherDependencies {
		deps, err := r.ReadDependencies()
		if err != nil {
			return parseResult{err: err}
		}
		for _, a := range res.assets {
			if a.IsRedirector() {
				deps.MarkAllImportsUsedInGame()
				break
			}
		}
		res.deps = deps
	}
	return res
}

// saveCache writes the entries touched in this run.
func (g *Gatherer) saveCache(reason string) {
	if g.cachePath == "" || !g.cacheDirty {
		return
	}
	timer := g.metrics.StartCacheSave()
	err := saveCache(g.cachePath, g.newCache, g.opts.Compression)
	timer.ObserveDuration()
	if err != nil {
		g.logger.Warn("Failed to write discovery cache", zap.String("file", g.cachePath), zap.Error(err))
		return
	}
	g.cacheDirty = false
	g.writes.Add(1)
	g.metrics.RecordCacheWrite()
	g.logger.Debug("Wrote discovery cache",
		zap.String("file", g.cachePath),
		zap.String("reason", reason),
		zap.Int("entries", len(g.newCache)))
}

// GetAndTrimResults drains gathered results. The bool reports whether
// gathering is still in progress.
func (g *Gatherer) GetAndTrimResults() (Results, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res := g.out
	g.out = Results{}
	return res, !g.isIdleLocked()
}

func (g *Gatherer) isIdleLocked() bool {
	return g.discoveryComplete && len(g.pending) == 0 && len(g.retry) == 0 && !g.busy
}

// IsIdle reports whether every discovered file has been gathered.
func (g *Gatherer) IsIdle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isIdleLocked()
}

// WaitForIdle blocks until gathering is idle, the gatherer stops or ctx ends.
func (g *Gatherer) WaitForIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if g.IsIdle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.done:
			return nil
		case <-ticker.C:
		}
	}
}

// PrioritizePath gathers files under path, a package path or local
// directory, before anything else.
func (g *Gatherer) PrioritizePath(path string) {
	path = paths.NormalizePackagePath(path)
	g.discovery.PrioritizePath(path)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.priorities = append(g.priorities, path)
	g.prioritizeLocked()
}

func (g *Gatherer) prioritizeLocked() {
	var front, rest []pendingFile
	for _, f := range g.pending {
		if g.isPriorityLocked(f) {
			front = append(front, f)
		} else {
			rest = append(rest, f)
		}
	}
	g.pending = append(front, rest...)
}

func (g *Gatherer) isPriorityLocked(f pendingFile) bool {
	for _, p := range g.priorities {
		if paths.IsParentPath(p, f.PackageName) || paths.IsParentPath(p, f.LocalPath) {
			return true
		}
	}
	return false
}

// AddPath scans another local directory.
func (g *Gatherer) AddPath(localDir string) bool {
	if !g.discovery.AddPath(localDir) {
		return false
	}
	g.mu.Lock()
	g.discoveryGen++
	g.discoveryComplete = false
	g.mu.Unlock()

	if g.opts.Synchronous && g.started.Load() {
		for g.stopCount.Load() == 0 && g.tick() {
		}
		g.saveCache("path added")
		return true
	}
	g.signal()
	return true
}

// SetInitialPluginsLoaded ends the window in which missing custom versions
// are retried. Files waiting for a retry get one final attempt.
func (g *Gatherer) SetInitialPluginsLoaded() {
	g.initialPluginsLoaded.Store(true)
	g.mu.Lock()
	g.pending = append(g.pending, g.retry...)
	g.retry = nil
	g.mu.Unlock()
	g.signal()
}

func (g *Gatherer) signal() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// Stop asks the gatherer to exit after the files currently being parsed.
func (g *Gatherer) Stop() {
	g.stopCount.Add(1)
	g.stopOnce.Do(func() { close(g.stopCh) })
	g.discovery.Stop()
}

// EnsureCompletion stops the gatherer and waits for it to exit.
func (g *Gatherer) EnsureCompletion() {
	g.Stop()
	if g.started.Load() {
		<-g.done
	}
	g.discovery.EnsureCompletion()
}

// Stats returns cumulative counters.
func (g *Gatherer) Stats() Stats {
	g.mu.Lock()
	pending := len(g.pending) + len(g.retry)
	g.mu.Unlock()
	return Stats{
		CacheHits:   g.hits.Load(),
		CacheMisses: g.misses.Load(),
		Parsed:      g.parsed.Load(),
		Failed:      g.failed.Load(),
		Retried:     g.retried.Load(),
		CacheWrites: g.writes.Load(),
		Pending:     pending,
	}
}
