package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/assetregistry/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/assetregistry/internal/logging"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// Defaults
const (
	DefaultBatchSize      = 256
	DefaultIdlePoll       = 100 * time.Millisecond
	DefaultPriorityWindow = 1 << 16
)

// FileResult is one discovered candidate package file.
type FileResult struct {
	LocalPath   string
	PackageName string
	Extension   string
	ModTime     time.Time
}

// Results is one drain of discovered data.
type Results struct {
	// Package paths of the directories enumerated since the last drain
	Paths []string
	Files []FileResult
	// Directories still queued
	Pending int
}

// Options configures a Worker.
type Options struct {
	Extensions     []string
	BatchSize      int
	IdlePoll       time.Duration
	PriorityWindow int
}

func (o *Options) applyDefaults() {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".asset", ".map"}
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.IdlePoll <= 0 {
		o.IdlePoll = DefaultIdlePoll
	}
	if o.PriorityWindow <= 0 {
		o.PriorityWindow = DefaultPriorityWindow
	}
}

// Worker discovers package files under a set of mounts.
type Worker struct {
	opts       Options
	extensions map[string]struct{}
	logger     *zap.Logger
	metrics    *monitoring.Metrics

	mu         sync.Mutex
	mounts     []paths.Mount
	deny       denyList
	queue      dirQueue
	priorities []string
	busy       bool
	outPaths   []string
	outFiles   []FileResult

	// owned by the scanning goroutine
	localPaths []string
	localFiles []FileResult

	synchronous bool
	started     atomic.Bool
	stopCount   atomic.Int32
	stopOnce    sync.Once
	stopCh      chan struct{}
	wake        chan struct{}
	done        chan struct{}
}

// New creates an idle worker.
func New(opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Worker {
	opts.applyDefaults()
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &Worker{
		opts:       opts,
		extensions: exts,
		logger:     logging.OrNop(logger),
		metrics:    metrics,
		stopCh:     make(chan struct{}),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Start queues every mount root and begins scanning, in the background or,
// when synchronous, to completion before returning.
func (w *Worker) Start(mounts []paths.Mount, denyList []string, synchronous bool) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.enqueueRoots(mounts, denyList, synchronous)

	if synchronous {
		w.walkQueued()
		close(w.done)
		return
	}
	go w.run()
}

func (w *Worker) enqueueRoots(mounts []paths.Mount, denyList []string, synchronous bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mounts = append(w.mounts, mounts...)
	w.deny = newDenyList(denyList)
	for _, m := range mounts {
		w.queue.PushBack(dirItem{local: m.LocalPath, packagePath: m.PackageRoot})
	}
	w.synchronous = synchronous
}

// AddPath queues a local directory for scanning. The directory must lie in
// a known mount; a directory outside every mount registers a new mount when
// mount is given.
func (w *Worker) AddPath(localDir string, mount ...paths.Mount) bool {
	localDir = paths.NormalizeLocal(localDir)

	w.mu.Lock()
	w.mounts = append(w.mounts, mount...)
	m, ok := paths.FindMount(w.mounts, localDir)
	if ok {
		pkgPath, _ := m.PackagePathFor(localDir)
		w.queue.PushBack(dirItem{local: localDir, packagePath: pkgPath})
	}
	synchronous := w.synchronous && w.started.Load()
	w.mu.Unlock()

	if !ok {
		w.logger.Warn("Path is not inside any mount", zap.String("path", localDir))
		return false
	}
	if synchronous {
		w.walkQueued()
		return true
	}
	w.signal()
	return true
}

// SetDenyListFilters replaces the deny list; it applies from the next directory.
func (w *Worker) SetDenyListFilters(filters []string) {
	w.mu.Lock()
	w.deny = newDenyList(filters)
	w.mu.Unlock()
}

// PrioritizePath moves queued directories under path, given as a package
// path or a local path, to the front of the queue. Only a bounded window of
// the queue is reordered per call; the path is also remembered so that
// directories discovered under it later are scanned first.
func (w *Worker) PrioritizePath(path string) {
	path = paths.NormalizePackagePath(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.priorities = append(w.priorities, path)
	w.queue.PartitionFront(w.opts.PriorityWindow, func(item dirItem) bool {
		return paths.IsParentPath(path, item.packagePath) || paths.IsParentPath(path, item.local)
	})
}

func (w *Worker) isPriorityLocked(item dirItem) bool {
	for _, p := range w.priorities {
		if paths.IsParentPath(p, item.packagePath) || paths.IsParentPath(p, item.local) {
			return true
		}
	}
	return false
}

// GetAndTrimResults drains accumulated results. The bool reports whether
// scanning is still in progress.
func (w *Worker) GetAndTrimResults() (Results, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	res := Results{Paths: w.outPaths, Files: w.outFiles, Pending: w.queue.Len()}
	w.outPaths, w.outFiles = nil, nil
	return res, w.isScanningLocked()
}

func (w *Worker) isScanningLocked() bool {
	if w.stopCount.Load() > 0 {
		return false
	}
	return w.queue.Len() > 0 || w.busy
}

// IsIdle reports whether no directory is queued or being enumerated.
func (w *Worker) IsIdle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.isScanningLocked()
}

// Stop asks the worker to exit after the current directory.
func (w *Worker) Stop() {
	w.stopCount.Add(1)
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// EnsureCompletion stops the worker and waits for it to exit.
func (w *Worker) EnsureCompletion() {
	w.Stop()
	if w.started.Load() {
		<-w.done
	}
	// A stopped worker never restarts; release what was left unscanned
	w.mu.Lock()
	w.queue.Clear()
	w.mu.Unlock()
}

func (w *Worker) stopping() bool { return w.stopCount.Load() > 0 }

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) run() {
	defer close(w.done)
	timer := time.NewTimer(w.opts.IdlePoll)
	defer timer.Stop()

	for !w.stopping() {
		if w.tick() {
			continue
		}
		timer.Reset(w.opts.IdlePoll)
		select {
		case <-w.wake:
		case <-timer.C:
		case <-w.stopCh:
		}
	}
	w.mu.Lock()
	w.flushLocked()
	w.mu.Unlock()
}

// tick enumerates one directory. It returns false when the queue was empty.
func (w *Worker) tick() bool {
	w.mu.Lock()
	item, ok := w.queue.PopFront()
	deny := w.deny
	mounts := w.mounts
	w.busy = ok
	if !ok {
		w.flushLocked()
		w.mu.Unlock()
		return false
	}
	w.mu.Unlock()

	subdirs, files, complete := w.enumerate(item, deny, mounts)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if !complete {
		w.flushLocked()
		return true
	}
	w.localPaths = append(w.localPaths, item.packagePath)
	w.localFiles = append(w.localFiles, files...)

	// Push in reverse so the first subdirectory ends up at the front.
	// Subdirectories outside any priority go behind prioritized work.
	prioritized := 0
	for i := 0; i < w.queue.Len() && w.isPriorityLocked(w.queue.At(i)); i++ {
		prioritized++
	}
	for i := len(subdirs) - 1; i >= 0; i-- {
		if prioritized > 0 && !w.isPriorityLocked(subdirs[i]) {
			w.insertAfterLocked(prioritized, subdirs[i])
			continue
		}
		w.queue.PushFront(subdirs[i])
	}

	if len(w.localFiles) >= w.opts.BatchSize || w.queue.Len() == 0 {
		w.flushLocked()
	}
	w.metrics.RecordDirectories(1, len(files))
	return true
}

func (w *Worker) insertAfterLocked(n int, item dirItem) {
	head := make([]dirItem, 0, n)
	for i := 0; i < n; i++ {
		front, _ := w.queue.PopFront()
		head = append(head, front)
	}
	w.queue.PushFront(item)
	for i := len(head) - 1; i >= 0; i-- {
		w.queue.PushFront(head[i])
	}
}

func (w *Worker) flushLocked() {
	if len(w.localPaths) > 0 {
		w.outPaths = append(w.outPaths, w.localPaths...)
		w.localPaths = w.localPaths[:0]
	}
	if len(w.localFiles) > 0 {
		w.outFiles = append(w.outFiles, w.localFiles...)
		w.localFiles = nil
	}
}

// enumerate lists one directory. complete is false when a stop request
// interrupted it.
func (w *Worker) enumerate(item dirItem, deny denyList, mounts []paths.Mount) (subdirs []dirItem, files []FileResult, complete bool) {
	entries, err := os.ReadDir(item.local)
	if err != nil {
		w.logger.Debug("Skipping unreadable directory", zap.String("path", item.local), zap.Error(err))
		return nil, nil, true
	}

	for _, e := range entries {
		if w.stopping() {
			return nil, nil, false
		}
		name := e.Name()
		local := item.local + "/" + name
		if e.IsDir() {
			if child, ok := w.childDir(item, name, local, deny, mounts); ok {
				subdirs = append(subdirs, child)
			}
			continue
		}
		if f, ok := w.candidate(item, name, local, e); ok {
			files = append(files, f)
		}
	}
	return subdirs, files, true
}

func (w *Worker) childDir(parent dirItem, name, local string, deny denyList, mounts []paths.Mount) (dirItem, bool) {
	if paths.ContainsInvalidCharacters(name) {
		return dirItem{}, false
	}
	child := dirItem{local: local, packagePath: parent.packagePath + "/" + name}
	if deny.denies(child.local, child.packagePath) {
		return dirItem{}, false
	}
	// A nested mount is scanned under its own root.
	for _, m := range mounts {
		if m.LocalPath == local {
			return dirItem{}, false
		}
	}
	return child, true
}

func (w *Worker) candidate(parent dirItem, name, local string, e os.DirEntry) (FileResult, bool) {
	ext := filepath.Ext(name)
	if _, ok := w.extensions[strings.ToLower(ext)]; !ok {
		return FileResult{}, false
	}
	base := strings.TrimSuffix(name, ext)
	if base == "" || paths.ContainsInvalidCharacters(base) {
		return FileResult{}, false
	}
	info, err := e.Info()
	if err != nil || !info.Mode().IsRegular() {
		return FileResult{}, false
	}
	return FileResult{
		LocalPath:   local,
		PackageName: parent.packagePath + "/" + base,
		Extension:   ext,
		ModTime:     info.ModTime(),
	}, true
}
