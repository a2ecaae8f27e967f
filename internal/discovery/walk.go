package discovery

import (
	"cmp"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

var errStopped = errors.New("discovery stopped")

// walkQueued drains the queue and walks every queued directory to
// completion with a parallel fastwalk.
func (w *Worker) walkQueued() {
	w.mu.Lock()
	var roots []dirItem
	for {
		item, ok := w.queue.PopFront()
		if !ok {
			break
		}
		roots = append(roots, item)
	}
	deny, mounts := w.deny, w.mounts
	w.busy = len(roots) > 0
	w.mu.Unlock()

	var (
		mu       sync.Mutex
		dirs     []string
		files    []FileResult
		conf     = fastwalk.Config{Follow: false}
		rootSet  = make(map[string]bool, len(mounts))
		complete = true
	)
	for _, m := range mounts {
		rootSet[m.LocalPath] = true
	}

	for _, root := range roots {
		if w.stopping() {
			complete = false
			break
		}
		if info, err := os.Stat(root.local); err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, root.packagePath)
		err := fastwalk.Walk(&conf, root.local, func(p string, d os.DirEntry, err error) error {
			if err != nil || d == nil {
				return nil
			}
			if w.stopping() {
				return errStopped
			}
			p = filepath.ToSlash(p)
			parent := dirItem{local: filepath.ToSlash(filepath.Dir(p))}
			parent.packagePath = packagePathUnder(root, parent.local)

			if d.IsDir() {
				if p == root.local {
					return nil
				}
				if rootSet[p] {
					return fastwalk.SkipDir
				}
				child, ok := w.childDir(parent, d.Name(), p, deny, nil)
				if !ok {
					return fastwalk.SkipDir
				}
				mu.Lock()
				dirs = append(dirs, child.packagePath)
				mu.Unlock()
				return nil
			}

			if f, ok := w.candidate(parent, d.Name(), p, d); ok {
				mu.Lock()
				files = append(files, f)
				mu.Unlock()
			}
			return nil
		})
		if errors.Is(err, errStopped) {
			complete = false
		} else if err != nil {
			w.logger.Debug("Walk failed", zap.String("path", root.local), zap.Error(err))
		}
	}

	slices.Sort(dirs)
	slices.SortFunc(files, func(a, b FileResult) int { return cmp.Compare(a.LocalPath, b.LocalPath) })
	w.metrics.RecordDirectories(len(dirs), len(files))

	w.mu.Lock()
	w.outPaths = append(w.outPaths, dirs...)
	w.outFiles = append(w.outFiles, files...)
	w.busy = false
	w.mu.Unlock()

	if !complete {
		w.logger.Debug("Synchronous walk stopped early")
	}
}

// packagePathUnder maps a local directory below root to its package path.
func packagePathUnder(root dirItem, local string) string {
	rel := strings.TrimPrefix(strings.TrimPrefix(local, root.local), "/")
	if rel == "" || rel == "." {
		return root.packagePath
	}
	return root.packagePath + "/" + rel
}
