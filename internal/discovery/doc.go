// Package discovery walks content directories in the background and reports
// candidate package files.
//
// A Worker owns a work queue of directories. Each step pops one directory,
// enumerates it, pushes new subdirectories onto the front of the queue (so
// siblings on disk are read together) and buffers candidate files locally.
// Local buffers move to the shared results once they reach a batch size or
// the queue runs dry, which bounds how often the shared lock is taken.
//
// Features:
//   - Deny list of path prefixes or doublestar patterns, matched against
//     local paths and package paths
//   - PrioritizePath to scan a subtree next
//   - AddPath and SetDenyListFilters while a scan is running
//   - Synchronous mode: a parallel fastwalk of every root, run inline
//   - Cooperative Stop between directories
//
// Enumeration errors are swallowed: an unreadable directory is simply not
// descended.
//
// Example Usage:
//
//	w := discovery.New(discovery.Options{Extensions: []string{".asset"}}, logger, metrics)
//	w.Start(mounts, denyList, false)
//	for {
//	    res, scanning := w.GetAndTrimResults()
//	    handle(res.Files)
//	    if !scanning {
//	        break
//	    }
//	}
//	w.EnsureCompletion()
package discovery
