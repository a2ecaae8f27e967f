// Package gather turns discovered package files into asset records.
//
// A Gatherer owns a discovery.Worker and a goroutine that repeatedly:
//
//  1. drains discovered files into its pending queue
//  2. pops a bounded batch of pending files
//  3. looks each file up in the discovery cache; a hit needs the same
//     modification time, the same extension and matching dependency data
//  4. parses the misses in parallel with pkgfile, blocking until the batch
//     is done
//  5. caches fully loaded results and appends everything to the result queue
//
// The cache is written to disk periodically (rate limited), when discovery
// completes and at shutdown. A file that fails with a missing custom version
// is retried only in interactive, asynchronous runs before initial plugins
// finish loading; every other failure skips the file.
//
// Example Usage:
//
//	g, err := gather.New(opts, logger, metrics)
//	g.Start(ctx)
//	defer g.EnsureCompletion()
//	for {
//	    res, gathering := g.GetAndTrimResults()
//	    ingest(res)
//	    if !gathering {
//	        break
//	    }
//	}
package gather
