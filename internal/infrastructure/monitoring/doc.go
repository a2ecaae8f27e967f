/*
Package monitoring provides Prometheus metrics for discovery, gathering and
the registry state.

# Overview

Metrics are registered against a caller supplied prometheus.Registerer, so
tests and embedding processes can use private registries. Every record
method is safe on a nil *Metrics, which lets components run unmetered.

# Metrics

- Discovery: directories scanned, files discovered
- Gathering: cache hits and misses, parsed files, parse failures by result,
  retries, pending files, cache writes and cache save/load duration
- Registry: assets, dependency nodes and package data held by the state

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	metrics.RecordCacheLookup(true)
	timer := metrics.StartCacheSave()
	// ... write the cache ...
	timer.ObserveDuration()
*/
package monitoring
