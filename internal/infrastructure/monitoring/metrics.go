package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assetregistry"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Discovery metrics
	DirectoriesScanned prometheus.Counter
	FilesDiscovered    prometheus.Counter

	// Gather metrics
	CacheLookups  *prometheus.CounterVec
	FilesParsed   prometheus.Counter
	ParseFailures *prometheus.CounterVec
	ParseRetries  prometheus.Counter
	PendingFiles  prometheus.Gauge
	CacheWrites   prometheus.Counter
	CacheDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryAssets      prometheus.Gauge
	RegistryNodes       prometheus.Gauge
	RegistryPackageData prometheus.Gauge
}

// NewMetrics creates metrics registered against reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DirectoriesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_directories_total",
			Help:      "Total number of directories enumerated",
		}),
		FilesDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_files_total",
			Help:      "Total number of candidate package files discovered",
		}),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gather_cache_lookups_total",
				Help:      "Discovery cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		FilesParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gather_files_parsed_total",
			Help:      "Total number of package headers parsed successfully",
		}),
		ParseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gather_parse_failures_total",
				Help:      "Package header parse failures by result",
			},
			[]string{"result"},
		),
		ParseRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gather_parse_retries_total",
			Help:      "Files requeued after a missing custom version",
		}),
		PendingFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gather_pending_files",
			Help:      "Files waiting to be gathered",
		}),
		CacheWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gather_cache_writes_total",
			Help:      "Total number of discovery cache files written",
		}),
		CacheDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gather_cache_duration_seconds",
				Help:      "Discovery cache load and save duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),

		RegistryAssets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_assets",
			Help:      "Number of assets held by the registry state",
		}),
		RegistryNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_depends_nodes",
			Help:      "Number of dependency graph nodes",
		}),
		RegistryPackageData: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_package_data",
			Help:      "Number of package data entries",
		}),
	}
}

// RecordDirectories records enumerated directories and their candidate files
func (m *Metrics) RecordDirectories(dirs, files int) {
	if m == nil {
		return
	}
	m.DirectoriesScanned.Add(float64(dirs))
	m.FilesDiscovered.Add(float64(files))
}

// RecordCacheLookup records a discovery cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordParse records a successful header parse
func (m *Metrics) RecordParse() {
	if m == nil {
		return
	}
	m.FilesParsed.Inc()
}

// RecordParseFailure records a failed header parse by result name
func (m *Metrics) RecordParseFailure(result string) {
	if m == nil {
		return
	}
	m.ParseFailures.WithLabelValues(result).Inc()
}

// RecordRetry records a requeued file
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.ParseRetries.Inc()
}

// SetPendingFiles sets the number of files waiting to be gathered
func (m *Metrics) SetPendingFiles(count int) {
	if m == nil {
		return
	}
	m.PendingFiles.Set(float64(count))
}

// RecordCacheWrite records a written cache file
func (m *Metrics) RecordCacheWrite() {
	if m == nil {
		return
	}
	m.CacheWrites.Inc()
}

// Timer observes an operation's duration; the zero value is a no-op
type Timer struct {
	timer *prometheus.Timer
}

// ObserveDuration records the elapsed time
func (t Timer) ObserveDuration() {
	if t.timer != nil {
		t.timer.ObserveDuration()
	}
}

// StartCacheSave starts timing a cache save
func (m *Metrics) StartCacheSave() Timer {
	return m.startCache("save")
}

// StartCacheLoad starts timing a cache load
func (m *Metrics) StartCacheLoad() Timer {
	return m.startCache("load")
}

func (m *Metrics) startCache(op string) Timer {
	if m == nil {
		return Timer{}
	}
	return Timer{timer: prometheus.NewTimer(m.CacheDuration.WithLabelValues(op))}
}

// SetRegistrySize sets the registry state gauges
func (m *Metrics) SetRegistrySize(assets, nodes, packageData int) {
	if m == nil {
		return
	}
	m.RegistryAssets.Set(float64(assets))
	m.RegistryNodes.Set(float64(nodes))
	m.RegistryPackageData.Set(float64(packageData))
}
