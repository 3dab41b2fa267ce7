package watcher

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks watcher activity. A nil *Metrics records nothing.
type Metrics struct {
	mu sync.RWMutex

	snapshot MetricsSnapshot

	// Prometheus collectors
	deliveredTotal *prometheus.CounterVec
	filteredTotal  *prometheus.CounterVec
	batchesTotal   *prometheus.CounterVec
	logPointsTotal *prometheus.CounterVec
	activeSessions prometheus.Gauge
	historySize    prometheus.Histogram

	registerer prometheus.Registerer
	registered bool
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	Delivered      uint64    `json:"delivered"`
	Filtered       uint64    `json:"filtered"`
	HistoryBatches uint64    `json:"history_batches"`
	LiveBatches    uint64    `json:"live_batches"`
	LogPoints      uint64    `json:"log_points"`
	ActiveSessions int64     `json:"active_sessions"`
	CollectedAt    time.Time `json:"collected_at"`
}

func newWatcherCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resourcewatch",
			Subsystem: "watcher",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewMetrics creates the watcher collectors. A nil registerer means the
// default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		registerer:     registerer,
		deliveredTotal: newWatcherCounterVec("resources_delivered_total", "Console message resources handed to onAvailable", []string{"kind", "phase"}),
		filteredTotal:  newWatcherCounterVec("resources_filtered_total", "History messages discarded because they predate the target", []string{"kind"}),
		batchesTotal:   newWatcherCounterVec("batches_total", "Batches handed to onAvailable", []string{"kind", "phase"}),
		logPointsTotal: newWatcherCounterVec("log_points_total", "Messages synthesized by log points", []string{"kind"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "resourcewatch",
			Subsystem: "watcher",
			Name:      "active_sessions",
			Help:      "Watch sessions currently established",
		}),
		historySize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "resourcewatch",
			Subsystem: "watcher",
			Name:      "history_batch_size",
			Help:      "Number of resources in the history batch of a session",
			Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *Metrics) Register() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.deliveredTotal,
		m.filteredTotal,
		m.batchesTotal,
		m.logPointsTotal,
		m.activeSessions,
		m.historySize,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordBatch records one onAvailable call.
func (m *Metrics) RecordBatch(kind string, phase Phase, size int) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(kind, string(phase)).Inc()
	m.deliveredTotal.WithLabelValues(kind, string(phase)).Add(float64(size))
	if phase == PhaseHistory {
		m.historySize.Observe(float64(size))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Delivered += uint64(size)
	if phase == PhaseHistory {
		m.snapshot.HistoryBatches++
	} else {
		m.snapshot.LiveBatches++
	}
}

// RecordFiltered records stale history messages dropped for a session.
func (m *Metrics) RecordFiltered(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.filteredTotal.WithLabelValues(kind).Add(float64(count))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Filtered += uint64(count)
}

// RecordLogPoint records a synthesized message.
func (m *Metrics) RecordLogPoint(kind string) {
	if m == nil {
		return
	}
	m.logPointsTotal.WithLabelValues(kind).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.LogPoints++
}

// SessionStarted and SessionEnded track the active session gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.ActiveSessions++
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot.ActiveSessions > 0 {
		m.snapshot.ActiveSessions--
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{CollectedAt: time.Now()}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.CollectedAt = time.Now()
	return s
}
