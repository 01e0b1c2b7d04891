package bookzip

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds low-cardinality Prometheus metrics for archive readers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	archivesOpen prometheus.Gauge
	entriesRead  prometheus.Counter
	entryBytes   prometheus.Counter
	readFailures *prometheus.CounterVec
}

// NewMetrics constructs and registers the reader metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		archivesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookzip",
			Name:      "archives_open",
			Help:      "Current number of open archive handles.",
		}),
		entriesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookzip",
			Name:      "entries_read_total",
			Help:      "Total number of entries read and verified.",
		}),
		entryBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookzip",
			Name:      "entry_bytes_total",
			Help:      "Total decompressed bytes returned to callers.",
		}),
		readFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookzip",
			Name:      "read_failures_total",
			Help:      "Total number of failed entry reads by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.archivesOpen,
		m.entriesRead,
		m.entryBytes,
		m.readFailures,
	)
	return m
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.archivesOpen.Inc()
}

func (m *Metrics) closed() {
	if m == nil {
		return
	}
	m.archivesOpen.Dec()
}

func (m *Metrics) read(n int) {
	if m == nil {
		return
	}
	m.entriesRead.Inc()
	m.entryBytes.Add(float64(n))
}

func (m *Metrics) failed(reason string) {
	if m == nil {
		return
	}
	m.readFailures.WithLabelValues(reason).Inc()
}
