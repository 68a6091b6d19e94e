package contrast

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricEvaluationsTotal = "contrast_evaluations_total"
	MetricRatio            = "contrast_ratio"
	MetricReportSize       = "contrast_report_size"
)

// Metrics contains Prometheus metrics for contrast evaluation.
// All operations are thread-safe, and a nil *Metrics records nothing.
type Metrics struct {
	evaluationsTotal *prometheus.CounterVec
	ratio            *prometheus.HistogramVec
	reportSize       prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEvaluationsTotal,
				Help: "Total number of contrast evaluations by level, text classification and outcome",
			},
			[]string{"level", "classification", "outcome"},
		),
		ratio: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: MetricRatio,
				Help: "Measured contrast ratios of parseable pairs",
				// WCAG thresholds sit on bucket edges
				Buckets: []float64{1.5, 3, 4.5, 7, 10, 15, 21},
			},
			[]string{"level"},
		),
		reportSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricReportSize,
				Help:    "Number of entries per evaluated report",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7), // 1 to 4096
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveResult records a single evaluation.
func (m *Metrics) ObserveResult(r Result) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(string(r.Level), string(r.Classification), string(r.Outcome)).Inc()
	if r.Evaluated() {
		m.ratio.WithLabelValues(string(r.Level)).Observe(r.Ratio)
	}
}

// ObserveReport records the size of an evaluated report.
func (m *Metrics) ObserveReport(r Report) {
	if m == nil {
		return
	}
	m.reportSize.Observe(float64(r.Total))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.evaluationsTotal,
		m.ratio,
		m.reportSize,
	}
}
