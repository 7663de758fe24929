// Package metrics implements the dirbs.* counters/histograms named in
// spec.md §4.5 and §7, backed by prometheus/client_golang, matching the
// teacher's NewMetricsWithRegistry pattern
// (pkg/datastorage/metrics/metrics_test.go) so tests can use an isolated
// registry instead of the global default one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/histogram the core pipeline emits. Names
// follow the statsd-style dotted convention from spec.md, translated to
// Prometheus label dimensions rather than name interpolation where that
// keeps cardinality bounded (e.g. "reason" and "operator_id" are labels,
// not name fragments).
type Metrics struct {
	ValidationFailures  *prometheus.CounterVec // dirbs.import.<type>[.operator.<op>].validation_failures.<reason>
	ImportRowsAdded     *prometheus.CounterVec
	ImportRowsRemoved   *prometheus.CounterVec
	ImportRowsUpdated   *prometheus.CounterVec
	ClassificationSkips *prometheus.CounterVec // dirbs.classify.safety_skipped
	ListgenRowsWritten  *prometheus.CounterVec
	ExceptionsUnknown   *prometheus.CounterVec // dirbs.exceptions.<component>.unknown
	StageDuration       *prometheus.HistogramVec
}

// NewMetricsWithRegistry constructs Metrics and registers it against the
// supplied registry. namespace/subsystem follow Prometheus convention
// (e.g. namespace="dirbs", subsystem="").
func NewMetricsWithRegistry(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "import_validation_failures_total",
			Help: "Count of rows/imports rejected by the threshold guard, by list type, operator and reason.",
		}, []string{"list_type", "operator_id", "reason"}),
		ImportRowsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "import_rows_added_total",
			Help: "Historic rows opened by the delta applier, by list type.",
		}, []string{"list_type"}),
		ImportRowsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "import_rows_removed_total",
			Help: "Historic rows closed by the delta applier, by list type.",
		}, []string{"list_type"}),
		ImportRowsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "import_rows_updated_total",
			Help: "Historic rows closed-and-reopened by the delta applier, by list type.",
		}, []string{"list_type"}),
		ClassificationSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "classify_safety_skipped_total",
			Help: "Conditions skipped for exceeding max_allowed_matching_ratio, by condition label.",
		}, []string{"condition"}),
		ListgenRowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "listgen_rows_written_total",
			Help: "Output rows written per operator and list type.",
		}, []string{"operator_id", "list_type"}),
		ExceptionsUnknown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "exceptions_unknown_total",
			Help: "Uncaught errors, by component.",
		}, []string{"component"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "stage_duration_seconds",
			Help:    "Wall-clock duration of a pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"component", "stage"}),
	}

	reg.MustRegister(
		m.ValidationFailures, m.ImportRowsAdded, m.ImportRowsRemoved, m.ImportRowsUpdated,
		m.ClassificationSkips, m.ListgenRowsWritten, m.ExceptionsUnknown, m.StageDuration,
	)
	return m
}

// New registers Metrics against the global default Prometheus registry.
func New(namespace, subsystem string) *Metrics {
	return NewMetricsWithRegistry(namespace, subsystem, prometheus.DefaultRegisterer)
}
