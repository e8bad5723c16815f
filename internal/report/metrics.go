package report

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sealcheck.io/sealcheck/internal/domain"
)

// Metrics provides observability for long verification loops. A one-shot
// CI run ignores this; soak runs scrape it.
type Metrics struct {
	registry *prometheus.Registry

	// Classifications counts verdicts by group and classification.
	Classifications *prometheus.CounterVec

	// CaseDuration observes wall time per test case, by operation.
	CaseDuration *prometheus.HistogramVec

	// GroupsExcluded counts groups that never entered the matrix.
	GroupsExcluded prometheus.Counter
}

// NewMetrics creates a Metrics instance on its own registry, so parallel
// tests never fight over the default registerer.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sealcheck_case_classifications_total",
			Help: "Test case verdicts by group and classification",
		}, []string{"group", "classification"}),
		CaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sealcheck_case_duration_seconds",
			Help:    "Wall time per test case by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		GroupsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sealcheck_groups_excluded_total",
			Help: "Groups excluded from the matrix (Failed or never Ready)",
		}),
	}
	reg.MustRegister(m.Classifications, m.CaseDuration, m.GroupsExcluded)
	return m
}

// ObserveCase records one classified case.
func (m *Metrics) ObserveCase(group string, op domain.Operation, cl domain.Classification, d time.Duration) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(group, string(cl)).Inc()
	m.CaseDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// ObserveExcluded records one excluded group.
func (m *Metrics) ObserveExcluded() {
	if m == nil {
		return
	}
	m.GroupsExcluded.Inc()
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
