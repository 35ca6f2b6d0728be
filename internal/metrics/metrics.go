// Package metrics exposes board counters in Prometheus format. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classreviews"

type Metrics struct {
	Registry *prometheus.Registry

	submissions *prometheus.CounterVec
	reactions   *prometheus.CounterVec
	quota       prometheus.Counter
	failures    *prometheus.CounterVec
	stale       prometheus.Counter
	reviews     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Review submissions by result (accepted or the violated rule).",
		}, []string{"result"}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaction_toggles_total",
			Help:      "Applied reaction toggles by outcome.",
		}, []string{"outcome"}),
		quota: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaction_quota_rejections_total",
			Help:      "Reactions refused because the user reached the reaction cap.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed calls to the persistence or blob collaborators.",
		}, []string{"op"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_refreshes_total",
			Help:      "Refresh results discarded because a newer write landed first.",
		}),
		reviews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reviews",
			Help:      "Reviews currently held in memory.",
		}),
	}
	reg.MustRegister(
		m.submissions, m.reactions, m.quota, m.failures, m.stale, m.reviews,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) Submission(result string) {
	if m != nil {
		m.submissions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Reaction(outcome string) {
	if m != nil {
		m.reactions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) QuotaRejected() {
	if m != nil {
		m.quota.Inc()
	}
}

func (m *Metrics) Failure(op string) {
	if m != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) StaleRefresh() {
	if m != nil {
		m.stale.Inc()
	}
}

func (m *Metrics) SetReviews(n int) {
	if m != nil {
		m.reviews.Set(float64(n))
	}
}
