package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for every engine component.
// All methods are safe on a nil receiver so components can run unmetered.
type Metrics struct {
	TransitionsTotal  *prometheus.CounterVec
	AllocationsTotal  *prometheus.CounterVec
	AllocationLatency prometheus.Histogram
	ScoresTotal       *prometheus.CounterVec
	ScopeResolutions  *prometheus.CounterVec
	ScopeSize         prometheus.Histogram
	HistoryAppends    *prometheus.CounterVec
	OutboxPublished   prometheus.Counter
	OutboxFailures    prometheus.Counter
	OutboxBreakerOpen prometheus.Gauge
	StorageRetries    prometheus.Counter
	RuleReloads       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_workflow_transitions_total",
			Help: "Workflow transition attempts by record kind and outcome",
		}, []string{"kind", "outcome"}),
		AllocationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_sequence_allocations_total",
			Help: "Sequence allocations by outcome",
		}, []string{"outcome"}),
		AllocationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldops_sequence_allocation_duration_seconds",
			Help:    "Time spent allocating a sequence value",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ScoresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_scoring_submissions_total",
			Help: "Submitted risk scores by classification",
		}, []string{"classification"}),
		ScopeResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_scope_resolutions_total",
			Help: "Authority scope resolutions by source (cache, computed, error)",
		}, []string{"source"}),
		ScopeSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldops_scope_size_nodes",
			Help:    "Number of jurisdictions in a resolved authority scope",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		HistoryAppends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_history_appends_total",
			Help: "History entries appended by action",
		}, []string{"action"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldops_outbox_published_total",
			Help: "Outbox rows published to Kafka",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldops_outbox_failures_total",
			Help: "Outbox relay batches that failed to publish",
		}),
		OutboxBreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "fieldops_outbox_breaker_open",
			Help: "1 while the outbox relay circuit breaker is open",
		}),
		StorageRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldops_storage_conflict_retries_total",
			Help: "Units of work retried after a storage conflict",
		}),
		RuleReloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldops_rule_reloads_total",
			Help: "Rule file reloads by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncTransition(kind, outcome string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveAllocation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.AllocationsTotal.WithLabelValues(outcome).Inc()
	m.AllocationLatency.Observe(seconds)
}

func (m *Metrics) IncScore(classification string) {
	if m == nil {
		return
	}
	m.ScoresTotal.WithLabelValues(classification).Inc()
}

func (m *Metrics) ObserveScope(source string, size int) {
	if m == nil {
		return
	}
	m.ScopeResolutions.WithLabelValues(source).Inc()
	if size > 0 {
		m.ScopeSize.Observe(float64(size))
	}
}

func (m *Metrics) IncHistoryAppend(action string) {
	if m == nil {
		return
	}
	m.HistoryAppends.WithLabelValues(action).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncOutboxFailure() {
	if m == nil {
		return
	}
	m.OutboxFailures.Inc()
}

func (m *Metrics) SetOutboxBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.OutboxBreakerOpen.Set(1)
		return
	}
	m.OutboxBreakerOpen.Set(0)
}

func (m *Metrics) IncStorageRetry() {
	if m == nil {
		return
	}
	m.StorageRetries.Inc()
}

func (m *Metrics) IncRuleReload(outcome string) {
	if m == nil {
		return
	}
	m.RuleReloads.WithLabelValues(outcome).Inc()
}
