package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	passes        *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	coalesced     prometheus.Counter
	deferred      prometheus.Counter
	staleDiscards *prometheus.CounterVec
	ringMutations *prometheus.CounterVec
	turnCommands  *prometheus.CounterVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector. A nil registerer
// uses prometheus.DefaultRegisterer; an empty namespace uses "initiative".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "initiative"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.passes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "passes_total",
			Help:      "Reconciliation passes by lane and result (ok, error, stale).",
		}, []string{"lane", "result"})

		p.passDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"lane"})

		p.coalesced = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "coalesced_commands_total",
			Help:      "Commands folded into an already pending pass.",
		})

		p.deferred = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "deferred_reruns_total",
			Help:      "Ticks deferred because a pass was already in flight.",
		})

		p.staleDiscards = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "stale_discards_total",
			Help:      "Superseded writes discarded by lane.",
		}, []string{"lane"})

		p.ringMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "rings",
			Name:      "mutations_total",
			Help:      "Overlay objects written by kind of mutation (create, update, delete).",
		}, []string{"op"})

		p.turnCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "turn",
			Name:      "commands_total",
			Help:      "Turn commands by command and result.",
		}, []string{"command", "result"})

		p.reg.MustRegister(
			p.passes,
			p.passDuration,
			p.coalesced,
			p.deferred,
			p.staleDiscards,
			p.ringMutations,
			p.turnCommands,
		)
	})
}

// RecordPass records one reconciliation pass.
func (p *PrometheusCollector) RecordPass(lane, result string, seconds float64) {
	p.ensureRegistered()
	p.passes.WithLabelValues(lane, result).Inc()
	p.passDuration.WithLabelValues(lane).Observe(seconds)
}

// RecordCoalesced records a coalesced command.
func (p *PrometheusCollector) RecordCoalesced() {
	p.ensureRegistered()
	p.coalesced.Inc()
}

// RecordDeferred records a deferred tick.
func (p *PrometheusCollector) RecordDeferred() {
	p.ensureRegistered()
	p.deferred.Inc()
}

// RecordStaleDiscard records a discarded stale write.
func (p *PrometheusCollector) RecordStaleDiscard(lane string) {
	p.ensureRegistered()
	p.staleDiscards.WithLabelValues(lane).Inc()
}

// RecordRingMutations records overlay writes. Zero counts are skipped.
func (p *PrometheusCollector) RecordRingMutations(created, updated, deleted int) {
	p.ensureRegistered()
	for op, n := range map[string]int{"create": created, "update": updated, "delete": deleted} {
		if n > 0 {
			p.ringMutations.WithLabelValues(op).Add(float64(n))
		}
	}
}

// RecordTurnCommand records a turn command outcome.
func (p *PrometheusCollector) RecordTurnCommand(command, result string) {
	p.ensureRegistered()
	p.turnCommands.WithLabelValues(command, result).Inc()
}
