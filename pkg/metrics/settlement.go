package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts settlement outcomes and promoted listings so a
// dashboard can spot a week where nothing charged.
type SettlementMetrics struct {
	outcomes   *prometheus.CounterVec
	promotions *prometheus.CounterVec
	charged    prometheus.Counter
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_outcomes_total",
		Help: "Settlement outcomes by result and reason.",
	}, []string{"outcome", "reason"})
	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_transitions_total",
		Help: "Listing lifecycle transitions applied by the scheduler.",
	}, []string{"transition"})
	charged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_charged_pence_total",
		Help: "Total pence charged to winning bidders.",
	})
	reg.MustRegister(outcomes, promotions, charged)
	return &SettlementMetrics{
		outcomes:   outcomes,
		promotions: promotions,
		charged:    charged,
	}
}

// IncOutcome counts one settlement outcome.
func (s *SettlementMetrics) IncOutcome(outcome, reason string) {
	if s == nil || s.outcomes == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	s.outcomes.WithLabelValues(normalizeLabel(outcome), reason).Inc()
}

// IncTransition counts one applied lifecycle transition.
func (s *SettlementMetrics) IncTransition(transition string) {
	if s == nil || s.promotions == nil {
		return
	}
	s.promotions.WithLabelValues(normalizeLabel(transition)).Inc()
}

// AddChargedPence accumulates the charged total.
func (s *SettlementMetrics) AddChargedPence(amount int64) {
	if s == nil || s.charged == nil || amount <= 0 {
		return
	}
	s.charged.Add(float64(amount))
}
