package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("auction-lifecycle")
	m.IncSuccess("auction-lifecycle")
	m.IncFailure("auction-lifecycle")
	m.ObserveDuration("auction-lifecycle", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("auction-lifecycle")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("auction-lifecycle")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("x")
	m.IncFailure("x")
	m.ObserveDuration("x", time.Second)

	empty := NewCronJobMetrics(nil)
	empty.IncSuccess("x")
}

func TestSettlementMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.IncOutcome("charged", "")
	m.IncOutcome("skipped", "no-bids")
	m.IncTransition("live_to_completed")
	m.AddChargedPence(758000)

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("charged", "none")); got != 1 {
		t.Fatalf("expected 1 charged outcome, got %v", got)
	}
	if got := testutil.ToFloat64(m.charged); got != 758000 {
		t.Fatalf("expected 758000 pence charged, got %v", got)
	}
}
