package auction

import (
	"testing"
	"time"
)

func TestComputeWindowMidWeekIsLive(t *testing.T) {
	// Wednesday 14:30 UTC
	ref := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)
	w := ComputeWindow(ref)

	wantStart := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)
	if !w.CurrentStart.Equal(wantStart) {
		t.Fatalf("unexpected start %v", w.CurrentStart)
	}
	if !w.CurrentEnd.Equal(wantEnd) {
		t.Fatalf("unexpected end %v", w.CurrentEnd)
	}
	if !w.IsLive {
		t.Fatal("expected mid-week reference to be live")
	}
}

func TestComputeWindowGapBetweenCloseAndOpen(t *testing.T) {
	// Monday 03:00 UTC, after Sunday close but before Monday open.
	ref := time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC)
	w := ComputeWindow(ref)

	wantStart := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	if !w.CurrentStart.Equal(wantStart) {
		t.Fatalf("expected previous week's start, got %v", w.CurrentStart)
	}
	if w.IsLive {
		t.Fatal("expected the gap before Monday open to not be live")
	}
}

func TestComputeWindowBoundariesInclusive(t *testing.T) {
	open := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	close := time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC)

	if w := ComputeWindow(open); !w.IsLive || !w.CurrentStart.Equal(open) {
		t.Fatal("expected the opening instant to be live in its own window")
	}
	if w := ComputeWindow(close); !w.IsLive {
		t.Fatal("expected the closing instant to be live (inclusive end)")
	}
	if w := ComputeWindow(close.Add(time.Second)); w.IsLive {
		t.Fatal("expected one second after close to not be live")
	}
}

func TestComputeWindowDeterministicAcrossZones(t *testing.T) {
	utc := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("AEST", 10*3600))

	a := ComputeWindow(utc)
	b := ComputeWindow(offset)
	if !a.CurrentStart.Equal(b.CurrentStart) || !a.CurrentEnd.Equal(b.CurrentEnd) {
		t.Fatal("expected identical boundaries regardless of caller zone")
	}
	if a != ComputeWindow(utc) {
		t.Fatal("expected identical inputs to yield identical windows")
	}
}

func TestComputeWindowNextIsOneWeekLater(t *testing.T) {
	refs := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC),
		time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC),
	}
	for _, ref := range refs {
		w := ComputeWindow(ref)
		if got := w.NextStart.Sub(w.CurrentStart); got != weekDuration {
			t.Fatalf("ref %v: expected next start one week later, got %v", ref, got)
		}
		if got := w.NextEnd.Sub(w.CurrentEnd); got != weekDuration {
			t.Fatalf("ref %v: expected next end one week later, got %v", ref, got)
		}
		if w.CurrentStart.Weekday() != time.Monday || w.CurrentStart.Hour() != 9 {
			t.Fatalf("ref %v: window must open Monday 09:00 UTC, got %v", ref, w.CurrentStart)
		}
	}
}
