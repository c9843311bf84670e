package auction

import "time"

// The recurring auction week opens Monday 09:00 UTC and closes the following
// Sunday 21:00 UTC. Everything is computed in UTC; callers in any time zone
// get the same boundaries for the same instant.
const (
	openWeekday = time.Monday
	openHourUTC = 9

	windowDuration = 6*24*time.Hour + 12*time.Hour
	weekDuration   = 7 * 24 * time.Hour
)

// Window describes the auction window containing (or most recently
// preceding) a reference instant, plus the following week's boundaries.
type Window struct {
	CurrentStart time.Time
	CurrentEnd   time.Time
	NextStart    time.Time
	NextEnd      time.Time
	IsLive       bool
}

// ComputeWindow is pure and total: identical UTC instants always yield
// identical boundaries, and NextStart is exactly one week after CurrentStart.
func ComputeWindow(reference time.Time) Window {
	ref := reference.UTC()

	daysSinceOpen := (int(ref.Weekday()) - int(openWeekday) + 7) % 7
	start := time.Date(ref.Year(), ref.Month(), ref.Day(), openHourUTC, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceOpen)
	if ref.Before(start) {
		start = start.Add(-weekDuration)
	}
	end := start.Add(windowDuration)

	return Window{
		CurrentStart: start,
		CurrentEnd:   end,
		NextStart:    start.Add(weekDuration),
		NextEnd:      end.Add(weekDuration),
		IsLive:       !ref.Before(start) && !ref.After(end),
	}
}
