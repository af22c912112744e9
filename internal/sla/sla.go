// Package sla computes service-level deadlines for complaints. All functions
// are pure; callers supply the clock.
package sla

import "time"

// DefaultFallbackHours is used when a priority carries no SLA allotment.
const DefaultFallbackHours = 72

// Deadline returns the SLA deadline for a window of the given hours starting
// at start. Non-positive hours fall back to DefaultFallbackHours.
func Deadline(start time.Time, hours int) time.Time {
	if hours <= 0 {
		hours = DefaultFallbackHours
	}
	return start.Add(time.Duration(hours) * time.Hour)
}

// Breached reports whether an open complaint is past its deadline. Closed
// complaints are never breached.
func Breached(now time.Time, deadline *time.Time, closedAt *time.Time) bool {
	if deadline == nil || closedAt != nil {
		return false
	}
	return now.After(*deadline)
}

// Approaching reports whether an open complaint's deadline falls within the
// given warning window (exclusive of already-breached deadlines).
func Approaching(now time.Time, deadline *time.Time, closedAt *time.Time, window time.Duration) bool {
	if deadline == nil || closedAt != nil {
		return false
	}
	remaining := deadline.Sub(now)
	return remaining > 0 && remaining <= window
}

// PercentConsumed returns how much of the SLA window between start and
// deadline has elapsed at now, clamped to [0, 100].
func PercentConsumed(start, deadline, now time.Time) float64 {
	total := deadline.Sub(start)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(start)
	pct := float64(elapsed) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Remaining returns the time left until the deadline, never negative.
func Remaining(now, deadline time.Time) time.Duration {
	left := deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// MetWithin reports whether a closed complaint met its deadline.
func MetWithin(closedAt, deadline time.Time) bool {
	return !closedAt.After(deadline)
}
