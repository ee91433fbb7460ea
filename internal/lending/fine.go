// internal/lending/fine.go
package lending

import "time"

const day = 24 * time.Hour

// CalculateFine returns the penalty for a loan due at dueAt, evaluated
// at the given instant: one rate unit per whole 24-hour period past due.
// A partial day accrues nothing (truncation, never rounding). The same
// function serves in-progress loans (at = now, for display) and
// finalized ones (at = actual return time, for settlement).
func CalculateFine(dueAt, at time.Time, ratePerDay float64) float64 {
	if !at.After(dueAt) {
		return 0
	}
	lateDays := int(at.Sub(dueAt) / day)
	return float64(lateDays) * ratePerDay
}

// DaysLeft returns the whole days remaining until dueAt, floored at 0.
// Any nonzero remaining fraction of a day rounds up, so a loan due later
// today still counts one day left. Note the asymmetry with CalculateFine:
// days left use ceiling semantics, days late use floor semantics.
func DaysLeft(dueAt, now time.Time) int {
	remaining := dueAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / day)
	if remaining%day > 0 {
		days++
	}
	return days
}
