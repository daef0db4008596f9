package core

// Rules are the computation parameters for worked-duration math. They are
// passed explicitly into every call so no component reads shared state.
type Rules struct {
	// RoundingMinutes is the granularity worked durations are snapped to.
	// Values of 1 or less leave durations unchanged.
	RoundingMinutes int
	// FixedBreakMinutes is deducted from punch-derived shifts, which carry
	// no explicit break window.
	FixedBreakMinutes int
}

// DefaultRules mirrors the configuration defaults.
func DefaultRules() Rules {
	return Rules{RoundingMinutes: 1, FixedBreakMinutes: 60}
}

// NormalizeMonotonic corrects a (start, break start, break end, end) sequence
// of minutes-since-midnight values for shifts that cross midnight: whenever a
// value is earlier than the one already accepted before it, one full day is
// added. At most one rollover is applied per adjacent pair, so pathological
// input (a step backwards of more than a day) can still come out decreasing;
// callers surface the resulting negative durations rather than hiding them.
func NormalizeMonotonic(start, breakStart, breakEnd, end int) [4]int {
	out := [4]int{start, breakStart, breakEnd, end}
	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			out[i] += minutesPerDay
		}
	}
	return out
}

// ManualDuration computes worked minutes for a manual-entry record from a
// normalized sequence: (break start - start) + (end - break end). The result
// is returned unclamped; an inconsistent break window yields a negative value
// the caller must reject.
func ManualDuration(n [4]int) int {
	return (n[1] - n[0]) + (n[3] - n[2])
}

// PunchElapsed returns wall-clock minutes from start to end, treating an end
// earlier than the start as ending on the following day.
func PunchElapsed(start, end int) int {
	if end < start {
		end += minutesPerDay
	}
	return end - start
}

// PunchDuration computes worked minutes for a punch-derived record: elapsed
// time minus the fixed break, clamped at zero.
func PunchDuration(elapsed, fixedBreakMinutes int) int {
	worked := elapsed - fixedBreakMinutes
	if worked < 0 {
		worked = 0
	}
	return worked
}

// RoundDuration snaps total minutes to the nearest multiple of step,
// rounding halves up. A step of 1 or less returns the total unchanged.
// Totals are expected to be non-negative; negative manual results are
// rejected before rounding.
func RoundDuration(total, step int) int {
	if step <= 1 {
		return total
	}
	return (total + step/2) / step * step
}
