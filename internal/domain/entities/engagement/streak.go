package engagement

import "time"

// StreakState tracks consecutive-day completion of an activity.
type StreakState struct {
	CurrentStreak      int    `json:"currentStreak"`
	LastCompletionDate string `json:"lastCompletionDate"`
	LongestStreak      int    `json:"longestStreak"`
}

// Apply folds a "completed today" event into the state. Same-day completions
// are idempotent; a next-day completion extends the streak; any larger gap
// (or no prior record) resets it to 1. LongestStreak is raised to at least
// CurrentStreak on every call, and LastCompletionDate is always set to today,
// so the three fields stay consistent as one atomic write.
func (s StreakState) Apply(today string) StreakState {
	switch {
	case s.LastCompletionDate == today:
		// Already counted today.
	case s.LastCompletionDate != "" && daysBetween(s.LastCompletionDate, today) == 1:
		s.CurrentStreak++
	default:
		s.CurrentStreak = 1
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastCompletionDate = today
	return s
}

// daysBetween returns the absolute calendar-day difference between two
// dates. Calendar subtraction, not wall-clock elapsed time, so local
// midnight boundaries govern the comparison. The absolute value means a
// stored date one day in the future (clock skew, tampering) still reads as a
// one-day gap.
func daysBetween(from, to string) int {
	a, errA := time.Parse(DateLayout, from)
	b, errB := time.Parse(DateLayout, to)
	if errA != nil || errB != nil {
		// An unparseable stored date behaves like a long gap.
		return 1 << 30
	}

	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
