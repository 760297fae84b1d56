package lending

import "time"

const (
	LoanPeriod       = 14 * 24 * time.Hour
	MaxActiveBorrows = 5
	DailyFineRate    = int64(5)
	fineDayLength    = 24 * time.Hour
)

// DeadlineFor returns the return deadline of a borrow opened at borrowedAt.
func DeadlineFor(borrowedAt time.Time) time.Time {
	return borrowedAt.Add(LoanPeriod)
}

// FineAt computes the fine owed for a borrow with the given deadline when
// evaluated at `at`. Overdue days are whole elapsed 24h periods, truncated:
// twelve hours late owes nothing, a day and a half late owes one day.
func FineAt(deadline, at time.Time) int64 {
	if !at.After(deadline) {
		return 0
	}
	days := int64(at.Sub(deadline) / fineDayLength)
	return days * DailyFineRate
}
