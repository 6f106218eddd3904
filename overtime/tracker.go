package overtime

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

// DefaultMinimumHours is the least a day needs to count as worked.
var DefaultMinimumHours = decimal.RequireFromString("0.01")

// =============================================================================
// CONSECUTIVE DAY TRACKER
// =============================================================================

// Tracker answers worked-day questions for one employee: streak lengths
// ending on a day, whether the prior day was worked, longest streak.
// Not safe for concurrent mutation; build one per evaluation.
type Tracker struct {
	hours   map[generic.Date]decimal.Decimal
	minimum decimal.Decimal
}

// Streak is a run of consecutive worked days.
type Streak struct {
	Length int
	Start  *generic.Date
	End    *generic.Date
}

type TrackerOption func(*Tracker)

// WithMinimumHours sets the worked-day threshold.
func WithMinimumHours(h decimal.Decimal) TrackerOption {
	return func(t *Tracker) { t.minimum = h }
}

func NewTracker(daily generic.DailyHours, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		hours:   make(map[generic.Date]decimal.Decimal, len(daily)),
		minimum: DefaultMinimumHours,
	}
	for _, opt := range opts {
		opt(t)
	}
	for d, h := range daily {
		t.hours[d] = h
	}
	return t
}

// AddWorkDay records (or replaces) the hours of a day.
func (t *Tracker) AddWorkDay(d generic.Date, h decimal.Decimal) {
	t.hours[d] = h
}

func (t *Tracker) SetMinimumHours(h decimal.Decimal) { t.minimum = h }

// WorkedOn reports whether the day meets the minimum hours.
func (t *Tracker) WorkedOn(d generic.Date) bool {
	h, ok := t.hours[d]
	return ok && h.GreaterThanOrEqual(t.minimum)
}

// HoursOn returns the recorded hours, zero if none.
func (t *Tracker) HoursOn(d generic.Date) decimal.Decimal {
	return t.hours[d]
}

// ConsecutiveDaysEndingAt counts worked days walking backward from d.
// Zero when d itself wasn't worked.
func (t *Tracker) ConsecutiveDaysEndingAt(d generic.Date) int {
	count := 0
	for t.WorkedOn(d) {
		count++
		d = d.AddDays(-1)
	}
	return count
}

// ConsecutiveSequenceEndingAt returns the streak ending at d in ascending order.
func (t *Tracker) ConsecutiveSequenceEndingAt(d generic.Date) []generic.Date {
	n := t.ConsecutiveDaysEndingAt(d)
	seq := make([]generic.Date, n)
	for i := 0; i < n; i++ {
		seq[n-1-i] = d.AddDays(-i)
	}
	return seq
}

// IsNthConsecutiveDay reports whether d is exactly the nth day of its streak.
func (t *Tracker) IsNthConsecutiveDay(d generic.Date, n int) bool {
	return t.ConsecutiveDaysEndingAt(d) == n
}

// MeetsThreshold reports whether the streak ending at d is at least n days.
func (t *Tracker) MeetsThreshold(d generic.Date, n int) bool {
	return t.ConsecutiveDaysEndingAt(d) >= n
}

// PriorDayWorked reports whether the day before d was worked.
func (t *Tracker) PriorDayWorked(d generic.Date) bool {
	return t.WorkedOn(d.AddDays(-1))
}

// WorkedDates returns every worked day in ascending order.
func (t *Tracker) WorkedDates() []generic.Date {
	var dates []generic.Date
	for d := range t.hours {
		if t.WorkedOn(d) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func (t *Tracker) TotalDaysWorked() int { return len(t.WorkedDates()) }

// TotalHours sums the hours of worked days only.
func (t *Tracker) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for d, h := range t.hours {
		if t.WorkedOn(d) {
			total = total.Add(h)
		}
	}
	return total
}

// LongestStreak returns the longest run; the earliest run wins ties.
func (t *Tracker) LongestStreak() Streak {
	dates := t.WorkedDates()
	if len(dates) == 0 {
		return Streak{}
	}

	best := Streak{Length: 1, Start: &dates[0], End: &dates[0]}
	runStart, runLen := 0, 1
	for i := 1; i < len(dates); i++ {
		if dates[i].Equal(dates[i-1].AddDays(1)) {
			runLen++
		} else {
			runStart, runLen = i, 1
		}
		if runLen > best.Length {
			best = Streak{Length: runLen, Start: &dates[runStart], End: &dates[i]}
		}
	}
	return best
}
