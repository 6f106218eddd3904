package generic

import "time"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive date range [Start, End].
//
// Examples:
//   - Weekly pay period: Sun Jan 5 - Sat Jan 11
//   - Semi-monthly pay period: Apr 16 - Apr 30
//   - Aggregation week: Sunday through Saturday
type Period struct {
	Start Date
	End   Date
}

// Validate returns ErrInvalidPeriod when End precedes Start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Length is the number of days in the period, 0 for an invalid period.
func (p Period) Length() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period in ascending order.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.Length())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// IsZero reports whether the period was never set.
func (p Period) IsZero() bool { return p.Start.IsZero() && p.End.IsZero() }

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// MonthsTouched returns the first day of every calendar month the period touches.
func (p Period) MonthsTouched() []Date {
	var months []Date
	for m := p.Start.StartOfMonth(); m.BeforeOrEqual(p.End); m = m.AddMonths(1) {
		months = append(months, m)
	}
	return months
}

// WeekOf returns the seven-day week containing d, starting on first.
func WeekOf(d Date, first time.Weekday) Period {
	start := d.StartOfWeek(first)
	return Period{Start: start, End: start.AddDays(6)}
}
