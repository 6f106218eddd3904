package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (payroll works in whole days)
// =============================================================================

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// Date is a calendar day normalized to UTC midnight.
// Two Dates for the same day are == and can be used as map keys.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day in the timestamp's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ISOWeek returns the ISO 8601 year and week number.
func (d Date) ISOWeek() (year, week int) { return d.t.ISOWeek() }

// StartOfWeek returns the most recent day (inclusive) that falls on first.
func (d Date) StartOfWeek(first time.Weekday) Date {
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-offset)
}

func (d Date) StartOfMonth() Date { return NewDate(d.Year(), d.Month(), 1) }

func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month()+1, 1).AddDays(-1)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText lets Date act as a JSON string and as a JSON object key.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns the signed number of days from -> to.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}
