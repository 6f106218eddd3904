package calendar

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/warp/payroll-engine/generic"
)

// DefaultNamePattern is used when a frequency has no pattern.
const DefaultNamePattern = "Week {week_number}, {year}"

// Placeholders lists the supported tokens with a short description.
var Placeholders = map[string]string{
	"{week_number}":       "ISO week number of the start date",
	"{year}":              "4-digit year of the start date",
	"{short_year}":        "2-digit year of the start date",
	"{start_date}":        "Formatted start date (Jan 2, 2006)",
	"{end_date}":          "Formatted end date (Jan 2, 2006)",
	"{start_month}":       "Full start month name",
	"{end_month}":         "Full end month name",
	"{start_month_short}": "Abbreviated start month",
	"{end_month_short}":   "Abbreviated end month",
	"{start_day}":         "Start day of month",
	"{end_day}":           "End day of month",
	"{sequence}":          "Sequential period number in the year",
	"{quarter}":           "Quarter of the start date (Q1-Q4)",
}

// Namer renders period names from a placeholder pattern.
type Namer struct {
	Pattern string
}

func NewNamer(pattern string) Namer {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultNamePattern
	}
	return Namer{Pattern: pattern}
}

// Name renders the pattern for a period. seq is the 1-based ordinal of
// the period among periods starting in the same year.
func (n Namer) Name(start, end generic.Date, seq int) string {
	_, week := start.ISOWeek()
	r := strings.NewReplacer(
		"{week_number}", strconv.Itoa(week),
		"{year}", strconv.Itoa(start.Year()),
		"{short_year}", fmt.Sprintf("%02d", start.Year()%100),
		"{start_date}", start.Time().Format("Jan 2, 2006"),
		"{end_date}", end.Time().Format("Jan 2, 2006"),
		"{start_month}", start.Month().String(),
		"{end_month}", end.Month().String(),
		"{start_month_short}", start.Time().Format("Jan"),
		"{end_month_short}", end.Time().Format("Jan"),
		"{start_day}", strconv.Itoa(start.Day()),
		"{end_day}", strconv.Itoa(end.Day()),
		"{sequence}", strconv.Itoa(seq),
		"{quarter}", "Q"+strconv.Itoa((int(start.Month())-1)/3+1),
	)
	return r.Replace(n.Pattern)
}

// namePeriods names a sorted slice in place, sequencing within each year.
func namePeriods(n Namer, periods []generic.PayPeriod) {
	seq := 0
	year := 0
	for i := range periods {
		if periods[i].Start.Year() != year {
			year = periods[i].Start.Year()
			seq = 0
		}
		seq++
		periods[i].Name = n.Name(periods[i].Start, periods[i].End, seq)
	}
}

// sequenceInYear counts stored periods of start's year that begin before start.
func sequenceInYear(ctx context.Context, store generic.PeriodStore, start generic.Date) (int, error) {
	yearStart := generic.NewDate(start.Year(), 1, 1)
	if !yearStart.Before(start) {
		return 1, nil
	}
	existing, err := store.ListPeriods(ctx, yearStart, start.AddDays(-1))
	if err != nil {
		return 0, fmt.Errorf("count periods in %d: %w", start.Year(), err)
	}
	seq := 1
	for _, p := range existing {
		if p.Start.Year() == start.Year() && p.Start.Before(start) {
			seq++
		}
	}
	return seq, nil
}
