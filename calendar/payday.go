package calendar

import "github.com/warp/payroll-engine/generic"

// =============================================================================
// PAY DAY RESOLUTION
// =============================================================================

// ResolveDay turns a configured day number into a date for the month
// containing month. Sentinels: 99 is the month's last day, 98 the first
// day of the following month. Literal days past the month's length follow
// the month-end handling; exact_day (the default) keeps the overflowed date.
func ResolveDay(month generic.Date, day int, handling MonthEndHandling) generic.Date {
	start := month.StartOfMonth()
	end := month.EndOfMonth()

	switch day {
	case LastDayOfMonth:
		return end
	case FirstDayNextMonth:
		return end.AddDays(1)
	}

	candidate := start.AddDays(day - 1)
	if candidate.Month() == start.Month() {
		return candidate
	}
	switch handling {
	case MonthEndLastDay:
		return end
	case MonthEndNextMonth:
		return end.AddDays(1)
	default:
		return candidate
	}
}

// ActualPayDay resolves the day number and applies the weekend adjustment.
func ActualPayDay(month generic.Date, day int, cfg *FrequencyConfig) generic.Date {
	return AdjustForWeekend(ResolveDay(month, day, cfg.MonthEndHandling), cfg.WeekendAdjustment)
}

// AdjustForWeekend moves a date off Saturday/Sunday per the adjustment.
func AdjustForWeekend(d generic.Date, adj WeekendAdjustment) generic.Date {
	if !d.IsWeekend() {
		return d
	}
	switch adj {
	case WeekendPreviousFriday:
		return previousWeekday(d)
	case WeekendNextMonday:
		return nextWeekday(d)
	case WeekendClosestWeekday:
		before := previousWeekday(d)
		after := nextWeekday(d)
		// ties go to the earlier day
		if generic.DaysBetween(before, d) <= generic.DaysBetween(d, after) {
			return before
		}
		return after
	default:
		return d
	}
}

func previousWeekday(d generic.Date) generic.Date {
	for d.IsWeekend() {
		d = d.AddDays(-1)
	}
	return d
}

func nextWeekday(d generic.Date) generic.Date {
	for d.IsWeekend() {
		d = d.AddDays(1)
	}
	return d
}
