package overtime

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

// Reasons shared between constructors and the weekly pass.
const (
	ReasonRegular        = "Regular work day"
	ReasonExempt         = "Overtime exempt employee"
	ReasonWeeklyOvertime = "Weekly threshold OT"

	weeklyMarker = "Weekly threshold"
)

// WeekStartDay is the first day of an aggregation week.
const WeekStartDay = time.Sunday

// =============================================================================
// DAY RESULT
// =============================================================================

// DayResult is the classification of one day's hours. Regular, overtime,
// double-time and holiday hours always sum to TotalHours.
type DayResult struct {
	Date            generic.Date
	TotalHours      decimal.Decimal
	RegularHours    decimal.Decimal
	OvertimeHours   decimal.Decimal
	DoubleTimeHours decimal.Decimal
	HolidayHours    decimal.Decimal

	Rule    *Rule
	Holiday *Holiday
	Reason  string
	Context map[string]any

	// weeklyRate is the weekly rule multiplier for hours converted by the weekly pass.
	weeklyRate decimal.Decimal
}

func newDay(d generic.Date, hours decimal.Decimal, reason string) *DayResult {
	return &DayResult{Date: d, TotalHours: hours, Reason: reason, Context: map[string]any{}}
}

// AllRegular classifies every hour as regular.
func AllRegular(d generic.Date, hours decimal.Decimal, reason string) *DayResult {
	if reason == "" {
		reason = ReasonRegular
	}
	r := newDay(d, hours, reason)
	r.RegularHours = hours
	return r
}

// AllOvertime classifies every hour as overtime under rule.
func AllOvertime(d generic.Date, hours decimal.Decimal, rule *Rule, reason string) *DayResult {
	if reason == "" {
		reason = "Overtime: " + rule.Name
	}
	r := newDay(d, hours, reason)
	r.OvertimeHours = hours
	r.Rule = rule
	return r
}

// AllDoubleTime classifies every hour as double-time under rule.
func AllDoubleTime(d generic.Date, hours decimal.Decimal, rule *Rule, reason string) *DayResult {
	if reason == "" {
		reason = "Double-time: " + rule.Name
	}
	r := newDay(d, hours, reason)
	r.DoubleTimeHours = hours
	r.Rule = rule
	return r
}

// AllHoliday classifies every hour as holiday hours.
func AllHoliday(d generic.Date, hours decimal.Decimal, h *Holiday, reason string) *DayResult {
	if reason == "" {
		reason = "Holiday: " + h.Name
	}
	r := newDay(d, hours, reason)
	r.HolidayHours = hours
	r.Holiday = h
	return r
}

// Exempt classifies every hour as regular for an exempt employee.
func Exempt(d generic.Date, hours decimal.Decimal, reason string) *DayResult {
	if reason == "" {
		reason = ReasonExempt
	}
	return AllRegular(d, hours, reason)
}

// WithContext merges values into the day's context.
func (r *DayResult) WithContext(kv map[string]any) *DayResult {
	for k, v := range kv {
		r.Context[k] = v
	}
	return r
}

// Balanced reports whether the buckets add up to the total.
func (r *DayResult) Balanced() bool {
	return r.RegularHours.Add(r.NonRegularHours()).Equal(r.TotalHours)
}

func (r *DayResult) NonRegularHours() decimal.Decimal {
	return r.OvertimeHours.Add(r.DoubleTimeHours).Add(r.HolidayHours)
}

func (r *DayResult) HasSpecialHours() bool {
	return r.NonRegularHours().IsPositive()
}

func (r *DayResult) OvertimeMultiplier() decimal.Decimal {
	if r.Rule == nil && r.weeklyRate.IsPositive() {
		return r.weeklyRate
	}
	return r.Rule.OvertimeMultiplier()
}

func (r *DayResult) DoubleTimeMultiplier() decimal.Decimal {
	return r.Rule.DoubleTimeRate()
}

func (r *DayResult) HolidayMultiplier() decimal.Decimal {
	return r.Holiday.Rate()
}

// EquivalentHours weights every bucket by its multiplier.
func (r *DayResult) EquivalentHours() decimal.Decimal {
	return r.RegularHours.
		Add(r.OvertimeHours.Mul(r.OvertimeMultiplier())).
		Add(r.DoubleTimeHours.Mul(r.DoubleTimeMultiplier())).
		Add(r.HolidayHours.Mul(r.HolidayMultiplier()))
}

// RuleID returns the applied rule id, empty if none.
func (r *DayResult) RuleID() string {
	if r.Rule == nil {
		return ""
	}
	return r.Rule.ID
}

// HolidayID returns the applied holiday id, empty if none.
func (r *DayResult) HolidayID() string {
	if r.Holiday == nil {
		return ""
	}
	return r.Holiday.ID
}

// String renders e.g. "2025-01-06: 8h reg 2h OT (Daily threshold (8h) exceeded)".
func (r *DayResult) String() string {
	parts := []string{r.Date.String() + ":"}
	for _, b := range []struct {
		h     decimal.Decimal
		label string
	}{
		{r.RegularHours, "reg"},
		{r.OvertimeHours, "OT"},
		{r.DoubleTimeHours, "DT"},
		{r.HolidayHours, "holiday"},
	} {
		if b.h.IsPositive() {
			parts = append(parts, b.h.String()+"h "+b.label)
		}
	}
	if r.Reason != "" {
		parts = append(parts, "("+r.Reason+")")
	}
	return strings.Join(parts, " ")
}

// convertToOvertime moves up to hours from regular to overtime and
// returns how much was moved.
func (r *DayResult) convertToOvertime(hours, rate decimal.Decimal) decimal.Decimal {
	moved := decimal.Min(r.RegularHours, hours)
	if !moved.IsPositive() {
		return decimal.Zero
	}
	r.RegularHours = r.RegularHours.Sub(moved)
	r.OvertimeHours = r.OvertimeHours.Add(moved)
	r.weeklyRate = rate
	if r.Reason != "" && !strings.Contains(r.Reason, weeklyMarker) {
		r.Reason += " + " + ReasonWeeklyOvertime
	} else {
		r.Reason = ReasonWeeklyOvertime
	}
	r.Context["weekly_converted_hours"] = moved.InexactFloat64()
	return moved
}

// =============================================================================
// PERIOD RESULT
// =============================================================================

// WeekSummary aggregates one Sunday-start week.
type WeekSummary struct {
	Start      generic.Date    `json:"start"`
	End        generic.Date    `json:"end"`
	Total      decimal.Decimal `json:"total_hours"`
	Regular    decimal.Decimal `json:"regular_hours"`
	Overtime   decimal.Decimal `json:"overtime_hours"`
	DoubleTime decimal.Decimal `json:"double_time_hours"`
	Holiday    decimal.Decimal `json:"holiday_hours"`
	// Threshold is zero until the weekly pass ran.
	Threshold decimal.Decimal `json:"threshold"`
}

// PeriodResult is the evaluation of one employee over one pay period.
type PeriodResult struct {
	Employee     generic.Employee
	PayPeriod    generic.PayPeriod
	Exempt       bool
	ExemptReason string

	// Errors holds data errors for skipped days or dropped rules.
	Errors []error

	days  map[generic.Date]*DayResult
	weeks []WeekSummary
}

func NewPeriodResult(emp generic.Employee, period generic.PayPeriod) *PeriodResult {
	return &PeriodResult{
		Employee:  emp,
		PayPeriod: period,
		days:      make(map[generic.Date]*DayResult),
	}
}

func (pr *PeriodResult) MarkExempt(reason string) {
	pr.Exempt = true
	pr.ExemptReason = reason
}

// AddDay stores a day result, replacing any earlier result for that date.
func (pr *PeriodResult) AddDay(r *DayResult) {
	pr.days[r.Date] = r
	pr.weeks = nil
}

func (pr *PeriodResult) addError(err error) {
	pr.Errors = append(pr.Errors, err)
}

// Day returns the result for d, nil if the day wasn't classified.
func (pr *PeriodResult) Day(d generic.Date) *DayResult {
	return pr.days[d]
}

// Days returns all day results in chronological order.
func (pr *PeriodResult) Days() []*DayResult {
	out := make([]*DayResult, 0, len(pr.days))
	for _, r := range pr.days {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (pr *PeriodResult) sum(pick func(*DayResult) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, r := range pr.days {
		total = total.Add(pick(r))
	}
	return total
}

func (pr *PeriodResult) TotalHours() decimal.Decimal {
	return pr.sum(func(r *DayResult) decimal.Decimal { return r.TotalHours })
}

func (pr *PeriodResult) RegularHours() decimal.Decimal {
	return pr.sum(func(r *DayResult) decimal.Decimal { return r.RegularHours })
}

func (pr *PeriodResult) OvertimeHours() decimal.Decimal {
	return pr.sum(func(r *DayResult) decimal.Decimal { return r.OvertimeHours })
}

func (pr *PeriodResult) DoubleTimeHours() decimal.Decimal {
	return pr.sum(func(r *DayResult) decimal.Decimal { return r.DoubleTimeHours })
}

func (pr *PeriodResult) HolidayHours() decimal.Decimal {
	return pr.sum(func(r *DayResult) decimal.Decimal { return r.HolidayHours })
}

// groupByWeek returns day results per week start, weeks and days ascending.
func (pr *PeriodResult) groupByWeek() ([]generic.Date, map[generic.Date][]*DayResult) {
	groups := make(map[generic.Date][]*DayResult)
	var starts []generic.Date
	for _, r := range pr.Days() {
		ws := r.Date.StartOfWeek(WeekStartDay)
		if _, ok := groups[ws]; !ok {
			starts = append(starts, ws)
		}
		groups[ws] = append(groups[ws], r)
	}
	return starts, groups
}

// ApplyWeeklyThreshold converts regular hours above threshold in each
// week into overtime, taking them from the latest days of the week first.
func (pr *PeriodResult) ApplyWeeklyThreshold(threshold, multiplier decimal.Decimal) {
	starts, groups := pr.groupByWeek()
	weeks := make([]WeekSummary, 0, len(starts))
	for _, ws := range starts {
		days := groups[ws]

		regular := decimal.Zero
		for _, d := range days {
			regular = regular.Add(d.RegularHours)
		}
		if regular.GreaterThan(threshold) {
			remaining := regular.Sub(threshold)
			for i := len(days) - 1; i >= 0 && remaining.IsPositive(); i-- {
				remaining = remaining.Sub(days[i].convertToOvertime(remaining, multiplier))
			}
		}

		w := summarizeWeek(ws, days)
		w.Threshold = threshold
		weeks = append(weeks, w)
	}
	pr.weeks = weeks
}

// Weeks returns weekly aggregations, computing them when the weekly pass didn't run.
func (pr *PeriodResult) Weeks() []WeekSummary {
	if pr.weeks != nil {
		return pr.weeks
	}
	starts, groups := pr.groupByWeek()
	weeks := make([]WeekSummary, 0, len(starts))
	for _, ws := range starts {
		weeks = append(weeks, summarizeWeek(ws, groups[ws]))
	}
	return weeks
}

func summarizeWeek(start generic.Date, days []*DayResult) WeekSummary {
	w := WeekSummary{Start: start, End: start.AddDays(6)}
	for _, d := range days {
		w.Total = w.Total.Add(d.TotalHours)
		w.Regular = w.Regular.Add(d.RegularHours)
		w.Overtime = w.Overtime.Add(d.OvertimeHours)
		w.DoubleTime = w.DoubleTime.Add(d.DoubleTimeHours)
		w.Holiday = w.Holiday.Add(d.HolidayHours)
	}
	return w
}

// =============================================================================
// EXPORT
// =============================================================================

// Breakdown is the export shape of a period result, rounded to two places.
type Breakdown struct {
	Regular    decimal.Decimal `json:"regular"`
	Overtime   decimal.Decimal `json:"overtime"`
	DoubleTime decimal.Decimal `json:"double_time"`
	Holiday    decimal.Decimal `json:"holiday"`
	Total      decimal.Decimal `json:"total"`
	Weeks      []WeekSummary   `json:"weeks"`
}

func (pr *PeriodResult) ExportBreakdown() Breakdown {
	return Breakdown{
		Regular:    generic.RoundHours(pr.RegularHours()),
		Overtime:   generic.RoundHours(pr.OvertimeHours()),
		DoubleTime: generic.RoundHours(pr.DoubleTimeHours()),
		Holiday:    generic.RoundHours(pr.HolidayHours()),
		Total:      generic.RoundHours(pr.TotalHours()),
		Weeks:      pr.Weeks(),
	}
}

// Summary extends the breakdown with identity and exemption details.
type Summary struct {
	EmployeeID   generic.EmployeeID  `json:"employee_id"`
	EmployeeName string              `json:"employee_name"`
	PayPeriodID  generic.PayPeriodID `json:"pay_period_id"`
	Exempt       bool                `json:"is_exempt"`
	ExemptReason string              `json:"exempt_reason,omitempty"`
	DaysWorked   int                 `json:"days_worked"`
	Breakdown
}

func (pr *PeriodResult) Summary() Summary {
	return Summary{
		EmployeeID:   pr.Employee.ID,
		EmployeeName: pr.Employee.Name,
		PayPeriodID:  pr.PayPeriod.ID,
		Exempt:       pr.Exempt,
		ExemptReason: pr.ExemptReason,
		DaysWorked:   len(pr.days),
		Breakdown:    pr.ExportBreakdown(),
	}
}
