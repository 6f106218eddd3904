/*
engine.go - Overtime rule engine

PURPOSE:
  Classifies an employee's daily hours over a pay period into regular,
  overtime, double-time and holiday hours.

EVALUATION ORDER:
  1. Exemption: overtime-exempt employees, and salaried employees without
     the salary-overtime override, get every hour as regular. Nothing else runs.
  2. Per day with hours > 0, in date order, the first step that applies wins:
       holiday -> consecutive day -> weekend day -> daily threshold -> regular
  3. Weekly pass: regular hours above the weekly threshold in a Sunday-start
     week become overtime, latest days first.

  Days outside the pay period still feed the consecutive-day tracker and
  the holiday day-before/day-after checks, but are not classified.

PARTIAL FAILURE:
  Negative hours and holidays that cannot be applied skip that day only;
  rules that cannot be applied are dropped. Each case is recorded on
  PeriodResult.Errors as a *generic.DataError.

SEE ALSO:
  - rules.go: Rule, RuleSet
  - holiday.go: Holiday, HolidayCalendar
  - tracker.go: Consecutive day tracking
  - result.go: DayResult, PeriodResult, weekly pass
  - audit.go: Per-day audit entries
*/
package overtime

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/generic"
)

// Engine defaults.
var (
	DefaultWeeklyThreshold     = decimal.NewFromInt(40)
	DefaultDoubleTimeThreshold = decimal.NewFromInt(12)

	weekendDoubleTimeFloor = decimal.RequireFromString("1.5")
)

// Exemption reasons.
const (
	ReasonMarkedExempt = "Employee marked as overtime exempt"
	ReasonSalaryExempt = "Salary employee - overtime exempt"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config is everything an evaluation depends on. Zero values fall back to defaults.
type Config struct {
	Rules    []Rule
	Holidays []Holiday

	MinimumWorkedHours         decimal.Decimal
	DefaultWeeklyThreshold     decimal.Decimal
	DefaultWeeklyMultiplier    decimal.Decimal
	DefaultDoubleTimeThreshold decimal.Decimal
}

func (c Config) withDefaults() Config {
	if !c.MinimumWorkedHours.IsPositive() {
		c.MinimumWorkedHours = DefaultMinimumHours
	}
	if !c.DefaultWeeklyThreshold.IsPositive() {
		c.DefaultWeeklyThreshold = DefaultWeeklyThreshold
	}
	if !c.DefaultWeeklyMultiplier.IsPositive() {
		c.DefaultWeeklyMultiplier = DefaultOvertimeMultiplier
	}
	if !c.DefaultDoubleTimeThreshold.IsPositive() {
		c.DefaultDoubleTimeThreshold = DefaultDoubleTimeThreshold
	}
	return c
}

// =============================================================================
// ENGINE
// =============================================================================

// AuditSink receives one entry per classified day. generic.CalculationLog satisfies it.
type AuditSink interface {
	RecordCalculation(ctx context.Context, entry generic.CalculationEntry) error
}

type Engine struct {
	cfg      Config
	holidays HolidayCalendar
	audit    AuditSink
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Engine)

func WithAuditSink(s AuditSink) Option {
	return func(e *Engine) { e.audit = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock fixes the timestamp written to audit entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:      cfg,
		holidays: NewHolidayCalendar(cfg.Holidays),
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies daily hours for one employee and pay period.
// A zero pay period classifies every supplied day.
func (e *Engine) Evaluate(ctx context.Context, emp generic.Employee, period generic.PayPeriod, daily generic.DailyHours) (*PeriodResult, error) {
	if !period.Period().IsZero() {
		if err := period.Period().Validate(); err != nil {
			return nil, err
		}
	}

	result := NewPeriodResult(emp, period)
	tracker := NewTracker(daily, WithMinimumHours(e.cfg.MinimumWorkedHours))

	var dates []generic.Date
	for _, d := range daily.Dates() {
		if !period.Period().IsZero() && !period.Period().Contains(d) {
			continue
		}
		if daily[d].IsNegative() {
			result.addError(&generic.DataError{
				EmployeeID: emp.ID,
				Date:       d,
				Reason:     "hours " + daily[d].String() + " below zero",
				Err:        generic.ErrNegativeHours,
			})
			continue
		}
		dates = append(dates, d)
	}

	if reason, exempt := exemption(emp); exempt {
		result.MarkExempt(reason)
		for _, d := range dates {
			result.AddDay(Exempt(d, daily[d], ""))
		}
		e.record(ctx, result)
		return result, nil
	}

	rules, ruleErrs := NewRuleSet(e.cfg.Rules, emp)
	for _, err := range ruleErrs {
		result.addError(err)
	}

	for _, d := range dates {
		hours := daily[d]
		if !hours.IsPositive() {
			continue
		}
		in := dayInput{
			date:     d,
			hours:    hours,
			employee: emp,
			rules:    rules,
			tracker:  tracker,
			holiday:  e.holidays.On(d),
			cfg:      e.cfg,
		}
		if in.holiday != nil {
			if err := in.holiday.Validate(); err != nil {
				result.addError(&generic.DataError{
					EmployeeID: emp.ID,
					Date:       d,
					HolidayID:  in.holiday.ID,
					Reason:     err.Error(),
					Err:        generic.ErrInconsistentReference,
				})
				continue
			}
		}
		result.AddDay(classifyDay(in))
	}

	threshold, multiplier := e.cfg.DefaultWeeklyThreshold, e.cfg.DefaultWeeklyMultiplier
	if weekly := rules.WeeklyThreshold(); weekly != nil {
		threshold, multiplier = weekly.HoursThreshold, weekly.OvertimeMultiplier()
	}
	result.ApplyWeeklyThreshold(threshold, multiplier)

	e.record(ctx, result)
	return result, nil
}

// UnworkedPaidHolidays returns holidays in the period the employee is
// eligible for, did not work, and is paid for anyway.
func (e *Engine) UnworkedPaidHolidays(emp generic.Employee, period generic.PayPeriod, daily generic.DailyHours) []*Holiday {
	tracker := NewTracker(daily, WithMinimumHours(e.cfg.MinimumWorkedHours))
	var out []*Holiday
	for _, h := range e.holidays.Within(period.Period()) {
		if !h.PaidIfNotWorked || tracker.WorkedOn(h.Date) || h.Validate() != nil {
			continue
		}
		if h.Qualifies(emp, tracker) {
			out = append(out, h)
		}
	}
	return out
}

func exemption(emp generic.Employee) (string, bool) {
	if emp.OvertimeExempt {
		return ReasonMarkedExempt, true
	}
	if emp.PayType == generic.PaySalary && !emp.SalaryOvertime {
		return ReasonSalaryExempt, true
	}
	return "", false
}

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

type dayInput struct {
	date     generic.Date
	hours    decimal.Decimal
	employee generic.Employee
	rules    RuleSet
	tracker  *Tracker
	holiday  *Holiday
	cfg      Config
}

// classifier returns nil when it does not apply to the day.
type classifier func(in dayInput) *DayResult

// evaluationOrder is fixed; the first classifier that applies wins.
var evaluationOrder = []classifier{
	classifyHoliday,
	classifyConsecutiveDay,
	classifyWeekendDay,
	classifyDailyThreshold,
}

func classifyDay(in dayInput) *DayResult {
	for _, classify := range evaluationOrder {
		if r := classify(in); r != nil {
			return r
		}
	}
	return AllRegular(in.date, in.hours, "")
}

func classifyHoliday(in dayInput) *DayResult {
	if in.holiday == nil || !in.holiday.Qualifies(in.employee, in.tracker) {
		return nil
	}
	return AllHoliday(in.date, in.hours, in.holiday, "").WithContext(map[string]any{
		"holiday_name": in.holiday.Name,
		"multiplier":   in.holiday.Rate().InexactFloat64(),
	})
}

func classifyConsecutiveDay(in dayInput) *DayResult {
	count := in.tracker.ConsecutiveDaysEndingAt(in.date)
	for _, rule := range in.rules.ByCategory(ConsecutiveDay) {
		if !rule.AppliesToPayType(in.employee.PayType) {
			continue
		}
		if count < rule.ConsecutiveDays {
			continue
		}
		if rule.OnlyOnThresholdDay && count != rule.ConsecutiveDays {
			continue
		}
		reason := fmt.Sprintf("%s consecutive day - double-time", ordinal(count))
		return AllDoubleTime(in.date, in.hours, rule, reason).WithContext(map[string]any{
			"consecutive_days": count,
			"threshold":        rule.ConsecutiveDays,
		})
	}
	return nil
}

func classifyWeekendDay(in dayInput) *DayResult {
	wd := in.date.Weekday()
	for _, rule := range in.rules.ByCategory(WeekendDay) {
		if !rule.AppliesToDay(wd) || !rule.AppliesToPayType(in.employee.PayType) {
			continue
		}
		if rule.RequiresPriorDayWorked && !in.tracker.PriorDayWorked(in.date) {
			continue
		}
		if rule.RequiresPriorDayWorked && rule.DoubleTimeMultiplier.GreaterThan(weekendDoubleTimeFloor) {
			reason := fmt.Sprintf("%s with prior day worked - double-time", wd)
			return AllDoubleTime(in.date, in.hours, rule, reason).WithContext(map[string]any{
				"day_of_week":       int(wd),
				"prior_day_worked":  true,
				"double_time_ratio": rule.DoubleTimeMultiplier.InexactFloat64(),
			})
		}
		return AllOvertime(in.date, in.hours, rule, fmt.Sprintf("%s - overtime", wd)).WithContext(map[string]any{
			"day_of_week": int(wd),
		})
	}
	return nil
}

func classifyDailyThreshold(in dayInput) *DayResult {
	var rule *Rule
	for _, r := range in.rules.ByCategory(DailyThreshold) {
		if r.AppliesToDay(in.date.Weekday()) && r.AppliesToPayType(in.employee.PayType) {
			rule = r
			break
		}
	}
	if rule == nil || !in.hours.GreaterThan(rule.HoursThreshold) {
		return nil
	}

	threshold := rule.HoursThreshold
	dtThreshold := in.cfg.DefaultDoubleTimeThreshold
	if in.employee.DoubleTimeThreshold != nil {
		dtThreshold = *in.employee.DoubleTimeThreshold
	}
	dtThreshold = decimal.Max(dtThreshold, threshold)

	r := newDay(in.date, in.hours, fmt.Sprintf("Daily threshold (%sh) exceeded", threshold))
	r.Rule = rule
	r.RegularHours = threshold
	if in.hours.GreaterThan(dtThreshold) {
		r.DoubleTimeHours = in.hours.Sub(dtThreshold)
		r.OvertimeHours = dtThreshold.Sub(threshold)
	} else {
		r.OvertimeHours = in.hours.Sub(threshold)
	}
	return r.WithContext(map[string]any{
		"daily_threshold":       threshold.InexactFloat64(),
		"double_time_threshold": dtThreshold.InexactFloat64(),
	})
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
