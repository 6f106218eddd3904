package overtime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

// Default multipliers.
var (
	DefaultOvertimeMultiplier   = decimal.RequireFromString("1.5")
	DefaultDoubleTimeMultiplier = decimal.NewFromInt(2)
	DefaultHolidayMultiplier    = decimal.NewFromInt(2)
)

// =============================================================================
// RULE CATEGORY - Closed set, evaluated in a fixed order by the engine
// =============================================================================

type Category uint8

const (
	CategoryUnknown Category = iota
	WeeklyThreshold
	DailyThreshold
	ConsecutiveDay
	WeekendDay
)

var categoryNames = map[Category]string{
	WeeklyThreshold: "weekly_threshold",
	DailyThreshold:  "daily_threshold",
	ConsecutiveDay:  "consecutive_day",
	WeekendDay:      "weekend_day",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory maps a stored rule type to its category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return CategoryUnknown, generic.NewConfigurationError("rule_type", s, "unsupported rule type")
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// RULE
// =============================================================================

// Rule is one configured overtime rule. Which fields matter depends on Category:
//
//	WeeklyThreshold  HoursThreshold, Multiplier
//	DailyThreshold   HoursThreshold, Multiplier, DoubleTimeMultiplier, Weekdays
//	ConsecutiveDay   ConsecutiveDays, OnlyOnThresholdDay, DoubleTimeMultiplier
//	WeekendDay       Weekdays, RequiresPriorDayWorked, Multiplier, DoubleTimeMultiplier
type Rule struct {
	ID       string
	Name     string
	Category Category

	HoursThreshold  decimal.Decimal
	ConsecutiveDays int

	Multiplier           decimal.Decimal
	DoubleTimeMultiplier decimal.Decimal

	// PayTypes empty means every non-salaried pay type.
	PayTypes []generic.PayType
	// Weekdays empty means every day.
	Weekdays []time.Weekday

	RequiresPriorDayWorked bool
	OnlyOnThresholdDay     bool

	Priority int
	Active   bool

	// ShiftID empty means the rule applies company-wide.
	ShiftID string
}

// AppliesToDay reports whether the rule covers the weekday.
func (r *Rule) AppliesToDay(wd time.Weekday) bool {
	if len(r.Weekdays) == 0 {
		return true
	}
	for _, d := range r.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// AppliesToPayType reports whether the rule covers the pay type. An empty
// list covers every pay type; otherwise salary must be listed explicitly.
func (r *Rule) AppliesToPayType(pt generic.PayType) bool {
	if len(r.PayTypes) == 0 {
		return true
	}
	for _, p := range r.PayTypes {
		if p == pt {
			return true
		}
	}
	return false
}

// AppliesToShift: company-wide rules always apply, shift rules only to that shift.
func (r *Rule) AppliesToShift(shiftID string) bool {
	return r.ShiftID == "" || r.ShiftID == shiftID
}

// OvertimeMultiplier returns the configured multiplier or 1.5.
func (r *Rule) OvertimeMultiplier() decimal.Decimal {
	if r == nil || !r.Multiplier.IsPositive() {
		return DefaultOvertimeMultiplier
	}
	return r.Multiplier
}

// DoubleTimeRate returns the configured double-time multiplier or 2.0.
func (r *Rule) DoubleTimeRate() decimal.Decimal {
	if r == nil || !r.DoubleTimeMultiplier.IsPositive() {
		return DefaultDoubleTimeMultiplier
	}
	return r.DoubleTimeMultiplier
}

// Validate reports configuration the engine cannot apply.
func (r *Rule) Validate() error {
	switch r.Category {
	case WeeklyThreshold, DailyThreshold:
		if !r.HoursThreshold.IsPositive() {
			return fmt.Errorf("%s rule needs a positive hours threshold", r.Category)
		}
	case ConsecutiveDay:
		if r.ConsecutiveDays <= 0 {
			return fmt.Errorf("%s rule needs a positive day threshold", r.Category)
		}
	case WeekendDay:
	default:
		return fmt.Errorf("unknown rule category %d", r.Category)
	}
	if r.Multiplier.IsNegative() || r.DoubleTimeMultiplier.IsNegative() {
		return fmt.Errorf("%s rule has a negative multiplier", r.Category)
	}
	return nil
}

// =============================================================================
// RULE SET - Rules in effect for one employee
// =============================================================================

// RuleSet holds active, shift-scoped, valid rules sorted by priority.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet filters rules for the employee. Invalid rules are dropped and
// returned as data errors so the caller can record them.
func NewRuleSet(rules []Rule, emp generic.Employee) (RuleSet, []error) {
	var kept []Rule
	var errs []error
	for _, r := range rules {
		if !r.Active || !r.AppliesToShift(emp.ShiftID) {
			continue
		}
		if err := r.Validate(); err != nil {
			errs = append(errs, &generic.DataError{
				EmployeeID: emp.ID,
				RuleID:     r.ID,
				Reason:     err.Error(),
				Err:        generic.ErrInconsistentReference,
			})
			continue
		}
		kept = append(kept, r)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Priority < kept[j].Priority })
	return RuleSet{rules: kept}, errs
}

// Rules returns the set in priority order.
func (rs RuleSet) Rules() []Rule { return rs.rules }

// ByCategory returns rules of one category in priority order.
func (rs RuleSet) ByCategory(c Category) []*Rule {
	var out []*Rule
	for i := range rs.rules {
		if rs.rules[i].Category == c {
			out = append(out, &rs.rules[i])
		}
	}
	return out
}

// WeeklyThreshold returns the authoritative weekly rule, nil if none.
func (rs RuleSet) WeeklyThreshold() *Rule {
	if rules := rs.ByCategory(WeeklyThreshold); len(rules) > 0 {
		return rules[0]
	}
	return nil
}
