/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON configuration documents into calendar.FrequencyConfig,
  overtime.Rule, overtime.Holiday and generic.Employee values. Payroll
  setup changes without code changes: operators edit the JSON files, the
  factory validates them and creates the proper Go structs.

JSON SCHEMAS:
  Frequency:
  {
    "name": "Semi-monthly",
    "frequency_type": "semimonthly",
    "first_pay_day": 15,
    "second_pay_day": 99,
    "weekend_adjustment": "previous_friday",
    "name_pattern": "{start_month_short} {start_day}-{end_day}, {year}"
  }

  Rules (array):
  [
    {"id": "weekly-40", "name": "Weekly 40", "rule_type": "weekly_threshold",
     "hours_threshold": 40, "multiplier": 1.5, "priority": 1},
    {"id": "seventh-day", "name": "7th day", "rule_type": "consecutive_day",
     "consecutive_days": 7, "double_time_multiplier": 2.0, "only_on_threshold_day": true}
  ]

  Holidays (array):
  [
    {"id": "new-year", "name": "New Year's Day", "date": "2025-01-01",
     "multiplier": 2.0, "standard_hours": 8, "paid_if_not_worked": true,
     "pay_types": ["hourly_fulltime"]}
  ]

VALIDATION:
  Documents are decoded with goccy/go-json and checked with validator
  struct tags. Field names in errors are the JSON names. Every failure is
  a generic.ConfigurationError.

DEFAULTS:
  - active defaults to true for rules and holidays
  - missing multipliers fall back to the engine defaults (1.5 / 2.0)
  - a frequency without name_pattern uses calendar.DefaultNamePattern

SEE ALSO:
  - calendar/frequency.go: FrequencyConfig
  - overtime/rules.go, overtime/holiday.go: Rule and Holiday
  - config/config.go: Where the file paths come from
*/
package factory

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FrequencyJSON is the JSON representation of a payroll frequency.
type FrequencyJSON struct {
	Name              string `json:"name"`
	Type              string `json:"frequency_type" validate:"required,oneof=weekly biweekly semimonthly monthly"`
	ReferenceDate     string `json:"reference_start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	WeeklyDay         string `json:"weekly_day,omitempty" validate:"omitempty,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	FirstPayDay       int    `json:"first_pay_day,omitempty" validate:"omitempty,min=1,max=99"`
	SecondPayDay      int    `json:"second_pay_day,omitempty" validate:"omitempty,min=1,max=99"`
	MonthEndHandling  string `json:"month_end_handling,omitempty" validate:"omitempty,oneof=last_day_of_month first_day_next_month exact_day"`
	WeekendAdjustment string `json:"weekend_adjustment,omitempty" validate:"omitempty,oneof=none previous_friday next_monday closest_weekday"`
	SkipHolidays      bool   `json:"skip_holidays,omitempty"`
	NamePattern       string `json:"name_pattern,omitempty"`
}

// RuleJSON is the JSON representation of an overtime rule.
type RuleJSON struct {
	ID                     string   `json:"id" validate:"required"`
	Name                   string   `json:"name"`
	Type                   string   `json:"rule_type" validate:"required,oneof=weekly_threshold daily_threshold consecutive_day weekend_day"`
	HoursThreshold         *float64 `json:"hours_threshold,omitempty" validate:"omitempty,gt=0"`
	ConsecutiveDays        int      `json:"consecutive_days,omitempty" validate:"omitempty,min=2"`
	Multiplier             *float64 `json:"multiplier,omitempty" validate:"omitempty,gt=0"`
	DoubleTimeMultiplier   *float64 `json:"double_time_multiplier,omitempty" validate:"omitempty,gt=0"`
	PayTypes               []string `json:"pay_types,omitempty" validate:"omitempty,dive,oneof=hourly salary contract"`
	Weekdays               []string `json:"weekdays,omitempty" validate:"omitempty,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	RequiresPriorDayWorked bool     `json:"requires_prior_day_worked,omitempty"`
	OnlyOnThresholdDay     bool     `json:"only_on_threshold_day,omitempty"`
	Priority               int      `json:"priority,omitempty"`
	Active                 *bool    `json:"active,omitempty"`
	ShiftID                string   `json:"shift_id,omitempty"`
}

// HolidayJSON is the JSON representation of a company holiday.
type HolidayJSON struct {
	ID               string   `json:"id"`
	Name             string   `json:"name" validate:"required"`
	Date             string   `json:"date" validate:"required,datetime=2006-01-02"`
	Multiplier       *float64 `json:"multiplier,omitempty" validate:"omitempty,gt=0"`
	StandardHours    *float64 `json:"standard_hours,omitempty" validate:"omitempty,gte=0,lte=24"`
	RequireDayBefore bool     `json:"require_day_before,omitempty"`
	RequireDayAfter  bool     `json:"require_day_after,omitempty"`
	PaidIfNotWorked  bool     `json:"paid_if_not_worked,omitempty"`
	PayTypes         []string `json:"pay_types,omitempty" validate:"omitempty,dive,oneof=hourly salary contract hourly_fulltime hourly_parttime"`
	Active           *bool    `json:"active,omitempty"`
}

// EmployeeJSON is the JSON representation of the employee fields
// classification depends on.
type EmployeeJSON struct {
	ID                  string   `json:"id" validate:"required"`
	ExternalID          string   `json:"external_id,omitempty"`
	Name                string   `json:"name,omitempty"`
	PayType             string   `json:"pay_type" validate:"required,oneof=hourly salary contract"`
	FullTime            bool     `json:"full_time,omitempty"`
	OvertimeExempt      bool     `json:"overtime_exempt,omitempty"`
	SalaryOvertime      bool     `json:"salary_overtime,omitempty"`
	DoubleTimeThreshold *float64 `json:"double_time_threshold,omitempty" validate:"omitempty,gt=0"`
	OvertimeRate        *float64 `json:"overtime_rate,omitempty" validate:"omitempty,gt=0"`
	ShiftID             string   `json:"shift_id,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON configuration to Go structs.
type Factory struct {
	validate *validator.Validate
}

// NewFactory creates a factory whose validation errors use JSON field names.
func NewFactory() *Factory {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Factory{validate: v}
}

// ParseFrequency parses a frequency document.
func (f *Factory) ParseFrequency(data []byte) (*calendar.FrequencyConfig, error) {
	var fj FrequencyJSON
	if err := f.decode(data, "frequency", &fj); err != nil {
		return nil, err
	}
	return f.FrequencyFromJSON(fj)
}

// FrequencyFromJSON validates and converts a decoded frequency.
func (f *Factory) FrequencyFromJSON(fj FrequencyJSON) (*calendar.FrequencyConfig, error) {
	if err := f.check(&fj); err != nil {
		return nil, err
	}
	cfg := &calendar.FrequencyConfig{
		Name:              fj.Name,
		Type:              calendar.FrequencyType(fj.Type),
		FirstPayDay:       fj.FirstPayDay,
		SecondPayDay:      fj.SecondPayDay,
		MonthEndHandling:  calendar.MonthEndHandling(fj.MonthEndHandling),
		WeekendAdjustment: calendar.WeekendAdjustment(fj.WeekendAdjustment),
		SkipHolidays:      fj.SkipHolidays,
		NamePattern:       fj.NamePattern,
	}
	if fj.WeeklyDay != "" {
		cfg.WeeklyDay = weekdays[fj.WeeklyDay]
	} else {
		cfg.WeeklyDay = time.Friday
	}
	if fj.ReferenceDate != "" {
		d, err := generic.ParseDate(fj.ReferenceDate)
		if err != nil {
			return nil, generic.NewConfigurationError("reference_start_date", fj.ReferenceDate, err.Error())
		}
		cfg.ReferenceDate = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseRules parses an array of rule documents.
func (f *Factory) ParseRules(data []byte) ([]overtime.Rule, error) {
	var docs []RuleJSON
	if err := f.decode(data, "rules", &docs); err != nil {
		return nil, err
	}
	rules := make([]overtime.Rule, 0, len(docs))
	for _, rj := range docs {
		r, err := f.RuleFromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rj.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// RuleFromJSON validates and converts a decoded rule.
func (f *Factory) RuleFromJSON(rj RuleJSON) (overtime.Rule, error) {
	if err := f.check(&rj); err != nil {
		return overtime.Rule{}, err
	}
	category, err := overtime.ParseCategory(rj.Type)
	if err != nil {
		return overtime.Rule{}, err
	}
	r := overtime.Rule{
		ID:                     rj.ID,
		Name:                   rj.Name,
		Category:               category,
		HoursThreshold:         decimalOrZero(rj.HoursThreshold),
		ConsecutiveDays:        rj.ConsecutiveDays,
		Multiplier:             decimalOrZero(rj.Multiplier),
		DoubleTimeMultiplier:   decimalOrZero(rj.DoubleTimeMultiplier),
		RequiresPriorDayWorked: rj.RequiresPriorDayWorked,
		OnlyOnThresholdDay:     rj.OnlyOnThresholdDay,
		Priority:               rj.Priority,
		Active:                 rj.Active == nil || *rj.Active,
		ShiftID:                rj.ShiftID,
	}
	if r.Name == "" {
		r.Name = r.ID
	}
	for _, pt := range rj.PayTypes {
		r.PayTypes = append(r.PayTypes, generic.PayType(pt))
	}
	for _, wd := range rj.Weekdays {
		r.Weekdays = append(r.Weekdays, weekdays[wd])
	}
	if err := r.Validate(); err != nil {
		return overtime.Rule{}, generic.NewConfigurationError("rule", rj.ID, err.Error())
	}
	return r, nil
}

// ParseHolidays parses an array of holiday documents.
func (f *Factory) ParseHolidays(data []byte) ([]overtime.Holiday, error) {
	var docs []HolidayJSON
	if err := f.decode(data, "holidays", &docs); err != nil {
		return nil, err
	}
	holidays := make([]overtime.Holiday, 0, len(docs))
	for _, hj := range docs {
		h, err := f.HolidayFromJSON(hj)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", hj.Name, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, nil
}

// HolidayFromJSON validates and converts a decoded holiday. The id
// defaults to the date.
func (f *Factory) HolidayFromJSON(hj HolidayJSON) (overtime.Holiday, error) {
	if err := f.check(&hj); err != nil {
		return overtime.Holiday{}, err
	}
	d, err := generic.ParseDate(hj.Date)
	if err != nil {
		return overtime.Holiday{}, generic.NewConfigurationError("date", hj.Date, err.Error())
	}
	h := overtime.Holiday{
		ID:               hj.ID,
		Name:             hj.Name,
		Date:             d,
		Multiplier:       decimalOrZero(hj.Multiplier),
		StandardHours:    decimalOrZero(hj.StandardHours),
		RequireDayBefore: hj.RequireDayBefore,
		RequireDayAfter:  hj.RequireDayAfter,
		PaidIfNotWorked:  hj.PaidIfNotWorked,
		PayTypes:         hj.PayTypes,
		Active:           hj.Active == nil || *hj.Active,
	}
	if h.ID == "" {
		h.ID = d.String()
	}
	return h, nil
}

// ParseEmployees parses an array of employee documents.
func (f *Factory) ParseEmployees(data []byte) ([]generic.Employee, error) {
	var docs []EmployeeJSON
	if err := f.decode(data, "employees", &docs); err != nil {
		return nil, err
	}
	employees := make([]generic.Employee, 0, len(docs))
	for _, ej := range docs {
		e, err := f.EmployeeFromJSON(ej)
		if err != nil {
			return nil, fmt.Errorf("employee %q: %w", ej.ID, err)
		}
		employees = append(employees, e)
	}
	return employees, nil
}

// EmployeeFromJSON validates and converts a decoded employee.
func (f *Factory) EmployeeFromJSON(ej EmployeeJSON) (generic.Employee, error) {
	if err := f.check(&ej); err != nil {
		return generic.Employee{}, err
	}
	return generic.Employee{
		ID:                  generic.EmployeeID(ej.ID),
		ExternalID:          ej.ExternalID,
		Name:                ej.Name,
		PayType:             generic.PayType(ej.PayType),
		FullTime:            ej.FullTime,
		OvertimeExempt:      ej.OvertimeExempt,
		SalaryOvertime:      ej.SalaryOvertime,
		DoubleTimeThreshold: decimalPtr(ej.DoubleTimeThreshold),
		OvertimeRate:        decimalPtr(ej.OvertimeRate),
		ShiftID:             ej.ShiftID,
	}, nil
}

// =============================================================================
// FILES
// =============================================================================

// LoadFrequencyFile reads and parses a frequency document from disk.
func (f *Factory) LoadFrequencyFile(path string) (*calendar.FrequencyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frequency file: %w", err)
	}
	return f.ParseFrequency(data)
}

// LoadRulesFile reads and parses a rules document from disk.
func (f *Factory) LoadRulesFile(path string) ([]overtime.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return f.ParseRules(data)
}

// LoadHolidaysFile reads and parses a holidays document from disk.
func (f *Factory) LoadHolidaysFile(path string) ([]overtime.Holiday, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays file: %w", err)
	}
	return f.ParseHolidays(data)
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (f *Factory) decode(data []byte, what string, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return generic.NewConfigurationError(what, "", "failed to parse JSON: "+err.Error())
	}
	return nil
}

// check runs struct validation and reports the first failure.
func (f *Factory) check(v any) error {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		value := fmt.Sprint(e.Value())
		switch e.Tag() {
		case "required":
			return generic.NewConfigurationError(e.Field(), "", "is required")
		case "oneof":
			return generic.NewConfigurationError(e.Field(), value, "must be one of: "+e.Param())
		default:
			return generic.NewConfigurationError(e.Field(), value, "failed "+e.Tag()+" "+e.Param())
		}
	}
	return generic.NewConfigurationError("document", "", err.Error())
}

func decimalOrZero(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*f)
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
