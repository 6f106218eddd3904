package factory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
)

func TestParseFrequency(t *testing.T) {
	f := factory.NewFactory()

	cfg, err := f.ParseFrequency([]byte(`{
		"name": "Semi-monthly",
		"frequency_type": "semimonthly",
		"first_pay_day": 15,
		"second_pay_day": 99,
		"weekend_adjustment": "previous_friday",
		"name_pattern": "{start_month_short} {start_day}-{end_day}, {year}"
	}`))
	require.NoError(t, err)

	assert.Equal(t, calendar.Semimonthly, cfg.Type)
	assert.Equal(t, 15, cfg.FirstPayDay)
	assert.Equal(t, calendar.LastDayOfMonth, cfg.SecondPayDay)
	assert.Equal(t, calendar.WeekendPreviousFriday, cfg.WeekendAdjustment)
	assert.Nil(t, cfg.ReferenceDate)
}

func TestParseFrequency_Biweekly(t *testing.T) {
	f := factory.NewFactory()

	cfg, err := f.ParseFrequency([]byte(`{"frequency_type": "biweekly", "reference_start_date": "2025-01-10"}`))
	require.NoError(t, err)
	require.NotNil(t, cfg.ReferenceDate)
	assert.Equal(t, "2025-01-10", cfg.ReferenceDate.String())

	weekly, err := f.ParseFrequency([]byte(`{"frequency_type": "weekly", "weekly_day": "sunday"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, weekly.WeeklyDay)
}

func TestParseFrequency_Invalid(t *testing.T) {
	f := factory.NewFactory()
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"malformed", `{"frequency_type":`, "failed to parse JSON"},
		{"missing type", `{"name": "x"}`, "frequency_type"},
		{"unknown type", `{"frequency_type": "quarterly"}`, "must be one of"},
		{"bad reference date", `{"frequency_type": "biweekly", "reference_start_date": "10/01/2025"}`, "reference_start_date"},
		{"biweekly without reference", `{"frequency_type": "biweekly"}`, "reference date"},
		{"monthly without pay day", `{"frequency_type": "monthly"}`, "first_pay_day"},
		{"bad weekend adjustment", `{"frequency_type": "monthly", "first_pay_day": 1, "weekend_adjustment": "sometimes"}`, "weekend_adjustment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseFrequency([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, generic.IsConfigurationError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseRules(t *testing.T) {
	f := factory.NewFactory()

	rules, err := f.ParseRules([]byte(`[
		{"id": "weekly-40", "name": "Weekly 40", "rule_type": "weekly_threshold", "hours_threshold": 40, "multiplier": 1.5, "priority": 1},
		{"id": "sat", "rule_type": "weekend_day", "weekdays": ["saturday"], "requires_prior_day_worked": true, "double_time_multiplier": 2, "active": false},
		{"id": "7th", "rule_type": "consecutive_day", "consecutive_days": 7, "only_on_threshold_day": true, "pay_types": ["hourly", "contract"]}
	]`))
	require.NoError(t, err)
	require.Len(t, rules, 3)

	weekly := rules[0]
	assert.Equal(t, overtime.WeeklyThreshold, weekly.Category)
	assert.True(t, weekly.HoursThreshold.Equal(decimal.NewFromInt(40)))
	assert.True(t, weekly.OvertimeMultiplier().Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, weekly.Active, "active defaults to true")

	sat := rules[1]
	assert.Equal(t, "sat", sat.Name, "name defaults to id")
	assert.Equal(t, []time.Weekday{time.Saturday}, sat.Weekdays)
	assert.False(t, sat.Active)
	assert.True(t, sat.RequiresPriorDayWorked)

	seventh := rules[2]
	assert.Equal(t, 7, seventh.ConsecutiveDays)
	assert.Equal(t, []generic.PayType{generic.PayHourly, generic.PayContract}, seventh.PayTypes)
	assert.True(t, seventh.DoubleTimeRate().Equal(decimal.NewFromInt(2)), "engine default applies")
}

func TestParseRules_Invalid(t *testing.T) {
	f := factory.NewFactory()
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing id", `[{"rule_type": "weekly_threshold", "hours_threshold": 40}]`, "id"},
		{"unknown type", `[{"id": "r", "rule_type": "monthly_threshold"}]`, "rule_type"},
		{"daily without threshold", `[{"id": "r", "rule_type": "daily_threshold"}]`, "hours threshold"},
		{"bad weekday", `[{"id": "r", "rule_type": "weekend_day", "weekdays": ["caturday"]}]`, "weekdays"},
		{"negative multiplier", `[{"id": "r", "rule_type": "weekend_day", "multiplier": -1}]`, "multiplier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseRules([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, generic.IsConfigurationError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseHolidays(t *testing.T) {
	f := factory.NewFactory()

	holidays, err := f.ParseHolidays([]byte(`[
		{"id": "new-year", "name": "New Year's Day", "date": "2025-01-01", "multiplier": 2.5,
		 "standard_hours": 8, "paid_if_not_worked": true, "pay_types": ["hourly_fulltime"]},
		{"name": "Labor Day", "date": "2025-09-01", "require_day_before": true}
	]`))
	require.NoError(t, err)
	require.Len(t, holidays, 2)

	ny := holidays[0]
	assert.Equal(t, "2025-01-01", ny.Date.String())
	assert.True(t, ny.Rate().Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, ny.StandardHours.Equal(decimal.NewFromInt(8)))
	assert.True(t, ny.Active)
	assert.True(t, ny.AppliesTo(generic.Employee{PayType: generic.PayHourly, FullTime: true}))
	assert.False(t, ny.AppliesTo(generic.Employee{PayType: generic.PayHourly}))

	labor := holidays[1]
	assert.Equal(t, "2025-09-01", labor.ID, "id defaults to the date")
	assert.True(t, labor.Rate().Equal(decimal.NewFromInt(2)))

	_, err = f.ParseHolidays([]byte(`[{"name": "Broken", "date": "2025-13-40"}]`))
	require.Error(t, err)
	assert.True(t, generic.IsConfigurationError(err))
}

func TestParseEmployees(t *testing.T) {
	f := factory.NewFactory()

	employees, err := f.ParseEmployees([]byte(`[
		{"id": "e1", "name": "Dana Ortiz", "pay_type": "hourly", "full_time": true, "double_time_threshold": 10},
		{"id": "e2", "pay_type": "salary", "salary_overtime": true, "overtime_rate": 1.75}
	]`))
	require.NoError(t, err)
	require.Len(t, employees, 2)

	require.NotNil(t, employees[0].DoubleTimeThreshold)
	assert.True(t, employees[0].DoubleTimeThreshold.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, employees[0].OvertimeRate)
	assert.Equal(t, generic.PaySalary, employees[1].PayType)
	assert.True(t, employees[1].SalaryOvertime)

	_, err = f.ParseEmployees([]byte(`[{"id": "e3", "pay_type": "volunteer"}]`))
	var ce *generic.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "pay_type", ce.Field)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`[{"id": "d8", "rule_type": "daily_threshold", "hours_threshold": 8}]`), 0o600))

	f := factory.NewFactory()
	rules, err := f.LoadRulesFile(rulesPath)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = f.LoadHolidaysFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
