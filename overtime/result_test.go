package overtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
)

func dateStrings(ds []generic.Date) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

func TestDayResult_Constructors(t *testing.T) {
	rule := &overtime.Rule{ID: "r", Name: "Sunday premium", Multiplier: dec(1.75)}
	holiday := &overtime.Holiday{ID: "h", Name: "Labor Day"}
	d := date("2025-09-01")

	reg := overtime.AllRegular(d, dec(8), "")
	assert.Equal(t, "Regular work day", reg.Reason)
	assert.False(t, reg.HasSpecialHours())

	ot := overtime.AllOvertime(d, dec(8), rule, "")
	assert.Equal(t, "Overtime: Sunday premium", ot.Reason)
	assert.Equal(t, "1.75", ot.OvertimeMultiplier().String())
	assertHours(t, 14, ot.EquivalentHours())

	dt := overtime.AllDoubleTime(d, dec(4), rule, "")
	assert.Equal(t, "Double-time: Sunday premium", dt.Reason)
	assert.Equal(t, "2", dt.DoubleTimeMultiplier().String(), "unset double-time multiplier defaults to 2")

	hol := overtime.AllHoliday(d, dec(8), holiday, "")
	assert.Equal(t, "Holiday: Labor Day", hol.Reason)
	assertHours(t, 16, hol.EquivalentHours())
	assertHours(t, 8, hol.NonRegularHours())

	ex := overtime.Exempt(d, dec(10), "")
	assert.Equal(t, "Overtime exempt employee", ex.Reason)
	assertHours(t, 10, ex.RegularHours)

	for _, r := range []*overtime.DayResult{reg, ot, dt, hol, ex} {
		assert.True(t, r.Balanced(), r.String())
	}
}

func TestDayResult_String(t *testing.T) {
	r := overtime.AllRegular(date("2025-01-01"), dec(8), "")
	assert.Equal(t, "2025-01-01: 8h reg (Regular work day)", r.String())
}

func TestPeriodResult_WeeklyConversionWalksBackward(t *testing.T) {
	// GIVEN: a week whose last day already carries daily overtime
	pr := overtime.NewPeriodResult(hourly("e1"), generic.PayPeriod{})
	for _, d := range []string{"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-09"} {
		pr.AddDay(overtime.AllRegular(date(d), dec(10), ""))
	}
	split := overtime.AllRegular(date("2025-01-10"), dec(10), "Daily threshold (8h) exceeded")
	split.RegularHours = dec(8)
	split.OvertimeHours = dec(2)
	pr.AddDay(split)

	// WHEN: 48 regular hours against a 40h threshold
	pr.ApplyWeeklyThreshold(dec(40), dec(1.5))

	// THEN: Friday gives up all 8 regular hours, Thursday is untouched
	fri := pr.Day(date("2025-01-10"))
	assertHours(t, 0, fri.RegularHours)
	assertHours(t, 10, fri.OvertimeHours)
	assert.Equal(t, "Daily threshold (8h) exceeded + Weekly threshold OT", fri.Reason)
	assertHours(t, 10, pr.Day(date("2025-01-09")).RegularHours)

	weeks := pr.Weeks()
	require.Len(t, weeks, 1)
	assertHours(t, 40, weeks[0].Regular)
	assertHours(t, 10, weeks[0].Overtime)
	assertHours(t, 50, weeks[0].Total)
}

func TestPeriodResult_WeeklyConversionSpansDays(t *testing.T) {
	pr := overtime.NewPeriodResult(hourly("e1"), generic.PayPeriod{})
	for _, d := range []string{"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-09", "2025-01-10"} {
		pr.AddDay(overtime.AllRegular(date(d), dec(9), ""))
	}

	pr.ApplyWeeklyThreshold(dec(36), dec(1.5))

	assertHours(t, 0, pr.Day(date("2025-01-10")).RegularHours)
	assertHours(t, 9, pr.Day(date("2025-01-10")).OvertimeHours)
	assertHours(t, 9, pr.Day(date("2025-01-09")).RegularHours)
	assertHours(t, 36, pr.RegularHours())
}

func TestPeriodResult_WeeksSplitOnSunday(t *testing.T) {
	pr := overtime.NewPeriodResult(hourly("e1"), generic.PayPeriod{})
	pr.AddDay(overtime.AllRegular(date("2025-01-11"), dec(5), "")) // Saturday
	pr.AddDay(overtime.AllRegular(date("2025-01-12"), dec(6), "")) // Sunday

	weeks := pr.Weeks()
	require.Len(t, weeks, 2)
	assert.Equal(t, date("2025-01-05"), weeks[0].Start)
	assert.Equal(t, date("2025-01-12"), weeks[1].Start)
	assert.True(t, weeks[1].Threshold.IsZero(), "no weekly pass ran")

	s := pr.Summary()
	assert.Equal(t, 2, s.DaysWorked)
	assertHours(t, 11, s.Total)
}
