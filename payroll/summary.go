package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
)

// WeekBreakdown is one Sunday-start week of a summary.
type WeekBreakdown struct {
	Label      string          `json:"label"`
	Start      generic.Date    `json:"start"`
	End        generic.Date    `json:"end"`
	Total      decimal.Decimal `json:"total_hours"`
	Regular    decimal.Decimal `json:"regular"`
	Overtime   decimal.Decimal `json:"overtime"`
	DoubleTime decimal.Decimal `json:"double_time"`
	Holiday    decimal.Decimal `json:"holiday"`
}

// Summary is one employee's hours for one pay period, ready for export.
type Summary struct {
	EmployeeID   generic.EmployeeID  `json:"employee_id"`
	ExternalID   string              `json:"employee_external_id,omitempty"`
	EmployeeName string              `json:"employee_name"`
	PayPeriodID  generic.PayPeriodID `json:"pay_period_id"`

	Regular    decimal.Decimal `json:"regular_hours"`
	Overtime   decimal.Decimal `json:"overtime_hours"`
	DoubleTime decimal.Decimal `json:"double_time_hours"`
	Vacation   decimal.Decimal `json:"vacation_hours"`
	Holiday    decimal.Decimal `json:"holiday_hours"`
	Sick       decimal.Decimal `json:"sick_hours"`
	PTO        decimal.Decimal `json:"pto_hours"`
	Other      decimal.Decimal `json:"other_hours"`
	Total      decimal.Decimal `json:"total_hours"`

	Daily generic.DailyHours `json:"daily_breakdown"`
	Weeks []WeekBreakdown    `json:"weekly_breakdown"`

	Exempt       bool     `json:"is_exempt"`
	ExemptReason string   `json:"exempt_reason,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Lines returns one summary line per classification with positive hours.
func (s *Summary) Lines() []generic.SummaryLine {
	buckets := []struct {
		class generic.Classification
		hours decimal.Decimal
	}{
		{generic.ClassRegular, s.Regular},
		{generic.ClassOvertime, s.Overtime},
		{generic.ClassDoubleTime, s.DoubleTime},
		{generic.ClassVacation, s.Vacation},
		{generic.ClassHoliday, s.Holiday},
		{generic.ClassSick, s.Sick},
		{generic.ClassPTO, s.PTO},
		{generic.ClassOther, s.Other},
	}
	var lines []generic.SummaryLine
	for _, b := range buckets {
		if !b.hours.IsPositive() {
			continue
		}
		lines = append(lines, generic.SummaryLine{
			PayPeriodID:    s.PayPeriodID,
			EmployeeID:     s.EmployeeID,
			Classification: b.class,
			Hours:          b.hours,
		})
	}
	return lines
}

func weekBreakdowns(weeks []overtime.WeekSummary) []WeekBreakdown {
	out := make([]WeekBreakdown, 0, len(weeks))
	for i, w := range weeks {
		out = append(out, WeekBreakdown{
			Label:      fmt.Sprintf("week_%d", i+1),
			Start:      w.Start,
			End:        w.End,
			Total:      generic.RoundHours(w.Total),
			Regular:    generic.RoundHours(w.Regular),
			Overtime:   generic.RoundHours(w.Overtime),
			DoubleTime: generic.RoundHours(w.DoubleTime),
			Holiday:    generic.RoundHours(w.Holiday),
		})
	}
	return out
}
