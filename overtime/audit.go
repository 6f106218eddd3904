package overtime

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/generic"
)

// Entry builds the audit row for a day of a result.
func (pr *PeriodResult) Entry(day *DayResult) generic.CalculationEntry {
	otRate := day.OvertimeMultiplier()
	if day.Rule == nil && pr.Employee.OvertimeRate != nil && pr.Employee.OvertimeRate.IsPositive() {
		otRate = *pr.Employee.OvertimeRate
	}
	ctx := make(map[string]any, len(day.Context))
	for k, v := range day.Context {
		ctx[k] = v
	}
	return generic.CalculationEntry{
		EmployeeID:           pr.Employee.ID,
		PayPeriodID:          pr.PayPeriod.ID,
		WorkDate:             day.Date,
		TotalHours:           day.TotalHours,
		RegularHours:         day.RegularHours,
		OvertimeHours:        day.OvertimeHours,
		DoubleTimeHours:      day.DoubleTimeHours,
		HolidayHours:         day.HolidayHours,
		RuleID:               day.RuleID(),
		HolidayID:            day.HolidayID(),
		Reason:               day.Reason,
		Context:              ctx,
		OvertimeMultiplier:   otRate,
		DoubleTimeMultiplier: day.DoubleTimeMultiplier(),
	}
}

// record logs every final day result and writes it to the audit sink.
// Sink failures are logged and never abort the evaluation.
func (e *Engine) record(ctx context.Context, result *PeriodResult) {
	base := e.log.WithFields(logrus.Fields{
		"employee_id":   result.Employee.ID,
		"pay_period_id": result.PayPeriod.ID,
	})

	for _, day := range result.Days() {
		entry := result.Entry(day)
		entry.CalculatedAt = e.now()

		base.WithFields(logrus.Fields{
			"date":        day.Date.String(),
			"total":       day.TotalHours.String(),
			"regular":     day.RegularHours.String(),
			"overtime":    day.OvertimeHours.String(),
			"double_time": day.DoubleTimeHours.String(),
			"holiday":     day.HolidayHours.String(),
			"rule_id":     entry.RuleID,
			"holiday_id":  entry.HolidayID,
			"ot_rate":     entry.OvertimeMultiplier.String(),
			"dt_rate":     entry.DoubleTimeMultiplier.String(),
			"reason":      day.Reason,
		}).Debug("day classified")

		if e.audit == nil {
			continue
		}
		if err := e.audit.RecordCalculation(ctx, entry); err != nil {
			base.WithError(err).WithField("date", day.Date.String()).Warn("failed to record overtime calculation")
		}
	}

	for _, err := range result.Errors {
		base.WithError(err).Warn("overtime input skipped")
	}

	base.WithFields(logrus.Fields{
		"exempt":      result.Exempt,
		"days":        len(result.days),
		"regular":     result.RegularHours().String(),
		"overtime":    result.OvertimeHours().String(),
		"double_time": result.DoubleTimeHours().String(),
		"holiday":     result.HolidayHours().String(),
	}).Info("overtime evaluated")
}
