/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Calendar:   GenerateCalendarRequest, PayPeriodDTO
  Overtime:   EvaluateRequest, EvaluateResponse, DayDTO, CalculationDTO
  Payroll:    AggregateRequest, EmployeeInputDTO, PunchDTO, LeaveDTO, SummaryLineDTO
  Errors:     ErrorResponse

VALIDATION:
  Employees, rules, holidays and frequencies reuse the factory JSON types
  and go through factory validation. Dates are YYYY-MM-DD strings.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/factory.go: FrequencyJSON, RuleJSON, HolidayJSON, EmployeeJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// CALENDAR
// =============================================================================

// GenerateCalendarRequest asks for the pay periods of a frequency over a range.
// Save persists new periods; existing ones are left untouched.
type GenerateCalendarRequest struct {
	Frequency factory.FrequencyJSON `json:"frequency"`
	Start     string                `json:"start"`
	End       string                `json:"end"`
	Save      bool                  `json:"save"`
}

// PayPeriodDTO represents a pay period in API responses.
type PayPeriodDTO struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	PayDate     string `json:"pay_date"`
	IsProcessed bool   `json:"is_processed"`
	IsPosted    bool   `json:"is_posted"`
}

func toPayPeriodDTO(p generic.PayPeriod) PayPeriodDTO {
	return PayPeriodDTO{
		ID:          string(p.ID),
		Name:        p.Name,
		StartDate:   p.Start.String(),
		EndDate:     p.End.String(),
		PayDate:     p.PayDate.String(),
		IsProcessed: p.Processed,
		IsPosted:    p.Posted,
	}
}

func toPayPeriodDTOs(periods []generic.PayPeriod) []PayPeriodDTO {
	dtos := make([]PayPeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPayPeriodDTO(p)
	}
	return dtos
}

// GenerateCalendarResponse lists generated periods. Created counts rows
// written when the request asked to save.
type GenerateCalendarResponse struct {
	Periods []PayPeriodDTO `json:"periods"`
	Created int            `json:"created"`
}

// =============================================================================
// OVERTIME
// =============================================================================

// PeriodRef selects a pay period, either stored (ID) or ad hoc (Start/End).
type PeriodRef struct {
	ID    string `json:"id,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// EvaluateRequest classifies one employee's daily hours. Rules and holidays
// replace the server's configured ones when given.
type EvaluateRequest struct {
	Employee   factory.EmployeeJSON  `json:"employee"`
	PayPeriod  PeriodRef             `json:"pay_period"`
	DailyHours map[string]float64    `json:"daily_hours"`
	Rules      []factory.RuleJSON    `json:"rules,omitempty"`
	Holidays   []factory.HolidayJSON `json:"holidays,omitempty"`
}

// DayDTO is one classified day.
type DayDTO struct {
	Date            string          `json:"date"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	RegularHours    decimal.Decimal `json:"regular_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	DoubleTimeHours decimal.Decimal `json:"double_time_hours"`
	HolidayHours    decimal.Decimal `json:"holiday_hours"`
	RuleID          string          `json:"rule_id,omitempty"`
	HolidayID       string          `json:"holiday_id,omitempty"`
	Reason          string          `json:"reason"`
	Context         map[string]any  `json:"context,omitempty"`
}

// EvaluateResponse is the period summary plus every classified day.
type EvaluateResponse struct {
	overtime.Summary
	Days   []DayDTO `json:"days"`
	Errors []string `json:"errors,omitempty"`
}

func toEvaluateResponse(pr *overtime.PeriodResult) EvaluateResponse {
	days := pr.Days()
	resp := EvaluateResponse{Summary: pr.Summary(), Days: make([]DayDTO, len(days))}
	for i, d := range days {
		resp.Days[i] = DayDTO{
			Date:            d.Date.String(),
			TotalHours:      d.TotalHours,
			RegularHours:    d.RegularHours,
			OvertimeHours:   d.OvertimeHours,
			DoubleTimeHours: d.DoubleTimeHours,
			HolidayHours:    d.HolidayHours,
			RuleID:          d.RuleID(),
			HolidayID:       d.HolidayID(),
			Reason:          d.Reason,
			Context:         d.Context,
		}
	}
	for _, err := range pr.Errors {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return resp
}

// CalculationDTO represents one audit row.
type CalculationDTO struct {
	EmployeeID           string          `json:"employee_id"`
	PayPeriodID          string          `json:"pay_period_id"`
	WorkDate             string          `json:"work_date"`
	TotalHours           decimal.Decimal `json:"total_hours"`
	RegularHours         decimal.Decimal `json:"regular_hours"`
	OvertimeHours        decimal.Decimal `json:"overtime_hours"`
	DoubleTimeHours      decimal.Decimal `json:"double_time_hours"`
	HolidayHours         decimal.Decimal `json:"holiday_hours"`
	RuleID               string          `json:"rule_id,omitempty"`
	HolidayID            string          `json:"holiday_id,omitempty"`
	Reason               string          `json:"reason"`
	Context              map[string]any  `json:"calculation_context,omitempty"`
	OvertimeMultiplier   decimal.Decimal `json:"overtime_multiplier"`
	DoubleTimeMultiplier decimal.Decimal `json:"double_time_multiplier"`
	CalculatedAt         string          `json:"calculated_at"`
}

func toCalculationDTO(e generic.CalculationEntry) CalculationDTO {
	return CalculationDTO{
		EmployeeID:           string(e.EmployeeID),
		PayPeriodID:          string(e.PayPeriodID),
		WorkDate:             e.WorkDate.String(),
		TotalHours:           e.TotalHours,
		RegularHours:         e.RegularHours,
		OvertimeHours:        e.OvertimeHours,
		DoubleTimeHours:      e.DoubleTimeHours,
		HolidayHours:         e.HolidayHours,
		RuleID:               e.RuleID,
		HolidayID:            e.HolidayID,
		Reason:               e.Reason,
		Context:              e.Context,
		OvertimeMultiplier:   e.OvertimeMultiplier,
		DoubleTimeMultiplier: e.DoubleTimeMultiplier,
		CalculatedAt:         e.CalculatedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// PunchDTO is one clock event.
type PunchDTO struct {
	At        time.Time `json:"at"`
	ShiftDate string    `json:"shift_date,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	State     string    `json:"state,omitempty"`
	TypeName  string    `json:"type_name"`
	Status    string    `json:"status,omitempty"`
}

// LeaveDTO is one leave day with its classification code.
type LeaveDTO struct {
	Date   string `json:"date"`
	Code   string `json:"code"`
	Status string `json:"status,omitempty"`
}

type EmployeeInputDTO struct {
	Employee factory.EmployeeJSON `json:"employee"`
	Punches  []PunchDTO           `json:"punches"`
	Leaves   []LeaveDTO           `json:"leaves,omitempty"`
}

// AggregateRequest aggregates the attendance of several employees for a stored period.
type AggregateRequest struct {
	PayPeriodID string             `json:"pay_period_id"`
	Employees   []EmployeeInputDTO `json:"employees"`
}

// AggregateResponse holds one summary per employee, in request order.
type AggregateResponse struct {
	PayPeriod PayPeriodDTO       `json:"pay_period"`
	Summaries []*payroll.Summary `json:"summaries"`
}

// SummaryLineDTO represents one stored classification total.
type SummaryLineDTO struct {
	EmployeeID     string          `json:"employee_id"`
	Classification string          `json:"classification"`
	Hours          decimal.Decimal `json:"hours"`
	IsFinalized    bool            `json:"is_finalized"`
}

func toSummaryLineDTOs(lines []generic.SummaryLine) []SummaryLineDTO {
	dtos := make([]SummaryLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = SummaryLineDTO{
			EmployeeID:     string(l.EmployeeID),
			Classification: string(l.Classification),
			Hours:          l.Hours,
			IsFinalized:    l.Finalized,
		}
	}
	return dtos
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
