/*
Package generic provides the shared primitives of the payroll hours engine.

PURPOSE:
  Domain-agnostic types used by every other package: calendar days,
  inclusive periods, hour quantities, employees, pay periods, persisted
  audit/summary records and the store interfaces that hold them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: decimal quantities (never float64 arithmetic)
  - DailyHours: worked hours keyed by calendar day
  - Employee: the attributes rule evaluation depends on
  - PayPeriod: a generated, persisted payroll window

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Type Safety: Strong typing for IDs prevents mixing employee/period IDs
  3. Explicit inputs: nothing in this package reads configuration

USAGE:
  hours := generic.DailyHoursFromFloats(map[generic.Date]float64{
      generic.NewDate(2025, time.January, 6): 8,
  })
  emp := generic.Employee{ID: "emp-123", PayType: generic.PayHourly}

SEE ALSO:
  - time.go: Date
  - period.go: Period
  - ledger.go: CalculationEntry and SummaryLine records
  - store.go: Persistence interfaces
*/
package generic

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS
// =============================================================================

// HoursPrecision is the number of decimal places reported hours are rounded to.
const HoursPrecision = 2

// Hours converts a float to a decimal hour quantity.
func Hours(h float64) decimal.Decimal { return decimal.NewFromFloat(h) }

// RoundHours rounds to HoursPrecision places.
func RoundHours(d decimal.Decimal) decimal.Decimal { return d.Round(HoursPrecision) }

// DailyHours maps calendar days to hours worked.
type DailyHours map[Date]decimal.Decimal

// DailyHoursFromFloats builds DailyHours from float input (API and fixtures).
func DailyHoursFromFloats(in map[Date]float64) DailyHours {
	out := make(DailyHours, len(in))
	for d, h := range in {
		out[d] = decimal.NewFromFloat(h)
	}
	return out
}

// Dates returns the keys in ascending order.
func (dh DailyHours) Dates() []Date {
	dates := make([]Date, 0, len(dh))
	for d := range dh {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Total sums all entries.
func (dh DailyHours) Total() decimal.Decimal {
	total := decimal.Zero
	for _, h := range dh {
		total = total.Add(h)
	}
	return total
}

// Within returns the subset of entries falling inside p.
func (dh DailyHours) Within(p Period) DailyHours {
	out := make(DailyHours)
	for d, h := range dh {
		if p.Contains(d) {
			out[d] = h
		}
	}
	return out
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	EmployeeID  string
	PayPeriodID string
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// PayType is the compensation basis of an employee.
type PayType string

const (
	PayHourly   PayType = "hourly"
	PaySalary   PayType = "salary"
	PayContract PayType = "contract"
)

// Employee carries only what hour classification depends on.
type Employee struct {
	ID         EmployeeID
	ExternalID string
	Name       string
	PayType    PayType
	FullTime   bool

	// OvertimeExempt removes the employee from every overtime rule.
	OvertimeExempt bool

	// SalaryOvertime puts a salaried employee back under overtime rules.
	SalaryOvertime bool

	// DoubleTimeThreshold overrides the engine's daily double-time threshold.
	DoubleTimeThreshold *decimal.Decimal

	// OvertimeRate overrides the overtime multiplier reported for default days.
	OvertimeRate *decimal.Decimal

	ShiftID string
}

// =============================================================================
// PAY PERIOD
// =============================================================================

// PayPeriod is one generated payroll window with inclusive bounds.
type PayPeriod struct {
	ID        PayPeriodID
	Name      string
	Start     Date
	End       Date
	PayDate   Date
	Processed bool
	Posted    bool
	CreatedAt time.Time
}

// Period returns the period's date range.
func (p PayPeriod) Period() Period { return Period{Start: p.Start, End: p.End} }

// SameBounds reports whether both periods cover the identical range.
func (p PayPeriod) SameBounds(other PayPeriod) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}
