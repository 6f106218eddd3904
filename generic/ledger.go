/*
ledger.go - Audit and summary records

PURPOSE:
  Every classified day is recorded as a CalculationEntry so that any
  reported overtime or double-time hour can be traced back to the rule
  or holiday that produced it. Aggregated hours per classification are
  recorded as SummaryLines for downstream export.

CRITICAL INVARIANTS:
  1. ONE ROW PER KEY: a CalculationEntry is unique per
     (employee, pay period, work date); re-running an evaluation
     overwrites the row with an identical one.
  2. ONE LINE PER BUCKET: a SummaryLine is unique per
     (pay period, employee, classification).
  3. REPRODUCIBLE: the context map is serialized with sorted keys, so the
     same inputs always produce byte-identical rows.

SEE ALSO:
  - store.go: CalculationLog and SummaryStore interfaces
  - overtime/audit.go: Builds entries from day results
  - payroll/summary.go: Builds summary lines
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATION ENTRY - One classified day
// =============================================================================

type CalculationEntry struct {
	EmployeeID  EmployeeID
	PayPeriodID PayPeriodID
	WorkDate    Date

	TotalHours      decimal.Decimal
	RegularHours    decimal.Decimal
	OvertimeHours   decimal.Decimal
	DoubleTimeHours decimal.Decimal
	HolidayHours    decimal.Decimal

	RuleID    string // empty when no rule applied
	HolidayID string // empty when not a holiday
	Reason    string
	Context   map[string]any

	OvertimeMultiplier   decimal.Decimal
	DoubleTimeMultiplier decimal.Decimal

	CalculatedAt time.Time
}

// CalculationKey is the uniqueness key of a CalculationEntry.
type CalculationKey struct {
	EmployeeID  EmployeeID
	PayPeriodID PayPeriodID
	WorkDate    Date
}

func (e CalculationEntry) Key() CalculationKey {
	return CalculationKey{EmployeeID: e.EmployeeID, PayPeriodID: e.PayPeriodID, WorkDate: e.WorkDate}
}

// CalculationFilter narrows CalculationLog queries. Zero fields match everything.
type CalculationFilter struct {
	EmployeeID  EmployeeID
	PayPeriodID PayPeriodID
}

// Matches reports whether the entry passes the filter.
func (f CalculationFilter) Matches(e CalculationEntry) bool {
	if f.EmployeeID != "" && f.EmployeeID != e.EmployeeID {
		return false
	}
	if f.PayPeriodID != "" && f.PayPeriodID != e.PayPeriodID {
		return false
	}
	return true
}

// =============================================================================
// SUMMARY LINE - Hours per classification
// =============================================================================

type SummaryLine struct {
	PayPeriodID    PayPeriodID
	EmployeeID     EmployeeID
	Classification Classification
	Hours          decimal.Decimal
	Finalized      bool
	UpdatedAt      time.Time
}

// SummaryKey is the uniqueness key of a SummaryLine.
type SummaryKey struct {
	PayPeriodID    PayPeriodID
	EmployeeID     EmployeeID
	Classification Classification
}

func (l SummaryLine) Key() SummaryKey {
	return SummaryKey{PayPeriodID: l.PayPeriodID, EmployeeID: l.EmployeeID, Classification: l.Classification}
}
