package overtime

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

// Holiday eligibility codes beyond plain pay types.
const (
	EligibleHourlyFullTime = "hourly_fulltime"
	EligibleHourlyPartTime = "hourly_parttime"
)

// Holiday is a dated company holiday.
type Holiday struct {
	ID            string
	Name          string
	Date          generic.Date
	Multiplier    decimal.Decimal
	StandardHours decimal.Decimal

	RequireDayBefore bool
	RequireDayAfter  bool
	PaidIfNotWorked  bool

	// PayTypes holds pay types or hourly_fulltime/hourly_parttime. Empty means everyone.
	PayTypes []string
	Active   bool
}

// Rate returns the holiday multiplier or 2.0.
func (h *Holiday) Rate() decimal.Decimal {
	if h == nil || h.Multiplier.IsZero() {
		return DefaultHolidayMultiplier
	}
	return h.Multiplier
}

// AppliesTo checks pay-type eligibility.
func (h *Holiday) AppliesTo(emp generic.Employee) bool {
	if len(h.PayTypes) == 0 {
		return true
	}
	if emp.PayType == generic.PayHourly {
		want := EligibleHourlyPartTime
		if emp.FullTime {
			want = EligibleHourlyFullTime
		}
		for _, pt := range h.PayTypes {
			if pt == want || pt == string(generic.PayHourly) {
				return true
			}
		}
		return false
	}
	for _, pt := range h.PayTypes {
		if pt == string(emp.PayType) {
			return true
		}
	}
	return false
}

// Qualifies checks eligibility plus the day-before/day-after requirements
// against every day the tracker knows, not only the pay period.
func (h *Holiday) Qualifies(emp generic.Employee, t *Tracker) bool {
	if !h.AppliesTo(emp) {
		return false
	}
	if h.RequireDayBefore && !t.WorkedOn(h.Date.AddDays(-1)) {
		return false
	}
	if h.RequireDayAfter && !t.WorkedOn(h.Date.AddDays(1)) {
		return false
	}
	return true
}

// Validate reports a holiday the engine cannot apply.
func (h *Holiday) Validate() error {
	if h.Date.IsZero() {
		return fmt.Errorf("holiday %q has no date", h.Name)
	}
	if h.Multiplier.IsNegative() {
		return fmt.Errorf("holiday %q has a negative multiplier", h.Name)
	}
	return nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// HolidayCalendar indexes active holidays by date. The first holiday
// configured for a date wins.
type HolidayCalendar struct {
	byDate map[generic.Date]*Holiday
}

func NewHolidayCalendar(holidays []Holiday) HolidayCalendar {
	cal := HolidayCalendar{byDate: make(map[generic.Date]*Holiday)}
	for i := range holidays {
		h := holidays[i]
		if !h.Active {
			continue
		}
		if _, taken := cal.byDate[h.Date]; taken {
			continue
		}
		cal.byDate[h.Date] = &h
	}
	return cal
}

// On returns the holiday on d, nil if none.
func (c HolidayCalendar) On(d generic.Date) *Holiday {
	return c.byDate[d]
}

// Within returns the holidays inside p.
func (c HolidayCalendar) Within(p generic.Period) []*Holiday {
	var out []*Holiday
	for _, d := range p.Days() {
		if h := c.byDate[d]; h != nil {
			out = append(out, h)
		}
	}
	return out
}
