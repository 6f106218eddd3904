package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// FREQUENCY CONFIGURATION
// =============================================================================

type FrequencyType string

const (
	Weekly      FrequencyType = "weekly"
	Biweekly    FrequencyType = "biweekly"
	Semimonthly FrequencyType = "semimonthly"
	Monthly     FrequencyType = "monthly"
)

// Sentinel pay-day numbers.
const (
	LastDayOfMonth    = 99
	FirstDayNextMonth = 98
)

// MonthEndHandling decides what a literal pay day beyond the month's length means.
type MonthEndHandling string

const (
	MonthEndLastDay   MonthEndHandling = "last_day_of_month"
	MonthEndNextMonth MonthEndHandling = "first_day_next_month"
	MonthEndExactDay  MonthEndHandling = "exact_day"
)

type WeekendAdjustment string

const (
	WeekendNone           WeekendAdjustment = "none"
	WeekendPreviousFriday WeekendAdjustment = "previous_friday"
	WeekendNextMonday     WeekendAdjustment = "next_monday"
	WeekendClosestWeekday WeekendAdjustment = "closest_weekday"
)

// FrequencyConfig is a company's payroll cadence.
type FrequencyConfig struct {
	Name string
	Type FrequencyType

	// ReferenceDate anchors the biweekly cycle. It is the last day of one period.
	ReferenceDate *generic.Date

	// WeeklyDay is the weekday weekly periods end on.
	WeeklyDay time.Weekday

	// FirstPayDay and SecondPayDay are day-of-month numbers or sentinels.
	// Monthly uses FirstPayDay only.
	FirstPayDay  int
	SecondPayDay int

	MonthEndHandling  MonthEndHandling
	WeekendAdjustment WeekendAdjustment

	// SkipHolidays is accepted but holiday pay-date adjustment is not applied.
	SkipHolidays bool

	// NamePattern feeds the Namer. Empty means DefaultNamePattern.
	NamePattern string
}

// Validate checks the configuration is complete for its frequency type.
func (c *FrequencyConfig) Validate() error {
	if c == nil {
		return generic.NewConfigurationError("frequency", "", "company payroll frequency not configured")
	}
	switch c.Type {
	case Weekly:
		if c.WeeklyDay < time.Sunday || c.WeeklyDay > time.Saturday {
			return generic.NewConfigurationError("weekly_day", strconv.Itoa(int(c.WeeklyDay)), "must be 0 (Sunday) through 6 (Saturday)")
		}
	case Biweekly:
		if c.ReferenceDate == nil || c.ReferenceDate.IsZero() {
			return generic.NewConfigurationError("reference_start_date", "", "biweekly frequency requires a reference date")
		}
	case Semimonthly:
		if err := validPayDay("first_pay_day", c.FirstPayDay); err != nil {
			return err
		}
		if err := validPayDay("second_pay_day", c.SecondPayDay); err != nil {
			return err
		}
	case Monthly:
		if err := validPayDay("first_pay_day", c.FirstPayDay); err != nil {
			return err
		}
	default:
		return generic.NewConfigurationError("frequency_type", string(c.Type), "unsupported frequency type")
	}

	switch c.MonthEndHandling {
	case "", MonthEndLastDay, MonthEndNextMonth, MonthEndExactDay:
	default:
		return generic.NewConfigurationError("month_end_handling", string(c.MonthEndHandling), "unsupported month end handling")
	}
	switch c.WeekendAdjustment {
	case "", WeekendNone, WeekendPreviousFriday, WeekendNextMonday, WeekendClosestWeekday:
	default:
		return generic.NewConfigurationError("weekend_adjustment", string(c.WeekendAdjustment), "unsupported weekend adjustment")
	}
	return nil
}

func validPayDay(field string, day int) error {
	if day == LastDayOfMonth || day == FirstDayNextMonth {
		return nil
	}
	if day < 1 || day > 31 {
		return generic.NewConfigurationError(field, strconv.Itoa(day), "must be 1-31, 98 or 99")
	}
	return nil
}

func (c *FrequencyConfig) String() string {
	if c == nil {
		return "<unconfigured>"
	}
	return fmt.Sprintf("%s(%s)", c.Type, c.Name)
}
