package payroll

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

// PunchState is the clock device's own in/out marker.
type PunchState string

const (
	PunchStart   PunchState = "start"
	PunchStop    PunchState = "stop"
	PunchUnknown PunchState = "unknown"
)

// CountedStatuses are the attendance statuses included in aggregation.
// An empty status counts as complete.
var CountedStatuses = map[string]bool{
	"":         true,
	"Complete": true,
	"Migrated": true,
	"Posted":   true,
}

// Punch is one clock event.
type Punch struct {
	EmployeeID generic.EmployeeID
	At         time.Time

	// ShiftDate overrides the punch's calendar day, for shifts crossing midnight.
	ShiftDate *generic.Date

	// GroupID ties the punches of one shift together.
	GroupID  string
	State    PunchState
	TypeName string
	Status   string
}

// Day is the calendar day the punch counts toward.
func (p Punch) Day() generic.Date {
	if p.ShiftDate != nil && !p.ShiftDate.IsZero() {
		return *p.ShiftDate
	}
	return generic.DateOf(p.At)
}

func (p Punch) isClockIn() bool {
	name := strings.ToLower(p.TypeName)
	return strings.Contains(name, "in") || strings.Contains(name, "start") || p.State == PunchStart
}

func (p Punch) isClockOut() bool {
	name := strings.ToLower(p.TypeName)
	return strings.Contains(name, "out") || strings.Contains(name, "end") || p.State == PunchStop
}

// LeaveRecord is a full day carrying a classification code (VACATION, SICK, ...).
type LeaveRecord struct {
	EmployeeID generic.EmployeeID
	Date       generic.Date
	Code       string
	Status     string
}

// Classification resolves the record's code, OTHER when unknown or empty.
func (l LeaveRecord) Classification() generic.Classification {
	return generic.ParseClassification(l.Code)
}

// =============================================================================
// PUNCH PAIRING
// =============================================================================

// DailyHoursFromPunches totals worked hours per day. Punches are grouped by
// day, then by shift group; within a group they are paired in time order,
// an open clock-in closed by the next clock-out. Unpaired punches add nothing.
// Group and day totals are rounded to two places.
func DailyHoursFromPunches(punches []Punch) generic.DailyHours {
	byDay := make(map[generic.Date]map[string][]Punch)
	for _, p := range punches {
		if !CountedStatuses[p.Status] {
			continue
		}
		d := p.Day()
		if byDay[d] == nil {
			byDay[d] = make(map[string][]Punch)
		}
		byDay[d][p.GroupID] = append(byDay[d][p.GroupID], p)
	}

	out := make(generic.DailyHours, len(byDay))
	for d, groups := range byDay {
		total := decimal.Zero
		for _, group := range groups {
			total = total.Add(groupHours(group))
		}
		out[d] = generic.RoundHours(total)
	}
	return out
}

func groupHours(group []Punch) decimal.Decimal {
	if len(group) < 2 {
		return decimal.Zero
	}
	sorted := make([]Punch, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	minutes := int64(0)
	var in *time.Time
	for i := range sorted {
		p := sorted[i]
		switch {
		case p.isClockIn() && in == nil:
			at := p.At
			in = &at
		case p.isClockOut() && in != nil:
			minutes += int64(p.At.Sub(*in) / time.Minute)
			in = nil
		}
	}
	return generic.RoundHours(decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)))
}
