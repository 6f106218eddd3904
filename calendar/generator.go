/*
generator.go - Pay period calendar generation

PURPOSE:
  Turns a company's payroll frequency into a gap-free, non-overlapping
  series of pay periods with pay dates, and persists them idempotently.

ALGORITHM:
  Generation walks every calendar month the requested range touches and
  builds that month's candidates:

    weekly       periods of 7 days ending on the configured weekday, found
                 by scanning a window widened by two weeks on both sides
    biweekly     periods of 14 days ending on the reference date's cycle,
                 snapped to the cycle boundary before the widened window
    semimonthly  [1st, lower boundary] and [lower+1, higher boundary]
    monthly      [1st, last day]

  Weekly and biweekly candidates are kept when they intersect the month.
  The union is de-duplicated on (start, end), filtered to periods that
  intersect the requested range and sorted by start.

BOUNDARIES VS PAY DATES:
  Period bounds follow the cadence. Only the pay date is moved by the
  weekend adjustment, so adjusting a pay date never opens a gap between
  consecutive periods. Semimonthly and monthly bounds never leave their
  month even when a pay day overflows into the next one.

IDEMPOTENCY:
  CreateAndSave holds a mutex so one generator is the single writer, and
  relies on the store's (start, end) uniqueness: existing periods are
  skipped, only newly created periods are returned.

SEE ALSO:
  - frequency.go: FrequencyConfig
  - payday.go: Day number resolution and weekend adjustment
  - naming.go: Period names
*/
package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/generic"
)

// searchMargin widens the weekly/biweekly scan so periods straddling a month edge are found.
const searchMargin = 14

// =============================================================================
// GENERATOR
// =============================================================================

type Generator struct {
	mu    sync.Mutex
	log   logrus.FieldLogger
	newID func() generic.PayPeriodID
}

type Option func(*Generator)

func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Generator) { g.log = l }
}

// WithIDFunc replaces the UUID generator for period ids.
func WithIDFunc(fn func() generic.PayPeriodID) Option {
	return func(g *Generator) { g.newID = fn }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		log:   logrus.StandardLogger(),
		newID: func() generic.PayPeriodID { return generic.PayPeriodID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateCalendar generates periods with a default generator.
func GenerateCalendar(cfg *FrequencyConfig, start, end generic.Date) ([]generic.PayPeriod, error) {
	return NewGenerator().Generate(cfg, start, end)
}

// Generate returns the periods intersecting [start, end], ordered by start.
// Nothing is persisted and ids are left empty.
func (g *Generator) Generate(cfg *FrequencyConfig, start, end generic.Date) ([]generic.PayPeriod, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	window := generic.Period{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if cfg.SkipHolidays {
		g.log.WithField("frequency", cfg.String()).Debug("holiday pay date adjustment is not applied")
	}

	seen := make(map[generic.Period]bool)
	var periods []generic.PayPeriod
	for _, month := range window.MonthsTouched() {
		candidates, err := g.periodsForMonth(cfg, month)
		if err != nil {
			return nil, err
		}
		for _, p := range candidates {
			if seen[p.Period()] || !p.Period().Overlaps(window) {
				continue
			}
			seen[p.Period()] = true
			periods = append(periods, p)
		}
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].Start.Before(periods[j].Start) })
	namePeriods(NewNamer(cfg.NamePattern), periods)
	return periods, nil
}

// NextPeriods returns the next count periods, starting with the one containing from.
func (g *Generator) NextPeriods(cfg *FrequencyConfig, from generic.Date, count int) ([]generic.PayPeriod, error) {
	if count <= 0 {
		return nil, nil
	}
	periods, err := g.Generate(cfg, from, from.AddMonths(count+1))
	if err != nil {
		return nil, err
	}
	var result []generic.PayPeriod
	for _, p := range periods {
		if p.End.Before(from) {
			continue
		}
		result = append(result, p)
		if len(result) == count {
			break
		}
	}
	return result, nil
}

// CreateAndSave generates the range and inserts every period the store
// doesn't have yet. Returns only the newly created periods.
func (g *Generator) CreateAndSave(ctx context.Context, store generic.PeriodStore, cfg *FrequencyConfig, start, end generic.Date) ([]generic.PayPeriod, error) {
	periods, err := g.Generate(cfg, start, end)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	namer := NewNamer(cfg.NamePattern)
	var created []generic.PayPeriod
	for _, p := range periods {
		existing, err := store.FindPeriod(ctx, p.Start, p.End)
		if err != nil {
			return created, fmt.Errorf("lookup period %s: %w", p.Period(), err)
		}
		if existing != nil {
			continue
		}

		seq, err := sequenceInYear(ctx, store, p.Start)
		if err != nil {
			return created, err
		}
		p.ID = g.newID()
		p.Name = namer.Name(p.Start, p.End, seq)

		ok, err := store.InsertPeriodIfAbsent(ctx, p)
		if err != nil {
			return created, fmt.Errorf("save period %s: %w", p.Period(), err)
		}
		if !ok {
			continue
		}
		created = append(created, p)
	}

	g.log.WithFields(logrus.Fields{
		"frequency": cfg.String(),
		"from":      start.String(),
		"to":        end.String(),
		"generated": len(periods),
		"created":   len(created),
	}).Info("pay period calendar generated")
	return created, nil
}

// =============================================================================
// PER-FREQUENCY GENERATION
// =============================================================================

func (g *Generator) periodsForMonth(cfg *FrequencyConfig, month generic.Date) ([]generic.PayPeriod, error) {
	switch cfg.Type {
	case Weekly:
		return weeklyPeriods(cfg, month), nil
	case Biweekly:
		return biweeklyPeriods(cfg, month), nil
	case Semimonthly:
		return semimonthlyPeriods(cfg, month), nil
	case Monthly:
		return monthlyPeriods(cfg, month), nil
	}
	return nil, generic.NewConfigurationError("frequency_type", string(cfg.Type), "unsupported frequency type")
}

func weeklyPeriods(cfg *FrequencyConfig, month generic.Date) []generic.PayPeriod {
	monthRange := generic.Period{Start: month.StartOfMonth(), End: month.EndOfMonth()}
	searchEnd := monthRange.End.AddDays(searchMargin)

	end := monthRange.Start.AddDays(-searchMargin)
	for end.Weekday() != cfg.WeeklyDay {
		end = end.AddDays(1)
	}

	var periods []generic.PayPeriod
	for ; end.BeforeOrEqual(searchEnd); end = end.AddDays(7) {
		p := cadencePeriod(cfg, end, 7)
		if p.Period().Overlaps(monthRange) {
			periods = append(periods, p)
		}
	}
	return periods
}

func biweeklyPeriods(cfg *FrequencyConfig, month generic.Date) []generic.PayPeriod {
	monthRange := generic.Period{Start: month.StartOfMonth(), End: month.EndOfMonth()}
	searchStart := monthRange.Start.AddDays(-searchMargin)
	searchEnd := monthRange.End.AddDays(searchMargin)

	anchor := *cfg.ReferenceDate
	cycles := floorDiv(generic.DaysBetween(anchor, searchStart), 14)
	end := anchor.AddDays(cycles * 14)

	var periods []generic.PayPeriod
	for ; end.BeforeOrEqual(searchEnd); end = end.AddDays(14) {
		p := cadencePeriod(cfg, end, 14)
		if p.Period().Overlaps(monthRange) {
			periods = append(periods, p)
		}
	}
	return periods
}

func semimonthlyPeriods(cfg *FrequencyConfig, month generic.Date) []generic.PayPeriod {
	start := month.StartOfMonth()
	last := month.EndOfMonth()

	type boundary struct {
		end     generic.Date
		payDate generic.Date
	}
	first := boundary{
		end:     generic.MinDate(ResolveDay(month, cfg.FirstPayDay, cfg.MonthEndHandling), last),
		payDate: ActualPayDay(month, cfg.FirstPayDay, cfg),
	}
	second := boundary{
		end:     generic.MinDate(ResolveDay(month, cfg.SecondPayDay, cfg.MonthEndHandling), last),
		payDate: ActualPayDay(month, cfg.SecondPayDay, cfg),
	}
	if second.end.Before(first.end) {
		first, second = second, first
	}

	periods := []generic.PayPeriod{{Start: start, End: first.end, PayDate: first.payDate}}
	if secondStart := first.end.AddDays(1); secondStart.BeforeOrEqual(second.end) {
		periods = append(periods, generic.PayPeriod{Start: secondStart, End: second.end, PayDate: second.payDate})
	}
	return periods
}

func monthlyPeriods(cfg *FrequencyConfig, month generic.Date) []generic.PayPeriod {
	return []generic.PayPeriod{{
		Start:   month.StartOfMonth(),
		End:     month.EndOfMonth(),
		PayDate: ActualPayDay(month, cfg.FirstPayDay, cfg),
	}}
}

// cadencePeriod builds the period of length days ending on end.
func cadencePeriod(cfg *FrequencyConfig, end generic.Date, length int) generic.PayPeriod {
	return generic.PayPeriod{
		Start:   end.AddDays(-(length - 1)),
		End:     end,
		PayDate: AdjustForWeekend(end, cfg.WeekendAdjustment),
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
