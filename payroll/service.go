/*
service.go - Payroll aggregation

PURPOSE:
  Turns raw attendance for a pay period into per-employee hour summaries:
  punches become daily worked hours, the overtime engine classifies them,
  leave records add fixed-hour days on top, and the result is persisted
  as one summary line per classification.

FLOW (per employee):
  1. DailyHoursFromPunches: pair clock-in/clock-out per shift group
  2. Engine.Evaluate: regular / overtime / double-time / holiday
  3. Leave records: LeaveDayHours per record, bucketed by classification,
     never subject to overtime rules
  4. Paid holidays not worked: the holiday's standard hours
  5. SummaryStore.SaveSummaryLines

CONCURRENCY:
  AggregatePeriod evaluates employees in parallel with a bounded errgroup.
  Each employee's evaluation is independent; results keep input order.

SEE ALSO:
  - attendance.go: Punch pairing
  - summary.go: Summary and its persisted lines
  - overtime/engine.go: Classification
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
)

// DefaultLeaveDayHours is credited per leave record.
var DefaultLeaveDayHours = decimal.NewFromInt(8)

// DefaultWorkers bounds parallel employee evaluation.
const DefaultWorkers = 4

// EmployeeInput is one employee's raw attendance for a period.
type EmployeeInput struct {
	Employee generic.Employee
	Punches  []Punch
	Leaves   []LeaveRecord
}

type Service struct {
	engine        *overtime.Engine
	summaries     generic.SummaryStore
	periods       generic.PeriodStore
	leaveDayHours decimal.Decimal
	workers       int
	log           logrus.FieldLogger
}

type Option func(*Service)

func WithLeaveDayHours(h decimal.Decimal) Option {
	return func(s *Service) { s.leaveDayHours = h }
}

func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithPeriodStore lets AggregatePeriod mark the period processed.
func WithPeriodStore(ps generic.PeriodStore) Option {
	return func(s *Service) { s.periods = ps }
}

// NewService wires an engine and a summary store. summaries may be nil
// when results are only returned, not persisted.
func NewService(engine *overtime.Engine, summaries generic.SummaryStore, opts ...Option) *Service {
	s := &Service{
		engine:        engine,
		summaries:     summaries,
		leaveDayHours: DefaultLeaveDayHours,
		workers:       DefaultWorkers,
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// AggregatePeriod aggregates every employee and marks the period processed.
func (s *Service) AggregatePeriod(ctx context.Context, period generic.PayPeriod, inputs []EmployeeInput) ([]*Summary, error) {
	log := s.log.WithField("pay_period_id", period.ID)
	log.WithField("employees", len(inputs)).Info("aggregation started")

	results := make([]*Summary, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range inputs {
		g.Go(func() error {
			summary, err := s.AggregateEmployee(gctx, period, inputs[i])
			if err != nil {
				return fmt.Errorf("employee %s: %w", inputs[i].Employee.ID, err)
			}
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.periods != nil && period.ID != "" {
		if err := s.periods.MarkProcessed(ctx, period.ID); err != nil {
			return results, fmt.Errorf("mark period processed: %w", err)
		}
	}
	log.WithField("employees", len(results)).Info("aggregation completed")
	return results, nil
}

// AggregateEmployee builds and stores one employee's summary.
func (s *Service) AggregateEmployee(ctx context.Context, period generic.PayPeriod, in EmployeeInput) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emp := in.Employee
	daily := DailyHoursFromPunches(in.Punches)

	result, err := s.engine.Evaluate(ctx, emp, period, daily)
	if err != nil {
		return nil, err
	}
	breakdown := result.ExportBreakdown()

	summary := &Summary{
		EmployeeID:   emp.ID,
		ExternalID:   emp.ExternalID,
		EmployeeName: emp.Name,
		PayPeriodID:  period.ID,
		Regular:      breakdown.Regular,
		Overtime:     breakdown.Overtime,
		DoubleTime:   breakdown.DoubleTime,
		Holiday:      breakdown.Holiday,
		Total:        breakdown.Total,
		Daily:        daily.Within(period.Period()),
		Weeks:        weekBreakdowns(breakdown.Weeks),
		Exempt:       result.Exempt,
		ExemptReason: result.ExemptReason,
	}
	for _, e := range result.Errors {
		summary.Errors = append(summary.Errors, e.Error())
	}

	leaveDays := s.addLeave(summary, period, in.Leaves)
	s.addUnworkedHolidays(summary, emp, period, daily, leaveDays)

	if s.summaries != nil {
		if err := s.summaries.SaveSummaryLines(ctx, summary.Lines()); err != nil {
			return nil, fmt.Errorf("store summary: %w", err)
		}
	}
	return summary, nil
}

// addLeave credits leave records inside the period and returns the days
// that carried a HOLIDAY record.
func (s *Service) addLeave(summary *Summary, period generic.PayPeriod, leaves []LeaveRecord) map[generic.Date]bool {
	holidayDays := make(map[generic.Date]bool)
	for _, l := range leaves {
		if !CountedStatuses[l.Status] || !period.Period().Contains(l.Date) {
			continue
		}
		h := s.leaveDayHours
		switch l.Classification() {
		case generic.ClassVacation:
			summary.Vacation = summary.Vacation.Add(h)
		case generic.ClassHoliday:
			summary.Holiday = summary.Holiday.Add(h)
			holidayDays[l.Date] = true
		case generic.ClassSick:
			summary.Sick = summary.Sick.Add(h)
		case generic.ClassPTO:
			summary.PTO = summary.PTO.Add(h)
		default:
			summary.Other = summary.Other.Add(h)
		}
		summary.Total = summary.Total.Add(h)
	}
	return holidayDays
}

func (s *Service) addUnworkedHolidays(summary *Summary, emp generic.Employee, period generic.PayPeriod, daily generic.DailyHours, covered map[generic.Date]bool) {
	for _, h := range s.engine.UnworkedPaidHolidays(emp, period, daily) {
		if covered[h.Date] || !h.StandardHours.IsPositive() {
			continue
		}
		summary.Holiday = summary.Holiday.Add(h.StandardHours)
		summary.Total = summary.Total.Add(h.StandardHours)
	}
}

// Finalize locks every summary line of the period.
func (s *Service) Finalize(ctx context.Context, periodID generic.PayPeriodID) (int, error) {
	if s.summaries == nil {
		return 0, nil
	}
	n, err := s.summaries.FinalizeSummaries(ctx, periodID)
	if err != nil {
		return 0, fmt.Errorf("finalize summaries: %w", err)
	}
	s.log.WithFields(logrus.Fields{"pay_period_id": periodID, "finalized": n}).Info("summaries finalized")
	return n, nil
}
