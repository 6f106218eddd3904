/*
scheduler.go - Automated pay period calendar generation

PURPOSE:
  Keeps the stored calendar ahead of time: on a cron schedule the
  configured frequency is generated from the start of the current month
  through MonthsAhead months later and saved. Generation is idempotent,
  so every run after the first only adds periods that came into range.

CONFIGURATION:
  - Schedule:    cron expression, five fields (default "0 2 * * *")
  - MonthsAhead: months generated past the current one (default 3)

USAGE:
  scheduler := NewCalendarScheduler(store, generator, freq, logger)
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GenerateCalendar endpoint (manual generation)
  - calendar/generator.go: CreateAndSave
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/generic"
)

const (
	DefaultCalendarSchedule    = "0 2 * * *"
	DefaultCalendarMonthsAhead = 3

	runTimeout = 2 * time.Minute
)

// CalendarScheduler generates pay periods in the background.
type CalendarScheduler struct {
	Store       generic.PeriodStore
	Generator   *calendar.Generator
	Frequency   *calendar.FrequencyConfig
	Schedule    string
	MonthsAhead int

	// Today is the clock used to anchor each run.
	Today func() generic.Date

	log  logrus.FieldLogger
	cron *cron.Cron
	mu   sync.Mutex
}

// NewCalendarScheduler creates a scheduler with the default schedule and horizon.
func NewCalendarScheduler(store generic.PeriodStore, gen *calendar.Generator, freq *calendar.FrequencyConfig, log logrus.FieldLogger) *CalendarScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CalendarScheduler{
		Store:       store,
		Generator:   gen,
		Frequency:   freq,
		Schedule:    DefaultCalendarSchedule,
		MonthsAhead: DefaultCalendarMonthsAhead,
		Today:       generic.Today,
		log:         log.WithField("component", "calendar_scheduler"),
	}
}

// Start registers the job and starts the cron engine. An invalid cron expression is
// a configuration error.
func (cs *CalendarScheduler) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(cs.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := cs.RunNow(ctx); err != nil {
			cs.log.WithError(err).Error("scheduled calendar generation failed")
		}
	}); err != nil {
		return generic.NewConfigurationError("calendar_cron", cs.Schedule, err.Error())
	}
	c.Start()
	cs.cron = c

	cs.log.WithFields(logrus.Fields{
		"schedule":     cs.Schedule,
		"months_ahead": cs.MonthsAhead,
		"frequency":    cs.Frequency.String(),
	}).Info("scheduler started")
	return nil
}

// Stop stops the cron engine and waits for a running job to finish.
func (cs *CalendarScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cron == nil {
		return
	}
	<-cs.cron.Stop().Done()
	cs.cron = nil
	cs.log.Info("scheduler stopped")
}

// RunNow generates and saves the horizon immediately, returning the
// periods that were created.
func (cs *CalendarScheduler) RunNow(ctx context.Context) ([]generic.PayPeriod, error) {
	start, end := cs.Horizon()
	created, err := cs.Generator.CreateAndSave(ctx, cs.Store, cs.Frequency, start, end)
	if err != nil {
		return nil, err
	}
	cs.log.WithFields(logrus.Fields{
		"start":   start.String(),
		"end":     end.String(),
		"created": len(created),
	}).Info("calendar generation completed")
	return created, nil
}

// Horizon is the range a run covers: the first of the current month
// through the last day MonthsAhead months later.
func (cs *CalendarScheduler) Horizon() (start, end generic.Date) {
	start = cs.Today().StartOfMonth()
	months := cs.MonthsAhead
	if months < 0 {
		months = 0
	}
	end = start.AddMonths(months).EndOfMonth()
	return start, end
}

// NextRun returns when the job fires next, zero when not started.
func (cs *CalendarScheduler) NextRun() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cron == nil {
		return time.Time{}
	}
	entries := cs.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
