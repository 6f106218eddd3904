package api

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/generic/store"
)

func newTestScheduler(t *testing.T) (*CalendarScheduler, *store.Memory) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	mem := store.NewMemory()
	freq := &calendar.FrequencyConfig{Type: calendar.Monthly, FirstPayDay: calendar.LastDayOfMonth}
	cs := NewCalendarScheduler(mem, calendar.NewGenerator(calendar.WithLogger(logger)), freq, logger)
	cs.MonthsAhead = 2
	cs.Today = func() generic.Date { return generic.MustParseDate("2025-01-15") }
	return cs, mem
}

func TestCalendarScheduler_Horizon(t *testing.T) {
	cs, _ := newTestScheduler(t)

	start, end := cs.Horizon()
	assert.Equal(t, "2025-01-01", start.String())
	assert.Equal(t, "2025-03-31", end.String())
}

func TestCalendarScheduler_RunNowIsIdempotent(t *testing.T) {
	cs, mem := newTestScheduler(t)
	ctx := context.Background()

	// GIVEN: a first run fills the horizon
	created, err := cs.RunNow(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	// WHEN: the job fires again the same day
	created, err = cs.RunNow(ctx)

	// THEN: nothing is added
	require.NoError(t, err)
	assert.Empty(t, created)

	// AND: a month later only the new month is added
	cs.Today = func() generic.Date { return generic.MustParseDate("2025-02-03") }
	created, err = cs.RunNow(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2025-04-01", created[0].Start.String())

	stored, err := mem.ListPeriods(ctx, generic.MustParseDate("2025-01-01"), generic.MustParseDate("2025-12-31"))
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestCalendarScheduler_StartStop(t *testing.T) {
	cs, _ := newTestScheduler(t)
	assert.True(t, cs.NextRun().IsZero())

	require.NoError(t, cs.Start())
	assert.False(t, cs.NextRun().IsZero())
	cs.Stop()
	assert.True(t, cs.NextRun().IsZero())
}

func TestCalendarScheduler_InvalidCronExpression(t *testing.T) {
	cs, _ := newTestScheduler(t)
	cs.Schedule = "every night"

	err := cs.Start()
	assert.True(t, generic.IsConfigurationError(err), "got %v", err)
}
