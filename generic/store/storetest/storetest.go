// Package storetest holds behaviour checks every generic.Store must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/generic"
)

// Run executes the suite. newStore must return an empty store on each call.
func Run(t *testing.T, newStore func(t *testing.T) generic.Store) {
	t.Run("PeriodsInsertIfAbsent", func(t *testing.T) { testInsertIfAbsent(t, newStore(t)) })
	t.Run("PeriodWithoutPayDate", func(t *testing.T) { testPeriodWithoutPayDate(t, newStore(t)) })
	t.Run("PeriodsListAndFlags", func(t *testing.T) { testListAndFlags(t, newStore(t)) })
	t.Run("CalculationUpsert", func(t *testing.T) { testCalculationUpsert(t, newStore(t)) })
	t.Run("SummaryLines", func(t *testing.T) { testSummaryLines(t, newStore(t)) })
}

func date(s string) generic.Date { return generic.MustParseDate(s) }

func period(id, start, end string) generic.PayPeriod {
	return generic.PayPeriod{
		ID:      generic.PayPeriodID(id),
		Name:    "Period " + id,
		Start:   date(start),
		End:     date(end),
		PayDate: date(end),
	}
}

func testInsertIfAbsent(t *testing.T, s generic.Store) {
	ctx := context.Background()

	created, err := s.InsertPeriodIfAbsent(ctx, period("p1", "2025-01-01", "2025-01-15"))
	require.NoError(t, err)
	assert.True(t, created)

	// same bounds, different id: not written
	created, err = s.InsertPeriodIfAbsent(ctx, period("p2", "2025-01-01", "2025-01-15"))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.FindPeriod(ctx, date("2025-01-01"), date("2025-01-15"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, generic.PayPeriodID("p1"), got.ID)
	assert.Equal(t, "Period p1", got.Name)
	assert.Equal(t, "2025-01-15", got.PayDate.String())

	missing, err := s.FindPeriod(ctx, date("2025-01-01"), date("2025-01-14"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = s.GetPeriod(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrPeriodNotFound)
}

func testPeriodWithoutPayDate(t *testing.T, s generic.Store) {
	ctx := context.Background()
	p := period("open", "2025-03-01", "2025-03-31")
	p.PayDate = generic.Date{}

	created, err := s.InsertPeriodIfAbsent(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := s.GetPeriod(ctx, "open")
	require.NoError(t, err)
	assert.True(t, got.PayDate.IsZero())

	list, err := s.ListPeriods(ctx, date("2025-01-01"), date("2025-12-31"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].PayDate.IsZero())
}

func testListAndFlags(t *testing.T, s generic.Store) {
	ctx := context.Background()
	for _, p := range []generic.PayPeriod{
		period("c", "2025-02-01", "2025-02-28"),
		period("a", "2024-12-01", "2024-12-31"),
		period("b", "2025-01-01", "2025-01-31"),
	} {
		_, err := s.InsertPeriodIfAbsent(ctx, p)
		require.NoError(t, err)
	}

	list, err := s.ListPeriods(ctx, date("2024-12-31"), date("2025-02-01"))
	require.NoError(t, err)
	ids := make([]generic.PayPeriodID, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	assert.Equal(t, []generic.PayPeriodID{"a", "b", "c"}, ids, "intersecting periods ordered by start")

	list, err = s.ListPeriods(ctx, date("2025-01-10"), date("2025-01-20"))
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.MarkProcessed(ctx, "b"))
	require.NoError(t, s.MarkPosted(ctx, "b"))
	got, err := s.GetPeriod(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.True(t, got.Posted)

	assert.ErrorIs(t, s.MarkProcessed(ctx, "zzz"), generic.ErrPeriodNotFound)
}

func testCalculationUpsert(t *testing.T, s generic.Store) {
	ctx := context.Background()
	entry := generic.CalculationEntry{
		EmployeeID:           "e1",
		PayPeriodID:          "p1",
		WorkDate:             date("2025-01-06"),
		TotalHours:           decimal.NewFromInt(10),
		RegularHours:         decimal.NewFromInt(8),
		OvertimeHours:        decimal.NewFromInt(2),
		RuleID:               "daily-8",
		Reason:               "Daily threshold (8h) exceeded",
		Context:              map[string]any{"threshold": "8"},
		OvertimeMultiplier:   decimal.NewFromFloat(1.5),
		DoubleTimeMultiplier: decimal.NewFromInt(2),
	}
	require.NoError(t, s.RecordCalculation(ctx, entry))

	// re-running overwrites the row
	entry.RegularHours = decimal.NewFromInt(10)
	entry.OvertimeHours = decimal.Zero
	entry.RuleID = ""
	entry.Reason = "Regular work day"
	require.NoError(t, s.RecordCalculation(ctx, entry))

	other := entry
	other.EmployeeID = "e0"
	require.NoError(t, s.RecordCalculation(ctx, other))

	rows, err := s.Calculations(ctx, generic.CalculationFilter{PayPeriodID: "p1"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, generic.EmployeeID("e0"), rows[0].EmployeeID)

	rows, err = s.Calculations(ctx, generic.CalculationFilter{EmployeeID: "e1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	assert.True(t, got.RegularHours.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.OvertimeHours.IsZero())
	assert.True(t, got.OvertimeMultiplier.Equal(decimal.NewFromFloat(1.5)))
	assert.Empty(t, got.RuleID)
	assert.Equal(t, "Regular work day", got.Reason)
	assert.Equal(t, "8", got.Context["threshold"])
	assert.False(t, got.CalculatedAt.IsZero())
}

func testSummaryLines(t *testing.T, s generic.Store) {
	ctx := context.Background()
	lines := []generic.SummaryLine{
		{PayPeriodID: "p1", EmployeeID: "e2", Classification: generic.ClassRegular, Hours: decimal.NewFromInt(40)},
		{PayPeriodID: "p1", EmployeeID: "e1", Classification: generic.ClassRegular, Hours: decimal.NewFromInt(40)},
		{PayPeriodID: "p1", EmployeeID: "e1", Classification: generic.ClassOvertime, Hours: decimal.NewFromFloat(2.5)},
		{PayPeriodID: "p2", EmployeeID: "e1", Classification: generic.ClassSick, Hours: decimal.NewFromInt(8)},
	}
	require.NoError(t, s.SaveSummaryLines(ctx, lines))

	got, err := s.SummaryLines(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, generic.EmployeeID("e1"), got[0].EmployeeID)
	assert.Equal(t, generic.ClassOvertime, got[0].Classification)
	assert.True(t, got[0].Hours.Equal(decimal.NewFromFloat(2.5)))

	n, err := s.FinalizeSummaries(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.FinalizeSummaries(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, n)

	// rewriting a finalized line reopens it
	require.NoError(t, s.SaveSummaryLines(ctx, []generic.SummaryLine{
		{PayPeriodID: "p1", EmployeeID: "e1", Classification: generic.ClassOvertime, Hours: decimal.NewFromInt(3)},
	}))
	got, err = s.SummaryLines(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.False(t, got[0].Finalized)
	assert.True(t, got[0].Hours.Equal(decimal.NewFromInt(3)))
	assert.True(t, got[1].Finalized)

	other, err := s.SummaryLines(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
