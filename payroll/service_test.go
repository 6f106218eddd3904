package payroll_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/generic/store"
	"github.com/warp/payroll-engine/overtime"
	"github.com/warp/payroll-engine/payroll"
)

func assertHours(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, decimal.NewFromFloat(want).Equal(got), "want %v hours, got %s %v", want, got, msgAndArgs)
}

// workWeek returns clock pairs of the given length for each day.
func workWeek(emp generic.EmployeeID, days []string, hours int) []payroll.Punch {
	var punches []payroll.Punch
	for i, d := range days {
		group := fmt.Sprintf("%s-%d", emp, i)
		punches = append(punches,
			payroll.Punch{EmployeeID: emp, At: at(d, 7, 0), GroupID: group, TypeName: "Clock In"},
			payroll.Punch{EmployeeID: emp, At: at(d, 7+hours, 0), GroupID: group, TypeName: "Clock Out"},
		)
	}
	return punches
}

type fixture struct {
	store   *store.Memory
	service *payroll.Service
	period  generic.PayPeriod
}

func newFixture(t *testing.T, holidays ...overtime.Holiday) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	mem := store.NewMemory()

	period := generic.PayPeriod{
		Start: generic.MustParseDate("2025-01-05"),
		End:   generic.MustParseDate("2025-01-18"),
	}
	created, err := mem.InsertPeriodIfAbsent(context.Background(), period)
	require.NoError(t, err)
	require.True(t, created)
	stored, err := mem.FindPeriod(context.Background(), period.Start, period.End)
	require.NoError(t, err)

	engine := overtime.NewEngine(overtime.Config{Holidays: holidays},
		overtime.WithAuditSink(mem), overtime.WithLogger(logger))
	svc := payroll.NewService(engine, mem,
		payroll.WithPeriodStore(mem), payroll.WithLogger(logger), payroll.WithWorkers(2))
	return &fixture{store: mem, service: svc, period: *stored}
}

var firstWeek = []string{"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-09", "2025-01-10"}

func TestAggregateEmployee_WorkedAndLeaveHours(t *testing.T) {
	f := newFixture(t)
	emp := generic.Employee{ID: "e1", Name: "Dana Ortiz", PayType: generic.PayHourly, FullTime: true}

	// GIVEN: 5 x 10h worked in week one, vacation and sick in week two
	in := payroll.EmployeeInput{
		Employee: emp,
		Punches:  workWeek(emp.ID, firstWeek, 10),
		Leaves: []payroll.LeaveRecord{
			{EmployeeID: emp.ID, Date: generic.MustParseDate("2025-01-13"), Code: "VACATION"},
			{EmployeeID: emp.ID, Date: generic.MustParseDate("2025-01-14"), Code: "SICK"},
			{EmployeeID: emp.ID, Date: generic.MustParseDate("2025-01-15"), Code: "bereavement"},
			{EmployeeID: emp.ID, Date: generic.MustParseDate("2025-02-03"), Code: "VACATION"}, // outside period
		},
	}

	// WHEN
	summary, err := f.service.AggregateEmployee(context.Background(), f.period, in)
	require.NoError(t, err)

	// THEN: leave hours sit on top of the engine's classification
	assertHours(t, 40, summary.Regular)
	assertHours(t, 10, summary.Overtime)
	assertHours(t, 8, summary.Vacation)
	assertHours(t, 8, summary.Sick)
	assertHours(t, 8, summary.Other)
	assertHours(t, 74, summary.Total)
	require.Len(t, summary.Weeks, 1)
	assert.Equal(t, "week_1", summary.Weeks[0].Label)
	assert.Len(t, summary.Daily, 5)

	lines, err := f.store.SummaryLines(context.Background(), f.period.ID)
	require.NoError(t, err)
	got := map[generic.Classification]string{}
	for _, l := range lines {
		got[l.Classification] = l.Hours.String()
	}
	assert.Equal(t, map[generic.Classification]string{
		generic.ClassRegular:  "40",
		generic.ClassOvertime: "10",
		generic.ClassVacation: "8",
		generic.ClassSick:     "8",
		generic.ClassOther:    "8",
	}, got)
}

func TestAggregateEmployee_PaidHolidayNotWorked(t *testing.T) {
	holiday := overtime.Holiday{
		ID: "mlk", Name: "Civil Rights Day", Date: generic.MustParseDate("2025-01-13"),
		StandardHours: decimal.NewFromInt(8), PaidIfNotWorked: true, Active: true,
	}
	f := newFixture(t, holiday)
	emp := generic.Employee{ID: "e1", PayType: generic.PayHourly, FullTime: true}

	summary, err := f.service.AggregateEmployee(context.Background(), f.period, payroll.EmployeeInput{
		Employee: emp,
		Punches:  workWeek(emp.ID, firstWeek, 8),
	})
	require.NoError(t, err)

	assertHours(t, 8, summary.Holiday)
	assertHours(t, 48, summary.Total)

	// a HOLIDAY leave record on that day is not paid twice
	summary, err = f.service.AggregateEmployee(context.Background(), f.period, payroll.EmployeeInput{
		Employee: emp,
		Punches:  workWeek(emp.ID, firstWeek, 8),
		Leaves:   []payroll.LeaveRecord{{EmployeeID: emp.ID, Date: holiday.Date, Code: "HOLIDAY"}},
	})
	require.NoError(t, err)
	assertHours(t, 8, summary.Holiday)
}

func TestAggregatePeriod_ManyEmployees(t *testing.T) {
	f := newFixture(t)

	var inputs []payroll.EmployeeInput
	for i := 0; i < 6; i++ {
		emp := generic.Employee{ID: generic.EmployeeID(fmt.Sprintf("e%d", i)), PayType: generic.PayHourly}
		inputs = append(inputs, payroll.EmployeeInput{
			Employee: emp,
			Punches:  workWeek(emp.ID, firstWeek, 6+i),
		})
	}

	summaries, err := f.service.AggregatePeriod(context.Background(), f.period, inputs)
	require.NoError(t, err)
	require.Len(t, summaries, 6)

	for i, s := range summaries {
		assert.Equal(t, inputs[i].Employee.ID, s.EmployeeID, "input order kept")
		assertHours(t, float64(5*(6+i)), s.Total)
	}
	// 5 x 9h = 45h: 5h weekly overtime
	assertHours(t, 5, summaries[3].Overtime)

	period, err := f.store.GetPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.True(t, period.Processed)

	entries, err := f.store.Calculations(context.Background(), generic.CalculationFilter{PayPeriodID: f.period.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 30)
}

func TestAggregateEmployee_ExemptEmployee(t *testing.T) {
	f := newFixture(t)
	emp := generic.Employee{ID: "mgr", PayType: generic.PaySalary}

	summary, err := f.service.AggregateEmployee(context.Background(), f.period, payroll.EmployeeInput{
		Employee: emp,
		Punches:  workWeek(emp.ID, firstWeek, 11),
	})
	require.NoError(t, err)

	assert.True(t, summary.Exempt)
	assertHours(t, 55, summary.Regular)
	assertHours(t, 0, summary.Overtime)
}

func TestFinalize(t *testing.T) {
	f := newFixture(t)
	emp := generic.Employee{ID: "e1", PayType: generic.PayHourly}
	_, err := f.service.AggregateEmployee(context.Background(), f.period, payroll.EmployeeInput{
		Employee: emp,
		Punches:  workWeek(emp.ID, firstWeek, 9),
	})
	require.NoError(t, err)

	n, err := f.service.Finalize(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "regular and overtime lines")

	n, err = f.service.Finalize(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already final")
}

func TestAggregatePeriod_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.AggregatePeriod(ctx, f.period, []payroll.EmployeeInput{
		{Employee: generic.Employee{ID: "e1", PayType: generic.PayHourly}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
