/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Calendar generation (preview, save, idempotent re-save)
- Pay period flags
- Overtime evaluation with configured and per-request rules
- Aggregation, summaries and finalization
- Error status mapping
*/
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/generic/store"
	"github.com/warp/payroll-engine/overtime"
)

func newTestAPI(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	mem := store.NewMemory()
	h := NewHandler(mem, overtime.Config{}, WithLogger(logger))
	return NewRouter(h), mem
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertHours(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, decimal.NewFromFloat(want).Equal(got), "want %v hours, got %s %v", want, got, msgAndArgs)
}

const monthlyCalendar = `{
	"frequency": {"frequency_type": "monthly", "first_pay_day": 99, "name_pattern": "{start_month} {year}"},
	"start": "2025-01-01",
	"end": "2025-03-31",
	"save": %t
}`

// =============================================================================
// CALENDAR
// =============================================================================

func TestGenerateCalendar_Preview(t *testing.T) {
	api, mem := newTestAPI(t)

	// WHEN: generating without saving
	rec := do(t, api, http.MethodPost, "/api/calendar/generate", fmt.Sprintf(monthlyCalendar, false))

	// THEN: periods are returned but nothing is stored
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[GenerateCalendarResponse](t, rec)
	require.Len(t, resp.Periods, 3)
	assert.Equal(t, 0, resp.Created)
	assert.Equal(t, "2025-02-01", resp.Periods[1].StartDate)
	assert.Equal(t, "2025-02-28", resp.Periods[1].EndDate)
	assert.Equal(t, "2025-02-28", resp.Periods[1].PayDate)

	stored, err := mem.ListPeriods(context.Background(), generic.MustParseDate("2025-01-01"), generic.MustParseDate("2025-03-31"))
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGenerateCalendar_SaveIsIdempotent(t *testing.T) {
	api, _ := newTestAPI(t)

	// GIVEN: a first save creates three months
	rec := do(t, api, http.MethodPost, "/api/calendar/generate", fmt.Sprintf(monthlyCalendar, true))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[GenerateCalendarResponse](t, rec)
	assert.Equal(t, 3, first.Created)
	for _, p := range first.Periods {
		assert.NotEmpty(t, p.ID)
	}
	assert.Equal(t, "January 2025", first.Periods[0].Name)

	// WHEN: saving the same range again
	rec = do(t, api, http.MethodPost, "/api/calendar/generate", fmt.Sprintf(monthlyCalendar, true))

	// THEN: nothing new is created
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[GenerateCalendarResponse](t, rec).Created)

	rec = do(t, api, http.MethodGet, "/api/pay-periods?from=2025-01-01&to=2025-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	periods := decode[[]PayPeriodDTO](t, rec)
	require.Len(t, periods, 3)
	assert.Equal(t, "2025-01-01", periods[0].StartDate)
	assert.Equal(t, "2025-03-31", periods[2].EndDate)
}

func TestGenerateCalendar_BadInput(t *testing.T) {
	api, _ := newTestAPI(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed body", `{"frequency":`, "Invalid request body"},
		{"unknown frequency", `{"frequency": {"frequency_type": "yearly"}, "start": "2025-01-01", "end": "2025-01-31"}`, "Invalid frequency"},
		{"biweekly without reference", `{"frequency": {"frequency_type": "biweekly"}, "start": "2025-01-01", "end": "2025-01-31"}`, "Invalid frequency"},
		{"bad start", `{"frequency": {"frequency_type": "weekly"}, "start": "01/01/2025", "end": "2025-01-31"}`, "Invalid start (use YYYY-MM-DD)"},
		{"bad end", `{"frequency": {"frequency_type": "weekly"}, "start": "2025-01-01", "end": "Jan 31"}`, "Invalid end (use YYYY-MM-DD)"},
		{"end before start", `{"frequency": {"frequency_type": "weekly"}, "start": "2025-02-01", "end": "2025-01-01"}`, "Failed to generate calendar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, api, http.MethodPost, "/api/calendar/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[ErrorResponse](t, rec).Error)
		})
	}
}

// =============================================================================
// PAY PERIODS
// =============================================================================

func TestPayPeriodFlags(t *testing.T) {
	api, mem := newTestAPI(t)
	_, err := mem.InsertPeriodIfAbsent(context.Background(), generic.PayPeriod{
		ID: "pp-1", Start: generic.MustParseDate("2025-01-05"), End: generic.MustParseDate("2025-01-18"),
	})
	require.NoError(t, err)

	rec := do(t, api, http.MethodPost, "/api/pay-periods/pp-1/processed", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[PayPeriodDTO](t, rec)
	assert.True(t, p.IsProcessed)
	assert.False(t, p.IsPosted)

	rec = do(t, api, http.MethodPost, "/api/pay-periods/pp-1/posted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[PayPeriodDTO](t, rec).IsPosted)

	rec = do(t, api, http.MethodPost, "/api/pay-periods/missing/posted", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPayPeriods_BadRange(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := do(t, api, http.MethodGet, "/api/pay-periods?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OVERTIME
// =============================================================================

const evaluateWeek = `{
	"employee": {"id": "e1", "name": "Dana Ortiz", "pay_type": "hourly", "full_time": true},
	"pay_period": {"start": "2025-01-05", "end": "2025-01-11"},
	"daily_hours": {
		"2025-01-06": %[1]d, "2025-01-07": %[1]d, "2025-01-08": %[1]d,
		"2025-01-09": %[1]d, "2025-01-10": %[1]d%[2]s
	}%[3]s
}`

func TestEvaluateOvertime_WeeklyDefault(t *testing.T) {
	api, _ := newTestAPI(t)

	// GIVEN: five 10h days and no configured rules
	rec := do(t, api, http.MethodPost, "/api/overtime/evaluate", fmt.Sprintf(evaluateWeek, 10, "", ""))

	// THEN: hours past 40 in the week are overtime
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EvaluateResponse](t, rec)
	assertHours(t, 40, resp.Regular)
	assertHours(t, 10, resp.Overtime)
	assertHours(t, 50, resp.Total)
	assert.Equal(t, 5, resp.DaysWorked)
	assert.Len(t, resp.Days, 5)
	assert.Empty(t, resp.Errors)

	// AND: every day was audited
	rec = do(t, api, http.MethodGet, "/api/overtime/logs?employee_id=e1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]CalculationDTO](t, rec)
	require.Len(t, logs, 5)
	assert.Equal(t, "2025-01-06", logs[0].WorkDate)

	rec = do(t, api, http.MethodGet, "/api/overtime/logs?employee_id=nobody", "")
	assert.Empty(t, decode[[]CalculationDTO](t, rec))
}

func TestEvaluateOvertime_RequestRules(t *testing.T) {
	api, _ := newTestAPI(t)

	// GIVEN: a weekend rule sent with the request and a Saturday worked
	body := fmt.Sprintf(evaluateWeek, 8, `, "2025-01-11": 6`,
		`, "rules": [{"id": "sat", "rule_type": "weekend_day", "weekdays": ["saturday"], "multiplier": 1.5}]`)

	rec := do(t, api, http.MethodPost, "/api/overtime/evaluate", body)

	// THEN: Saturday is overtime under the request's rule
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EvaluateResponse](t, rec)
	assertHours(t, 40, resp.Regular)
	assertHours(t, 6, resp.Overtime)

	sat := resp.Days[len(resp.Days)-1]
	assert.Equal(t, "2025-01-11", sat.Date)
	assert.Equal(t, "sat", sat.RuleID)
	assertHours(t, 6, sat.OvertimeHours)
}

func TestEvaluateOvertime_NegativeHoursReported(t *testing.T) {
	api, _ := newTestAPI(t)

	body := fmt.Sprintf(evaluateWeek, 8, `, "2025-01-11": -2`, "")
	rec := do(t, api, http.MethodPost, "/api/overtime/evaluate", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EvaluateResponse](t, rec)
	assert.Len(t, resp.Days, 5)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "2025-01-11")
}

func TestEvaluateOvertime_Errors(t *testing.T) {
	api, _ := newTestAPI(t)
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"unknown pay type", `{"employee": {"id": "e1", "pay_type": "volunteer"}}`, http.StatusBadRequest},
		{"unknown period", `{"employee": {"id": "e1", "pay_type": "hourly"}, "pay_period": {"id": "missing"}}`, http.StatusNotFound},
		{"bad day", `{"employee": {"id": "e1", "pay_type": "hourly"}, "daily_hours": {"monday": 8}}`, http.StatusBadRequest},
		{"bad rule", `{"employee": {"id": "e1", "pay_type": "hourly"}, "rules": [{"id": "d", "rule_type": "daily_threshold"}]}`, http.StatusBadRequest},
		{"inverted period", `{"employee": {"id": "e1", "pay_type": "hourly"}, "pay_period": {"start": "2025-01-11", "end": "2025-01-05"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, api, http.MethodPost, "/api/overtime/evaluate", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

func punchesJSON(days []string, hours int) string {
	var parts []string
	for i, d := range days {
		parts = append(parts,
			fmt.Sprintf(`{"at": "%sT07:00:00Z", "group_id": "g%d", "type_name": "Clock In"}`, d, i),
			fmt.Sprintf(`{"at": "%sT%02d:00:00Z", "group_id": "g%d", "type_name": "Clock Out"}`, d, 7+hours, i),
		)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestAggregatePayroll(t *testing.T) {
	api, mem := newTestAPI(t)
	ctx := context.Background()
	_, err := mem.InsertPeriodIfAbsent(ctx, generic.PayPeriod{
		ID: "pp-1", Start: generic.MustParseDate("2025-01-05"), End: generic.MustParseDate("2025-01-18"),
	})
	require.NoError(t, err)

	// GIVEN: one employee with 5 x 10h and a vacation day
	body := fmt.Sprintf(`{
		"pay_period_id": "pp-1",
		"employees": [{
			"employee": {"id": "e1", "name": "Dana Ortiz", "pay_type": "hourly", "full_time": true},
			"punches": %s,
			"leaves": [{"date": "2025-01-13", "code": "VACATION"}]
		}]
	}`, punchesJSON([]string{"2025-01-06", "2025-01-07", "2025-01-08", "2025-01-09", "2025-01-10"}, 10))

	// WHEN
	rec := do(t, api, http.MethodPost, "/api/payroll/aggregate", body)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		PayPeriod PayPeriodDTO `json:"pay_period"`
		Summaries []struct {
			Regular  decimal.Decimal `json:"regular_hours"`
			Overtime decimal.Decimal `json:"overtime_hours"`
			Vacation decimal.Decimal `json:"vacation_hours"`
			Total    decimal.Decimal `json:"total_hours"`
		} `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.PayPeriod.IsProcessed)
	require.Len(t, resp.Summaries, 1)
	s := resp.Summaries[0]
	assertHours(t, 40, s.Regular)
	assertHours(t, 10, s.Overtime)
	assertHours(t, 8, s.Vacation)
	assertHours(t, 58, s.Total)

	// AND: lines are stored, then locked once
	rec = do(t, api, http.MethodGet, "/api/payroll/pp-1/summaries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Lines []SummaryLineDTO `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Lines, 3)

	rec = do(t, api, http.MethodPost, "/api/payroll/pp-1/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode[map[string]any](t, rec)["finalized"])

	rec = do(t, api, http.MethodPost, "/api/payroll/pp-1/finalize", "")
	assert.EqualValues(t, 0, decode[map[string]any](t, rec)["finalized"])
}

func TestAggregatePayroll_Errors(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/payroll/aggregate", `{"employees": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, api, http.MethodPost, "/api/payroll/aggregate", `{"pay_period_id": "missing", "employees": []}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, api, http.MethodGet, "/api/payroll/missing/summaries", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, api, http.MethodPost, "/api/payroll/missing/finalize", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, api, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", decode[ErrorResponse](t, rec).Error)
}

func TestErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errorStatus(fmt.Errorf("get: %w", generic.ErrPeriodNotFound)))
	assert.Equal(t, http.StatusConflict, errorStatus(generic.ErrPeriodExists))
	assert.Equal(t, http.StatusBadRequest, errorStatus(generic.NewConfigurationError("x", "", "bad")))
	assert.Equal(t, http.StatusBadRequest, errorStatus(generic.ErrInvalidPeriod))
	assert.Equal(t, http.StatusInternalServerError, errorStatus(assert.AnError))
}
