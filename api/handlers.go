/*
handlers.go - HTTP API handlers for the payroll hours engine

PURPOSE:
  Exposes calendar generation, overtime evaluation and period aggregation
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to the calendar, overtime and payroll packages.

ENDPOINTS:
  Calendar:
    POST   /api/calendar/generate             Generate (and optionally save) pay periods

  Pay periods:
    GET    /api/pay-periods?from&to           Periods intersecting a range
    POST   /api/pay-periods/{id}/processed    Mark processed
    POST   /api/pay-periods/{id}/posted       Mark posted

  Overtime:
    POST   /api/overtime/evaluate             Classify one employee's daily hours
    GET    /api/overtime/logs                 Audit rows (employee_id, pay_period_id filters)

  Payroll:
    POST   /api/payroll/aggregate             Aggregate attendance for a stored period
    GET    /api/payroll/{periodID}/summaries  Stored summary lines
    POST   /api/payroll/{periodID}/finalize   Lock summary lines

  Health:
    GET    /api/health

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert configuration documents through the factory (validation)
  3. Call domain logic (generator, engine, service)
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  - 400: Configuration errors, data errors, malformed input
  - 404: Pay period not found
  - 409: Pay period bounds collide with a stored period
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Put the service behind the
  orchestrating system's gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background calendar generation
*/
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/overtime"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     generic.Store
	Factory   *factory.Factory
	Generator *calendar.Generator
	Engine    *overtime.Engine
	Service   *payroll.Service

	// EngineConfig is the configured rule set. Evaluate requests carrying
	// their own rules or holidays start from a copy of it.
	EngineConfig overtime.Config

	log           logrus.FieldLogger
	engineOpts    []overtime.Option
	serviceOpts   []payroll.Option
	generatorOpts []calendar.Option
}

type HandlerOption func(*Handler)

func WithLogger(l logrus.FieldLogger) HandlerOption {
	return func(h *Handler) { h.log = l }
}

func WithEngineOptions(opts ...overtime.Option) HandlerOption {
	return func(h *Handler) { h.engineOpts = append(h.engineOpts, opts...) }
}

func WithServiceOptions(opts ...payroll.Option) HandlerOption {
	return func(h *Handler) { h.serviceOpts = append(h.serviceOpts, opts...) }
}

func WithGeneratorOptions(opts ...calendar.Option) HandlerOption {
	return func(h *Handler) { h.generatorOpts = append(h.generatorOpts, opts...) }
}

// NewHandler wires the engine, aggregation service and generator to one store.
// Every evaluation is audited into the store.
func NewHandler(store generic.Store, engineCfg overtime.Config, opts ...HandlerOption) *Handler {
	h := &Handler{
		Store:        store,
		Factory:      factory.NewFactory(),
		EngineConfig: engineCfg,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.Engine = h.newEngine(engineCfg)
	h.Service = payroll.NewService(h.Engine, store, append([]payroll.Option{
		payroll.WithPeriodStore(store),
		payroll.WithLogger(h.log),
	}, h.serviceOpts...)...)
	h.Generator = calendar.NewGenerator(append([]calendar.Option{
		calendar.WithLogger(h.log),
	}, h.generatorOpts...)...)
	return h
}

func (h *Handler) newEngine(cfg overtime.Config) *overtime.Engine {
	return overtime.NewEngine(cfg, append([]overtime.Option{
		overtime.WithAuditSink(h.Store),
		overtime.WithLogger(h.log),
	}, h.engineOpts...)...)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GenerateCalendar builds the pay periods of a frequency over a range.
// POST /api/calendar/generate
func (h *Handler) GenerateCalendar(w http.ResponseWriter, r *http.Request) {
	var req GenerateCalendarRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Factory.FrequencyFromJSON(req.Frequency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frequency", err)
		return
	}
	start, err := generic.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use YYYY-MM-DD)", err)
		return
	}
	end, err := generic.ParseDate(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end (use YYYY-MM-DD)", err)
		return
	}

	if !req.Save {
		periods, err := h.Generator.Generate(cfg, start, end)
		if err != nil {
			writeDomainError(w, "Failed to generate calendar", err)
			return
		}
		writeJSON(w, http.StatusOK, GenerateCalendarResponse{Periods: toPayPeriodDTOs(periods)})
		return
	}

	created, err := h.Generator.CreateAndSave(r.Context(), h.Store, cfg, start, end)
	if err != nil {
		writeDomainError(w, "Failed to save calendar", err)
		return
	}
	status := http.StatusOK
	if len(created) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, GenerateCalendarResponse{Periods: toPayPeriodDTOs(created), Created: len(created)})
}

// =============================================================================
// PAY PERIOD HANDLERS
// =============================================================================

// ListPayPeriods returns stored periods intersecting [from, to]. Both
// default to the bounds of the current year.
// GET /api/pay-periods
func (h *Handler) ListPayPeriods(w http.ResponseWriter, r *http.Request) {
	today := generic.Today()
	from := generic.NewDate(today.Year(), 1, 1)
	to := generic.NewDate(today.Year(), 12, 31)

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = generic.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM-DD)", err)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = generic.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM-DD)", err)
			return
		}
	}

	periods, err := h.Store.ListPeriods(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayPeriodDTOs(periods))
}

// MarkProcessed flags a period as processed.
// POST /api/pay-periods/{id}/processed
func (h *Handler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	h.setPeriodFlag(w, r, h.Store.MarkProcessed)
}

// MarkPosted flags a period as posted.
// POST /api/pay-periods/{id}/posted
func (h *Handler) MarkPosted(w http.ResponseWriter, r *http.Request) {
	h.setPeriodFlag(w, r, h.Store.MarkPosted)
}

func (h *Handler) setPeriodFlag(w http.ResponseWriter, r *http.Request, mark func(context.Context, generic.PayPeriodID) error) {
	id := generic.PayPeriodID(chi.URLParam(r, "id"))
	if err := mark(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to update pay period", err)
		return
	}
	period, err := h.Store.GetPeriod(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get pay period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayPeriodDTO(*period))
}

// =============================================================================
// OVERTIME HANDLERS
// =============================================================================

// EvaluateOvertime classifies one employee's daily hours.
// POST /api/overtime/evaluate
func (h *Handler) EvaluateOvertime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := h.Factory.EmployeeFromJSON(req.Employee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee", err)
		return
	}

	period, err := h.resolvePeriod(ctx, req.PayPeriod)
	if err != nil {
		writeDomainError(w, "Invalid pay period", err)
		return
	}

	daily := make(generic.DailyHours, len(req.DailyHours))
	for day, hours := range req.DailyHours {
		d, err := generic.ParseDate(day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid daily_hours date (use YYYY-MM-DD)", err)
			return
		}
		daily[d] = generic.Hours(hours)
	}

	engine, err := h.engineFor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rules or holidays", err)
		return
	}

	result, err := engine.Evaluate(ctx, emp, period, daily)
	if err != nil {
		writeDomainError(w, "Failed to evaluate overtime", err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluateResponse(result))
}

// resolvePeriod returns the stored period for an id, an ad hoc period for
// bounds, or the zero period when neither is given.
func (h *Handler) resolvePeriod(ctx context.Context, ref PeriodRef) (generic.PayPeriod, error) {
	if ref.ID != "" {
		p, err := h.Store.GetPeriod(ctx, generic.PayPeriodID(ref.ID))
		if err != nil {
			return generic.PayPeriod{}, err
		}
		return *p, nil
	}
	if ref.Start == "" && ref.End == "" {
		return generic.PayPeriod{}, nil
	}
	start, err := generic.ParseDate(ref.Start)
	if err != nil {
		return generic.PayPeriod{}, generic.NewConfigurationError("pay_period.start", ref.Start, err.Error())
	}
	end, err := generic.ParseDate(ref.End)
	if err != nil {
		return generic.PayPeriod{}, generic.NewConfigurationError("pay_period.end", ref.End, err.Error())
	}
	return generic.PayPeriod{Start: start, End: end}, nil
}

// engineFor returns the configured engine, or a fresh one when the request
// overrides rules or holidays.
func (h *Handler) engineFor(req EvaluateRequest) (*overtime.Engine, error) {
	if req.Rules == nil && req.Holidays == nil {
		return h.Engine, nil
	}
	cfg := h.EngineConfig
	if req.Rules != nil {
		cfg.Rules = make([]overtime.Rule, 0, len(req.Rules))
		for _, rj := range req.Rules {
			rule, err := h.Factory.RuleFromJSON(rj)
			if err != nil {
				return nil, err
			}
			cfg.Rules = append(cfg.Rules, rule)
		}
	}
	if req.Holidays != nil {
		cfg.Holidays = make([]overtime.Holiday, 0, len(req.Holidays))
		for _, hj := range req.Holidays {
			holiday, err := h.Factory.HolidayFromJSON(hj)
			if err != nil {
				return nil, err
			}
			cfg.Holidays = append(cfg.Holidays, holiday)
		}
	}
	return h.newEngine(cfg), nil
}

// ListCalculations returns audit rows ordered by employee then work date.
// GET /api/overtime/logs
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	filter := generic.CalculationFilter{
		EmployeeID:  generic.EmployeeID(r.URL.Query().Get("employee_id")),
		PayPeriodID: generic.PayPeriodID(r.URL.Query().Get("pay_period_id")),
	}
	entries, err := h.Store.Calculations(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}

	dtos := make([]CalculationDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toCalculationDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// AggregatePayroll aggregates attendance for every employee of a stored
// period, stores summary lines and marks the period processed.
// POST /api/payroll/aggregate
func (h *Handler) AggregatePayroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AggregateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PayPeriodID == "" {
		writeError(w, http.StatusBadRequest, "pay_period_id is required", nil)
		return
	}

	period, err := h.Store.GetPeriod(ctx, generic.PayPeriodID(req.PayPeriodID))
	if err != nil {
		writeDomainError(w, "Failed to get pay period", err)
		return
	}

	inputs := make([]payroll.EmployeeInput, 0, len(req.Employees))
	for _, in := range req.Employees {
		input, err := h.employeeInput(in)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid employee input", err)
			return
		}
		inputs = append(inputs, input)
	}

	summaries, err := h.Service.AggregatePeriod(ctx, *period, inputs)
	if err != nil {
		writeDomainError(w, "Failed to aggregate payroll", err)
		return
	}

	if updated, err := h.Store.GetPeriod(ctx, period.ID); err == nil {
		period = updated
	}
	writeJSON(w, http.StatusOK, AggregateResponse{PayPeriod: toPayPeriodDTO(*period), Summaries: summaries})
}

func (h *Handler) employeeInput(in EmployeeInputDTO) (payroll.EmployeeInput, error) {
	emp, err := h.Factory.EmployeeFromJSON(in.Employee)
	if err != nil {
		return payroll.EmployeeInput{}, err
	}

	input := payroll.EmployeeInput{Employee: emp}
	for _, p := range in.Punches {
		punch := payroll.Punch{
			EmployeeID: emp.ID,
			At:         p.At,
			GroupID:    p.GroupID,
			State:      payroll.PunchState(p.State),
			TypeName:   p.TypeName,
			Status:     p.Status,
		}
		if p.ShiftDate != "" {
			d, err := generic.ParseDate(p.ShiftDate)
			if err != nil {
				return payroll.EmployeeInput{}, generic.NewConfigurationError("shift_date", p.ShiftDate, err.Error())
			}
			punch.ShiftDate = &d
		}
		input.Punches = append(input.Punches, punch)
	}
	for _, l := range in.Leaves {
		d, err := generic.ParseDate(l.Date)
		if err != nil {
			return payroll.EmployeeInput{}, generic.NewConfigurationError("date", l.Date, err.Error())
		}
		input.Leaves = append(input.Leaves, payroll.LeaveRecord{
			EmployeeID: emp.ID,
			Date:       d,
			Code:       l.Code,
			Status:     l.Status,
		})
	}
	return input, nil
}

// ListSummaries returns the stored summary lines of a period.
// GET /api/payroll/{periodID}/summaries
func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.PayPeriodID(chi.URLParam(r, "periodID"))

	if _, err := h.Store.GetPeriod(ctx, id); err != nil {
		writeDomainError(w, "Failed to get pay period", err)
		return
	}
	lines, err := h.Store.SummaryLines(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pay_period_id": id,
		"lines":         toSummaryLineDTOs(lines),
	})
}

// FinalizeSummaries locks the open summary lines of a period.
// POST /api/payroll/{periodID}/finalize
func (h *Handler) FinalizeSummaries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.PayPeriodID(chi.URLParam(r, "periodID"))

	if _, err := h.Store.GetPeriod(ctx, id); err != nil {
		writeDomainError(w, "Failed to get pay period", err)
		return
	}
	n, err := h.Service.Finalize(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to finalize summaries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pay_period_id": id,
		"finalized":     n,
	})
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether the store is reachable.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, errorStatus(err), message, err)
}

func errorStatus(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
