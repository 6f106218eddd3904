/*
Package sqlite provides a SQL-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store (pay periods, calculation audit rows, summary
  lines) with database/sql. SQLite is the default backend; the same
  statements run on PostgreSQL, only placeholders differ.

INTERFACES IMPLEMENTED:
  generic.PeriodStore:    Generated pay periods
  generic.CalculationLog: Per-day overtime audit rows
  generic.SummaryStore:   Per-classification hours

IDEMPOTENCY:
  Uniqueness lives in the schema, not in application code:
  - pay_periods(start_date, end_date)
  - overtime_calculation_logs(employee_id, pay_period_id, work_date)
  - pay_period_employee_summaries(pay_period_id, employee_id, classification)
  Inserts use ON CONFLICT, so re-running generation or evaluation never
  creates duplicate rows.

KEY TABLES:
  pay_periods:                   Calendar with processed/posted flags
  overtime_calculation_logs:     One row per classified employee day
  pay_period_employee_summaries: Hours per classification, finalizable

DIALECTS:
  sqlite3:  mattn/go-sqlite3, opened in WAL mode with foreign keys on
  postgres: lib/pq, "?" placeholders rebound to $1..$n

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, which also keeps SQLite to a
  single writer. With PostgreSQL, database-level concurrency control
  handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  created, err := calendar.NewGenerator().CreateAndSave(ctx, store, cfg, start, end)

MIGRATION:
  Schema is auto-migrated on New() and Open(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/generic"
)

// Dialect names the SQL flavour, equal to the database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Store implements generic.Store on a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
	now     func() time.Time
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open(string(DialectSQLite), dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	return open(db, DialectSQLite)
}

// Open connects with driver "sqlite3" (dsn is a file path) or "postgres".
func Open(driver, dsn string) (*Store, error) {
	switch Dialect(driver) {
	case DialectSQLite:
		return New(dsn)
	case DialectPostgres:
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return open(db, DialectPostgres)
	}
	return nil, generic.NewConfigurationError("database_driver", driver, "must be sqlite3 or postgres")
}

func open(db *sql.DB, dialect Dialect) (*Store, error) {
	store := FromDB(db, dialect)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// FromDB wraps an open connection without migrating it.
func FromDB(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
	-- Pay period calendar
	CREATE TABLE IF NOT EXISTS pay_periods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		pay_date TEXT,
		is_processed BOOLEAN NOT NULL DEFAULT FALSE,
		is_posted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		UNIQUE(start_date, end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_pay_periods_dates
		ON pay_periods(start_date, end_date);

	-- Overtime audit trail: one row per classified employee day
	CREATE TABLE IF NOT EXISTS overtime_calculation_logs (
		employee_id TEXT NOT NULL,
		pay_period_id TEXT NOT NULL,
		work_date TEXT NOT NULL,
		total_hours TEXT NOT NULL,
		regular_hours TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		double_time_hours TEXT NOT NULL,
		holiday_hours TEXT NOT NULL,
		rule_id TEXT,
		holiday_id TEXT,
		reason TEXT NOT NULL,
		context_json TEXT,
		overtime_multiplier TEXT NOT NULL,
		double_time_multiplier TEXT NOT NULL,
		calculated_at TEXT NOT NULL,
		UNIQUE(employee_id, pay_period_id, work_date)
	);

	CREATE INDEX IF NOT EXISTS idx_calculation_logs_period
		ON overtime_calculation_logs(pay_period_id, employee_id);

	-- Hours per classification
	CREATE TABLE IF NOT EXISTS pay_period_employee_summaries (
		pay_period_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		classification TEXT NOT NULL,
		hours TEXT NOT NULL,
		is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		UNIQUE(pay_period_id, employee_id, classification)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// PERIOD STORE (generic.PeriodStore interface)
// =============================================================================

const periodColumns = `id, name, start_date, end_date, pay_date, is_processed, is_posted, created_at`

// InsertPeriodIfAbsent writes the period unless its bounds exist.
func (s *Store) InsertPeriodIfAbsent(ctx context.Context, p generic.PayPeriod) (bool, error) {
	if err := p.Period().Validate(); err != nil {
		return false, err
	}
	if p.ID == "" {
		p.ID = generic.PayPeriodID(uuid.NewString())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO pay_periods (` + periodColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (start_date, end_date) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, s.rebind(query),
		p.ID,
		p.Name,
		p.Start.String(),
		p.End.String(),
		nullDate(p.PayDate),
		p.Processed,
		p.Posted,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, fmt.Errorf("period %s: %w", p.ID, generic.ErrPeriodExists)
		}
		return false, fmt.Errorf("failed to insert pay period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetPeriod returns a period by id.
func (s *Store) GetPeriod(ctx context.Context, id generic.PayPeriodID) (*generic.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods, err := s.queryPeriods(ctx, `SELECT `+periodColumns+` FROM pay_periods WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, generic.ErrPeriodNotFound
	}
	return &periods[0], nil
}

// FindPeriod looks a period up by its bounds.
func (s *Store) FindPeriod(ctx context.Context, start, end generic.Date) (*generic.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods, err := s.queryPeriods(ctx,
		`SELECT `+periodColumns+` FROM pay_periods WHERE start_date = ? AND end_date = ?`,
		start.String(), end.String())
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, nil
	}
	return &periods[0], nil
}

// ListPeriods returns periods intersecting [from, to] ordered by start.
func (s *Store) ListPeriods(ctx context.Context, from, to generic.Date) ([]generic.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + periodColumns + `
		FROM pay_periods
		WHERE start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC
	`
	return s.queryPeriods(ctx, query, to.String(), from.String())
}

func (s *Store) MarkProcessed(ctx context.Context, id generic.PayPeriodID) error {
	return s.setFlag(ctx, id, "is_processed")
}

func (s *Store) MarkPosted(ctx context.Context, id generic.PayPeriodID) error {
	return s.setFlag(ctx, id, "is_posted")
}

func (s *Store) setFlag(ctx context.Context, id generic.PayPeriodID, column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE pay_periods SET `+column+` = ? WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("failed to update pay period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrPeriodNotFound
	}
	return nil
}

func (s *Store) queryPeriods(ctx context.Context, query string, args ...any) ([]generic.PayPeriod, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pay periods: %w", err)
	}
	defer rows.Close()

	var periods []generic.PayPeriod
	for rows.Next() {
		var (
			p                  generic.PayPeriod
			start, end, create string
			pay                sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &start, &end, &pay, &p.Processed, &p.Posted, &create); err != nil {
			return nil, fmt.Errorf("failed to scan pay period: %w", err)
		}
		if p.Start, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if p.End, err = generic.ParseDate(end); err != nil {
			return nil, err
		}
		if pay.Valid && pay.String != "" {
			if p.PayDate, err = generic.ParseDate(pay.String); err != nil {
				return nil, err
			}
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339, create); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", create, err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// =============================================================================
// CALCULATION LOG (generic.CalculationLog interface)
// =============================================================================

const calculationColumns = `employee_id, pay_period_id, work_date, total_hours, regular_hours,
	overtime_hours, double_time_hours, holiday_hours, rule_id, holiday_id, reason,
	context_json, overtime_multiplier, double_time_multiplier, calculated_at`

// RecordCalculation upserts the audit row of one employee day.
func (s *Store) RecordCalculation(ctx context.Context, e generic.CalculationEntry) error {
	if e.CalculatedAt.IsZero() {
		e.CalculatedAt = s.now()
	}
	contextJSON, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("failed to encode calculation context: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO overtime_calculation_logs (` + calculationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, pay_period_id, work_date) DO UPDATE SET
			total_hours = excluded.total_hours,
			regular_hours = excluded.regular_hours,
			overtime_hours = excluded.overtime_hours,
			double_time_hours = excluded.double_time_hours,
			holiday_hours = excluded.holiday_hours,
			rule_id = excluded.rule_id,
			holiday_id = excluded.holiday_id,
			reason = excluded.reason,
			context_json = excluded.context_json,
			overtime_multiplier = excluded.overtime_multiplier,
			double_time_multiplier = excluded.double_time_multiplier,
			calculated_at = excluded.calculated_at
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		e.EmployeeID,
		e.PayPeriodID,
		e.WorkDate.String(),
		e.TotalHours.String(),
		e.RegularHours.String(),
		e.OvertimeHours.String(),
		e.DoubleTimeHours.String(),
		e.HolidayHours.String(),
		nullString(e.RuleID),
		nullString(e.HolidayID),
		e.Reason,
		string(contextJSON),
		e.OvertimeMultiplier.String(),
		e.DoubleTimeMultiplier.String(),
		e.CalculatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record calculation: %w", err)
	}
	return nil
}

// Calculations returns audit rows ordered by employee then work date.
func (s *Store) Calculations(ctx context.Context, filter generic.CalculationFilter) ([]generic.CalculationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, filter.EmployeeID)
	}
	if filter.PayPeriodID != "" {
		where = append(where, "pay_period_id = ?")
		args = append(args, filter.PayPeriodID)
	}
	query := `SELECT ` + calculationColumns + ` FROM overtime_calculation_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY employee_id ASC, work_date ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculations: %w", err)
	}
	defer rows.Close()

	var entries []generic.CalculationEntry
	for rows.Next() {
		e, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanCalculation(rows *sql.Rows) (generic.CalculationEntry, error) {
	var (
		e                                   generic.CalculationEntry
		workDate, calculatedAt              string
		total, regular, overtime, double    string
		holiday, otMultiplier, dtMultiplier string
		ruleID, holidayID, contextJSON      sql.NullString
	)
	err := rows.Scan(
		&e.EmployeeID, &e.PayPeriodID, &workDate,
		&total, &regular, &overtime, &double, &holiday,
		&ruleID, &holidayID, &e.Reason, &contextJSON,
		&otMultiplier, &dtMultiplier, &calculatedAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan calculation: %w", err)
	}

	if e.WorkDate, err = generic.ParseDate(workDate); err != nil {
		return e, err
	}
	e.TotalHours = parseDecimal(total)
	e.RegularHours = parseDecimal(regular)
	e.OvertimeHours = parseDecimal(overtime)
	e.DoubleTimeHours = parseDecimal(double)
	e.HolidayHours = parseDecimal(holiday)
	e.OvertimeMultiplier = parseDecimal(otMultiplier)
	e.DoubleTimeMultiplier = parseDecimal(dtMultiplier)
	e.RuleID = ruleID.String
	e.HolidayID = holidayID.String
	if e.CalculatedAt, err = time.Parse(time.RFC3339Nano, calculatedAt); err != nil {
		return e, fmt.Errorf("invalid calculated_at %q: %w", calculatedAt, err)
	}

	if contextJSON.Valid && contextJSON.String != "" && contextJSON.String != "null" {
		if err := json.Unmarshal([]byte(contextJSON.String), &e.Context); err != nil {
			return e, fmt.Errorf("failed to decode calculation context: %w", err)
		}
	}
	return e, nil
}

// =============================================================================
// SUMMARY STORE (generic.SummaryStore interface)
// =============================================================================

// SaveSummaryLines upserts all lines in one transaction. Rewritten lines
// are reopened.
func (s *Store) SaveSummaryLines(ctx context.Context, lines []generic.SummaryLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := s.rebind(`
		INSERT INTO pay_period_employee_summaries
		(pay_period_id, employee_id, classification, hours, is_finalized, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (pay_period_id, employee_id, classification) DO UPDATE SET
			hours = excluded.hours,
			is_finalized = excluded.is_finalized,
			updated_at = excluded.updated_at
	`)
	now := s.now().UTC().Format(time.RFC3339)
	for _, l := range lines {
		if _, err := sqlTx.ExecContext(ctx, query,
			l.PayPeriodID, l.EmployeeID, string(l.Classification), l.Hours.String(), false, now,
		); err != nil {
			return fmt.Errorf("failed to save summary line: %w", err)
		}
	}
	return sqlTx.Commit()
}

// SummaryLines returns lines of a period ordered by employee then classification.
func (s *Store) SummaryLines(ctx context.Context, periodID generic.PayPeriodID) ([]generic.SummaryLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT pay_period_id, employee_id, classification, hours, is_finalized, updated_at
		FROM pay_period_employee_summaries
		WHERE pay_period_id = ?
		ORDER BY employee_id ASC, classification ASC
	`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var lines []generic.SummaryLine
	for rows.Next() {
		var (
			l                       generic.SummaryLine
			class, hours, updatedAt string
		)
		if err := rows.Scan(&l.PayPeriodID, &l.EmployeeID, &class, &hours, &l.Finalized, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		l.Classification = generic.ParseClassification(class)
		l.Hours = parseDecimal(hours)
		if l.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// FinalizeSummaries marks open lines of the period final.
func (s *Store) FinalizeSummaries(ctx context.Context, periodID generic.PayPeriodID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE pay_period_employee_summaries
		SET is_finalized = ?, updated_at = ?
		WHERE pay_period_id = ? AND is_finalized = ?
	`), true, s.now().UTC().Format(time.RFC3339), periodID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to finalize summaries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"overtime_calculation_logs", "pay_period_employee_summaries", "pay_periods"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites "?" placeholders for the dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullDate stores an unset date as NULL.
func nullDate(d generic.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
