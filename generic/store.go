/*
store.go - Persistence interfaces for pay periods, audit rows and summaries

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACES:
  PeriodStore:    Generated pay periods (idempotent insert, lookup, flags)
  CalculationLog: Per-day audit rows (upsert)
  SummaryStore:   Per-classification hours (atomic upsert, finalize)

IDEMPOTENCY:
  Pay periods are unique on (start, end). InsertPeriodIfAbsent never fails
  because of an existing row; it reports created=false instead. This is
  what makes calendar generation safe to re-run.

ATOMIC BATCHES:
  SaveSummaryLines() writes all lines of one employee or none of them.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite/PostgreSQL
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  created, err := store.InsertPeriodIfAbsent(ctx, period)
  if err == nil && !created {
      // Already generated, safe to ignore
  }

SEE ALSO:
  - ledger.go: Record types
  - store/sqlite/sqlite.go: Concrete implementation
*/
package generic

import "context"

// =============================================================================
// PERIOD STORE
// =============================================================================

type PeriodStore interface {
	// InsertPeriodIfAbsent persists p unless a period with the same start and
	// end already exists. created reports whether a row was written.
	InsertPeriodIfAbsent(ctx context.Context, p PayPeriod) (created bool, err error)

	// GetPeriod returns ErrPeriodNotFound when id is unknown.
	GetPeriod(ctx context.Context, id PayPeriodID) (*PayPeriod, error)

	// FindPeriod looks a period up by its bounds. Returns nil, nil if absent.
	FindPeriod(ctx context.Context, start, end Date) (*PayPeriod, error)

	// ListPeriods returns periods intersecting [from, to] ordered by start.
	ListPeriods(ctx context.Context, from, to Date) ([]PayPeriod, error)

	MarkProcessed(ctx context.Context, id PayPeriodID) error
	MarkPosted(ctx context.Context, id PayPeriodID) error
}

// =============================================================================
// CALCULATION LOG
// =============================================================================

type CalculationLog interface {
	// RecordCalculation upserts the entry keyed by (employee, period, work date).
	RecordCalculation(ctx context.Context, entry CalculationEntry) error

	// Calculations returns matching entries ordered by employee then work date.
	Calculations(ctx context.Context, filter CalculationFilter) ([]CalculationEntry, error)
}

// =============================================================================
// SUMMARY STORE
// =============================================================================

type SummaryStore interface {
	// SaveSummaryLines upserts all lines atomically. Rewritten lines are no
	// longer finalized.
	SaveSummaryLines(ctx context.Context, lines []SummaryLine) error

	// SummaryLines returns lines of a period ordered by employee then classification.
	SummaryLines(ctx context.Context, periodID PayPeriodID) ([]SummaryLine, error)

	// FinalizeSummaries marks every open line of the period final and
	// returns how many lines changed.
	FinalizeSummaries(ctx context.Context, periodID PayPeriodID) (int, error)
}

// Store is everything the server needs from one backend.
type Store interface {
	PeriodStore
	CalculationLog
	SummaryStore
}
