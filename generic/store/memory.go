// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	periods      map[generic.PayPeriodID]generic.PayPeriod
	bounds       map[generic.Period]generic.PayPeriodID
	calculations map[generic.CalculationKey]generic.CalculationEntry
	summaries    map[generic.SummaryKey]generic.SummaryLine
	now          func() time.Time
}

var _ generic.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		periods:      make(map[generic.PayPeriodID]generic.PayPeriod),
		bounds:       make(map[generic.Period]generic.PayPeriodID),
		calculations: make(map[generic.CalculationKey]generic.CalculationEntry),
		summaries:    make(map[generic.SummaryKey]generic.SummaryLine),
		now:          time.Now,
	}
}

// =============================================================================
// PAY PERIODS
// =============================================================================

// InsertPeriodIfAbsent stores p unless its bounds are taken.
func (m *Memory) InsertPeriodIfAbsent(_ context.Context, p generic.PayPeriod) (bool, error) {
	if err := p.Period().Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bounds[p.Period()]; exists {
		return false, nil
	}
	if p.ID == "" {
		p.ID = generic.PayPeriodID(uuid.NewString())
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	m.periods[p.ID] = p
	m.bounds[p.Period()] = p.ID
	return true, nil
}

func (m *Memory) GetPeriod(_ context.Context, id generic.PayPeriodID) (*generic.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, generic.ErrPeriodNotFound
	}
	return &p, nil
}

func (m *Memory) FindPeriod(_ context.Context, start, end generic.Date) (*generic.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.bounds[generic.Period{Start: start, End: end}]
	if !ok {
		return nil, nil
	}
	p := m.periods[id]
	return &p, nil
}

func (m *Memory) ListPeriods(_ context.Context, from, to generic.Date) ([]generic.PayPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	window := generic.Period{Start: from, End: to}
	var result []generic.PayPeriod
	for _, p := range m.periods {
		if p.Period().Overlaps(window) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (m *Memory) MarkProcessed(_ context.Context, id generic.PayPeriodID) error {
	return m.updatePeriod(id, func(p *generic.PayPeriod) { p.Processed = true })
}

func (m *Memory) MarkPosted(_ context.Context, id generic.PayPeriodID) error {
	return m.updatePeriod(id, func(p *generic.PayPeriod) { p.Posted = true })
}

func (m *Memory) updatePeriod(id generic.PayPeriodID, fn func(*generic.PayPeriod)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok {
		return generic.ErrPeriodNotFound
	}
	fn(&p)
	m.periods[id] = p
	return nil
}

// =============================================================================
// CALCULATION LOG
// =============================================================================

// RecordCalculation upserts by (employee, period, work date).
func (m *Memory) RecordCalculation(_ context.Context, entry generic.CalculationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.CalculatedAt.IsZero() {
		entry.CalculatedAt = m.now()
	}
	m.calculations[entry.Key()] = entry
	return nil
}

func (m *Memory) Calculations(_ context.Context, filter generic.CalculationFilter) ([]generic.CalculationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.CalculationEntry
	for _, e := range m.calculations {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeID != result[j].EmployeeID {
			return result[i].EmployeeID < result[j].EmployeeID
		}
		return result[i].WorkDate.Before(result[j].WorkDate)
	})
	return result, nil
}

// =============================================================================
// SUMMARIES
// =============================================================================

// SaveSummaryLines upserts all lines under one lock. Rewritten lines reopen.
func (m *Memory) SaveSummaryLines(_ context.Context, lines []generic.SummaryLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for _, l := range lines {
		l.Finalized = false
		l.UpdatedAt = now
		m.summaries[l.Key()] = l
	}
	return nil
}

func (m *Memory) SummaryLines(_ context.Context, periodID generic.PayPeriodID) ([]generic.SummaryLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []generic.SummaryLine
	for k, l := range m.summaries {
		if k.PayPeriodID == periodID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EmployeeID != result[j].EmployeeID {
			return result[i].EmployeeID < result[j].EmployeeID
		}
		return result[i].Classification < result[j].Classification
	})
	return result, nil
}

func (m *Memory) FinalizeSummaries(_ context.Context, periodID generic.PayPeriodID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for k, l := range m.summaries {
		if k.PayPeriodID == periodID && !l.Finalized {
			l.Finalized = true
			m.summaries[k] = l
			count++
		}
	}
	return count, nil
}
