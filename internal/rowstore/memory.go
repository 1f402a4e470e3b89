package rowstore

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"projects/pkg/platform/sentinel"
)

// Stats counts statements issued against a Memory store.
type Stats struct {
	Selects int
	Inserts int
	Updates int
	Exists  int
}

// Statements is the total of all counted statements.
func (s Stats) Statements() int {
	return s.Selects + s.Inserts + s.Updates + s.Exists
}

// Memory is an in-process Store for tests and the memory driver.
// Rows keep insertion order; values are copied on the way in and out.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Values
	unique map[string][]string
	stats  Stats
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithUnique makes Insert and Update reject duplicate values in the given columns.
func WithUnique(table string, columns ...string) MemoryOption {
	return func(m *Memory) {
		m.unique[table] = append(m.unique[table], columns...)
	}
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		tables: make(map[string][]Values),
		unique: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) SelectOne(_ context.Context, table, column string, value any) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Selects++

	for _, row := range m.tables[table] {
		if matches(row, column, value) {
			return maps.Clone(row), nil
		}
	}
	return nil, fmt.Errorf("select %s where %s: %w", table, column, ErrNoSuchRow)
}

func (m *Memory) SelectAll(_ context.Context, table, column string, value any) (Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Selects++

	var rows []Row
	for _, row := range m.tables[table] {
		if matches(row, column, value) {
			rows = append(rows, maps.Clone(row))
		}
	}
	return NewSliceCursor(rows), nil
}

func (m *Memory) Insert(_ context.Context, table string, values []Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Inserts++

	row := FromPairs(values)
	if err := m.checkUnique(table, row, -1); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	m.tables[table] = append(m.tables[table], row)
	return nil
}

func (m *Memory) Update(_ context.Context, table, keyColumn string, keyValue any, values []Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Updates++

	for i, row := range m.tables[table] {
		if !matches(row, keyColumn, keyValue) {
			continue
		}
		updated := maps.Clone(row)
		for _, p := range values {
			updated[p.Column] = p.Value
		}
		if err := m.checkUnique(table, updated, i); err != nil {
			return fmt.Errorf("update %s: %w", table, err)
		}
		m.tables[table][i] = updated
		return nil
	}
	return fmt.Errorf("update %s where %s: %w", table, keyColumn, ErrNoSuchRow)
}

func (m *Memory) ValueExists(_ context.Context, table, column string, value any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Exists++

	for _, row := range m.tables[table] {
		if matches(row, column, value) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) MaxInt(_ context.Context, table, column string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		highest int64
		found   bool
	)
	for _, row := range m.tables[table] {
		v, err := row.Get(column, TypeInteger)
		if err != nil {
			return 0, false, fmt.Errorf("max %s.%s: %w", table, column, err)
		}
		if v == nil {
			continue
		}
		if n := v.(int64); !found || n > highest {
			highest, found = n, true
		}
	}
	return highest, found, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Stats returns the statement counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// ResetStats zeroes the statement counters.
func (m *Memory) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}

// Rows returns a copy of every row in table.
func (m *Memory) Rows(table string) []Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Values, len(m.tables[table]))
	for i, row := range m.tables[table] {
		out[i] = maps.Clone(row)
	}
	return out
}

// Seed inserts rows without counting statements or checking constraints.
func (m *Memory) Seed(table string, rows ...Values) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.tables[table] = append(m.tables[table], maps.Clone(row))
	}
}

func (m *Memory) checkUnique(table string, row Values, skip int) error {
	for _, column := range m.unique[table] {
		v, ok := row[column]
		if !ok || v == nil {
			continue
		}
		for i, other := range m.tables[table] {
			if i != skip && matches(other, column, v) {
				return fmt.Errorf("duplicate %s: %w", column, sentinel.ErrConflict)
			}
		}
	}
	return nil
}

func matches(row Values, column string, value any) bool {
	v, ok := row[column]
	if !ok || v == nil || value == nil {
		return false
	}
	return Normalize(v) == Normalize(value)
}
