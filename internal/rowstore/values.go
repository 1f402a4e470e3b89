package rowstore

import (
	"fmt"
	"maps"
	"slices"
)

// Values is a Row held in memory, keyed by column name.
type Values map[string]any

// Columns returns the column names in sorted order.
func (v Values) Columns() []string {
	return slices.Sorted(maps.Keys(v))
}

func (v Values) Get(column string, t Type) (any, error) {
	raw, ok := v[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchColumn, column)
	}
	return Convert(raw, t)
}

// FromPairs builds Values from an insert or update payload.
func FromPairs(pairs []Pair) Values {
	v := make(Values, len(pairs))
	for _, p := range pairs {
		v[p.Column] = p.Value
	}
	return v
}

// SliceCursor iterates rows that are already in memory.
type SliceCursor struct {
	rows []Row
	pos  int
}

// NewSliceCursor returns a cursor positioned before the first row.
func NewSliceCursor(rows []Row) *SliceCursor {
	return &SliceCursor{rows: rows, pos: -1}
}

func (c *SliceCursor) Next() bool {
	if c.pos+1 >= len(c.rows) {
		c.pos = len(c.rows)
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Row() Row {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}
	return c.rows[c.pos]
}

func (c *SliceCursor) Err() error   { return nil }
func (c *SliceCursor) Close() error { return nil }
