// Package rowstore defines the row-level collaborator the mapping engine reads
// from and writes to, plus the typed column conversions shared by every adapter.
package rowstore

import (
	"context"
	"errors"
	"fmt"

	"projects/pkg/platform/sentinel"
)

var (
	// ErrNoSuchRow is returned when an equality lookup matches nothing.
	// It wraps sentinel.ErrNotFound.
	ErrNoSuchRow = fmt.Errorf("no such row: %w", sentinel.ErrNotFound)
	// ErrNoSuchColumn is returned by Row.Get for a column the row does not carry.
	ErrNoSuchColumn = errors.New("no such column")
	// ErrUnsupportedType is returned when a column type is unknown or a stored
	// value cannot be read as the requested type.
	ErrUnsupportedType = errors.New("unsupported type")
)

// Pair is one column assignment in an insert or update.
type Pair struct {
	Column string
	Value  any
}

// Row is a single fetched row. Get returns nil for SQL NULL.
type Row interface {
	Columns() []string
	Get(column string, t Type) (any, error)
}

// Cursor walks a multi-row result forward exactly once.
type Cursor interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Store is the statement layer: equality lookups and single-row writes.
type Store interface {
	SelectOne(ctx context.Context, table, column string, value any) (Row, error)
	SelectAll(ctx context.Context, table, column string, value any) (Cursor, error)
	Insert(ctx context.Context, table string, values []Pair) error
	Update(ctx context.Context, table, keyColumn string, keyValue any, values []Pair) error
	ValueExists(ctx context.Context, table, column string, value any) (bool, error)
}

// MaxFinder is implemented by stores that can report the largest integer in a column.
// ok is false when the table is empty.
type MaxFinder interface {
	MaxInt(ctx context.Context, table, column string) (max int64, ok bool, err error)
}

// Pinger is implemented by stores backed by a remote database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Columns returns the column names of pairs in order.
func Columns(pairs []Pair) []string {
	cols := make([]string, len(pairs))
	for i, p := range pairs {
		cols[i] = p.Column
	}
	return cols
}

// Collect drains a cursor into a slice and closes it.
func Collect(c Cursor) ([]Row, error) {
	defer c.Close()
	var rows []Row
	for c.Next() {
		rows = append(rows, c.Row())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
