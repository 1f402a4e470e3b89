package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"projects/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Dialect captures the statement differences between supported databases.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgresql"
}

// placeholder returns the bind marker for the n-th argument, starting at 1.
func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

func quote(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d Dialect) selectWhere(table, column string, limit bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s WHERE %s = %s", quote(table), quote(column), d.placeholder(1))
	if limit {
		b.WriteString(" LIMIT 1")
	} else {
		b.WriteString(" ORDER BY 1")
	}
	return b.String()
}

func (d Dialect) insert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}

func (d Dialect) update(table, keyColumn string, columns []string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = quote(c) + " = " + d.placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quote(table), strings.Join(sets, ", "), quote(keyColumn), d.placeholder(len(columns)+1))
}

func (d Dialect) exists(table, column string) string {
	return fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = %s)", quote(table), quote(column), d.placeholder(1))
}

func (d Dialect) max(table, column string) string {
	return fmt.Sprintf("SELECT MAX(%s) FROM %s", quote(column), quote(table))
}

// classify maps unique violations from any supported driver onto sentinel.ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	}
	return err
}
