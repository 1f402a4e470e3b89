package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"projects/internal/platform/metrics"
	"projects/internal/rowstore"
	"projects/pkg/platform/sentinel"
	"projects/pkg/platform/tx"
)

const testSchema = `
CREATE TABLE departments (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	budget NUMERIC,
	head_id BIGINT
);
CREATE TABLE employees (
	id BIGINT PRIMARY KEY,
	hire_date TIMESTAMP NOT NULL,
	email TEXT NOT NULL UNIQUE,
	wage DOUBLE PRECISION,
	active BOOLEAN,
	department_id BIGINT
);
`

type SQLiteSuite struct {
	suite.Suite
	ctx     context.Context
	store   *Store
	metrics *metrics.RowStore
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.ctx = context.Background()
	s.metrics = metrics.NewRowStore(prometheus.NewRegistry())

	store, err := Open(s.ctx, "sqlite", filepath.Join(s.T().TempDir(), "staff.db"), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = store.Close() })
	s.Require().NoError(store.Apply(s.ctx, testSchema))
	s.store = store
}

func (s *SQLiteSuite) insertEmployee(id int64, email string, dept any) {
	s.Require().NoError(s.store.Insert(s.ctx, "employees", []rowstore.Pair{
		{Column: "id", Value: id},
		{Column: "hire_date", Value: time.Date(2020, 1, 6, 9, 0, 0, 0, time.UTC)},
		{Column: "email", Value: email},
		{Column: "wage", Value: 31000.5},
		{Column: "active", Value: true},
		{Column: "department_id", Value: dept},
	}))
}

func (s *SQLiteSuite) TestRoundTripTypedColumns() {
	s.insertEmployee(1, "ada@example.com", nil)

	row, err := s.store.SelectOne(s.ctx, "employees", "id", int64(1))
	s.Require().NoError(err)

	hired, err := row.Get("hire_date", rowstore.TypeTime)
	s.Require().NoError(err)
	s.True(time.Date(2020, 1, 6, 9, 0, 0, 0, time.UTC).Equal(hired.(time.Time)))

	wage, err := row.Get("wage", rowstore.TypeDouble)
	s.Require().NoError(err)
	s.Equal(31000.5, wage)

	active, err := row.Get("active", rowstore.TypeBool)
	s.Require().NoError(err)
	s.Equal(true, active)

	dept, err := row.Get("department_id", rowstore.TypeInteger)
	s.Require().NoError(err)
	s.Nil(dept)

	_, err = row.Get("missing", rowstore.TypeString)
	s.ErrorIs(err, rowstore.ErrNoSuchColumn)
}

func (s *SQLiteSuite) TestDecimalColumn() {
	s.Require().NoError(s.store.Insert(s.ctx, "departments", []rowstore.Pair{
		{Column: "id", Value: int64(5)},
		{Column: "name", Value: "Research"},
		{Column: "budget", Value: decimal.RequireFromString("125000.25")},
		{Column: "head_id", Value: nil},
	}))
	row, err := s.store.SelectOne(s.ctx, "departments", "name", "Research")
	s.Require().NoError(err)
	budget, err := row.Get("budget", rowstore.TypeDecimal)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("125000.25").Equal(budget.(decimal.Decimal)))
}

func (s *SQLiteSuite) TestSelectOneMissing() {
	_, err := s.store.SelectOne(s.ctx, "employees", "id", int64(404))
	s.ErrorIs(err, rowstore.ErrNoSuchRow)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Failures.WithLabelValues("select_one", "employees")))
}

func (s *SQLiteSuite) TestSelectAllStreamsInKeyOrder() {
	s.insertEmployee(3, "c@example.com", int64(5))
	s.insertEmployee(1, "a@example.com", int64(5))
	s.insertEmployee(2, "b@example.com", int64(6))

	rows, err := rowstore.Collect(mustCursor(s.store.SelectAll(s.ctx, "employees", "department_id", int64(5))))
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	first, _ := rows[0].Get("id", rowstore.TypeInteger)
	second, _ := rows[1].Get("id", rowstore.TypeInteger)
	s.Equal(int64(1), first)
	s.Equal(int64(3), second)
}

func (s *SQLiteSuite) TestUpdate() {
	s.insertEmployee(1, "ada@example.com", nil)
	s.insertEmployee(2, "grace@example.com", nil)

	s.Run("writes only the given columns", func() {
		err := s.store.Update(s.ctx, "employees", "id", int64(1), []rowstore.Pair{{Column: "wage", Value: 40000.0}})
		s.Require().NoError(err)
		row, err := s.store.SelectOne(s.ctx, "employees", "id", int64(1))
		s.Require().NoError(err)
		wage, _ := row.Get("wage", rowstore.TypeDouble)
		email, _ := row.Get("email", rowstore.TypeString)
		s.Equal(40000.0, wage)
		s.Equal("ada@example.com", email)
	})

	s.Run("missing key", func() {
		err := s.store.Update(s.ctx, "employees", "id", int64(9), []rowstore.Pair{{Column: "wage", Value: 1.0}})
		s.ErrorIs(err, rowstore.ErrNoSuchRow)
	})

	s.Run("unique violation is a conflict", func() {
		err := s.store.Update(s.ctx, "employees", "id", int64(2), []rowstore.Pair{{Column: "email", Value: "ada@example.com"}})
		s.ErrorIs(err, sentinel.ErrConflict)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Failures.WithLabelValues("update", "employees")))
	})
}

func (s *SQLiteSuite) TestValueExistsAndMax() {
	_, ok, err := s.store.MaxInt(s.ctx, "employees", "id")
	s.Require().NoError(err)
	s.False(ok)

	s.insertEmployee(7, "ada@example.com", nil)

	exists, err := s.store.ValueExists(s.ctx, "employees", "email", "ada@example.com")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ValueExists(s.ctx, "employees", "email", "nobody@example.com")
	s.Require().NoError(err)
	s.False(exists)

	highest, ok, err := s.store.MaxInt(s.ctx, "employees", "id")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(7), highest)
}

func (s *SQLiteSuite) TestJoinsContextTransaction() {
	err := tx.Run(s.ctx, s.store.DB(), func(ctx context.Context) error {
		s.Require().NoError(s.store.Insert(ctx, "employees", []rowstore.Pair{
			{Column: "id", Value: int64(1)},
			{Column: "hire_date", Value: time.Now().UTC()},
			{Column: "email", Value: "rolled@example.com"},
		}))
		return sentinel.ErrInvalidState
	})
	s.ErrorIs(err, sentinel.ErrInvalidState)

	exists, err := s.store.ValueExists(s.ctx, "employees", "email", "rolled@example.com")
	s.Require().NoError(err)
	s.False(exists)
}

func mustCursor(c rowstore.Cursor, err error) rowstore.Cursor {
	if err != nil {
		panic(err)
	}
	return c
}
