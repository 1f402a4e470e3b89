//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"projects/internal/rowstore"
	"projects/pkg/platform/sentinel"
	"projects/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	ctx    context.Context
	dsn    string
	driver string
	store  *Store
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	pg := containers.NewPostgresContainer(t)
	for _, driver := range []string{"pgx", "postgres"} {
		t.Run(driver, func(t *testing.T) {
			suite.Run(t, &PostgresSuite{dsn: pg.DSN, driver: driver})
		})
	}
}

func (s *PostgresSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := Open(s.ctx, s.driver, s.dsn)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = store.Close() })
	_, err = store.DB().ExecContext(s.ctx, "DROP TABLE IF EXISTS employees, departments")
	s.Require().NoError(err)
	s.Require().NoError(store.Apply(s.ctx, testSchema))
	s.store = store
}

func (s *PostgresSuite) TestInsertSelectUpdate() {
	hired := time.Date(2019, 9, 2, 8, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Insert(s.ctx, "departments", []rowstore.Pair{
		{Column: "id", Value: int64(5)},
		{Column: "name", Value: "Research"},
		{Column: "budget", Value: decimal.RequireFromString("99.95")},
		{Column: "head_id", Value: int64(1)},
	}))
	s.Require().NoError(s.store.Insert(s.ctx, "employees", []rowstore.Pair{
		{Column: "id", Value: int64(1)},
		{Column: "hire_date", Value: hired},
		{Column: "email", Value: "ada@example.com"},
		{Column: "wage", Value: 52000.0},
		{Column: "active", Value: true},
		{Column: "department_id", Value: int64(5)},
	}))

	row, err := s.store.SelectOne(s.ctx, "employees", "email", "ada@example.com")
	s.Require().NoError(err)
	got, err := row.Get("hire_date", rowstore.TypeTime)
	s.Require().NoError(err)
	s.True(hired.Equal(got.(time.Time)))

	dept, err := s.store.SelectOne(s.ctx, "departments", "id", int64(5))
	s.Require().NoError(err)
	budget, err := dept.Get("budget", rowstore.TypeDecimal)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("99.95").Equal(budget.(decimal.Decimal)))

	s.Require().NoError(s.store.Update(s.ctx, "employees", "id", int64(1), []rowstore.Pair{{Column: "active", Value: false}}))
	row, err = s.store.SelectOne(s.ctx, "employees", "id", int64(1))
	s.Require().NoError(err)
	active, err := row.Get("active", rowstore.TypeBool)
	s.Require().NoError(err)
	s.Equal(false, active)
}

func (s *PostgresSuite) TestUniqueViolation() {
	insert := func(id int64) error {
		return s.store.Insert(s.ctx, "departments", []rowstore.Pair{
			{Column: "id", Value: id},
			{Column: "name", Value: "Finance"},
		})
	}
	s.Require().NoError(insert(1))
	s.ErrorIs(insert(2), sentinel.ErrConflict)
}
