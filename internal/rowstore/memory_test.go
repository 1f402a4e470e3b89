package rowstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"projects/pkg/platform/sentinel"
)

type MemorySuite struct {
	suite.Suite
	ctx   context.Context
	store *Memory
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory(WithUnique("employees", "email"))
	s.Require().NoError(s.store.Insert(s.ctx, "employees", []Pair{
		{Column: "id", Value: int64(1)},
		{Column: "email", Value: "ada@example.com"},
		{Column: "department_id", Value: int64(5)},
	}))
	s.Require().NoError(s.store.Insert(s.ctx, "employees", []Pair{
		{Column: "id", Value: int64(2)},
		{Column: "email", Value: "grace@example.com"},
		{Column: "department_id", Value: int64(5)},
	}))
	s.store.ResetStats()
}

func (s *MemorySuite) TestSelectOne() {
	s.Run("matches across integer widths", func() {
		row, err := s.store.SelectOne(s.ctx, "employees", "id", 2)
		s.Require().NoError(err)
		email, err := row.Get("email", TypeString)
		s.Require().NoError(err)
		s.Equal("grace@example.com", email)
	})

	s.Run("missing row is not found", func() {
		_, err := s.store.SelectOne(s.ctx, "employees", "id", 99)
		s.ErrorIs(err, ErrNoSuchRow)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned rows do not alias stored state", func() {
		row, err := s.store.SelectOne(s.ctx, "employees", "id", 1)
		s.Require().NoError(err)
		row.(Values)["email"] = "changed@example.com"

		again, err := s.store.SelectOne(s.ctx, "employees", "id", 1)
		s.Require().NoError(err)
		email, _ := again.Get("email", TypeString)
		s.Equal("ada@example.com", email)
	})
}

func (s *MemorySuite) TestSelectAll() {
	rows, err := Collect(must(s.store.SelectAll(s.ctx, "employees", "department_id", int64(5))))
	s.Require().NoError(err)
	s.Len(rows, 2)

	rows, err = Collect(must(s.store.SelectAll(s.ctx, "employees", "department_id", int64(6))))
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *MemorySuite) TestUpdate() {
	s.Run("changes only the given columns", func() {
		err := s.store.Update(s.ctx, "employees", "id", int64(1), []Pair{{Column: "email", Value: "ada@lovelace.dev"}})
		s.Require().NoError(err)
		row, err := s.store.SelectOne(s.ctx, "employees", "email", "ada@lovelace.dev")
		s.Require().NoError(err)
		dept, _ := row.Get("department_id", TypeInteger)
		s.Equal(int64(5), dept)
	})

	s.Run("unknown key is not found", func() {
		err := s.store.Update(s.ctx, "employees", "id", int64(42), []Pair{{Column: "email", Value: "x"}})
		s.ErrorIs(err, ErrNoSuchRow)
	})

	s.Run("unique column conflict", func() {
		err := s.store.Update(s.ctx, "employees", "id", int64(2), []Pair{{Column: "email", Value: "ada@lovelace.dev"}})
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *MemorySuite) TestInsertConflict() {
	err := s.store.Insert(s.ctx, "employees", []Pair{
		{Column: "id", Value: int64(3)},
		{Column: "email", Value: "ada@example.com"},
	})
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Len(s.store.Rows("employees"), 2)
}

func (s *MemorySuite) TestValueExistsAndMax() {
	ok, err := s.store.ValueExists(s.ctx, "employees", "email", "grace@example.com")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.ValueExists(s.ctx, "employees", "email", "nobody@example.com")
	s.Require().NoError(err)
	s.False(ok)

	highest, found, err := s.store.MaxInt(s.ctx, "employees", "id")
	s.Require().NoError(err)
	s.True(found)
	s.Equal(int64(2), highest)

	_, found, err = s.store.MaxInt(s.ctx, "departments", "id")
	s.Require().NoError(err)
	s.False(found)

	s.Equal(Stats{Exists: 2}, s.store.Stats())
}

func must(c Cursor, err error) Cursor {
	if err != nil {
		panic(err)
	}
	return c
}
