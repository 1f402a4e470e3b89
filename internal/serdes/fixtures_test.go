package serdes

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"projects/internal/rowstore"
)

type employee struct {
	id    int64
	email string
	first string
	wage  float64
	dept  *department
}

func newEmployee(id int64, email string) *employee {
	return &employee{id: id, email: email}
}

type department struct {
	id     int64
	name   string
	budget decimal.Decimal
	head   *employee
}

func newDepartment(id int64) *department {
	return &department{id: id}
}

var (
	employeeID    = Primary("id", func(e *employee) int64 { return e.id })
	employeeEmail = UniqueImmutable("email", func(e *employee) string { return e.email })
	employeeFirst = Mutable("first_name",
		func(e *employee) string { return e.first },
		func(e *employee, v string) { e.first = v })
	employeeWage = Mutable("wage",
		func(e *employee) float64 { return e.wage },
		func(e *employee, v float64) { e.wage = v })
	employeeDept = Foreign("department_id", departmentID,
		func(e *employee) *department { return e.dept },
		func(e *employee, d *department) { e.dept = d })

	departmentID   = Primary("id", func(d *department) int64 { return d.id })
	departmentName = UniqueMutable("name",
		func(d *department) string { return d.name },
		func(d *department, v string) { d.name = v })
	departmentBudget = Mutable("budget",
		func(d *department) decimal.Decimal { return d.budget },
		func(d *department, v decimal.Decimal) { d.budget = v })
	departmentHead = Foreign("head_id", employeeID,
		func(d *department) *employee { return d.head },
		func(d *department, e *employee) { d.head = e })
)

func employeeBuilder() *Builder[employee, int64] {
	return Define[employee, int64]("employees").
		Primary(employeeID).
		Fields(employeeEmail, employeeFirst, employeeWage, employeeDept).
		Construct(Construct2(newEmployee))
}

func departmentBuilder() *Builder[department, int64] {
	return Define[department, int64]("departments").
		Primary(departmentID).
		Fields(departmentName, departmentBudget, departmentHead).
		Construct(Construct1(newDepartment))
}

type fixture struct {
	ctx         context.Context
	store       *rowstore.Memory
	engine      *Engine
	employees   *Schema[employee, int64]
	departments *Schema[department, int64]

	mu     sync.Mutex
	events []Event
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: rowstore.NewMemory()}
	opts = append(opts, WithObserver(ObserverFunc(func(e Event) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
	})))
	f.engine = NewEngine(f.store, opts...)

	var err error
	f.employees, err = employeeBuilder().Build(f.engine)
	require.NoError(t, err)
	f.departments, err = departmentBuilder().Build(f.engine)
	require.NoError(t, err)
	return f
}

// seedCycle stores Employee#1 in Department#5, whose head is Employee#1.
func (f *fixture) seedCycle() {
	f.store.Seed("employees", rowstore.Values{
		"id": int64(1), "email": "ada@example.com", "first_name": "Ada", "wage": 52000.0, "department_id": int64(5),
	})
	f.store.Seed("departments", rowstore.Values{
		"id": int64(5), "name": "Research", "budget": "125000.50", "head_id": int64(1),
	})
}

func (f *fixture) kinds() []EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []EventKind
	for _, e := range f.events {
		if e.Kind != EventCacheHit {
			out = append(out, e.Kind)
		}
	}
	return out
}
