package models

import (
	"strings"

	"github.com/shopspring/decimal"

	dErrors "projects/pkg/domain-errors"
)

// Department groups employees under one head. Head and members reference each
// other, so loading either side loads the other.
type Department struct {
	id     int64
	name   string
	budget decimal.Decimal
	head   *Employee
}

func NewDepartment(id int64, name string, budget decimal.Decimal) (*Department, error) {
	if id <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "department id must be positive")
	}
	d := restoreDepartment(id)
	if err := d.Rename(name); err != nil {
		return nil, err
	}
	if err := d.SetBudget(budget); err != nil {
		return nil, err
	}
	return d, nil
}

func restoreDepartment(id int64) *Department {
	return &Department{id: id}
}

func (d *Department) ID() int64               { return d.id }
func (d *Department) Name() string            { return d.name }
func (d *Department) Budget() decimal.Decimal { return d.budget }
func (d *Department) Head() *Employee         { return d.head }

func (d *Department) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "department name is required")
	}
	d.name = name
	return nil
}

func (d *Department) SetBudget(budget decimal.Decimal) error {
	if budget.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "budget cannot be negative")
	}
	d.budget = budget
	return nil
}

// AppointHead makes e the head. A nil e leaves the department without one.
func (d *Department) AppointHead(e *Employee) { d.head = e }
