package models

import (
	"net/mail"
	"strings"
	"time"

	dErrors "projects/pkg/domain-errors"
)

// Employee is a member of staff.
//
// Invariants:
//   - ID and HireDate are fixed at construction and never written by an update
//   - Email is a valid address and unique across employees
//   - Password holds a bcrypt hash, never a plaintext secret
//   - Department may be nil for staff not yet assigned
type Employee struct {
	id         int64
	hireDate   time.Time
	email      string
	firstName  string
	lastName   string
	password   string
	wage       float64
	department *Department
}

// NewEmployee validates a new hire. passwordHash must already be hashed.
func NewEmployee(id int64, hireDate time.Time, email, firstName, lastName, passwordHash string, wage float64) (*Employee, error) {
	if id <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "employee id must be positive")
	}
	e := restoreEmployee(id, hireDate)
	if err := e.SetEmail(email); err != nil {
		return nil, err
	}
	if err := e.Rename(firstName, lastName); err != nil {
		return nil, err
	}
	if err := e.SetWage(wage); err != nil {
		return nil, err
	}
	e.password = passwordHash
	return e, nil
}

// restoreEmployee is the row constructor: identity and hire date only.
func restoreEmployee(id int64, hireDate time.Time) *Employee {
	return &Employee{id: id, hireDate: hireDate}
}

func (e *Employee) ID() int64               { return e.id }
func (e *Employee) HireDate() time.Time     { return e.hireDate }
func (e *Employee) Email() string           { return e.email }
func (e *Employee) FirstName() string       { return e.firstName }
func (e *Employee) LastName() string        { return e.lastName }
func (e *Employee) PasswordHash() string    { return e.password }
func (e *Employee) Wage() float64           { return e.wage }
func (e *Employee) Department() *Department { return e.department }

// FullName joins first and last name.
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.firstName + " " + e.lastName)
}

func (e *Employee) SetEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	e.email = email
	return nil
}

func (e *Employee) Rename(first, last string) error {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "first name is required")
	}
	e.firstName, e.lastName = first, last
	return nil
}

func (e *Employee) SetWage(wage float64) error {
	if wage < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "wage cannot be negative")
	}
	e.wage = wage
	return nil
}

// SetPasswordHash replaces the stored hash.
func (e *Employee) SetPasswordHash(hash string) { e.password = hash }

// AssignTo moves the employee into d, or out of any department when d is nil.
func (e *Employee) AssignTo(d *Department) { e.department = d }

// IsHead reports whether the employee leads their own department.
func (e *Employee) IsHead() bool {
	return e.department != nil && e.department.head == e
}
