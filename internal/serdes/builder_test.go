package serdes

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"projects/internal/rowstore"
	"projects/internal/rowstore/mocks"
	dErrors "projects/pkg/domain-errors"
)

// newStrictEngine returns an engine whose store fails the test on any call.
func newStrictEngine(t *testing.T) *Engine {
	ctrl := gomock.NewController(t)
	return NewEngine(mocks.NewMockStore(ctrl))
}

func TestBuildWithoutPrimaryFails(t *testing.T) {
	engine := newStrictEngine(t)

	_, err := Define[employee, int64]("employees").
		Fields(employeeEmail, employeeFirst).
		Construct(Construct1(func(email string) *employee { return &employee{email: email} })).
		Build(engine)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	_, err = engine.Registry().Lookup(reflect.TypeFor[employee]())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration), "failed build must not register")
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Engine) error
		code  dErrors.Code
	}{
		{
			name: "duplicate field name",
			build: func(e *Engine) error {
				_, err := employeeBuilder().Field(Mutable("wage",
					func(e *employee) float64 { return e.wage },
					func(e *employee, v float64) { e.wage = v })).Build(e)
				return err
			},
			code: dErrors.CodeConfiguration,
		},
		{
			name: "primary declared twice",
			build: func(e *Engine) error {
				_, err := employeeBuilder().Primary(employeeID).Build(e)
				return err
			},
			code: dErrors.CodeConfiguration,
		},
		{
			name: "no constructor",
			build: func(e *Engine) error {
				_, err := Define[department, int64]("departments").Primary(departmentID).Build(e)
				return err
			},
			code: dErrors.CodeConfiguration,
		},
		{
			name: "no table",
			build: func(e *Engine) error {
				_, err := Define[department, int64]("").Primary(departmentID).Construct(Construct1(newDepartment)).Build(e)
				return err
			},
			code: dErrors.CodeConfiguration,
		},
		{
			name: "constructor parameters in the wrong order",
			build: func(e *Engine) error {
				_, err := Define[employee, int64]("employees").
					Primary(employeeID).
					Field(employeeEmail).
					Construct(Construct2(func(email string, id int64) *employee { return newEmployee(id, email) })).
					Build(e)
				return err
			},
			code: dErrors.CodeNoSuchConstructor,
		},
		{
			name: "constructor missing a parameter",
			build: func(e *Engine) error {
				_, err := Define[employee, int64]("employees").
					Primary(employeeID).
					Field(employeeEmail).
					Construct(Construct1(func(id int64) *employee { return &employee{id: id} })).
					Build(e)
				return err
			},
			code: dErrors.CodeNoSuchConstructor,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build(newStrictEngine(t))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestBuildRegistersOnce(t *testing.T) {
	engine := newStrictEngine(t)
	employees, err := employeeBuilder().Build(engine)
	require.NoError(t, err)

	_, err = employeeBuilder().Build(engine)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	desc, err := engine.Registry().Lookup(reflect.TypeFor[employee]())
	require.NoError(t, err)
	assert.Equal(t, "employees", desc.Table())
	assert.Equal(t, "id", desc.PrimaryColumn())
	assert.Same(t, employees, desc)
}

func TestBuildAcceptsAnyIntegerWidth(t *testing.T) {
	type badge struct {
		id    int64
		level int32
	}
	_, err := Define[badge, int64]("badges").
		Primary(Primary("id", func(b *badge) int64 { return b.id })).
		Field(Immutable("level", func(b *badge) int32 { return b.level })).
		Construct(Construct2(func(id int64, level int) *badge { return &badge{id: id, level: int32(level)} })).
		Build(newStrictEngine(t))
	assert.NoError(t, err)
}

func TestColumns(t *testing.T) {
	engine := newStrictEngine(t)
	employees := employeeBuilder().MustBuild(engine)

	cols := employees.Columns()
	require.Len(t, cols, 5)
	assert.Equal(t, ColumnInfo{Name: "id", Type: rowstore.TypeInteger, Primary: true, Unique: true}, cols[0])
	assert.Equal(t, ColumnInfo{Name: "email", Type: rowstore.TypeString, Unique: true}, cols[1])
	assert.Equal(t, ColumnInfo{Name: "wage", Type: rowstore.TypeDouble, Mutable: true}, cols[3])
	assert.Equal(t, ColumnInfo{
		Name: "department_id", Type: rowstore.TypeInteger, Mutable: true, Foreign: true, References: "department.id",
	}, cols[4])
}

func TestImmutableFieldHasNoSetter(t *testing.T) {
	type setter interface{ Set(*employee, string) }

	_, ok := any(employeeEmail).(setter)
	assert.False(t, ok, "immutable field must not expose Set")

	_, ok = any(employeeFirst).(setter)
	assert.True(t, ok)
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		Define[department, int64]("departments").MustBuild(newStrictEngine(t))
	})
}
