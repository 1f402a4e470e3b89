package serdes

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"projects/internal/rowstore"
	dErrors "projects/pkg/domain-errors"
)

// Scalar lists the Go types a field value may have. Each maps onto exactly one
// rowstore.Type, so a field cannot be declared with a type that has no converter.
type Scalar interface {
	bool | string | int | int32 | int64 | float32 | float64 | decimal.Decimal | time.Time
}

// Key lists the types usable as a primary key.
type Key interface {
	int | int32 | int64 | string
}

type fieldKind uint8

const (
	kindImmutable fieldKind = iota
	kindMutable
	kindForeign
)

// Column is the type-erased view of any field declared on entity type T.
// Only this package's field types implement it.
type Column[T any] interface {
	Name() string
	Type() rowstore.Type
	Unique() bool
	Mutable() bool

	kind() fieldKind
	value(*T) any
}

type mutableColumn[T any] interface {
	Column[T]
	assign(*T, any) error
}

type foreignColumn[T any] interface {
	Column[T]
	target() reflect.Type
	reference() string
	resolveInto(ctx context.Context, sess *session, key entityKey, owner *T, raw any) error
}

// Field is a read-only attribute of O, supplied through the constructor.
// It has no setter: assigning an immutable field does not compile.
type Field[O any, V Scalar] struct {
	name    string
	unique  bool
	primary bool
	get     func(*O) V
}

// Primary declares the field that identifies a row.
func Primary[O any, K Key](name string, get func(*O) K) *Field[O, K] {
	return &Field[O, K]{name: name, unique: true, primary: true, get: get}
}

// Immutable declares a constructor-supplied field.
func Immutable[O any, V Scalar](name string, get func(*O) V) *Field[O, V] {
	return &Field[O, V]{name: name, get: get}
}

// UniqueImmutable declares a constructor-supplied field whose values do not repeat.
func UniqueImmutable[O any, V Scalar](name string, get func(*O) V) *Field[O, V] {
	return &Field[O, V]{name: name, unique: true, get: get}
}

func (f *Field[O, V]) Name() string        { return f.name }
func (f *Field[O, V]) Type() rowstore.Type { return typeOf[V]() }
func (f *Field[O, V]) Unique() bool        { return f.unique }
func (f *Field[O, V]) Mutable() bool       { return false }
func (f *Field[O, V]) Get(o *O) V          { return f.get(o) }

func (f *Field[O, V]) kind() fieldKind { return kindImmutable }
func (f *Field[O, V]) value(o *O) any  { return f.get(o) }

// MutableField is a Field that can be assigned after construction.
type MutableField[O any, V Scalar] struct {
	*Field[O, V]
	set func(*O, V)
}

// Mutable declares a field applied after construction and written on every update.
func Mutable[O any, V Scalar](name string, get func(*O) V, set func(*O, V)) *MutableField[O, V] {
	return &MutableField[O, V]{Field: &Field[O, V]{name: name, get: get}, set: set}
}

// UniqueMutable is Mutable for a column whose values do not repeat.
func UniqueMutable[O any, V Scalar](name string, get func(*O) V, set func(*O, V)) *MutableField[O, V] {
	return &MutableField[O, V]{Field: &Field[O, V]{name: name, unique: true, get: get}, set: set}
}

func (f *MutableField[O, V]) Mutable() bool   { return true }
func (f *MutableField[O, V]) Set(o *O, v V)   { f.set(o, v) }
func (f *MutableField[O, V]) kind() fieldKind { return kindMutable }

func (f *MutableField[O, V]) assign(o *O, raw any) error {
	v, err := fromColumn[V](raw)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnsupportedType, "field "+f.name)
	}
	f.set(o, v)
	return nil
}

// ForeignField is a mutable reference from O to an entity T. Its column stores
// the value of the referenced field of T.
type ForeignField[O any, V Scalar, T any] struct {
	name      string
	unique    bool
	ref       *Field[T, V]
	getTarget func(*O) *T
	setTarget func(*O, *T)
}

// Foreign declares a reference to T matched on ref, typically T's primary field.
func Foreign[O any, V Scalar, T any](name string, ref *Field[T, V], get func(*O) *T, set func(*O, *T)) *ForeignField[O, V, T] {
	return &ForeignField[O, V, T]{name: name, ref: ref, getTarget: get, setTarget: set}
}

// UniqueForeign is Foreign for a one-to-one reference.
func UniqueForeign[O any, V Scalar, T any](name string, ref *Field[T, V], get func(*O) *T, set func(*O, *T)) *ForeignField[O, V, T] {
	f := Foreign(name, ref, get, set)
	f.unique = true
	return f
}

func (f *ForeignField[O, V, T]) Name() string        { return f.name }
func (f *ForeignField[O, V, T]) Type() rowstore.Type { return typeOf[V]() }
func (f *ForeignField[O, V, T]) Unique() bool        { return f.unique }
func (f *ForeignField[O, V, T]) Mutable() bool       { return true }

// Get reads the referenced field through the target. ok is false when no target is set.
func (f *ForeignField[O, V, T]) Get(o *O) (v V, ok bool) {
	t := f.getTarget(o)
	if t == nil {
		return v, false
	}
	return f.ref.Get(t), true
}

// Target returns the referenced entity, or nil.
func (f *ForeignField[O, V, T]) Target(o *O) *T { return f.getTarget(o) }

// Set replaces the referenced entity.
func (f *ForeignField[O, V, T]) Set(o *O, t *T) { f.setTarget(o, t) }

// Resolve loads the T whose referenced field equals v, using T's schema on e.
func (f *ForeignField[O, V, T]) Resolve(ctx context.Context, e *Engine, v V) (*T, error) {
	sess := e.newSession(ctx)
	ent, fut, err := f.lookup(ctx, sess, v)
	if err != nil {
		return nil, classify(err, "resolve "+f.name)
	}
	if fut != nil {
		return nil, internalErrorf("foreign field %s resolved to an unfinished entity", f.name)
	}
	sess.commit()
	return sess.canonical(ent).(*T), nil
}

func (f *ForeignField[O, V, T]) kind() fieldKind      { return kindForeign }
func (f *ForeignField[O, V, T]) target() reflect.Type { return reflect.TypeFor[T]() }
func (f *ForeignField[O, V, T]) reference() string    { return f.ref.Name() }

func (f *ForeignField[O, V, T]) value(o *O) any {
	v, ok := f.Get(o)
	if !ok {
		return nil
	}
	return v
}

func (f *ForeignField[O, V, T]) lookup(ctx context.Context, sess *session, v V) (*T, *future, error) {
	target, err := sess.engine.registry.lookup(f.target())
	if err != nil {
		return nil, nil, err
	}
	ent, fut, err := target.resolve(ctx, sess, f.ref.Name(), v)
	if err != nil || fut != nil {
		return nil, fut, err
	}
	return ent.(*T), nil, nil
}

func (f *ForeignField[O, V, T]) resolveInto(ctx context.Context, sess *session, key entityKey, owner *O, raw any) error {
	v, err := fromColumn[V](raw)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnsupportedType, "field "+f.name)
	}
	ent, fut, err := f.lookup(ctx, sess, v)
	if err != nil {
		return err
	}
	sess.track(
		func() any { return f.getTarget(owner) },
		func(t any) { f.setTarget(owner, t.(*T)) },
	)
	if fut != nil {
		sess.await(ctx, fut, key, f.name, func(target any) {
			f.setTarget(owner, target.(*T))
		})
		return nil
	}
	f.setTarget(owner, ent)
	return nil
}

// typeOf maps a Scalar type parameter onto its column type.
func typeOf[V Scalar]() rowstore.Type {
	var zero V
	switch any(zero).(type) {
	case bool:
		return rowstore.TypeBool
	case string:
		return rowstore.TypeString
	case int, int32, int64:
		return rowstore.TypeInteger
	case float64:
		return rowstore.TypeDouble
	case float32:
		return rowstore.TypeFloat
	case decimal.Decimal:
		return rowstore.TypeDecimal
	case time.Time:
		return rowstore.TypeTime
	}
	return rowstore.TypeInvalid
}

// fromColumn narrows a converted column value onto V. NULL becomes the zero value.
// A value whose dynamic type does not fit V is an error, never a silent cast.
func fromColumn[V Scalar](raw any) (V, error) {
	var out V
	if raw == nil {
		return out, nil
	}
	ok := true
	switch p := any(&out).(type) {
	case *bool:
		*p, ok = raw.(bool)
	case *string:
		*p, ok = raw.(string)
	case *int64:
		*p, ok = asInt64(raw)
	case *int:
		var n int64
		if n, ok = asInt64(raw); ok {
			*p = int(n)
		}
	case *int32:
		var n int64
		if n, ok = asInt64(raw); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			*p = int32(n)
		} else {
			ok = false
		}
	case *float64:
		switch x := raw.(type) {
		case float64:
			*p = x
		case float32:
			*p = float64(x)
		default:
			ok = false
		}
	case *float32:
		*p, ok = raw.(float32)
	case *decimal.Decimal:
		*p, ok = raw.(decimal.Decimal)
	case *time.Time:
		*p, ok = raw.(time.Time)
	}
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %T does not fit %T", errNarrow, raw, zero)
	}
	return out, nil
}

func asInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	return 0, false
}
