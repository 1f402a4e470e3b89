package serdes

import (
	"strconv"

	"projects/internal/rowstore"
	dErrors "projects/pkg/domain-errors"
)

// Constructor builds an entity from its immutable field values, given in the
// order the fields were declared. It is bound once, when the schema is defined.
type Constructor[T any] struct {
	params []rowstore.Type
	fn     func(args []any) (*T, error)
}

// Params reports the column types the constructor accepts, in order.
func (c Constructor[T]) Params() []rowstore.Type {
	return append([]rowstore.Type(nil), c.params...)
}

func (c Constructor[T]) call(args []any) (*T, error) {
	if len(args) != len(c.params) {
		return nil, dErrors.Newf(dErrors.CodeNoSuchConstructor, "constructor takes %d values, got %d", len(c.params), len(args))
	}
	e, err := c.fn(args)
	if err != nil {
		if _, ok := dErrors.CodeOf(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeNoSuchConstructor, "construct")
	}
	if e == nil {
		return nil, dErrors.New(dErrors.CodeNoSuchConstructor, "constructor returned nil")
	}
	return e, nil
}

// ConstructWith binds an untyped factory. params must list the column types of
// the immutable fields in declaration order; fn receives the converted values.
func ConstructWith[T any](params []rowstore.Type, fn func(args []any) (*T, error)) Constructor[T] {
	return Constructor[T]{params: append([]rowstore.Type(nil), params...), fn: fn}
}

func Construct1[T any, A Scalar](fn func(A) *T) Constructor[T] {
	return Constructor[T]{
		params: []rowstore.Type{typeOf[A]()},
		fn: func(args []any) (*T, error) {
			a, err := param[A](args, 0)
			if err != nil {
				return nil, err
			}
			return fn(a), nil
		},
	}
}

func Construct2[T any, A, B Scalar](fn func(A, B) *T) Constructor[T] {
	return Constructor[T]{
		params: []rowstore.Type{typeOf[A](), typeOf[B]()},
		fn: func(args []any) (*T, error) {
			a, err := param[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := param[B](args, 1)
			if err != nil {
				return nil, err
			}
			return fn(a, b), nil
		},
	}
}

func Construct3[T any, A, B, C Scalar](fn func(A, B, C) *T) Constructor[T] {
	return Constructor[T]{
		params: []rowstore.Type{typeOf[A](), typeOf[B](), typeOf[C]()},
		fn: func(args []any) (*T, error) {
			a, err := param[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := param[B](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := param[C](args, 2)
			if err != nil {
				return nil, err
			}
			return fn(a, b, c), nil
		},
	}
}

func Construct4[T any, A, B, C, D Scalar](fn func(A, B, C, D) *T) Constructor[T] {
	return Constructor[T]{
		params: []rowstore.Type{typeOf[A](), typeOf[B](), typeOf[C](), typeOf[D]()},
		fn: func(args []any) (*T, error) {
			a, err := param[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := param[B](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := param[C](args, 2)
			if err != nil {
				return nil, err
			}
			d, err := param[D](args, 3)
			if err != nil {
				return nil, err
			}
			return fn(a, b, c, d), nil
		},
	}
}

func param[V Scalar](args []any, i int) (V, error) {
	v, err := fromColumn[V](args[i])
	if err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeNoSuchConstructor, "constructor parameter "+strconv.Itoa(i+1))
	}
	return v, nil
}

