package serdes

import (
	"reflect"

	"golang.org/x/sync/singleflight"

	"projects/internal/rowstore"
	dErrors "projects/pkg/domain-errors"
)

// Builder accumulates the field declarations of one entity type.
type Builder[T any, K Key] struct {
	table     string
	primary   *Field[T, K]
	fields    []Column[T]
	construct *Constructor[T]
	errs      []error
}

// Define starts a schema for entity type T stored in table, identified by a K.
func Define[T any, K Key](table string) *Builder[T, K] {
	return &Builder[T, K]{table: table}
}

// Primary declares the identifying field. It also takes its place in the
// declared field order.
func (b *Builder[T, K]) Primary(f *Field[T, K]) *Builder[T, K] {
	if b.primary != nil {
		b.errs = append(b.errs, configErrorf("%s: primary field declared twice (%s, %s)", b.table, b.primary.Name(), f.Name()))
		return b
	}
	b.primary = f
	b.fields = append(b.fields, f)
	return b
}

// Field appends any field to the declared order.
func (b *Builder[T, K]) Field(f Column[T]) *Builder[T, K] {
	if p, ok := f.(*Field[T, K]); ok && p.primary {
		return b.Primary(p)
	}
	b.fields = append(b.fields, f)
	return b
}

// Fields appends several fields in order.
func (b *Builder[T, K]) Fields(fs ...Column[T]) *Builder[T, K] {
	for _, f := range fs {
		b.Field(f)
	}
	return b
}

// Construct binds the factory that receives immutable field values in declared order.
func (b *Builder[T, K]) Construct(c Constructor[T]) *Builder[T, K] {
	b.construct = &c
	return b
}

// Build validates and freezes the schema, then registers it on e.
// It performs no row store access.
func (b *Builder[T, K]) Build(e *Engine) (*Schema[T, K], error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if b.table == "" {
		return nil, configErrorf("schema for %s has no table", reflect.TypeFor[T]())
	}
	if b.primary == nil {
		return nil, configErrorf("%s: no primary field declared", b.table)
	}
	if b.construct == nil {
		return nil, configErrorf("%s: no constructor bound", b.table)
	}

	s := &Schema[T, K]{
		engine:  e,
		table:   b.table,
		entity:  reflect.TypeFor[T](),
		primary: b.primary,
		fields:  append([]Column[T](nil), b.fields...),
		byName:  make(map[string]Column[T], len(b.fields)),
		ctor:    *b.construct,
		cache:   newIdentityCache[K, T](e.cacheLimit),
		flight:  &singleflight.Group{},
	}
	for _, f := range s.fields {
		if f.Name() == "" {
			return nil, configErrorf("%s: field with empty name", b.table)
		}
		if _, dup := s.byName[f.Name()]; dup {
			return nil, configErrorf("%s: duplicate field name %q", b.table, f.Name())
		}
		if !f.Type().Valid() {
			return nil, dErrors.Newf(dErrors.CodeUnsupportedType, "%s: field %s has no column type", b.table, f.Name())
		}
		s.byName[f.Name()] = f
		switch c := any(f).(type) {
		case foreignColumn[T]:
			s.foreign = append(s.foreign, c)
		case mutableColumn[T]:
			s.mutable = append(s.mutable, c)
		default:
			s.immutable = append(s.immutable, f)
		}
	}

	if err := matchConstructor(b.table, s.immutable, s.ctor.params); err != nil {
		return nil, err
	}
	if err := e.registry.register(s); err != nil {
		return nil, err
	}
	e.logger.Debug("schema registered",
		"table", s.table,
		"entity", s.entity.String(),
		"fields", len(s.fields),
		"foreign", len(s.foreign),
	)
	return s, nil
}

// MustBuild is Build for package initialization; it panics on error.
func (b *Builder[T, K]) MustBuild(e *Engine) *Schema[T, K] {
	s, err := b.Build(e)
	if err != nil {
		panic(err)
	}
	return s
}

func matchConstructor[T any](table string, immutable []Column[T], params []rowstore.Type) error {
	if len(immutable) != len(params) {
		return dErrors.Newf(dErrors.CodeNoSuchConstructor,
			"%s: constructor takes %d values but %d immutable fields are declared", table, len(params), len(immutable))
	}
	for i, f := range immutable {
		if f.Type() != params[i] {
			return dErrors.Newf(dErrors.CodeNoSuchConstructor,
				"%s: constructor parameter %d is %s but field %s is %s", table, i+1, params[i], f.Name(), f.Type())
		}
	}
	return nil
}
