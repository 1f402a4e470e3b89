package serdes

import (
	"context"
	"reflect"
	"slices"
	"strings"
	"sync"

	"projects/internal/rowstore"
)

// ColumnInfo describes one declared field.
type ColumnInfo struct {
	Name       string
	Type       rowstore.Type
	Primary    bool
	Unique     bool
	Mutable    bool
	Foreign    bool
	References string
}

// Descriptor is the read-only view of a built schema.
type Descriptor interface {
	Table() string
	EntityType() reflect.Type
	PrimaryColumn() string
	Columns() []ColumnInfo
	Loaded() int
}

type schemaRef interface {
	Descriptor
	resolve(ctx context.Context, sess *session, column string, value any) (any, *future, error)
	purge()
}

// Registry maps entity types to their schemas. Foreign fields find their
// target schema here at resolution time, so mutually referencing schemas
// never import each other.
type Registry struct {
	mu      sync.RWMutex
	schemas map[reflect.Type]schemaRef
}

func newRegistry() *Registry {
	return &Registry{schemas: make(map[reflect.Type]schemaRef)}
}

func (r *Registry) register(s schemaRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.schemas[s.EntityType()]; ok {
		return configErrorf("entity type %s already registered as table %s", s.EntityType(), prev.Table())
	}
	for _, other := range r.schemas {
		if other.Table() == s.Table() {
			return configErrorf("table %s already registered for %s", s.Table(), other.EntityType())
		}
	}
	r.schemas[s.EntityType()] = s
	return nil
}

func (r *Registry) lookup(t reflect.Type) (schemaRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[t]
	if !ok {
		return nil, configErrorf("no schema registered for %s", t)
	}
	return s, nil
}

// Lookup returns the schema registered for entity type t.
func (r *Registry) Lookup(t reflect.Type) (Descriptor, error) {
	return r.lookup(t)
}

// Schemas lists every registered schema ordered by table name.
func (r *Registry) Schemas() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b Descriptor) int {
		return strings.Compare(a.Table(), b.Table())
	})
	return out
}

func (r *Registry) purge() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.schemas {
		s.purge()
	}
}
