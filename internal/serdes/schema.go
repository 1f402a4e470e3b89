package serdes

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"projects/internal/rowstore"
)

// Schema maps entity type T to its table. It is built once by a Builder and
// then safe for concurrent use; see Engine for cache policy.
type Schema[T any, K Key] struct {
	engine    *Engine
	table     string
	entity    reflect.Type
	primary   *Field[T, K]
	fields    []Column[T]
	byName    map[string]Column[T]
	immutable []Column[T]
	mutable   []mutableColumn[T]
	foreign   []foreignColumn[T]
	ctor      Constructor[T]
	cache     *identityCache[K, T]
	flight    *singleflight.Group
}

func (s *Schema[T, K]) Table() string            { return s.table }
func (s *Schema[T, K]) EntityType() reflect.Type { return s.entity }
func (s *Schema[T, K]) PrimaryColumn() string    { return s.primary.Name() }
func (s *Schema[T, K]) Primary() *Field[T, K]    { return s.primary }
func (s *Schema[T, K]) Engine() *Engine          { return s.engine }

// Columns describes the declared fields in order.
func (s *Schema[T, K]) Columns() []ColumnInfo {
	out := make([]ColumnInfo, len(s.fields))
	for i, f := range s.fields {
		info := ColumnInfo{
			Name:    f.Name(),
			Type:    f.Type(),
			Primary: f.Name() == s.primary.Name(),
			Unique:  f.Unique(),
			Mutable: f.Mutable(),
		}
		if fc, ok := f.(foreignColumn[T]); ok {
			info.Foreign = true
			info.References = fc.target().Name() + "." + fc.reference()
		}
		out[i] = info
	}
	return out
}

// Deserialize returns the entity with primary key pk, reading its row only
// when the identity cache does not already hold it. Concurrent calls for the
// same key share one read.
func (s *Schema[T, K]) Deserialize(ctx context.Context, pk K) (*T, error) {
	if e, ok := s.cached(ctx, pk); ok {
		return e, nil
	}
	v, err, _ := s.flight.Do(fmt.Sprint(pk), func() (any, error) {
		sess := s.engine.newSession(ctx)
		e, fut, err := s.resolve(ctx, sess, s.primary.Name(), pk)
		if err != nil {
			return nil, err
		}
		if fut != nil {
			return nil, internalErrorf("%s: top-level entity left unfinished", keyString(s.table, pk))
		}
		sess.commit()
		return sess.canonical(e), nil
	})
	if err != nil {
		return nil, classify(err, "deserialize "+keyString(s.table, pk))
	}
	return v.(*T), nil
}

// DeserializeRow materializes an already fetched row.
func (s *Schema[T, K]) DeserializeRow(ctx context.Context, row rowstore.Row) (*T, error) {
	sess := s.engine.newSession(ctx)
	e, fut, err := s.deserialize(ctx, sess, row)
	if err != nil {
		return nil, classify(err, "deserialize "+s.table+" row")
	}
	if fut != nil {
		return nil, internalErrorf("%s: row left unfinished", s.table)
	}
	sess.commit()
	return sess.canonical(e).(*T), nil
}

// FindAll materializes every row whose column equals value, in store order.
// The cursor is drained before any foreign field is resolved so nested reads
// never interleave with an open result set.
func (s *Schema[T, K]) FindAll(ctx context.Context, column string, value any) ([]*T, error) {
	if _, ok := s.byName[column]; !ok {
		return nil, configErrorf("%s has no field %q", s.table, column)
	}
	cur, err := s.engine.store.SelectAll(ctx, s.table, column, value)
	if err != nil {
		return nil, classify(err, "select "+s.table)
	}
	rows, err := rowstore.Collect(cur)
	if err != nil {
		return nil, classify(err, "select "+s.table)
	}

	sess := s.engine.newSession(ctx)
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		e, fut, err := s.deserialize(ctx, sess, row)
		if err != nil {
			return nil, classify(err, "deserialize "+s.table+" row")
		}
		if fut != nil {
			return nil, internalErrorf("%s: row left unfinished", s.table)
		}
		out = append(out, e)
	}
	sess.commit()
	for i, e := range out {
		out[i] = sess.canonical(e).(*T)
	}
	return out, nil
}

// FindBy returns the entity whose field f equals value. Loaded entities are
// searched before the store is asked.
func FindBy[T any, K Key, V Scalar](ctx context.Context, s *Schema[T, K], f *Field[T, V], value V) (*T, error) {
	if _, ok := s.byName[f.Name()]; !ok {
		return nil, configErrorf("%s has no field %q", s.table, f.Name())
	}
	for _, e := range s.cache.values() {
		if equalValue(f.Get(e), value) {
			s.engine.metrics.IncrementCacheHit(s.table)
			return e, nil
		}
	}
	row, err := s.engine.store.SelectOne(ctx, s.table, f.Name(), value)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("find %s by %s", s.table, f.Name()))
	}
	return s.DeserializeRow(ctx, row)
}

// Serialize writes e. Without a row for its primary key, one insert carries
// every field in declared order; otherwise one update carries the mutable
// fields only. Immutable values are never written by an update.
func (s *Schema[T, K]) Serialize(ctx context.Context, e *T) error {
	pk := s.primary.Get(e)
	exists, err := s.engine.store.ValueExists(ctx, s.table, s.primary.Name(), pk)
	if err != nil {
		return classify(err, "serialize "+keyString(s.table, pk))
	}

	if !exists {
		pairs := make([]rowstore.Pair, len(s.fields))
		for i, f := range s.fields {
			pairs[i] = rowstore.Pair{Column: f.Name(), Value: f.value(e)}
		}
		if err := s.engine.store.Insert(ctx, s.table, pairs); err != nil {
			return classify(err, "insert "+keyString(s.table, pk))
		}
		s.cache.put(pk, e)
		s.engine.metrics.IncrementInserted(s.table)
		return nil
	}

	pairs := make([]rowstore.Pair, 0, len(s.mutable)+len(s.foreign))
	for _, f := range s.fields {
		if f.Mutable() {
			pairs = append(pairs, rowstore.Pair{Column: f.Name(), Value: f.value(e)})
		}
	}
	if err := s.engine.store.Update(ctx, s.table, s.primary.Name(), pk, pairs); err != nil {
		return classify(err, "update "+keyString(s.table, pk))
	}
	s.engine.metrics.IncrementUpdated(s.table)
	return nil
}

// ValueExists reports whether any row holds value in the named field's column.
func (s *Schema[T, K]) ValueExists(ctx context.Context, field string, value any) (bool, error) {
	if _, ok := s.byName[field]; !ok {
		return false, configErrorf("%s has no field %q", s.table, field)
	}
	ok, err := s.engine.store.ValueExists(ctx, s.table, field, value)
	if err != nil {
		return false, classify(err, fmt.Sprintf("exists %s.%s", s.table, field))
	}
	return ok, nil
}

// Cached returns the loaded instance for pk without touching the store.
func (s *Schema[T, K]) Cached(pk K) (*T, bool) { return s.cache.get(pk) }

// Loaded is the number of entities in the identity cache.
func (s *Schema[T, K]) Loaded() int { return s.cache.len() }

// Evict drops pk from the identity cache. The next lookup builds a fresh instance.
func (s *Schema[T, K]) Evict(pk K) { s.cache.remove(pk) }

// Purge empties the identity cache.
func (s *Schema[T, K]) Purge() { s.cache.purge() }

func (s *Schema[T, K]) purge() { s.Purge() }

// String renders e as Type{field=value, ...} in declared order.
func (s *Schema[T, K]) String(e *T) string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(s.entity.Name())
	b.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		v := f.value(e)
		if v == nil {
			v = "null"
		}
		fmt.Fprintf(&b, "%s=%v", f.Name(), v)
	}
	b.WriteByte('}')
	return b.String()
}

// Equal compares a and b field by field. Foreign fields compare by referenced value.
func (s *Schema[T, K]) Equal(a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	for _, f := range s.fields {
		if !equalValue(f.value(a), f.value(b)) {
			return false
		}
	}
	return true
}

func (s *Schema[T, K]) cached(ctx context.Context, pk K) (*T, bool) {
	e, ok := s.cache.get(pk)
	if ok {
		s.engine.metrics.IncrementCacheHit(s.table)
		s.engine.emit(ctx, Event{Kind: EventCacheHit, Entity: keyString(s.table, pk)})
	}
	return e, ok
}

// resolve finds the entity whose column equals value inside sess. A lookup by
// primary key consults the session and the identity cache before the store.
// The returned future is non-nil when the entity is still under construction.
func (s *Schema[T, K]) resolve(ctx context.Context, sess *session, column string, value any) (any, *future, error) {
	if column == s.primary.Name() {
		pk, err := s.key(value)
		if err != nil {
			return nil, nil, err
		}
		if fut, ok := sess.lookup(entityKey{s.table, pk}); ok {
			if fut.done {
				return fut.value, nil, nil
			}
			return nil, fut, nil
		}
		if e, ok := s.cached(ctx, pk); ok {
			return e, nil, nil
		}
		value = pk
	}
	row, err := s.engine.store.SelectOne(ctx, s.table, column, value)
	if err != nil {
		return nil, nil, classify(err, fmt.Sprintf("select %s where %s=%v", s.table, column, value))
	}
	e, fut, err := s.deserialize(ctx, sess, row)
	if err != nil || fut != nil {
		return nil, fut, err
	}
	return e, nil, nil
}

// deserialize turns one row into an entity within sess:
//  1. an entity already under construction in sess yields its future;
//  2. a cached entity is returned as is;
//  3. otherwise the constructor receives the immutable values, the instance
//     joins the session, mutable values are applied, and each foreign field is
//     resolved now or deferred until its target completes.
func (s *Schema[T, K]) deserialize(ctx context.Context, sess *session, row rowstore.Row) (*T, *future, error) {
	raw, err := row.Get(s.primary.Name(), s.primary.Type())
	if err != nil {
		return nil, nil, classify(err, s.table+" primary key")
	}
	if raw == nil {
		return nil, nil, internalErrorf("%s: row has NULL primary key", s.table)
	}
	pk, err := fromColumn[K](raw)
	if err != nil {
		return nil, nil, classify(err, s.table+" primary key")
	}
	key := entityKey{s.table, pk}

	if fut, ok := sess.lookup(key); ok {
		if fut.done {
			return fut.value.(*T), nil, nil
		}
		return nil, fut, nil
	}
	if e, ok := s.cached(ctx, pk); ok {
		return e, nil, nil
	}
	s.engine.metrics.IncrementCacheMiss(s.table)

	args := make([]any, len(s.immutable))
	for i, f := range s.immutable {
		if args[i], err = row.Get(f.Name(), f.Type()); err != nil {
			return nil, nil, classify(err, fmt.Sprintf("%s field %s", key, f.Name()))
		}
	}
	e, err := s.ctor.call(args)
	if err != nil {
		return nil, nil, classify(err, "construct "+key.String())
	}
	fut := sess.begin(key)
	sess.join(e,
		func() (any, bool) {
			if c, ok := s.cache.get(pk); ok {
				return c, true
			}
			return nil, false
		},
		func() { s.cache.putIfAbsent(pk, e) },
	)
	s.engine.emit(ctx, Event{Kind: EventConstructed, Session: sess.id, Entity: key.String()})

	for _, f := range s.mutable {
		v, err := row.Get(f.Name(), f.Type())
		if err != nil {
			return nil, nil, classify(err, fmt.Sprintf("%s field %s", key, f.Name()))
		}
		if err := f.assign(e, v); err != nil {
			return nil, nil, classify(err, key.String())
		}
	}
	for _, f := range s.foreign {
		v, err := row.Get(f.Name(), f.Type())
		if err != nil {
			return nil, nil, classify(err, fmt.Sprintf("%s field %s", key, f.Name()))
		}
		if v == nil {
			continue
		}
		if err := f.resolveInto(ctx, sess, key, e, v); err != nil {
			return nil, nil, classify(err, fmt.Sprintf("%s field %s", key, f.Name()))
		}
	}

	s.engine.metrics.IncrementDeserialized(s.table)
	fut.complete(e)
	s.engine.emit(ctx, Event{Kind: EventCompleted, Session: sess.id, Entity: key.String()})
	return e, nil, nil
}

// key converts a lookup value into K, accepting any integer width for integer keys.
func (s *Schema[T, K]) key(value any) (K, error) {
	if k, ok := value.(K); ok {
		return k, nil
	}
	converted, err := rowstore.Convert(value, s.primary.Type())
	if err != nil {
		var zero K
		return zero, classify(err, s.table+" primary key")
	}
	k, err := fromColumn[K](converted)
	if err != nil {
		return k, classify(err, s.table+" primary key")
	}
	return k, nil
}

func equalValue(a, b any) bool {
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return rowstore.Normalize(a) == rowstore.Normalize(b)
}
