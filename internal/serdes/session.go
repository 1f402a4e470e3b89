package serdes

import (
	"context"

	"github.com/google/uuid"
)

type entityKey struct {
	table string
	pk    any
}

func (k entityKey) String() string { return keyString(k.table, k.pk) }

// future is the promise of one entity under construction in a session.
// Continuations registered before completion run in registration order.
type future struct {
	key     entityKey
	value   any
	done    bool
	waiters []func(any)
}

func (f *future) then(fn func(any)) {
	if f.done {
		fn(f.value)
		return
	}
	f.waiters = append(f.waiters, fn)
}

func (f *future) complete(v any) {
	f.value = v
	f.done = true
	waiters := f.waiters
	f.waiters = nil
	for _, fn := range waiters {
		fn(v)
	}
}

// member is an entity built by a session, with access to its schema's cache.
type member struct {
	value   any
	cached  func() (any, bool)
	publish func()
}

// link is one foreign field assigned during a session.
type link struct {
	get func() any
	set func(any)
}

// session is the state of one top-level deserialization call. It tracks every
// entity it builds by (table, primary key) so a reference back to an entity
// still under construction is deferred instead of re-entered. Built entities
// reach the identity caches only when the whole call succeeds.
type session struct {
	id       string
	engine   *Engine
	entries  map[entityKey]*future
	members  []member
	links    []link
	replaced map[any]any
}

func (e *Engine) newSession(ctx context.Context) *session {
	s := &session{
		id:      uuid.NewString(),
		engine:  e,
		entries: make(map[entityKey]*future),
	}
	e.logger.DebugContext(ctx, "deserialization session started", "session_id", s.id)
	return s
}

func (s *session) lookup(key entityKey) (*future, bool) {
	f, ok := s.entries[key]
	return f, ok
}

func (s *session) begin(key entityKey) *future {
	f := &future{key: key}
	s.entries[key] = f
	return f
}

// join records an entity built by this session for publication on commit.
func (s *session) join(value any, cached func() (any, bool), publish func()) {
	s.members = append(s.members, member{value: value, cached: cached, publish: publish})
}

// track records a foreign field assignment so commit can repoint it.
func (s *session) track(get func() any, set func(any)) {
	s.links = append(s.links, link{get: get, set: set})
}

// await defers the assignment of field until fut completes.
func (s *session) await(ctx context.Context, fut *future, owner entityKey, field string, assign func(any)) {
	s.engine.emit(ctx, Event{Kind: EventDeferred, Session: s.id, Entity: owner.String(), Field: field, Target: fut.key.String()})
	s.engine.metrics.IncrementDeferred(owner.table)
	fut.then(func(v any) {
		assign(v)
		s.engine.emit(ctx, Event{Kind: EventBackfilled, Session: s.id, Entity: owner.String(), Field: field, Target: fut.key.String()})
	})
}

// commit publishes the session's entities. An entity another call cached
// first is dropped in favour of the cached instance, and every foreign field
// of this session that pointed at the dropped one is repointed before
// anything becomes visible, so each primary key keeps exactly one instance.
func (s *session) commit() {
	s.engine.commitMu.Lock()
	defer s.engine.commitMu.Unlock()

	s.replaced = make(map[any]any)
	for _, m := range s.members {
		if prev, ok := m.cached(); ok && prev != m.value {
			s.replaced[m.value] = prev
		}
	}
	for _, l := range s.links {
		if prev, ok := s.replaced[l.get()]; ok {
			l.set(prev)
		}
	}
	for _, m := range s.members {
		if _, ok := s.replaced[m.value]; !ok {
			m.publish()
		}
	}
	s.members, s.links = nil, nil
}

// canonical returns the instance v was replaced with on commit, or v.
func (s *session) canonical(v any) any {
	if prev, ok := s.replaced[v]; ok {
		return prev
	}
	return v
}
