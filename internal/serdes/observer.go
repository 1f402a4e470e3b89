package serdes

// EventKind names a step of the deserialization protocol.
type EventKind uint8

const (
	// EventCacheHit: an entity was served from the identity cache.
	EventCacheHit EventKind = iota + 1
	// EventConstructed: the constructor ran and the instance joined the session.
	EventConstructed
	// EventDeferred: a foreign field waits for a target still under construction.
	EventDeferred
	// EventBackfilled: a deferred foreign field received its finished target.
	EventBackfilled
	// EventCompleted: every field of an entity is set or validly deferred.
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventCacheHit:
		return "cache_hit"
	case EventConstructed:
		return "constructed"
	case EventDeferred:
		return "deferred"
	case EventBackfilled:
		return "backfilled"
	case EventCompleted:
		return "completed"
	}
	return "unknown"
}

// Event describes one protocol step. Field and Target are set for
// EventDeferred and EventBackfilled only.
type Event struct {
	Kind    EventKind
	Session string
	Entity  string
	Field   string
	Target  string
}

// Observer receives protocol events synchronously, in the order they happen.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
