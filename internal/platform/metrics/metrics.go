package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// SerDes holds the mapping engine metrics, labelled by schema table.
// A nil *SerDes records nothing.
type SerDes struct {
	Deserialized *prometheus.CounterVec
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec
	Deferred     *prometheus.CounterVec
	Inserted     *prometheus.CounterVec
	Updated      *prometheus.CounterVec
}

// NewSerDes creates the mapping engine metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewSerDes(reg prometheus.Registerer) *SerDes {
	f := promauto.With(reg)
	return &SerDes{
		Deserialized: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_serdes_deserialized_total",
			Help: "Entities constructed from rows",
		}, []string{"schema"}),
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_serdes_cache_hits_total",
			Help: "Lookups answered from the identity cache",
		}, []string{"schema"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_serdes_cache_misses_total",
			Help: "Lookups that had to read a row",
		}, []string{"schema"}),
		Deferred: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_serdes_deferred_total",
			Help: "Foreign fields back-filled after their target finished construction",
		}, []string{"schema"}),
		Inserted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_serdes_inserted_total",
			Help: "Entities serialized as new rows",
		}, []string{"schema"}),
		Updated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_serdes_updated_total",
			Help: "Entities serialized as updates of existing rows",
		}, []string{"schema"}),
	}
}

func (m *SerDes) IncrementDeserialized(schema string) {
	if m != nil {
		m.Deserialized.WithLabelValues(schema).Inc()
	}
}

func (m *SerDes) IncrementCacheHit(schema string) {
	if m != nil {
		m.CacheHits.WithLabelValues(schema).Inc()
	}
}

func (m *SerDes) IncrementCacheMiss(schema string) {
	if m != nil {
		m.CacheMisses.WithLabelValues(schema).Inc()
	}
}

func (m *SerDes) IncrementDeferred(schema string) {
	if m != nil {
		m.Deferred.WithLabelValues(schema).Inc()
	}
}

func (m *SerDes) IncrementInserted(schema string) {
	if m != nil {
		m.Inserted.WithLabelValues(schema).Inc()
	}
}

func (m *SerDes) IncrementUpdated(schema string) {
	if m != nil {
		m.Updated.WithLabelValues(schema).Inc()
	}
}

// RowStore tracks statement latency and failures per operation and table.
// A nil *RowStore records nothing.
type RowStore struct {
	Duration *prometheus.HistogramVec
	Failures *prometheus.CounterVec
}

// NewRowStore creates the row store metrics and registers them with reg.
func NewRowStore(reg prometheus.Registerer) *RowStore {
	f := promauto.With(reg)
	return &RowStore{
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "projects_rowstore_duration_seconds",
			Help:    "Duration of row store statements",
			Buckets: latencyBuckets,
		}, []string{"op", "table"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_rowstore_failures_total",
			Help: "Row store statements that returned an error other than a missing row",
		}, []string{"op", "table"}),
	}
}

// ObserveStatement records one statement. Call with time.Now() taken before it ran.
func (m *RowStore) ObserveStatement(op, table string, start time.Time) {
	if m != nil {
		m.Duration.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
	}
}

// IncrementFailure records a failed statement.
func (m *RowStore) IncrementFailure(op, table string) {
	if m != nil {
		m.Failures.WithLabelValues(op, table).Inc()
	}
}

// Directory counts staff directory operations. A nil *Directory records nothing.
type Directory struct {
	SignIns  *prometheus.CounterVec
	Hires    prometheus.Counter
	Bookings prometheus.Counter
}

func NewDirectory(reg prometheus.Registerer) *Directory {
	f := promauto.With(reg)
	return &Directory{
		SignIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "projects_directory_sign_ins_total",
			Help: "Sign-in attempts by outcome",
		}, []string{"outcome"}),
		Hires: f.NewCounter(prometheus.CounterOpts{
			Name: "projects_directory_hires_total",
			Help: "Employees hired",
		}),
		Bookings: f.NewCounter(prometheus.CounterOpts{
			Name: "projects_directory_bookings_total",
			Help: "Meeting rooms booked",
		}),
	}
}

// IncrementSignIn records an attempt; outcome is "ok", "unknown" or "denied".
func (m *Directory) IncrementSignIn(outcome string) {
	if m != nil {
		m.SignIns.WithLabelValues(outcome).Inc()
	}
}

func (m *Directory) IncrementHires() {
	if m != nil {
		m.Hires.Inc()
	}
}

func (m *Directory) IncrementBookings() {
	if m != nil {
		m.Bookings.Inc()
	}
}
