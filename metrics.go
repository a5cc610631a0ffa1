package authkit

import "sync/atomic"

// MetricID identifies one engine counter. IDs are dense and stable within a
// release, which lets the metrics store be a flat array instead of a map.
type MetricID uint16

const (
	// MetricLoginSuccess counts completed logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins, including unknown accounts.
	MetricLoginFailure
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure
	// MetricRefreshSuccess counts refresh flows that minted a new access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh flows rejected for any reason.
	MetricRefreshFailure
	// MetricSessionCreated counts refresh tokens written to the store.
	MetricSessionCreated
	// MetricSessionInvalidated counts refresh tokens removed from the store.
	MetricSessionInvalidated
	// MetricLogout counts single-session logouts.
	MetricLogout
	// MetricLogoutAll counts whole-account logouts.
	MetricLogoutAll
	metricIDCount
)

const cacheLineSize = 64

// paddedCounter keeps adjacent counters on separate cache lines so hot
// counters do not false-share under concurrent load.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's counters. A disabled Metrics is a cheap no-op
// on every path; all methods are safe for concurrent use.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a Metrics store from the config toggle.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. Out-of-range IDs are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters. Values are loaded individually, so the
// snapshot is per-counter consistent, not globally atomic.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// MetricName returns the stable snake_case name for a counter, used by the
// Prometheus bridge and log output.
func MetricName(id MetricID) string {
	switch id {
	case MetricLoginSuccess:
		return "login_success"
	case MetricLoginFailure:
		return "login_failure"
	case MetricRegisterSuccess:
		return "register_success"
	case MetricRegisterFailure:
		return "register_failure"
	case MetricRefreshSuccess:
		return "refresh_success"
	case MetricRefreshFailure:
		return "refresh_failure"
	case MetricSessionCreated:
		return "session_created"
	case MetricSessionInvalidated:
		return "session_invalidated"
	case MetricLogout:
		return "logout"
	case MetricLogoutAll:
		return "logout_all"
	default:
		return "unknown"
	}
}

// MetricIDs returns all defined counter IDs in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}
