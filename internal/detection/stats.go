package detection

import "sync"

// Stats counts orchestrator outcomes. Safe for concurrent use.
type Stats struct {
	mu sync.Mutex
	s  StatsSnapshot
}

// StatsSnapshot is a point-in-time copy of the orchestrator's counters.
type StatsSnapshot struct {
	Requests     int64 `json:"requests"`
	FastAccepted int64 `json:"fast_accepted"`
	SlowAccepted int64 `json:"slow_accepted"`
	NotDetected  int64 `json:"not_detected"`
}

func (st *Stats) requestStarted() {
	st.mu.Lock()
	st.s.Requests++
	st.mu.Unlock()
}

func (st *Stats) fastAccepted() {
	st.mu.Lock()
	st.s.FastAccepted++
	st.mu.Unlock()
}

func (st *Stats) slowAccepted() {
	st.mu.Lock()
	st.s.SlowAccepted++
	st.mu.Unlock()
}

func (st *Stats) notDetected() {
	st.mu.Lock()
	st.s.NotDetected++
	st.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}
