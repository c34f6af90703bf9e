package metrics

import (
	"sync"
)

// Event names.
const (
	SessionOpened    = "session_opened"
	SessionClosed    = "session_closed"
	JoinAccepted     = "join_accepted"
	JoinRejectedFull = "join_rejected_full"
	SignalRelayed    = "signal_relayed"
	SendDropped      = "send_dropped"

	dropPrefix = "drop_"
)

// Metrics is a concurrency-safe counter registry.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	m.m[name] += n
	m.mu.Unlock()
}

// Drop counts an inbound message discarded for reason.
func (m *Metrics) Drop(reason string) {
	m.Inc(dropPrefix + reason)
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
