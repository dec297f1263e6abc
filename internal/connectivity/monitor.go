// Package connectivity tracks whether the remote checkout backend is
// reachable. The sync coordinator gates new cycles on this signal; in-flight
// operations are never interrupted by a transition to offline.
package connectivity

import "sync"

// Monitor holds the offline flag and fans transitions out to subscribers.
// Updates are delivered asynchronously: a subscriber may observe a transition
// at any point relative to other operations.
//
// When no reachability signal is available the monitor defaults to online,
// matching environments that cannot report connectivity at all.
type Monitor struct {
	mu      sync.Mutex
	offline bool
	subs    []chan bool
	closed  bool
}

// NewMonitor creates a monitor seeded with the given offline state.
func NewMonitor(offline bool) *Monitor {
	return &Monitor{offline: offline}
}

// Offline reports the last observed reachability state.
func (m *Monitor) Offline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// Set records a transition and notifies subscribers. Repeated reports of the
// same state are dropped so subscribers only see edges.
func (m *Monitor) Set(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.offline == offline {
		return
	}
	m.offline = offline

	for _, sub := range m.subs {
		// Non-blocking send: a slow subscriber misses intermediate edges but
		// always re-reads Offline() when it wakes.
		select {
		case sub <- offline:
		default:
		}
	}
}

// Subscribe returns a channel receiving offline-state edges. The channel is
// buffered; receivers that fall behind should treat any receive as "state
// may have changed" and read Offline() for the current value.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan bool, 1)
	m.subs = append(m.subs, ch)
	return ch
}

// Close stops notifications and closes all subscriber channels.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, sub := range m.subs {
		close(sub)
	}
	m.subs = nil
}
