// Package reliability keeps per-client and per-device counters of accepted
// readings. The counters live in process memory only: each instance has its
// own view and everything resets on restart.
package reliability

import "sync"

// DefaultWeight is the weight of a client that has never been recorded.
const DefaultWeight int64 = 1

// PNCounter holds separate increment and decrement tallies.
type PNCounter struct {
	P int64 `json:"increments"`
	N int64 `json:"decrements"`
}

// Value is increments minus decrements.
func (c PNCounter) Value() int64 { return c.P - c.N }

// Tracker records client G-counters and device PN-counters.
type Tracker struct {
	mu      sync.RWMutex
	clients map[string]int64
	devices map[string]PNCounter
}

func NewTracker() *Tracker {
	return &Tracker{
		clients: make(map[string]int64),
		devices: make(map[string]PNCounter),
	}
}

// RecordClient adds one to the client's grow-only counter. An empty id is a
// bucket of its own.
func (t *Tracker) RecordClient(clientID string) {
	t.mu.Lock()
	t.clients[clientID]++
	t.mu.Unlock()
}

// RecordDevice bumps the device's increment side, or its decrement side
// when increment is false.
func (t *Tracker) RecordDevice(deviceKey string, increment bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.devices[deviceKey]
	if increment {
		c.P++
	} else {
		c.N++
	}
	t.devices[deviceKey] = c
}

// WeightOf returns the client's counter, or DefaultWeight if it has none.
func (t *Tracker) WeightOf(clientID string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n, ok := t.clients[clientID]; ok {
		return n
	}
	return DefaultWeight
}

// NextWeight is the weight the client will carry once its current reading
// has been recorded: its counter plus one.
func (t *Tracker) NextWeight(clientID string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clients[clientID] + 1
}

// TotalFor returns P - N for the device, 0 if never recorded.
func (t *Tracker) TotalFor(deviceKey string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.devices[deviceKey].Value()
}

// Snapshot returns a copy of the device counter.
func (t *Tracker) Snapshot(deviceKey string) PNCounter {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.devices[deviceKey]
}
