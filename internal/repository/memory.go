package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
)

// MemoryStore keeps devices and readings in process memory. It backs tests
// and STORE_BACKEND=memory.
type MemoryStore struct {
	mu       sync.RWMutex
	devices  map[string]*domain.Device
	readings map[int64][]domain.Reading // device id -> insertion order
	nextDev  int64
	nextRd   int64
	clock    *receiptClock
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices:  make(map[string]*domain.Device),
		readings: make(map[int64][]domain.Reading),
		clock:    newReceiptClock(),
	}
}

// WithClock swaps the time source, for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.clock.now = now
	return m
}

func (m *MemoryStore) UpsertDevice(_ context.Context, key string) (domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.now()
	if d, ok := m.devices[key]; ok {
		d.LastSeenAt = now
		return *d, nil
	}
	m.nextDev++
	d := &domain.Device{ID: m.nextDev, Key: key, CreatedAt: now, LastSeenAt: now}
	m.devices[key] = d
	return *d, nil
}

func (m *MemoryStore) FindDevice(_ context.Context, key string) (domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[key]
	if !ok {
		return domain.Device{}, fmt.Errorf("device %s: %w", key, domain.ErrNotFound)
	}
	return *d, nil
}

func (m *MemoryStore) ListDevices(_ context.Context) ([]domain.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertReading assigns an id and a receipt time that never goes backwards.
func (m *MemoryStore) InsertReading(_ context.Context, rd *domain.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRd++
	rd.ID = m.nextRd
	rd.ReceivedAt = m.clock.next()
	for _, d := range m.devices {
		if d.ID == rd.DeviceID {
			rd.DeviceKey = d.Key
			break
		}
	}

	stored := *rd
	stored.Values = rd.Values.Clone()
	m.readings[rd.DeviceID] = append(m.readings[rd.DeviceID], stored)
	return nil
}

func (m *MemoryStore) FindRecentReadings(_ context.Context, deviceID int64, since time.Time) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs := m.readings[deviceID]
	var out []domain.Reading
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].ReceivedAt.Before(since) {
			break
		}
		out = append(out, copyReading(rs[i]))
	}
	return out, nil
}

func (m *MemoryStore) FindReadings(_ context.Context, deviceID int64, limit int) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return []domain.Reading{}, nil
	}
	rs := m.readings[deviceID]
	out := make([]domain.Reading, 0, min(limit, len(rs)))
	for i := len(rs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyReading(rs[i]))
	}
	return out, nil
}

func copyReading(r domain.Reading) domain.Reading {
	r.Values = r.Values.Clone()
	return r
}
