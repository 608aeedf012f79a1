// Package reconcile merges a freshly validated reading with the device's most
// recent stored reading when the two arrive within a short trailing window.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
)

// DefaultWindow is the trailing interval that decides whether to merge.
const DefaultWindow = 5 * time.Minute

// RecentFinder returns a device's readings received at or after since,
// newest first.
type RecentFinder interface {
	FindRecentReadings(ctx context.Context, deviceID int64, since time.Time) ([]domain.Reading, error)
}

// Weigher reports how much a stored reading's client contribution counts.
type Weigher interface {
	WeightOf(clientID string) int64
}

// InsertFunc persists the value set chosen by the reconciler.
type InsertFunc func(ctx context.Context, values domain.Values) (domain.Reading, error)

// Result describes what Apply did.
type Result struct {
	Reading domain.Reading
	// Merged is true when a prior reading in the window took part.
	Merged bool
	// PartnerID is the id of that prior reading, 0 when not merged.
	PartnerID int64
}

type Reconciler struct {
	store   RecentFinder
	weights Weigher
	window  time.Duration
	now     func() time.Time
	locks   *keyedMutex
}

func New(store RecentFinder, weights Weigher, window time.Duration) *Reconciler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Reconciler{
		store:   store,
		weights: weights,
		window:  window,
		now:     time.Now,
		locks:   newKeyedMutex(),
	}
}

// WithClock swaps the time source, for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Reconcile returns the values to persist for an incoming reading carrying
// incomingWeight. Only the single newest reading inside the window is merged
// with; the others in the window are ignored.
func (r *Reconciler) Reconcile(ctx context.Context, device domain.Device, incomingWeight int64, incoming domain.Values) (domain.Values, *domain.Reading, error) {
	recent, err := r.store.FindRecentReadings(ctx, device.ID, r.now().Add(-r.window))
	if err != nil {
		return domain.Values{}, nil, fmt.Errorf("find recent readings for %s: %w", device.Key, err)
	}
	if len(recent) == 0 {
		return incoming.Clone(), nil, nil
	}

	latest := recent[0]
	merged := MergeValues(latest.Values, incoming, r.weights.WeightOf(latest.ClientID), incomingWeight)
	return merged, &latest, nil
}

// Apply runs Reconcile and insert while holding the device's lock, so two
// submissions for the same device never merge against the same partner.
// Anything insert does after persisting also happens under that lock.
func (r *Reconciler) Apply(ctx context.Context, device domain.Device, incomingWeight int64, incoming domain.Values, insert InsertFunc) (Result, error) {
	unlock := r.locks.Lock(device.Key)
	defer unlock()

	values, partner, err := r.Reconcile(ctx, device, incomingWeight, incoming)
	if err != nil {
		return Result{}, err
	}

	reading, err := insert(ctx, values)
	if err != nil {
		return Result{}, err
	}

	res := Result{Reading: reading}
	if partner != nil {
		res.Merged = true
		res.PartnerID = partner.ID
	}
	return res, nil
}
