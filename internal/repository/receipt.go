package repository

import (
	"sync"
	"time"
)

// receiptClock stamps inserted readings. Stamps never go backwards, and they
// come from the same clock the reconciliation window is measured on.
type receiptClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newReceiptClock() *receiptClock {
	return &receiptClock{now: time.Now}
}

func (c *receiptClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
