package rank

import (
	"sync"
	"time"
)

// Deduper enforces the per-address alert cooldown. The check and the record
// happen under one lock so two concurrent cycles can never both decide
// "yes" for the same address inside a cooldown window.
type Deduper struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewDeduper creates an empty cooldown table.
func NewDeduper() *Deduper {
	return &Deduper{lastSent: make(map[string]time.Time)}
}

// ShouldAlert reports whether an alert for the address may be dispatched at
// now, given the cooldown. A true decision immediately records now for the
// address; the caller is expected to dispatch.
func (d *Deduper) ShouldAlert(address string, now time.Time, cooldown time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSent[address]; ok && now.Sub(last) <= cooldown {
		return false
	}
	d.lastSent[address] = now
	return true
}

// LastSent returns the recorded send time for an address, if any.
func (d *Deduper) LastSent(address string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.lastSent[address]
	return t, ok
}

// Size returns the number of addresses currently tracked.
func (d *Deduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lastSent)
}

// Prune drops records older than the retention horizon. Called periodically
// so the table does not grow without bound.
func (d *Deduper) Prune(now time.Time, retention time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	cutoff := now.Add(-retention)
	for addr, sent := range d.lastSent {
		if sent.Before(cutoff) {
			delete(d.lastSent, addr)
			removed++
		}
	}
	return removed
}
