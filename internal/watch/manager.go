package watch

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Entry is one token under observation after an alert fired.
type Entry struct {
	Address    string          `json:"address"`
	Symbol     string          `json:"symbol"`
	ChainID    string          `json:"chain_id"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Recipient  string          `json:"recipient"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Escalated  bool            `json:"escalated"`
	LastChange float64         `json:"last_change_pct"`
	LastSeenAt time.Time       `json:"last_seen_at"`
}

// Expired reports whether the entry's observation window has closed.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Summary is a point-in-time view of the watch list.
type Summary struct {
	Total     int `json:"total"`
	Escalated int `json:"escalated"`
	Up        int `json:"up"`   // last change > +20%
	Down      int `json:"down"` // last change < -20%
}

const summaryMoveThreshold = 20.0

// Manager owns the in-memory watch table and mirrors every mutation to the
// durable store so restarts resume with the same watch list.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]Entry
	store   *Store
	maxSize int
	ttl     time.Duration

	added   atomic.Int64
	evicted atomic.Int64
	expired atomic.Int64
}

// NewManager loads any persisted entries from store. Entries already past
// their expiry are dropped during load.
func NewManager(store *Store, maxSize int, ttl time.Duration) (*Manager, error) {
	m := &Manager{
		entries: make(map[string]Entry),
		store:   store,
		maxSize: maxSize,
		ttl:     ttl,
	}
	persisted, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("load watch entries: %w", err)
	}
	now := time.Now()
	for _, e := range persisted {
		if e.Expired(now) {
			_ = store.Delete(e.Address)
			continue
		}
		m.entries[e.Address] = e
	}
	if len(m.entries) > 0 {
		log.Info().Int("restored", len(m.entries)).Msg("Watch list restored from store")
	}
	return m, nil
}

// Add registers a token for observation. Re-adding an existing address
// extends its expiry window instead of resetting escalation state. When the
// table is full the oldest entry is evicted to make room.
func (m *Manager) Add(address, symbol, chainID, recipient string, entryPrice decimal.Decimal, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[address]; ok {
		existing.ExpiresAt = now.Add(m.ttl)
		existing.LastSeenAt = now
		m.entries[address] = existing
		return m.store.Put(existing)
	}

	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		m.evictOldestLocked()
	}

	e := Entry{
		Address:    address,
		Symbol:     symbol,
		ChainID:    chainID,
		EntryPrice: entryPrice,
		Recipient:  recipient,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		LastSeenAt: now,
	}
	m.entries[address] = e
	m.added.Add(1)
	log.Debug().Str("address", address).Str("symbol", symbol).Msg("Watch added")
	return m.store.Put(e)
}

// evictOldestLocked removes the entry with the earliest CreatedAt.
func (m *Manager) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for addr, e := range m.entries {
		if oldest == "" || e.CreatedAt.Before(oldestAt) {
			oldest = addr
			oldestAt = e.CreatedAt
		}
	}
	if oldest == "" {
		return
	}
	delete(m.entries, oldest)
	_ = m.store.Delete(oldest)
	m.evicted.Add(1)
	log.Warn().Str("address", oldest).Msg("Watch table full, evicted oldest entry")
}

// Remove drops a token from observation.
func (m *Manager) Remove(address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[address]; !ok {
		return nil
	}
	delete(m.entries, address)
	return m.store.Delete(address)
}

// Get returns the entry for address if present.
func (m *Manager) Get(address string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[address]
	return e, ok
}

// List returns a snapshot of all entries sorted oldest first.
func (m *Manager) List() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Count returns the current watch table size.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Summarize aggregates the table for status reporting.
func (m *Manager) Summarize() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Summary{Total: len(m.entries)}
	for _, e := range m.entries {
		if e.Escalated {
			s.Escalated++
		}
		if e.LastChange > summaryMoveThreshold {
			s.Up++
		} else if e.LastChange < -summaryMoveThreshold {
			s.Down++
		}
	}
	return s
}

// RecordObservation stores the latest price change for an entry.
func (m *Manager) RecordObservation(address string, changePct float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[address]
	if !ok {
		return
	}
	e.LastChange = changePct
	e.LastSeenAt = now
	m.entries[address] = e
	_ = m.store.Put(e)
}

// MarkEscalated flips the escalation flag. Returns false when the entry is
// missing or already escalated, so each watch escalates at most once.
func (m *Manager) MarkEscalated(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[address]
	if !ok || e.Escalated {
		return false
	}
	e.Escalated = true
	m.entries[address] = e
	_ = m.store.Put(e)
	return true
}

// CleanupExpired removes entries whose window has closed and returns them.
func (m *Manager) CleanupExpired(now time.Time) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []Entry
	for addr, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, addr)
			_ = m.store.Delete(addr)
			m.expired.Add(1)
			removed = append(removed, e)
		}
	}
	return removed
}

// Stats reports lifetime counters.
type Stats struct {
	Active  int   `json:"active"`
	Added   int64 `json:"added"`
	Evicted int64 `json:"evicted"`
	Expired int64 `json:"expired"`
}

func (m *Manager) Stats() Stats {
	return Stats{
		Active:  m.Count(),
		Added:   m.added.Load(),
		Evicted: m.evicted.Load(),
		Expired: m.expired.Load(),
	}
}
