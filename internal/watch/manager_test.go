package watch

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxSize int, ttl time.Duration) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m, err := NewManager(store, maxSize, ttl)
	require.NoError(t, err)
	return m, dir
}

func TestManager_AddAndGet(t *testing.T) {
	m, _ := newTestManager(t, 10, 30*time.Minute)
	now := time.Now()

	require.NoError(t, m.Add("tok-a", "AAA", "solana", "chat-1", decimal.NewFromFloat(0.001), now))

	e, ok := m.Get("tok-a")
	require.True(t, ok)
	assert.Equal(t, "AAA", e.Symbol)
	assert.True(t, e.EntryPrice.Equal(decimal.NewFromFloat(0.001)))
	assert.Equal(t, now.Add(30*time.Minute), e.ExpiresAt)
	assert.Equal(t, 1, m.Count())
}

func TestManager_ReAddExtendsExpiry(t *testing.T) {
	m, _ := newTestManager(t, 10, 30*time.Minute)
	base := time.Now()

	require.NoError(t, m.Add("tok-a", "AAA", "solana", "chat-1", decimal.NewFromFloat(0.001), base))
	require.True(t, m.MarkEscalated("tok-a"))

	later := base.Add(10 * time.Minute)
	require.NoError(t, m.Add("tok-a", "AAA", "solana", "chat-1", decimal.NewFromFloat(0.002), later))

	e, ok := m.Get("tok-a")
	require.True(t, ok)
	assert.Equal(t, later.Add(30*time.Minute), e.ExpiresAt)
	assert.True(t, e.Escalated, "re-add must not reset escalation state")
	assert.True(t, e.EntryPrice.Equal(decimal.NewFromFloat(0.001)), "re-add must not move the entry price")
	assert.Equal(t, 1, m.Count())
}

func TestManager_CapacityEvictsOldest(t *testing.T) {
	m, _ := newTestManager(t, 2, 30*time.Minute)
	base := time.Now()

	require.NoError(t, m.Add("tok-a", "AAA", "solana", "c", decimal.NewFromInt(1), base))
	require.NoError(t, m.Add("tok-b", "BBB", "solana", "c", decimal.NewFromInt(1), base.Add(time.Minute)))
	require.NoError(t, m.Add("tok-c", "CCC", "solana", "c", decimal.NewFromInt(1), base.Add(2*time.Minute)))

	assert.Equal(t, 2, m.Count())
	_, ok := m.Get("tok-a")
	assert.False(t, ok, "oldest entry gets evicted")
	_, ok = m.Get("tok-c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), m.Stats().Evicted)
}

func TestManager_MarkEscalatedOnce(t *testing.T) {
	m, _ := newTestManager(t, 10, 30*time.Minute)
	require.NoError(t, m.Add("tok-a", "AAA", "solana", "c", decimal.NewFromInt(1), time.Now()))

	assert.True(t, m.MarkEscalated("tok-a"))
	assert.False(t, m.MarkEscalated("tok-a"), "second escalation is suppressed")
	assert.False(t, m.MarkEscalated("tok-missing"))
}

func TestManager_CleanupExpired(t *testing.T) {
	m, _ := newTestManager(t, 10, 30*time.Minute)
	base := time.Now()

	require.NoError(t, m.Add("tok-a", "AAA", "solana", "c", decimal.NewFromInt(1), base))
	require.NoError(t, m.Add("tok-b", "BBB", "solana", "c", decimal.NewFromInt(1), base.Add(20*time.Minute)))

	removed := m.CleanupExpired(base.Add(31 * time.Minute))

	require.Len(t, removed, 1)
	assert.Equal(t, "tok-a", removed[0].Address)
	assert.Equal(t, 1, m.Count())
}

func TestManager_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	store, err := OpenStore(dir)
	require.NoError(t, err)
	m, err := NewManager(store, 10, 30*time.Minute)
	require.NoError(t, err)
	require.NoError(t, m.Add("tok-a", "AAA", "solana", "chat-1", decimal.NewFromFloat(0.5), now))
	require.True(t, m.MarkEscalated("tok-a"))
	require.NoError(t, store.Close())

	store2, err := OpenStore(dir)
	require.NoError(t, err)
	defer store2.Close()
	m2, err := NewManager(store2, 10, 30*time.Minute)
	require.NoError(t, err)

	e, ok := m2.Get("tok-a")
	require.True(t, ok)
	assert.Equal(t, "AAA", e.Symbol)
	assert.True(t, e.Escalated)
	assert.True(t, e.EntryPrice.Equal(decimal.NewFromFloat(0.5)))
}

func TestManager_RestartDropsExpired(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(dir)
	require.NoError(t, err)
	m, err := NewManager(store, 10, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, m.Add("tok-a", "AAA", "solana", "c", decimal.NewFromInt(1), time.Now().Add(-time.Hour)))
	require.NoError(t, store.Close())

	store2, err := OpenStore(dir)
	require.NoError(t, err)
	defer store2.Close()
	m2, err := NewManager(store2, 10, time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 0, m2.Count())
}

func TestManager_Summarize(t *testing.T) {
	m, _ := newTestManager(t, 10, 30*time.Minute)
	now := time.Now()

	require.NoError(t, m.Add("up", "UP", "solana", "c", decimal.NewFromInt(1), now))
	require.NoError(t, m.Add("down", "DOWN", "solana", "c", decimal.NewFromInt(1), now))
	require.NoError(t, m.Add("flat", "FLAT", "solana", "c", decimal.NewFromInt(1), now))

	m.RecordObservation("up", 35, now)
	m.RecordObservation("down", -40, now)
	m.RecordObservation("flat", 5, now)
	m.MarkEscalated("down")

	s := m.Summarize()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Escalated)
	assert.Equal(t, 1, s.Up)
	assert.Equal(t, 1, s.Down)
}

func TestManager_ListSortedByCreation(t *testing.T) {
	m, _ := newTestManager(t, 10, 30*time.Minute)
	base := time.Now()

	require.NoError(t, m.Add("second", "B", "solana", "c", decimal.NewFromInt(1), base.Add(time.Minute)))
	require.NoError(t, m.Add("first", "A", "solana", "c", decimal.NewFromInt(1), base))

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Address)
	assert.Equal(t, "second", list[1].Address)
}
