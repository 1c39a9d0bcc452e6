package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexsentry/dexsentry/internal/engine"
	"github.com/dexsentry/dexsentry/internal/market"
)

func candidate(address string, composite float64) engine.ScoredCandidate {
	return engine.ScoredCandidate{
		Snapshot:  market.PairSnapshot{TokenAddress: address},
		Composite: composite,
	}
}

func TestBuffer_TopNDescending(t *testing.T) {
	b := NewBuffer()
	b.Add(candidate("a", 40))
	b.Add(candidate("b", 90))
	b.Add(candidate("c", 65))
	b.Add(candidate("d", 10))

	top := b.TopN(3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Snapshot.TokenAddress)
	assert.Equal(t, "c", top[1].Snapshot.TokenAddress)
	assert.Equal(t, "a", top[2].Snapshot.TokenAddress)
}

func TestBuffer_TopNFewerThanN(t *testing.T) {
	b := NewBuffer()
	b.Add(candidate("a", 40))

	top := b.TopN(3)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].Snapshot.TokenAddress)
}

func TestBuffer_TopNEmptyAndZero(t *testing.T) {
	b := NewBuffer()
	assert.Nil(t, b.TopN(3))

	b.Add(candidate("a", 40))
	assert.Nil(t, b.TopN(0))
	assert.Nil(t, b.TopN(-1))
}

func TestBuffer_EqualScoresKeepIngestionOrder(t *testing.T) {
	b := NewBuffer()
	b.Add(candidate("first", 50))
	b.Add(candidate("second", 50))
	b.Add(candidate("third", 50))

	top := b.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, "first", top[0].Snapshot.TokenAddress)
	assert.Equal(t, "second", top[1].Snapshot.TokenAddress)
}

func TestBuffer_TopNDoesNotMutateBuffer(t *testing.T) {
	b := NewBuffer()
	b.Add(candidate("a", 10))
	b.Add(candidate("b", 90))

	_ = b.TopN(2)
	again := b.TopN(2)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "b", again[0].Snapshot.TokenAddress)
}
