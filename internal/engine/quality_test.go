package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVolumeAuthenticity_ZeroActivity(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuysH24 = 0
	snap.SellsH24 = 0

	assert.Equal(t, 0.0, VolumeAuthenticity(snap))
}

func TestVolumeAuthenticity_OrganicVolume(t *testing.T) {
	snap := newTestSnapshot()
	snap.VolumeH24 = 100_000
	snap.BuysH24 = 600
	snap.SellsH24 = 400

	assert.Equal(t, 100.0, VolumeAuthenticity(snap))
}

func TestVolumeAuthenticity_WashPattern(t *testing.T) {
	snap := newTestSnapshot()
	snap.VolumeH24 = 300_000
	snap.BuysH24 = 20
	snap.SellsH24 = 20 // $7500 per txn over 40 txns

	assert.Equal(t, 60.0, VolumeAuthenticity(snap))
}

func TestVolumeAuthenticity_LargeTradesManyTxns(t *testing.T) {
	snap := newTestSnapshot()
	snap.VolumeH24 = 600_000
	snap.BuysH24 = 60
	snap.SellsH24 = 40 // $6000 per txn but 100 txns, not wash

	assert.Equal(t, 100.0, VolumeAuthenticity(snap))
}

func TestBuyQuality_NoSells(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuysH24 = 10
	snap.SellsH24 = 0

	assert.Equal(t, 100.0, BuyQuality(snap))
}

func TestBuyQuality_RatioScaled(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuysH24 = 300
	snap.SellsH24 = 200 // ratio 1.5 -> 30

	assert.Equal(t, 30.0, BuyQuality(snap))
}

func TestBuyQuality_CappedAt100(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuysH24 = 1000
	snap.SellsH24 = 10 // ratio 100 -> capped

	assert.Equal(t, 100.0, BuyQuality(snap))
}

func TestWalletClusterSuspicion(t *testing.T) {
	snap := newTestSnapshot()
	snap.BuysH1 = 999
	assert.Equal(t, 10.0, WalletClusterSuspicion(snap))

	snap.BuysH1 = 1000
	assert.Equal(t, 10.0, WalletClusterSuspicion(snap), "threshold itself is not a burst")

	snap.BuysH1 = 1001
	assert.Equal(t, 80.0, WalletClusterSuspicion(snap))
}

func TestRugProbability_Formula(t *testing.T) {
	// risk 0, auth 100, cluster 10 -> 0.4*100 + 0 + 4 = 44
	assert.InDelta(t, 44.0, RugProbability(0, 100, 10), 1e-9)

	// risk 100, auth 0, cluster 80 -> 0 + 20 + 32 = 52
	assert.InDelta(t, 52.0, RugProbability(100, 0, 80), 1e-9)
}

func TestRugProbability_Clamped(t *testing.T) {
	assert.Equal(t, 0.0, RugProbability(200, 200, -100))
	assert.Equal(t, 100.0, RugProbability(-200, -200, 200))
}
