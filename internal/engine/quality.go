package engine

import "github.com/dexsentry/dexsentry/internal/market"

// ---------------------------------------------------------------------------
// Supporting heuristics — all pure, all total over their inputs
// ---------------------------------------------------------------------------

const (
	washTradeSizeUSD  = 5000.0
	washTradeMaxTxns  = 50
	washTradePenalty  = 40.0
	burstBuyThreshold = 1000
	burstBuyScore     = 80.0
	baselineCluster   = 10.0
)

// VolumeAuthenticity scores how organic the 24h volume looks, 0-100.
// A small number of unusually large trades reads as wash trading; zero
// activity scores zero.
func VolumeAuthenticity(snap market.PairSnapshot) float64 {
	txns := snap.TxnsH24()
	if txns == 0 {
		return 0
	}

	score := 100.0
	if snap.VolumeH24/float64(txns) > washTradeSizeUSD && txns < washTradeMaxTxns {
		score -= washTradePenalty
	}
	return score
}

// BuyQuality maps the 24h buy/sell ratio to 0-100. No sells at all is
// treated as maximal quality.
func BuyQuality(snap market.PairSnapshot) float64 {
	if snap.SellsH24 == 0 {
		return 100
	}
	ratio := float64(snap.BuysH24) / float64(snap.SellsH24)
	quality := ratio * 20
	if quality > 100 {
		quality = 100
	}
	return quality
}

// WalletClusterSuspicion flags coordinated burst buying in the last hour.
// Returns a suspicion score, not a probability.
func WalletClusterSuspicion(snap market.PairSnapshot) float64 {
	if snap.BuysH1 > burstBuyThreshold {
		return burstBuyScore
	}
	return baselineCluster
}
