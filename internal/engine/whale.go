package engine

import (
	"fmt"

	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/market"
)

// WhaleAssessment reports whether large-actor activity was detected.
type WhaleAssessment struct {
	Detected bool     `json:"detected"`
	Reasons  []string `json:"reasons"`
}

// burstTxnThreshold is the 1h transaction count above which activity is
// treated as whale-driven regardless of volume.
const burstTxnThreshold = 500

// AnalyzeWhales flags snapshots whose 1h volume outruns liquidity by the
// sensitivity multiplier, or whose 1h transaction count bursts. A higher
// whale_presence weight tightens the volume trigger (the multiplier is
// monotonically non-increasing in the weight). Both triggers can fire and
// both reasons are kept.
func AnalyzeWhales(snap market.PairSnapshot, strat *config.Strategy) WhaleAssessment {
	multiplier := 2.0
	if w := strat.Weights.WhalePresence; w > 0 {
		multiplier = 2.0 / w
	}

	var reasons []string

	if snap.VolumeH1 > snap.LiquidityUSD*multiplier {
		reasons = append(reasons, fmt.Sprintf("1h volume $%.0f exceeds %.2fx liquidity $%.0f",
			snap.VolumeH1, multiplier, snap.LiquidityUSD))
	}

	if txns := snap.TxnsH1(); txns > burstTxnThreshold {
		reasons = append(reasons, fmt.Sprintf("1h transaction burst: %d > %d", txns, burstTxnThreshold))
	}

	return WhaleAssessment{
		Detected: len(reasons) > 0,
		Reasons:  reasons,
	}
}
