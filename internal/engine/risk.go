package engine

import (
	"fmt"

	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/market"
)

// ---------------------------------------------------------------------------
// Risk scoring — independent weighted penalties, higher = riskier
// ---------------------------------------------------------------------------

// RiskAssessment is the result of evaluating one snapshot.
type RiskAssessment struct {
	Score   float64  `json:"score"` // 0-100
	Reasons []string `json:"reasons"`
	IsSafe  bool     `json:"is_safe"`
}

const (
	lowLiquidityFloor = 5000.0
	highFDVCeiling    = 5_000_000.0
	minLiquidityToFDV = 0.05
	lowLiquidityBase  = 40.0
	highFDVBase       = 20.0
	thinBackingBase   = 30.0
	noSocialsBase     = 15.0
)

// EvaluateRisk scores a snapshot against the active strategy. Penalties are
// independent and accumulate; the total is capped at 100. Deterministic,
// no I/O.
func EvaluateRisk(snap market.PairSnapshot, strat *config.Strategy) RiskAssessment {
	var (
		score   float64
		reasons []string
	)

	if snap.LiquidityUSD < lowLiquidityFloor {
		p := lowLiquidityBase * strat.Weights.Liquidity
		score += p
		reasons = append(reasons, fmt.Sprintf("low liquidity $%.0f (+%.1f)", snap.LiquidityUSD, p))
	}

	if snap.FDV > highFDVCeiling {
		p := highFDVBase * strat.Weights.VolumeAuthenticity
		score += p
		reasons = append(reasons, fmt.Sprintf("high FDV $%.0f (+%.1f)", snap.FDV, p))
	}

	if snap.FDV > 0 && snap.LiquidityUSD/snap.FDV < minLiquidityToFDV {
		p := thinBackingBase * strat.Weights.DevReputation
		score += p
		reasons = append(reasons, fmt.Sprintf("liquidity/FDV ratio %.3f below %.2f (+%.1f)",
			snap.LiquidityUSD/snap.FDV, minLiquidityToFDV, p))
	}

	if !snap.HasSocials {
		p := noSocialsBase * strat.Weights.DevReputation
		score += p
		reasons = append(reasons, fmt.Sprintf("no social links (+%.1f)", p))
	}

	if score > 100 {
		score = 100
	}

	return RiskAssessment{
		Score:   score,
		Reasons: reasons,
		IsSafe:  score < strat.Thresholds.RiskAlertLevel,
	}
}
