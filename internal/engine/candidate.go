package engine

import (
	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/market"
)

// ScoredCandidate bundles a snapshot with every assessment computed for it
// during one polling cycle. Cycle-scoped; never shared across cycles.
type ScoredCandidate struct {
	Snapshot market.PairSnapshot `json:"snapshot"`

	Risk         RiskAssessment  `json:"risk"`
	Whale        WhaleAssessment `json:"whale"`
	Authenticity float64         `json:"authenticity"`
	BuyQuality   float64         `json:"buy_quality"`
	Cluster      float64         `json:"cluster"`
	RugProb      float64         `json:"rug_prob"`

	// Composite is the final ranking value: inverted rug probability plus
	// a whale bonus.
	Composite float64 `json:"composite"`
}

const whaleBonus = 10.0

// Score runs every engine over one snapshot and assembles the candidate.
func Score(snap market.PairSnapshot, strat *config.Strategy) ScoredCandidate {
	risk := EvaluateRisk(snap, strat)
	whale := AnalyzeWhales(snap, strat)
	auth := VolumeAuthenticity(snap)
	buyQ := BuyQuality(snap)
	cluster := WalletClusterSuspicion(snap)
	rugProb := RugProbability(risk.Score, auth, cluster)

	composite := 100 - rugProb
	if whale.Detected {
		composite += whaleBonus
	}

	return ScoredCandidate{
		Snapshot:     snap,
		Risk:         risk,
		Whale:        whale,
		Authenticity: auth,
		BuyQuality:   buyQ,
		Cluster:      cluster,
		RugProb:      rugProb,
		Composite:    composite,
	}
}
