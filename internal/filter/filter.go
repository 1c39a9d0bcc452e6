package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/market"
)

// ---------------------------------------------------------------------------
// Hard filter stage — cheap ordered pass/fail rules ahead of scoring
// ---------------------------------------------------------------------------

// Verdict is the filter decision for one snapshot.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictDrop Verdict = "drop"
)

// Rule identifies which rule dropped a snapshot, in evaluation order.
type Rule string

const (
	RuleChainMismatch Rule = "chain_mismatch"
	RuleMinLiquidity  Rule = "liquidity_below_minimum"
	RuleMinVolume     Rule = "volume_below_minimum"
	RuleMaxFDV        Rule = "fdv_above_maximum"
	RuleMinFDV        Rule = "fdv_below_minimum"
	RuleMaxAge        Rule = "pair_too_old"
	RuleUnknownAge    Rule = "creation_time_unknown"
)

// PassResult reports the decision and, for drops, the first violated rule.
type PassResult struct {
	Verdict Verdict `json:"verdict"`
	Rule    Rule    `json:"rule,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Passed is a convenience accessor.
func (r PassResult) Passed() bool { return r.Verdict == VerdictPass }

// Stage applies the hard filter rules for a target chain.
type Stage struct {
	chain string
}

// NewStage creates a filter stage for the given target chain.
func NewStage(chain string) *Stage {
	return &Stage{chain: chain}
}

// Apply evaluates the rules in fixed order; the first failure short-circuits
// and becomes the reported reason. Missing numeric fields are zero and
// compare like any other value. No shared state is touched.
func (st *Stage) Apply(snap market.PairSnapshot, strat *config.Strategy, now time.Time) PassResult {
	f := strat.Filters

	if !strings.EqualFold(snap.ChainID, st.chain) {
		return drop(RuleChainMismatch, fmt.Sprintf("chain %q is not target %q", snap.ChainID, st.chain))
	}

	if snap.LiquidityUSD < f.MinLiquidityUSD {
		return drop(RuleMinLiquidity, fmt.Sprintf("liquidity below minimum: $%.0f < $%.0f", snap.LiquidityUSD, f.MinLiquidityUSD))
	}

	if snap.VolumeH1 < f.MinVolumeH1 {
		return drop(RuleMinVolume, fmt.Sprintf("1h volume below minimum: $%.0f < $%.0f", snap.VolumeH1, f.MinVolumeH1))
	}

	if f.MaxFDV > 0 && snap.FDV > f.MaxFDV {
		return drop(RuleMaxFDV, fmt.Sprintf("FDV above maximum: $%.0f > $%.0f", snap.FDV, f.MaxFDV))
	}

	if f.MinFDV > 0 && snap.FDV < f.MinFDV {
		return drop(RuleMinFDV, fmt.Sprintf("FDV below minimum: $%.0f < $%.0f", snap.FDV, f.MinFDV))
	}

	if age, known := snap.Age(now); known {
		maxAge := time.Duration(f.MaxAgeHours * float64(time.Hour))
		if age > maxAge {
			return drop(RuleMaxAge, fmt.Sprintf("pair age %.1fh exceeds %.1fh", age.Hours(), f.MaxAgeHours))
		}
	} else if f.StrictFiltering {
		return drop(RuleUnknownAge, "creation timestamp missing under strict filtering")
	}

	return PassResult{Verdict: VerdictPass}
}

func drop(rule Rule, reason string) PassResult {
	return PassResult{Verdict: VerdictDrop, Rule: rule, Reason: reason}
}
