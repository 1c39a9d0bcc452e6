package config

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Strategy — the live-reloadable tunables the pipeline reads every cycle
// ---------------------------------------------------------------------------

// Strategy is one immutable, versioned snapshot of the tunable parameters.
// It is replaced wholesale on reload; readers never observe a mix of old
// and new values.
type Strategy struct {
	Version int64 `yaml:"-"`

	Filters    FilterThresholds   `yaml:"filters"`
	Weights    ScoringWeights     `yaml:"weights"`
	Thresholds DecisionThresholds `yaml:"thresholds"`
	Limits     SystemLimits       `yaml:"limits"`
}

type FilterThresholds struct {
	MinLiquidityUSD float64 `yaml:"min_liquidity_usd"`
	MinVolumeH1     float64 `yaml:"min_volume_h1"`
	MaxFDV          float64 `yaml:"max_fdv"` // 0 disables
	MinFDV          float64 `yaml:"min_fdv"` // 0 disables
	MaxAgeHours     float64 `yaml:"max_age_hours"`
	StrictFiltering bool    `yaml:"strict_filtering"`
}

type ScoringWeights struct {
	VolumeAuthenticity float64 `yaml:"volume_authenticity"`
	Liquidity          float64 `yaml:"liquidity"`
	WhalePresence      float64 `yaml:"whale_presence"`
	DevReputation      float64 `yaml:"dev_reputation"`
}

type DecisionThresholds struct {
	RiskAlertLevel float64 `yaml:"risk_alert_level"`
	TakeProfitPct  float64 `yaml:"take_profit_pct"`
	StopLossPct    float64 `yaml:"stop_loss_pct"` // negative, e.g. -25
}

type SystemLimits struct {
	FetchLimit           int `yaml:"fetch_limit"`
	TopAlertsPerCycle    int `yaml:"top_alerts_per_cycle"`
	AlertCooldownSeconds int `yaml:"alert_cooldown_seconds"`
}

func applyStrategyDefaults(s *Strategy) {
	if s.Filters.MinLiquidityUSD == 0 {
		s.Filters.MinLiquidityUSD = 1000
	}
	if s.Filters.MinVolumeH1 == 0 {
		s.Filters.MinVolumeH1 = 500
	}
	if s.Filters.MaxAgeHours == 0 {
		s.Filters.MaxAgeHours = 72
	}
	if s.Weights.VolumeAuthenticity == 0 {
		s.Weights.VolumeAuthenticity = 1.0
	}
	if s.Weights.Liquidity == 0 {
		s.Weights.Liquidity = 1.0
	}
	if s.Weights.WhalePresence == 0 {
		s.Weights.WhalePresence = 1.0
	}
	if s.Weights.DevReputation == 0 {
		s.Weights.DevReputation = 1.0
	}
	if s.Thresholds.RiskAlertLevel == 0 {
		s.Thresholds.RiskAlertLevel = 70
	}
	if s.Thresholds.TakeProfitPct == 0 {
		s.Thresholds.TakeProfitPct = 50
	}
	if s.Thresholds.StopLossPct == 0 {
		s.Thresholds.StopLossPct = -25
	}
	if s.Limits.FetchLimit == 0 {
		s.Limits.FetchLimit = 100
	}
	if s.Limits.TopAlertsPerCycle == 0 {
		s.Limits.TopAlertsPerCycle = 3
	}
	if s.Limits.AlertCooldownSeconds == 0 {
		s.Limits.AlertCooldownSeconds = 300
	}
}

// DefaultStrategy returns a strategy snapshot with every default applied.
func DefaultStrategy() Strategy {
	s := Strategy{Version: 1}
	applyStrategyDefaults(&s)
	return s
}

// Validate rejects strategies the pipeline cannot run with.
func (s *Strategy) Validate() error {
	if s.Filters.MinLiquidityUSD < 0 {
		return fmt.Errorf("strategy: min_liquidity_usd must be non-negative")
	}
	if s.Weights.WhalePresence < 0 {
		return fmt.Errorf("strategy: whale_presence weight must be non-negative")
	}
	if s.Thresholds.RiskAlertLevel <= 0 || s.Thresholds.RiskAlertLevel > 100 {
		return fmt.Errorf("strategy: risk_alert_level must be in (0,100], got %.1f", s.Thresholds.RiskAlertLevel)
	}
	if s.Thresholds.StopLossPct >= 0 {
		return fmt.Errorf("strategy: stop_loss_pct must be negative, got %.1f", s.Thresholds.StopLossPct)
	}
	if s.Limits.FetchLimit < 1 {
		return fmt.Errorf("strategy: fetch_limit must be >= 1")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Store — atomic snapshot swap
// ---------------------------------------------------------------------------

// Store holds the current strategy snapshot. Readers call Current and get a
// complete, self-consistent version without locking; Swap replaces the whole
// snapshot. All mutation is serialized through mu so concurrent overrides
// never lose each other's read-modify-write.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Strategy]
}

// NewStore creates a store seeded with the given strategy.
func NewStore(s Strategy) *Store {
	st := &Store{}
	snap := s
	if snap.Version == 0 {
		snap.Version = 1
	}
	st.current.Store(&snap)
	return st
}

// Current returns the active strategy snapshot.
func (st *Store) Current() *Strategy {
	return st.current.Load()
}

// Swap validates and installs a new strategy snapshot, bumping the version.
// On validation failure the prior snapshot stays active.
func (st *Store) Swap(s Strategy) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.swapLocked(s)
}

// swapLocked installs the snapshot. Caller holds st.mu.
func (st *Store) swapLocked(s Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	prev := st.current.Load()
	s.Version = prev.Version + 1
	st.current.Store(&s)
	return nil
}

// Override updates a single named field from its string representation.
// An unknown field or unparseable value is rejected and the prior snapshot
// is retained untouched. The copy, mutate and install happen under one lock
// so two concurrent overrides cannot erase each other.
func (st *Store) Override(field, value string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := *st.current.Load()

	switch field {
	case "min_liquidity_usd", "min_volume_h1", "max_fdv", "min_fdv", "max_age_hours",
		"risk_alert_level", "take_profit_pct", "stop_loss_pct",
		"volume_authenticity", "liquidity", "whale_presence", "dev_reputation":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("override %s: %q is not numeric", field, value)
		}
		switch field {
		case "min_liquidity_usd":
			next.Filters.MinLiquidityUSD = f
		case "min_volume_h1":
			next.Filters.MinVolumeH1 = f
		case "max_fdv":
			next.Filters.MaxFDV = f
		case "min_fdv":
			next.Filters.MinFDV = f
		case "max_age_hours":
			next.Filters.MaxAgeHours = f
		case "risk_alert_level":
			next.Thresholds.RiskAlertLevel = f
		case "take_profit_pct":
			next.Thresholds.TakeProfitPct = f
		case "stop_loss_pct":
			next.Thresholds.StopLossPct = f
		case "volume_authenticity":
			next.Weights.VolumeAuthenticity = f
		case "liquidity":
			next.Weights.Liquidity = f
		case "whale_presence":
			next.Weights.WhalePresence = f
		case "dev_reputation":
			next.Weights.DevReputation = f
		}
	case "strict_filtering":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("override %s: %q is not a boolean", field, value)
		}
		next.Filters.StrictFiltering = b
	case "fetch_limit", "top_alerts_per_cycle", "alert_cooldown_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("override %s: %q is not an integer", field, value)
		}
		switch field {
		case "fetch_limit":
			next.Limits.FetchLimit = n
		case "top_alerts_per_cycle":
			next.Limits.TopAlertsPerCycle = n
		case "alert_cooldown_seconds":
			next.Limits.AlertCooldownSeconds = n
		}
	default:
		return fmt.Errorf("override: unknown field %q", field)
	}

	return st.swapLocked(next)
}
