package safemode

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ---------------------------------------------------------------------------
// Circuit breaker for the pipeline — hysteretic safe-mode state machine
// ---------------------------------------------------------------------------

// HealthSample is one observation of process health. Produced by the health
// sampler; consumed read-only here.
type HealthSample struct {
	CPUPct       float64   `json:"cpu_pct"`
	MemPct       float64   `json:"mem_pct"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	ErrorRate    float64   `json:"error_rate"`
	ObservedAt   time.Time `json:"observed_at"`
}

// State is the controller's operating state.
type State string

const (
	StateNormal   State = "normal"
	StateSafeMode State = "safe_mode"
)

// Transition is emitted once per state change, never per cycle.
type Transition struct {
	From   State        `json:"from"`
	To     State        `json:"to"`
	Reason string       `json:"reason"`
	Sample HealthSample `json:"sample"`
	At     time.Time    `json:"at"`
}

// Config sets the stress thresholds and the hysteresis margin. Exit from
// safe mode happens only below threshold minus margin, never at the entry
// threshold itself, to avoid flapping.
type Config struct {
	CPUThresholdPct     float64
	MemThresholdPct     float64
	HysteresisMarginPct float64
}

// Controller consumes health samples and gates the pipeline.
type Controller struct {
	config Config

	mu             sync.RWMutex
	state          State
	lastTransition time.Time
	lastSample     HealthSample

	transitionCh chan Transition
}

// New creates a controller in the Normal state.
func New(config Config) *Controller {
	return &Controller{
		config:       config,
		state:        StateNormal,
		transitionCh: make(chan Transition, 16),
	}
}

// Observe feeds one health sample through the state machine. At most one
// transition happens per call.
func (c *Controller) Observe(sample HealthSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSample = sample

	switch c.state {
	case StateNormal:
		if reason := c.stressReason(sample); reason != "" {
			c.transition(StateSafeMode, reason, sample)
		}
	case StateSafeMode:
		if c.recovered(sample) {
			c.transition(StateNormal, "metrics below recovery thresholds", sample)
		}
	}
}

// stressReason returns a non-empty reason when any metric exceeds its entry
// threshold.
func (c *Controller) stressReason(s HealthSample) string {
	if s.CPUPct > c.config.CPUThresholdPct {
		return fmt.Sprintf("cpu %.1f%% > %.1f%%", s.CPUPct, c.config.CPUThresholdPct)
	}
	if s.MemPct > c.config.MemThresholdPct {
		return fmt.Sprintf("mem %.1f%% > %.1f%%", s.MemPct, c.config.MemThresholdPct)
	}
	return ""
}

// recovered requires every metric strictly below threshold minus the
// hysteresis margin.
func (c *Controller) recovered(s HealthSample) bool {
	return s.CPUPct < c.config.CPUThresholdPct-c.config.HysteresisMarginPct &&
		s.MemPct < c.config.MemThresholdPct-c.config.HysteresisMarginPct
}

// transition records the state change and emits the one-time notification.
// Caller holds c.mu.
func (c *Controller) transition(to State, reason string, sample HealthSample) {
	from := c.state
	c.state = to
	c.lastTransition = time.Now()

	evt := Transition{From: from, To: to, Reason: reason, Sample: sample, At: c.lastTransition}

	if to == StateSafeMode {
		log.Warn().Str("reason", reason).Msg("safemode: ACTIVATED - pipeline work suspended")
	} else {
		log.Info().Str("reason", reason).Msg("safemode: recovered - pipeline work resumed")
	}

	// Non-blocking send; drop if the channel is full.
	select {
	case c.transitionCh <- evt:
	default:
	}
}

// Transitions returns the read-only channel of state changes.
func (c *Controller) Transitions() <-chan Transition {
	return c.transitionCh
}

// Active reports whether safe mode is currently engaged.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateSafeMode
}

// Status is a snapshot of the controller for the status surface.
type Status struct {
	State          State        `json:"state"`
	Active         bool         `json:"active"`
	LastTransition time.Time    `json:"last_transition"`
	LastSample     HealthSample `json:"last_sample"`
}

// CurrentStatus returns the controller snapshot.
func (c *Controller) CurrentStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:          c.state,
		Active:         c.state == StateSafeMode,
		LastTransition: c.lastTransition,
		LastSample:     c.lastSample,
	}
}
