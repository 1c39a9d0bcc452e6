package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/engine"
	"github.com/dexsentry/dexsentry/internal/filter"
	"github.com/dexsentry/dexsentry/internal/market"
	"github.com/dexsentry/dexsentry/internal/rank"
	"github.com/dexsentry/dexsentry/internal/safemode"
	"github.com/dexsentry/dexsentry/internal/watch"
)

const (
	// Candidates above this rug probability never alert regardless of rank.
	maxAlertRugProbability = 50.0

	// Consecutive failed cycles before the operator channel is notified.
	failureEscalationThreshold = 5

	maxCycleBackoff = 5 * time.Minute
)

// CycleReport summarizes one pipeline pass for logging and the status API.
type CycleReport struct {
	ID        uuid.UUID     `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Fetched   int           `json:"fetched"`
	Filtered  int           `json:"filtered"` // dropped by hard filters
	Scored    int           `json:"scored"`
	Gated     int           `json:"gated"` // dropped by risk or rug gates
	Ranked    int           `json:"ranked"`
	Alerted   int           `json:"alerted"`
	Deduped   int           `json:"deduped"`
}

// Orchestrator drives the fetch, filter, score, rank and alert stages on a
// fixed interval, skipping the work stages while safe mode is active.
type Orchestrator struct {
	chain      string
	interval   time.Duration
	strategies *config.Store
	ingestor   market.Ingestor
	dispatcher market.Dispatcher
	stage      *filter.Stage
	deduper    *rank.Deduper
	watches    *watch.Manager
	guard      *safemode.Controller

	signalChat string
	adminChat  string

	mu                  sync.RWMutex
	lastReport          CycleReport
	cyclesRun           atomic.Int64
	cyclesFailed        atomic.Int64
	alertsSent          atomic.Int64
	consecutiveFailures int
	failureEscalated    bool
}

type Deps struct {
	Chain      string
	Interval   time.Duration
	Strategies *config.Store
	Ingestor   market.Ingestor
	Dispatcher market.Dispatcher
	Deduper    *rank.Deduper
	Watches    *watch.Manager
	Guard      *safemode.Controller
	SignalChat string
	AdminChat  string
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		chain:      d.Chain,
		interval:   d.Interval,
		strategies: d.Strategies,
		ingestor:   d.Ingestor,
		dispatcher: d.Dispatcher,
		stage:      filter.NewStage(d.Chain),
		deduper:    d.Deduper,
		watches:    d.Watches,
		guard:      d.Guard,
		signalChat: d.SignalChat,
		adminChat:  d.AdminChat,
	}
}

// Run blocks until ctx is cancelled. While safe mode is active no market
// data is fetched; the loop keeps its normal cadence so recovery is noticed
// promptly.
func (o *Orchestrator) Run(ctx context.Context) {
	log.Info().Dur("interval", o.interval).Str("chain", o.chain).Msg("Pipeline started")
	for {
		delay := o.interval
		if o.guard != nil && o.guard.Active() {
			log.Warn().Dur("next_pass_in", delay).Msg("Safe mode active, skipping cycle")
		} else {
			if _, err := o.RunCycle(ctx, time.Now()); err != nil {
				delay = o.handleCycleFailure(ctx, err)
			} else {
				o.handleCycleSuccess()
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Pipeline stopped")
			return
		case <-time.After(delay):
		}
	}
}

// RunCycle executes one full pass and returns its report.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) (CycleReport, error) {
	strat := o.strategies.Current()
	report := CycleReport{ID: uuid.New(), StartedAt: now}

	snaps, err := o.ingestor.FetchSnapshots(ctx, o.chain, strat.Limits.FetchLimit)
	if err != nil {
		o.cyclesFailed.Add(1)
		return report, fmt.Errorf("fetch snapshots: %w", err)
	}
	report.Fetched = len(snaps)

	buffer := rank.NewBuffer()
	for _, snap := range snaps {
		res := o.stage.Apply(snap, strat, now)
		if !res.Passed() {
			report.Filtered++
			log.Debug().
				Str("address", snap.TokenAddress).
				Str("rule", string(res.Rule)).
				Msg("Snapshot dropped by filter")
			continue
		}

		cand := engine.Score(snap, strat)
		report.Scored++

		if cand.Risk.Score >= strat.Thresholds.RiskAlertLevel {
			report.Gated++
			continue
		}
		if cand.RugProb >= maxAlertRugProbability {
			report.Gated++
			continue
		}
		buffer.Add(cand)
	}

	top := buffer.TopN(strat.Limits.TopAlertsPerCycle)
	report.Ranked = len(top)

	cooldown := time.Duration(strat.Limits.AlertCooldownSeconds) * time.Second
	for _, cand := range top {
		if !o.deduper.ShouldAlert(cand.Snapshot.TokenAddress, now, cooldown) {
			report.Deduped++
			continue
		}
		if err := o.alert(ctx, cand, now); err != nil {
			log.Error().Err(err).
				Str("address", cand.Snapshot.TokenAddress).
				Msg("Alert dispatch failed")
			continue
		}
		report.Alerted++
		o.alertsSent.Add(1)
	}

	report.Duration = time.Since(now)
	o.cyclesRun.Add(1)
	o.mu.Lock()
	o.lastReport = report
	o.mu.Unlock()

	log.Info().
		Str("cycle_id", report.ID.String()).
		Int("fetched", report.Fetched).
		Int("filtered", report.Filtered).
		Int("scored", report.Scored).
		Int("gated", report.Gated).
		Int("alerted", report.Alerted).
		Dur("duration", report.Duration).
		Msg("Cycle complete")
	return report, nil
}

// alert sends the signal and puts the token on the watch list.
func (o *Orchestrator) alert(ctx context.Context, cand engine.ScoredCandidate, now time.Time) error {
	snap := cand.Snapshot
	msg := FormatAlert(cand)
	actions := []market.Action{
		{Label: "📊 Chart", Data: "chart:" + snap.PairAddress},
		{Label: "🛑 Unwatch", Data: "unwatch:" + snap.TokenAddress},
	}
	if err := o.dispatcher.Dispatch(ctx, o.signalChat, msg, actions); err != nil {
		return err
	}
	if o.watches != nil {
		if err := o.watches.Add(snap.TokenAddress, snap.BaseSymbol, snap.ChainID, o.signalChat, snap.PriceUSD, now); err != nil {
			log.Warn().Err(err).Str("address", snap.TokenAddress).Msg("Failed to persist watch entry")
		}
	}
	return nil
}

func (o *Orchestrator) handleCycleFailure(ctx context.Context, err error) time.Duration {
	o.mu.Lock()
	o.consecutiveFailures++
	failures := o.consecutiveFailures
	escalate := failures >= failureEscalationThreshold && !o.failureEscalated
	if escalate {
		o.failureEscalated = true
	}
	o.mu.Unlock()

	log.Error().Err(err).Int("consecutive_failures", failures).Msg("Cycle failed")

	if escalate && o.adminChat != "" {
		msg := fmt.Sprintf("🚨 Pipeline degraded: %d consecutive cycle failures\nLast error: %v", failures, err)
		if dispatchErr := o.dispatcher.Dispatch(ctx, o.adminChat, msg, nil); dispatchErr != nil {
			log.Error().Err(dispatchErr).Msg("Operator escalation dispatch failed")
		}
	}

	// Exponential backoff capped at maxCycleBackoff.
	backoff := o.interval
	for i := 1; i < failures && backoff < maxCycleBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxCycleBackoff {
		backoff = maxCycleBackoff
	}
	return backoff
}

func (o *Orchestrator) handleCycleSuccess() {
	o.mu.Lock()
	if o.failureEscalated {
		log.Info().Msg("Pipeline recovered after failures")
	}
	o.consecutiveFailures = 0
	o.failureEscalated = false
	o.mu.Unlock()
}

// Stats reports lifetime pipeline counters and the most recent report.
type Stats struct {
	CyclesRun    int64       `json:"cycles_run"`
	CyclesFailed int64       `json:"cycles_failed"`
	AlertsSent   int64       `json:"alerts_sent"`
	LastReport   CycleReport `json:"last_report"`
}

func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	last := o.lastReport
	o.mu.RUnlock()
	return Stats{
		CyclesRun:    o.cyclesRun.Load(),
		CyclesFailed: o.cyclesFailed.Load(),
		AlertsSent:   o.alertsSent.Load(),
		LastReport:   last,
	}
}
