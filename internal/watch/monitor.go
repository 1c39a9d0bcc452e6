package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/dexsentry/dexsentry/internal/market"
)

// Severity classifies an escalation for message formatting.
type Severity string

const (
	SeverityCritical Severity = "critical" // adverse move hit the stop level
	SeverityPositive Severity = "positive" // favorable move hit the target level
	SeverityCustom   Severity = "custom"   // raised by a ReasonFunc
)

// Escalation describes a watch that crossed one of its trigger levels.
type Escalation struct {
	Entry     Entry
	Severity  Severity
	ChangePct float64
	Reason    string
}

// ReasonFunc lets callers plug an extra escalation condition. A non-empty
// return escalates the watch with that reason.
type ReasonFunc func(e Entry, snap market.PairSnapshot, changePct float64) string

// MonitorConfig tunes the observation loop. Levels is read on every
// evaluation so runtime strategy overrides apply immediately.
type MonitorConfig struct {
	Interval time.Duration
	Levels   func() (takeProfitPct, stopLossPct float64)
}

// Monitor periodically re-fetches every watched token and escalates entries
// that crossed their trigger levels. Each entry escalates at most once.
type Monitor struct {
	cfg        MonitorConfig
	manager    *Manager
	ingestor   market.Ingestor
	dispatcher market.Dispatcher
	reasonFn   ReasonFunc
}

func NewMonitor(cfg MonitorConfig, manager *Manager, ingestor market.Ingestor, dispatcher market.Dispatcher, reasonFn ReasonFunc) *Monitor {
	return &Monitor{
		cfg:        cfg,
		manager:    manager,
		ingestor:   ingestor,
		dispatcher: dispatcher,
		reasonFn:   reasonFn,
	}
}

// Run blocks until ctx is cancelled, ticking at the configured interval.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", m.cfg.Interval).Msg("Watch monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Watch monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx, time.Now())
		}
	}
}

// Tick performs one observation pass over the watch table.
func (m *Monitor) Tick(ctx context.Context, now time.Time) {
	for _, e := range m.manager.CleanupExpired(now) {
		log.Debug().Str("address", e.Address).Str("symbol", e.Symbol).Msg("Watch window expired")
	}

	for _, e := range m.manager.List() {
		if ctx.Err() != nil {
			return
		}
		m.observe(ctx, e, now)
	}
}

func (m *Monitor) observe(ctx context.Context, e Entry, now time.Time) {
	snap, err := m.ingestor.FetchSnapshot(ctx, e.Address)
	if err != nil {
		log.Warn().Err(err).Str("address", e.Address).Msg("Watch refresh failed")
		return
	}
	if snap == nil {
		// Token no longer listed; keep the entry until its window expires.
		log.Debug().Str("address", e.Address).Msg("Watched token missing from feed")
		return
	}

	changePct := PercentChange(e.EntryPrice, snap.PriceUSD)
	m.manager.RecordObservation(e.Address, changePct, now)

	esc, ok := m.evaluate(e, *snap, changePct)
	if !ok {
		return
	}
	if !m.manager.MarkEscalated(e.Address) {
		return
	}

	log.Warn().
		Str("address", e.Address).
		Str("symbol", e.Symbol).
		Float64("change_pct", changePct).
		Str("severity", string(esc.Severity)).
		Msg("Watch escalated")

	msg := formatEscalation(esc)
	if err := m.dispatcher.Dispatch(ctx, e.Recipient, msg, nil); err != nil {
		log.Error().Err(err).Str("address", e.Address).Msg("Escalation dispatch failed")
	}
}

func (m *Monitor) evaluate(e Entry, snap market.PairSnapshot, changePct float64) (Escalation, bool) {
	takeProfit, stopLoss := m.cfg.Levels()
	if changePct <= stopLoss {
		return Escalation{
			Entry:     e,
			Severity:  SeverityCritical,
			ChangePct: changePct,
			Reason:    fmt.Sprintf("price moved %.1f%% against entry (stop %.1f%%)", changePct, stopLoss),
		}, true
	}
	if takeProfit > 0 && changePct >= takeProfit {
		return Escalation{
			Entry:     e,
			Severity:  SeverityPositive,
			ChangePct: changePct,
			Reason:    fmt.Sprintf("price up %.1f%% from entry (target %.1f%%)", changePct, takeProfit),
		}, true
	}
	if m.reasonFn != nil {
		if reason := m.reasonFn(e, snap, changePct); reason != "" {
			return Escalation{Entry: e, Severity: SeverityCustom, ChangePct: changePct, Reason: reason}, true
		}
	}
	return Escalation{}, false
}

// PercentChange returns the percent move from entry to current. A zero entry
// price yields zero rather than dividing by it.
func PercentChange(entry, current decimal.Decimal) float64 {
	if entry.IsZero() {
		return 0
	}
	diff := current.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100))
	f, _ := diff.Float64()
	return f
}

func formatEscalation(esc Escalation) string {
	var header string
	switch esc.Severity {
	case SeverityCritical:
		header = "🔴 STOP LEVEL HIT"
	case SeverityPositive:
		header = "🟢 TARGET REACHED"
	default:
		header = "⚠️ WATCH ALERT"
	}
	return fmt.Sprintf("%s\n\n%s (%s)\nChange: %+.1f%%\nReason: %s",
		header, esc.Entry.Symbol, shortAddress(esc.Entry.Address), esc.ChangePct, esc.Reason)
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-6:]
}
