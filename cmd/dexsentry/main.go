package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dexsentry/dexsentry/internal/adapters/console"
	"github.com/dexsentry/dexsentry/internal/adapters/dexscreener"
	"github.com/dexsentry/dexsentry/internal/adapters/telegram"
	"github.com/dexsentry/dexsentry/internal/config"
	"github.com/dexsentry/dexsentry/internal/health"
	"github.com/dexsentry/dexsentry/internal/market"
	"github.com/dexsentry/dexsentry/internal/pipeline"
	"github.com/dexsentry/dexsentry/internal/rank"
	"github.com/dexsentry/dexsentry/internal/safemode"
	"github.com/dexsentry/dexsentry/internal/watch"
)

const dedupeRetention = 24 * time.Hour

func main() {
	// 1. Parse flags.
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single pipeline cycle and exit")
	flag.Parse()

	// 2. Load configuration.
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// 3. Setup logging.
	setupLogging(cfg.General)

	log.Info().Msg("=============================================")
	log.Info().Msg("DexSentry - Starting")
	log.Info().Msg("INGEST -> FILTER -> SCORE -> RANK -> ALERT")
	log.Info().Msg("=============================================")

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Str("chain", cfg.Ingest.Chain).
		Int("poll_interval_s", cfg.Ingest.PollIntervalSeconds).
		Float64("min_liquidity", cfg.Strategy.Filters.MinLiquidityUSD).
		Float64("risk_alert_level", cfg.Strategy.Thresholds.RiskAlertLevel).
		Int("top_per_cycle", cfg.Strategy.Limits.TopAlertsPerCycle).
		Msg("Configuration loaded")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}

	// 4. Strategy store (live-reloadable tunables).
	strategies := config.NewStore(cfg.Strategy)

	// 5. Health sampler + safe-mode controller.
	sampler := health.NewSampler()
	guard := safemode.New(safemode.Config{
		CPUThresholdPct:     cfg.SafeMode.CPUThresholdPct,
		MemThresholdPct:     cfg.SafeMode.MemThresholdPct,
		HysteresisMarginPct: cfg.SafeMode.HysteresisMarginPct,
	})

	// 6. Ingestor + dispatcher.
	ingestor := dexscreener.New(cfg.Ingest, sampler)

	var dispatcher market.Dispatcher
	if cfg.Telegram.BotToken != "" {
		dispatcher = telegram.New(cfg.Telegram)
		log.Info().Msg("Dispatcher: Telegram")
	} else {
		dispatcher = console.New()
		log.Warn().Msg("Dispatcher: console (no bot token configured)")
	}

	// 7. Watch store + manager + monitor.
	watchStore, err := watch.OpenStore(cfg.Watch.DataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Watch.DataDir).Msg("Failed to open watch store")
	}
	defer watchStore.Close()

	watchTTL := time.Duration(cfg.Watch.ExpiryMinutes) * time.Minute
	watches, err := watch.NewManager(watchStore, cfg.Watch.MaxConcurrent, watchTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to restore watch list")
	}

	monitor := watch.NewMonitor(watch.MonitorConfig{
		Interval: time.Duration(cfg.Watch.UpdateIntervalSeconds) * time.Second,
		Levels: func() (float64, float64) {
			t := strategies.Current().Thresholds
			return t.TakeProfitPct, t.StopLossPct
		},
	}, watches, ingestor, dispatcher, nil)

	// 8. Pipeline.
	deduper := rank.NewDeduper()
	orch := pipeline.New(pipeline.Deps{
		Chain:      cfg.Ingest.Chain,
		Interval:   time.Duration(cfg.Ingest.PollIntervalSeconds) * time.Second,
		Strategies: strategies,
		Ingestor:   ingestor,
		Dispatcher: dispatcher,
		Deduper:    deduper,
		Watches:    watches,
		Guard:      guard,
		SignalChat: cfg.Telegram.SignalChat,
		AdminChat:  cfg.Telegram.AdminChat,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		report, err := orch.RunCycle(ctx, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("Cycle failed")
		}
		json.NewEncoder(os.Stdout).Encode(report)
		return
	}

	// 9. Signal handling.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	notifyAdmin(ctx, dispatcher, cfg.Telegram.AdminChat,
		fmt.Sprintf("🟢 DexSentry started\nInstance: %s\nChain: %s", cfg.General.InstanceID, cfg.Ingest.Chain))

	// 10. Start services.
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	// Health sampling loop feeding the safe-mode controller.
	if cfg.SafeMode.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(time.Duration(cfg.SafeMode.CheckIntervalSeconds) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					guard.Observe(sampler.Sample(ctx))
				}
			}
		}()

		// One admin notification per safe-mode transition.
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case tr := <-guard.Transitions():
					var msg string
					if tr.To == safemode.StateSafeMode {
						msg = fmt.Sprintf("🛡 SAFE MODE ENTERED\nReason: %s\nScoring and alerting suspended until recovery.", tr.Reason)
					} else {
						msg = "✅ Safe mode cleared, scoring and alerting resumed"
					}
					notifyAdmin(ctx, dispatcher, cfg.Telegram.AdminChat, msg)
				}
			}
		}()
	}

	// Dedupe table pruning.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruned := deduper.Prune(time.Now(), dedupeRetention)
				if pruned > 0 {
					log.Debug().Int("pruned", pruned).Msg("Dedupe table pruned")
				}
			}
		}
	}()

	// HTTP health/stats/control endpoint.
	wg.Add(1)
	go func() {
		defer wg.Done()
		runStatusServer(ctx, cfg, orch, ingestor, sampler, watches, guard, strategies, deduper)
	}()

	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	notifyAdmin(shutdownCtx, dispatcher, cfg.Telegram.AdminChat,
		fmt.Sprintf("🔻 DexSentry stopped\nInstance: %s", cfg.General.InstanceID))
	shutdownCancel()

	log.Info().Msg("DexSentry shut down cleanly")
}

// loadConfig reads the YAML file, falling back to built-in defaults when no
// file exists at the given path.
func loadConfig(path string) (*config.Config, error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		fmt.Fprintf(os.Stderr, "config %s not found, using defaults\n", path)
		return config.Default(), nil
	}
	return config.Load(path)
}

func notifyAdmin(ctx context.Context, d market.Dispatcher, chat, msg string) {
	if chat == "" {
		return
	}
	if err := d.Dispatch(ctx, chat, msg, nil); err != nil {
		log.Warn().Err(err).Msg("Admin notification failed")
	}
}

func runStatusServer(
	ctx context.Context,
	cfg *config.Config,
	orch *pipeline.Orchestrator,
	ingestor market.Ingestor,
	sampler *health.Sampler,
	watches *watch.Manager,
	guard *safemode.Controller,
	strategies *config.Store,
	deduper *rank.Deduper,
) {
	mux := http.NewServeMux()

	// ── Health ──
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"safe_mode": guard.Active(),
		})
	})

	// ── Stats ──
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"pipeline":     orch.Stats(),
			"health":       sampler.Stats(),
			"watches":      watches.Stats(),
			"safe_mode":    guard.CurrentStatus(),
			"dedupe_size":  deduper.Size(),
			"strategy_ver": strategies.Current().Version,
			"instance_id":  cfg.General.InstanceID,
		})
	})

	// ── Watch list ──
	mux.HandleFunc("/watches", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"summary": watches.Summarize(),
			"entries": watches.List(),
		})
	})

	// ── Safe mode ──
	mux.HandleFunc("/safemode", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(guard.CurrentStatus())
	})

	// ── Control Plane ──
	mux.HandleFunc("/control/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		address := r.URL.Query().Get("address")
		if address == "" {
			http.Error(w, "address required", http.StatusBadRequest)
			return
		}
		snap, err := ingestor.FetchSnapshot(r.Context(), address)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		if snap == nil {
			http.Error(w, "token not found", http.StatusNotFound)
			return
		}
		if err := watches.Add(snap.TokenAddress, snap.BaseSymbol, snap.ChainID, cfg.Telegram.SignalChat, snap.PriceUSD, time.Now()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Info().Str("address", address).Msg("[CONTROL] Watch added")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"watching","entry_price":%q}`, snap.PriceUSD.String())
	})

	mux.HandleFunc("/control/unwatch", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		address := r.URL.Query().Get("address")
		if address == "" {
			http.Error(w, "address required", http.StatusBadRequest)
			return
		}
		if err := watches.Remove(address); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		log.Info().Str("address", address).Msg("[CONTROL] Watch removed")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"removed"}`)
	})

	mux.HandleFunc("/control/override", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		field := r.URL.Query().Get("field")
		value := r.URL.Query().Get("value")
		if err := strategies.Override(field, value); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Warn().Str("field", field).Str("value", value).
			Int64("version", strategies.Current().Version).
			Msg("[CONTROL] Strategy override applied")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "applied",
			"version": strategies.Current().Version,
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Status.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Status HTTP server started (health + stats + control)")

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	if srvErr := server.ListenAndServe(); srvErr != nil && srvErr != http.ErrServerClosed {
		log.Error().Err(srvErr).Msg("HTTP server error")
	}
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "dexsentry").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "dexsentry").
			Str("instance", general.InstanceID).Logger()
	}
}
