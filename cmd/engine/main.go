// Package main is the entry point for the algoTradingAgent engine.
//
// The engine:
//   1. Loads configuration
//   2. Initializes all components (broker, storage, calendar, market data, risk)
//   3. Reads AI outputs (composite scores, universe) from the file-based contract
//   4. Drives one priority-pyramid cycle through the orchestrator
//   5. Logs every action for auditability
//
// Modes:
//   - "nightly":   Run nightly jobs (candle sync, price-cache cleanup)
//   - "market":    Run exactly one trading cycle (exits, reconciliation, scans, entries)
//   - "status":    Print current system and market status
//   - "analytics": Print a performance report over closed trades
//
// Exit codes (spec.md §6): 0 normal, 1 lock contention, 2 config error, 3 internal failure.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/analytics"
	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/config"
	"github.com/nitinkhare/algoTradingAgent/internal/market"
	"github.com/nitinkhare/algoTradingAgent/internal/orchestrator"
	"github.com/nitinkhare/algoTradingAgent/internal/risk"
	"github.com/nitinkhare/algoTradingAgent/internal/scheduler"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to configuration file")
	mode := flag.String("mode", "status", "run mode: nightly | market | status | analytics")
	confirmLive := flag.Bool("confirm-live", false, "required safety flag to run in live trading mode")
	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("failed to load config: %v", err)
		os.Exit(2)
	}
	logger.Printf("config loaded: broker=%s mode=%s capital=%.2f", cfg.ActiveBroker, cfg.TradingMode, cfg.Capital)

	if cfg.TradingMode == config.ModeLive {
		requireLiveConfirmation(*confirmLive, logger)
	} else {
		logger.Println("PAPER MODE — simulated orders only, no real money at risk")
	}

	cal, err := market.NewCalendar(cfg.MarketCalendarPath)
	if err != nil {
		logger.Printf("failed to load market calendar: %v", err)
		os.Exit(2)
	}

	activeBroker, err := buildBroker(cfg, logger)
	if err != nil {
		logger.Printf("failed to initialize broker: %v", err)
		os.Exit(2)
	}

	ctx := context.Background()
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to connect to database: %v", err)
		os.Exit(2)
	}
	defer store.Close()

	quotes, err := buildQuoteProvider(cfg)
	if err != nil {
		logger.Printf("failed to initialize market data quote provider: %v", err)
		os.Exit(2)
	}

	deps, err := orchestrator.NewDependencies(cfg, store, activeBroker, cal, quotes)
	if err != nil {
		logger.Printf("failed to wire engine dependencies: %v", err)
		os.Exit(2)
	}

	cb := risk.NewCircuitBreaker(cfg.Risk.CircuitBreaker, logger)
	watcher := config.NewConfigWatcher(*configPath, cfg, logger)
	watcher.OnChange(func(old, new *config.Config) {
		cb.UpdateConfig(new.Risk.CircuitBreaker)
		logger.Printf("[hot-reload] circuit breaker config updated; other risk parameters require a restart to take effect")
	})
	if watchErr := watcher.Start(); watchErr != nil {
		logger.Printf("WARNING: config watcher failed to start: %v", watchErr)
	}
	defer watcher.Stop()

	switch *mode {
	case "status":
		runStatus(ctx, logger, cal, activeBroker, cfg)

	case "nightly":
		sched := registerNightlyJobs(cfg, store, quotes, cal, logger)
		if err := sched.RunNightlyJobs(ctx); err != nil {
			logger.Printf("nightly jobs failed: %v", err)
			os.Exit(3)
		}

	case "market":
		var whServer *webhook.Server
		if cfg.Webhook.Enabled {
			whServer = startWebhookServer(cfg, store, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = whServer.Shutdown(shutdownCtx)
			}()
		}

		outcome := runOneCycle(ctx, deps, cfg, cb, logger)
		os.Exit(outcome)

	case "analytics":
		runAnalytics(ctx, store, cfg, logger)

	default:
		logger.Printf("unknown mode: %s (expected: nightly, market, status, analytics)", *mode)
		os.Exit(2)
	}
}

// liveConfirmed reports whether both halves of the two-factor live-trading
// confirmation are present.
func liveConfirmed(confirmLive, envConfirmed bool) bool {
	return confirmLive && envConfirmed
}

// requireLiveConfirmation enforces the two-factor live-trading safety gate:
// both --confirm-live AND ALGO_LIVE_CONFIRMED=true must be present before the
// engine will place real orders.
func requireLiveConfirmation(confirmLive bool, logger *log.Logger) {
	envConfirmed := os.Getenv("ALGO_LIVE_CONFIRMED") == "true"
	if liveConfirmed(confirmLive, envConfirmed) {
		logger.Println("LIVE MODE ACTIVE — real orders will be placed on the exchange")
		return
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "  ╔═══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "  ║                    ⚠  LIVE MODE BLOCKED  ⚠                ║")
	fmt.Fprintln(os.Stderr, "  ╠═══════════════════════════════════════════════════════════╣")
	fmt.Fprintln(os.Stderr, "  ║  Live trading requires TWO explicit confirmations:       ║")
	fmt.Fprintln(os.Stderr, "  ║                                                           ║")
	fmt.Fprintln(os.Stderr, "  ║  1. CLI flag:   --confirm-live                            ║")
	fmt.Fprintln(os.Stderr, "  ║  2. Env var:    ALGO_LIVE_CONFIRMED=true                  ║")
	fmt.Fprintln(os.Stderr, "  ║                                                           ║")
	fmt.Fprintln(os.Stderr, "  ║  Example:                                                 ║")
	fmt.Fprintln(os.Stderr, "  ║  ALGO_LIVE_CONFIRMED=true go run ./cmd/engine \\            ║")
	fmt.Fprintln(os.Stderr, "  ║    --mode market --confirm-live                           ║")
	fmt.Fprintln(os.Stderr, "  ╚═══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr, "")
	if !confirmLive {
		fmt.Fprintln(os.Stderr, "  MISSING: --confirm-live flag")
	}
	if !envConfirmed {
		fmt.Fprintln(os.Stderr, "  MISSING: ALGO_LIVE_CONFIRMED=true environment variable")
	}
	fmt.Fprintln(os.Stderr, "")
	os.Exit(2)
}

// buildBroker constructs the paper or live broker per cfg.TradingMode.
func buildBroker(cfg *config.Config, logger *log.Logger) (broker.Broker, error) {
	if cfg.TradingMode == config.ModePaper {
		logger.Println("using PAPER broker")
		return broker.NewPaperBroker(cfg.Capital), nil
	}

	brokerCfg, ok := cfg.BrokerConfig[cfg.ActiveBroker]
	if !ok {
		return nil, fmt.Errorf("no broker config found for %q", cfg.ActiveBroker)
	}
	b, err := broker.NewAlpacaBroker(brokerCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize broker %q: %w", cfg.ActiveBroker, err)
	}
	logger.Printf("using LIVE broker: %s", cfg.ActiveBroker)
	return b, nil
}

// buildQuoteProvider constructs the Alpaca market-data quote provider from
// the same broker config block the trading broker uses (key/secret are
// shared across Alpaca's trading and market-data APIs).
func buildQuoteProvider(cfg *config.Config) (market.QuoteProvider, error) {
	raw, ok := cfg.BrokerConfig["alpaca"]
	if !ok {
		return nil, fmt.Errorf("no alpaca broker config found for market data quotes")
	}
	var alpacaCfg struct {
		KeyID     string `json:"key_id"`
		SecretKey string `json:"secret_key"`
	}
	if err := json.Unmarshal(raw, &alpacaCfg); err != nil {
		return nil, fmt.Errorf("parse alpaca config: %w", err)
	}
	return market.NewAlpacaQuoteProvider(alpacaCfg.KeyID, alpacaCfg.SecretKey, ""), nil
}

// runStatus prints the current state of the system.
func runStatus(ctx context.Context, logger *log.Logger, cal *market.Calendar, b broker.Broker, cfg *config.Config) {
	now := time.Now()
	logger.Println("=== System Status ===")
	logger.Printf("Time: %s", now.In(market.NY).Format("2006-01-02 15:04:05"))
	logger.Printf("Trading day: %v", cal.IsTradingDay(now))
	logger.Printf("Market open: %v", cal.IsMarketOpen(now))
	logger.Printf("Next session in: %v", cal.TimeUntilNextSession(now).Round(time.Minute))
	logger.Printf("Mode: %s", cfg.TradingMode)
	logger.Printf("Broker: %s", cfg.ActiveBroker)

	if reason := cal.HolidayReason(now); reason != "" {
		logger.Printf("Holiday: %s", reason)
	}

	account, err := b.GetAccount(ctx)
	if err != nil {
		logger.Printf("Account: error - %v", err)
	} else {
		logger.Printf("Cash: %.2f", account.Cash)
		logger.Printf("Buying power: %.2f", account.BuyingPower)
		logger.Printf("Portfolio value: %.2f", account.PortfolioValue)
	}
}

// runOneCycle drives exactly one orchestrator tick and maps its outcome to
// the CLI exit-code contract. Designed to be invoked periodically by an
// external scheduler (cron/systemd timer); the cross-process file lock
// (internal/orchestrator/lock.go) is what makes back-to-back invocations
// safe if one overruns into the next.
func runOneCycle(ctx context.Context, deps *orchestrator.Dependencies, cfg *config.Config, cb *risk.CircuitBreaker, logger *log.Logger) int {
	now := time.Now()

	universe, err := orchestrator.LoadUniverse(cfg.Paths.AIOutputDir)
	if err != nil {
		logger.Printf("load universe: %v", err)
		return 3
	}
	scores, err := orchestrator.LoadScores(cfg.Paths.AIOutputDir)
	if err != nil {
		logger.Printf("load scores: %v", err)
		return 3
	}

	result, err := deps.RunCycle(ctx, now, universe, scores)
	if err != nil {
		cb.RecordFailure(err.Error())
		logger.Printf("cycle failed: %v", err)
		if cb.IsTripped() {
			deps.Sentinel.EngageKillSwitch("circuit_breaker: " + cb.TripReason())
			logger.Printf("circuit breaker tripped — kill switch engaged: %s", cb.TripReason())
		}
		return 3
	}
	cb.RecordSuccess()

	logger.Printf("cycle outcome=%s health=%s exits=%d resolved=%d new_entries=%d",
		result.Outcome, result.Health.State, len(result.ExitOutcomes), len(result.Resolved), len(result.NewEntries))

	switch result.Outcome {
	case orchestrator.OutcomeLockHeld:
		logger.Println("another cycle already holds the lock, skipping")
		return 1
	case orchestrator.OutcomeMarketClosed:
		logger.Println("market closed, nothing to do")
		return 0
	case orchestrator.OutcomeRedHealth:
		logger.Println("reconciliation is RED — admission skipped this cycle, human review required")
		return 0
	case orchestrator.OutcomeNoTrade:
		logger.Println("sentinel blocked new trading this cycle")
		return 0
	default:
		return 0
	}
}

// registerNightlyJobs wires the candle-sync and price-cache maintenance
// jobs that prepare the next trading day.
func registerNightlyJobs(cfg *config.Config, store storage.Store, quotes market.QuoteProvider, cal *market.Calendar, logger *log.Logger) *scheduler.Scheduler {
	sched := scheduler.New(cal, logger)

	sched.RegisterJob(scheduler.Job{
		Name: "sync_market_data",
		Type: scheduler.JobTypeNightly,
		RunFunc: func(ctx context.Context) error {
			raw, ok := cfg.BrokerConfig["alpaca"]
			if !ok {
				return fmt.Errorf("no alpaca config found in broker_config")
			}
			var dataCfg market.AlpacaDataConfig
			if err := json.Unmarshal(raw, &dataCfg); err != nil {
				return fmt.Errorf("parse alpaca data config: %w", err)
			}

			provider, err := market.NewAlpacaDataProvider(dataCfg)
			if err != nil {
				return fmt.Errorf("create alpaca data provider: %w", err)
			}
			dm := market.NewDataManager(provider, store)

			universe, err := orchestrator.LoadUniverse(cfg.Paths.AIOutputDir)
			if err != nil {
				return fmt.Errorf("load universe: %w", err)
			}
			symbols := append(append([]string{}, universe...), market.Benchmarks...)

			logger.Printf("syncing daily candles for %d symbols...", len(symbols))
			if err := dm.SyncCandles(ctx, symbols, time.Now()); err != nil {
				return fmt.Errorf("sync candles: %w", err)
			}
			logger.Println("candle sync complete")
			return nil
		},
	})

	sched.RegisterJob(scheduler.Job{
		Name: "clean_stale_price_cache",
		Type: scheduler.JobTypeNightly,
		RunFunc: func(ctx context.Context) error {
			n, err := store.CleanStalePriceCache(ctx, 24*time.Hour)
			if err != nil {
				return fmt.Errorf("clean stale price cache: %w", err)
			}
			logger.Printf("pruned %d stale price cache entries", n)
			return nil
		},
	})

	return sched
}

// startWebhookServer wires the Alpaca trade-update relay server so fills and
// rejections observed out-of-band get logged even between cycle ticks.
func startWebhookServer(cfg *config.Config, store storage.Store, logger *log.Logger) *webhook.Server {
	whCfg := webhook.Config{
		Port:    cfg.Webhook.Port,
		Path:    cfg.Webhook.Path,
		Enabled: cfg.Webhook.Enabled,
	}
	whServer := webhook.NewServer(whCfg, logger)
	whServer.OnOrderUpdate(func(u webhook.OrderUpdate) {
		logger.Printf("[webhook] order update: %s %s status=%s filled=%d/%d price=%.2f",
			u.OrderID, u.Symbol, u.Status, u.FilledQty, u.Quantity, u.AveragePrice)
	})
	if err := whServer.Start(); err != nil {
		logger.Printf("WARNING: failed to start webhook server: %v", err)
	}
	return whServer
}

// runAnalytics prints a performance report over trades closed in the last year.
func runAnalytics(ctx context.Context, store storage.Store, cfg *config.Config, logger *log.Logger) {
	to := time.Now()
	from := to.AddDate(-1, 0, 0)

	trades, err := store.GetTradeHistory(ctx, from, to)
	if err != nil {
		logger.Printf("failed to load trade history: %v", err)
		os.Exit(3)
	}

	report := analytics.Analyze(trades, cfg.Capital)
	fmt.Println(analytics.FormatReport(report))
}
