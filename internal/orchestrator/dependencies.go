package orchestrator

import (
	"context"
	"time"

	"github.com/nitinkhare/algoTradingAgent/internal/broker"
	"github.com/nitinkhare/algoTradingAgent/internal/config"
	"github.com/nitinkhare/algoTradingAgent/internal/execution"
	"github.com/nitinkhare/algoTradingAgent/internal/market"
	"github.com/nitinkhare/algoTradingAgent/internal/risk"
	"github.com/nitinkhare/algoTradingAgent/internal/sentinel"
	"github.com/nitinkhare/algoTradingAgent/internal/signal"
	"github.com/nitinkhare/algoTradingAgent/internal/storage"
	"github.com/nitinkhare/algoTradingAgent/internal/strategy"
)

// Dependencies is the single, statically-wired bundle of every component
// the cycle orchestrator drives. cmd/engine/main.go constructs exactly one
// of these at startup; nothing below is re-created per cycle.
type Dependencies struct {
	Config *config.Config
	Store  storage.Store
	Broker broker.Broker

	Calendar *market.Calendar
	Quotes   market.QuoteProvider
	Cache    *market.PriceCache
	Validator *market.Validator
	Regime   *market.RegimeDetector

	Cooldown *signal.CooldownMap
	Engine   *signal.Engine
	Seeder   *signal.Seeder

	IgnoreList *risk.IgnoreList
	Limits     *risk.DailyLimits
	Sizer      *risk.PositionSizer
	Gate       *risk.Gate

	Executor   *execution.Executor
	Monitor    *execution.Monitor
	Reconciler *execution.Reconciler

	Sentinel *sentinel.Sentinel
	Lock     *FileLock
}

// NewDependencies wires every component from its already-constructed
// sub-parts. Construction order mirrors the component's own dependency
// chain: storage and broker first, then market data, then risk, then
// execution, then the sentinel (which needs the reconciler), then the
// lock.
func NewDependencies(cfg *config.Config, store storage.Store, b broker.Broker, calendar *market.Calendar, quotes market.QuoteProvider) (*Dependencies, error) {
	cache := market.NewPriceCache(store, quotes)
	validator := market.NewValidator(cache, store)
	regime := market.NewRegimeDetector(store)

	cooldown := signal.NewCooldownMap(store)
	engine := signal.New(store, cooldown)
	seeder := signal.NewSeeder(engine)

	ignoreList := risk.NewIgnoreList(store)
	limits := risk.NewDailyLimits(store, cfg.Risk)
	sizer := risk.NewPositionSizer(cfg.Risk)
	gate := risk.NewGate(store, cfg.Risk, cfg.Capital, ignoreList, limits, cooldown)

	executor := execution.NewExecutor(b, store)
	reconciler := execution.NewReconciler(b, store)
	monitor := execution.NewMonitor(store, executor, calendar, cooldown, execution.DefaultForceCloseMinutes)

	sent := sentinel.NewSentinel(store, reconciler, cfg.Sentinel, regimeLookup(regime))

	lockPath := cfg.Lock.Path
	if lockPath == "" {
		lockPath = DefaultLockPath
	}
	staleAfter := DefaultStaleMinutes
	if cfg.Lock.StaleAfterMinutes > 0 {
		staleAfter = cfg.Lock.StaleAfterMinutes
	}
	lock := NewFileLock(lockPath, durationMinutes(staleAfter))

	return &Dependencies{
		Config:     cfg,
		Store:      store,
		Broker:     b,
		Calendar:   calendar,
		Quotes:     quotes,
		Cache:      cache,
		Validator:  validator,
		Regime:     regime,
		Cooldown:   cooldown,
		Engine:     engine,
		Seeder:     seeder,
		IgnoreList: ignoreList,
		Limits:     limits,
		Sizer:      sizer,
		Gate:       gate,
		Executor:   executor,
		Monitor:    monitor,
		Reconciler: reconciler,
		Sentinel:   sent,
		Lock:       lock,
	}, nil
}

// regimeLookup adapts RegimeDetector.DetectRegime (as-of now) into the
// simpler func(ctx) (MarketRegime, error) shape the Sentinel needs — it
// stays decoupled from the regime detector's benchmark-fetching
// dependencies.
func regimeLookup(regime *market.RegimeDetector) func(ctx context.Context) (strategy.MarketRegime, error) {
	return func(ctx context.Context) (strategy.MarketRegime, error) {
		result, err := regime.DetectRegime(ctx, time.Now())
		if err != nil {
			return "", err
		}
		return result.Regime, nil
	}
}

func durationMinutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
