package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/audit"
	"github.com/CedricEugeni/MoMentor/internal/brain"
	"github.com/CedricEugeni/MoMentor/internal/confirmation"
	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/internal/execution"
	"github.com/CedricEugeni/MoMentor/internal/external/wikipedia"
	"github.com/CedricEugeni/MoMentor/internal/external/yahoo"
	"github.com/CedricEugeni/MoMentor/internal/portfolio"
	"github.com/CedricEugeni/MoMentor/internal/realtime/cache"
	"github.com/CedricEugeni/MoMentor/internal/realtime/feed"
	"github.com/CedricEugeni/MoMentor/internal/runs"
	"github.com/CedricEugeni/MoMentor/internal/s1_universe"
	"github.com/CedricEugeni/MoMentor/internal/s2_signals"
	"github.com/CedricEugeni/MoMentor/internal/selection"
	"github.com/CedricEugeni/MoMentor/internal/strategyconfig"
	"github.com/CedricEugeni/MoMentor/pkg/config"
	"github.com/CedricEugeni/MoMentor/pkg/database"
	"github.com/CedricEugeni/MoMentor/pkg/httputil"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
	"github.com/CedricEugeni/MoMentor/pkg/redis"
)

// app holds every wired component a command may need
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg          *config.Config
	strategy     *strategyconfig.Config
	strategyHash string
	location     *time.Location
	log          *logger.Logger

	repo     *runs.Repository
	feed     *feed.FeedManager
	universe *s1_universe.Builder
	runs     *brain.RunService

	closers []func()
}

// newApp loads configuration and wires the pipeline
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	a := &app{cfg: cfg}

	// 2. Initialize logger
	a.log = logger.New(cfg)

	// 3. Strategy
	path := strategyFile
	if path == "" {
		path = cfg.StrategyConfigPath
	}
	strategy, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy %q: %w", path, err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		a.log.WithField("code", w.Code).Warn(w.Message)
	}
	a.strategy = strategy
	if a.strategyHash, err = strategyconfig.Hash(strategy); err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}
	if a.location, err = time.LoadLocation(strategy.Meta.Timezone); err != nil {
		return nil, fmt.Errorf("strategy timezone: %w", err)
	}

	// 4. Run store
	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// 5. Redis (optional)
	rdb, err := redis.New(cfg)
	if err != nil {
		a.log.WithError(err).Warn("Redis unavailable, continuing without shared cache")
		rdb = redis.NewDisabled()
	}
	a.closers = append(a.closers, func() { rdb.Close() })
	shared := redis.NewCache(rdb, "momentor")
	limiter := redis.NewRateLimiter(rdb, "momentor:ratelimit")

	// 6. External clients
	yahooHTTP := httputil.NewWithTimeout(a.log, cfg.Yahoo.Timeout).
		WithLimiter(cfg.Yahoo.RequestsPerSec, cfg.Yahoo.Burst).
		WithRateLimiter(limiter, redis.YahooLimit(cfg.Yahoo))
	yahooClient := yahoo.NewClient(yahooHTTP, cfg.Yahoo.BaseURL, a.log)

	var provider contracts.UniverseProvider
	switch strategy.Universe.Source {
	case "static":
		provider = s1_universe.NewStaticProvider(strategy.Universe.Static)
	default:
		wikiHTTP := httputil.New(a.log).
			WithUserAgent(cfg.Wikipedia.UserAgent).
			WithRateLimiter(limiter, redis.WikipediaLimit())
		provider = wikipedia.NewClient(wikiHTTP, cfg.Wikipedia.BaseURL, a.log)
	}

	// 7. Live data
	feedCfg := feed.DefaultConfig()
	feedCfg.Concurrency = strategy.Signals.Concurrency
	a.feed = feed.NewFeedManager(yahooClient, cache.NewPriceCache(cache.DefaultTTL, a.log), shared, feedCfg, a.log)

	// 8. Pipeline S1 → S6
	a.universe = s1_universe.NewBuilder(provider, shared, s1_universe.Config{Exclude: strategy.Universe.Exclude}, a.log)

	signals := s2_signals.NewBuilder(a.feed, s2_signals.Config{
		IndexSymbol:      strategy.Signals.IndexSymbol,
		MALength:         strategy.Signals.MALength,
		MomentumMonths:   strategy.Signals.MomentumMonths,
		VolatilityMonths: strategy.Signals.VolatilityMonths,
		WilderPeriod:     strategy.Signals.WilderPeriod,
		LookbackDays:     strategy.Signals.LookbackDays,
		Concurrency:      strategy.Signals.Concurrency,
	}, a.log)
	scorer := selection.NewScorer(signals, selection.NewScreener(a.log), selection.NewRanker(a.log), a.log)

	pcfg := portfolio.PortfolioConfig{
		CoreETF:         strategy.Portfolio.CoreETF,
		DefensiveETF:    strategy.Portfolio.DefensiveETF,
		CoreWeight:      decimal.NewFromFloat(strategy.Portfolio.CoreWeight),
		TopN:            strategy.Portfolio.TopN,
		ShortfallPolicy: strategy.Portfolio.ShortfallPolicy,
	}
	constructor := portfolio.NewConstructor(pcfg, portfolio.DefaultConstraints(pcfg), a.log)
	planner := execution.NewPlanner(execution.ExecutionConfig{
		SharePrecision: int32(strategy.Execution.SharePrecision),
	}, a.log)

	orchestrator := brain.NewOrchestrator(a.universe, scorer, constructor, planner, a.feed, a.log)

	// 9. S7 / S8 + run service
	reconciler := confirmation.NewReconciler(a.repo, confirmation.Config{
		TolerancePct: decimal.NewFromFloat(strategy.Confirmation.TolerancePct),
		PriceTimeout: strategy.Execution.PriceTimeout(),
	}, a.log)

	a.runs = brain.NewRunService(orchestrator, reconciler, audit.NewValuator(a.log), a.repo, a.feed, a.feed, brain.ServiceConfig{
		Location:     a.location,
		StrategyHash: a.strategyHash,
	}, a.log)

	a.log.WithFields(map[string]interface{}{
		"strategy":      strategy.Meta.StrategyID,
		"strategy_hash": a.strategyHash,
		"universe":      provider.Source(),
		"db_driver":     a.repo.Driver(),
		"redis":         rdb.Enabled(),
	}).Info("Application wired")

	return a, nil
}

// openStore connects the run store for the configured driver and migrates it
func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Database.Driver() {
	case config.DriverPostgres:
		db, err := database.New(a.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.repo = runs.NewPostgresRepository(db.Pool)
	default:
		db, err := database.OpenSQLiteFromConfig(a.cfg.Database)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.repo = runs.NewSQLiteRepository(db.DB)
	}

	if err := a.repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate run store: %w", err)
	}
	return nil
}

// trackPortfolio points the live feed at the confirmed holdings
func (a *app) trackPortfolio(ctx context.Context) {
	symbols, err := a.runs.PortfolioSymbols(ctx)
	if err != nil {
		a.log.WithError(err).Warn("Failed to load portfolio symbols")
		return
	}
	a.feed.SetPortfolioSymbols(symbols)
}

// Close releases every resource in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
