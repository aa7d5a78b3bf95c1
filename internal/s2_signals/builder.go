package s2_signals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Config holds the scoring windows
type Config struct {
	IndexSymbol      string
	MALength         int
	MomentumMonths   int
	VolatilityMonths int
	WilderPeriod     float64
	LookbackDays     int
	Concurrency      int
}

// MinMonths is the number of completed months a symbol needs
func (c Config) MinMonths() int {
	m := c.MomentumMonths + 1
	if v := c.VolatilityMonths + 1; v > m {
		m = v
	}
	return m
}

// Builder evaluates the market filter and per-symbol metrics (S2)
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Builder struct {
	momentum   *MomentumCalculator
	volatility *VolatilityCalculator
	prices     contracts.PriceSeriesProvider
	config     Config
	logger     *logger.Logger
}

// NewBuilder creates a new signal builder
func NewBuilder(prices contracts.PriceSeriesProvider, config Config, log *logger.Logger) *Builder {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	stageLog := log.WithStage(contracts.StageSignals.ShortName())
	return &Builder{
		momentum:   NewMomentumCalculator(config.MomentumMonths, stageLog),
		volatility: NewVolatilityCalculator(config.VolatilityMonths, config.WilderPeriod, stageLog),
		prices:     prices,
		config:     config,
		logger:     stageLog,
	}
}

// Build computes candidates for every universe symbol.
// A closed market returns MarketOpen=false without evaluating any symbol.
func (b *Builder) Build(ctx context.Context, universe *contracts.Universe, asOf time.Time) (*contracts.ScoreResult, error) {
	start := time.Now()
	from, to := b.window(asOf)

	indexBars, err := b.prices.DailyHistory(ctx, b.config.IndexSymbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("index history %s: %w", b.config.IndexSymbol, errors.Join(err, contracts.ErrDataUnavailable))
	}
	market, err := EvaluateMarket(b.config.IndexSymbol, indexBars, asOf, b.config.MALength)
	if err != nil {
		return nil, err
	}

	result := &contracts.ScoreResult{
		AsOf:       asOf,
		MonthEnd:   MonthEnd(asOf),
		MarketOpen: market.Open,
		Market:     *market,
		Candidates: []contracts.Candidate{},
		Excluded:   make(map[string]string),
	}

	b.logger.WithFields(map[string]interface{}{
		"index": market.IndexSymbol,
		"close": market.Close,
		"ma":    market.MA,
		"open":  market.Open,
	}).Info("Market filter evaluated")

	if !market.Open {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Concurrency)

	for _, symbol := range universe.Symbols {
		symbol := symbol
		g.Go(func() error {
			candidate, err := b.calculate(gctx, symbol, from, to, asOf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				result.Excluded[symbol] = exclusionReason(err)
				b.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"error":  err.Error(),
				}).Debug("Symbol excluded")
				return nil
			}
			result.Candidates = append(result.Candidates, *candidate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("signal generation: %w", err)
	}

	b.logger.WithFields(map[string]interface{}{
		"total":    universe.Count(),
		"success":  len(result.Candidates),
		"excluded": len(result.Excluded),
		"ms":       time.Since(start).Milliseconds(),
	}).Info("Signal generation completed")

	return result, nil
}

// calculate computes all metrics of one symbol
func (b *Builder) calculate(ctx context.Context, symbol string, from, to, asOf time.Time) (*contracts.Candidate, error) {
	bars, err := b.prices.DailyHistory(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	closed := ClosedBefore(bars, asOf)
	if len(closed) == 0 {
		return nil, fmt.Errorf("no closed bars: %w", contracts.ErrInsufficientData)
	}
	ma, err := LastSMA(Closes(closed), b.config.MALength)
	if err != nil {
		return nil, err
	}

	monthly := MonthlyBars(closed, asOf)
	if len(monthly) < b.config.MinMonths() {
		return nil, fmt.Errorf("need %d completed months, have %d: %w", b.config.MinMonths(), len(monthly), contracts.ErrInsufficientData)
	}

	momentum, err := b.momentum.Calculate(symbol, monthly)
	if err != nil {
		return nil, err
	}
	volatility, err := b.volatility.Calculate(symbol, monthly)
	if err != nil {
		return nil, err
	}

	c := &contracts.Candidate{
		Symbol:        symbol,
		MonthlyCloses: monthly,
		CurrentPrice:  closed[len(closed)-1].Close,
		MA220:         ma,
		Momentum:      momentum,
		Volatility:    volatility,
	}
	if volatility > 0 {
		c.Score = momentum / volatility
	}
	return c, nil
}

// window returns the history request range
func (b *Builder) window(asOf time.Time) (time.Time, time.Time) {
	to := truncateDay(asOf)
	return to.AddDate(0, 0, -b.config.LookbackDays), to
}

func exclusionReason(err error) string {
	if errors.Is(err, contracts.ErrInsufficientData) {
		return contracts.ReasonInsufficientHistory
	}
	return contracts.ReasonDataUnavailable
}
