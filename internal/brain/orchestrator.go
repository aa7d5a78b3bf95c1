package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Orchestrator runs S1 → S6 for one generation
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	universeBuilder contracts.UniverseBuilder
	scorer          contracts.Scorer
	constructor     contracts.PortfolioConstructor
	planner         contracts.RebalancePlanner
	prices          contracts.LivePriceFetcher

	logger *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	universeBuilder contracts.UniverseBuilder,
	scorer contracts.Scorer,
	constructor contracts.PortfolioConstructor,
	planner contracts.RebalancePlanner,
	prices contracts.LivePriceFetcher,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		universeBuilder: universeBuilder,
		scorer:          scorer,
		constructor:     constructor,
		planner:         planner,
		prices:          prices,
		logger:          log,
	}
}

// PipelineInput is what one generation starts from
type PipelineInput struct {
	AsOf     time.Time
	Capital  decimal.Decimal     // USD
	Holdings []contracts.Holding // 직전 확인 보유분
	Cash     decimal.Decimal     // 직전 확인 현금
}

// PipelineResult holds the stage outputs of one generation
type PipelineResult struct {
	Universe *contracts.Universe
	Score    *contracts.ScoreResult
	Target   *contracts.TargetPortfolio
	Prices   map[string]decimal.Decimal
	Plan     *contracts.RebalancePlan
	Stages   []contracts.StageResult
	Duration time.Duration
}

// Run executes the pipeline
// S1 → S2/S3/S4 (scorer) → S5 → live prices → S6
func (o *Orchestrator) Run(ctx context.Context, in PipelineInput) (*PipelineResult, error) {
	startTime := time.Now()
	result := &PipelineResult{Stages: make([]contracts.StageResult, 0, 4)}

	o.logger.WithFields(map[string]interface{}{
		"as_of":    in.AsOf.Format("2006-01-02"),
		"capital":  in.Capital.StringFixed(2),
		"holdings": len(in.Holdings),
	}).Info("Starting pipeline run")

	// S1: Universe
	stageStart := time.Now()
	universe, err := o.universeBuilder.Build(ctx, in.AsOf)
	result.record(contracts.StageUniverse, 0, countUniverse(universe), stageStart, err)
	if err != nil {
		return result, fmt.Errorf("S1 failed: %w", err)
	}
	result.Universe = universe

	// S2-S4: signals, screening, ranking
	stageStart = time.Now()
	score, err := o.scorer.Score(ctx, universe, in.AsOf)
	result.record(contracts.StageRanker, universe.Count(), countCandidates(score), stageStart, err)
	if err != nil {
		return result, fmt.Errorf("S2-S4 failed: %w", err)
	}
	result.Score = score

	o.logger.WithFields(map[string]interface{}{
		"market_open": score.MarketOpen,
		"index_close": score.Market.Close,
		"index_ma":    score.Market.MA,
		"candidates":  len(score.Candidates),
		"excluded":    len(score.Excluded),
	}).Info("Scoring completed")

	// S5: Portfolio
	stageStart = time.Now()
	target, err := o.constructor.Construct(ctx, score.Candidates, in.Capital, score.MarketOpen)
	result.record(contracts.StagePortfolio, len(score.Candidates), countAllocations(target), stageStart, err)
	if err != nil {
		return result, fmt.Errorf("S5 failed: %w", err)
	}
	result.Target = target

	// Live prices for every symbol the plan touches
	symbols := unionSymbols(contracts.HoldingSymbols(in.Holdings), target.Symbols())
	prices, err := o.prices.LatestPrices(ctx, symbols)
	if err != nil {
		return result, fmt.Errorf("S6 prices: %w", err)
	}
	result.Prices = prices

	// S6: Rebalance
	stageStart = time.Now()
	plan, err := o.planner.Plan(ctx, in.Holdings, in.Cash, target, prices)
	result.record(contracts.StageRebalance, len(symbols), countMoves(plan), stageStart, err)
	if err != nil {
		return result, fmt.Errorf("S6 failed: %w", err)
	}
	result.Plan = plan
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"allocations":    len(target.Allocations),
		"cashflow_moves": len(plan.CashflowMoves),
		"swap_moves":     len(plan.SwapMoves),
		"duration":       result.Duration.Seconds(),
	}).Info("Pipeline run completed successfully")

	return result, nil
}

func (r *PipelineResult) record(stage contracts.Stage, in, out int, start time.Time, err error) {
	sr := contracts.StageResult{
		Stage:       stage,
		Success:     err == nil,
		InputCount:  in,
		OutputCount: out,
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		sr.Error = err.Error()
	}
	r.Stages = append(r.Stages, sr)
}

func countUniverse(u *contracts.Universe) int {
	if u == nil {
		return 0
	}
	return u.Count()
}

func countCandidates(s *contracts.ScoreResult) int {
	if s == nil {
		return 0
	}
	return len(s.Candidates)
}

func countAllocations(t *contracts.TargetPortfolio) int {
	if t == nil {
		return 0
	}
	return t.Count()
}

func countMoves(p *contracts.RebalancePlan) int {
	if p == nil {
		return 0
	}
	return len(p.CashflowMoves)
}

// unionSymbols merges symbol lists preserving first-seen order
func unionSymbols(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
