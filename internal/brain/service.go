package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// LiveValuator values holdings against live prices (S8)
type LiveValuator interface {
	Value(holdings []contracts.Holding, cash decimal.Decimal, prices map[string]decimal.Decimal) *contracts.Valuation
	ValueLive(ctx context.Context, holdings []contracts.Holding, cash decimal.Decimal, fetcher contracts.LivePriceFetcher) (*contracts.Valuation, error)
}

// ServiceConfig holds run-level settings
type ServiceConfig struct {
	Location     *time.Location // 실행 날짜 기준 시간대
	StrategyHash string
}

// RunService owns the run lifecycle: generate → confirm → value
// ⭐ SSOT: 런 생성/확인/평가 진입점
type RunService struct {
	orchestrator *Orchestrator
	reconciler   contracts.Reconciler
	valuator     LiveValuator
	repo         contracts.RunRepository
	prices       contracts.LivePriceFetcher
	fx           contracts.FXProvider
	config       ServiceConfig
	logger       *logger.Logger
	now          func() time.Time
}

// NewRunService creates a new run service
func NewRunService(
	orchestrator *Orchestrator,
	reconciler contracts.Reconciler,
	valuator LiveValuator,
	repo contracts.RunRepository,
	prices contracts.LivePriceFetcher,
	fx contracts.FXProvider,
	config ServiceConfig,
	log *logger.Logger,
) *RunService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &RunService{
		orchestrator: orchestrator,
		reconciler:   reconciler,
		valuator:     valuator,
		repo:         repo,
		prices:       prices,
		fx:           fx,
		config:       config,
		logger:       log,
		now:          time.Now,
	}
}

// GenerateRequest starts a run. Capital is optional after the first confirmation.
type GenerateRequest struct {
	Mode     string           `json:"mode"` // monthly, manual, test
	Capital  *decimal.Decimal `json:"capital,omitempty"`
	Currency string           `json:"capital_currency,omitempty"` // USD (default), EUR
}

// GenerateResult is the stored run plus the pipeline detail behind it
type GenerateResult struct {
	Run      *contracts.Run         `json:"run"`
	Pipeline *PipelineResult        `json:"-"`
	Score    *contracts.ScoreResult `json:"score,omitempty"`
}

// ErrInitialCapitalRequired is returned when no capital is given and nothing was ever confirmed
var ErrInitialCapitalRequired = fmt.Errorf("%w: initial capital required", contracts.ErrPreconditionViolation)

// Generate runs the pipeline and stores a pending run
func (s *RunService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	trigger, ok := contracts.TriggerFromMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if !ok {
		return nil, contracts.NewValidationError("mode", "must be one of monthly, manual, test (got %q)", req.Mode)
	}

	pending, err := s.repo.GetPendingRun(ctx)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: run %d is still pending", contracts.ErrPreconditionViolation, pending.ID)
	}

	now := s.now()
	asOf := now.In(s.config.Location)
	runDate := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	latest, err := s.repo.GetLatestConfirmation(ctx)
	if err != nil {
		return nil, err
	}
	var (
		holdings []contracts.Holding
		cash     = decimal.Zero
	)
	if latest != nil {
		holdings = heldPositions(latest.Holdings)
		cash = latest.Cash
	}

	run := &contracts.Run{
		RunDate:        runDate,
		TriggerType:    trigger,
		Status:         contracts.RunPending,
		InputCurrency:  contracts.BaseCurrency,
		FXRateToUSD:    decimal.NewFromInt(1),
		UninvestedCash: cash,
		StrategyHash:   s.config.StrategyHash,
		CreatedAt:      now.UTC(),
	}

	switch {
	case req.Capital != nil:
		capital, err := s.convertCapital(ctx, *req.Capital, req.Currency, run)
		if err != nil {
			return nil, err
		}
		run.TotalCapital = capital
	case latest == nil:
		return nil, ErrInitialCapitalRequired
	default:
		capital, err := s.nextCapital(ctx, holdings, cash)
		if err != nil {
			return nil, err
		}
		run.TotalCapital = capital
	}

	log := s.logger.WithFields(map[string]interface{}{
		"trigger":       string(trigger),
		"capital":       run.TotalCapital.StringFixed(2),
		"currency":      run.InputCurrency,
		"strategy_hash": s.config.StrategyHash,
	})
	log.Info("Generating run")

	result, err := s.orchestrator.Run(ctx, PipelineInput{
		AsOf:     asOf,
		Capital:  run.TotalCapital,
		Holdings: holdings,
		Cash:     cash,
	})
	if err != nil {
		log.WithError(err).Error("Run generation failed")
		return nil, err
	}

	run.MarketOpen = result.Score.MarketOpen
	run.Allocations = result.Target.Allocations
	run.CashflowMoves = result.Plan.CashflowMoves
	run.SwapMoves = result.Plan.SwapMoves
	run.AllocationResidualCash = result.Target.ResidualCash

	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	s.logger.WithRun(run.ID).WithFields(map[string]interface{}{
		"market_open": run.MarketOpen,
		"allocations": len(run.Allocations),
	}).Info("Run generated")

	return &GenerateResult{Run: run, Pipeline: result, Score: result.Score}, nil
}

// convertCapital validates the amount and snapshots the FX rate on the run
func (s *RunService) convertCapital(ctx context.Context, amount decimal.Decimal, currency string, run *contracts.Run) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, contracts.NewValidationError("capital", "must be positive")
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = contracts.BaseCurrency
	}
	if money.GetCurrency(currency) == nil {
		return decimal.Zero, contracts.NewValidationError("capital_currency", "unknown currency %q", currency)
	}
	run.InputCurrency = currency

	if currency == contracts.BaseCurrency {
		return contracts.RoundMoney(amount), nil
	}

	quote, err := s.fx.FXRate(ctx, currency, contracts.BaseCurrency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx %s/%s: %w", currency, contracts.BaseCurrency, err)
	}
	ts := quote.Timestamp
	run.FXRateToUSD = quote.Rate.Round(contracts.FXPrecision)
	run.FXRateTimestamp = &ts

	// 입력 통화 최소 단위로 반올림 후 환산
	local := contracts.RoundCurrency(amount, currency)
	return contracts.RoundMoney(local.Mul(run.FXRateToUSD)), nil
}

// nextCapital is the live value of the last confirmed holdings plus confirmed cash.
// Every held symbol must have a live price.
func (s *RunService) nextCapital(ctx context.Context, holdings []contracts.Holding, cash decimal.Decimal) (decimal.Decimal, error) {
	prices := map[string]decimal.Decimal{}
	if len(holdings) > 0 {
		got, err := s.prices.LatestPrices(ctx, contracts.HoldingSymbols(holdings))
		if err != nil {
			return decimal.Zero, fmt.Errorf("next capital: %w", err)
		}
		prices = got
	}

	val := s.valuator.Value(holdings, cash, prices)
	if !val.Complete() {
		return decimal.Zero, &contracts.MissingPricesError{Symbols: val.MissingPrices}
	}
	if !val.TotalCurrent.IsPositive() {
		return decimal.Zero, ErrInitialCapitalRequired
	}
	return contracts.RoundMoney(val.TotalCurrent), nil
}

// Confirm reconciles the user's fills against a run
func (s *RunService) Confirm(ctx context.Context, runID int64, sub *contracts.Submission) (*contracts.Outcome, error) {
	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Confirm(ctx, run, sub, s.prices)
}

// HasPending reports whether a run awaits confirmation
func (s *RunService) HasPending(ctx context.Context) (bool, error) {
	run, err := s.repo.GetPendingRun(ctx)
	if err != nil {
		return false, err
	}
	return run != nil, nil
}

// ListRuns returns recent runs, newest first
func (s *RunService) ListRuns(ctx context.Context, limit int) ([]contracts.RunSummary, error) {
	return s.repo.ListRuns(ctx, limit)
}

// RunDetails is a run with its confirmation once completed
type RunDetails struct {
	*contracts.Run
	Confirmation *contracts.Confirmation `json:"confirmation,omitempty"`
}

// GetRun returns a run and, if completed, its confirmation
func (s *RunService) GetRun(ctx context.Context, id int64) (*RunDetails, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	details := &RunDetails{Run: run}
	if run.Status == contracts.RunCompleted {
		conf, err := s.repo.GetConfirmation(ctx, id)
		if err != nil && !errors.Is(err, contracts.ErrNotFound) {
			return nil, err
		}
		details.Confirmation = conf
	}
	return details, nil
}

// CurrentPortfolio values the latest confirmed holdings.
// It returns nil when nothing was ever confirmed.
func (s *RunService) CurrentPortfolio(ctx context.Context) (*contracts.Valuation, error) {
	latest, err := s.repo.GetLatestConfirmation(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	val, err := s.valuator.ValueLive(ctx, latest.Holdings, latest.Cash, s.prices)
	if err != nil {
		return nil, err
	}
	val.RunID = latest.RunID
	return val, nil
}

// PortfolioSymbols returns the symbols held in the latest confirmation
func (s *RunService) PortfolioSymbols(ctx context.Context) ([]string, error) {
	latest, err := s.repo.GetLatestConfirmation(ctx)
	if err != nil || latest == nil {
		return nil, err
	}
	return contracts.HoldingSymbols(heldPositions(latest.Holdings)), nil
}

// Reset wipes all runs, confirmations and scheduler logs
func (s *RunService) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return err
	}
	s.logger.Warn("All runs deleted")
	return nil
}

// heldPositions drops zero-share lines
func heldPositions(holdings []contracts.Holding) []contracts.Holding {
	out := make([]contracts.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.Shares.IsPositive() {
			out = append(out, h)
		}
	}
	return out
}
