package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================================
// Collaborators (외부 데이터 / 영속성)
// ============================================================================

// UniverseProvider returns the raw candidate symbol set
type UniverseProvider interface {
	Symbols(ctx context.Context) ([]string, error)
	Source() string
}

// PriceSeriesProvider supplies daily history and live quotes
type PriceSeriesProvider interface {
	// DailyHistory returns bars in ascending date order within [from, to]
	DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
	// LatestPrice returns the live price or an error wrapping ErrDataUnavailable
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// LivePriceFetcher resolves live prices for a symbol set.
// On partial failure it returns the prices it got plus a *MissingPricesError.
type LivePriceFetcher interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// FXQuote is a snapshot of a currency pair
type FXQuote struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"` // 1 From = Rate To
	Timestamp time.Time       `json:"timestamp"`
}

// FXProvider supplies currency conversion rates
type FXProvider interface {
	FXRate(ctx context.Context, from, to string) (*FXQuote, error)
}

// RunRepository persists runs, confirmations and scheduler history
// ⭐ SSOT: 런 저장소 인터페이스 (PostgreSQL / SQLite)
type RunRepository interface {
	// CreateRun stores a pending run and sets run.ID
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id int64) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	// GetPendingRun returns nil, nil when no run is pending
	GetPendingRun(ctx context.Context) (*Run, error)

	// CompleteRun stores the confirmation and moves the run pending → completed.
	// It fails with ErrPreconditionViolation when the run is not pending.
	CompleteRun(ctx context.Context, conf *Confirmation) error
	GetConfirmation(ctx context.Context, runID int64) (*Confirmation, error)
	// GetLatestConfirmation returns nil, nil when nothing was ever confirmed
	GetLatestConfirmation(ctx context.Context) (*Confirmation, error)

	SaveSchedulerLog(ctx context.Context, log *SchedulerLog) error
	ListSchedulerLogs(ctx context.Context, limit int) ([]SchedulerLog, error)

	// Reset deletes all runs, confirmations and scheduler logs
	Reset(ctx context.Context) error
}

// ============================================================================
// Pipeline stages
// ============================================================================

// UniverseBuilder creates investable universe (S1)
// ⭐ SSOT: S1 유니버스 생성 인터페이스
type UniverseBuilder interface {
	Build(ctx context.Context, asOf time.Time) (*Universe, error)
}

// SignalBuilder computes market filter and per-symbol metrics (S2)
// ⭐ SSOT: S2 시그널 생성 인터페이스
type SignalBuilder interface {
	Build(ctx context.Context, universe *Universe, asOf time.Time) (*ScoreResult, error)
}

// Screener removes symbols that fail the trend or volatility gates (S3)
// ⭐ SSOT: S3 스크리닝 인터페이스
type Screener interface {
	Screen(ctx context.Context, result *ScoreResult) ([]Candidate, error)
}

// Ranker orders candidates by score (S4)
// ⭐ SSOT: S4 랭킹 인터페이스
type Ranker interface {
	Rank(ctx context.Context, candidates []Candidate) ([]Candidate, error)
}

// Scorer composes S2 → S4 into one scoring pass
type Scorer interface {
	Score(ctx context.Context, universe *Universe, asOf time.Time) (*ScoreResult, error)
}

// PortfolioConstructor constructs target portfolio (S5)
// ⭐ SSOT: S5 포트폴리오 구성 인터페이스
type PortfolioConstructor interface {
	Construct(ctx context.Context, ranked []Candidate, capital decimal.Decimal, marketOpen bool) (*TargetPortfolio, error)
}

// RebalancePlanner computes the moves from current holdings to the target (S6)
// ⭐ SSOT: S6 리밸런싱 계획 인터페이스
type RebalancePlanner interface {
	Plan(ctx context.Context, holdings []Holding, cash decimal.Decimal, target *TargetPortfolio, prices map[string]decimal.Decimal) (*RebalancePlan, error)
}

// Reconciler validates user-confirmed fills against a run (S7)
// ⭐ SSOT: S7 확인 인터페이스
type Reconciler interface {
	Confirm(ctx context.Context, run *Run, sub *Submission, prices LivePriceFetcher) (*Outcome, error)
}

// Valuator values holdings at live prices (S8)
// ⭐ SSOT: S8 평가 인터페이스
type Valuator interface {
	Value(holdings []Holding, cash decimal.Decimal, prices map[string]decimal.Decimal) *Valuation
}
