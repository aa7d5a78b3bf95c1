package brain

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/audit"
	"github.com/CedricEugeni/MoMentor/internal/confirmation"
	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/internal/execution"
	"github.com/CedricEugeni/MoMentor/internal/portfolio"
	"github.com/CedricEugeni/MoMentor/internal/runs"
	"github.com/CedricEugeni/MoMentor/pkg/database"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeUniverse struct{}

func (fakeUniverse) Build(ctx context.Context, asOf time.Time) (*contracts.Universe, error) {
	return contracts.NewUniverse(asOf, "static", []string{"AAPL", "AMZN", "MSFT", "NVDA", "META"}), nil
}

type fakeScorer struct {
	marketOpen bool
}

func (f fakeScorer) Score(ctx context.Context, u *contracts.Universe, asOf time.Time) (*contracts.ScoreResult, error) {
	res := &contracts.ScoreResult{
		AsOf:       asOf,
		MarketOpen: f.marketOpen,
		Market:     contracts.MarketFilter{IndexSymbol: "SPY", Close: 500, MA: 450, Open: f.marketOpen},
		Excluded:   map[string]string{"META": contracts.ReasonBelowMA},
	}
	if f.marketOpen {
		for i, s := range []string{"NVDA", "AAPL", "MSFT", "AMZN"} {
			res.Candidates = append(res.Candidates, contracts.Candidate{Symbol: s, Rank: i + 1, Score: float64(10 - i)})
		}
	}
	return res, nil
}

type fakeMarket struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	fx     decimal.Decimal
}

func (f *fakeMarket) LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]decimal.Decimal)
	var missing []string
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		} else {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return out, &contracts.MissingPricesError{Symbols: missing}
	}
	return out, nil
}

func (f *fakeMarket) FXRate(ctx context.Context, from, to string) (*contracts.FXQuote, error) {
	return &contracts.FXQuote{From: from, To: to, Rate: f.fx, Timestamp: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeMarket) set(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = d(price)
}

type fixture struct {
	svc    *RunService
	repo   *runs.Repository
	market *fakeMarket
}

func newFixture(t *testing.T, marketOpen bool) *fixture {
	t.Helper()
	log := logger.Nop()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := runs.NewSQLiteRepository(db.DB)
	require.NoError(t, repo.Migrate(context.Background()))

	market := &fakeMarket{
		prices: map[string]decimal.Decimal{
			"VOO": d("500"), "SGOV": d("100"),
			"NVDA": d("100"), "AAPL": d("200"), "MSFT": d("400"), "AMZN": d("175"),
		},
		fx: d("1.1"),
	}

	pcfg := portfolio.DefaultConfig()
	orch := NewOrchestrator(
		fakeUniverse{},
		fakeScorer{marketOpen: marketOpen},
		portfolio.NewConstructor(pcfg, portfolio.DefaultConstraints(pcfg), log),
		execution.NewPlanner(execution.DefaultConfig(), log),
		market,
		log,
	)
	svc := NewRunService(
		orch,
		confirmation.NewReconciler(repo, confirmation.DefaultConfig(), log),
		audit.NewValuator(log),
		repo,
		market,
		market,
		ServiceConfig{StrategyHash: "hash"},
		log,
	)
	svc.now = func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, repo: repo, market: market}
}

func capital(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func fullFill() *contracts.Submission {
	return &contracts.Submission{
		Positions: []contracts.SubmittedPosition{
			{Symbol: "VOO", Shares: d("6"), AvgPrice: d("500")},
			{Symbol: "NVDA", Shares: d("17.5"), AvgPrice: d("100")},
			{Symbol: "AAPL", Shares: d("8.75"), AvgPrice: d("200")},
			{Symbol: "MSFT", Shares: d("4.375"), AvgPrice: d("400")},
			{Symbol: "AMZN", Shares: d("10"), AvgPrice: d("175")},
		},
		Cash: d("0"),
	}
}

func TestGenerate_RequiresInitialCapital(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.Generate(context.Background(), GenerateRequest{Mode: "monthly"})
	assert.ErrorIs(t, err, contracts.ErrPreconditionViolation)
	assert.ErrorIs(t, err, ErrInitialCapitalRequired)
}

func TestGenerate_InvalidMode(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.Generate(context.Background(), GenerateRequest{Mode: "weekly", Capital: capital("1000")})
	assert.True(t, contracts.IsValidation(err))
}

func TestGenerate_FirstRun(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, GenerateRequest{Mode: "manual", Capital: capital("10000")})
	require.NoError(t, err)

	run := res.Run
	assert.NotZero(t, run.ID)
	assert.Equal(t, contracts.TriggerManual, run.TriggerType)
	assert.Equal(t, contracts.RunPending, run.Status)
	assert.Equal(t, "10000", run.TotalCapital.String())
	assert.Equal(t, "USD", run.InputCurrency)
	assert.Nil(t, run.FXRateTimestamp)
	assert.True(t, run.MarketOpen)
	assert.Equal(t, "hash", run.StrategyHash)
	assert.Equal(t, []string{"VOO", "NVDA", "AAPL", "MSFT", "AMZN"}, run.TargetSymbols())

	// 보유분 없음 → 전부 매수
	require.Len(t, run.CashflowMoves, 5)
	for _, m := range run.CashflowMoves {
		assert.Equal(t, contracts.ActionBuy, m.Action)
	}
	assert.True(t, run.AllocationResidualCash.IsZero(), "10000 splits into whole cents")

	stored, err := f.repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, stored.SwapMoves, len(run.SwapMoves))

	pending, err := f.svc.HasPending(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = f.svc.Generate(ctx, GenerateRequest{Mode: "manual", Capital: capital("10000")})
	assert.ErrorIs(t, err, contracts.ErrPreconditionViolation)
}

func TestGenerate_StoresUnallocatedCash(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	res, err := f.svc.Generate(ctx, GenerateRequest{Mode: "manual", Capital: capital("1000.07")})
	require.NoError(t, err)

	// 300.021 → 300.02, 175.01225 → 175.01 ×4 → 0.01 미배분
	run := res.Run
	assert.Equal(t, "0.01", run.AllocationResidualCash.String())
	assert.True(t, res.Pipeline.Target.TotalAmount().Add(run.AllocationResidualCash).Equal(run.TotalCapital))

	// 첫 런의 현금 수요는 4자리 절사된 매수 금액 합계 (미배분 현금과 별개)
	// VOO 0.6×500 + NVDA 1.7501×100 + AAPL 0.875×200 + MSFT 0.4375×400 + AMZN 1×175
	assert.Equal(t, "1000.01", res.Pipeline.Plan.NetCash.String())

	stored, err := f.repo.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.01", stored.AllocationResidualCash.String())
}

func TestGenerate_EURCapitalSnapshotsFX(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.svc.Generate(context.Background(), GenerateRequest{Mode: "test", Capital: capital("1000"), Currency: "eur"})
	require.NoError(t, err)

	run := res.Run
	assert.Equal(t, contracts.TriggerTest, run.TriggerType)
	assert.Equal(t, "EUR", run.InputCurrency)
	assert.Equal(t, "1.1", run.FXRateToUSD.String())
	require.NotNil(t, run.FXRateTimestamp)
	assert.Equal(t, "1100", run.TotalCapital.String())
}

func TestGenerate_MarketClosedGoesDefensive(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.svc.Generate(context.Background(), GenerateRequest{Mode: "manual", Capital: capital("5000")})
	require.NoError(t, err)

	assert.False(t, res.Run.MarketOpen)
	require.Len(t, res.Run.Allocations, 1)
	assert.Equal(t, "SGOV", res.Run.Allocations[0].Symbol)
	assert.Equal(t, "5000", res.Run.Allocations[0].Amount.String())
}

func TestGenerate_NextCapitalFromLiveValue(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, GenerateRequest{Mode: "manual", Capital: capital("10000")})
	require.NoError(t, err)

	outcome, err := f.svc.Confirm(ctx, first.Run.ID, fullFill())
	require.NoError(t, err)
	require.True(t, outcome.IsConfirmed())

	// VOO +10
	f.market.set("VOO", "510")

	next, err := f.svc.Generate(ctx, GenerateRequest{Mode: "monthly"})
	require.NoError(t, err)
	assert.Equal(t, contracts.TriggerAuto, next.Run.TriggerType)
	assert.Equal(t, "10060", next.Run.TotalCapital.String())
	assert.True(t, next.Run.UninvestedCash.IsZero())

	val, err := f.svc.CurrentPortfolio(ctx)
	require.NoError(t, err)
	require.NotNil(t, val)
	assert.Equal(t, first.Run.ID, val.RunID)
	assert.Equal(t, "60", val.PnL.String())
}

func TestGenerate_NextCapitalNeedsEveryPrice(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, GenerateRequest{Mode: "manual", Capital: capital("10000")})
	require.NoError(t, err)
	sub := fullFill()
	sub.Force = true
	_, err = f.svc.Confirm(ctx, first.Run.ID, sub)
	require.NoError(t, err)

	f.market.mu.Lock()
	delete(f.market.prices, "AMZN")
	f.market.mu.Unlock()

	_, err = f.svc.Generate(ctx, GenerateRequest{Mode: "monthly"})
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestRunDetailsAndReset(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	val, err := f.svc.CurrentPortfolio(ctx)
	require.NoError(t, err)
	assert.Nil(t, val)

	res, err := f.svc.Generate(ctx, GenerateRequest{Mode: "manual", Capital: capital("10000")})
	require.NoError(t, err)

	details, err := f.svc.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Nil(t, details.Confirmation)

	_, err = f.svc.Confirm(ctx, res.Run.ID, fullFill())
	require.NoError(t, err)

	details, err = f.svc.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Confirmation)
	assert.Len(t, details.Confirmation.Holdings, 5)

	symbols, err := f.svc.PortfolioSymbols(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"VOO", "NVDA", "AAPL", "MSFT", "AMZN"}, symbols)

	list, err := f.svc.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.svc.Reset(ctx))
	_, err = f.svc.GetRun(ctx, res.Run.ID)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
