package confirmation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memStore struct {
	confirmations map[int64]*contracts.Confirmation
	completeCalls int
}

func newMemStore() *memStore {
	return &memStore{confirmations: make(map[int64]*contracts.Confirmation)}
}

func (s *memStore) CompleteRun(_ context.Context, conf *contracts.Confirmation) error {
	s.completeCalls++
	if _, ok := s.confirmations[conf.RunID]; ok {
		return contracts.ErrPreconditionViolation
	}
	s.confirmations[conf.RunID] = conf
	return nil
}

func (s *memStore) GetConfirmation(_ context.Context, runID int64) (*contracts.Confirmation, error) {
	c, ok := s.confirmations[runID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return c, nil
}

type fixedPrices struct {
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (f *fixedPrices) LatestPrices(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
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
		return out, &contracts.MissingPricesError{Symbols: missing}
	}
	return out, nil
}

func pendingRun() *contracts.Run {
	return &contracts.Run{
		ID:           7,
		Status:       contracts.RunPending,
		TotalCapital: d("10000"),
		Allocations: []contracts.TargetAllocation{
			{Symbol: "VOO", Amount: d("3000")},
			{Symbol: "AAPL", Amount: d("7000")},
		},
	}
}

func submission(force bool) *contracts.Submission {
	return &contracts.Submission{
		Positions: []contracts.SubmittedPosition{
			{Symbol: "voo", Shares: d("7.5"), AvgPrice: d("400")},
			{Symbol: "AAPL", Shares: d("35"), AvgPrice: d("199.9")},
		},
		Cash:  d("3.5"),
		Force: force,
	}
}

func livePrices() *fixedPrices {
	return &fixedPrices{prices: map[string]decimal.Decimal{"VOO": d("400"), "AAPL": d("200")}}
}

func TestConfirm_WithinTolerance(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())
	run := pendingRun()

	out, err := r.Confirm(context.Background(), run, submission(false), livePrices())
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeConfirmed, out.Kind)
	require.Len(t, out.Holdings, 2)
	assert.Equal(t, "AAPL", out.Holdings[0].Symbol)
	assert.Equal(t, "VOO", out.Holdings[1].Symbol)
	assert.Equal(t, contracts.RunCompleted, run.Status)
	assert.NotEmpty(t, store.confirmations[7].Key)
}

func TestConfirm_WarningBeyondTolerance(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())

	sub := submission(false)
	sub.Positions[1].Shares = d("10") // 3000 + 2000 + 3.5 vs 10000

	out, err := r.Confirm(context.Background(), pendingRun(), sub, livePrices())
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeWarning, out.Kind)
	require.NotNil(t, out.Discrepancy)
	assert.Equal(t, "49.97", out.Discrepancy.StringFixed(2))
	assert.Zero(t, store.completeCalls, "warning does not complete the run")
}

func TestConfirm_EnteredPriceCannotMaskShareDeviation(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())

	// 20 × 350 = 7000 으로 목표 금액과 일치하지만 실시간 가치는 20 × 200
	sub := submission(false)
	sub.Positions[1].Shares = d("20")
	sub.Positions[1].AvgPrice = d("350")

	out, err := r.Confirm(context.Background(), pendingRun(), sub, livePrices())
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeWarning, out.Kind)
	require.NotNil(t, out.LiveValue)
	assert.Equal(t, "7003.5", out.LiveValue.String())
	assert.Equal(t, "29.97", out.Discrepancy.StringFixed(2))
	assert.Zero(t, store.completeCalls)
}

func TestConfirm_MarketDataUnavailable(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())

	out, err := r.Confirm(context.Background(), pendingRun(), submission(false), &fixedPrices{err: errors.New("yahoo down")})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeMarketDataUnavailable, out.Kind)
	assert.Zero(t, store.completeCalls)

	partial := &fixedPrices{prices: map[string]decimal.Decimal{"VOO": d("400")}}
	out, err = r.Confirm(context.Background(), pendingRun(), submission(false), partial)
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeMarketDataUnavailable, out.Kind)
	assert.Contains(t, out.Message, "AAPL")
}

func TestConfirm_ForceSkipsPrices(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())
	prices := &fixedPrices{err: errors.New("never called")}

	sub := submission(true)
	sub.Positions[1].Shares = d("1")

	out, err := r.Confirm(context.Background(), pendingRun(), sub, prices)
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeConfirmed, out.Kind)
	assert.Zero(t, prices.calls)
	assert.Equal(t, "199.9", out.Holdings[0].AvgPrice.String())
}

func TestConfirm_Idempotent(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())
	run := pendingRun()

	first, err := r.Confirm(context.Background(), run, submission(false), livePrices())
	require.NoError(t, err)

	// 같은 내용 재전송 (force 여부는 키에 포함되지 않음)
	again, err := r.Confirm(context.Background(), run, submission(true), livePrices())
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Holdings, again.Holdings)
	assert.Equal(t, 1, store.completeCalls)

	changed := submission(false)
	changed.Cash = d("4")
	_, err = r.Confirm(context.Background(), run, changed, livePrices())
	assert.ErrorIs(t, err, contracts.ErrPreconditionViolation)
}

func TestConfirm_ConcurrentIdenticalSubmission(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())

	// 두 요청 모두 pending 상태의 런을 읽은 뒤 하나가 먼저 완료
	winnerRun, loserRun := pendingRun(), pendingRun()

	first, err := r.Confirm(context.Background(), winnerRun, submission(false), livePrices())
	require.NoError(t, err)
	require.Equal(t, contracts.OutcomeConfirmed, first.Kind)

	second, err := r.Confirm(context.Background(), loserRun, submission(false), livePrices())
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeConfirmed, second.Kind)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Holdings, second.Holdings)
	assert.True(t, first.Cash.Equal(second.Cash))
	assert.Equal(t, contracts.RunCompleted, loserRun.Status)
	assert.Equal(t, 2, store.completeCalls)
	assert.Len(t, store.confirmations, 1)
}

func TestConfirm_ConcurrentDifferentSubmission(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, DefaultConfig(), logger.Nop())

	_, err := r.Confirm(context.Background(), pendingRun(), submission(false), livePrices())
	require.NoError(t, err)

	other := submission(false)
	other.Cash = d("4")
	_, err = r.Confirm(context.Background(), pendingRun(), other, livePrices())
	assert.ErrorIs(t, err, contracts.ErrPreconditionViolation)
}

func TestConfirm_Validation(t *testing.T) {
	r := NewReconciler(newMemStore(), DefaultConfig(), logger.Nop())

	tests := []struct {
		name   string
		mutate func(*contracts.Submission)
	}{
		{"missing target", func(s *contracts.Submission) { s.Positions = s.Positions[:1] }},
		{"negative shares", func(s *contracts.Submission) { s.Positions[0].Shares = d("-1") }},
		{"zero avg with shares", func(s *contracts.Submission) { s.Positions[0].AvgPrice = decimal.Zero }},
		{"empty symbol", func(s *contracts.Submission) { s.Positions[0].Symbol = " " }},
		{"duplicate", func(s *contracts.Submission) { s.Positions[1].Symbol = "VOO" }},
		{"negative cash", func(s *contracts.Submission) { s.Cash = d("-0.01") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := submission(true)
			tt.mutate(sub)
			_, err := r.Confirm(context.Background(), pendingRun(), sub, livePrices())
			assert.True(t, contracts.IsValidation(err), "got %v", err)
		})
	}
}

func TestConfirm_ExtraSymbolsAndZeroShares(t *testing.T) {
	r := NewReconciler(newMemStore(), DefaultConfig(), logger.Nop())

	sub := submission(false)
	sub.Positions = append(sub.Positions, contracts.SubmittedPosition{Symbol: "NVDA", Shares: decimal.Zero})

	out, err := r.Confirm(context.Background(), pendingRun(), sub, livePrices())
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeConfirmed, out.Kind)
	assert.Len(t, out.Holdings, 3)
}

func TestIdempotencyKey_Canonical(t *testing.T) {
	a, err := Normalize(submission(false))
	require.NoError(t, err)

	reordered := submission(true)
	reordered.Positions[0], reordered.Positions[1] = reordered.Positions[1], reordered.Positions[0]
	reordered.Positions[0].Shares = d("35.00001")
	b, err := Normalize(reordered)
	require.NoError(t, err)

	assert.Equal(t, IdempotencyKey(7, a), IdempotencyKey(7, b))
	assert.NotEqual(t, IdempotencyKey(7, a), IdempotencyKey(8, a))
}

func TestDiscrepancyPct(t *testing.T) {
	assert.Equal(t, "5", DiscrepancyPct(d("10500"), d("10000")).String())
	assert.Equal(t, "0", DiscrepancyPct(decimal.Zero, decimal.Zero).String())
	assert.Equal(t, "100", DiscrepancyPct(d("1"), decimal.Zero).String())
}
