package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Store is the persistence the reconciler needs
type Store interface {
	CompleteRun(ctx context.Context, conf *contracts.Confirmation) error
	GetConfirmation(ctx context.Context, runID int64) (*contracts.Confirmation, error)
}

// Config defines reconciliation parameters
type Config struct {
	TolerancePct decimal.Decimal // 허용 오차 (10 = 10%)
	PriceTimeout time.Duration   // 실시간 시세 조회 제한 시간
}

// DefaultConfig returns 10% tolerance and a 20s price deadline
func DefaultConfig() Config {
	return Config{
		TolerancePct: decimal.NewFromInt(10),
		PriceTimeout: 20 * time.Second,
	}
}

// Reconciler implements S7: position confirmation
// ⭐ SSOT: S7 체결 확인 로직은 여기서만
type Reconciler struct {
	store  Store
	config Config
	logger *logger.Logger
	now    func() time.Time
}

// NewReconciler creates a new reconciler
func NewReconciler(store Store, config Config, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		config: config,
		logger: log.WithStage(contracts.StageConfirmation.ShortName()),
		now:    time.Now,
	}
}

// Confirm reconciles user-reported fills with a run.
//   - force: accepted verbatim
//   - otherwise the live value is compared with run capital; beyond tolerance → Warning
//   - live prices unavailable → MarketDataUnavailable
//
// Only a Confirmed outcome completes the run. Re-submitting the same positions
// to a completed run replays the stored confirmation.
func (r *Reconciler) Confirm(ctx context.Context, run *contracts.Run, sub *contracts.Submission, prices contracts.LivePriceFetcher) (*contracts.Outcome, error) {
	if run == nil {
		return nil, fmt.Errorf("confirm: run: %w", contracts.ErrNotFound)
	}
	log := r.logger.WithRun(run.ID)

	normalized, err := Normalize(sub)
	if err != nil {
		return nil, err
	}
	if missing := MissingTargets(run, normalized); len(missing) > 0 {
		return nil, contracts.NewValidationError("positions", "missing target symbols %v", missing)
	}

	key := IdempotencyKey(run.ID, normalized)

	if run.Status == contracts.RunCompleted {
		if run.ConfirmationKey != key {
			return nil, fmt.Errorf("run %d already confirmed with different positions: %w", run.ID, contracts.ErrPreconditionViolation)
		}
		stored, err := r.store.GetConfirmation(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("load confirmation: %w", err)
		}
		log.Info("Replaying stored confirmation")
		return replayed(stored), nil
	}

	if !normalized.Force {
		outcome, err := r.checkDiscrepancy(ctx, run, normalized, prices)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			log.WithFields(map[string]interface{}{
				"status":  outcome.Kind,
				"message": outcome.Message,
			}).Warn("Confirmation not accepted")
			return outcome, nil
		}
	}

	conf := &contracts.Confirmation{
		RunID:       run.ID,
		Holdings:    normalized.Holdings(),
		Cash:        normalized.Cash,
		Key:         key,
		ConfirmedAt: r.now().UTC(),
	}
	if err := r.store.CompleteRun(ctx, conf); err != nil {
		// 동시 제출에서 진 쪽: 같은 내용이 먼저 저장됐으면 그 결과를 재생
		if errors.Is(err, contracts.ErrPreconditionViolation) {
			if stored, lerr := r.store.GetConfirmation(ctx, run.ID); lerr == nil && stored.Key == key {
				run.Status = contracts.RunCompleted
				run.ConfirmationKey = key
				log.Info("Run confirmed concurrently with identical positions, replaying")
				return replayed(stored), nil
			}
		}
		return nil, fmt.Errorf("complete run %d: %w", run.ID, err)
	}
	run.Status = contracts.RunCompleted
	run.ConfirmationKey = key

	log.WithFields(map[string]interface{}{
		"positions": len(conf.Holdings),
		"cash":      conf.Cash.String(),
		"force":     normalized.Force,
	}).Info("Positions confirmed")

	return &contracts.Outcome{
		Kind:     contracts.OutcomeConfirmed,
		RunID:    run.ID,
		Holdings: conf.Holdings,
		Cash:     conf.Cash,
	}, nil
}

func replayed(stored *contracts.Confirmation) *contracts.Outcome {
	return &contracts.Outcome{
		Kind:     contracts.OutcomeConfirmed,
		RunID:    stored.RunID,
		Holdings: stored.Holdings,
		Cash:     stored.Cash,
		Replayed: true,
	}
}

// checkDiscrepancy returns a non-nil outcome when the submission must not be accepted
func (r *Reconciler) checkDiscrepancy(ctx context.Context, run *contracts.Run, sub *contracts.Submission, prices contracts.LivePriceFetcher) (*contracts.Outcome, error) {
	var symbols []string
	for _, p := range sub.Positions {
		if p.Shares.IsPositive() {
			symbols = append(symbols, p.Symbol)
		}
	}

	live := map[string]decimal.Decimal{}
	if len(symbols) > 0 {
		pctx, cancel := context.WithTimeout(ctx, r.config.PriceTimeout)
		defer cancel()

		var err error
		live, err = prices.LatestPrices(pctx, symbols)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return &contracts.Outcome{
				Kind:    contracts.OutcomeMarketDataUnavailable,
				RunID:   run.ID,
				Message: "live prices unavailable, confirm with force to accept as entered: " + describe(err),
			}, nil
		}
	}

	value := sub.Cash
	for _, p := range sub.Positions {
		if !p.Shares.IsPositive() {
			continue
		}
		price, ok := live[p.Symbol]
		if !ok {
			return &contracts.Outcome{
				Kind:    contracts.OutcomeMarketDataUnavailable,
				RunID:   run.ID,
				Message: "no live price for " + p.Symbol,
			}, nil
		}
		value = value.Add(p.Shares.Mul(price))
	}
	value = contracts.RoundMoney(value)

	discrepancy := DiscrepancyPct(value, run.TotalCapital)
	if discrepancy.LessThanOrEqual(r.config.TolerancePct) {
		return nil, nil
	}

	return &contracts.Outcome{
		Kind:     contracts.OutcomeWarning,
		RunID:    run.ID,
		Holdings: sub.Holdings(),
		Cash:     sub.Cash,
		Message: fmt.Sprintf("live value %s differs from run capital %s by %s%% (tolerance %s%%)",
			contracts.FormatMoney(value, contracts.BaseCurrency),
			contracts.FormatMoney(run.TotalCapital, contracts.BaseCurrency),
			discrepancy.StringFixed(2), r.config.TolerancePct.String()),
		Discrepancy: &discrepancy,
		LiveValue:   &value,
	}, nil
}

// DiscrepancyPct is |value − capital| / capital × 100, rounded to 2dp
func DiscrepancyPct(value, capital decimal.Decimal) decimal.Decimal {
	if capital.IsZero() {
		if value.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return value.Sub(capital).Abs().Div(capital).Mul(decimal.NewFromInt(100)).Round(2)
}

func describe(err error) string {
	var missing *contracts.MissingPricesError
	if errors.As(err, &missing) {
		return fmt.Sprintf("missing %v", missing.Symbols)
	}
	return err.Error()
}
