package portfolio

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Allocation reasons
const (
	ReasonCoreETF      = "core_etf"
	ReasonMomentumRank = "momentum_rank"
	ReasonDefensive    = "defensive"
)

// Shortfall policies
const (
	ShortfallDefensive    = "defensive"
	ShortfallProportional = "proportional"
)

// weightPrecision bounds the decimals of a split weight (0.7/3 …)
const weightPrecision = 8

// Constructor implements S5: Portfolio construction
// ⭐ SSOT: S5 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	config      PortfolioConfig
	constraints Constraints
	logger      *logger.Logger
	now         func() time.Time
}

// PortfolioConfig defines portfolio construction parameters
type PortfolioConfig struct {
	CoreETF         string          // 코어 ETF (VOO)
	DefensiveETF    string          // 방어 ETF (SGOV)
	CoreWeight      decimal.Decimal // 코어 비중 (0.30)
	TopN            int             // 주식 종목 수 (4)
	ShortfallPolicy string          // 종목 부족 시: defensive | proportional
}

// DefaultConfig returns the 30% VOO + 4 × 17.5% configuration
func DefaultConfig() PortfolioConfig {
	return PortfolioConfig{
		CoreETF:         "VOO",
		DefensiveETF:    "SGOV",
		CoreWeight:      decimal.RequireFromString("0.30"),
		TopN:            4,
		ShortfallPolicy: ShortfallDefensive,
	}
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(config PortfolioConfig, constraints Constraints, log *logger.Logger) *Constructor {
	return &Constructor{
		config:      config,
		constraints: constraints,
		logger:      log.WithStage(contracts.StagePortfolio.ShortName()),
		now:         time.Now,
	}
}

// Construct builds the target portfolio from ranked candidates.
// Market closed or too few candidates → 100% defensive ETF.
// Amounts are truncated to cents; the remainder goes to ResidualCash so
// Σ amount + residual == capital exactly.
func (c *Constructor) Construct(ctx context.Context, ranked []contracts.Candidate, capital decimal.Decimal, marketOpen bool) (*contracts.TargetPortfolio, error) {
	if !capital.IsPositive() {
		return nil, contracts.NewValidationError("capital", "must be > 0, got %s", capital.String())
	}

	target := &contracts.TargetPortfolio{
		Date:       c.now().UTC(),
		Capital:    capital,
		MarketOpen: marketOpen,
	}

	picks := c.selectTopN(ranked)
	weights := c.calculateWeights(picks, marketOpen)
	if len(weights) == 1 && weights[0].Symbol == c.config.DefensiveETF {
		target.Defensive = true
	}

	allocated := decimal.Zero
	for _, w := range weights {
		w.Amount = contracts.TruncateMoney(capital.Mul(w.Weight))
		allocated = allocated.Add(w.Amount)
		target.Allocations = append(target.Allocations, w)
	}
	target.ResidualCash = capital.Sub(allocated)

	c.logger.WithFields(map[string]interface{}{
		"positions":     target.Count(),
		"defensive":     target.Defensive,
		"capital":       capital.String(),
		"residual_cash": target.ResidualCash.String(),
	}).Info("Portfolio constructed")

	return target, nil
}

// selectTopN returns the best TopN candidates that are not blacklisted
func (c *Constructor) selectTopN(ranked []contracts.Candidate) []contracts.Candidate {
	out := make([]contracts.Candidate, 0, c.config.TopN)
	for _, cand := range ranked {
		if len(out) == c.config.TopN {
			break
		}
		if c.constraints.IsBlackListed(cand.Symbol) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// calculateWeights assigns weights summing to exactly 1
func (c *Constructor) calculateWeights(picks []contracts.Candidate, marketOpen bool) []contracts.TargetAllocation {
	n := len(picks)
	switch {
	case !marketOpen:
		return c.defensive("market_closed")
	case n == 0:
		return c.defensive("no_candidates")
	case n < c.config.TopN && c.config.ShortfallPolicy != ShortfallProportional:
		return c.defensive("insufficient_candidates")
	}

	one := decimal.NewFromInt(1)
	equity := one.Sub(c.config.CoreWeight)
	each := equity.DivRound(decimal.NewFromInt(int64(n)), weightPrecision)

	out := make([]contracts.TargetAllocation, 0, n+1)
	out = append(out, contracts.TargetAllocation{
		Symbol: c.config.CoreETF,
		Weight: c.config.CoreWeight,
		Reason: ReasonCoreETF,
	})

	sum := c.config.CoreWeight
	for i, cand := range picks {
		w := each
		if i == n-1 {
			w = one.Sub(sum) // 반올림 잔차는 마지막 종목에
		}
		sum = sum.Add(w)
		out = append(out, contracts.TargetAllocation{
			Symbol: cand.Symbol,
			Weight: w,
			Rank:   cand.Rank,
			Reason: ReasonMomentumRank,
		})
	}
	return out
}

func (c *Constructor) defensive(why string) []contracts.TargetAllocation {
	c.logger.WithField("reason", why).Warn("Switching to defensive allocation")
	return []contracts.TargetAllocation{{
		Symbol: c.config.DefensiveETF,
		Weight: decimal.NewFromInt(1),
		Reason: ReasonDefensive,
	}}
}
