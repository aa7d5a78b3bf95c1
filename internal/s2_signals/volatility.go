package s2_signals

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// VolatilityCalculator averages monthly Wilder ATR values
// ⭐ SSOT: 변동성 계산은 여기서만
type VolatilityCalculator struct {
	months int
	period float64
	logger *logger.Logger
}

// NewVolatilityCalculator creates a calculator averaging the last months ATR values
// smoothed with alpha = 1/period
func NewVolatilityCalculator(months int, period float64, log *logger.Logger) *VolatilityCalculator {
	return &VolatilityCalculator{
		months: months,
		period: period,
		logger: log,
	}
}

// Calculate returns mean(ATR[-N:]) over completed months
func (c *VolatilityCalculator) Calculate(symbol string, monthly []contracts.MonthlyBar) (float64, error) {
	atr := WilderATR(TrueRanges(monthly), c.period)
	if len(atr) < c.months {
		return 0, fmt.Errorf("volatility needs %d ATR values, have %d: %w", c.months, len(atr), contracts.ErrInsufficientData)
	}

	window := atr[len(atr)-c.months:]
	vol := stat.Mean(window, nil)

	c.logger.WithFields(map[string]interface{}{
		"symbol":     symbol,
		"atr_last":   window[len(window)-1],
		"volatility": vol,
	}).Debug("Calculated volatility")

	return vol, nil
}
