package s2_signals

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// MomentumCalculator calculates momentum signals
// ⭐ SSOT: 모멘텀 시그널 계산은 여기서만
type MomentumCalculator struct {
	months int
	logger *logger.Logger
}

// NewMomentumCalculator creates a new momentum calculator over the last months returns
func NewMomentumCalculator(months int, log *logger.Logger) *MomentumCalculator {
	return &MomentumCalculator{
		months: months,
		logger: log,
	}
}

// Calculate returns the mean of the last N completed-month returns
func (c *MomentumCalculator) Calculate(symbol string, monthly []contracts.MonthlyBar) (float64, error) {
	returns, err := MonthlyReturns(monthly)
	if err != nil {
		return 0, err
	}
	if len(returns) < c.months {
		return 0, fmt.Errorf("momentum needs %d monthly returns, have %d: %w", c.months, len(returns), contracts.ErrInsufficientData)
	}

	window := returns[len(returns)-c.months:]
	momentum := stat.Mean(window, nil)

	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"returns":  window,
		"momentum": momentum,
	}).Debug("Calculated momentum")

	return momentum, nil
}
