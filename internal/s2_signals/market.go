package s2_signals

import (
	"fmt"
	"time"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// EvaluateMarket applies the index circuit breaker: open only when the last
// fully closed index close is strictly above its SMA.
// Insufficient index history fails the run with ErrDataUnavailable.
func EvaluateMarket(indexSymbol string, bars []contracts.PriceBar, asOf time.Time, maLength int) (*contracts.MarketFilter, error) {
	closed := ClosedBefore(bars, asOf)
	if len(closed) == 0 {
		return nil, fmt.Errorf("index %s: no closed bars before %s: %w", indexSymbol, asOf.Format("2006-01-02"), contracts.ErrDataUnavailable)
	}

	ma, err := LastSMA(Closes(closed), maLength)
	if err != nil {
		return nil, fmt.Errorf("index %s: %v: %w", indexSymbol, err, contracts.ErrDataUnavailable)
	}

	last := closed[len(closed)-1]
	return &contracts.MarketFilter{
		IndexSymbol: indexSymbol,
		AsOf:        last.Date,
		Close:       last.Close,
		MA:          ma,
		Open:        last.Close > ma,
	}, nil
}
