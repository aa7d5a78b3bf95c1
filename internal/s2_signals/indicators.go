package s2_signals

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// Closes extracts the close series of daily bars
func Closes(bars []contracts.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// ClosedBefore keeps bars whose trading day ends before cutoff's calendar day (UTC)
func ClosedBefore(bars []contracts.PriceBar, cutoff time.Time) []contracts.PriceBar {
	day := truncateDay(cutoff)
	n := 0
	for n < len(bars) && bars[n].Date.Before(day) {
		n++
	}
	return bars[:n]
}

// LastSMA returns the simple moving average of the last period closes
func LastSMA(closes []float64, period int) (float64, error) {
	if period < 2 || len(closes) < period {
		return 0, fmt.Errorf("sma%d needs %d closes, have %d: %w", period, period, len(closes), contracts.ErrInsufficientData)
	}

	sma := talib.Sma(closes, period)
	last := sma[len(sma)-1]
	if math.IsNaN(last) {
		return 0, fmt.Errorf("sma%d undefined: %w", period, contracts.ErrInsufficientData)
	}
	return last, nil
}

// MonthlyBars resamples daily bars into completed calendar months strictly before asOf's month.
// Each month takes the values of its last trading day.
func MonthlyBars(bars []contracts.PriceBar, asOf time.Time) []contracts.MonthlyBar {
	current := monthStart(asOf)
	out := make([]contracts.MonthlyBar, 0, 32)

	for _, b := range bars {
		m := monthStart(b.Date)
		if !m.Before(current) {
			break
		}
		if b.Close <= 0 || math.IsNaN(b.Close) {
			continue
		}

		mb := contracts.MonthlyBar{Month: m, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
		if n := len(out); n > 0 && out[n-1].Month.Equal(m) {
			out[n-1] = mb
			continue
		}
		out = append(out, mb)
	}
	return out
}

// MonthEnd returns the last day of the month preceding asOf's month
func MonthEnd(asOf time.Time) time.Time {
	return monthStart(asOf).AddDate(0, 0, -1)
}

// MonthlyReturns returns close_m / close_{m-1} − 1 for each consecutive pair
func MonthlyReturns(months []contracts.MonthlyBar) ([]float64, error) {
	if len(months) < 2 {
		return nil, nil
	}
	out := make([]float64, 0, len(months)-1)
	for i := 1; i < len(months); i++ {
		prev := months[i-1].Close
		if prev <= 0 {
			return nil, fmt.Errorf("non-positive close in %s: %w", months[i-1].Month.Format("2006-01"), contracts.ErrInsufficientData)
		}
		out = append(out, months[i].Close/prev-1)
	}
	return out, nil
}

// TrueRanges returns the true range of each month.
// With a high/low range: max(H−L, |H−Cp|, |L−Cp|), the first month being H−L.
// Close-only months degrade to |C−Cp| and the first month has no value.
func TrueRanges(months []contracts.MonthlyBar) []float64 {
	out := make([]float64, 0, len(months))
	for i, m := range months {
		hasRange := m.High > 0 && m.Low > 0 && m.High >= m.Low
		if i == 0 {
			if hasRange {
				out = append(out, m.High-m.Low)
			}
			continue
		}

		prevClose := months[i-1].Close
		if !hasRange {
			out = append(out, math.Abs(m.Close-prevClose))
			continue
		}
		tr := m.High - m.Low
		tr = math.Max(tr, math.Abs(m.High-prevClose))
		tr = math.Max(tr, math.Abs(m.Low-prevClose))
		out = append(out, tr)
	}
	return out
}

// WilderATR smooths true ranges with alpha = 1/period, seeded with the first value
// (exponential smoothing without bias adjustment).
func WilderATR(trueRanges []float64, period float64) []float64 {
	if len(trueRanges) == 0 || period <= 0 {
		return nil
	}
	alpha := 1 / period
	out := make([]float64, len(trueRanges))
	out[0] = trueRanges[0]
	for i := 1; i < len(trueRanges); i++ {
		out[i] = alpha*trueRanges[i] + (1-alpha)*out[i-1]
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
