package contracts

import "time"

// PriceBar is one daily bar. Open/High/Low are zero when the source only has closes.
type PriceBar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open,omitempty"`
	High  float64   `json:"high,omitempty"`
	Low   float64   `json:"low,omitempty"`
	Close float64   `json:"close"`
}

// HasRange reports whether the bar carries a usable high/low range
func (b PriceBar) HasRange() bool {
	return b.High > 0 && b.Low > 0 && b.High >= b.Low
}

// MonthlyBar is the last daily bar of one completed calendar month
type MonthlyBar struct {
	Month time.Time `json:"month"` // first day of the month (UTC)
	Open  float64   `json:"open,omitempty"`
	High  float64   `json:"high,omitempty"`
	Low   float64   `json:"low,omitempty"`
	Close float64   `json:"close"`
}

// Candidate is one scored symbol passed from S2/S3 to S4/S5
// ⭐ SSOT: 스코어링 결과 (런 단위, 비영속)
type Candidate struct {
	Symbol        string       `json:"symbol"`
	MonthlyCloses []MonthlyBar `json:"monthly_closes"`
	CurrentPrice  float64      `json:"current_price"` // 마지막 일봉 종가
	MA220         float64      `json:"ma220"`
	Momentum      float64      `json:"momentum"`   // 최근 3개월 수익률 평균
	Volatility    float64      `json:"volatility"` // 최근 8개월 Wilder ATR 평균
	Score         float64      `json:"score"`      // Momentum / Volatility
	Rank          int          `json:"rank"`       // 1-based
}

// MarketFilter records the index circuit breaker evaluation
type MarketFilter struct {
	IndexSymbol string    `json:"index_symbol"`
	AsOf        time.Time `json:"as_of"` // 마지막 일봉 날짜
	Close       float64   `json:"close"`
	MA          float64   `json:"ma"`
	Open        bool      `json:"open"` // Close > MA
}

// ScoreResult is the output of one scoring pass
type ScoreResult struct {
	AsOf       time.Time         `json:"as_of"`
	MonthEnd   time.Time         `json:"month_end"` // 마지막 완료 월의 말일
	MarketOpen bool              `json:"market_open"`
	Market     MarketFilter      `json:"market"`
	Candidates []Candidate       `json:"candidates"` // ranked, best first
	Excluded   map[string]string `json:"excluded"`   // symbol: reason
}

// Top returns at most n best candidates
func (r *ScoreResult) Top(n int) []Candidate {
	if n > len(r.Candidates) {
		n = len(r.Candidates)
	}
	return r.Candidates[:n]
}

// Exclusion reasons recorded in ScoreResult.Excluded
const (
	ReasonInsufficientHistory = "insufficient_history"
	ReasonBelowMA             = "below_ma"
	ReasonNonPositiveVol      = "non_positive_volatility"
	ReasonDataUnavailable     = "data_unavailable"
)
