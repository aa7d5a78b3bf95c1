package strategyconfig

import "time"

// Config는 모멘텀/변동성 전략의 전체 설정
type Config struct {
	Meta         Meta         `yaml:"meta" json:"meta"`
	Universe     Universe     `yaml:"universe" json:"universe"`
	Signals      Signals      `yaml:"signals" json:"signals"`
	Portfolio    Portfolio    `yaml:"portfolio" json:"portfolio"`
	Execution    Execution    `yaml:"execution" json:"execution"`
	Confirmation Confirmation `yaml:"confirmation" json:"confirmation"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
	Schedule   string `yaml:"schedule" json:"schedule"` // cron (seconds field 포함)
}

// Universe S1: 투자 가능 풀
type Universe struct {
	Source  string   `yaml:"source" json:"source"`   // wikipedia | static
	Static  []string `yaml:"static" json:"static"`   // source=static 일 때 사용
	Exclude []string `yaml:"exclude" json:"exclude"` // 중복 클래스 등 (GOOGL)
}

// Signals S2: 시장 필터 + 모멘텀/변동성
type Signals struct {
	IndexSymbol      string  `yaml:"index_symbol" json:"index_symbol"`
	MALength         int     `yaml:"ma_length" json:"ma_length"`                 // 일봉 SMA 길이 (220)
	MomentumMonths   int     `yaml:"momentum_months" json:"momentum_months"`     // 3
	VolatilityMonths int     `yaml:"volatility_months" json:"volatility_months"` // 8
	WilderPeriod     float64 `yaml:"wilder_period" json:"wilder_period"`         // alpha = 1/period
	LookbackDays     int     `yaml:"lookback_days" json:"lookback_days"`         // 히스토리 조회 기간
	Concurrency      int     `yaml:"concurrency" json:"concurrency"`             // 종목 병렬 조회 수
}

// MinMonths returns the number of completed months a symbol needs
func (s Signals) MinMonths() int {
	m := s.MomentumMonths + 1
	if v := s.VolatilityMonths + 1; v > m {
		m = v
	}
	return m
}

// Shortfall policies when the market is open but fewer than TopN candidates survive
const (
	ShortfallDefensive    = "defensive"
	ShortfallProportional = "proportional"
)

// Portfolio S5: 포트폴리오 구성
type Portfolio struct {
	CoreETF         string  `yaml:"core_etf" json:"core_etf"`
	DefensiveETF    string  `yaml:"defensive_etf" json:"defensive_etf"`
	CoreWeight      float64 `yaml:"core_weight" json:"core_weight"` // 0.30
	TopN            int     `yaml:"top_n" json:"top_n"`             // 4
	ShortfallPolicy string  `yaml:"shortfall_policy" json:"shortfall_policy"`
}

// Execution S6: 리밸런싱 계획
type Execution struct {
	SharePrecision      int `yaml:"share_precision" json:"share_precision"`
	PriceTimeoutSeconds int `yaml:"price_timeout_seconds" json:"price_timeout_seconds"`
}

// PriceTimeout returns the live-price deadline
func (e Execution) PriceTimeout() time.Duration {
	return time.Duration(e.PriceTimeoutSeconds) * time.Second
}

// Confirmation S7: 체결 확인
type Confirmation struct {
	TolerancePct float64 `yaml:"tolerance_pct" json:"tolerance_pct"` // 10 = 10%
}

// Default returns the built-in strategy used when no YAML file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "momentum_vola",
			Version:    "1",
			Timezone:   "Europe/Paris",
			Schedule:   "0 0 11 1 * *",
		},
		Universe: Universe{
			Source:  "wikipedia",
			Exclude: []string{"GOOGL"},
		},
		Signals: Signals{
			IndexSymbol:      "SPY",
			MALength:         220,
			MomentumMonths:   3,
			VolatilityMonths: 8,
			WilderPeriod:     14,
			LookbackDays:     913,
			Concurrency:      8,
		},
		Portfolio: Portfolio{
			CoreETF:         "VOO",
			DefensiveETF:    "SGOV",
			CoreWeight:      0.30,
			TopN:            4,
			ShortfallPolicy: ShortfallDefensive,
		},
		Execution: Execution{
			SharePrecision:      4,
			PriceTimeoutSeconds: 20,
		},
		Confirmation: Confirmation{
			TolerancePct: 10,
		},
	}
}
