package strategyconfig

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
		return ValidationError{"meta.timezone", err.Error()}
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cfg.Meta.Schedule); err != nil {
		return ValidationError{"meta.schedule", err.Error()}
	}

	// === Universe ===
	switch cfg.Universe.Source {
	case "wikipedia":
	case "static":
		if len(cfg.Universe.Static) == 0 {
			return ValidationError{"universe.static", "required when source=static"}
		}
	default:
		return ValidationError{"universe.source", "must be wikipedia or static"}
	}

	// === Signals ===
	s := cfg.Signals
	if s.IndexSymbol == "" {
		return ValidationError{"signals.index_symbol", "required"}
	}
	if s.MALength < 2 {
		return ValidationError{"signals.ma_length", "must be >= 2"}
	}
	if s.MomentumMonths < 1 {
		return ValidationError{"signals.momentum_months", "must be >= 1"}
	}
	if s.VolatilityMonths < 1 {
		return ValidationError{"signals.volatility_months", "must be >= 1"}
	}
	if s.WilderPeriod < 1 {
		return ValidationError{"signals.wilder_period", "must be >= 1"}
	}
	// MA 길이 + 완료 월 수를 모두 덮어야 함
	if s.LookbackDays < s.MALength || s.LookbackDays < (s.MinMonths()+1)*31 {
		return ValidationError{"signals.lookback_days", "too short for ma_length and required months"}
	}
	if s.Concurrency < 1 {
		return ValidationError{"signals.concurrency", "must be >= 1"}
	}

	// === Portfolio ===
	p := cfg.Portfolio
	if p.CoreETF == "" {
		return ValidationError{"portfolio.core_etf", "required"}
	}
	if p.DefensiveETF == "" {
		return ValidationError{"portfolio.defensive_etf", "required"}
	}
	if err := validatePctRange(p.CoreWeight, "portfolio.core_weight"); err != nil {
		return err
	}
	if p.TopN < 1 {
		return ValidationError{"portfolio.top_n", "must be >= 1"}
	}
	switch p.ShortfallPolicy {
	case ShortfallDefensive, ShortfallProportional:
	default:
		return ValidationError{"portfolio.shortfall_policy", "must be defensive or proportional"}
	}

	// === Execution ===
	if cfg.Execution.SharePrecision < 0 || cfg.Execution.SharePrecision > 8 {
		return ValidationError{"execution.share_precision", "must be in range [0, 8]"}
	}
	if cfg.Execution.PriceTimeoutSeconds <= 0 {
		return ValidationError{"execution.price_timeout_seconds", "must be > 0"}
	}

	// === Confirmation ===
	if cfg.Confirmation.TolerancePct <= 0 || cfg.Confirmation.TolerancePct > 100 {
		return ValidationError{"confirmation.tolerance_pct", "must be in (0, 100]"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Signals.WilderPeriod != 14 {
		warnings = append(warnings, Warning{
			Code:    "NONSTANDARD_WILDER",
			Message: "wilder_period != 14: 변동성 스케일이 기본값과 다름",
		})
	}

	if cfg.Portfolio.CoreETF == cfg.Portfolio.DefensiveETF {
		warnings = append(warnings, Warning{
			Code:    "SAME_ETF",
			Message: "core_etf == defensive_etf: 방어 전환 효과 없음",
		})
	}

	if cfg.Confirmation.TolerancePct > 25 {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_TOLERANCE",
			Message: "tolerance_pct > 25%: 입력 오류를 놓칠 수 있음",
		})
	}

	return warnings
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
