package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그와 DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S1 → S2 → S3 → S4 → S5 → S6 → S7 → S8
//   Universe  Signals  Screener  Ranker  Portfolio  Rebalance  Confirm  Valuation

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: 투자 가능 종목
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageSignals S2: 시장 필터, MA220, 모멘텀, Wilder 변동성
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StageScreener S3: MA220 하회 / 변동성 0 이하 제거
	// 위치: internal/selection/screener.go
	StageScreener Stage = "S3_SCREENER"

	// StageRanker S4: momentum/volatility 점수 순위
	// 위치: internal/selection/ranker.go
	StageRanker Stage = "S4_RANKER"

	// StagePortfolio S5: 코어 ETF 30% + 상위 4종목 70%
	// 위치: internal/portfolio/
	StagePortfolio Stage = "S5_PORTFOLIO"

	// StageRebalance S6: cashflow / swap 주문 순서
	// 위치: internal/execution/
	StageRebalance Stage = "S6_REBALANCE"

	// StageConfirmation S7: 사용자 체결 확인, 허용오차 검증
	// 위치: internal/confirmation/
	StageConfirmation Stage = "S7_CONFIRMATION"

	// StageValuation S8: 실시간 평가손익
	// 위치: internal/audit/
	StageValuation Stage = "S8_VALUATION"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S1", "S2")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S1"
	case StageSignals:
		return "S2"
	case StageScreener:
		return "S3"
	case StageRanker:
		return "S4"
	case StagePortfolio:
		return "S5"
	case StageRebalance:
		return "S6"
	case StageConfirmation:
		return "S7"
	case StageValuation:
		return "S8"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageSignals,
		StageScreener,
		StageRanker,
		StagePortfolio,
		StageRebalance,
		StageConfirmation,
		StageValuation,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult records one stage execution of a run
type StageResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}
