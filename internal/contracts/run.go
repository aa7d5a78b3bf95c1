package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriggerType records what started a run
type TriggerType string

const (
	TriggerAuto   TriggerType = "auto"   // 월간 스케줄러
	TriggerManual TriggerType = "manual" // 사용자 요청
	TriggerTest   TriggerType = "test"
)

// Valid reports whether the trigger is one of the known values
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerAuto, TriggerManual, TriggerTest:
		return true
	}
	return false
}

// TriggerFromMode maps a generation mode (monthly/manual/test) to a trigger type
func TriggerFromMode(mode string) (TriggerType, bool) {
	switch mode {
	case "monthly", "auto":
		return TriggerAuto, true
	case "manual":
		return TriggerManual, true
	case "test":
		return TriggerTest, true
	}
	return "", false
}

// RunStatus is the lifecycle state of a run (pending → completed, once)
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunCompleted RunStatus = "completed"
)

// Run is one generation of target portfolio + rebalance plan
// ⭐ SSOT: 런 = 목표 포트폴리오 + 리밸런싱 계획 + 확인 상태
type Run struct {
	ID          int64       `json:"id"`
	RunDate     time.Time   `json:"run_date"`
	TriggerType TriggerType `json:"trigger_type"`
	Status      RunStatus   `json:"status"`

	TotalCapital   decimal.Decimal `json:"total_capital"` // USD
	UninvestedCash decimal.Decimal `json:"uninvested_cash"`

	// 입력 통화 + FX 스냅샷 (생성 시 1회, 재조회 없음)
	InputCurrency   string          `json:"input_currency"`
	FXRateToUSD     decimal.Decimal `json:"fx_rate_to_usd"`
	FXRateTimestamp *time.Time      `json:"fx_rate_timestamp,omitempty"`

	MarketOpen             bool               `json:"market_open"`
	Allocations            []TargetAllocation `json:"allocations"`
	CashflowMoves          []CashflowMove     `json:"cashflow_moves"`
	SwapMoves              []SwapMove         `json:"swap_moves"`
	AllocationResidualCash decimal.Decimal    `json:"allocation_residual_cash"` // capital − Σ amount (센트 절사분)

	ConfirmationKey string    `json:"confirmation_key,omitempty"`
	StrategyHash    string    `json:"strategy_hash,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsPending reports whether the run still awaits confirmation
func (r *Run) IsPending() bool {
	return r.Status == RunPending
}

// TargetSymbols returns the allocation symbols of the run
func (r *Run) TargetSymbols() []string {
	out := make([]string, 0, len(r.Allocations))
	for _, a := range r.Allocations {
		out = append(out, a.Symbol)
	}
	return out
}

// RunSummary is the list view of a run
type RunSummary struct {
	ID            int64           `json:"id"`
	RunDate       time.Time       `json:"run_date"`
	TriggerType   TriggerType     `json:"trigger_type"`
	Status        RunStatus       `json:"status"`
	TotalCapital  decimal.Decimal `json:"total_capital"`
	InputCurrency string          `json:"input_currency"`
	MarketOpen    bool            `json:"market_open"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Summary returns the list view of the run
func (r *Run) Summary() RunSummary {
	return RunSummary{
		ID:            r.ID,
		RunDate:       r.RunDate,
		TriggerType:   r.TriggerType,
		Status:        r.Status,
		TotalCapital:  r.TotalCapital,
		InputCurrency: r.InputCurrency,
		MarketOpen:    r.MarketOpen,
		CreatedAt:     r.CreatedAt,
	}
}

// Confirmation is the investor's reported actual holdings after executing a run
type Confirmation struct {
	RunID       int64           `json:"run_id"`
	Holdings    []Holding       `json:"holdings"`
	Cash        decimal.Decimal `json:"cash"`
	Key         string          `json:"key"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

// SchedulerStatus is the outcome of one scheduled execution
type SchedulerStatus string

const (
	SchedulerSuccess SchedulerStatus = "success"
	SchedulerError   SchedulerStatus = "error"
)

// MaxSchedulerErrorLen bounds the stored error message
const MaxSchedulerErrorLen = 500

// SchedulerLog is one row of the scheduler execution history
type SchedulerLog struct {
	ID           int64           `json:"id"`
	ExecutionID  string          `json:"execution_id"`
	JobName      string          `json:"job_name"`
	RunDate      time.Time       `json:"run_date"`
	Status       SchedulerStatus `json:"status"`
	RunID        *int64          `json:"run_id,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TruncateError clips an error message to MaxSchedulerErrorLen runes
func TruncateError(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxSchedulerErrorLen {
		return msg
	}
	return string(r[:MaxSchedulerErrorLen])
}
