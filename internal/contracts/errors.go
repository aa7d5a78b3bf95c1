package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every stage.
// 모든 에러는 %w 로 감싸서 전달하고 errors.Is 로 판별한다.
var (
	// ErrInsufficientData: a symbol lacks the history needed for scoring (symbol is skipped)
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMarketClosed: the index circuit breaker is off (informational)
	ErrMarketClosed = errors.New("market filter closed")

	// ErrDataUnavailable: index history, a live price or an FX rate could not be obtained
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrPreconditionViolation: state does not allow the operation (pending run exists, run already confirmed, ...)
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrDiscrepancy: confirmed positions drift beyond tolerance (informational)
	ErrDiscrepancy = errors.New("discrepancy above tolerance")

	// ErrNotFound: requested entity does not exist
	ErrNotFound = errors.New("not found")
)

// ValidationError reports invalid boundary input
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MissingPricesError lists symbols without a live price.
// It unwraps to ErrDataUnavailable.
type MissingPricesError struct {
	Symbols []string
}

func (e *MissingPricesError) Error() string {
	return fmt.Sprintf("data unavailable: no live price for %v", e.Symbols)
}

func (e *MissingPricesError) Unwrap() error {
	return ErrDataUnavailable
}
