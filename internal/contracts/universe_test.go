package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUniverse_DedupSorted(t *testing.T) {
	u := NewUniverse(time.Now(), "static", []string{"MSFT", "AAPL", "", "MSFT", "NVDA"})

	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, u.Symbols)
	assert.Equal(t, 3, u.Count())
	assert.True(t, u.Contains("MSFT"))
	assert.False(t, u.Contains("GOOGL"))
}

func TestUniverse_Exclude(t *testing.T) {
	u := NewUniverse(time.Now(), "static", []string{"AAPL", "GOOG", "GOOGL"})
	u.Exclude("GOOGL", "duplicate share class")
	u.Exclude("TSLA", "not present")

	assert.Equal(t, []string{"AAPL", "GOOG"}, u.Symbols)
	excluded, reason := u.IsExcluded("GOOGL")
	assert.True(t, excluded)
	assert.Equal(t, "duplicate share class", reason)

	excluded, _ = u.IsExcluded("TSLA")
	assert.False(t, excluded)
}

func TestErrorTaxonomy(t *testing.T) {
	err := fmt.Errorf("plan: %w", &MissingPricesError{Symbols: []string{"AAPL"}})
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	verr := fmt.Errorf("confirm: %w", NewValidationError("cash", "must be >= 0, got %s", "-1"))
	assert.True(t, IsValidation(verr))
	assert.Equal(t, "confirm: validation: cash: must be >= 0, got -1", verr.Error())
}

func TestStages(t *testing.T) {
	assert.Len(t, AllStages(), 8)
	assert.Equal(t, "S6", StageRebalance.ShortName())
	assert.True(t, IsValidStage("S1_UNIVERSE"))
	assert.False(t, IsValidStage("S0_DATA_QUALITY"))
}

func TestTriggerFromMode(t *testing.T) {
	tr, ok := TriggerFromMode("monthly")
	assert.True(t, ok)
	assert.Equal(t, TriggerAuto, tr)

	_, ok = TriggerFromMode("weekly")
	assert.False(t, ok)
}
