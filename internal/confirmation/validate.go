package confirmation

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// Normalize validates a submission at the boundary and returns a copy with
// trimmed upper-case symbols, shares and avg price rounded to 4dp, cash to 2dp,
// positions sorted by symbol.
func Normalize(sub *contracts.Submission) (*contracts.Submission, error) {
	if sub == nil {
		return nil, contracts.NewValidationError("submission", "required")
	}
	if sub.Cash.IsNegative() {
		return nil, contracts.NewValidationError("cash", "must be >= 0, got %s", sub.Cash.String())
	}

	out := &contracts.Submission{
		Positions: make([]contracts.SubmittedPosition, 0, len(sub.Positions)),
		Cash:      contracts.RoundMoney(sub.Cash),
		Force:     sub.Force,
	}

	seen := make(map[string]bool, len(sub.Positions))
	for i, p := range sub.Positions {
		field := "positions[" + strconv.Itoa(i) + "]"
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if symbol == "" {
			return nil, contracts.NewValidationError(field+".symbol", "must not be empty")
		}
		if seen[symbol] {
			return nil, contracts.NewValidationError(field+".symbol", "duplicate symbol %s", symbol)
		}
		seen[symbol] = true

		shares := p.Shares.Round(contracts.SharePrecision)
		avg := p.AvgPrice.Round(contracts.PricePrecision)
		if shares.IsNegative() {
			return nil, contracts.NewValidationError(field+".shares", "must be >= 0, got %s", p.Shares.String())
		}
		if avg.IsNegative() {
			return nil, contracts.NewValidationError(field+".avg_price", "must be >= 0, got %s", p.AvgPrice.String())
		}
		if shares.IsPositive() && !avg.IsPositive() {
			return nil, contracts.NewValidationError(field+".avg_price", "must be > 0 when shares > 0")
		}

		out.Positions = append(out.Positions, contracts.SubmittedPosition{Symbol: symbol, Shares: shares, AvgPrice: avg})
	}

	sort.Slice(out.Positions, func(i, j int) bool {
		return out.Positions[i].Symbol < out.Positions[j].Symbol
	})
	return out, nil
}

// MissingTargets returns run target symbols absent from the submission
func MissingTargets(run *contracts.Run, sub *contracts.Submission) []string {
	present := make(map[string]bool, len(sub.Positions))
	for _, p := range sub.Positions {
		present[p.Symbol] = true
	}
	var missing []string
	for _, s := range run.TargetSymbols() {
		if !present[s] {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)
	return missing
}

// IdempotencyKey hashes the run id with the canonical form of a normalized submission.
// The force flag is not part of the key.
func IdempotencyKey(runID int64, sub *contracts.Submission) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(runID, 10))
	for _, p := range sub.Positions {
		b.WriteString("|")
		b.WriteString(p.Symbol)
		b.WriteString(":")
		b.WriteString(p.Shares.StringFixed(contracts.SharePrecision))
		b.WriteString(":")
		b.WriteString(p.AvgPrice.StringFixed(contracts.PricePrecision))
	}
	b.WriteString("|cash:")
	b.WriteString(sub.Cash.StringFixed(contracts.CurrencyPrecision))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
