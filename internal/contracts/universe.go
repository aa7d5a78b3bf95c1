package contracts

import (
	"sort"
	"time"
)

// Universe represents investable symbols passed from S1 to S2
// ⭐ SSOT: S1 → S2 투자 가능 종목 전달
type Universe struct {
	Date       time.Time         `json:"date"`
	Symbols    []string          `json:"symbols"`               // 투자 가능 종목 (정렬됨)
	Excluded   map[string]string `json:"excluded"`              // 제외 종목: 사유
	Source     string            `json:"source"`                // wikipedia, static
	TotalCount int               `json:"total_count,omitempty"` // 제외 전 종목 수
}

// NewUniverse builds a universe from a raw symbol set, de-duplicated and sorted
func NewUniverse(date time.Time, source string, symbols []string) *Universe {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)

	return &Universe{
		Date:       date,
		Symbols:    out,
		Excluded:   make(map[string]string),
		Source:     source,
		TotalCount: len(out),
	}
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	i := sort.SearchStrings(u.Symbols, symbol)
	return i < len(u.Symbols) && u.Symbols[i] == symbol
}

// Exclude removes a symbol and records why
func (u *Universe) Exclude(symbol, reason string) {
	i := sort.SearchStrings(u.Symbols, symbol)
	if i < len(u.Symbols) && u.Symbols[i] == symbol {
		u.Symbols = append(u.Symbols[:i], u.Symbols[i+1:]...)
		u.Excluded[symbol] = reason
	}
}

// IsExcluded checks if a symbol is excluded with reason
func (u *Universe) IsExcluded(symbol string) (bool, string) {
	reason, exists := u.Excluded[symbol]
	return exists, reason
}

// Count returns the number of investable symbols
func (u *Universe) Count() int {
	return len(u.Symbols)
}
