package s1_universe

import (
	"context"
)

// StaticProvider serves a fixed symbol list (tests, offline runs)
type StaticProvider struct {
	symbols []string
}

// NewStaticProvider creates a provider over symbols
func NewStaticProvider(symbols []string) *StaticProvider {
	cp := make([]string, len(symbols))
	copy(cp, symbols)
	return &StaticProvider{symbols: cp}
}

// Symbols returns the configured list
func (p *StaticProvider) Symbols(ctx context.Context) ([]string, error) {
	return p.symbols, nil
}

// Source names the provider
func (p *StaticProvider) Source() string {
	return "static"
}
