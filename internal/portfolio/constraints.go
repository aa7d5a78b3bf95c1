package portfolio

import "slices"

// Constraints defines portfolio construction constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	BlackList []string // 주식 슬롯에서 제외할 종목 (ETF 중복 방지)
}

// IsBlackListed checks if a symbol is in the blacklist
func (c *Constraints) IsBlackListed(symbol string) bool {
	return slices.Contains(c.BlackList, symbol)
}

// DefaultConstraints keeps the ETFs out of the equity slots
func DefaultConstraints(cfg PortfolioConfig) Constraints {
	return Constraints{
		BlackList: []string{cfg.CoreETF, cfg.DefensiveETF},
	}
}
