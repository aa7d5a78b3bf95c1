package contracts

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Precision constants (DB: shares NUMERIC(18,4), money NUMERIC(15,2), avg price NUMERIC(15,4))
const (
	SharePrecision    int32 = 4
	CurrencyPrecision int32 = 2
	PricePrecision    int32 = 4
	FXPrecision       int32 = 6

	BaseCurrency = "USD"
)

// CurrencyFraction returns the number of minor-unit digits of an ISO currency.
// Unknown codes fall back to CurrencyPrecision.
func CurrencyFraction(code string) int32 {
	if c := money.GetCurrency(strings.ToUpper(code)); c != nil {
		return int32(c.Fraction)
	}
	return CurrencyPrecision
}

// RoundMoney rounds a base-currency amount to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPrecision)
}

// TruncateMoney rounds a base-currency amount down to cents (never overspends)
func TruncateMoney(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(CurrencyPrecision)
}

// RoundCurrency rounds an amount to the minor unit of code
func RoundCurrency(d decimal.Decimal, code string) decimal.Decimal {
	return d.Round(CurrencyFraction(code))
}

// FloorShares truncates a share quantity to SharePrecision decimals
func FloorShares(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(SharePrecision)
}

// FormatMoney renders an amount with its currency symbol, e.g. "$1,750.00" or "1.750,00 €"
func FormatMoney(d decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	fraction := CurrencyFraction(code)
	minor := d.Shift(fraction).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// FormatShares renders a share count with trailing zeros trimmed ("2.5", "12", "0.0001")
func FormatShares(d decimal.Decimal) string {
	return FloorShares(d).String()
}
