package contracts

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatShares(t *testing.T) {
	assert.Equal(t, "2.5", FormatShares(decimal.RequireFromString("2.50000")))
	assert.Equal(t, "12", FormatShares(decimal.RequireFromString("12.0000")))
	assert.Equal(t, "0.1234", FormatShares(decimal.RequireFromString("0.12349")))
}

func TestFormatMoney_USD(t *testing.T) {
	assert.Equal(t, "$1,750.00", FormatMoney(decimal.NewFromInt(1750), "usd"))
	assert.Equal(t, "$0.05", FormatMoney(decimal.RequireFromString("0.049"), "USD"))
}

func TestCurrencyFraction(t *testing.T) {
	assert.Equal(t, int32(2), CurrencyFraction("EUR"))
	assert.Equal(t, int32(0), CurrencyFraction("JPY"))
	assert.Equal(t, CurrencyPrecision, CurrencyFraction("???"))
}

func TestRoundingHelpers(t *testing.T) {
	v := decimal.RequireFromString("10.129")
	assert.Equal(t, "10.13", RoundMoney(v).String())
	assert.Equal(t, "10.12", TruncateMoney(v).String())
	assert.Equal(t, "1.2345", FloorShares(decimal.RequireFromString("1.23459")).String())
}
