package domain

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a user has not chosen one.
const DefaultCurrency = "USD"

// NormalizeCurrency upper-cases a currency code and falls back to DefaultCurrency
// for empty or unknown codes.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || money.GetCurrency(code) == nil {
		return DefaultCurrency
	}
	return code
}

// MoneyPlaces is the scale of stored monetary columns.
const MoneyPlaces = 2

// FitsMoneyScale reports whether d has no more than MoneyPlaces decimals.
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces))
}

// FormatMoney renders an amount in major units with the currency's symbol,
// grouping and fraction digits, e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, currency string) string {
	currency = NormalizeCurrency(currency)
	cur := money.GetCurrency(currency)
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

// Percent returns part/whole*100 rounded to two places, or zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}
