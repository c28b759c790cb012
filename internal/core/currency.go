package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

type currencyFormat struct {
	symbol       string
	decimals     int32
	symbolOnLeft bool
}

var currencies = map[string]currencyFormat{
	"VND": {symbol: "₫", decimals: 0},
	"USD": {symbol: "$", decimals: 2, symbolOnLeft: true},
	"EUR": {symbol: "€", decimals: 2, symbolOnLeft: true},
	"JPY": {symbol: "¥", decimals: 0},
	"GBP": {symbol: "£", decimals: 2, symbolOnLeft: true},
	"AUD": {symbol: "$", decimals: 2, symbolOnLeft: true},
	"KRW": {symbol: "₩", decimals: 0},
	"THB": {symbol: "฿", decimals: 2, symbolOnLeft: true},
}

const DefaultCurrency = "USD"

func IsSupportedCurrency(code string) bool {
	_, ok := currencies[strings.ToUpper(code)]
	return ok
}

// FormatMoney renders m for display in the given currency, e.g. "$1,234.50",
// "-$3.00" or "1,235 ₫". Unknown codes fall back to USD.
func FormatMoney(m Money, code string) string {
	cf, ok := currencies[strings.ToUpper(code)]
	if !ok {
		cf = currencies[DefaultCurrency]
	}
	d := m.Decimal()
	neg := d.IsNegative()
	body := groupThousands(d.Abs().StringFixed(cf.decimals))
	if !cf.symbolOnLeft {
		if neg {
			body = "-" + body
		}
		return body + " " + cf.symbol
	}
	if neg {
		return "-" + cf.symbol + body
	}
	return cf.symbol + body
}

// FormatPercentage renders a ratio as "12.50%".
func FormatPercentage(ratio float64) string {
	return decimal.NewFromFloat(ratio).Shift(2).StringFixed(2) + "%"
}

func groupThousands(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
