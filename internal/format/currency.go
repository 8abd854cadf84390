// Package format renders token amounts, gas prices and currency values for display.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// Boundaries controls how small values are shown. Values below Min get
// MinExp+Expand fraction digits; values below Min*10^-Expand render as "< threshold".
type Boundaries struct {
	Min    decimal.Decimal
	MinExp int32
	Expand int32
}

// CurrencyOptions tweak FormatCurrency. Symbols replaces a rendered symbol
// (for example {"$": ""} drops the dollar sign).
type CurrencyOptions struct {
	Boundaries *Boundaries
	Symbols    map[string]string
}

type currencyStyle struct {
	symbol string
	prefix bool
	fiat   bool
}

var currencyStyles = map[string]currencyStyle{
	"USD": {symbol: "$", prefix: true, fiat: true},
	"EUR": {symbol: "€", prefix: true, fiat: true},
	"GBP": {symbol: "£", prefix: true, fiat: true},
	"JPY": {symbol: "¥", prefix: true, fiat: true},
	"CNY": {symbol: "¥", prefix: true, fiat: true},
	"HKD": {symbol: "HK$", prefix: true, fiat: true},
	"ETH": {symbol: "Ξ"},
	"BTC": {symbol: "₿"},
}

var (
	fiatBoundaries   = Boundaries{Min: decimal.New(1, -6), MinExp: 6, Expand: 6}
	cryptoBoundaries = Boundaries{Min: decimal.New(1, -6), MinExp: 6, Expand: 0}
)

// FormatCurrency formats value in currency. Fiat codes get a symbol prefix,
// anything else a " SYMBOL" suffix; an empty currency keeps the trailing space.
//
//	FormatCurrency(1.55, "USD") -> "$1.55"
//	FormatCurrency(0.1234115, "EUR") -> "€0.123412"
//	FormatCurrency(1.55, "ETH") -> "1.55 Ξ"
//	FormatCurrency(0.00000001, "MATIC") -> "< 0.000001 MATIC"
func FormatCurrency(value decimal.Decimal, currency string, opts *CurrencyOptions) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	style, known := currencyStyles[code]
	if !known {
		style = currencyStyle{symbol: code}
	}

	b := cryptoBoundaries
	if style.fiat {
		b = fiatBoundaries
	}
	if opts != nil && opts.Boundaries != nil {
		b = *opts.Boundaries
	}

	symbol := style.symbol
	if opts != nil {
		if repl, ok := opts.Symbols[symbol]; ok {
			symbol = repl
		}
	}

	wrap := func(num string) string {
		if style.prefix {
			return symbol + num
		}
		return num + " " + symbol
	}

	if value.IsZero() {
		return wrap("0.00")
	}

	neg := value.IsNegative()
	abs := value.Abs()

	threshold := b.Min.Shift(-b.Expand)
	if abs.LessThan(threshold) {
		return "< " + wrap(threshold.String())
	}

	num := formatAbs(abs, b)
	if neg {
		num = "-" + num
	}
	return wrap(num)
}

func formatAbs(abs decimal.Decimal, b Boundaries) string {
	one := decimal.NewFromInt(1)

	if abs.LessThan(one) {
		places := b.MinExp
		if abs.LessThan(b.Min) {
			places += b.Expand
		}
		rounded := abs.Round(places)
		if rounded.LessThan(one) {
			return rounded.String()
		}
		abs = rounded
	}

	fixed := abs.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	head := len(digits) % 3
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
