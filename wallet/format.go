package wallet

import (
	"math"

	"github.com/dustin/go-humanize"
)

// CurrencyFormatter is the host's optional price formatter.
type CurrencyFormatter interface {
	FormatCurrency(v float64) string
}

// FormatterFunc adapts a function to CurrencyFormatter.
type FormatterFunc func(v float64) string

func (f FormatterFunc) FormatCurrency(v float64) string { return f(v) }

// FormatCurrency is the fallback: dollar sign, thousands separators, two
// decimals. FormatCurrency(1234.5) == "$1,234.50".
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "$0.00"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatPercent renders a signed percentage with two decimals.
func FormatPercent(v float64) string {
	sign := "+"
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + humanize.FormatFloat("#,###.##", v) + "%"
}
