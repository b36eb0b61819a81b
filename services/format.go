package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ruPrinter = message.NewPrinter(language.Russian)

// spaceNormalizer maps the narrow and non-breaking group separators emitted
// by the locale tables onto a plain space so output is stable across
// CLDR versions.
var spaceNormalizer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

// FormatRUB formats an amount in rubles using Russian grouping and a decimal
// comma, e.g. "1 234 567,89 ₽". The amount is rounded half away from zero to
// kopecks first.
func FormatRUB(amount float64) string {
	return FormatAmount(amount) + " ₽"
}

// FormatAmount is FormatRUB without the currency sign.
func FormatAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	rounded := decimal.NewFromFloat(amount).Round(2).InexactFloat64()
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return spaceNormalizer.Replace(ruPrinter.Sprintf("%.2f", rounded))
}

// FormatPercent renders a percentage without trailing zeros, e.g. "12,5 %".
func FormatPercent(p float64) string {
	s := decimal.NewFromFloat(p).Round(2).String()
	return strings.Replace(s, ".", ",", 1) + " %"
}

// formatQty returns a string representation of the quantity value.
// Whole numbers are formatted without decimals; fractional values get 2 decimal places.
func formatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return fmt.Sprintf("%.0f", qty)
	}
	return strings.Replace(fmt.Sprintf("%.2f", qty), ".", ",", 1)
}
