package domain

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cents is a money amount in minor currency units. All prices travel
// through the service as minor units to avoid float rounding.
type Cents int64

// ParseCents converts a decimal string amount in major units to Cents.
// Handles edge cases: empty strings, missing decimals, negative values.
// Examples: "24.99" -> 2499, "30" -> 3000, "" -> 0.
func ParseCents(s string) Cents {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative amounts correctly
	return Cents(math.Round(f * 100))
}

// Float returns the amount in major units.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// amountReplacer covers the two template spellings the storefront emits.
func amountReplacer(amount string) *strings.Replacer {
	return strings.NewReplacer("{{amount}}", amount, "{{ amount }}", amount)
}

// FormatCents renders a minor-unit amount for display. When the storefront
// supplies a money format template (e.g. "${{amount}} CAD") the amount is
// substituted into it; otherwise the value is formatted locale-aware for
// the given ISO currency code, defaulting to USD when the code is unknown.
func FormatCents(v Cents, moneyFormat, currencyCode string) string {
	if moneyFormat != "" {
		return amountReplacer(strconv.FormatFloat(v.Float(), 'f', 2, 64)).Replace(moneyFormat)
	}

	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v", currency.Symbol(unit.Amount(v.Float())))
}
