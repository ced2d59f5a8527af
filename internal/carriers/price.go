package carriers

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice reads a carrier price that may use Brazilian formatting ("1.234,56").
// A comma is always the decimal separator when present.
func ParsePrice(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "R$")
	value = strings.TrimSpace(value)
	if strings.Contains(value, ",") {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	}
	return decimal.NewFromString(value)
}

// Money rounds to cents.
func Money(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}
