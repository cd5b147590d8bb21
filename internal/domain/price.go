package domain

import (
	"fmt"
	"strings"
)

// CurrencySymbol is the fixed display prefix for all amounts. The platform
// operates in a single currency; locale-aware formatting is out of scope.
const CurrencySymbol = "₹"

// minorPerUnit is the number of minor units (paise) in one rupee.
const minorPerUnit = 100

// Price is a non-negative amount in minor units (paise). Keeping amounts as
// integers avoids floating-point drift in repeated sums; parsing from the
// display form happens once at ingestion and formatting once at the boundary.
type Price int64

// ParsePrice converts a display-form amount such as "₹250" or "250.50" into
// minor units. The currency symbol prefix is optional. Unparsable or negative
// input yields 0 — a bad price is a data-quality issue, never a failure.
func ParsePrice(s string) Price {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CurrencySymbol)
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '-' || s[0] == '+' {
		return 0
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if !isDigits(intPart) || !isDigits(fracPart) {
		return 0
	}
	if intPart == "" && fracPart == "" {
		return 0
	}

	var units int64
	for _, r := range intPart {
		units = units*10 + int64(r-'0')
	}

	minor := units * minorPerUnit
	switch {
	case len(fracPart) >= 2:
		minor += int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
		// Round half-up on any third fractional digit.
		if len(fracPart) > 2 && fracPart[2] >= '5' {
			minor++
		}
	case len(fracPart) == 1:
		minor += int64(fracPart[0]-'0') * 10
	}

	return Price(minor)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Mul returns the price multiplied by a quantity.
func (p Price) Mul(quantity int) Price {
	return p * Price(quantity)
}

// Minor returns the raw minor-unit value.
func (p Price) Minor() int64 {
	return int64(p)
}

// Format renders the amount as the currency symbol followed by the value
// with exactly two decimal places, e.g. "₹250.00".
func (p Price) Format() string {
	return fmt.Sprintf("%s%d.%02d", CurrencySymbol, p/minorPerUnit, p%minorPerUnit)
}

// MarshalJSON renders the price in its canonical display form. The persisted
// snapshot and the API both carry prices as currency-prefixed strings.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.Format() + `"`), nil
}

// UnmarshalJSON accepts the currency-prefixed string form. Unparsable values
// decode to 0 rather than failing the whole document.
func (p *Price) UnmarshalJSON(data []byte) error {
	s := string(data)
	s = strings.Trim(s, `"`)
	*p = ParsePrice(s)
	return nil
}
