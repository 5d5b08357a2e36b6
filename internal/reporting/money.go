package reporting

import (
	"strings"

	"github.com/shopspring/decimal"
)

// money formats a dollar amount with two decimals and thousands separators.
// Rounding is half away from zero on the decimal value, not the binary float.
func money(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	for i := len(intPart) - 3; i > 0; i -= 3 {
		intPart = intPart[:i] + "," + intPart[i:]
	}
	return sign + "$" + intPart + "." + frac
}

// roundMoney rounds to cents for spreadsheet cells.
func roundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
