package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money formats kopecks as rubles in Russian notation: space-grouped
// thousands and a comma before the kopecks ("12 345,67").
func Money(kopecks int64) string {
	s := decimal.New(kopecks, -2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(digit)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// MoneyPtr renders an undefined price as a long dash.
func MoneyPtr(v *int64) string {
	if v == nil {
		return "—"
	}
	return Money(*v)
}
