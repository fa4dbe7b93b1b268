// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatUSD formats an amount as US dollars with thousands grouping.
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := groupThousands(parts[0], ",")
	decPart := parts[1]

	result := "$" + intPart + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// FormatCommaDecimal formats a number with a comma decimal separator, the
// convention spreadsheet locales with comma decimals expect.
func FormatCommaDecimal(value float64, decimals int) string {
	str := fmt.Sprintf("%.*f", decimals, value)
	return strings.Replace(str, ".", ",", 1)
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// groupThousands inserts sep every three digits from the right.
func groupThousands(s, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
