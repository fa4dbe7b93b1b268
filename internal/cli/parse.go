package cli

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
)

// parseAmount parses a user-supplied numeric value. Both "." and "," are
// accepted as the decimal separator, so "150,50" and "150.50" parse alike.
// When both appear, the one further right is the decimal separator and the
// other is treated as a thousands separator, covering "1,234.56" as well as
// "1.234,56".
func parseAmount(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &apperrors.ValidationError{
			Field:   field,
			Value:   raw,
			Message: "value is required",
		}
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &apperrors.ValidationError{
			Field:   field,
			Value:   raw,
			Message: "not a valid number",
		}
	}
	f, _ := d.Float64()
	return f, nil
}
