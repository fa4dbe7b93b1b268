package cli

import (
	"testing"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"150.50", 150.50},
		{"150,50", 150.50},
		{"  10 ", 10},
		{"0", 0},
		{"1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{"2,5", 2.5},
	}
	for _, tc := range cases {
		got, err := parseAmount("test", tc.in)
		if err != nil {
			t.Errorf("parseAmount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "12.3.4", "1,234,56", "10x"} {
		_, err := parseAmount("test", in)
		if err == nil {
			t.Errorf("parseAmount(%q): expected error", in)
			continue
		}
		var verr *apperrors.ValidationError
		if !apperrors.As(err, &verr) {
			t.Errorf("parseAmount(%q): expected ValidationError, got %T", in, err)
		}
	}
}
