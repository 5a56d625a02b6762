package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"10.50", 1050, true},
		{"0.01", 1, true},
		{"100", 10000, true},
		{"-3.25", -325, true},
		{"10.505", 0, false},
		{"0.001", 0, false},
	}
	for _, tc := range cases {
		d, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", tc.in, err)
		}
		cents, err := ParseAmount(d)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%s): %v", tc.in, err)
			}
			if cents != tc.cents {
				t.Fatalf("ParseAmount(%s) = %d, want %d", tc.in, cents, tc.cents)
			}
			continue
		}
		codeOfTest(t, err, CodeInvalidDataType)
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(1050); got != "10.50" {
		t.Fatalf("FormatCents(1050) = %q", got)
	}
	if got := FormatCents(1); got != "0.01" {
		t.Fatalf("FormatCents(1) = %q", got)
	}
	if got := FormatCents(0); got != "0.00" {
		t.Fatalf("FormatCents(0) = %q", got)
	}
}
