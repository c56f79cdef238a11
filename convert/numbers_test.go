package convert

import (
	"math"
	"testing"
)

func TestRounding(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{-1.005, -1.01},
		{71341.2, 71341.2},
		{3.304566394820395, 3.3},
	}

	for _, tt := range tests {
		if got := TwoDecimals(tt.in); got != tt.want {
			t.Errorf("TwoDecimals(%v) = %v, wanted %v", tt.in, got, tt.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := MoneyString(71341.2); got != "71341.20" {
		t.Errorf("got %q", got)
	}
	if got := MoneyString(0.1 + 0.2); got != "0.30" {
		t.Errorf("got %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.0889633947, 2); got != 8.9 {
		t.Errorf("got %v, wanted 8.9", got)
	}
	if got := Fraction(30); got != 0.3 {
		t.Errorf("got %v, wanted 0.3", got)
	}
}

func TestNonFiniteDoesNotPanic(t *testing.T) {
	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if Finite(in) {
			t.Errorf("Finite(%v) = true", in)
		}
		if got := Fraction(in); !math.IsNaN(got) && got != in {
			t.Errorf("Fraction(%v) = %v", in, got)
		}
		if got := Percent(in, 2); !math.IsNaN(got) && got != in {
			t.Errorf("Percent(%v) = %v", in, got)
		}
		if got := TwoDecimals(in); !math.IsNaN(got) && got != in {
			t.Errorf("TwoDecimals(%v) = %v", in, got)
		}
		if !Money(in).IsZero() {
			t.Errorf("Money(%v) = %v, wanted 0", in, Money(in))
		}
	}
	if got := MoneyString(math.Inf(1)); got != "+Inf" {
		t.Errorf("got %q", got)
	}
}
