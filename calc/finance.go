package calc

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrNoSignChange = errors.New("cash flows never change sign")
	ErrNoBracket    = errors.New("no rate bracket found for internal rate of return")
	ErrNotConverged = errors.New("internal rate of return did not converge")
)

const (
	irrLowerRate     = -0.99
	irrUpperRateMax  = 1e6
	irrTolerance     = 1e-10
	irrMaxIterations = 500
)

// AnnuityPayment returns the fixed payment per period that repays principal over the
// given number of periods: P * r(1+r)^n / ((1+r)^n - 1). At 0% it is P / n.
// Periods must be at least 1.
func AnnuityPayment(principal, periodRate float64, periods int) float64 {
	n := float64(periods)
	if periodRate == 0 {
		return principal / n
	}
	factor := math.Pow(1+periodRate, n)
	return principal * periodRate * factor / (factor - 1)
}

// PresentValue discounts a fixed payment over the given number of periods.
func PresentValue(payment, periodRate float64, periods int) float64 {
	if periodRate == 0 {
		return payment * float64(periods)
	}
	return payment * (1 - math.Pow(1+periodRate, -float64(periods))) / periodRate
}

// Growth is the compounding factor (1+rate)^k.
func Growth(rate float64, k int) float64 {
	return math.Pow(1+rate, float64(k))
}

// DiscountFactors returns 1/(1+rate)^t for t = 0..n-1.
func DiscountFactors(rate float64, n int) []float64 {
	factors := make([]float64, n)
	for t := range factors {
		factors[t] = 1 / Growth(rate, t)
	}
	return factors
}

// NPV discounts the cash flows at rate, flows[0] is at t = 0 and not discounted.
func NPV(rate float64, flows []float64) float64 {
	if len(flows) == 0 {
		return 0
	}
	return floats.Dot(flows, DiscountFactors(rate, len(flows)))
}

// IRR finds the rate where NPV is zero by bisection. The bracket starts at [-0.99, 1]
// and the upper end is widened until NPV changes sign.
func IRR(flows []float64) (float64, error) {
	if !changesSign(flows) {
		return 0, ErrNoSignChange
	}

	lo, hi := irrLowerRate, 1.0
	fLo, fHi := NPV(lo, flows), NPV(hi, flows)
	for sameSign(fLo, fHi) {
		if hi >= irrUpperRateMax {
			return 0, ErrNoBracket
		}
		lo, fLo = hi, fHi
		hi *= 2
		fHi = NPV(hi, flows)
	}

	if fLo == 0 {
		return lo, nil
	}
	if fHi == 0 {
		return hi, nil
	}

	for range irrMaxIterations {
		mid := lo + (hi-lo)/2
		fMid := NPV(mid, flows)
		if fMid == 0 || hi-lo < irrTolerance {
			return mid, nil
		}
		if sameSign(fLo, fMid) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}

	return 0, ErrNotConverged
}

func changesSign(flows []float64) bool {
	pos, neg := false, false
	for _, f := range flows {
		if f > 0 {
			pos = true
		} else if f < 0 {
			neg = true
		}
	}
	return pos && neg
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
