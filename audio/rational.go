package audio

import "math"

// NoPTS marks an undefined presentation timestamp.
const NoPTS = math.MinInt64

// Rational is an exact fraction used as a time base.
type Rational struct {
	Num int
	Den int
}

func NewRational(num, den int) Rational {
	return Rational{Num: num, Den: den}
}

func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

func (r Rational) Float64() float64 {
	return float64(r.Num) / float64(r.Den)
}

// Rescale computes a*b/c with rounding to the nearest integer. The split
// into quotient and remainder keeps the intermediate products within int64
// for the magnitudes used by timestamp math.
func Rescale(a, b, c int64) int64 {
	if c == 0 {
		return 0
	}
	neg := false
	if a < 0 {
		a = -a
		neg = true
	}
	q := a / c
	rem := a % c
	v := q*b + (rem*b+c/2)/c
	if neg {
		return -v
	}
	return v
}

// RoundedDiv divides a by b rounding half away from zero.
func RoundedDiv(a, b int64) int64 {
	if a >= 0 {
		return (a + b/2) / b
	}
	return (a - b/2) / b
}
