package hydro

import "math"

// RoundSig rounds x to n significant figures. Zero, NaN and infinities are
// returned unchanged.
func RoundSig(x float64, n int) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) || n <= 0 {
		return x
	}
	mag := math.Floor(math.Log10(math.Abs(x)))
	return RoundTo(x, n-1-int(mag))
}

// RoundTo rounds x to the given number of decimal places. Negative places
// round to tens, hundreds, and so on.
func RoundTo(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if places >= 0 {
		p := math.Pow(10, float64(places))
		return math.Round(x*p) / p
	}
	p := math.Pow(10, float64(-places))
	return math.Round(x/p) * p
}
