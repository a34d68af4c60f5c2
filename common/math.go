package common

import "math"

// https://stackoverflow.com/questions/18390266/how-can-we-truncate-float64-type-to-a-particular-precision
func Round(num float64) int {
	return int(num + math.Copysign(0.5, num))
}

func DecimalToFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(Round(num*output)) / output
}

// NormalizeHeading maps any compass angle into [0,360).
// NaN and Inf are mapped to 0; they carry no direction.
func NormalizeHeading(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// HeadingDelta returns the signed shortest angular distance from old to new,
// in (-180,180].
func HeadingDelta(old, new float64) float64 {
	diff := new - old
	for diff > 180 {
		diff -= 360
	}
	for diff < -180 {
		diff += 360
	}
	return diff
}
