package control

import "math"

// Scaler converts between hardware and host values.
type Scaler func(value float64) float64

// Linear maps 0..max to 0..1.
func Linear(max float64) Scaler {
	return func(v float64) float64 {
		return v / max
	}
}

// ExpCurve maps x in x0..x1 onto y0..y1 along an exponential curve of
// steepness a. Negative a bends the other way, a == 0 is treated as 1.
func ExpCurve(x0, x1, y0, y1, a float64) Scaler {
	if a == 0 {
		a = 1
	}
	return func(x float64) float64 {
		switch {
		case x <= x0:
			return y0
		case x >= x1:
			return y1
		}
		k := (x - x0) / (x1 - x0)
		return (y1-y0)*(math.Exp(a*k)-1)/(math.Exp(a)-1) + y0
	}
}

// CenterDetent is an EQ curve: flat 0.5 within threshold of the centre of a
// 0..127 knob, exponential towards both ends.
func CenterDetent(threshold, curve float64) Scaler {
	low := ExpCurve(0, 63-threshold, 0, 0.5, -curve)
	high := ExpCurve(64+threshold, 127, 0.5, 1, curve)
	return func(v float64) float64 {
		switch {
		case v >= 63-threshold && v <= 64+threshold:
			return 0.5
		case v < 63-threshold:
			return low(v)
		default:
			return high(v)
		}
	}
}

// Relative turns two's complement encoder ticks into a parameter delta:
// 1 is one step down, 127 one step up. A negative step swaps directions.
func Relative(step float64) Scaler {
	return func(v float64) float64 {
		switch {
		case v == 0:
			return 0
		case v < 64:
			return -step * v
		default:
			return step * (128 - v)
		}
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Offset turns offset binary encoder ticks into a parameter delta: 64 is no
// movement, 63 one step down and 65 one step up.
func Offset(step float64) Scaler {
	return func(v float64) float64 {
		return (v - 64) * step
	}
}
