package sparsela

import "gonum.org/v1/gonum/floats"

// Dot returns the dot product of a and b (len must match); delegates to gonum/floats per
// the solver's preference for the gonum numeric stack over a hand-rolled loop.
func Dot(a, b []float64) float64 { return floats.Dot(a, b) }

// Norm2 returns the Euclidean norm of v.
func Norm2(v []float64) float64 { return floats.Norm(v, 2) }

// NormInf returns the infinity norm (max absolute value) of v.
func NormInf(v []float64) float64 {
	max := 0.0
	for _, x := range v {
		if a := abs(x); a > max {
			max = a
		}
	}
	return max
}

// AXPY computes y += a*x in place.
func AXPY(a float64, x, y []float64) { floats.AddScaled(y, a, x) }

// Scale multiplies v by a in place.
func Scale(a float64, v []float64) { floats.Scale(a, v) }

// CopyInto copies src into dst (dst must be pre-sized).
func CopyInto(dst, src []float64) { copy(dst, src) }

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
