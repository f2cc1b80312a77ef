package sparsela

import (
	"math"
	"strconv"
)

// MatVec applies a symmetric positive (semi-)definite operator to p, writing into out.
// The LM driver supplies a closure computing Jᵀ(Jp) + λD.*p without ever forming JᵀJ.
type MatVec func(p []float64, out []float64)

// CGWorkspace holds the scratch vectors a preconditioned CG solve needs, allocated once
// per solve and reused across every LM iteration's inner solve (per the resource policy).
type CGWorkspace struct {
	r, z, p, ap []float64
}

// NewCGWorkspace allocates a workspace sized for an n-variable system.
func NewCGWorkspace(n int) *CGWorkspace {
	return &CGWorkspace{
		r:  make([]float64, n),
		z:  make([]float64, n),
		p:  make([]float64, n),
		ap: make([]float64, n),
	}
}

// PCG solves A x = b for symmetric positive-definite A (applied via apply) using a
// Jacobi-diagonal preconditioner precond (precond[i] multiplies residual component i),
// writing the result into x (the caller's initial guess, typically the zero vector).
// Terminates when the relative residual drops below 1e-8 or after 2*len(b) iterations.
// Returns a NumericalBreakdownErr if a CG denominator collapses below 1e-30 or if any
// preconditioner diagonal is non-positive.
func PCG(apply MatVec, precond []float64, b []float64, x []float64, ws *CGWorkspace) error {
	n := len(b)
	for i, d := range precond {
		if d <= 0 {
			return NumericalBreakdownErr("non-positive CG preconditioner diagonal", d).withIndex(i)
		}
	}

	bNorm := Norm2(b)
	if bNorm == 0 {
		for i := range x {
			x[i] = 0
		}
		return nil
	}

	apply(x, ws.ap)
	for i := 0; i < n; i++ {
		ws.r[i] = b[i] - ws.ap[i]
	}
	for i := 0; i < n; i++ {
		ws.z[i] = precond[i] * ws.r[i]
	}
	copy(ws.p, ws.z)
	rz := Dot(ws.r, ws.z)

	maxIter := 2 * n
	for iter := 0; iter < maxIter; iter++ {
		if Norm2(ws.r)/bNorm < 1e-8 {
			return nil
		}
		apply(ws.p, ws.ap)
		denom := Dot(ws.p, ws.ap)
		if math.Abs(denom) < 1e-30 {
			return NumericalBreakdownErr("CG denominator collapsed", denom)
		}
		alpha := rz / denom
		AXPY(alpha, ws.p, x)
		AXPY(-alpha, ws.ap, ws.r)

		for i := 0; i < n; i++ {
			ws.z[i] = precond[i] * ws.r[i]
		}
		rzNew := Dot(ws.r, ws.z)
		if math.Abs(rz) < 1e-300 {
			return NumericalBreakdownErr("CG rz collapsed", rz)
		}
		beta := rzNew / rz
		for i := 0; i < n; i++ {
			ws.p[i] = ws.z[i] + beta*ws.p[i]
		}
		rz = rzNew
	}
	return nil
}

func (e *breakdownErr) withIndex(i int) *breakdownErr {
	e.what = e.what + " at index " + strconv.Itoa(i)
	return e
}
