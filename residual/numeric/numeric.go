// Package numeric provides a central-difference Jacobian adapter used exclusively as a
// test oracle (spec §9: "automatic differentiation... eliminated; the target writes all
// Jacobians analytically... a numerical-Jacobian adapter kept only as a test oracle").
// Production code never imports this package.
package numeric

import "github.com/photogrid/bundleadjust/sparsela"

// Provider is the minimal surface numeric differentiation needs from a residual provider.
type Provider interface {
	ResidualCount() int
	Compute(x []float64, out []float64)
}

// Step is the default central-difference step size.
const Step = 1e-6

// Jacobian returns the dense k x len(x) numerical Jacobian of p at x via central
// differences, row-major (row i = partials of residual i w.r.t. every column of x).
func Jacobian(p Provider, x []float64) [][]float64 {
	k := p.ResidualCount()
	n := len(x)
	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, n)
	}

	plus := make([]float64, k)
	minus := make([]float64, k)
	xPerturbed := append([]float64(nil), x...)

	for col := 0; col < n; col++ {
		orig := xPerturbed[col]
		xPerturbed[col] = orig + Step
		p.Compute(xPerturbed, plus)
		xPerturbed[col] = orig - Step
		p.Compute(xPerturbed, minus)
		xPerturbed[col] = orig

		for row := 0; row < k; row++ {
			out[row][col] = (plus[row] - minus[row]) / (2 * Step)
		}
	}
	return out
}

// Dense converts a sparsela.CSR Jacobian built over the same column count n into a dense
// k x n matrix, for direct comparison against Jacobian's output in Frobenius-norm tests.
func Dense(jac *sparsela.CSR, n int) [][]float64 {
	out := make([][]float64, jac.Rows())
	for row := range out {
		out[row] = rowToDense(jac, row, n)
	}
	return out
}

// rowToDense reads one CSR row's entries into a dense slice of length n.
func rowToDense(jac *sparsela.CSR, row, n int) []float64 {
	out := make([]float64, n)
	jac.VisitRow(row, func(col int, val float64) {
		out[col] = val
	})
	return out
}
