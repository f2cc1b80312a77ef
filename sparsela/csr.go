// Package sparsela provides the dense and sparse linear-algebra primitives the solver
// needs: a row-major sparse Jacobian type built incrementally by residual providers, the
// matrix-free products the Levenberg-Marquardt normal equations require, a preconditioned
// conjugate-gradient inner solve, and the small dense helpers (a 3x3 Cholesky/solve used by
// triangulation, and a small symmetric eigendecomposition). Dense
// work is delegated to gonum.org/v1/gonum/mat; the sparse Jacobian path is hand-rolled
// since the normal equations are never formed explicitly (per the solver's sparsity
// requirement) and no example in the corpus carries a CSR-and-CG solver of this shape.
package sparsela

import (
	"strconv"

	"github.com/photogrid/bundleadjust/baerrors"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CSR is a row-major sparse matrix in compressed-sparse-row form, built a row at a time.
// Residual providers append rows (their analytical Jacobian block) during a single pass
// over x. Reset rewinds it to zero rows for the next pass, and ScaleRow rescales an
// already-appended row in place.
type CSR struct {
	Cols    int
	rowPtr  []int
	colIdx  []int
	data    []float64
	pending bool
}

// NewCSR returns an empty CSR builder for a matrix with the given number of columns. Rows
// are appended with AppendRow; cap hints the expected total nonzero count.
func NewCSR(cols, nnzHint int) *CSR {
	return &CSR{
		Cols:   cols,
		rowPtr: []int{0},
		colIdx: make([]int, 0, nnzHint),
		data:   make([]float64, 0, nnzHint),
	}
}

// Reset clears the CSR back to zero rows while retaining its backing arrays, so a solve's
// per-iteration Jacobian rebuild does not reallocate (per the resource policy: scratch
// buffers are allocated once per solve and reused across iterations).
func (m *CSR) Reset() {
	m.rowPtr = m.rowPtr[:1]
	m.rowPtr[0] = 0
	m.colIdx = m.colIdx[:0]
	m.data = m.data[:0]
}

// AppendRow appends one sparse row. cols and vals must be the same length; cols need not
// be sorted but must be < m.Cols. A row with no entries (an inactive/disabled residual) is
// legal and contributes nothing.
func (m *CSR) AppendRow(cols []int, vals []float64) {
	for i, c := range cols {
		m.colIdx = append(m.colIdx, c)
		m.data = append(m.data, vals[i])
	}
	m.rowPtr = append(m.rowPtr, len(m.colIdx))
}

// Rows returns the number of rows appended so far.
func (m *CSR) Rows() int { return len(m.rowPtr) - 1 }

// VisitRow calls fn(col, val) for every stored entry of the given row, in storage order.
func (m *CSR) VisitRow(row int, fn func(col int, val float64)) {
	for k := m.rowPtr[row]; k < m.rowPtr[row+1]; k++ {
		fn(m.colIdx[k], m.data[k])
	}
}

// ScaleRow multiplies every stored entry of the given row by scale in place, used by the
// robust-loss wrapper to rescale an already-appended Jacobian row by its loss weight without
// rebuilding it.
func (m *CSR) ScaleRow(row int, scale float64) {
	for k := m.rowPtr[row]; k < m.rowPtr[row+1]; k++ {
		m.data[k] *= scale
	}
}

// NNZ returns the number of stored nonzero entries.
func (m *CSR) NNZ() int { return len(m.data) }

// MulVec computes r = J*x for x of length m.Cols, writing into out (len == Rows()).
func (m *CSR) MulVec(x []float64, out []float64) {
	for row := 0; row < m.Rows(); row++ {
		sum := 0.0
		for k := m.rowPtr[row]; k < m.rowPtr[row+1]; k++ {
			sum += m.data[k] * x[m.colIdx[k]]
		}
		out[row] = sum
	}
}

// MulTransVec computes g = Jᵀ*r for r of length Rows(), writing into out (len == m.Cols).
// out must be pre-zeroed by the caller (reused scratch across iterations).
func (m *CSR) MulTransVec(r []float64, out []float64) {
	for row := 0; row < m.Rows(); row++ {
		rv := r[row]
		if rv == 0 {
			continue
		}
		for k := m.rowPtr[row]; k < m.rowPtr[row+1]; k++ {
			out[m.colIdx[k]] += m.data[k] * rv
		}
	}
}

// DiagOfJtJ computes diag(JᵀJ), i.e. the sum of squared entries in each column, writing
// into out (len == m.Cols, pre-zeroed by caller).
func (m *CSR) DiagOfJtJ(out []float64) {
	for row := 0; row < m.Rows(); row++ {
		for k := m.rowPtr[row]; k < m.rowPtr[row+1]; k++ {
			v := m.data[k]
			out[m.colIdx[k]] += v * v
		}
	}
}

// NumericalBreakdownErr wraps baerrors.ErrNumericalBreakdown with the offending value, the
// canonical failure shape for CG-denominator and preconditioner-diagonal checks.
func NumericalBreakdownErr(what string, value float64) *breakdownErr {
	return &breakdownErr{what: what, value: value}
}

type breakdownErr struct {
	what  string
	value float64
}

func (e *breakdownErr) Error() string {
	return e.what + ": " + formatFloat(e.value)
}

func (e *breakdownErr) Unwrap() error { return baerrors.ErrNumericalBreakdown }

// Value returns the offending numeric value that triggered the breakdown.
func (e *breakdownErr) Value() float64 { return e.value }
