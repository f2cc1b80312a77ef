// Package residual implements the per-constraint residual providers the Levenberg-
// Marquardt driver evaluates every iteration: reprojection, the geometric-constraint
// family (line direction/length, parallel/perpendicular lines, collinear, coplanar,
// distance, fixed point, equal distances), and the quaternion unit-norm soft constraint.
// Every provider computes its residual vector and sparse Jacobian block analytically,
// writing into caller-supplied buffers, mirroring the
// teacher's constraint-family pattern (one concrete type per constraint kind, independently
// testable and toggleable, generalized here from path-segment constraints to per-residual
// providers feeding a sparse normal-equation solve).
package residual

import "github.com/photogrid/bundleadjust/sparsela"

// Provider is implemented by every residual source: reprojection of one ImagePoint,
// one geometric Constraint, one Line's direction/length term, or one Viewpoint's
// quaternion unit-norm term.
type Provider interface {
	// ResidualCount returns the fixed number of residual rows this provider emits.
	ResidualCount() int

	// Compute writes ResidualCount() values into out[:ResidualCount()], given the full
	// free-variable vector x. A provider that is inactive this step (e.g. a
	// behind-camera reprojection) writes zero.
	Compute(x []float64, out []float64)

	// AppendJacobian appends ResidualCount() rows to jac, one AppendRow call per residual
	// row, in the same order Compute wrote them. An inactive row appends an empty row
	// (no columns), contributing nothing to JᵀJ or Jᵀr.
	AppendJacobian(x []float64, jac *sparsela.CSR)
}

// Set is an ordered collection of Providers, evaluated in registration order (per the
// solver's ordering guarantee). A Set's total residual count is the sum of its members'.
type Set struct {
	providers []Provider
	offsets   []int
	total     int
}

// NewSet builds a Set from providers, precomputing each member's residual-row offset into
// the combined residual vector.
func NewSet(providers []Provider) *Set {
	s := &Set{providers: providers, offsets: make([]int, len(providers))}
	for i, p := range providers {
		s.offsets[i] = s.total
		s.total += p.ResidualCount()
	}
	return s
}

// Len returns the number of providers in the set.
func (s *Set) Len() int { return len(s.providers) }

// Total returns the combined residual count across every provider.
func (s *Set) Total() int { return s.total }

// Providers returns the underlying provider slice, in registration order.
func (s *Set) Providers() []Provider { return s.providers }

// Offset returns the row offset of the i'th provider's residual block within the combined
// vector.
func (s *Set) Offset(i int) int { return s.offsets[i] }

// ComputeResidual writes the combined residual vector for every provider into out (len ==
// s.Total()).
func (s *Set) ComputeResidual(x []float64, out []float64) {
	for i, p := range s.providers {
		off := s.offsets[i]
		p.Compute(x, out[off:off+p.ResidualCount()])
	}
}

// BuildJacobian resets jac and appends every provider's Jacobian rows in registration
// order, producing a CSR with s.Total() rows.
func (s *Set) BuildJacobian(x []float64, jac *sparsela.CSR) {
	jac.Reset()
	for _, p := range s.providers {
		p.AppendJacobian(x, jac)
	}
}
