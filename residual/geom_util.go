package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// rowBuilder accumulates the sparse columns/values of one Jacobian row before it is
// appended to a CSR, avoiding an allocation per provider per iteration beyond the
// worst-case column count (providers reuse one rowBuilder across their residual rows).
type rowBuilder struct {
	cols []int
	vals []float64
}

func newRowBuilder(capHint int) *rowBuilder {
	return &rowBuilder{cols: make([]int, 0, capHint), vals: make([]float64, 0, capHint)}
}

func (b *rowBuilder) reset() {
	b.cols = b.cols[:0]
	b.vals = b.vals[:0]
}

// addPoint adds grad's nonzero components against pv's free columns (locked axes
// contribute no column, per the per-axis lock mask).
func (b *rowBuilder) addPoint(pv varlayout.PointVars, grad r3.Vector) {
	comps := [3]float64{grad.X, grad.Y, grad.Z}
	for axis, g := range comps {
		if col := pv.FreeCol[axis]; col >= 0 && g != 0 {
			b.cols = append(b.cols, col)
			b.vals = append(b.vals, g)
		}
	}
}

func (b *rowBuilder) flush(jac *sparsela.CSR) {
	jac.AppendRow(b.cols, b.vals)
}

// pointVars looks up a world point's layout columns and current position by ref.
func pointVars(l *varlayout.Layout, arena *project.Arena, x []float64, ref project.EntityRef) (varlayout.PointVars, r3.Vector) {
	wp := arena.WorldPoint(ref)
	pv, _ := l.Point(ref)
	return pv, l.PointPosition(x, ref, wp)
}

// unit returns v normalized, and its magnitude. Returns the zero vector and ok=false when
// v is (near) zero.
func unit(v r3.Vector) (r3.Vector, float64, bool) {
	n := v.Norm()
	if n < 1e-12 {
		return r3.Vector{}, 0, false
	}
	return v.Mul(1 / n), n, true
}
