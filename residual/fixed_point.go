package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// FixedPointProvider implements spec §4.4's FixedPoint residual: P − target (k=3),
// independent of the point's own lock state — a point can be both axis-locked and
// FixedPoint-constrained to a different value, which the over-constrained testable
// scenario exercises deliberately (the residual stays nonzero forever; the solver must
// not crash, only report poor quality).
type FixedPointProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	point     project.EntityRef
	target    r3.Vector
	rowBuffer *rowBuilder
}

// NewFixedPointProvider builds a FixedPointProvider for a FixedPointConstraint.
func NewFixedPointProvider(l *varlayout.Layout, arena *project.Arena, c *project.FixedPointConstraint) *FixedPointProvider {
	return &FixedPointProvider{
		layout: l, arena: arena, point: c.Point,
		target:    r3.Vector{X: c.Target[0], Y: c.Target[1], Z: c.Target[2]},
		rowBuffer: newRowBuilder(1),
	}
}

func (p *FixedPointProvider) ResidualCount() int { return 3 }

func (p *FixedPointProvider) Compute(x []float64, out []float64) {
	_, pos := pointVars(p.layout, p.arena, x, p.point)
	out[0] = pos.X - p.target.X
	out[1] = pos.Y - p.target.Y
	out[2] = pos.Z - p.target.Z
}

func (p *FixedPointProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	pv, _ := pointVars(p.layout, p.arena, x, p.point)
	axes := [3]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}
	for _, grad := range axes {
		p.rowBuffer.reset()
		p.rowBuffer.addPoint(pv, grad)
		p.rowBuffer.flush(jac)
	}
}
