package residual

import (
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// DistanceProvider implements spec §4.4's Distance residual: ‖A−B‖ − target (k=1).
type DistanceProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	a, b      project.EntityRef
	target    float64
	rowBuffer *rowBuilder
}

// NewDistanceProvider builds a DistanceProvider for a DistanceConstraint.
func NewDistanceProvider(l *varlayout.Layout, arena *project.Arena, c *project.DistanceConstraint) *DistanceProvider {
	return &DistanceProvider{layout: l, arena: arena, a: c.A, b: c.B, target: c.Target, rowBuffer: newRowBuilder(6)}
}

func (p *DistanceProvider) ResidualCount() int { return 1 }

func (p *DistanceProvider) Compute(x []float64, out []float64) {
	_, a := pointVars(p.layout, p.arena, x, p.a)
	_, b := pointVars(p.layout, p.arena, x, p.b)
	out[0] = a.Sub(b).Norm() - p.target
}

func (p *DistanceProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	pvA, a := pointVars(p.layout, p.arena, x, p.a)
	pvB, b := pointVars(p.layout, p.arena, x, p.b)
	p.rowBuffer.reset()
	if dir, _, ok := unit(a.Sub(b)); ok {
		p.rowBuffer.addPoint(pvA, dir)
		p.rowBuffer.addPoint(pvB, dir.Mul(-1))
	}
	p.rowBuffer.flush(jac)
}
