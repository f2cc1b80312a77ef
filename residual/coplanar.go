package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// CoplanarProvider implements spec §4.4's Coplanar residual: for i>=3, the triple product
// (P_i−P_0)·((P_1−P_0)×(P_2−P_0)) (k = n-3). This is the literal scalar-triple-product
// form from the spec rather than the normalized-plane-normal form, so residual magnitude
// scales with the spread of P_0..P_2 — acceptable here since robust loss / damping
// operate on the same scale consistently across an LM run.
type CoplanarProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	points    []project.EntityRef
	rowBuffer *rowBuilder
}

// NewCoplanarProvider builds a CoplanarProvider for a CoplanarConstraint over >=4 points.
func NewCoplanarProvider(l *varlayout.Layout, arena *project.Arena, c *project.CoplanarConstraint) *CoplanarProvider {
	return &CoplanarProvider{layout: l, arena: arena, points: c.Points, rowBuffer: newRowBuilder(12)}
}

func (p *CoplanarProvider) ResidualCount() int {
	if len(p.points) < 4 {
		return 0
	}
	return len(p.points) - 3
}

func (p *CoplanarProvider) positions(x []float64) []r3.Vector {
	out := make([]r3.Vector, len(p.points))
	for i, ref := range p.points {
		_, pos := pointVars(p.layout, p.arena, x, ref)
		out[i] = pos
	}
	return out
}

func (p *CoplanarProvider) Compute(x []float64, out []float64) {
	pos := p.positions(x)
	if len(pos) < 4 {
		return
	}
	a := pos[1].Sub(pos[0])
	b := pos[2].Sub(pos[0])
	n := a.Cross(b)
	for i := 3; i < len(pos); i++ {
		w := pos[i].Sub(pos[0])
		out[i-3] = w.Dot(n)
	}
}

func (p *CoplanarProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	pos := p.positions(x)
	if len(pos) < 4 {
		return
	}
	a := pos[1].Sub(pos[0])
	b := pos[2].Sub(pos[0])
	n := a.Cross(b)

	pv0, _ := pointVars(p.layout, p.arena, x, p.points[0])
	pv1, _ := pointVars(p.layout, p.arena, x, p.points[1])
	pv2, _ := pointVars(p.layout, p.arena, x, p.points[2])

	for i := 3; i < len(pos); i++ {
		w := pos[i].Sub(pos[0])

		p.rowBuffer.reset()
		pvI, _ := pointVars(p.layout, p.arena, x, p.points[i])

		gradI := n
		gradA := b.Cross(w) // d(w.n)/dP1 = b x w
		gradB := w.Cross(a) // d(w.n)/dP2 = w x a
		grad0 := n.Mul(-1).Sub(gradA).Sub(gradB)

		p.rowBuffer.addPoint(pvI, gradI)
		p.rowBuffer.addPoint(pv1, gradA)
		p.rowBuffer.addPoint(pv2, gradB)
		p.rowBuffer.addPoint(pv0, grad0)
		p.rowBuffer.flush(jac)
	}
}
