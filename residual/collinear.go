package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// CollinearProvider implements spec §4.4's Collinear residual: for i>=2, the magnitude of
// (P_i−P_0)×(P_1−P_0) (k = n-2). The magnitude vanishes exactly when P_i lies on the line
// through P_0 and P_1.
type CollinearProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	points    []project.EntityRef
	rowBuffer *rowBuilder
}

// NewCollinearProvider builds a CollinearProvider for a CollinearConstraint over >=3 points.
func NewCollinearProvider(l *varlayout.Layout, arena *project.Arena, c *project.CollinearConstraint) *CollinearProvider {
	return &CollinearProvider{layout: l, arena: arena, points: c.Points, rowBuffer: newRowBuilder(9)}
}

func (p *CollinearProvider) ResidualCount() int {
	if len(p.points) < 3 {
		return 0
	}
	return len(p.points) - 2
}

func (p *CollinearProvider) positions(x []float64) []r3.Vector {
	out := make([]r3.Vector, len(p.points))
	for i, ref := range p.points {
		_, pos := pointVars(p.layout, p.arena, x, ref)
		out[i] = pos
	}
	return out
}

func (p *CollinearProvider) Compute(x []float64, out []float64) {
	pos := p.positions(x)
	if len(pos) < 3 {
		return
	}
	u := pos[1].Sub(pos[0])
	for i := 2; i < len(pos); i++ {
		w := pos[i].Sub(pos[0])
		out[i-2] = w.Cross(u).Norm()
	}
}

func (p *CollinearProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	pos := p.positions(x)
	if len(pos) < 3 {
		return
	}
	u := pos[1].Sub(pos[0])
	pv0, _ := pointVars(p.layout, p.arena, x, p.points[0])
	pv1, _ := pointVars(p.layout, p.arena, x, p.points[1])

	for i := 2; i < len(pos); i++ {
		w := pos[i].Sub(pos[0])
		c := w.Cross(u)
		cNorm := c.Norm()

		p.rowBuffer.reset()
		if cNorm >= 1e-12 {
			gradW := u.Cross(c).Mul(1 / cNorm) // d|c|/dw = (u x c)/|c|
			gradU := c.Cross(w).Mul(1 / cNorm) // d|c|/du = (c x w)/|c|
			pvI, _ := pointVars(p.layout, p.arena, x, p.points[i])

			p.rowBuffer.addPoint(pvI, gradW)
			p.rowBuffer.addPoint(pv1, gradU)
			p.rowBuffer.addPoint(pv0, gradW.Mul(-1).Add(gradU.Mul(-1)))
		}
		p.rowBuffer.flush(jac)
	}
}
