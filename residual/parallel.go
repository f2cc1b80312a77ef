package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// ParallelLinesProvider implements spec §4.4's ParallelLines residual using the
// cross-product form: |u×v|/(|u||v|), the magnitude of the sine of the angle between the
// two lines' direction vectors. Chosen over 1−|cos θ| because it has no numerical trap
// near 0° or 180° (where the cosine form's derivative blows up).
type ParallelLinesProvider struct {
	layout     *varlayout.Layout
	arena      *project.Arena
	a1, b1     project.EntityRef
	a2, b2     project.EntityRef
	rowBuffer1 *rowBuilder
	rowBuffer2 *rowBuilder
}

// NewParallelLinesProvider builds a ParallelLinesProvider for a ParallelLinesConstraint.
func NewParallelLinesProvider(l *varlayout.Layout, arena *project.Arena, c *project.ParallelLinesConstraint) *ParallelLinesProvider {
	lineA, lineB := arena.Line(c.LineA), arena.Line(c.LineB)
	return &ParallelLinesProvider{
		layout: l, arena: arena,
		a1: lineA.EndpointA, b1: lineA.EndpointB,
		a2: lineB.EndpointA, b2: lineB.EndpointB,
		rowBuffer1: newRowBuilder(6), rowBuffer2: newRowBuilder(6),
	}
}

func (p *ParallelLinesProvider) ResidualCount() int { return 1 }

func (p *ParallelLinesProvider) directions(x []float64) (u, v r3.Vector, ok bool) {
	_, a1 := pointVars(p.layout, p.arena, x, p.a1)
	_, b1 := pointVars(p.layout, p.arena, x, p.b1)
	_, a2 := pointVars(p.layout, p.arena, x, p.a2)
	_, b2 := pointVars(p.layout, p.arena, x, p.b2)
	uu := b1.Sub(a1)
	vv := b2.Sub(a2)
	if uu.Norm() < 1e-12 || vv.Norm() < 1e-12 {
		return r3.Vector{}, r3.Vector{}, false
	}
	return uu, vv, true
}

func (p *ParallelLinesProvider) Compute(x []float64, out []float64) {
	u, v, ok := p.directions(x)
	if !ok {
		out[0] = 0
		return
	}
	n := u.Cross(v)
	out[0] = n.Norm() / (u.Norm() * v.Norm())
}

func (p *ParallelLinesProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	p.rowBuffer1.reset()
	p.rowBuffer2.reset()
	u, v, ok := p.directions(x)
	if !ok {
		p.rowBuffer1.flush(jac)
		p.rowBuffer2.flush(jac)
		return
	}
	uNorm, vNorm := u.Norm(), v.Norm()
	n := u.Cross(v)
	nNorm := n.Norm()
	if nNorm < 1e-12 {
		p.rowBuffer1.flush(jac)
		p.rowBuffer2.flush(jac)
		return
	}
	nhat := n.Mul(1 / nNorm)
	f := nNorm / (uNorm * vNorm)
	uhat := u.Mul(1 / uNorm)
	vhat := v.Mul(1 / vNorm)
	D := uNorm * vNorm

	dfDu := v.Cross(nhat).Mul(1 / D).Sub(uhat.Mul(f / uNorm))
	dfDv := nhat.Cross(u).Mul(1 / D).Sub(vhat.Mul(f / vNorm))

	pvA1, _ := pointVars(p.layout, p.arena, x, p.a1)
	pvB1, _ := pointVars(p.layout, p.arena, x, p.b1)
	p.rowBuffer1.addPoint(pvB1, dfDu)
	p.rowBuffer1.addPoint(pvA1, dfDu.Mul(-1))
	p.rowBuffer1.flush(jac)

	pvA2, _ := pointVars(p.layout, p.arena, x, p.a2)
	pvB2, _ := pointVars(p.layout, p.arena, x, p.b2)
	p.rowBuffer2.addPoint(pvB2, dfDv)
	p.rowBuffer2.addPoint(pvA2, dfDv.Mul(-1))
	p.rowBuffer2.flush(jac)
}
