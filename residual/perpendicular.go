package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// PerpendicularLinesProvider implements spec §4.4's PerpendicularLines residual: the dot
// product of the two lines' unit direction vectors (zero at a right angle).
type PerpendicularLinesProvider struct {
	layout     *varlayout.Layout
	arena      *project.Arena
	a1, b1     project.EntityRef
	a2, b2     project.EntityRef
	rowBuffer1 *rowBuilder
	rowBuffer2 *rowBuilder
}

// NewPerpendicularLinesProvider builds a PerpendicularLinesProvider for a constraint.
func NewPerpendicularLinesProvider(l *varlayout.Layout, arena *project.Arena, c *project.PerpendicularLinesConstraint) *PerpendicularLinesProvider {
	lineA, lineB := arena.Line(c.LineA), arena.Line(c.LineB)
	return &PerpendicularLinesProvider{
		layout: l, arena: arena,
		a1: lineA.EndpointA, b1: lineA.EndpointB,
		a2: lineB.EndpointA, b2: lineB.EndpointB,
		rowBuffer1: newRowBuilder(6), rowBuffer2: newRowBuilder(6),
	}
}

func (p *PerpendicularLinesProvider) ResidualCount() int { return 1 }

func (p *PerpendicularLinesProvider) unitDirs(x []float64) (uhat, vhat r3.Vector, uNorm, vNorm float64, ok bool) {
	_, a1 := pointVars(p.layout, p.arena, x, p.a1)
	_, b1 := pointVars(p.layout, p.arena, x, p.b1)
	_, a2 := pointVars(p.layout, p.arena, x, p.a2)
	_, b2 := pointVars(p.layout, p.arena, x, p.b2)
	u := b1.Sub(a1)
	v := b2.Sub(a2)
	uh, un, uok := unit(u)
	vh, vn, vok := unit(v)
	if !uok || !vok {
		return r3.Vector{}, r3.Vector{}, 0, 0, false
	}
	return uh, vh, un, vn, true
}

func (p *PerpendicularLinesProvider) Compute(x []float64, out []float64) {
	uhat, vhat, _, _, ok := p.unitDirs(x)
	if !ok {
		out[0] = 0
		return
	}
	out[0] = uhat.Dot(vhat)
}

func (p *PerpendicularLinesProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	p.rowBuffer1.reset()
	p.rowBuffer2.reset()
	uhat, vhat, uNorm, vNorm, ok := p.unitDirs(x)
	if !ok {
		p.rowBuffer1.flush(jac)
		p.rowBuffer2.flush(jac)
		return
	}
	dot := uhat.Dot(vhat)
	dfDu := vhat.Sub(uhat.Mul(dot)).Mul(1 / uNorm)
	dfDv := uhat.Sub(vhat.Mul(dot)).Mul(1 / vNorm)

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
