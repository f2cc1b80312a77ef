package residual

import (
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// EqualDistancesProvider implements spec §4.4's EqualDistances residual: pairwise
// differences of ‖A_i−B_i‖ against the first pair's distance (k = m-1).
type EqualDistancesProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	pairs     []project.DistancePair
	rowBuffer *rowBuilder
}

// NewEqualDistancesProvider builds an EqualDistancesProvider for a constraint over >=2 pairs.
func NewEqualDistancesProvider(l *varlayout.Layout, arena *project.Arena, c *project.EqualDistancesConstraint) *EqualDistancesProvider {
	return &EqualDistancesProvider{layout: l, arena: arena, pairs: c.Pairs, rowBuffer: newRowBuilder(12)}
}

func (p *EqualDistancesProvider) ResidualCount() int {
	if len(p.pairs) < 2 {
		return 0
	}
	return len(p.pairs) - 1
}

func (p *EqualDistancesProvider) dist(x []float64, pair project.DistancePair) float64 {
	_, a := pointVars(p.layout, p.arena, x, pair.A)
	_, b := pointVars(p.layout, p.arena, x, pair.B)
	return a.Sub(b).Norm()
}

func (p *EqualDistancesProvider) Compute(x []float64, out []float64) {
	if len(p.pairs) < 2 {
		return
	}
	d0 := p.dist(x, p.pairs[0])
	for i := 1; i < len(p.pairs); i++ {
		out[i-1] = p.dist(x, p.pairs[i]) - d0
	}
}

func (p *EqualDistancesProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	if len(p.pairs) < 2 {
		return
	}
	_, a0 := pointVars(p.layout, p.arena, x, p.pairs[0].A)
	_, b0 := pointVars(p.layout, p.arena, x, p.pairs[0].B)
	pvA0, _ := pointVars(p.layout, p.arena, x, p.pairs[0].A)
	pvB0, _ := pointVars(p.layout, p.arena, x, p.pairs[0].B)
	dir0, _, ok0 := unit(a0.Sub(b0))

	for i := 1; i < len(p.pairs); i++ {
		pair := p.pairs[i]
		_, a := pointVars(p.layout, p.arena, x, pair.A)
		_, b := pointVars(p.layout, p.arena, x, pair.B)
		pvA, _ := pointVars(p.layout, p.arena, x, pair.A)
		pvB, _ := pointVars(p.layout, p.arena, x, pair.B)

		p.rowBuffer.reset()
		if dir, _, ok := unit(a.Sub(b)); ok {
			p.rowBuffer.addPoint(pvA, dir)
			p.rowBuffer.addPoint(pvB, dir.Mul(-1))
		}
		if ok0 {
			p.rowBuffer.addPoint(pvA0, dir0.Mul(-1))
			p.rowBuffer.addPoint(pvB0, dir0)
		}
		p.rowBuffer.flush(jac)
	}
}
