package residual

import (
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// QuatWeight scales the unit-norm soft constraint relative to reprojection residuals
// (measured in pixels), so a drifting quaternion magnitude is corrected well before it
// noticeably distorts the rotation. Kept as a package constant rather than a
// SolverOptions field since the spec does not expose it as user-tunable.
const QuatWeight = 1e3

// QuatUnitNormProvider implements spec §4.4's quaternion unit-norm residual: ‖q‖²−1,
// weighted high, emitted once per non-locked camera orientation.
type QuatUnitNormProvider struct {
	layout    *varlayout.Layout
	viewpoint project.EntityRef
	active    bool
	rowBuffer *rowBuilder
}

// NewQuatUnitNormProvider builds a QuatUnitNormProvider for a Viewpoint. If the
// viewpoint's orientation is not free in this layout, the provider is inactive.
func NewQuatUnitNormProvider(l *varlayout.Layout, ref project.EntityRef) *QuatUnitNormProvider {
	cv, ok := l.Camera(ref)
	active := ok && cv.QuatCol[0] >= 0
	return &QuatUnitNormProvider{layout: l, viewpoint: ref, active: active, rowBuffer: newRowBuilder(4)}
}

func (p *QuatUnitNormProvider) ResidualCount() int { return 1 }

func (p *QuatUnitNormProvider) Compute(x []float64, out []float64) {
	if !p.active {
		out[0] = 0
		return
	}
	cv, _ := p.layout.Camera(p.viewpoint)
	w, xx, y, z := x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]]
	out[0] = QuatWeight * (w*w + xx*xx + y*y + z*z - 1)
}

func (p *QuatUnitNormProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	p.rowBuffer.reset()
	if p.active {
		cv, _ := p.layout.Camera(p.viewpoint)
		w, xx, y, z := x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]]
		p.rowBuffer.cols = append(p.rowBuffer.cols, cv.QuatCol[0], cv.QuatCol[1], cv.QuatCol[2], cv.QuatCol[3])
		p.rowBuffer.vals = append(p.rowBuffer.vals, QuatWeight*2*w, QuatWeight*2*xx, QuatWeight*2*y, QuatWeight*2*z)
	}
	p.rowBuffer.flush(jac)
}
