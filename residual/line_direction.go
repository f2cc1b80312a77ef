package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

type lineDirKind int

const (
	lineDirNone lineDirKind = iota
	// lineDirAxis: the line's endpoint-to-endpoint vector must point along one world
	// axis; residual is the norm of the component perpendicular to that axis.
	lineDirAxis
	// lineDirPlane: the line must lie in one coordinate plane; residual is the
	// component along the excluded (out-of-plane) axis.
	lineDirPlane
)

// resolveLineDirection maps a DirectionTag to the residual shape it implies. Horizontal
// resolves to the xy plane and Vertical to the z axis, the conventional aliases most
// photogrammetry tools expose at the persistence boundary instead of raw axis tags.
func resolveLineDirection(tag project.DirectionTag) (kind lineDirKind, axis int) {
	switch tag {
	case project.DirectionX:
		return lineDirAxis, 0
	case project.DirectionY:
		return lineDirAxis, 1
	case project.DirectionZ, project.DirectionVertical:
		return lineDirAxis, 2
	case project.DirectionXY, project.DirectionHorizontal:
		return lineDirPlane, 2
	case project.DirectionXZ:
		return lineDirPlane, 1
	case project.DirectionYZ:
		return lineDirPlane, 0
	default:
		return lineDirNone, -1
	}
}

func axisUnit(axis int) r3.Vector {
	switch axis {
	case 0:
		return r3.Vector{X: 1}
	case 1:
		return r3.Vector{Y: 1}
	default:
		return r3.Vector{Z: 1}
	}
}

func zeroAxis(v r3.Vector, axis int) r3.Vector {
	switch axis {
	case 0:
		v.X = 0
	case 1:
		v.Y = 0
	default:
		v.Z = 0
	}
	return v
}

func axisComponent(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// LineDirectionProvider implements spec §4.4's Line direction residual (k=1); inactive
// (ResidualCount still 1, but the row and value are always zero) for lines tagged
// DirectionFree, which carry no direction constraint.
type LineDirectionProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	a, b      project.EntityRef
	kind      lineDirKind
	axis      int
	rowBuffer *rowBuilder
}

// NewLineDirectionProvider builds a LineDirectionProvider for a Line.
func NewLineDirectionProvider(l *varlayout.Layout, arena *project.Arena, line *project.Line) *LineDirectionProvider {
	kind, axis := resolveLineDirection(line.Direction)
	return &LineDirectionProvider{
		layout: l, arena: arena, a: line.EndpointA, b: line.EndpointB,
		kind: kind, axis: axis, rowBuffer: newRowBuilder(6),
	}
}

func (p *LineDirectionProvider) ResidualCount() int { return 1 }

func (p *LineDirectionProvider) Compute(x []float64, out []float64) {
	if p.kind == lineDirNone {
		out[0] = 0
		return
	}
	_, a := pointVars(p.layout, p.arena, x, p.a)
	_, b := pointVars(p.layout, p.arena, x, p.b)
	d := b.Sub(a)
	switch p.kind {
	case lineDirAxis:
		out[0] = zeroAxis(d, p.axis).Norm()
	case lineDirPlane:
		out[0] = axisComponent(d, p.axis)
	}
}

func (p *LineDirectionProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	p.rowBuffer.reset()
	if p.kind == lineDirNone {
		p.rowBuffer.flush(jac)
		return
	}
	pvA, a := pointVars(p.layout, p.arena, x, p.a)
	pvB, b := pointVars(p.layout, p.arena, x, p.b)
	d := b.Sub(a)

	var grad r3.Vector
	switch p.kind {
	case lineDirAxis:
		perp := zeroAxis(d, p.axis)
		if dir, _, ok := unit(perp); ok {
			grad = dir
		}
	case lineDirPlane:
		grad = axisUnit(p.axis)
	}
	p.rowBuffer.addPoint(pvB, grad)
	p.rowBuffer.addPoint(pvA, grad.Mul(-1))
	p.rowBuffer.flush(jac)
}

// LineLengthProvider implements spec §4.4's Line length residual: ‖endB−endA‖ − target
// (k=1), active only when the Line carries a TargetLength.
type LineLengthProvider struct {
	layout    *varlayout.Layout
	arena     *project.Arena
	a, b      project.EntityRef
	target    float64
	active    bool
	rowBuffer *rowBuilder
}

// NewLineLengthProvider builds a LineLengthProvider for a Line. If the line has no
// TargetLength, the provider is inactive and always emits a zero residual and empty row.
func NewLineLengthProvider(l *varlayout.Layout, arena *project.Arena, line *project.Line) *LineLengthProvider {
	p := &LineLengthProvider{layout: l, arena: arena, a: line.EndpointA, b: line.EndpointB, rowBuffer: newRowBuilder(6)}
	if line.TargetLength != nil {
		p.active = true
		p.target = *line.TargetLength
	}
	return p
}

func (p *LineLengthProvider) ResidualCount() int { return 1 }

func (p *LineLengthProvider) Compute(x []float64, out []float64) {
	if !p.active {
		out[0] = 0
		return
	}
	_, a := pointVars(p.layout, p.arena, x, p.a)
	_, b := pointVars(p.layout, p.arena, x, p.b)
	out[0] = b.Sub(a).Norm() - p.target
}

func (p *LineLengthProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	p.rowBuffer.reset()
	if !p.active {
		p.rowBuffer.flush(jac)
		return
	}
	pvA, a := pointVars(p.layout, p.arena, x, p.a)
	pvB, b := pointVars(p.layout, p.arena, x, p.b)
	if dir, _, ok := unit(b.Sub(a)); ok {
		p.rowBuffer.addPoint(pvB, dir)
		p.rowBuffer.addPoint(pvA, dir.Mul(-1))
	}
	p.rowBuffer.flush(jac)
}
