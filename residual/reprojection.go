package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

// intrinsicGradOrder mirrors varlayout's 9-column intrinsic layout: Fx, AspectRatio, Cx,
// Cy, Skew, K1, K2, P1, P2 (K3 held fixed).
const (
	intrFx = iota
	intrAspect
	intrCx
	intrCy
	intrSkew
	intrK1
	intrK2
	intrP1
	intrP2
)

// ReprojectionProvider implements spec §4.2/§4.4's reprojection residual (k=2): the
// difference between a point's projection through a camera and its observed pixel. When
// the point is at or behind the camera, the provider is inactive this step — it emits a
// zero residual and an empty Jacobian row rather than a projection for an invalid
// configuration (spec §4.2 step 4).
type ReprojectionProvider struct {
	layout     *varlayout.Layout
	arena      *project.Arena
	worldPoint project.EntityRef
	viewpoint  project.EntityRef
	obsU, obsV float64
	rowU       *rowBuilder
	rowV       *rowBuilder
}

// NewReprojectionProvider builds a ReprojectionProvider for one ImagePoint.
func NewReprojectionProvider(l *varlayout.Layout, arena *project.Arena, ip *project.ImagePoint) *ReprojectionProvider {
	return &ReprojectionProvider{
		layout: l, arena: arena,
		worldPoint: ip.WorldPoint, viewpoint: ip.Viewpoint,
		obsU: ip.U, obsV: ip.V,
		rowU: newRowBuilder(16), rowV: newRowBuilder(16),
	}
}

func (p *ReprojectionProvider) ResidualCount() int { return 2 }

func (p *ReprojectionProvider) Compute(x []float64, out []float64) {
	wp := p.arena.WorldPoint(p.worldPoint)
	vp := p.arena.Viewpoint(p.viewpoint)
	world := p.layout.PointPosition(x, p.worldPoint, wp)
	pose := p.layout.CameraPose(x, p.viewpoint, vp)
	intr := p.layout.CameraIntrinsics(x, p.viewpoint, vp)

	result := spatialmath.Project(world, pose, vp.IsZReflected, intr)
	if !result.InFront {
		out[0], out[1] = 0, 0
		return
	}
	out[0] = result.U - p.obsU
	out[1] = result.V - p.obsV
}

// AppendJacobian computes the analytical 2xN Jacobian block for this observation: the
// chain rule through translate -> rotate -> z-reflect -> normalize -> distort -> pixel
// (spec §4.2 steps 1-7), with respect to the point's free axes, the camera's free
// position/orientation/intrinsic columns.
func (p *ReprojectionProvider) AppendJacobian(x []float64, jac *sparsela.CSR) {
	p.rowU.reset()
	p.rowV.reset()

	pv, world := pointVars(p.layout, p.arena, x, p.worldPoint)
	vp := p.arena.Viewpoint(p.viewpoint)
	cv, _ := p.layout.Camera(p.viewpoint)
	pose := p.layout.CameraPose(x, p.viewpoint, vp)
	intr := p.layout.CameraIntrinsics(x, p.viewpoint, vp)

	t := world.Sub(pose.Position)
	conjQ := pose.Orientation.Conjugate()
	rotated, dw, dxq, dyq, dzq := rotateJacobian(conjQ, t)

	sign := 1.0
	if vp.IsZReflected {
		sign = -1.0
	}
	camPoint := rotated.Mul(sign)
	// d(camPoint)/dqw = sign*dw ; d/dqx = -sign*dx (conjugate negates x,y,z), etc.
	dCamDQw := dw.Mul(sign)
	dCamDQx := dxq.Mul(-sign)
	dCamDQy := dyq.Mul(-sign)
	dCamDQz := dzq.Mul(-sign)
	// d(camPoint)/dP = sign*R (same rotation applied to a unit perturbation of world point)
	// d(camPoint)/dCamPos = -sign*R
	// R is linear, so for a world-axis unit vector e_k, R e_k is just the k'th "row" of
	// the rotation; reuse rotateJacobian against the axis unit vectors.
	rotX, _, _, _, _ := rotateJacobian(conjQ, r3.Vector{X: 1})
	rotY, _, _, _, _ := rotateJacobian(conjQ, r3.Vector{Y: 1})
	rotZ, _, _, _, _ := rotateJacobian(conjQ, r3.Vector{Z: 1})

	if camPoint.Z <= 0 {
		p.rowU.flush(jac)
		p.rowV.flush(jac)
		return
	}

	camZ2 := camPoint.Z * camPoint.Z
	xp := camPoint.X / camPoint.Z
	yp := camPoint.Y / camPoint.Z

	// dxp/d(var), dyp/d(var) given dCam (d camPoint/d var).
	toNormalized := func(dCam r3.Vector) (dxp, dyp float64) {
		dxp = (dCam.X*camPoint.Z - camPoint.X*dCam.Z) / camZ2
		dyp = (dCam.Y*camPoint.Z - camPoint.Y*dCam.Z) / camZ2
		return
	}

	dXppDxp, dXppDyp, dYppDxp, dYppDyp := intr.DistortJacobian(xp, yp)
	toPixel := func(dxp, dyp float64) (du, dv float64) {
		dxpp := dXppDxp*dxp + dXppDyp*dyp
		dypp := dYppDxp*dxp + dYppDyp*dyp
		du = intr.Fx*dxpp + intr.Skew*dypp
		dv = intr.Fy() * dypp
		return
	}

	addCol := func(col int, dCam r3.Vector, mulSign float64) {
		if col < 0 {
			return
		}
		dxp, dyp := toNormalized(dCam.Mul(mulSign))
		du, dv := toPixel(dxp, dyp)
		p.rowU.cols = append(p.rowU.cols, col)
		p.rowU.vals = append(p.rowU.vals, du)
		p.rowV.cols = append(p.rowV.cols, col)
		p.rowV.vals = append(p.rowV.vals, dv)
	}

	// World point axes: d(camPoint)/dP_axis = sign * R(e_axis).
	rotAxis := [3]r3.Vector{rotX, rotY, rotZ}
	for axis := 0; axis < 3; axis++ {
		addCol(pv.FreeCol[axis], rotAxis[axis], sign)
	}
	// Camera position axes: d(camPoint)/dCamPos_axis = -sign * R(e_axis).
	for axis := 0; axis < 3; axis++ {
		addCol(cv.PosCol[axis], rotAxis[axis], -sign)
	}
	// Camera quaternion components.
	addCol(cv.QuatCol[0], dCamDQw, 1)
	addCol(cv.QuatCol[1], dCamDQx, 1)
	addCol(cv.QuatCol[2], dCamDQy, 1)
	addCol(cv.QuatCol[3], dCamDQz, 1)

	if cv.HasIntrinsics() {
		r2 := xp*xp + yp*yp
		r4 := r2 * r2
		dXppDK1 := xp * r2
		dXppDK2 := xp * r4
		dXppDP1 := 2 * xp * yp
		dXppDP2 := r2 + 2*xp*xp
		dYppDK1 := yp * r2
		dYppDK2 := yp * r4
		dYppDP1 := r2 + 2*yp*yp
		dYppDP2 := 2 * xp * yp

		fy := intr.Fy()
		addIntr := func(col int, du, dv float64) {
			if col < 0 {
				return
			}
			p.rowU.cols = append(p.rowU.cols, col)
			p.rowU.vals = append(p.rowU.vals, du)
			p.rowV.cols = append(p.rowV.cols, col)
			p.rowV.vals = append(p.rowV.vals, dv)
		}
		xpp, ypp := intr.Distort(xp, yp)
		addIntr(cv.IntrinsicCol[intrFx], xpp, intr.AspectRatio*ypp)
		addIntr(cv.IntrinsicCol[intrAspect], 0, intr.Fx*ypp)
		addIntr(cv.IntrinsicCol[intrCx], 1, 0)
		addIntr(cv.IntrinsicCol[intrCy], 0, 1)
		addIntr(cv.IntrinsicCol[intrSkew], ypp, 0)
		addIntr(cv.IntrinsicCol[intrK1], intr.Fx*dXppDK1+intr.Skew*dYppDK1, fy*dYppDK1)
		addIntr(cv.IntrinsicCol[intrK2], intr.Fx*dXppDK2+intr.Skew*dYppDK2, fy*dYppDK2)
		addIntr(cv.IntrinsicCol[intrP1], intr.Fx*dXppDP1+intr.Skew*dYppDP1, fy*dYppDP1)
		addIntr(cv.IntrinsicCol[intrP2], intr.Fx*dXppDP2+intr.Skew*dYppDP2, fy*dYppDP2)
	}

	p.rowU.flush(jac)
	p.rowV.flush(jac)
}
