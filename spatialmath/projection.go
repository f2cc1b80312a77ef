package spatialmath

import "github.com/golang/geo/r3"

// Intrinsics holds a pinhole camera's focal length, principal point, skew, and
// Brown-Conrady distortion coefficients. fy is derived from fx and aspectRatio rather than
// stored independently, per the projection pipeline's definition.
type Intrinsics struct {
	Fx          float64
	AspectRatio float64
	Cx, Cy      float64
	Skew        float64
	K1, K2, K3  float64
	P1, P2      float64
}

// DefaultIntrinsics returns an undistorted, unit-aspect intrinsics block for a given focal
// length and principal point; a common seed before VP-based focal estimation runs.
func DefaultIntrinsics(fx, cx, cy float64) Intrinsics {
	return Intrinsics{Fx: fx, AspectRatio: 1, Cx: cx, Cy: cy}
}

// Fy returns the effective vertical focal length, fx*aspectRatio.
func (in Intrinsics) Fy() float64 { return in.Fx * in.AspectRatio }

// ProjectionResult carries the outcome of projecting one world point through one camera.
type ProjectionResult struct {
	U, V    float64
	InFront bool
	// CamPoint is the point in camera space (post rotation, post Z-reflection), exposed
	// so Jacobian code can reuse it instead of recomputing the pipeline.
	CamPoint r3.Vector
	// Normalized is (x', y') before distortion.
	Normalized r3.Vector
	// Distorted is (x'', y'') after Brown-Conrady distortion.
	Distorted r3.Vector
}

// Project implements the full pinhole + Brown-Conrady pipeline (spec §4.2 steps 1-7):
// translate into camera space, rotate, optionally Z-reflect for a flipped-handedness
// camera, test cheirality, normalize, distort, then apply intrinsics. When the point is at
// or behind the camera (camZ <= 0) InFront is false and U/V are left at zero: the caller
// (the reprojection residual provider) must suppress the residual contribution entirely,
// never emit a projection for an invalid configuration.
func Project(world r3.Vector, cam Pose, isZReflected bool, intr Intrinsics) ProjectionResult {
	camPoint := cam.ToCameraFrame(world)
	if isZReflected {
		camPoint = r3.Vector{X: -camPoint.X, Y: -camPoint.Y, Z: -camPoint.Z}
	}
	if camPoint.Z <= 0 {
		return ProjectionResult{CamPoint: camPoint, InFront: false}
	}

	xp := camPoint.X / camPoint.Z
	yp := camPoint.Y / camPoint.Z
	normalized := r3.Vector{X: xp, Y: yp}

	xpp, ypp := intr.Distort(xp, yp)
	distorted := r3.Vector{X: xpp, Y: ypp}

	u := intr.Fx*xpp + intr.Skew*ypp + intr.Cx
	v := intr.Fy()*ypp + intr.Cy

	return ProjectionResult{
		U: u, V: v, InFront: true,
		CamPoint: camPoint, Normalized: normalized, Distorted: distorted,
	}
}

// Distort applies Brown-Conrady radial (k1,k2,k3) and tangential (p1,p2) distortion to a
// normalized image coordinate (xp, yp).
func (in Intrinsics) Distort(xp, yp float64) (xpp, ypp float64) {
	r2 := xp*xp + yp*yp
	r4 := r2 * r2
	r6 := r4 * r2
	radial := 1 + in.K1*r2 + in.K2*r4 + in.K3*r6

	xpp = xp*radial + 2*in.P1*xp*yp + in.P2*(r2+2*xp*xp)
	ypp = yp*radial + in.P1*(r2+2*yp*yp) + 2*in.P2*xp*yp
	return xpp, ypp
}

// DistortJacobian returns the 2x2 Jacobian of (xpp, ypp) w.r.t. (xp, yp), used by the
// reprojection provider to chain the distortion derivative into the full pixel Jacobian.
func (in Intrinsics) DistortJacobian(xp, yp float64) (dXppDxp, dXppDyp, dYppDxp, dYppDyp float64) {
	r2 := xp*xp + yp*yp
	r4 := r2 * r2
	radial := 1 + in.K1*r2 + in.K2*r4 + in.K3*r2*r4
	dRadialDxp := 2 * xp * (in.K1 + 2*in.K2*r2 + 3*in.K3*r4)
	dRadialDyp := 2 * yp * (in.K1 + 2*in.K2*r2 + 3*in.K3*r4)

	dXppDxp = radial + xp*dRadialDxp + 2*in.P1*yp + in.P2*(2*xp+4*xp)
	dXppDyp = xp*dRadialDyp + 2*in.P1*xp + in.P2*2*yp
	dYppDxp = yp*dRadialDxp + in.P1*2*xp + 2*in.P2*yp
	dYppDyp = radial + yp*dRadialDyp + in.P1*(2*yp+4*yp) + 2*in.P2*xp
	return
}
