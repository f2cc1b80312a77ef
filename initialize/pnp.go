package initialize

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

// minPnPCorrespondences is the fewest locked-point/pixel correspondences a direct linear
// transform (DLT) pose solve needs; spec §4.6 documents the practical minimum as 4, since
// 6 unknowns (3 rotation + 3 translation, up to an overall scale already fixed by the known
// 3D points) requires at least 4 independent 2-equation correspondences for a stable
// least-squares solve.
const minPnPCorrespondences = 4

type pnpCorrespondence struct {
	world r3.Vector
	u, v  float64
}

// PnP seeds the pose of every enabled, non-pose-locked Viewpoint that observes at least
// minPnPCorrespondences fully-locked WorldPoints, via a direct-linear-transform estimate of
// the 3x4 camera matrix followed by RQ-style decomposition against the viewpoint's known
// intrinsics (spec §4.6: "estimate pose by a direct linear transform plus Gauss-Newton
// refinement on reprojection" — the Gauss-Newton refinement itself happens later, during the
// orchestrator's short LM probe on this candidate). Returns ErrInsufficientData if no
// viewpoint has enough correspondences.
func PnP(proj *project.Project, layout *varlayout.Layout) (*Candidate, error) {
	x := append([]float64(nil), layout.InitialValues...)
	arena := proj.Arena
	seeded := 0

	for _, ref := range layout.CameraOrder() {
		vp := arena.Viewpoint(ref)
		cv, _ := layout.Camera(ref)
		if cv.PosCol[0] == -1 {
			continue
		}

		corrs := collectLockedCorrespondences(arena, vp)
		if len(corrs) < minPnPCorrespondences {
			continue
		}

		pose, ok := solvePoseDLT(corrs, vp.Intrinsics)
		if !ok {
			continue
		}

		x[cv.PosCol[0]], x[cv.PosCol[1]], x[cv.PosCol[2]] = pose.Position.X, pose.Position.Y, pose.Position.Z
		w, qx, qy, qz := pose.Orientation.Components()
		x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]] = w, qx, qy, qz
		seeded++
	}

	if seeded == 0 {
		return nil, baerrors.ErrInsufficientData
	}
	return &Candidate{Source: "pnp", X: x}, nil
}

func collectLockedCorrespondences(arena *project.Arena, vp *project.Viewpoint) []pnpCorrespondence {
	var out []pnpCorrespondence
	for _, ref := range vp.ImagePoints {
		ip := arena.ImagePoint(ref)
		if ip == nil {
			continue
		}
		wp := arena.WorldPoint(ip.WorldPoint)
		if wp == nil || !wp.FullyConstrained() {
			continue
		}
		out = append(out, pnpCorrespondence{world: wp.EffectiveXYZ(), u: ip.U, v: ip.V})
	}
	return out
}

// solvePoseDLT estimates the 3x4 camera matrix P (up to scale) via the standard DLT
// homogeneous system, then recovers a metric pose given the already-known intrinsics by
// normalizing K⁻¹·P[:,:3] back to an orthogonal rotation (nearest-rotation via SVD) and
// scaling the translation column by the same factor.
func solvePoseDLT(corrs []pnpCorrespondence, intr spatialmath.Intrinsics) (spatialmath.Pose, bool) {
	n := len(corrs)
	a := mat.NewDense(2*n, 12, nil)
	for i, c := range corrs {
		X, Y, Z := c.world.X, c.world.Y, c.world.Z
		row0 := 2 * i
		row1 := 2*i + 1
		a.SetRow(row0, []float64{
			X, Y, Z, 1, 0, 0, 0, 0, -c.u * X, -c.u * Y, -c.u * Z, -c.u,
		})
		a.SetRow(row1, []float64{
			0, 0, 0, 0, X, Y, Z, 1, -c.v * X, -c.v * Y, -c.v * Z, -c.v,
		})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return spatialmath.Pose{}, false
	}
	var v mat.Dense
	svd.VTo(&v)
	pVec := mat.Col(nil, 11, &v)

	p := mat.NewDense(3, 4, pVec)

	kInv := mat.NewDense(3, 3, []float64{
		1 / intr.Fx, -intr.Skew / (intr.Fx * intr.Fy()), (intr.Skew*intr.Cy/intr.Fy() - intr.Cx) / intr.Fx,
		0, 1 / intr.Fy(), -intr.Cy / intr.Fy(),
		0, 0, 1,
	})

	var m mat.Dense
	m.Mul(kInv, p.Slice(0, 3, 0, 3))

	var svdM mat.SVD
	if !svdM.Factorize(&m, mat.SVDFull) {
		return spatialmath.Pose{}, false
	}
	var um, vm mat.Dense
	svdM.UTo(&um)
	svdM.VTo(&vm)
	svM := svdM.Values(nil)
	scale := (svM[0] + svM[1] + svM[2]) / 3
	if scale == 0 || math.IsNaN(scale) {
		return spatialmath.Pose{}, false
	}

	var r mat.Dense
	r.Mul(&um, vm.T())
	if mat.Det(&r) < 0 {
		r.Scale(-1, &r)
		scale = -scale
	}

	pCol := mat.Col(nil, 3, p)
	tVec := mat.NewVecDense(3, nil)
	tVec.MulVec(kInv, mat.NewVecDense(3, pCol))
	t := r3.Vector{X: tVec.AtVec(0) / scale, Y: tVec.AtVec(1) / scale, Z: tVec.AtVec(2) / scale}

	// P = K[R_cw | t_cw] maps world into camera space; the viewpoint stores the inverse
	// (camera position and orientation in world space).
	rCW := [3][3]float64{
		{r.At(0, 0), r.At(0, 1), r.At(0, 2)},
		{r.At(1, 0), r.At(1, 1), r.At(1, 2)},
		{r.At(2, 0), r.At(2, 1), r.At(2, 2)},
	}
	qCW := spatialmath.FromRotationMatrix(rCW)
	qWC := qCW.Conjugate()
	camPos := qWC.RotateVector(r3.Vector{X: -t.X, Y: -t.Y, Z: -t.Z})

	return spatialmath.NewPose(camPos, qWC), true
}
