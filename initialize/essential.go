package initialize

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

// minEssentialCorrespondences is the fewest shared point observations two viewpoints need
// for an 8-point essential-matrix estimate (spec §4.6 documents 5 as the theoretical
// minimum for the 5-point algorithm; this implementation uses the simpler, more numerically
// forgiving 8-point linear algorithm, which the teacher's gonum-backed numeric stack
// already supports via mat.SVD without a dedicated 5-point solver).
const minEssentialCorrespondences = 8

// EssentialMatrix seeds the relative pose between the first pair of enabled viewpoints
// sharing enough common free-point observations, via the 8-point algorithm followed by
// cheirality-tested decomposition into the four (R,t) candidates (spec §4.6). The first
// viewpoint is left at its current pose (or identity if unseeded); the second is placed
// relative to it. Returns ErrInsufficientData if no pair qualifies.
func EssentialMatrix(proj *project.Project, layout *varlayout.Layout) (*Candidate, error) {
	arena := proj.Arena
	viewpoints := layout.CameraOrder()

	for i := 0; i < len(viewpoints); i++ {
		for j := i + 1; j < len(viewpoints); j++ {
			vpA := arena.Viewpoint(viewpoints[i])
			vpB := arena.Viewpoint(viewpoints[j])
			if vpA == nil || vpB == nil || !vpA.EnabledInSolve || !vpB.EnabledInSolve {
				continue
			}
			shared := sharedObservations(arena, vpA, vpB)
			if len(shared) < minEssentialCorrespondences {
				continue
			}

			x := append([]float64(nil), layout.InitialValues...)
			if seedPairFromEssential(layout, x, viewpoints[i], viewpoints[j], vpA, vpB, shared) {
				return &Candidate{Source: "essential_matrix", X: x}, nil
			}
		}
	}
	return nil, baerrors.ErrInsufficientData
}

type sharedObs struct {
	worldRef project.EntityRef
	uA, vA   float64
	uB, vB   float64
}

func sharedObservations(arena *project.Arena, vpA, vpB *project.Viewpoint) []sharedObs {
	byPoint := make(map[project.EntityRef][2]*project.ImagePoint)
	for _, ref := range vpA.ImagePoints {
		ip := arena.ImagePoint(ref)
		if ip == nil {
			continue
		}
		entry := byPoint[ip.WorldPoint]
		entry[0] = ip
		byPoint[ip.WorldPoint] = entry
	}
	var out []sharedObs
	for _, ref := range vpB.ImagePoints {
		ip := arena.ImagePoint(ref)
		if ip == nil {
			continue
		}
		entry, ok := byPoint[ip.WorldPoint]
		if !ok || entry[0] == nil {
			continue
		}
		out = append(out, sharedObs{worldRef: ip.WorldPoint, uA: entry[0].U, vA: entry[0].V, uB: ip.U, vB: ip.V})
	}
	return out
}

func seedPairFromEssential(layout *varlayout.Layout, x []float64, refA, refB project.EntityRef, vpA, vpB *project.Viewpoint, shared []sharedObs) bool {
	n := len(shared)
	a := mat.NewDense(n, 9, nil)
	for i, s := range shared {
		x1, y1 := (s.uA-vpA.Intrinsics.Cx)/vpA.Intrinsics.Fx, (s.vA-vpA.Intrinsics.Cy)/vpA.Intrinsics.Fy()
		x2, y2 := (s.uB-vpB.Intrinsics.Cx)/vpB.Intrinsics.Fx, (s.vB-vpB.Intrinsics.Cy)/vpB.Intrinsics.Fy()
		a.SetRow(i, []float64{x2 * x1, x2 * y1, x2, y2 * x1, y2 * y1, y2, x1, y1, 1})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return false
	}
	var v mat.Dense
	svd.VTo(&v)
	eVec := mat.Col(nil, 8, &v)
	e := mat.NewDense(3, 3, eVec)

	var svdE mat.SVD
	if !svdE.Factorize(e, mat.SVDFull) {
		return false
	}
	var ue, ve mat.Dense
	svdE.UTo(&ue)
	svdE.VTo(&ve)
	sv := svdE.Values(nil)
	avg := (sv[0] + sv[1]) / 2
	sigma := mat.NewDense(3, 3, []float64{avg, 0, 0, 0, avg, 0, 0, 0, 0})
	var tmp mat.Dense
	tmp.Mul(&ue, sigma)
	var eRank2 mat.Dense
	eRank2.Mul(&tmp, ve.T())

	w := mat.NewDense(3, 3, []float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	var svdE2 mat.SVD
	if !svdE2.Factorize(&eRank2, mat.SVDFull) {
		return false
	}
	var u2, v2 mat.Dense
	svdE2.UTo(&u2)
	svdE2.VTo(&v2)
	if mat.Det(&u2) < 0 {
		u2.Scale(-1, &u2)
	}
	if mat.Det(&v2) < 0 {
		v2.Scale(-1, &v2)
	}

	var r1, r2 mat.Dense
	r1.Mul(&u2, w)
	r1.Mul(&r1, v2.T())
	r2.Mul(&u2, w.T())
	r2.Mul(&r2, v2.T())

	tCol := mat.Col(nil, 2, &u2)
	tVec := r3.Vector{X: tCol[0], Y: tCol[1], Z: tCol[2]}

	candidates := []struct {
		r *mat.Dense
		t r3.Vector
	}{
		{&r1, tVec}, {&r1, tVec.Mul(-1)}, {&r2, tVec}, {&r2, tVec.Mul(-1)},
	}

	poseA := vpA.Pose()
	bestScore := -1
	var bestPose spatialmath.Pose
	for _, cand := range candidates {
		var m [3][3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m[i][j] = cand.r.At(i, j)
			}
		}
		relQuat := spatialmath.FromRotationMatrix(m)
		poseB := spatialmath.NewPose(
			poseA.Position.Add(poseA.Orientation.RotateVector(cand.t)),
			relQuat.Mul(poseA.Orientation),
		)

		inFront := 0
		for _, s := range shared {
			if cheiralityOK(poseA, poseB, vpA, vpB, s) {
				inFront++
			}
		}
		if inFront > bestScore {
			bestScore = inFront
			bestPose = poseB
		}
	}
	if bestScore <= 0 {
		return false
	}

	cvA, _ := layout.Camera(refA)
	if cvA.PosCol[0] != -1 {
		x[cvA.PosCol[0]], x[cvA.PosCol[1]], x[cvA.PosCol[2]] = poseA.Position.X, poseA.Position.Y, poseA.Position.Z
		w0, x0, y0, z0 := poseA.Orientation.Components()
		x[cvA.QuatCol[0]], x[cvA.QuatCol[1]], x[cvA.QuatCol[2]], x[cvA.QuatCol[3]] = w0, x0, y0, z0
	}
	cvB, _ := layout.Camera(refB)
	if cvB.PosCol[0] != -1 {
		x[cvB.PosCol[0]], x[cvB.PosCol[1]], x[cvB.PosCol[2]] = bestPose.Position.X, bestPose.Position.Y, bestPose.Position.Z
		w1, x1, y1, z1 := bestPose.Orientation.Components()
		x[cvB.QuatCol[0]], x[cvB.QuatCol[1]], x[cvB.QuatCol[2]], x[cvB.QuatCol[3]] = w1, x1, y1, z1
	}
	return true
}

// cheiralityOK triangulates one shared observation against the two candidate poses via the
// midpoint method and reports whether the point lies in front of both cameras.
func cheiralityOK(poseA, poseB spatialmath.Pose, vpA, vpB *project.Viewpoint, s sharedObs) bool {
	dirA := rayDirection(poseA, vpA.Intrinsics, s.uA, s.vA, vpA.IsZReflected)
	dirB := rayDirection(poseB, vpB.Intrinsics, s.uB, s.vB, vpB.IsZReflected)

	point, ok := midpointTriangulate(poseA.Position, dirA, poseB.Position, dirB)
	if !ok {
		return false
	}

	camA := poseA.Orientation.Conjugate().RotateVector(point.Sub(poseA.Position))
	camB := poseB.Orientation.Conjugate().RotateVector(point.Sub(poseB.Position))
	return camA.Z > 0 && camB.Z > 0
}

func rayDirection(pose spatialmath.Pose, intr spatialmath.Intrinsics, u, v float64, zReflected bool) r3.Vector {
	xn := (u - intr.Cx) / intr.Fx
	yn := (v - intr.Cy) / intr.Fy()
	d := r3.Vector{X: xn, Y: yn, Z: 1}
	if zReflected {
		d = r3.Vector{X: -d.X, Y: -d.Y, Z: -d.Z}
	}
	world := pose.Orientation.RotateVector(d)
	unitD, _, _ := unit(world)
	return unitD
}

// midpointTriangulate returns the midpoint of the common perpendicular segment between two
// rays (originA + t*dirA) and (originB + s*dirB).
func midpointTriangulate(originA, dirA, originB, dirB r3.Vector) (r3.Vector, bool) {
	w0 := originA.Sub(originB)
	a := dirA.Dot(dirA)
	b := dirA.Dot(dirB)
	c := dirB.Dot(dirB)
	d := dirA.Dot(w0)
	e := dirB.Dot(w0)
	denom := a*c - b*b
	if denom < 1e-12 {
		return r3.Vector{}, false
	}
	sParam := (b*e - c*d) / denom
	tParam := (a*e - b*d) / denom
	pointOnA := originA.Add(dirA.Mul(sParam))
	pointOnB := originB.Add(dirB.Mul(tParam))
	return pointOnA.Add(pointOnB).Mul(0.5), true
}
