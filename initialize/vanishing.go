package initialize

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

// minVanishingLinesPerAxis is the fewest VanishingLine entries of one axis a viewpoint
// needs for that axis's vanishing point to be computable at all (two lines is the
// theoretical minimum for a line-intersection solve; spec §4.6 requires "≥2 axes worth of
// vanishing lines" overall).
const minVanishingLinesPerAxis = 2

// VanishingPointPose seeds the pose of every enabled viewpoint that carries vanishing
// lines for at least two of the three world axes, per spec §4.6: each axis's vanishing
// point is found by intersecting its lines in homogeneous pixel coordinates, converted to a
// camera-space direction, assembled into a rotation candidate, then the sign/orthogonality
// ambiguity is resolved by enumerating right-handed candidates and scoring each against
// whatever locked points the viewpoint observes.
func VanishingPointPose(proj *project.Project, layout *varlayout.Layout) (*Candidate, error) {
	x := append([]float64(nil), layout.InitialValues...)
	arena := proj.Arena
	seeded := 0

	for _, ref := range layout.CameraOrder() {
		vp := arena.Viewpoint(ref)
		cv, _ := layout.Camera(ref)
		if cv.PosCol[0] == -1 || len(vp.VanishingLines) == 0 {
			continue
		}

		byAxis := groupVanishingLines(arena, vp)
		if countAxes(byAxis) < 2 {
			continue
		}

		pose, ok := solveVPPose(arena, vp, byAxis)
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
	return &Candidate{Source: "vanishing_point_pose", X: x}, nil
}

func groupVanishingLines(arena *project.Arena, vp *project.Viewpoint) map[project.Axis][]*project.VanishingLine {
	out := make(map[project.Axis][]*project.VanishingLine)
	for _, ref := range vp.VanishingLines {
		vl := arena.VanishingLine(ref)
		if vl == nil {
			continue
		}
		out[vl.Axis] = append(out[vl.Axis], vl)
	}
	return out
}

func countAxes(byAxis map[project.Axis][]*project.VanishingLine) int {
	n := 0
	for _, lines := range byAxis {
		if len(lines) >= minVanishingLinesPerAxis {
			n++
		}
	}
	return n
}

// vanishingPointPixel intersects a set of image-space lines (each given by two endpoints)
// in homogeneous coordinates: the cross product of each pair of endpoints gives the line's
// homogeneous coefficients, and the common vanishing point is the right null vector of the
// stacked coefficient matrix.
func vanishingPointPixel(lines []*project.VanishingLine) (u, v float64, ok bool) {
	n := len(lines)
	a := mat.NewDense(n, 3, nil)
	for i, l := range lines {
		pa := r3.Vector{X: l.AU, Y: l.AV, Z: 1}
		pb := r3.Vector{X: l.BU, Y: l.BV, Z: 1}
		coef := pa.Cross(pb)
		a.SetRow(i, []float64{coef.X, coef.Y, coef.Z})
	}
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return 0, 0, false
	}
	var vMat mat.Dense
	svd.VTo(&vMat)
	vp := mat.Col(nil, 2, &vMat)
	if vp[2] == 0 {
		return 0, 0, false
	}
	return vp[0] / vp[2], vp[1] / vp[2], true
}

// solveVPPose builds the camera orientation from up to three vanishing points (deriving
// the third world axis direction as the cross product of the other two when only two axes
// have vanishing lines), then enumerates sign flips to find the best right-handed,
// locked-point-consistent candidate, and finally solves camera position by intersecting the
// rays from the viewpoint's locked-point observations.
func solveVPPose(arena *project.Arena, vp *project.Viewpoint, byAxis map[project.Axis][]*project.VanishingLine) (spatialmath.Pose, bool) {
	dirs := make(map[project.Axis]r3.Vector)
	for _, axis := range []project.Axis{project.AxisX, project.AxisY, project.AxisZ} {
		lines, ok := byAxis[axis]
		if !ok || len(lines) < minVanishingLinesPerAxis {
			continue
		}
		pu, pv, ok := vanishingPointPixel(lines)
		if !ok {
			continue
		}
		xn := (pu - vp.Intrinsics.Cx) / vp.Intrinsics.Fx
		yn := (pv - vp.Intrinsics.Cy) / vp.Intrinsics.Fy()
		d, _, ok := unit(r3.Vector{X: xn, Y: yn, Z: 1})
		if !ok {
			continue
		}
		dirs[axis] = d
	}

	present := len(dirs)
	if present < 2 {
		return spatialmath.Pose{}, false
	}
	if _, ok := dirs[project.AxisX]; !ok {
		dirs[project.AxisX] = dirs[project.AxisY].Cross(dirs[project.AxisZ])
	}
	if _, ok := dirs[project.AxisY]; !ok {
		dirs[project.AxisY] = dirs[project.AxisZ].Cross(dirs[project.AxisX])
	}
	if _, ok := dirs[project.AxisZ]; !ok {
		dirs[project.AxisZ] = dirs[project.AxisX].Cross(dirs[project.AxisY])
	}

	base := orthogonalize(dirs[project.AxisX], dirs[project.AxisY], dirs[project.AxisZ])

	var bestPose spatialmath.Pose
	bestScore := -1.0
	found := false
	for _, signs := range [][3]float64{
		{1, 1, 1}, {-1, -1, 1}, {-1, 1, -1}, {1, -1, -1},
		{1, 1, -1}, {-1, -1, -1}, {-1, 1, 1}, {1, -1, 1},
	} {
		m := mat.NewDense(3, 3, nil)
		for i := 0; i < 3; i++ {
			m.Set(i, 0, signs[0]*base.At(i, 0))
			m.Set(i, 1, signs[1]*base.At(i, 1))
			m.Set(i, 2, signs[2]*base.At(i, 2))
		}
		if mat.Det(m) < 0 {
			continue
		}
		var rCW [3][3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rCW[j][i] = m.At(i, j)
			}
		}
		orientation := spatialmath.FromRotationMatrix(rCW)

		pos, ok := solveVPPosition(arena, vp, orientation)
		if !ok {
			continue
		}
		pose := spatialmath.NewPose(pos, orientation)
		score := scoreVPCandidate(arena, vp, pose)
		if score > bestScore {
			bestScore = score
			bestPose = pose
			found = true
		}
	}
	return bestPose, found
}

// lockedObservations returns the locked WorldPoint and pixel coordinates of every
// ImagePoint this viewpoint observes that sights a fully-constrained point.
func lockedObservations(arena *project.Arena, vp *project.Viewpoint) []pnpCorrespondence {
	return collectLockedCorrespondences(arena, vp)
}

// orthogonalize returns the nearest orthogonal matrix to the 3x3 matrix whose columns are
// dx, dy, dz, via the polar decomposition (UV^T from the matrix's SVD).
func orthogonalize(dx, dy, dz r3.Vector) *mat.Dense {
	m := mat.NewDense(3, 3, []float64{
		dx.X, dy.X, dz.X,
		dx.Y, dy.Y, dz.Y,
		dx.Z, dy.Z, dz.Z,
	})
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return m
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	out := mat.NewDense(3, 3, nil)
	out.Mul(&u, v.T())
	return out
}

// solveVPPosition solves camera position given a known orientation by intersecting the
// world-frame rays from every locked point the viewpoint observes (spec §4.6: "solve camera
// position from a pseudo-inverse across rays from locked points"). Each ray has the locked
// point as its origin and the (reversed) camera ray direction, rotated into world space by
// the candidate orientation, so the rays' common intersection is the camera center. Absent
// any locked observation, the camera is placed at the origin and refined later by LM.
func solveVPPosition(arena *project.Arena, vp *project.Viewpoint, orientation spatialmath.Quaternion) (r3.Vector, bool) {
	corrs := lockedObservations(arena, vp)
	if len(corrs) == 0 {
		return r3.Vector{}, true
	}

	var origins, dirs []r3.Vector
	for _, c := range corrs {
		xn := (c.u - vp.Intrinsics.Cx) / vp.Intrinsics.Fx
		yn := (c.v - vp.Intrinsics.Cy) / vp.Intrinsics.Fy()
		dirCam := r3.Vector{X: xn, Y: yn, Z: 1}
		if vp.IsZReflected {
			dirCam = r3.Vector{X: -dirCam.X, Y: -dirCam.Y, Z: -dirCam.Z}
		}
		rayWorld := orientation.RotateVector(dirCam)
		origins = append(origins, c.world)
		dirs = append(dirs, rayWorld.Mul(-1))
	}
	return intersectLines(origins, dirs)
}

// scoreVPCandidate implements spec §4.6's VP scoring formula: points-in-front dominates,
// a right-handed frame (already guaranteed by the caller's determinant filter) earns the
// flat bonus, and total reprojection error against the viewpoint's locked observations
// breaks remaining ties.
func scoreVPCandidate(arena *project.Arena, vp *project.Viewpoint, pose spatialmath.Pose) float64 {
	corrs := lockedObservations(arena, vp)
	inFront := 0
	totalErr := 0.0
	for _, c := range corrs {
		result := spatialmath.Project(c.world, pose, vp.IsZReflected, vp.Intrinsics)
		if !result.InFront {
			continue
		}
		inFront++
		du, dv := result.U-c.u, result.V-c.v
		totalErr += du*du + dv*dv
	}
	return ScoreReprojection(inFront, true, totalErr)
}
