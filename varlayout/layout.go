// Package varlayout assigns contiguous free-variable column indices to the free axes of
// WorldPoints and the free pose/intrinsic scalars of Viewpoints, generalizing the
// teacher's referenceframe linearized-input pattern (a contiguous slice of Input floats
// per named frame) from joint angles to point/camera axes. A Layout is built once per
// solve attempt and is immutable thereafter: residual providers read it to find their
// Jacobian column indices, and the orchestrator reads it once more to write the winning
// candidate's free-variable vector back onto entities.
package varlayout

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
)

// lockedCol marks an axis/scalar that contributes no column to the layout (locked,
// pose-locked, or intrinsics-not-optimized).
const lockedCol = -1

// numIntrinsicCols is the number of intrinsic scalars the layout optimizes when
// OptimizeIntrinsics is set: focal length, aspect ratio, principal point (2), skew, k1,
// k2, and the two tangential terms. k3 is held fixed at its seeded value — third-order
// radial distortion is rarely observable from typical photogrammetry image sets, so
// including it as a free column tends to destabilize early iterations far more than it
// helps; this keeps the layout within the spec's documented 5-9 intrinsic column range.
const numIntrinsicCols = 9

// PointVars records, for one WorldPoint, the free-variable column of each axis (or
// lockedCol if that axis is locked).
type PointVars struct {
	FreeCol [3]int
}

// CameraVars records, for one Viewpoint, the free-variable columns of position,
// orientation, and (optionally) intrinsics. Every slot is lockedCol when the
// corresponding scalar is not a free variable in this layout.
type CameraVars struct {
	PosCol       [3]int
	QuatCol      [4]int
	IntrinsicCol [numIntrinsicCols]int
}

// HasIntrinsics reports whether this camera's intrinsics are free variables in the layout.
func (c CameraVars) HasIntrinsics() bool { return c.IntrinsicCol[0] != lockedCol }

// Layout is the immutable variable-index assignment for one solve attempt.
type Layout struct {
	VariableCount int
	InitialValues []float64

	points  map[project.EntityRef]PointVars
	cameras map[project.EntityRef]CameraVars

	pointOrder  []project.EntityRef
	cameraOrder []project.EntityRef
}

// Build assigns free-variable columns for every WorldPoint and enabled, non-pose-locked
// Viewpoint in proj, in arena order, seeding InitialValues from current entity state.
func Build(proj *project.Project) *Layout {
	l := &Layout{
		points:  make(map[project.EntityRef]PointVars),
		cameras: make(map[project.EntityRef]CameraVars),
	}

	arena := proj.Arena
	for i, wp := range arena.WorldPoints() {
		ref := arena.WorldPointRef(i)
		var pv PointVars
		eff := wp.EffectiveXYZ()
		axisVals := [3]float64{eff.X, eff.Y, eff.Z}
		for axis := 0; axis < 3; axis++ {
			if wp.IsAxisLocked(axis) {
				pv.FreeCol[axis] = lockedCol
				continue
			}
			pv.FreeCol[axis] = l.alloc(axisVals[axis])
		}
		l.points[ref] = pv
		l.pointOrder = append(l.pointOrder, ref)
	}

	for i, vp := range arena.Viewpoints() {
		ref := arena.ViewpointRef(i)
		var cv CameraVars
		for k := range cv.PosCol {
			cv.PosCol[k] = lockedCol
		}
		for k := range cv.QuatCol {
			cv.QuatCol[k] = lockedCol
		}
		for k := range cv.IntrinsicCol {
			cv.IntrinsicCol[k] = lockedCol
		}

		poseFree := vp.EnabledInSolve && !vp.IsPoseLocked && !proj.Settings.LockCameraPoses
		if poseFree {
			cv.PosCol[0] = l.alloc(vp.Position.X)
			cv.PosCol[1] = l.alloc(vp.Position.Y)
			cv.PosCol[2] = l.alloc(vp.Position.Z)

			w, x, y, z := vp.Orientation.Components()
			cv.QuatCol[0] = l.alloc(w)
			cv.QuatCol[1] = l.alloc(x)
			cv.QuatCol[2] = l.alloc(y)
			cv.QuatCol[3] = l.alloc(z)
		}

		if proj.Settings.OptimizeIntrinsics && vp.EnabledInSolve {
			vals := intrinsicValues(vp.Intrinsics)
			for k, v := range vals {
				cv.IntrinsicCol[k] = l.alloc(v)
			}
		}

		l.cameras[ref] = cv
		l.cameraOrder = append(l.cameraOrder, ref)
	}

	return l
}

func (l *Layout) alloc(initial float64) int {
	col := len(l.InitialValues)
	l.InitialValues = append(l.InitialValues, initial)
	l.VariableCount++
	return col
}

func intrinsicValues(in spatialmath.Intrinsics) [numIntrinsicCols]float64 {
	return [numIntrinsicCols]float64{in.Fx, in.AspectRatio, in.Cx, in.Cy, in.Skew, in.K1, in.K2, in.P1, in.P2}
}

// Point returns the PointVars for ref and whether ref is a known WorldPoint in this layout.
func (l *Layout) Point(ref project.EntityRef) (PointVars, bool) {
	pv, ok := l.points[ref]
	return pv, ok
}

// Camera returns the CameraVars for ref and whether ref is a known Viewpoint in this
// layout (every Viewpoint in the Project has an entry, even fully-locked ones, whose
// columns are all lockedCol).
func (l *Layout) Camera(ref project.EntityRef) (CameraVars, bool) {
	cv, ok := l.cameras[ref]
	return cv, ok
}

// PointOrder returns every WorldPoint ref in arena order.
func (l *Layout) PointOrder() []project.EntityRef { return l.pointOrder }

// CameraOrder returns every Viewpoint ref in arena order.
func (l *Layout) CameraOrder() []project.EntityRef { return l.cameraOrder }

// PointPosition returns the effective 3D position of the world point at ref given the
// current free-variable vector x: free axes read from x, locked axes from the entity.
func (l *Layout) PointPosition(x []float64, ref project.EntityRef, wp *project.WorldPoint) r3.Vector {
	pv := l.points[ref]
	eff := wp.EffectiveXYZ()
	out := eff
	if pv.FreeCol[0] != lockedCol {
		out.X = x[pv.FreeCol[0]]
	}
	if pv.FreeCol[1] != lockedCol {
		out.Y = x[pv.FreeCol[1]]
	}
	if pv.FreeCol[2] != lockedCol {
		out.Z = x[pv.FreeCol[2]]
	}
	return out
}

// CameraPose returns the effective pose of the viewpoint at ref given x, normalizing the
// quaternion block if it is free (mid-solve quaternions are only near-unit; callers that
// need the true renormalized value use this rather than reading x directly).
func (l *Layout) CameraPose(x []float64, ref project.EntityRef, vp *project.Viewpoint) spatialmath.Pose {
	cv := l.cameras[ref]
	pos := vp.Position
	if cv.PosCol[0] != lockedCol {
		pos = r3.Vector{X: x[cv.PosCol[0]], Y: x[cv.PosCol[1]], Z: x[cv.PosCol[2]]}
	}
	quat := vp.Orientation
	if cv.QuatCol[0] != lockedCol {
		quat = spatialmath.NewQuaternion(x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]])
		if n, ok := quat.Normalize(); ok {
			quat = n
		}
	}
	return spatialmath.NewPose(pos, quat)
}

// CameraIntrinsics returns the effective intrinsics of the viewpoint at ref given x.
func (l *Layout) CameraIntrinsics(x []float64, ref project.EntityRef, vp *project.Viewpoint) spatialmath.Intrinsics {
	cv := l.cameras[ref]
	in := vp.Intrinsics
	if !cv.HasIntrinsics() {
		return in
	}
	in.Fx = x[cv.IntrinsicCol[0]]
	in.AspectRatio = x[cv.IntrinsicCol[1]]
	in.Cx = x[cv.IntrinsicCol[2]]
	in.Cy = x[cv.IntrinsicCol[3]]
	in.Skew = x[cv.IntrinsicCol[4]]
	in.K1 = x[cv.IntrinsicCol[5]]
	in.K2 = x[cv.IntrinsicCol[6]]
	in.P1 = x[cv.IntrinsicCol[7]]
	in.P2 = x[cv.IntrinsicCol[8]]
	return in
}

// RenormalizeQuaternions rescales every free quaternion block in x to unit magnitude in
// place, the post-accepted-step renormalization spec §4.5 step 4 requires. Returns false
// if any free quaternion block has degenerated to (near) zero magnitude, the
// NumericalBreakdown trigger condition.
func (l *Layout) RenormalizeQuaternions(x []float64) bool {
	for _, cv := range l.cameras {
		if cv.QuatCol[0] == lockedCol {
			continue
		}
		q := spatialmath.NewQuaternion(x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]])
		n, ok := q.Normalize()
		if !ok {
			return false
		}
		w, qx, qy, qz := n.Components()
		x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]] = w, qx, qy, qz
	}
	return true
}

// Apply writes the free-variable vector x back onto every entity in proj: point axes,
// camera poses (renormalizing quaternions), and intrinsics. Called exactly once per
// solve, after the winning candidate has been chosen (per the resource/concurrency
// model's "entity mutation happens exactly once per solve, at the end").
func (l *Layout) Apply(proj *project.Project, x []float64) {
	arena := proj.Arena
	for _, ref := range l.pointOrder {
		wp := arena.WorldPoint(ref)
		pos := l.PointPosition(x, ref, wp)
		wp.OptimizedXYZ = pos
	}
	for _, ref := range l.cameraOrder {
		vp := arena.Viewpoint(ref)
		vp.SetPose(l.CameraPose(x, ref, vp))
		vp.Intrinsics = l.CameraIntrinsics(x, ref, vp)
	}
}
