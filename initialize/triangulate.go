package initialize

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/varlayout"
)

// Triangulate fills in any free WorldPoint in x that is observed by at least two enabled
// viewpoints whose poses are already seeded in x, via linear least-squares triangulation
// (the normal-equations form of the DLT ray-intersection method: spec §4.6's "linear
// triangulate by a midpoint or DLT method"). Every such point is overwritten, including one
// that already carries a non-zero estimate; points triangulating behind any observing
// camera are discarded (not written), per the cheirality requirement.
func Triangulate(proj *project.Project, layout *varlayout.Layout, x []float64) {
	arena := proj.Arena
	for _, ref := range layout.PointOrder() {
		wp := arena.WorldPoint(ref)
		if wp.FullyConstrained() {
			continue
		}
		pos, ok := triangulateOne(proj, layout, x, wp)
		if !ok {
			continue
		}
		pv, _ := layout.Point(ref)
		if pv.FreeCol[0] != -1 {
			x[pv.FreeCol[0]] = pos.X
		}
		if pv.FreeCol[1] != -1 {
			x[pv.FreeCol[1]] = pos.Y
		}
		if pv.FreeCol[2] != -1 {
			x[pv.FreeCol[2]] = pos.Z
		}
	}
}

// triangulateOne solves the linear least-squares ray-intersection system for one point:
// for each observing ray with origin o and unit direction d, the point minimizes the sum of
// squared perpendicular distances to every ray, which reduces to a 3x3 normal-equations
// solve accumulated from each ray's (I - d dᵀ) projector.
func triangulateOne(proj *project.Project, layout *varlayout.Layout, x []float64, wp *project.WorldPoint) (r3.Vector, bool) {
	arena := proj.Arena
	var origins, dirs []r3.Vector

	for _, obsRef := range wp.Observations {
		ip := arena.ImagePoint(obsRef)
		if ip == nil {
			continue
		}
		vp := arena.Viewpoint(ip.Viewpoint)
		if vp == nil || !vp.EnabledInSolve {
			continue
		}
		pose := layout.CameraPose(x, ip.Viewpoint, vp)
		intr := layout.CameraIntrinsics(x, ip.Viewpoint, vp)

		xn := (ip.U - intr.Cx) / intr.Fx
		yn := (ip.V - intr.Cy) / intr.Fy()
		dirCam := r3.Vector{X: xn, Y: yn, Z: 1}
		if vp.IsZReflected {
			dirCam = r3.Vector{X: -dirCam.X, Y: -dirCam.Y, Z: -dirCam.Z}
		}
		origins = append(origins, pose.Position)
		dirs = append(dirs, pose.Orientation.RotateVector(dirCam))
	}

	if len(dirs) < 2 {
		return r3.Vector{}, false
	}

	point, ok := intersectLines(origins, dirs)
	if !ok {
		return r3.Vector{}, false
	}

	for _, obsRef := range wp.Observations {
		ip := arena.ImagePoint(obsRef)
		if ip == nil {
			continue
		}
		vp := arena.Viewpoint(ip.Viewpoint)
		if vp == nil || !vp.EnabledInSolve {
			continue
		}
		pose := layout.CameraPose(x, ip.Viewpoint, vp)
		camPoint := pose.Orientation.Conjugate().RotateVector(point.Sub(pose.Position))
		if vp.IsZReflected {
			camPoint = r3.Vector{X: -camPoint.X, Y: -camPoint.Y, Z: -camPoint.Z}
		}
		if camPoint.Z <= 0 {
			return r3.Vector{}, false
		}
	}
	return point, true
}
