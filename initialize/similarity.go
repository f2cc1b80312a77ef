package initialize

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

// rotationMatrixToQuat converts a 3x3 gonum rotation matrix to a spatialmath.Quaternion.
func rotationMatrixToQuat(r *mat.Dense) spatialmath.Quaternion {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = r.At(i, j)
		}
	}
	return spatialmath.FromRotationMatrix(m)
}

// Align fits a similarity transform (rotation, translation, uniform scale) by Umeyama/Kabsch
// least squares between the fully-constrained world points' positions as read from x
// through layout.PointPosition and their locked coordinates, then writes every world point
// transformed by it back into x in place. Cameras are carried along by the same transform.
// A fully-constrained point has no free columns, so PointPosition returns its locked
// coordinates and both point sets are identical: the fitted transform is the identity and
// the positions of free points relative to the locked points are not changed. Align does
// nothing when fewer than three points are fully constrained.
func Align(proj *project.Project, layout *varlayout.Layout, x []float64) {
	var src, dst []r3.Vector
	arena := proj.Arena
	for _, ref := range layout.PointOrder() {
		wp := arena.WorldPoint(ref)
		if !wp.FullyConstrained() {
			continue
		}
		src = append(src, layout.PointPosition(x, ref, wp))
		dst = append(dst, wp.EffectiveXYZ())
	}
	if len(src) < 3 {
		return
	}

	R, t, s, ok := umeyama(src, dst)
	if !ok {
		return
	}

	for _, ref := range layout.PointOrder() {
		wp := arena.WorldPoint(ref)
		p := layout.PointPosition(x, ref, wp)
		p2 := transformPoint(R, t, s, p)
		pv, _ := layout.Point(ref)
		if pv.FreeCol[0] != -1 {
			x[pv.FreeCol[0]] = p2.X
		}
		if pv.FreeCol[1] != -1 {
			x[pv.FreeCol[1]] = p2.Y
		}
		if pv.FreeCol[2] != -1 {
			x[pv.FreeCol[2]] = p2.Z
		}
	}

	for _, ref := range layout.CameraOrder() {
		vp := arena.Viewpoint(ref)
		cv, _ := layout.Camera(ref)
		if cv.PosCol[0] == -1 {
			continue
		}
		pose := layout.CameraPose(x, ref, vp)
		newPos := transformPoint(R, t, s, pose.Position)
		x[cv.PosCol[0]], x[cv.PosCol[1]], x[cv.PosCol[2]] = newPos.X, newPos.Y, newPos.Z

		rq := rotationMatrixToQuat(R)
		newOrient := rq.Mul(pose.Orientation)
		w, qx, qy, qz := newOrient.Components()
		x[cv.QuatCol[0]], x[cv.QuatCol[1]], x[cv.QuatCol[2]], x[cv.QuatCol[3]] = w, qx, qy, qz
	}
}

func transformPoint(R *mat.Dense, t r3.Vector, s float64, p r3.Vector) r3.Vector {
	rp := r3.Vector{
		X: R.At(0, 0)*p.X + R.At(0, 1)*p.Y + R.At(0, 2)*p.Z,
		Y: R.At(1, 0)*p.X + R.At(1, 1)*p.Y + R.At(1, 2)*p.Z,
		Z: R.At(2, 0)*p.X + R.At(2, 1)*p.Y + R.At(2, 2)*p.Z,
	}
	return rp.Mul(s).Add(t)
}

// umeyama computes the least-squares rotation R, translation t, and uniform scale s that
// map src points onto dst points, via SVD of the cross-covariance matrix.
func umeyama(src, dst []r3.Vector) (*mat.Dense, r3.Vector, float64, bool) {
	n := len(src)
	var srcMean, dstMean r3.Vector
	for i := range src {
		srcMean = srcMean.Add(src[i])
		dstMean = dstMean.Add(dst[i])
	}
	srcMean = srcMean.Mul(1 / float64(n))
	dstMean = dstMean.Mul(1 / float64(n))

	cov := mat.NewDense(3, 3, nil)
	var srcVar float64
	for i := range src {
		sc := src[i].Sub(srcMean)
		dc := dst[i].Sub(dstMean)
		srcVar += sc.Dot(sc)
		outer := mat.NewDense(3, 3, []float64{
			dc.X * sc.X, dc.X * sc.Y, dc.X * sc.Z,
			dc.Y * sc.X, dc.Y * sc.Y, dc.Y * sc.Z,
			dc.Z * sc.X, dc.Z * sc.Y, dc.Z * sc.Z,
		})
		cov.Add(cov, outer)
	}
	cov.Scale(1/float64(n), cov)
	srcVar /= float64(n)
	if srcVar < 1e-12 {
		return nil, r3.Vector{}, 0, false
	}

	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDFull) {
		return nil, r3.Vector{}, 0, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	d := mat.NewDense(3, 3, nil)
	d.Set(0, 0, 1)
	d.Set(1, 1, 1)
	det := mat.Det(&u) * mat.Det(&v)
	if det < 0 {
		d.Set(2, 2, -1)
	} else {
		d.Set(2, 2, 1)
	}

	var tmp, R mat.Dense
	tmp.Mul(&u, d)
	R.Mul(&tmp, v.T())

	traceDS := sv[0]*d.At(0, 0) + sv[1]*d.At(1, 1) + sv[2]*d.At(2, 2)
	s := traceDS / srcVar
	if math.IsNaN(s) || s <= 0 {
		s = 1
	}

	rMean := transformPoint(&R, r3.Vector{}, s, srcMean)
	t := dstMean.Sub(rMean)
	return &R, t, s, true
}
