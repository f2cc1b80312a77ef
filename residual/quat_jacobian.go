package residual

import (
	"github.com/golang/geo/r3"

	"github.com/photogrid/bundleadjust/spatialmath"
)

// rotateJacobian rotates v by q (using the same scalar-expansion formula as
// spatialmath.Quaternion.RotateVector) and additionally returns the partial derivative of
// the rotated vector with respect to each of q's four scalar components, so the
// reprojection provider can chain them into the full pixel Jacobian without finite
// differences.
func rotateJacobian(q spatialmath.Quaternion, v r3.Vector) (result, dw, dx, dy, dz r3.Vector) {
	w, x, y, z := q.Components()
	vx, vy, vz := v.X, v.Y, v.Z

	tx := 2 * (y*vz - z*vy)
	ty := 2 * (z*vx - x*vz)
	tz := 2 * (x*vy - y*vx)

	result = r3.Vector{
		X: vx + w*tx + (y*tz - z*ty),
		Y: vy + w*ty + (z*tx - x*tz),
		Z: vz + w*tz + (x*ty - y*tx),
	}

	dw = r3.Vector{X: tx, Y: ty, Z: tz}
	dx = r3.Vector{
		X: 2*y*vy + 2*z*vz,
		Y: -2*w*vz - tz - 2*x*vy,
		Z: 2*w*vy + ty - 2*x*vz,
	}
	dy = r3.Vector{
		X: 2*w*vz + tz - 2*y*vx,
		Y: 2*z*vz + 2*x*vx,
		Z: -2*w*vx - tx - 2*y*vz,
	}
	dz = r3.Vector{
		X: -2*w*vy - ty - 2*z*vx,
		Y: 2*w*vx + tx - 2*z*vy,
		Z: 2*x*vx + 2*y*vy,
	}
	return
}
