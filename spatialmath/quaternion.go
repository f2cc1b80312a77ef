// Package spatialmath provides the unit-quaternion rotation algebra and the pinhole +
// Brown-Conrady projection pipeline the residual providers differentiate analytically.
// Quaternions are thin wrappers around gonum.org/v1/gonum/num/quat.Number and points are
// github.com/golang/geo/r3.Vector, matching the numeric stack the corpus already uses for
// exactly this kind of rigid-body math.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Quaternion is a unit (or near-unit, mid-solve) rotation quaternion {w, x, y, z}.
type Quaternion quat.Number

// IdentityQuaternion returns the identity rotation.
func IdentityQuaternion() Quaternion { return Quaternion{Real: 1} }

// NewQuaternion builds a Quaternion from its four scalar components.
func NewQuaternion(w, x, y, z float64) Quaternion {
	return Quaternion{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// Components returns the four scalars in {w, x, y, z} order, the layout the variable
// layout assigns contiguous column indices to.
func (q Quaternion) Components() (w, x, y, z float64) {
	return q.Real, q.Imag, q.Jmag, q.Kmag
}

// Norm returns the quaternion's Euclidean magnitude.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// UnitNormResidual returns ‖q‖²−1, the soft unit-norm constraint residual the quaternion
// unit-norm provider emits for every non-locked camera orientation each LM iteration.
func (q Quaternion) UnitNormResidual() float64 {
	n := q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag
	return n - 1
}

// Normalize returns q scaled to unit magnitude. Called once per accepted LM step (the
// "post-step renormalization" of the dual normalization strategy) and once whenever a
// quaternion block is read back from the variable vector for rotation/projection. If q is
// degenerate (near-zero magnitude) Normalize returns the identity quaternion and ok=false,
// the NumericalBreakdown trigger condition.
func (q Quaternion) Normalize() (Quaternion, bool) {
	n := q.Norm()
	if n < 1e-12 {
		return IdentityQuaternion(), false
	}
	return Quaternion{Real: q.Real / n, Imag: q.Imag / n, Jmag: q.Jmag / n, Kmag: q.Kmag / n}, true
}

// Conjugate returns q*, the inverse rotation for a unit quaternion.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{Real: q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// Mul returns the Hamilton product q*p.
func (q Quaternion) Mul(p Quaternion) Quaternion {
	return Quaternion(quat.Mul(quat.Number(q), quat.Number(p)))
}

// Flip returns -q, the antipodal quaternion representing the identical rotation (q and -q
// encode the same rotation).
func (q Quaternion) Flip() Quaternion {
	return Quaternion{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// RotateVector rotates v by q using the expanded scalar form of q·v·q⁻¹ (v treated as a
// pure quaternion), rather than first converting to a 3x3 rotation matrix. Expanding the
// scalars directly keeps every downstream partial derivative w.r.t. {w,x,y,z} a compact
// polynomial, which is what lets the reprojection provider differentiate analytically.
func (q Quaternion) RotateVector(v r3.Vector) r3.Vector {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	// t = 2 * cross(q.xyz, v)
	tx := 2 * (y*v.Z - z*v.Y)
	ty := 2 * (z*v.X - x*v.Z)
	tz := 2 * (x*v.Y - y*v.X)

	// v' = v + w*t + cross(q.xyz, t)
	return r3.Vector{
		X: v.X + w*tx + (y*tz - z*ty),
		Y: v.Y + w*ty + (z*tx - x*tz),
		Z: v.Z + w*tz + (x*ty - y*tx),
	}
}

// ToRotationMatrix converts q to a 3x3 rotation matrix. The analytical-Jacobian path does
// not call it; it rotates through RotateVector instead.
func (q Quaternion) ToRotationMatrix() [3][3]float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// FromRotationMatrix builds a Quaternion from a 3x3 right-handed rotation matrix using
// Shepperd's method, robust to which diagonal entry is largest.
func FromRotationMatrix(m [3][3]float64) Quaternion {
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		return Quaternion{
			Real: 0.25 / s,
			Imag: (m[2][1] - m[1][2]) * s,
			Jmag: (m[0][2] - m[2][0]) * s,
			Kmag: (m[1][0] - m[0][1]) * s,
		}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2.0 * math.Sqrt(1.0+m[0][0]-m[1][1]-m[2][2])
		return Quaternion{
			Real: (m[2][1] - m[1][2]) / s,
			Imag: 0.25 * s,
			Jmag: (m[0][1] + m[1][0]) / s,
			Kmag: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] > m[2][2]:
		s := 2.0 * math.Sqrt(1.0+m[1][1]-m[0][0]-m[2][2])
		return Quaternion{
			Real: (m[0][2] - m[2][0]) / s,
			Imag: (m[0][1] + m[1][0]) / s,
			Jmag: 0.25 * s,
			Kmag: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := 2.0 * math.Sqrt(1.0+m[2][2]-m[0][0]-m[1][1])
		return Quaternion{
			Real: (m[1][0] - m[0][1]) / s,
			Imag: (m[0][2] + m[2][0]) / s,
			Jmag: (m[1][2] + m[2][1]) / s,
			Kmag: 0.25 * s,
		}
	}
}
