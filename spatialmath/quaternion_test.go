package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestIdentityQuaternionRotatesVectorUnchanged(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	got := IdentityQuaternion().RotateVector(v)
	test.That(t, got.X, test.ShouldAlmostEqual, v.X)
	test.That(t, got.Y, test.ShouldAlmostEqual, v.Y)
	test.That(t, got.Z, test.ShouldAlmostEqual, v.Z)
}

func TestRotateVectorThenConjugateRoundTrips(t *testing.T) {
	q, ok := NewQuaternion(1, 0.2, -0.3, 0.1).Normalize()
	test.That(t, ok, test.ShouldBeTrue)

	v := r3.Vector{X: 0.5, Y: -1.25, Z: 2.0}
	forward := q.RotateVector(v)
	back := q.Conjugate().RotateVector(forward)

	test.That(t, back.X, test.ShouldAlmostEqual, v.X)
	test.That(t, back.Y, test.ShouldAlmostEqual, v.Y)
	test.That(t, back.Z, test.ShouldAlmostEqual, v.Z)
}

func TestQuaternionMulComposesRotations(t *testing.T) {
	qx, _ := R4AA{Theta: math.Pi / 2, RX: 1}.ToQuat().Normalize()
	qy, _ := R4AA{Theta: math.Pi / 2, RY: 1}.ToQuat().Normalize()

	v := r3.Vector{X: 0, Y: 0, Z: 1}

	composed := qy.Mul(qx)
	viaComposed := composed.RotateVector(v)
	viaSequential := qy.RotateVector(qx.RotateVector(v))

	test.That(t, viaComposed.X, test.ShouldAlmostEqual, viaSequential.X)
	test.That(t, viaComposed.Y, test.ShouldAlmostEqual, viaSequential.Y)
	test.That(t, viaComposed.Z, test.ShouldAlmostEqual, viaSequential.Z)
}

func TestNormalizeDegenerateQuaternionReturnsIdentityAndFalse(t *testing.T) {
	q, ok := NewQuaternion(0, 0, 0, 0).Normalize()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, q, test.ShouldResemble, IdentityQuaternion())
}

func TestUnitNormResidualZeroForUnitQuaternion(t *testing.T) {
	q, ok := NewQuaternion(3, 1, -2, 0.5).Normalize()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, q.UnitNormResidual(), test.ShouldAlmostEqual, 0.0)
}

func TestFlipIsAntipodal(t *testing.T) {
	q := NewQuaternion(0.6, 0.1, -0.2, 0.3)
	f := q.Flip()
	test.That(t, f.Real, test.ShouldAlmostEqual, -q.Real)
	test.That(t, f.Imag, test.ShouldAlmostEqual, -q.Imag)
}

func TestRotationMatrixRoundTrip(t *testing.T) {
	q, _ := NewQuaternion(0.4, 0.3, -0.5, 0.2).Normalize()
	m := q.ToRotationMatrix()
	back := FromRotationMatrix(m)

	// q and back may differ by sign (same rotation); compare rotated vectors instead.
	v := r3.Vector{X: 1, Y: 0.5, Z: -0.25}
	a := q.RotateVector(v)
	b := back.RotateVector(v)
	test.That(t, a.X, test.ShouldAlmostEqual, b.X)
	test.That(t, a.Y, test.ShouldAlmostEqual, b.Y)
	test.That(t, a.Z, test.ShouldAlmostEqual, b.Z)
}
