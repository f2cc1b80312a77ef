package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestR4AAToQuatIdentityForZeroTheta(t *testing.T) {
	q := R4AA{Theta: 0, RZ: 1}.ToQuat()
	test.That(t, q.Real, test.ShouldAlmostEqual, 1.0)
	test.That(t, q.Imag, test.ShouldAlmostEqual, 0.0)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, 0.0)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, 0.0)
}

func TestR4AAToQuatDegenerateAxisReturnsIdentity(t *testing.T) {
	q := R4AA{Theta: 1.2}.ToQuat()
	test.That(t, q, test.ShouldResemble, IdentityQuaternion())
}

func TestQuatToR4AARoundTrip(t *testing.T) {
	r := R4AA{Theta: math.Pi / 3, RX: 0, RY: 1, RZ: 0}
	q := r.ToQuat()
	back := QuatToR4AA(q)

	test.That(t, back.Theta, test.ShouldAlmostEqual, r.Theta)
	test.That(t, back.RY, test.ShouldAlmostEqual, r.RY)
}

func TestQuatToR4AANearZeroThetaDefaultsToZAxis(t *testing.T) {
	back := QuatToR4AA(IdentityQuaternion())
	test.That(t, back.Theta, test.ShouldAlmostEqual, 0.0)
	test.That(t, back.RZ, test.ShouldAlmostEqual, 1.0)
}

func TestClamp(t *testing.T) {
	test.That(t, clamp(5, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, clamp(-5, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, clamp(0.5, 0, 1), test.ShouldEqual, 0.5)
}
