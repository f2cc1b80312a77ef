package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestProjectPointOnAxisLandsAtPrincipalPoint(t *testing.T) {
	cam := NewPoseFromPoint(r3.Vector{X: 0, Y: 0, Z: 0})
	intr := DefaultIntrinsics(500, 320, 240)

	res := Project(r3.Vector{X: 0, Y: 0, Z: 5}, cam, false, intr)
	test.That(t, res.InFront, test.ShouldBeTrue)
	test.That(t, res.U, test.ShouldAlmostEqual, 320.0)
	test.That(t, res.V, test.ShouldAlmostEqual, 240.0)
}

func TestProjectPointBehindCameraReportsNotInFront(t *testing.T) {
	cam := NewPoseFromPoint(r3.Vector{})
	intr := DefaultIntrinsics(500, 320, 240)

	res := Project(r3.Vector{X: 0, Y: 0, Z: -1}, cam, false, intr)
	test.That(t, res.InFront, test.ShouldBeFalse)
	test.That(t, res.U, test.ShouldAlmostEqual, 0.0)
	test.That(t, res.V, test.ShouldAlmostEqual, 0.0)
}

func TestProjectOffsetPointMatchesPinholeFormula(t *testing.T) {
	cam := NewPoseFromPoint(r3.Vector{})
	intr := DefaultIntrinsics(100, 50, 60)

	res := Project(r3.Vector{X: 1, Y: 2, Z: 10}, cam, false, intr)
	test.That(t, res.InFront, test.ShouldBeTrue)
	// Undistorted (all distortion coeffs zero): u = fx*x/z + cx, v = fy*y/z + cy.
	test.That(t, res.U, test.ShouldAlmostEqual, 100*0.1+50)
	test.That(t, res.V, test.ShouldAlmostEqual, 100*0.2+60)
}

func TestProjectZReflectedCameraFlipsSign(t *testing.T) {
	cam := NewPoseFromPoint(r3.Vector{})
	intr := DefaultIntrinsics(100, 0, 0)

	normal := Project(r3.Vector{X: 1, Y: 1, Z: 10}, cam, false, intr)
	reflected := Project(r3.Vector{X: 1, Y: 1, Z: 10}, cam, true, intr)

	test.That(t, normal.InFront, test.ShouldBeTrue)
	test.That(t, reflected.InFront, test.ShouldBeFalse)
}

func TestDistortionMatchesNumericJacobian(t *testing.T) {
	intr := Intrinsics{Fx: 300, AspectRatio: 1, K1: 0.1, K2: -0.02, P1: 0.001, P2: 0.002}
	xp, yp := 0.2, -0.15
	const h = 1e-6

	dXppDxpA, dXppDypA, dYppDxpA, dYppDypA := intr.DistortJacobian(xp, yp)

	xppP, yppP := intr.Distort(xp+h, yp)
	xppM, yppM := intr.Distort(xp-h, yp)
	dXppDxpN := (xppP - xppM) / (2 * h)
	dYppDxpN := (yppP - yppM) / (2 * h)

	xppP, yppP = intr.Distort(xp, yp+h)
	xppM, yppM = intr.Distort(xp, yp-h)
	dXppDypN := (xppP - xppM) / (2 * h)
	dYppDypN := (yppP - yppM) / (2 * h)

	test.That(t, dXppDxpA, test.ShouldAlmostEqual, dXppDxpN)
	test.That(t, dXppDypA, test.ShouldAlmostEqual, dXppDypN)
	test.That(t, dYppDxpA, test.ShouldAlmostEqual, dYppDxpN)
	test.That(t, dYppDypA, test.ShouldAlmostEqual, dYppDypN)
}

func TestFyDerivedFromAspectRatio(t *testing.T) {
	intr := Intrinsics{Fx: 200, AspectRatio: 1.5}
	test.That(t, intr.Fy(), test.ShouldAlmostEqual, 300.0)
}
