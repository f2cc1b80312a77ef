package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestToCameraFrameAtIdentityPoseIsTranslationOnly(t *testing.T) {
	pose := NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	got := pose.ToCameraFrame(r3.Vector{X: 4, Y: 4, Z: 4})
	test.That(t, got.X, test.ShouldAlmostEqual, 3.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 2.0)
	test.That(t, got.Z, test.ShouldAlmostEqual, 1.0)
}

func TestToCameraFrameAtCameraPositionIsOrigin(t *testing.T) {
	q, _ := NewQuaternion(0.7, 0.1, 0.2, -0.3).Normalize()
	pose := NewPose(r3.Vector{X: 5, Y: -2, Z: 1}, q)
	got := pose.ToCameraFrame(pose.Position)
	test.That(t, got.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, 0.0)
	test.That(t, got.Z, test.ShouldAlmostEqual, 0.0)
}

func TestDeltaOfPoseWithItselfIsIdentity(t *testing.T) {
	q, _ := NewQuaternion(0.4, -0.1, 0.2, 0.3).Normalize()
	pose := NewPose(r3.Vector{X: 1, Y: 1, Z: 1}, q)
	delta := Delta(pose, pose)
	test.That(t, delta.Position.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, delta.Position.Y, test.ShouldAlmostEqual, 0.0)
	test.That(t, delta.Position.Z, test.ShouldAlmostEqual, 0.0)
	test.That(t, delta.Orientation.Real, test.ShouldAlmostEqual, 1.0)
}
