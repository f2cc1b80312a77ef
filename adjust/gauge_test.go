package adjust

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
)

func TestCountFullyLockedPointsCountsOnlyAllThreeAxesLocked(t *testing.T) {
	arena := project.NewArena()
	fullyLocked := project.NewWorldPoint("a", r3.Vector{})
	zero := 0.0
	fullyLocked.LockedX, fullyLocked.LockedY, fullyLocked.LockedZ = &zero, &zero, &zero
	arena.AddWorldPoint(fullyLocked)

	partiallyLocked := project.NewWorldPoint("b", r3.Vector{})
	partiallyLocked.LockedX = &zero
	arena.AddWorldPoint(partiallyLocked)

	test.That(t, countFullyLockedPoints(arena), test.ShouldEqual, 1)
}

func TestFirstGaugeCameraSkipsDisabledAndAlreadyLockedCameras(t *testing.T) {
	arena := project.NewArena()
	intr := spatialmath.DefaultIntrinsics(1000, 320, 240)

	disabled := project.NewViewpoint("disabled", intr, 640, 480)
	disabled.EnabledInSolve = false
	arena.AddViewpoint(disabled)

	alreadyLocked := project.NewViewpoint("locked", intr, 640, 480)
	alreadyLocked.IsPoseLocked = true
	arena.AddViewpoint(alreadyLocked)

	eligible := project.NewViewpoint("eligible", intr, 640, 480)
	eligibleRef := arena.AddViewpoint(eligible)

	ref, ok := firstGaugeCamera(arena)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ref, test.ShouldResemble, eligibleRef)
}

func TestBuildLayoutWithGaugeRestoresLockFlagAfterBuild(t *testing.T) {
	proj := project.NewProject("t")
	intr := spatialmath.DefaultIntrinsics(1000, 320, 240)
	vp := project.NewViewpoint("cam0", intr, 640, 480)
	vpRef := proj.Arena.AddViewpoint(vp)

	wp := project.NewWorldPoint("p", r3.Vector{X: 1, Y: 2, Z: 3})
	proj.Arena.AddWorldPoint(wp)
	proj.Arena.AddImagePoint(project.NewImagePoint(proj.Arena.WorldPointRef(0), vpRef, 320, 240))

	_, gaugeCam, gaugeFixed := buildLayoutWithGauge(proj)

	test.That(t, gaugeFixed, test.ShouldBeTrue)
	test.That(t, gaugeCam, test.ShouldResemble, vpRef)
	test.That(t, vp.IsPoseLocked, test.ShouldBeFalse)
}

func TestBuildLayoutWithGaugeSkipsLockingWhenTwoPointsAreFullyLocked(t *testing.T) {
	proj := project.NewProject("t")
	intr := spatialmath.DefaultIntrinsics(1000, 320, 240)
	vp := project.NewViewpoint("cam0", intr, 640, 480)
	proj.Arena.AddViewpoint(vp)

	zero, one := 0.0, 1.0
	for _, v := range []*float64{&zero, &one} {
		wp := project.NewWorldPoint("p", r3.Vector{})
		wp.LockedX, wp.LockedY, wp.LockedZ = v, v, v
		proj.Arena.AddWorldPoint(wp)
	}

	_, _, gaugeFixed := buildLayoutWithGauge(proj)

	test.That(t, gaugeFixed, test.ShouldBeFalse)
	test.That(t, vp.IsPoseLocked, test.ShouldBeFalse)
}

// TestSolveIsInvariantUnderRigidTransformOfTheWholeScene implements spec §8's gauge
// invariance law: solving a project, then applying a rigid transform to every camera and
// point, then solving again, reproduces cost and median reprojection error within 1e-6. Six
// non-degenerate locked points fix the gauge in both builds (no camera pose gets locked),
// so the two solves differ only by a shared rotation+translation of the whole scene, and
// pixel-space reprojection error is invariant under that transform.
func TestSolveIsInvariantUnderRigidTransformOfTheWholeScene(t *testing.T) {
	buildProject := func(rot spatialmath.Quaternion, trans r3.Vector) *project.Project {
		transformPoint := func(p r3.Vector) r3.Vector { return rot.RotateVector(p).Add(trans) }
		transformPose := func(pose spatialmath.Pose) spatialmath.Pose {
			return spatialmath.NewPose(transformPoint(pose.Position), rot.Mul(pose.Orientation))
		}

		intr := spatialmath.DefaultIntrinsics(1000, 320, 240)
		truePoseA := spatialmath.NewPose(r3.Vector{X: -3, Y: 0, Z: -9}, spatialmath.IdentityQuaternion())
		truePoseB := spatialmath.NewPose(r3.Vector{X: 3, Y: 0, Z: -9}, spatialmath.R4AA{Theta: 0.3, RY: 1}.ToQuat())
		poseA := transformPose(truePoseA)
		poseB := transformPose(truePoseB)

		proj := project.NewProject("gauge-invariance")
		vpA := project.NewViewpoint("camA", intr, 640, 480)
		vpARef := proj.Arena.AddViewpoint(vpA)
		vpB := project.NewViewpoint("camB", intr, 640, 480)
		vpBRef := proj.Arena.AddViewpoint(vpB)

		addPoint := func(locked bool, p r3.Vector) {
			transformed := transformPoint(p)
			wp := project.NewWorldPoint("p", transformed)
			if locked {
				x, y, z := transformed.X, transformed.Y, transformed.Z
				wp.LockedX, wp.LockedY, wp.LockedZ = &x, &y, &z
			}
			ref := proj.Arena.AddWorldPoint(wp)

			resultA := spatialmath.Project(transformed, poseA, false, intr)
			resultB := spatialmath.Project(transformed, poseB, false, intr)
			test.That(t, resultA.InFront, test.ShouldBeTrue)
			test.That(t, resultB.InFront, test.ShouldBeTrue)
			proj.Arena.AddImagePoint(project.NewImagePoint(ref, vpARef, resultA.U, resultA.V))
			proj.Arena.AddImagePoint(project.NewImagePoint(ref, vpBRef, resultB.U, resultB.V))
		}

		lockedPts := []r3.Vector{
			{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0},
			{X: 0, Y: 0, Z: 2}, {X: 1, Y: 1, Z: 0.5}, {X: -1, Y: 0.5, Z: 1},
		}
		freePts := []r3.Vector{{X: 0.5, Y: 0.5, Z: 1}, {X: -0.5, Y: 1, Z: 1.5}, {X: 1, Y: -0.5, Z: 0.8}}
		for _, p := range lockedPts {
			addPoint(true, p)
		}
		for _, p := range freePts {
			addPoint(false, p)
		}
		return proj
	}

	projIdentity := buildProject(spatialmath.IdentityQuaternion(), r3.Vector{})
	rigidRotation := spatialmath.R4AA{Theta: 0.8, RX: 0.3, RY: 1, RZ: -0.2}.ToQuat()
	rigidTranslation := r3.Vector{X: 5, Y: -3, Z: 2}
	projTransformed := buildProject(rigidRotation, rigidTranslation)

	reportIdentity := Solve(context.Background(), projIdentity, projIdentity.Settings)
	reportTransformed := Solve(context.Background(), projTransformed, projTransformed.Settings)

	test.That(t, reportIdentity.Converged, test.ShouldBeTrue)
	test.That(t, reportTransformed.Converged, test.ShouldBeTrue)
	test.That(t, reportTransformed.TotalError, test.ShouldAlmostEqual, reportIdentity.TotalError, 1e-6)

	if reportIdentity.MedianReprojectionError != nil && reportTransformed.MedianReprojectionError != nil {
		test.That(t, *reportTransformed.MedianReprojectionError, test.ShouldAlmostEqual, *reportIdentity.MedianReprojectionError, 1e-6)
	}
}
