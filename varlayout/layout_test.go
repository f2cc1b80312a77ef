package varlayout

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/spatialmath"
)

func TestBuildLocksAxesContributeNoColumns(t *testing.T) {
	proj := project.NewProject("t")
	wp := project.NewWorldPoint("origin", r3.Vector{})
	lockedZ := 0.0
	wp.LockedZ = &lockedZ
	ref := proj.Arena.AddWorldPoint(wp)

	l := Build(proj)

	pv, ok := l.Point(ref)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pv.FreeCol[0], test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, pv.FreeCol[1], test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, pv.FreeCol[2], test.ShouldEqual, lockedCol)
	test.That(t, l.VariableCount, test.ShouldEqual, 2)
}

func TestBuildFullyLockedPointYieldsZeroVariables(t *testing.T) {
	proj := project.NewProject("t")
	wp := project.NewWorldPoint("origin", r3.Vector{})
	lx, ly, lz := 0.0, 0.0, 0.0
	wp.LockedX, wp.LockedY, wp.LockedZ = &lx, &ly, &lz
	proj.Arena.AddWorldPoint(wp)

	l := Build(proj)
	test.That(t, l.VariableCount, test.ShouldEqual, 0)
}

func TestBuildPoseLockedCameraContributesNoPoseColumns(t *testing.T) {
	proj := project.NewProject("t")
	vp := project.NewViewpoint("cam0", spatialmath.DefaultIntrinsics(1000, 320, 240), 640, 480)
	vp.IsPoseLocked = true
	proj.Settings.OptimizeIntrinsics = false
	ref := proj.Arena.AddViewpoint(vp)

	l := Build(proj)
	cv, ok := l.Camera(ref)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cv.PosCol[0], test.ShouldEqual, lockedCol)
	test.That(t, cv.QuatCol[0], test.ShouldEqual, lockedCol)
	test.That(t, cv.HasIntrinsics(), test.ShouldBeFalse)
	test.That(t, l.VariableCount, test.ShouldEqual, 0)
}

func TestApplyWritesFreeAxesBackAndPreservesLockedAxes(t *testing.T) {
	proj := project.NewProject("t")
	wp := project.NewWorldPoint("p", r3.Vector{X: 1, Y: 2, Z: 3})
	lockedZ := 3.0
	wp.LockedZ = &lockedZ
	ref := proj.Arena.AddWorldPoint(wp)

	l := Build(proj)
	x := make([]float64, l.VariableCount)
	copy(x, l.InitialValues)
	pv, _ := l.Point(ref)
	x[pv.FreeCol[0]] = 10
	x[pv.FreeCol[1]] = 20

	l.Apply(proj, x)

	eff := wp.EffectiveXYZ()
	test.That(t, eff.X, test.ShouldEqual, 10.0)
	test.That(t, eff.Y, test.ShouldEqual, 20.0)
	test.That(t, eff.Z, test.ShouldEqual, 3.0)
}

func TestApplyRenormalizesCameraQuaternion(t *testing.T) {
	proj := project.NewProject("t")
	vp := project.NewViewpoint("cam0", spatialmath.DefaultIntrinsics(1000, 320, 240), 640, 480)
	proj.Settings.OptimizeIntrinsics = false
	ref := proj.Arena.AddViewpoint(vp)

	l := Build(proj)
	x := make([]float64, l.VariableCount)
	copy(x, l.InitialValues)
	cv, _ := l.Camera(ref)
	x[cv.QuatCol[0]] = 2
	x[cv.QuatCol[1]] = 0
	x[cv.QuatCol[2]] = 0
	x[cv.QuatCol[3]] = 0

	l.Apply(proj, x)

	test.That(t, vp.Orientation.Norm(), test.ShouldAlmostEqual, 1.0, 1e-9)
}
