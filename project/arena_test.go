package project

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/photogrid/bundleadjust/spatialmath"
)

func TestArenaAddImagePointBacklinksBothEndpoints(t *testing.T) {
	a := NewArena()
	wp := a.AddWorldPoint(NewWorldPoint("origin", r3.Vector{}))
	vp := a.AddViewpoint(NewViewpoint("cam0", spatialmath.DefaultIntrinsics(1000, 320, 240), 640, 480))

	ipRef := a.AddImagePoint(NewImagePoint(wp, vp, 10, 20))

	test.That(t, a.WorldPoint(wp).Observations, test.ShouldResemble, []EntityRef{ipRef})
	test.That(t, a.Viewpoint(vp).ImagePoints, test.ShouldResemble, []EntityRef{ipRef})
	test.That(t, a.ImagePoint(ipRef).U, test.ShouldEqual, 10.0)
}

func TestArenaRefOfWrongKindReturnsNil(t *testing.T) {
	a := NewArena()
	wp := a.AddWorldPoint(NewWorldPoint("p", r3.Vector{}))

	test.That(t, a.Viewpoint(wp), test.ShouldBeNil)
	test.That(t, a.WorldPoint(EntityRef{Kind: KindWorldPoint, Index: 7}), test.ShouldBeNil)
}

func TestWorldPointEffectiveXYZUsesLockedAxesOnly(t *testing.T) {
	p := NewWorldPoint("p", r3.Vector{X: 1, Y: 2, Z: 3})
	lockedX := 5.0
	p.LockedX = &lockedX

	eff := p.EffectiveXYZ()
	test.That(t, eff.X, test.ShouldEqual, 5.0)
	test.That(t, eff.Y, test.ShouldEqual, 2.0)
	test.That(t, eff.Z, test.ShouldEqual, 3.0)
	test.That(t, p.FullyConstrained(), test.ShouldBeFalse)
}

func TestFixedPointConstraintIndependentOfLockedAxes(t *testing.T) {
	a := NewArena()
	wp := a.AddWorldPoint(NewWorldPoint("p", r3.Vector{X: 1, Y: 1, Z: 1}))
	lockedX, lockedY, lockedZ := 1.0, 1.0, 1.0
	p := a.WorldPoint(wp)
	p.LockedX, p.LockedY, p.LockedZ = &lockedX, &lockedY, &lockedZ

	c := NewFixedPointConstraint(wp, [3]float64{5, 5, 5}, 1e-6)
	ref := a.AddConstraint(c)

	test.That(t, a.Constraint(ref).Kind(), test.ShouldEqual, ConstraintFixedPoint)
	test.That(t, c.Target, test.ShouldResemble, [3]float64{5, 5, 5})
	test.That(t, p.FullyConstrained(), test.ShouldBeTrue)
}
