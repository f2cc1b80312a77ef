package lm

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/photogrid/bundleadjust/logging"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual"
	"github.com/photogrid/bundleadjust/varlayout"
)

// TestRunConvergesOnSingleDistanceConstraint builds a two-point layout where one point
// is locked at the origin and the other starts slightly off its target distance, then
// checks that Run drives the distance residual to (near) zero.
func TestRunConvergesOnSingleDistanceConstraint(t *testing.T) {
	proj := project.NewProject("t")
	zero := 0.0
	a := proj.Arena.AddWorldPoint(&project.WorldPoint{
		Name: "a", LockedX: &zero, LockedY: &zero, LockedZ: &zero,
	})
	b := proj.Arena.AddWorldPoint(project.NewWorldPoint("b", r3.Vector{X: 4.2, Y: 0.1, Z: -0.2}))

	c := project.NewDistanceConstraint(a, b, 5, 1e-9)
	proj.Arena.AddConstraint(c)

	layout := varlayout.Build(proj)
	p := residual.NewDistanceProvider(layout, proj.Arena, c)
	set := residual.NewSet([]residual.Provider{p})

	logger := logging.NewTestLogger(t)
	driver := NewDriver(layout, set, logger)

	opts := Options{MaxIterations: 100, Tolerance: 1e-12, InitialDamping: 1e-3}
	result, err := driver.Run(context.Background(), layout.InitialValues, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Converged, test.ShouldBeTrue)

	wp := proj.Arena.WorldPoint(b)
	pos := layout.PointPosition(result.X, b, wp)
	dist := pos.Sub(r3.Vector{X: 0, Y: 0, Z: 0}).Norm()
	test.That(t, math.Abs(dist-5) < 1e-4, test.ShouldBeTrue)
}

// TestRunReturnsIterationCapWhenBudgetTooSmall checks the iteration-cap termination path
// fires rather than silently reporting convergence.
func TestRunReturnsIterationCapWhenBudgetTooSmall(t *testing.T) {
	proj := project.NewProject("t")
	zero := 0.0
	a := proj.Arena.AddWorldPoint(&project.WorldPoint{
		Name: "a", LockedX: &zero, LockedY: &zero, LockedZ: &zero,
	})
	b := proj.Arena.AddWorldPoint(project.NewWorldPoint("b", r3.Vector{X: 100, Y: 100, Z: 100}))

	c := project.NewDistanceConstraint(a, b, 5, 1e-12)
	proj.Arena.AddConstraint(c)

	layout := varlayout.Build(proj)
	p := residual.NewDistanceProvider(layout, proj.Arena, c)
	set := residual.NewSet([]residual.Provider{p})

	driver := NewDriver(layout, set, logging.NewTestLogger(t))
	opts := Options{MaxIterations: 1, Tolerance: 1e-15, InitialDamping: 1e3}
	result, err := driver.Run(context.Background(), layout.InitialValues, opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Converged, test.ShouldBeFalse)
	test.That(t, result.TerminationReason, test.ShouldEqual, ReasonIterationCap)
}

// TestRunRespectsCancellation checks that a cancelled context stops the loop promptly.
func TestRunRespectsCancellation(t *testing.T) {
	proj := project.NewProject("t")
	zero := 0.0
	a := proj.Arena.AddWorldPoint(&project.WorldPoint{
		Name: "a", LockedX: &zero, LockedY: &zero, LockedZ: &zero,
	})
	b := proj.Arena.AddWorldPoint(project.NewWorldPoint("b", r3.Vector{X: 4.2, Y: 0.1, Z: -0.2}))

	c := project.NewDistanceConstraint(a, b, 5, 1e-9)
	proj.Arena.AddConstraint(c)

	layout := varlayout.Build(proj)
	p := residual.NewDistanceProvider(layout, proj.Arena, c)
	set := residual.NewSet([]residual.Provider{p})

	driver := NewDriver(layout, set, logging.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{MaxIterations: 100, Tolerance: 1e-12, InitialDamping: 1e-3}
	result, err := driver.Run(ctx, layout.InitialValues, opts)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, result.TerminationReason, test.ShouldEqual, ReasonCancelled)
}
