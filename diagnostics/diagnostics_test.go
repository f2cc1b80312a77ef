package diagnostics

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

func newTestJacobian(cols, rowsHint int) *sparsela.CSR {
	return sparsela.NewCSR(cols, rowsHint*4)
}

func buildAnalyzeFixture(t *testing.T) (*project.Project, *varlayout.Layout, *residual.Set, map[project.EntityRef]int) {
	t.Helper()
	proj := project.NewProject("t")

	near := project.NewWorldPoint("near", r3.Vector{X: 0, Y: 0, Z: 5})
	nearRef := proj.Arena.AddWorldPoint(near)
	far := project.NewWorldPoint("far", r3.Vector{X: 2, Y: 0, Z: 5})
	farRef := proj.Arena.AddWorldPoint(far)

	intr := spatialmath.DefaultIntrinsics(1000, 320, 240)
	vp := project.NewViewpoint("cam0", intr, 640, 480)
	vp.IsPoseLocked = true
	vpRef := proj.Arena.AddViewpoint(vp)

	// "near" gets an observation matching its true projection (zero residual); "far"
	// gets one perturbed well away from its true projection so it becomes the worst
	// observation and an outlier candidate.
	trueNear := spatialmath.Project(near.EffectiveXYZ(), vp.Pose(), false, intr)
	proj.Arena.AddImagePoint(project.NewImagePoint(nearRef, vpRef, trueNear.U, trueNear.V))

	trueFar := spatialmath.Project(far.EffectiveXYZ(), vp.Pose(), false, intr)
	proj.Arena.AddImagePoint(project.NewImagePoint(farRef, vpRef, trueFar.U+50, trueFar.V+50))

	layout := varlayout.Build(proj)

	offsets := make(map[project.EntityRef]int)
	var providers []residual.Provider
	total := 0
	for i, ip := range proj.Arena.ImagePoints() {
		ref := project.EntityRef{Kind: project.KindImagePoint, Index: i}
		offsets[ref] = total
		p := residual.NewReprojectionProvider(layout, proj.Arena, ip)
		providers = append(providers, p)
		total += p.ResidualCount()
	}
	set := residual.NewSet(providers)

	return proj, layout, set, offsets
}

func TestAnalyzeFlagsWorstObservationAndComputesMedian(t *testing.T) {
	proj, layout, set, offsets := buildAnalyzeFixture(t)

	jac := newTestJacobian(layout.VariableCount, set.Total())
	set.BuildJacobian(layout.InitialValues, jac)

	report := Analyze(proj, layout, set, offsets, nil, jac, layout.InitialValues, 1)

	test.That(t, len(report.Observations), test.ShouldEqual, 2)
	test.That(t, len(report.WorstN), test.ShouldEqual, 1)
	test.That(t, report.WorstN[0].PixelErr, test.ShouldBeGreaterThan, report.Observations[0].PixelErr*0)
	test.That(t, report.MedianPixelErr, test.ShouldNotBeNil)

	// The perturbed "far" observation should be the worst one recorded.
	worstRef := report.WorstN[0].Ref
	farImagePoint := project.EntityRef{Kind: project.KindImagePoint, Index: 1}
	test.That(t, worstRef, test.ShouldResemble, farImagePoint)
}

func TestWorstObservationsSortsDescendingAndBounds(t *testing.T) {
	obs := []ObservationError{
		{PixelErr: 1.0},
		{PixelErr: 5.0},
		{PixelErr: 3.0},
	}
	worst := worstObservations(obs, 2)
	test.That(t, len(worst), test.ShouldEqual, 2)
	test.That(t, worst[0].PixelErr, test.ShouldEqual, 5.0)
	test.That(t, worst[1].PixelErr, test.ShouldEqual, 3.0)
}

func TestHistogramEmptyObservationsReturnsZeroWidth(t *testing.T) {
	counts, width := histogram(nil)
	test.That(t, width, test.ShouldEqual, 0.0)
	test.That(t, len(counts), test.ShouldEqual, 10)
}

func TestDetectOutliersFlagsLargeDeviationFromMedian(t *testing.T) {
	obs := []ObservationError{
		{Ref: project.EntityRef{Index: 0}, PixelErr: 1.0},
		{Ref: project.EntityRef{Index: 1}, PixelErr: 1.1},
		{Ref: project.EntityRef{Index: 2}, PixelErr: 0.9},
		{Ref: project.EntityRef{Index: 3}, PixelErr: 50.0},
	}
	outliers := detectOutliers(obs)
	test.That(t, len(outliers), test.ShouldEqual, 1)
	test.That(t, outliers[0], test.ShouldResemble, project.EntityRef{Index: 3})
}

func TestUnobservableColumnsFlagsZeroDiagonalColumns(t *testing.T) {
	jac := newTestJacobian(3, 2)
	jac.AppendRow([]int{0}, []float64{2.0})
	jac.AppendRow([]int{0}, []float64{3.0})

	out := unobservableColumns(jac, 3)
	test.That(t, out, test.ShouldResemble, []int{1, 2})
}
