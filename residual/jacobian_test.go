package residual

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual/numeric"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/spatialmath"
	"github.com/photogrid/bundleadjust/varlayout"
)

// frobeniusRelError computes ‖analytic-numeric‖_F / ‖numeric‖_F, the metric the law in
// spec §8 bounds at < 1e-4 for every provider.
func frobeniusRelError(analytic, numer [][]float64) float64 {
	var num, den float64
	for i := range analytic {
		for j := range analytic[i] {
			d := analytic[i][j] - numer[i][j]
			num += d * d
			den += numer[i][j] * numer[i][j]
		}
	}
	if den < 1e-20 {
		return math.Sqrt(num)
	}
	return math.Sqrt(num / den)
}

func checkJacobianAgreement(t *testing.T, p Provider, x []float64, cols int) {
	t.Helper()
	jac := sparsela.NewCSR(cols, 32)
	p.AppendJacobian(x, jac)
	analytic := numeric.Dense(jac, cols)

	numJac := numeric.Jacobian(numericAdapter{p}, x)
	test.That(t, frobeniusRelError(analytic, numJac), test.ShouldBeLessThan, 1e-4)
}

type numericAdapter struct{ p Provider }

func (n numericAdapter) ResidualCount() int       { return n.p.ResidualCount() }
func (n numericAdapter) Compute(x, out []float64) { n.p.Compute(x, out) }

func TestDistanceProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a := proj.Arena.AddWorldPoint(project.NewWorldPoint("a", r3.Vector{X: 0, Y: 0, Z: 0}))
	b := proj.Arena.AddWorldPoint(project.NewWorldPoint("b", r3.Vector{X: 3, Y: 4, Z: 0}))
	l := varlayout.Build(proj)

	c := project.NewDistanceConstraint(a, b, 5, 1e-6)
	p := NewDistanceProvider(l, proj.Arena, c)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestFixedPointProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a := proj.Arena.AddWorldPoint(project.NewWorldPoint("a", r3.Vector{X: 1, Y: 2, Z: 3}))
	l := varlayout.Build(proj)

	c := project.NewFixedPointConstraint(a, [3]float64{0, 0, 0}, 1e-6)
	p := NewFixedPointProvider(l, proj.Arena, c)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestLineLengthProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a := proj.Arena.AddWorldPoint(project.NewWorldPoint("a", r3.Vector{X: 0, Y: 0, Z: 0}))
	b := proj.Arena.AddWorldPoint(project.NewWorldPoint("b", r3.Vector{X: 1, Y: 2, Z: 2}))
	l := varlayout.Build(proj)

	target := 2.5
	line := project.NewLine("l", a, b, project.DirectionFree)
	line.TargetLength = &target
	p := NewLineLengthProvider(l, proj.Arena, line)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestCollinearProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a := proj.Arena.AddWorldPoint(project.NewWorldPoint("a", r3.Vector{X: 0, Y: 0, Z: 0}))
	b := proj.Arena.AddWorldPoint(project.NewWorldPoint("b", r3.Vector{X: 1, Y: 0, Z: 0}))
	c := proj.Arena.AddWorldPoint(project.NewWorldPoint("c", r3.Vector{X: 2.1, Y: 0.3, Z: -0.2}))
	l := varlayout.Build(proj)

	constraint := project.NewCollinearConstraint([]project.EntityRef{a, b, c}, 1e-6)
	p := NewCollinearProvider(l, proj.Arena, constraint)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestCoplanarProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	p0 := proj.Arena.AddWorldPoint(project.NewWorldPoint("p0", r3.Vector{X: 0, Y: 0, Z: 0}))
	p1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("p1", r3.Vector{X: 1, Y: 0, Z: 0}))
	p2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("p2", r3.Vector{X: 0, Y: 1, Z: 0}))
	p3 := proj.Arena.AddWorldPoint(project.NewWorldPoint("p3", r3.Vector{X: 0.4, Y: 0.3, Z: 0.6}))
	l := varlayout.Build(proj)

	constraint := project.NewCoplanarConstraint([]project.EntityRef{p0, p1, p2, p3}, 1e-6)
	p := NewCoplanarProvider(l, proj.Arena, constraint)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestParallelLinesProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("a1", r3.Vector{X: 0, Y: 0, Z: 0}))
	b1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("b1", r3.Vector{X: 1, Y: 0, Z: 0}))
	a2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("a2", r3.Vector{X: 0, Y: 1, Z: 0}))
	b2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("b2", r3.Vector{X: 1.1, Y: 1.2, Z: 0.1}))
	lineA := proj.Arena.AddLine(project.NewLine("lineA", a1, b1, project.DirectionFree))
	lineB := proj.Arena.AddLine(project.NewLine("lineB", a2, b2, project.DirectionFree))
	l := varlayout.Build(proj)

	constraint := project.NewParallelLinesConstraint(lineA, lineB, 1e-6)
	p := NewParallelLinesProvider(l, proj.Arena, constraint)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestPerpendicularLinesProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("a1", r3.Vector{X: 0, Y: 0, Z: 0}))
	b1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("b1", r3.Vector{X: 1, Y: 0, Z: 0}))
	a2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("a2", r3.Vector{X: 0, Y: 1, Z: 0}))
	b2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("b2", r3.Vector{X: 0.1, Y: 2, Z: 0.2}))
	lineA := proj.Arena.AddLine(project.NewLine("lineA", a1, b1, project.DirectionFree))
	lineB := proj.Arena.AddLine(project.NewLine("lineB", a2, b2, project.DirectionFree))
	l := varlayout.Build(proj)

	constraint := project.NewPerpendicularLinesConstraint(lineA, lineB, 1e-6)
	p := NewPerpendicularLinesProvider(l, proj.Arena, constraint)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestEqualDistancesProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	a1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("a1", r3.Vector{X: 0, Y: 0, Z: 0}))
	b1 := proj.Arena.AddWorldPoint(project.NewWorldPoint("b1", r3.Vector{X: 3, Y: 0, Z: 0}))
	a2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("a2", r3.Vector{X: 0, Y: 5, Z: 0}))
	b2 := proj.Arena.AddWorldPoint(project.NewWorldPoint("b2", r3.Vector{X: 0, Y: 5, Z: 4.2}))
	l := varlayout.Build(proj)

	constraint := project.NewEqualDistancesConstraint([]project.DistancePair{{A: a1, B: b1}, {A: a2, B: b2}}, 1e-6)
	p := NewEqualDistancesProvider(l, proj.Arena, constraint)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}

func TestReprojectionProviderJacobianAgreesWithNumeric(t *testing.T) {
	proj := project.NewProject("t")
	wp := proj.Arena.AddWorldPoint(project.NewWorldPoint("p", r3.Vector{X: 0.3, Y: -0.2, Z: 4}))
	vp := project.NewViewpoint("cam0", spatialmath.DefaultIntrinsics(800, 320, 240), 640, 480)
	vp.Position = r3.Vector{X: 0.1, Y: 0.05, Z: -1}
	vp.Orientation = spatialmath.R4AA{Theta: 0.2, RX: 0, RY: 1, RZ: 0}.ToQuat()
	vpRef := proj.Arena.AddViewpoint(vp)
	proj.Settings.OptimizeIntrinsics = false

	ip := project.NewImagePoint(wp, vpRef, 350, 260)
	proj.Arena.AddImagePoint(ip)

	l := varlayout.Build(proj)
	p := NewReprojectionProvider(l, proj.Arena, ip)

	x := append([]float64(nil), l.InitialValues...)
	checkJacobianAgreement(t, p, x, l.VariableCount)
}
