package sparsela

import (
	"math"
	"testing"

	"go.viam.com/test"
)

// diag2by2 returns a MatVec for A = diag(2, 5), an easy SPD system to check PCG against.
func diag2by2(lambda float64) MatVec {
	return func(p, out []float64) {
		out[0] = 2 * p[0]
		out[1] = 5 * p[1]
	}
}

func TestPCGSolvesDiagonalSystemExactly(t *testing.T) {
	b := []float64{4, 15}
	x := make([]float64, 2)
	ws := NewCGWorkspace(2)
	precond := []float64{1.0 / 2, 1.0 / 5}

	err := PCG(diag2by2(0), precond, b, x, ws)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Abs(x[0]-2) < 1e-9, test.ShouldBeTrue)
	test.That(t, math.Abs(x[1]-3) < 1e-9, test.ShouldBeTrue)
}

func TestPCGRejectsNonPositivePreconditioner(t *testing.T) {
	b := []float64{1, 1}
	x := make([]float64, 2)
	ws := NewCGWorkspace(2)
	err := PCG(diag2by2(0), []float64{1, -1}, b, x, ws)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPCGZeroRHSReturnsZeroSolution(t *testing.T) {
	b := []float64{0, 0}
	x := []float64{7, 7}
	ws := NewCGWorkspace(2)
	err := PCG(diag2by2(0), []float64{1, 1}, b, x, ws)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldResemble, []float64{0, 0})
}

func TestJacobiPreconditioner(t *testing.T) {
	out := make([]float64, 2)
	err := JacobiPreconditioner([]float64{2, 4}, 1.0, out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, 1.0/4)
	test.That(t, out[1], test.ShouldAlmostEqual, 1.0/8)

	err = JacobiPreconditioner([]float64{0}, 1.0, make([]float64, 1))
	test.That(t, err, test.ShouldNotBeNil)
}
