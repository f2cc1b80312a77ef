package sparsela

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestSolve3Identity(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	x, err := Solve3(a, []float64{1, 2, 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 1.0)
	test.That(t, x[1], test.ShouldAlmostEqual, 2.0)
	test.That(t, x[2], test.ShouldAlmostEqual, 3.0)
}

func TestSolve3SymmetricPositiveDefinite(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 2,
	})
	b := []float64{1, 2, 3}
	x, err := Solve3(a, b)
	test.That(t, err, test.ShouldBeNil)

	// verify A x == b
	var got mat.VecDense
	got.MulVec(a, mat.NewVecDense(3, x))
	for i := 0; i < 3; i++ {
		test.That(t, got.AtVec(i), test.ShouldAlmostEqual, b[i])
	}
}

func TestSmallestEigenSymOfDiagonalMatrix(t *testing.T) {
	sym := mat.NewSymDense(3, []float64{
		5, 0, 0,
		0, 1, 0,
		0, 0, 9,
	})
	value, vector, err := SmallestEigenSym(sym)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, value, test.ShouldAlmostEqual, 1.0)
	test.That(t, len(vector), test.ShouldEqual, 3)
}
