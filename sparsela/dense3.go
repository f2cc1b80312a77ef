package sparsela

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve3 solves the 3x3 linear system A x = b via gonum's dense Cholesky when A is
// symmetric positive-definite (the common case for triangulation normal equations), and
// falls back to a general LU solve otherwise. Used by the linear/DLT triangulation
// helpers and the vanishing-point position solve.
func Solve3(a *mat.Dense, b []float64) ([]float64, error) {
	rows, cols := a.Dims()
	if rows != 3 || cols != 3 || len(b) != 3 {
		return nil, NumericalBreakdownErr("Solve3 requires a 3x3 system", float64(rows))
	}

	sym := mat.NewSymDense(3, nil)
	symmetric := true
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			vij := a.At(i, j)
			if i != j && math.Abs(vij-a.At(j, i)) > 1e-9 {
				symmetric = false
			}
			sym.SetSym(i, j, vij)
		}
	}

	bv := mat.NewVecDense(3, b)
	var x mat.VecDense

	if symmetric {
		var chol mat.Cholesky
		if chol.Factorize(sym) {
			if err := chol.SolveVecTo(&x, bv); err == nil {
				return []float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}, nil
			}
		}
	}

	if err := x.SolveVec(a, bv); err != nil {
		return nil, NumericalBreakdownErr("3x3 solve singular", 0)
	}
	return []float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}, nil
}

// SmallestEigenSym returns the eigenvalue of smallest magnitude and its unit eigenvector
// for a small (n<=4) symmetric matrix. Delegates to gonum's EigenSym rather than hand-rolled Jacobi rotations,
// since the corpus's numeric stack (gonum) already provides a robust implementation.
func SmallestEigenSym(sym *mat.SymDense) (value float64, vector []float64, err error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return 0, nil, NumericalBreakdownErr("symmetric eigendecomposition failed", 0)
	}
	values := eig.Values(nil)
	n, _ := sym.Dims()

	minIdx := 0
	for i := 1; i < len(values); i++ {
		if values[i] < values[minIdx] {
			minIdx = i
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	vector = make([]float64, n)
	for i := 0; i < n; i++ {
		vector[i] = vecs.At(i, minIdx)
	}
	return values[minIdx], vector, nil
}
