package initialize

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/photogrid/bundleadjust/sparsela"
)

// unit returns v normalized and its magnitude, mirroring residual's internal helper of the
// same name; kept as a separate unexported copy since initialize does not depend on residual.
func unit(v r3.Vector) (r3.Vector, float64, bool) {
	n := v.Norm()
	if n < 1e-12 {
		return r3.Vector{}, 0, false
	}
	return v.Mul(1 / n), n, true
}

// intersectLines solves the least-squares point nearest every line (origins[i] +
// t*dirs[i]) in the perpendicular-distance sense, the shared normal-equations method both
// point triangulation and VP-pose camera-position solving reduce to.
func intersectLines(origins, dirs []r3.Vector) (r3.Vector, bool) {
	a := mat.NewDense(3, 3, nil)
	b := make([]float64, 3)
	for i, d := range dirs {
		unitD, _, ok := unit(d)
		if !ok {
			continue
		}
		proj3 := [3][3]float64{
			{1 - unitD.X*unitD.X, -unitD.X * unitD.Y, -unitD.X * unitD.Z},
			{-unitD.Y * unitD.X, 1 - unitD.Y*unitD.Y, -unitD.Y * unitD.Z},
			{-unitD.Z * unitD.X, -unitD.Z * unitD.Y, 1 - unitD.Z*unitD.Z},
		}
		o := [3]float64{origins[i].X, origins[i].Y, origins[i].Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				a.Set(r, c, a.At(r, c)+proj3[r][c])
			}
			var row float64
			for c := 0; c < 3; c++ {
				row += proj3[r][c] * o[c]
			}
			b[r] += row
		}
	}
	sol, err := sparsela.Solve3(a, b)
	if err != nil {
		return r3.Vector{}, false
	}
	return r3.Vector{X: sol[0], Y: sol[1], Z: sol[2]}, true
}
