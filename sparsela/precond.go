package sparsela

// JacobiPreconditioner computes 1/((1+lambda)*d_i) for each diagonal entry, the
// preconditioner the LM driver's inner CG solve uses for (JᵀJ + λD). Returns a
// NumericalBreakdownErr if any d_i is non-positive (the corresponding variable is
// unobservable and must be excluded from damping before reaching this point).
func JacobiPreconditioner(diag []float64, lambda float64, out []float64) error {
	for i, d := range diag {
		if d <= 0 {
			return NumericalBreakdownErr("non-positive normal-equation diagonal", d).withIndex(i)
		}
		out[i] = 1.0 / ((1.0 + lambda) * d)
	}
	return nil
}
