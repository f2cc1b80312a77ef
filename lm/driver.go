// Package lm implements the Levenberg-Marquardt driver: damped Gauss-Newton with a
// preconditioned conjugate-gradient inner solve over the sparse normal equations, per
// spec §4.5. The driver owns its scratch buffers (residual vector, Jacobian CSR arrays,
// CG workspace), allocated once in NewDriver and reused across every Run call's
// iterations, matching the resource policy and the teacher's solver-object-constructed-
// once-then-reused shape (e.g. nloptInverseKinematics' CreateNloptSolver / DoSolve split).
package lm

import (
	"context"
	"math"

	"github.com/photogrid/bundleadjust/baerrors"
	"github.com/photogrid/bundleadjust/logging"
	"github.com/photogrid/bundleadjust/project"
	"github.com/photogrid/bundleadjust/residual"
	"github.com/photogrid/bundleadjust/sparsela"
	"github.com/photogrid/bundleadjust/varlayout"
)

// TerminationReason names why Run stopped.
type TerminationReason string

const (
	ReasonConverged          TerminationReason = "converged"
	ReasonGradientTolerance  TerminationReason = "gradient_tolerance"
	ReasonDampingSaturated   TerminationReason = "damping_saturated"
	ReasonIterationCap       TerminationReason = "iteration_cap"
	ReasonCancelled          TerminationReason = "cancelled"
	ReasonNumericalBreakdown TerminationReason = "numerical_breakdown"
)

// maxDamping is the damping ceiling past which the driver gives up (spec §4.5 step 6).
const maxDamping = 1e16

// Options mirrors the LM-relevant subset of project.SolverOptions.
type Options struct {
	MaxIterations  uint
	Tolerance      float64
	InitialDamping float64
	Verbose        bool
	OnProgress     project.ProgressFunc
}

// OptionsFrom extracts the LM-relevant fields from SolverOptions.
func OptionsFrom(so project.SolverOptions) Options {
	return Options{
		MaxIterations:  so.MaxIterations,
		Tolerance:      so.Tolerance,
		InitialDamping: so.InitialDamping,
		Verbose:        so.Verbose,
		OnProgress:     so.OnProgress,
	}
}

// Result is the outcome of one Run call.
type Result struct {
	Converged         bool
	Iterations        uint
	FinalCost         float64
	TerminationReason TerminationReason
	X                 []float64
}

// Driver runs LM over a fixed Layout and Providers, reusing scratch buffers across Run
// calls (a Driver is typically reused across one candidate's probe + full-LM passes).
type Driver struct {
	layout *varlayout.Layout
	set    *residual.Set
	logger logging.Logger

	r       []float64
	jac     *sparsela.CSR
	g       []float64
	negG    []float64
	diag    []float64
	precond []float64
	delta   []float64
	xTrial  []float64
	jv      []float64
	cgWs    *sparsela.CGWorkspace
}

// NewDriver allocates a Driver's scratch buffers sized for layout's variable count and
// set's total residual count.
func NewDriver(layout *varlayout.Layout, set *residual.Set, logger logging.Logger) *Driver {
	n := layout.VariableCount
	k := set.Total()
	return &Driver{
		layout:  layout,
		set:     set,
		logger:  logger,
		r:       make([]float64, k),
		jac:     sparsela.NewCSR(n, k*8),
		g:       make([]float64, n),
		negG:    make([]float64, n),
		diag:    make([]float64, n),
		precond: make([]float64, n),
		delta:   make([]float64, n),
		xTrial:  make([]float64, n),
		jv:      make([]float64, k),
		cgWs:    sparsela.NewCGWorkspace(n),
	}
}

// JacobianAt rebuilds and returns the driver's Jacobian at x, for callers (diagnostics)
// that need the final iterate's Jacobian after Run has returned. Reuses the driver's
// scratch CSR; the result is only valid until the next Run or JacobianAt call.
func (d *Driver) JacobianAt(x []float64) *sparsela.CSR {
	d.set.BuildJacobian(x, d.jac)
	return d.jac
}

func (d *Driver) cost(x []float64) (float64, bool) {
	d.set.ComputeResidual(x, d.r)
	sum := 0.0
	for _, v := range d.r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		sum += v * v
	}
	return 0.5 * sum, true
}

// Run executes LM starting from x0 (copied, never mutated), terminating per spec §4.5
// step 6. ctx cancellation and the Options.OnProgress callback both produce
// ReasonCancelled; the returned Result.X always holds the best x seen (the last accepted
// iterate), even on a non-converged termination, so callers can use it as a fallback
// candidate.
func (d *Driver) Run(ctx context.Context, x0 []float64, opts Options) (Result, error) {
	n := len(d.g)
	x := append([]float64(nil), x0...)
	if len(x) != n {
		return Result{}, baerrors.ErrInvalidConfiguration
	}

	lambda := opts.InitialDamping
	nu := 2.0

	cost, ok := d.cost(x)
	if !ok {
		return Result{X: x, TerminationReason: ReasonNumericalBreakdown}, baerrors.ErrNumericalBreakdown
	}

	var iter uint
	for ; iter < opts.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return Result{X: x, Iterations: iter, FinalCost: cost, TerminationReason: ReasonCancelled}, baerrors.ErrCancelled
		default:
		}

		d.set.BuildJacobian(x, d.jac)
		for i := range d.g {
			d.g[i] = 0
			d.diag[i] = 0
		}
		d.jac.MulTransVec(d.r, d.g)
		d.jac.DiagOfJtJ(d.diag)

		gradInf := sparsela.NormInf(d.g)
		if gradInf < opts.Tolerance {
			return Result{X: x, Iterations: iter, FinalCost: cost, Converged: true, TerminationReason: ReasonGradientTolerance}, nil
		}

		// Columns with a zero JᵀJ diagonal are unobservable this iteration (e.g. a point
		// seen by no enabled camera): damp them with a nominal diagonal of 1 rather than
		// let the preconditioner reject the whole step.
		for i, dv := range d.diag {
			if dv <= 0 {
				d.diag[i] = 1
			}
		}

		if err := sparsela.JacobiPreconditioner(d.diag, lambda, d.precond); err != nil {
			return Result{X: x, Iterations: iter, FinalCost: cost, TerminationReason: ReasonNumericalBreakdown}, err
		}

		apply := func(p, out []float64) {
			d.jac.MulVec(p, d.jv)
			for i := range out {
				out[i] = 0
			}
			d.jac.MulTransVec(d.jv, out)
			for i := range out {
				out[i] += lambda * d.diag[i] * p[i]
			}
		}
		for i := range d.delta {
			d.delta[i] = 0
		}
		for i, gv := range d.g {
			d.negG[i] = -gv
		}
		if err := sparsela.PCG(apply, d.precond, d.negG, d.delta, d.cgWs); err != nil {
			return Result{X: x, Iterations: iter, FinalCost: cost, TerminationReason: ReasonNumericalBreakdown}, err
		}

		for i := range x {
			d.xTrial[i] = x[i] + d.delta[i]
		}
		if !d.layout.RenormalizeQuaternions(d.xTrial) {
			return Result{X: x, Iterations: iter, FinalCost: cost, TerminationReason: ReasonNumericalBreakdown}, baerrors.ErrNumericalBreakdown
		}

		trialCost, finite := d.cost(d.xTrial)
		var rho float64
		if finite {
			denom := 0.0
			for i := range d.delta {
				denom += d.delta[i] * (lambda*d.diag[i]*d.delta[i] - d.g[i])
			}
			if denom != 0 {
				rho = (cost - trialCost) / denom
			}
		}

		if finite && rho > 0 {
			copy(x, d.xTrial)
			cost = trialCost
			lambda *= math.Max(1.0/3.0, 1-math.Pow(2*rho-1, 3))
			nu = 2
			if d.logger != nil && opts.Verbose {
				d.logger.Debugw("accepted LM step", "iteration", iter, "cost", cost, "lambda", lambda)
			}
			if cost < opts.Tolerance*opts.Tolerance {
				return Result{X: x, Iterations: iter + 1, FinalCost: cost, Converged: true, TerminationReason: ReasonConverged}, nil
			}
		} else {
			lambda *= nu
			nu *= 2
			if d.logger != nil && opts.Verbose {
				d.logger.Debugw("rejected LM step", "iteration", iter, "lambda", lambda)
			}
		}

		if lambda > maxDamping {
			return Result{X: x, Iterations: iter + 1, FinalCost: cost, TerminationReason: ReasonDampingSaturated}, nil
		}

		if opts.OnProgress != nil && opts.OnProgress(int(iter), cost, cost) {
			return Result{X: x, Iterations: iter + 1, FinalCost: cost, TerminationReason: ReasonCancelled}, baerrors.ErrCancelled
		}
	}

	return Result{X: x, Iterations: iter, FinalCost: cost, TerminationReason: ReasonIterationCap}, nil
}
