package project

// RobustLossKind selects the influence function residual providers are reweighted by.
type RobustLossKind int

const (
	RobustLossNone RobustLossKind = iota
	RobustLossHuber
	RobustLossCauchy
	RobustLossTukey
)

func (k RobustLossKind) String() string {
	switch k {
	case RobustLossNone:
		return "none"
	case RobustLossHuber:
		return "huber"
	case RobustLossCauchy:
		return "cauchy"
	case RobustLossTukey:
		return "tukey"
	default:
		return "unknown"
	}
}

// ProgressFunc is invoked between LM iterations with the current iteration count, cost,
// and best cost seen so far in the candidate; returning true requests cancellation.
type ProgressFunc func(iteration int, cost, bestSoFar float64) (cancel bool)

// SolverOptions controls a Solve or FineTune call, per spec §6's inbound interface.
type SolverOptions struct {
	MaxIterations      uint
	Tolerance          float64
	InitialDamping     float64
	LockCameraPoses    bool
	OptimizeIntrinsics bool
	RobustLoss         RobustLossKind
	RobustLossScale    float64
	Verbose            bool
	OnProgress         ProgressFunc
}

// DefaultSolverOptions returns the spec-documented defaults: 500 iterations, 1e-6
// tolerance, 1e-3 initial damping, cameras unlocked, intrinsics optimized (since
// LockCameraPoses defaults false), no robust loss, scale 1.0, not verbose, no callback.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		MaxIterations:      500,
		Tolerance:          1e-6,
		InitialDamping:     1e-3,
		LockCameraPoses:    false,
		OptimizeIntrinsics: true,
		RobustLoss:         RobustLossNone,
		RobustLossScale:    1.0,
		Verbose:            false,
	}
}
