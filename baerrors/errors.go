// Package baerrors defines the sentinel error taxonomy the solver reports through:
// InvalidConfiguration, NumericalBreakdown, InsufficientData, DidNotConverge, and
// Cancelled. Failure paths in the solver return one of these sentinels directly or wrapped
// with Wrap, so callers can classify failures with errors.Is/ClassifyKind without string
// matching, matching the flat sentinel-error-per-package
// style used throughout the solver's planner family.
package baerrors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors, one per taxonomy entry in the solver's error handling design.
var (
	// ErrInvalidConfiguration is returned when a Project cannot be solved as configured:
	// zero free variables with unsatisfied residuals, or a fully-locked project detected
	// as internally inconsistent.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNumericalBreakdown is returned when a residual or gradient goes non-finite, the
	// CG denominator collapses below threshold, or a quaternion degenerates to zero.
	ErrNumericalBreakdown = errors.New("numerical breakdown")

	// ErrInsufficientData is returned when an initializer lacks enough correspondences to
	// seed a camera (PnP <4 points, Essential matrix <8 shared points).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDidNotConverge is returned when LM exhausts its iteration budget or damping
	// saturates without an accepted step.
	ErrDidNotConverge = errors.New("did not converge")

	// ErrCancelled is returned when the progress callback or the solve context requested
	// termination.
	ErrCancelled = errors.New("cancelled")
)

// Kind identifies which sentinel (if any) underlies err.
type Kind int

const (
	// KindNone is returned by ClassifyKind when err does not wrap a known sentinel.
	KindNone Kind = iota
	KindInvalidConfiguration
	KindNumericalBreakdown
	KindInsufficientData
	KindDidNotConverge
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "InvalidConfiguration"
	case KindNumericalBreakdown:
		return "NumericalBreakdown"
	case KindInsufficientData:
		return "InsufficientData"
	case KindDidNotConverge:
		return "DidNotConverge"
	case KindCancelled:
		return "Cancelled"
	default:
		return "None"
	}
}

// Wrap attaches a stack trace and msg to a sentinel error, for failures surfaced all the
// way to a SolveReport.Err where the stack is the only way to tell which call site in a
// multi-candidate orchestration run actually failed. errors.Is/ClassifyKind still see
// through it to the wrapped sentinel.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, msg)
}

// ClassifyKind returns the Kind of sentinel wrapped by err, or KindNone.
func ClassifyKind(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrNumericalBreakdown):
		return KindNumericalBreakdown
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrDidNotConverge):
		return KindDidNotConverge
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	default:
		return KindNone
	}
}
