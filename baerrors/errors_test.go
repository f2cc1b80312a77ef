package baerrors

import (
	"errors"
	"fmt"
	"testing"

	"go.viam.com/test"
)

func TestClassifyKindMatchesWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("camera 3: %w", ErrInsufficientData)
	test.That(t, errors.Is(wrapped, ErrInsufficientData), test.ShouldBeTrue)
	test.That(t, ClassifyKind(wrapped), test.ShouldEqual, KindInsufficientData)
}

func TestClassifyKindNoneForUnrelatedError(t *testing.T) {
	test.That(t, ClassifyKind(errors.New("boom")), test.ShouldEqual, KindNone)
	test.That(t, ClassifyKind(nil), test.ShouldEqual, KindNone)
}

func TestKindStringMatchesTaxonomyName(t *testing.T) {
	cases := map[Kind]string{
		KindInvalidConfiguration: "InvalidConfiguration",
		KindNumericalBreakdown:   "NumericalBreakdown",
		KindInsufficientData:     "InsufficientData",
		KindDidNotConverge:       "DidNotConverge",
		KindCancelled:            "Cancelled",
		KindNone:                 "None",
	}
	for kind, want := range cases {
		test.That(t, kind.String(), test.ShouldEqual, want)
	}
}
