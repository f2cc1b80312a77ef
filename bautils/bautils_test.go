package bautils

import (
	"testing"

	"go.viam.com/test"
)

func TestFloat64AlmostEqual(t *testing.T) {
	test.That(t, Float64AlmostEqual(1.0, 1.0+1e-9, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1.0, 1.1, 1e-6), test.ShouldBeFalse)
}

func TestPixelToleranceMatchesAcceptableQualityBand(t *testing.T) {
	test.That(t, PixelTolerance, test.ShouldEqual, 2.0)
}
