package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestLoggerLevelsWriteToSink(t *testing.T) {
	var buf bytes.Buffer
	logger := newImpl("solver", DEBUG, &buf)

	logger.Debug("starting iteration")
	logger.Infow("accepted step", "lambda", 0.1)
	logger.Warn("discarding diverged candidate")
	logger.Error("did not converge")

	out := buf.String()
	test.That(t, strings.Contains(out, "starting iteration"), test.ShouldBeTrue)
	test.That(t, strings.Contains(out, "accepted step"), test.ShouldBeTrue)
	test.That(t, strings.Contains(out, "discarding diverged candidate"), test.ShouldBeTrue)
	test.That(t, strings.Contains(out, "did not converge"), test.ShouldBeTrue)
}

func TestSubloggerInheritsSinkAndQualifiesName(t *testing.T) {
	var buf bytes.Buffer
	logger := newImpl("adjust", INFO, &buf)
	sub := logger.Sublogger("lm")
	test.That(t, sub.Named(), test.ShouldEqual, "adjust.lm")

	sub.Info("starting LM driver")
	test.That(t, strings.Contains(buf.String(), "starting LM driver"), test.ShouldBeTrue)
}

func TestWithFieldsBindsKeyValuesToEveryCall(t *testing.T) {
	var buf bytes.Buffer
	logger := newImpl("adjust", DEBUG, &buf)
	bound := logger.WithFields("candidate", 2)

	bound.Info("probe complete")
	test.That(t, strings.Contains(buf.String(), "candidate"), test.ShouldBeTrue)
}

func TestInfoBelowLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := newImpl("adjust", WARN, &buf)
	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	test.That(t, strings.Contains(out, "should not appear"), test.ShouldBeFalse)
	test.That(t, strings.Contains(out, "should appear"), test.ShouldBeTrue)
}
