package logging

import (
	"fmt"
	"io"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface the solver and its orchestrator depend on. It is intentionally
// narrow: leveled calls, formatted calls, structured ("w") calls, a named child logger,
// and a field-bound child logger, matching the calling convention used throughout the
// solver packages (e.g. `logger.Sublogger("lm")`, `logger.Infow("accepted step", "lambda",
// lambda)`).
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	Sublogger(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger

	Level() Level
	Named() string
}

type impl struct {
	name  string
	level Level
	sugar *zap.SugaredLogger
}

// NewLogger returns a Logger at INFO level writing to stdout.
func NewLogger(name string) Logger {
	return newImpl(name, INFO, os.Stdout)
}

// NewLoggerAt returns a Logger at the given level writing to stdout.
func NewLoggerAt(name string, level Level) Logger {
	return newImpl(name, level, os.Stdout)
}

// NewTestLogger returns a Logger at DEBUG level that writes through t.Log, matching the
// convention of passing `logging.NewTestLogger(t)` to solver entry points in tests.
func NewTestLogger(tb testing.TB) Logger {
	return newImpl(tb.Name(), DEBUG, testWriter{tb})
}

type testWriter struct{ tb testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}

func newImpl(name string, level Level, w io.Writer) *impl {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level.zapLevel())
	zl := zap.New(core).Named(name)
	return &impl{name: name, level: level, sugar: zl.Sugar()}
}

func (i *impl) Debug(args ...interface{})                   { i.sugar.Debug(args...) }
func (i *impl) Debugf(template string, args ...interface{}) { i.sugar.Debugf(template, args...) }
func (i *impl) Debugw(msg string, kv ...interface{})        { i.sugar.Debugw(msg, kv...) }
func (i *impl) Info(args ...interface{})                    { i.sugar.Info(args...) }
func (i *impl) Infof(template string, args ...interface{})  { i.sugar.Infof(template, args...) }
func (i *impl) Infow(msg string, kv ...interface{})         { i.sugar.Infow(msg, kv...) }
func (i *impl) Warn(args ...interface{})                    { i.sugar.Warn(args...) }
func (i *impl) Warnf(template string, args ...interface{})  { i.sugar.Warnf(template, args...) }
func (i *impl) Warnw(msg string, kv ...interface{})         { i.sugar.Warnw(msg, kv...) }
func (i *impl) Error(args ...interface{})                   { i.sugar.Error(args...) }
func (i *impl) Errorf(template string, args ...interface{}) { i.sugar.Errorf(template, args...) }
func (i *impl) Errorw(msg string, kv ...interface{})        { i.sugar.Errorw(msg, kv...) }

func (i *impl) Level() Level  { return i.level }
func (i *impl) Named() string { return i.name }

// Sublogger returns a child logger whose name is "parent.name", inheriting the parent's
// level and sink.
func (i *impl) Sublogger(name string) Logger {
	return &impl{
		name:  i.name + "." + name,
		level: i.level,
		sugar: i.sugar.Named(name),
	}
}

// WithFields returns a child logger with the given key/value pairs bound to every
// subsequent call. An odd trailing key is paired with the literal string "(MISSING)".
func (i *impl) WithFields(keysAndValues ...interface{}) Logger {
	if len(keysAndValues)%2 != 0 {
		keysAndValues = append(keysAndValues, "(MISSING)")
	}
	return &impl{
		name:  i.name,
		level: i.level,
		sugar: i.sugar.With(keysAndValues...),
	}
}

var _ fmt.Stringer = Level(0)
