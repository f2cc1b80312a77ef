// Package logging provides a small leveled, structured logger used across the
// bundle-adjustment engine for diagnostics and progress reporting. It mirrors the
// logger/sublogger shape common to numeric-solver host libraries: a logger is cheap to
// create, cheap to pass by interface, and child loggers inherit the parent's sink.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is a logging severity, ordered DEBUG < INFO < WARN < ERROR.
type Level int8

const (
	// DEBUG is the most verbose level, used for per-iteration solver traces.
	DEBUG Level = iota
	// INFO is used for orchestrator milestones (candidate selection, final report).
	INFO
	// WARN is used for recoverable anomalies (discarded candidate, fallback initializer).
	WARN
	// ERROR is used for solve failures.
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int8(l))
	}
}

// zapLevel returns the zapcore.Level equivalent for encoder use.
func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// LevelFromString parses a level name, case-insensitively, accepting "warning" as an
// alias for WARN.
func LevelFromString(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("logging: unrecognized level %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := LevelFromString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
