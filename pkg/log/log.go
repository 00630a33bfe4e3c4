// Package log provides structured, named loggers backed by zerolog.
//
// Loggers carry key/value fields; keys used across the library are exported
// as constants so log output stays greppable.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Structured logging keys shared across the library.
const (
	ModelNameKey  = "model"
	ComponentKey  = "component"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	OptionsKey    = "options"
	VariablesKey  = "variables"
	SolutionsKey  = "solutions"
	DurationMsKey = "duration_ms"
	ErrorKey      = "error"
)

// Common values for OperationKey and PhaseKey.
const (
	OperationScore    = "score"
	OperationPredict  = "predict"
	OperationGenerate = "generate"
	OperationSolve    = "solve"
	PhaseInference    = "inference"
	PhaseSearch       = "search"
)

// Logger is the structured logging interface used throughout the library.
// Fields are passed as alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

var (
	mu   sync.RWMutex
	root = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
)

// SetupLogger replaces the package root logger. Pass a nil writer to keep
// stderr. Level strings follow zerolog ("debug", "info", "warn", "error").
func SetupLogger(level string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	root = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	mu.Unlock()
}

// GetLogger returns the root logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{l: root}
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zeroLogger{l: root.With().Str("logger", name).Logger()}
}

type zeroLogger struct {
	l zerolog.Logger
}

func (z *zeroLogger) Debug(msg string, kv ...interface{}) { emit(z.l.Debug(), msg, kv) }
func (z *zeroLogger) Info(msg string, kv ...interface{})  { emit(z.l.Info(), msg, kv) }
func (z *zeroLogger) Warn(msg string, kv ...interface{})  { emit(z.l.Warn(), msg, kv) }
func (z *zeroLogger) Error(msg string, kv ...interface{}) { emit(z.l.Error(), msg, kv) }

func (z *zeroLogger) With(kv ...interface{}) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, kv[i+1])
	}
	return &zeroLogger{l: ctx.Logger()}
}

func emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
