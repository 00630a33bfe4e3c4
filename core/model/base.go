// Package model provides the shared estimator base for loaded models.
//
// Models in gamcf are not trained in-process; they are decoded from a model
// description file and marked fitted on successful decode. BaseEstimator
// tracks that state and carries the estimator's logger so every model logs
// with a consistent shape.
package model

// EstimatorState represents the lifecycle state of a model.
type EstimatorState int

const (
	// NotFitted indicates the model has not been loaded yet.
	NotFitted EstimatorState = iota
	// Fitted indicates the model is loaded and ready for use.
	Fitted
)

// BaseEstimator is embedded by every model-like type in the library.
type BaseEstimator struct {
	// State holds the model's lifecycle state. Public for encoding.
	State EstimatorState

	// ModelType identifies the concrete model, e.g. "EBM".
	ModelType string

	// Version is the model description version, if the file carries one.
	Version string

	logger interface {
		Debug(string, ...interface{})
		Info(string, ...interface{})
		Warn(string, ...interface{})
		Error(string, ...interface{})
	}
}

// IsFitted reports whether the model is loaded and usable.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as loaded. Called by decoders after a
// successful load, not by end users.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial unloaded state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// SetLogger attaches a structured logger to this estimator.
func (e *BaseEstimator) SetLogger(logger interface {
	Debug(string, ...interface{})
	Info(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}) {
	e.logger = logger
}

// LogDebug logs a debug message when a logger is configured.
func (e *BaseEstimator) LogDebug(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, fields...)
	}
}

// LogInfo logs an info message when a logger is configured.
func (e *BaseEstimator) LogInfo(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, fields...)
	}
}

// LogWarn logs a warning when a logger is configured.
func (e *BaseEstimator) LogWarn(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, fields...)
	}
}

// LogError logs an error message when a logger is configured.
func (e *BaseEstimator) LogError(msg string, fields ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, fields...)
	}
}
