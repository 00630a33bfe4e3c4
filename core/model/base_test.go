package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	msgs []string
}

func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.msgs = append(l.msgs, msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.msgs = append(l.msgs, msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.msgs = append(l.msgs, msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.msgs = append(l.msgs, msg) }

func TestBaseEstimator_Lifecycle(t *testing.T) {
	var e BaseEstimator
	assert.False(t, e.IsFitted())

	e.SetFitted()
	assert.True(t, e.IsFitted())

	e.Reset()
	assert.False(t, e.IsFitted())
}

func TestBaseEstimator_Logging(t *testing.T) {
	var e BaseEstimator

	// No logger configured: logging is a no-op, not a panic.
	e.LogInfo("ignored")

	l := &recordingLogger{}
	e.SetLogger(l)
	e.LogDebug("a")
	e.LogInfo("b")
	e.LogWarn("c")
	e.LogError("d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, l.msgs)
}
