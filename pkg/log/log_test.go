package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSetupLogger(t *testing.T) {
	defer SetupLogger("warn", os.Stderr)

	var buf bytes.Buffer
	SetupLogger("debug", &buf)

	GetLogger().Debug("options generated", OptionsKey, 12, PhaseKey, PhaseSearch)

	entry := captureLine(t, &buf)
	assert.Equal(t, "options generated", entry["message"])
	assert.Equal(t, float64(12), entry[OptionsKey])
	assert.Equal(t, PhaseSearch, entry[PhaseKey])
}

func TestSetupLogger_LevelFilter(t *testing.T) {
	defer SetupLogger("warn", os.Stderr)

	var buf bytes.Buffer
	SetupLogger("warn", &buf)

	GetLogger().Info("below threshold")
	assert.Zero(t, buf.Len())

	GetLogger().Warn("at threshold")
	assert.NotZero(t, buf.Len())
}

func TestGetLoggerWithName(t *testing.T) {
	defer SetupLogger("warn", os.Stderr)

	var buf bytes.Buffer
	SetupLogger("info", &buf)

	GetLoggerWithName("coach").Info("ready")

	entry := captureLine(t, &buf)
	assert.Equal(t, "coach", entry["logger"])
}

func TestLogger_With(t *testing.T) {
	defer SetupLogger("warn", os.Stderr)

	var buf bytes.Buffer
	SetupLogger("info", &buf)

	l := GetLogger().With(ModelNameKey, "EBM")
	l.Info("model loaded", FeaturesKey, 3)

	entry := captureLine(t, &buf)
	assert.Equal(t, "EBM", entry[ModelNameKey])
	assert.Equal(t, float64(3), entry[FeaturesKey])
}

func TestLogger_ErrorValue(t *testing.T) {
	defer SetupLogger("warn", os.Stderr)

	var buf bytes.Buffer
	SetupLogger("info", &buf)

	GetLogger().Error("solve failed", ErrorKey, errors.New("connection refused"))

	entry := captureLine(t, &buf)
	assert.Equal(t, "connection refused", entry[ErrorKey])
}

func TestLogger_OddKeyValues(t *testing.T) {
	defer SetupLogger("warn", os.Stderr)

	var buf bytes.Buffer
	SetupLogger("info", &buf)

	// A trailing key without a value is dropped rather than panicking.
	GetLogger().Info("lopsided", "dangling")
	entry := captureLine(t, &buf)
	assert.Equal(t, "lopsided", entry["message"])
	assert.NotContains(t, entry, "dangling")
}
