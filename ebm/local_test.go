package ebm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalModel_UpdateFeature(t *testing.T) {
	m := newTestModel(t)
	sample := Sample{30.0, "poor", 25.0}

	lm, err := m.NewLocalModel(sample)
	require.NoError(t, err)
	assert.InDelta(t, -4, lm.RawScore(), 1e-12)
	assert.Equal(t, 0.0, lm.PredictedClass())

	// Changing income must refresh its main effect and the interaction
	// term touching it, leaving everything else untouched.
	require.NoError(t, lm.UpdateFeature("income", 150.0))
	assert.InDelta(t, 2, lm.Score("income"), 1e-12)
	assert.InDelta(t, -1, lm.Score("credit_history"), 1e-12)

	require.NoError(t, lm.UpdateFeature("credit_history", "good"))
	assert.InDelta(t, 1, lm.Score("credit_history"), 1e-12)
	assert.InDelta(t, 0.3, lm.Score("income x credit_history"), 1e-12)
	assert.Equal(t, 1.0, lm.PredictedClass())
}

// Incremental updates must be equivalent to rescoring the full sample.
func TestLocalModel_MatchesCountScore(t *testing.T) {
	m := newTestModel(t)
	lm, err := m.NewLocalModel(Sample{30.0, "poor", 25.0})
	require.NoError(t, err)

	updates := []struct {
		feature string
		value   interface{}
	}{
		{"income", 75.0},
		{"age", 60.0},
		{"credit_history", "fair"},
		{"income", 5.0},
		{"credit_history", "good"},
	}
	for _, u := range updates {
		require.NoError(t, lm.UpdateFeature(u.feature, u.value))

		want, err := m.CountScore(lm.Sample())
		require.NoError(t, err)
		got := lm.Scores()
		require.Len(t, got, len(want))
		for name, score := range want {
			assert.InDelta(t, score, got[name], 1e-12, "term %s after %s=%v", name, u.feature, u.value)
		}
	}
}

func TestLocalModel_OriginalSampleUntouched(t *testing.T) {
	m := newTestModel(t)
	sample := Sample{30.0, "poor", 25.0}
	lm, err := m.NewLocalModel(sample)
	require.NoError(t, err)

	require.NoError(t, lm.UpdateFeature("income", 150.0))
	assert.Equal(t, 30.0, sample[0])
	assert.Equal(t, 150.0, lm.Sample()[0])
}

func TestLocalModel_UnknownFeature(t *testing.T) {
	m := newTestModel(t)
	lm, err := m.NewLocalModel(Sample{30.0, "poor", 25.0})
	require.NoError(t, err)
	require.Error(t, lm.UpdateFeature("nope", 1.0))
}
