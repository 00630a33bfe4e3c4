package ebm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDescription builds a small classifier: two continuous features, one
// categorical feature, and one interaction term.
func newTestDescription() *Description {
	return &Description{
		FeatureNames: []string{"income", "credit_history", "age"},
		FeatureTypes: []string{"continuous", "categorical", "continuous"},
		Intercept:    -1,
		IsClassifier: true,
		ModelInfo:    ModelInfo{Classes: []string{"rejected", "approved"}},
		Features: []FeatureDescription{
			{
				Name:     "income",
				Type:     "continuous",
				BinEdge:  []float64{0, 50, 100, 200},
				Additive: []float64{-2, 0.5, 2},
			},
			{
				Name:     "credit_history",
				Type:     "categorical",
				BinEdge:  []float64{1, 2, 3},
				Additive: []float64{-1, 0, 1},
			},
			{
				Name:     "age",
				Type:     "continuous",
				BinEdge:  []float64{18, 30, 50, 90},
				Additive: []float64{0, 0.2, 0.4},
			},
			{
				Name:     "income x credit_history",
				Type:     "interaction",
				BinEdge1: []float64{0, 50, 100},
				BinEdge2: []float64{1, 2, 3},
				Additive2D: [][]float64{
					{0, 0, 0},
					{0, 0, 0},
					{0, 0, 0.3},
				},
			},
		},
		LabelEncoder: map[string]map[string]string{
			"credit_history": {"1": "poor", "2": "fair", "3": "good"},
		},
		ContMADs: map[string]float64{"income": 10, "age": 1},
		CatDistances: map[string]map[string]float64{
			"credit_history": {"poor": 1, "fair": 0.5, "good": 2},
		},
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := newTestDescription().ToModel()
	require.NoError(t, err)
	return m
}

func TestContBin(t *testing.T) {
	edges := []float64{0, 50, 100}

	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"below first edge clamps to first bin", -10, 0},
		{"on first edge", 0, 0},
		{"inside first bin", 49.9, 0},
		{"on interior edge belongs to upper bin", 50, 1},
		{"inside middle bin", 75, 1},
		{"on last edge", 100, 2},
		{"beyond last edge clamps to last bin", 1e9, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContBin(edges, tt.value); got != tt.want {
				t.Errorf("ContBin(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestCatBin(t *testing.T) {
	edges := []float64{1, 2, 3}
	if got := CatBin(edges, 2); got != 1 {
		t.Errorf("CatBin(2) = %d, want 1", got)
	}
	if got := CatBin(edges, 7); got != -1 {
		t.Errorf("CatBin(7) = %d, want -1", got)
	}
}

func TestModel_CountScore(t *testing.T) {
	m := newTestModel(t)

	scores, err := m.CountScore(Sample{30.0, "poor", 25.0})
	require.NoError(t, err)

	assert.InDelta(t, -2, scores["income"], 1e-12)
	assert.InDelta(t, -1, scores["credit_history"], 1e-12)
	assert.InDelta(t, 0, scores["age"], 1e-12)
	assert.InDelta(t, 0, scores["income x credit_history"], 1e-12)
}

func TestModel_CountScore_InteractionCell(t *testing.T) {
	m := newTestModel(t)

	// income 150 -> interaction axis bin 2, "good" -> bin 2.
	scores, err := m.CountScore(Sample{150.0, "good", 25.0})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, scores["income x credit_history"], 1e-12)
}

func TestModel_CountScore_UnseenLevel(t *testing.T) {
	m := newTestModel(t)

	scores, err := m.CountScore(Sample{30.0, "unheard-of", 25.0})
	require.NoError(t, err)
	// Unseen level encodes to code 0 which matches no bin: zero contribution.
	assert.InDelta(t, 0, scores["credit_history"], 1e-12)
	assert.InDelta(t, 0, scores["income x credit_history"], 1e-12)
}

func TestModel_CountScore_DimensionMismatch(t *testing.T) {
	m := newTestModel(t)
	_, err := m.CountScore(Sample{30.0, "poor"})
	require.Error(t, err)
}

func TestModel_Predict(t *testing.T) {
	m := newTestModel(t)

	low := Sample{30.0, "poor", 25.0}   // total -4
	high := Sample{150.0, "good", 55.0} // 2 + 1 + 0.4 + 0.3 - 1 = 2.7

	labels, err := m.Predict([]Sample{low, high}, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, labels)

	raw, err := m.Predict([]Sample{low, high}, true)
	require.NoError(t, err)
	assert.InDelta(t, -4, raw[0], 1e-12)
	assert.InDelta(t, 2.7, raw[1], 1e-12)
}

func TestModel_PredictProba(t *testing.T) {
	m := newTestModel(t)

	probs, err := m.PredictProba([]Sample{{30.0, "poor", 25.0}})
	require.NoError(t, err)
	assert.InDelta(t, Sigmoid(-4), probs[0], 1e-12)
	assert.Less(t, probs[0], 0.5)
}

func TestModel_Predict_Regressor(t *testing.T) {
	desc := newTestDescription()
	desc.IsClassifier = false
	m, err := desc.ToModel()
	require.NoError(t, err)

	got, err := m.Predict([]Sample{{30.0, "poor", 25.0}}, false)
	require.NoError(t, err)
	assert.InDelta(t, -4, got[0], 1e-12)
}

func TestSigmoid(t *testing.T) {
	if got := Sigmoid(0); got != 0.5 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", got)
	}
	// Rounded to 5 decimal places.
	if got := Sigmoid(1); got != 0.73106 {
		t.Errorf("Sigmoid(1) = %v, want 0.73106", got)
	}
	if got := Sigmoid(-40); got != 0 {
		t.Errorf("Sigmoid(-40) = %v, want 0", got)
	}
	if Sigmoid(40) != 1 {
		t.Error("Sigmoid(40) should round to 1")
	}
	if math.Abs(Sigmoid(3)+Sigmoid(-3)-1) > 1e-9 {
		t.Error("Sigmoid should be symmetric around 0.5")
	}
}

// Float addition is not associative, so the total must be accumulated in a
// fixed term order to come out bit-identical on every call.
func TestRawScore_Deterministic(t *testing.T) {
	desc := &Description{
		FeatureNames: []string{"a", "b", "c"},
		FeatureTypes: []string{"continuous", "continuous", "continuous"},
		Intercept:    0.7,
		Features: []FeatureDescription{
			{Name: "a", Type: "continuous", BinEdge: []float64{0, 10}, Additive: []float64{0.1}},
			{Name: "b", Type: "continuous", BinEdge: []float64{0, 10}, Additive: []float64{0.2}},
			{Name: "c", Type: "continuous", BinEdge: []float64{0, 10}, Additive: []float64{0.3}},
		},
	}
	m, err := desc.ToModel()
	require.NoError(t, err)
	sample := Sample{1.0, 1.0, 1.0}

	want, err := m.RawScore(sample)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		got, err := m.RawScore(sample)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	lm, err := m.NewLocalModel(sample)
	require.NoError(t, err)
	assert.Equal(t, want, lm.RawScore())
}

func TestModel_NotFitted(t *testing.T) {
	var m Model
	_, err := m.CountScore(Sample{1.0})
	require.Error(t, err)
}
