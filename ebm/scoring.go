package ebm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	gamcfErrors "github.com/ezoic/gamcf/pkg/errors"
)

// CountScore computes the per-term contributed scores of a sample: one entry
// per main-effect feature plus one per interaction term, keyed by name.
// Unseen categorical levels contribute zero and are logged, never fatal.
func (m *Model) CountScore(s Sample) (map[string]float64, error) {
	if !m.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Model", "CountScore")
	}
	encoded, err := m.encodeSample(s)
	if err != nil {
		return nil, err
	}
	return m.countScoreEncoded(encoded), nil
}

func (m *Model) countScoreEncoded(encoded []float64) map[string]float64 {
	scores := make(map[string]float64, len(m.Features)+len(m.Interactions))
	for i := range m.Features {
		f := &m.Features[i]
		scores[f.Name] = m.mainScore(f, encoded[i])
	}
	for i := range m.Interactions {
		term := &m.Interactions[i]
		scores[term.Name] = m.interactionScore(term, encoded)
	}
	return scores
}

func (m *Model) mainScore(f *Feature, encoded float64) float64 {
	bin := m.bin(f, encoded)
	if bin < 0 || bin >= len(f.Scores) {
		return 0
	}
	return f.Scores[bin]
}

func (m *Model) interactionScore(term *InteractionTerm, encoded []float64) float64 {
	bin0 := m.interactionBin(term, 0, encoded[term.Parents[0]])
	bin1 := m.interactionBin(term, 1, encoded[term.Parents[1]])
	return term.ScoreAt(bin0, bin1)
}

// RawScore returns the sum of all contributed scores plus the intercept:
// log-odds for classifiers, the prediction for regressors.
func (m *Model) RawScore(s Sample) (float64, error) {
	scores, err := m.CountScore(s)
	if err != nil {
		return 0, err
	}
	return sumScores(scores) + m.Intercept, nil
}

// Predict scores samples. For classifiers the result is the predicted class
// label (0 or 1) unless raw is true, in which case the log-odds value is
// returned. Regressors always return the raw sum.
func (m *Model) Predict(samples []Sample, raw bool) ([]float64, error) {
	if !m.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Model", "Predict")
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		total, err := m.RawScore(s)
		if err != nil {
			return nil, err
		}
		if !m.IsClassifier || raw {
			out[i] = total
			continue
		}
		if Sigmoid(total) >= 0.5 {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out, nil
}

// PredictProba returns the sigmoid-transformed score for classifiers.
func (m *Model) PredictProba(samples []Sample) ([]float64, error) {
	if !m.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Model", "PredictProba")
	}
	if !m.IsClassifier {
		return nil, gamcfErrors.NewValueError("Model.PredictProba", "model is not a classifier")
	}
	out := make([]float64, len(samples))
	for i, s := range samples {
		total, err := m.RawScore(s)
		if err != nil {
			return nil, err
		}
		out[i] = Sigmoid(total)
	}
	return out, nil
}

// Sigmoid computes the logistic function in a numerically stable way,
// rounded to 5 decimal places.
func Sigmoid(z float64) float64 {
	var p float64
	if z >= 0 {
		ez := math.Exp(-z)
		p = 1.0 / (1.0 + ez)
	} else {
		ez := math.Exp(z)
		p = ez / (1.0 + ez)
	}
	return math.Round(p*1e5) / 1e5
}

// sumScores totals the contributed scores in sorted key order so float
// rounding is identical across calls on the same scores.
func sumScores(scores map[string]float64) float64 {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]float64, len(keys))
	for i, k := range keys {
		vals[i] = scores[k]
	}
	return floats.Sum(vals)
}
