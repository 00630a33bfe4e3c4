package ebm

import (
	gamcfErrors "github.com/ezoic/gamcf/pkg/errors"
)

// LocalModel binds a Model to one fixed sample and keeps its per-term scores
// cached so a single hypothetical feature change only recomputes that
// feature's main effect and the interaction terms touching it. The result is
// always equivalent to re-running CountScore on the full updated sample.
type LocalModel struct {
	model   *Model
	sample  Sample
	encoded []float64
	scores  map[string]float64
}

// NewLocalModel creates a LocalModel bound to a copy of the sample.
func (m *Model) NewLocalModel(s Sample) (*LocalModel, error) {
	if !m.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Model", "NewLocalModel")
	}
	encoded, err := m.encodeSample(s)
	if err != nil {
		return nil, err
	}
	return &LocalModel{
		model:   m,
		sample:  s.Clone(),
		encoded: encoded,
		scores:  m.countScoreEncoded(encoded),
	}, nil
}

// UpdateFeature hypothetically changes one feature value, recomputing only
// the affected terms.
func (lm *LocalModel) UpdateFeature(name string, value interface{}) error {
	idx, ok := lm.model.FeatureIndex(name)
	if !ok {
		return gamcfErrors.NewValueError("LocalModel.UpdateFeature", "unknown feature "+name)
	}
	f := &lm.model.Features[idx]
	encoded, _ := lm.model.EncodeValue(f, value)
	lm.sample[idx] = value
	lm.encoded[idx] = encoded

	lm.scores[f.Name] = lm.model.mainScore(f, encoded)
	for _, ti := range lm.model.InteractionsTouching(idx) {
		term := &lm.model.Interactions[ti]
		lm.scores[term.Name] = lm.model.interactionScore(term, lm.encoded)
	}
	return nil
}

// Sample returns the current working sample.
func (lm *LocalModel) Sample() Sample { return lm.sample }

// Encoded returns the encoded value at a sample position.
func (lm *LocalModel) Encoded(idx int) float64 { return lm.encoded[idx] }

// Model returns the underlying scoring model.
func (lm *LocalModel) Model() *Model { return lm.model }

// Scores returns the cached per-term contributed scores.
func (lm *LocalModel) Scores() map[string]float64 {
	out := make(map[string]float64, len(lm.scores))
	for k, v := range lm.scores {
		out[k] = v
	}
	return out
}

// Score returns one term's cached contributed score.
func (lm *LocalModel) Score(name string) float64 { return lm.scores[name] }

// RawScore returns the cached total score plus intercept (log-odds for
// classifiers, the prediction for regressors).
func (lm *LocalModel) RawScore() float64 {
	return sumScores(lm.scores) + lm.model.Intercept
}

// Probability returns the sigmoid of the cached total for classifiers.
func (lm *LocalModel) Probability() float64 {
	return Sigmoid(lm.RawScore())
}

// PredictedClass returns the thresholded class label for classifiers.
func (lm *LocalModel) PredictedClass() float64 {
	if lm.Probability() >= 0.5 {
		return 1
	}
	return 0
}
