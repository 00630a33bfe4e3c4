// Package ebm implements scoring for additive, bin-based models
// (Explainable Boosting Machine style): per-feature lookup tables for main
// effects, 2-D lookup tables for pairwise interactions, plus an intercept.
package ebm

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/ezoic/gamcf/core/model"
	gamcfErrors "github.com/ezoic/gamcf/pkg/errors"
	"github.com/ezoic/gamcf/pkg/log"
)

// FeatureType distinguishes the three kinds of additive terms.
type FeatureType string

const (
	// Continuous features bin a numeric value by ordered lower bin edges.
	Continuous FeatureType = "continuous"
	// Categorical features match a level code exactly.
	Categorical FeatureType = "categorical"
	// Interaction terms combine two parent features on a 2-D score grid.
	Interaction FeatureType = "interaction"
)

// Transform names supported in feature configs.
const TransformLog10 = "log10"

// FeatureConfig carries per-feature constraints from the model description.
type FeatureConfig struct {
	// AcceptableRange bounds continuous counterfactual targets, [lo, hi].
	AcceptableRange []float64 `json:"acceptableRange,omitempty"`

	// AcceptableLevels restricts categorical counterfactual targets.
	AcceptableLevels []string `json:"acceptableLevels,omitempty"`

	// IncreaseOnly / DecreaseOnly restrict the direction of change.
	IncreaseOnly bool `json:"increaseOnly,omitempty"`
	DecreaseOnly bool `json:"decreaseOnly,omitempty"`

	// Difficulty biases the search away from hard-to-change features:
	// "very-easy", "easy", "neutral", "hard", "very-hard", or "locked".
	Difficulty string `json:"difficulty,omitempty"`

	// Transform names a value transform baked into the bins ("log10").
	Transform string `json:"transform,omitempty"`

	// RequiresInt forces counterfactual targets to integer values.
	RequiresInt bool `json:"requiresInt,omitempty"`
}

// Feature is a compiled main-effect term.
type Feature struct {
	Name  string
	Type  FeatureType
	Index int // position in the sample

	// BinEdges holds ordered lower bin bounds for continuous features
	// (the description's trailing upper edge is dropped) or numeric level
	// codes for categorical features.
	BinEdges []float64

	// Scores holds one additive score per bin, parallel to BinEdges.
	Scores []float64

	Config FeatureConfig

	// MAD is the feature's median absolute deviation, used to normalize
	// distances. Zero when the description carries no table.
	MAD float64

	// UpperBound is the dropped trailing upper edge of a continuous
	// feature's last bin, kept for reporting covering bin ranges.
	UpperBound float64
	HasUpper   bool
}

// InteractionTerm is a compiled pairwise term.
type InteractionTerm struct {
	Name    string // "featA x featB"
	Parents [2]int // indices into Model.Features

	// BinEdges holds the lookup axis per parent: lower bin bounds for a
	// continuous parent, level codes for a categorical one. Interaction
	// axes may bin more coarsely than the parent's main effect.
	BinEdges [2][]float64

	// Scores is the 2-D additive score grid, Scores[i][j] for bin i on
	// axis 0 and bin j on axis 1.
	Scores [][]float64
}

// ModelInfo describes the model's output space.
type ModelInfo struct {
	Classes        []string `json:"classes,omitempty"`
	RegressionName string   `json:"regressionName,omitempty"`
}

// Sample is one row of input values in the model's feature order:
// float64 for continuous features, string for categorical ones.
type Sample []interface{}

// Clone returns a copy of the sample.
func (s Sample) Clone() Sample {
	out := make(Sample, len(s))
	copy(out, s)
	return out
}

// Model is a decoded additive model ready for scoring.
type Model struct {
	model.BaseEstimator

	FeatureNames []string
	FeatureTypes []FeatureType
	Features     []Feature
	Interactions []InteractionTerm
	Intercept    float64
	IsClassifier bool
	Info         ModelInfo

	// CatDistances maps categorical feature name -> level label ->
	// distance of switching to that level.
	CatDistances map[string]map[string]float64

	encoder     *LabelEncoder
	featureIdx  map[string]int
	interByFeat map[int][]int // feature index -> interaction indices
	logger      log.Logger
}

// Encoder returns the model's categorical label encoder.
func (m *Model) Encoder() *LabelEncoder { return m.encoder }

// FeatureIndex returns the sample position of a named feature.
func (m *Model) FeatureIndex(name string) (int, bool) {
	idx, ok := m.featureIdx[name]
	return idx, ok
}

// InteractionsTouching returns the indices of interaction terms that
// reference the feature at the given sample position.
func (m *Model) InteractionsTouching(featureIdx int) []int {
	return m.interByFeat[featureIdx]
}

// EncodeValue converts one raw sample value into the numeric value used for
// bin lookup. Unseen categorical levels map to code 0 (zero contribution)
// and are reported via the second return.
func (m *Model) EncodeValue(f *Feature, v interface{}) (float64, bool) {
	switch f.Type {
	case Categorical:
		label, ok := v.(string)
		if !ok {
			// Tolerate numeric level codes passed straight through.
			if num, isNum := toFloat(v); isNum {
				return num, true
			}
			return 0, false
		}
		code, ok := m.encoder.Encode(f.Name, label)
		if !ok {
			m.logger.Warn("unseen categorical level, scoring as zero contribution",
				log.ModelNameKey, m.ModelType,
				"feature", f.Name,
				"level", label)
		}
		return code, ok
	default:
		num, ok := toFloat(v)
		if !ok {
			return 0, false
		}
		if f.Config.Transform == TransformLog10 {
			return math.Log10(num), true
		}
		return num, true
	}
}

// encodeSample encodes every value of a sample for bin lookup.
func (m *Model) encodeSample(s Sample) ([]float64, error) {
	if len(s) != len(m.Features) {
		return nil, gamcfErrors.NewDimensionError("Model.encodeSample", len(m.Features), len(s), 1)
	}
	encoded := make([]float64, len(s))
	for i := range m.Features {
		encoded[i], _ = m.EncodeValue(&m.Features[i], s[i])
	}
	return encoded, nil
}

// ContBin locates the bin of an encoded continuous value: binary search for
// the lower-bound index, clamping out-of-range values to the first/last bin.
func ContBin(edges []float64, v float64) int {
	// First index with edges[i] >= v.
	i := sort.SearchFloat64s(edges, v)
	if i < len(edges) && edges[i] == v {
		return i
	}
	if i == 0 {
		return 0
	}
	return i - 1
}

// CatBin locates the bin of an encoded categorical value by exact level-code
// match. Returns -1 when the code has no bin, which contributes zero.
func CatBin(edges []float64, code float64) int {
	for i, e := range edges {
		if e == code {
			return i
		}
	}
	return -1
}

// bin dispatches on the feature kind.
func (m *Model) bin(f *Feature, encoded float64) int {
	if f.Type == Categorical {
		return CatBin(f.BinEdges, encoded)
	}
	return ContBin(f.BinEdges, encoded)
}

// interactionBin locates an encoded value along one interaction axis.
func (m *Model) interactionBin(term *InteractionTerm, axis int, encoded float64) int {
	parent := &m.Features[term.Parents[axis]]
	if parent.Type == Categorical {
		return CatBin(term.BinEdges[axis], encoded)
	}
	return ContBin(term.BinEdges[axis], encoded)
}

// LocateInteractionBin locates an encoded value along one axis of an
// interaction term.
func (m *Model) LocateInteractionBin(term *InteractionTerm, axis int, encoded float64) int {
	return m.interactionBin(term, axis, encoded)
}

// ScoreAt returns the 2-D score at the given axis bins; out-of-table bins
// contribute zero.
func (term *InteractionTerm) ScoreAt(bin0, bin1 int) float64 {
	if bin0 < 0 || bin1 < 0 || bin0 >= len(term.Scores) {
		return 0
	}
	row := term.Scores[bin0]
	if bin1 >= len(row) {
		return 0
	}
	return row[bin1]
}

// InverseTransform maps a model-space value back to the original value space.
func (f *Feature) InverseTransform(v float64) float64 {
	if f.Config.Transform == TransformLog10 {
		return math.Pow(10, v)
	}
	return v
}

// ApplyTransform maps an original-space value into model space.
func (f *Feature) ApplyTransform(v float64) float64 {
	if f.Config.Transform == TransformLog10 {
		return math.Log10(v)
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func splitInteractionName(name string) (string, string, bool) {
	parts := strings.Split(name, " x ")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
