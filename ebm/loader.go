package ebm

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	gamcfErrors "github.com/ezoic/gamcf/pkg/errors"
	"github.com/ezoic/gamcf/pkg/log"
)

// Description is the JSON model description produced by the training
// pipeline. Parallel featureNames/featureTypes sequences give the sample
// layout; the features sequence carries the additive terms.
type Description struct {
	FeatureNames []string             `json:"featureNames"`
	FeatureTypes []string             `json:"featureTypes"`
	Features     []FeatureDescription `json:"features"`
	Intercept    float64              `json:"intercept"`
	IsClassifier bool                 `json:"isClassifier"`
	ModelInfo    ModelInfo            `json:"modelInfo"`

	// LabelEncoder maps categorical feature name -> level code (as a
	// string key) -> level label.
	LabelEncoder map[string]map[string]string `json:"labelEncoder,omitempty"`

	// ContMADs maps continuous feature name -> median absolute deviation.
	ContMADs map[string]float64 `json:"contMads,omitempty"`

	// CatDistances maps categorical feature name -> level label -> distance.
	CatDistances map[string]map[string]float64 `json:"catDistances,omitempty"`
}

// FeatureDescription is one additive term in the description.
type FeatureDescription struct {
	Name string `json:"name"`
	Type string `json:"type"`

	// BinEdge holds bin boundaries for continuous features (including the
	// trailing upper edge, dropped at load) or level codes for categorical
	// features.
	BinEdge []float64 `json:"binEdge,omitempty"`

	// Additive holds one score per bin for main-effect terms.
	Additive []float64 `json:"additive,omitempty"`

	// BinEdge1/BinEdge2 and Additive2D describe interaction terms.
	BinEdge1   []float64   `json:"binEdge1,omitempty"`
	BinEdge2   []float64   `json:"binEdge2,omitempty"`
	Additive2D [][]float64 `json:"additive2D,omitempty"`

	Config FeatureConfig `json:"config"`
}

// LoadFromFile loads a model description from a JSON file.
func LoadFromFile(filePath string) (*Model, error) {
	cleanPath := filepath.Clean(filePath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, gamcfErrors.NewModelError("ebm.LoadFromFile", "failed to read model file", err)
	}
	return LoadFromJSON(data)
}

// LoadFromReader loads a model description from an io.Reader.
func LoadFromReader(reader io.Reader) (*Model, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, gamcfErrors.NewModelError("ebm.LoadFromReader", "failed to read model", err)
	}
	return LoadFromJSON(data)
}

// LoadFromJSON decodes a model description and compiles it for scoring.
func LoadFromJSON(data []byte) (*Model, error) {
	var desc Description
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, gamcfErrors.NewModelError("ebm.LoadFromJSON", "failed to parse model JSON", err)
	}
	return desc.ToModel()
}

// ToModel compiles a description into a scoring-ready Model.
func (d *Description) ToModel() (*Model, error) {
	const op = "Description.ToModel"

	if len(d.FeatureNames) == 0 {
		return nil, gamcfErrors.NewModelError(op, "no features", gamcfErrors.ErrEmptyData)
	}
	if len(d.FeatureNames) != len(d.FeatureTypes) {
		return nil, gamcfErrors.NewDimensionError(op, len(d.FeatureNames), len(d.FeatureTypes), 1)
	}

	m := &Model{
		FeatureNames: d.FeatureNames,
		Intercept:    d.Intercept,
		IsClassifier: d.IsClassifier,
		Info:         d.ModelInfo,
		CatDistances: d.CatDistances,
		encoder:      newLabelEncoder(d.LabelEncoder),
		featureIdx:   make(map[string]int, len(d.FeatureNames)),
		interByFeat:  make(map[int][]int),
		logger:       log.GetLoggerWithName("ebm"),
	}
	m.ModelType = "EBM"
	m.FeatureTypes = make([]FeatureType, len(d.FeatureTypes))
	for i, t := range d.FeatureTypes {
		m.FeatureTypes[i] = FeatureType(t)
		m.featureIdx[d.FeatureNames[i]] = i
	}

	// Main-effect terms, aligned with sample positions.
	m.Features = make([]Feature, len(d.FeatureNames))
	byName := make(map[string]*FeatureDescription, len(d.Features))
	for i := range d.Features {
		byName[d.Features[i].Name] = &d.Features[i]
	}
	for i, name := range d.FeatureNames {
		fd, ok := byName[name]
		if !ok {
			return nil, gamcfErrors.NewValueError(op, "feature description missing for "+name)
		}
		f := Feature{
			Name:   name,
			Type:   m.FeatureTypes[i],
			Index:  i,
			Scores: fd.Additive,
			Config: fd.Config,
		}
		switch f.Type {
		case Continuous:
			// The description carries n+1 edges for n bins; the trailing
			// upper edge only delimits the last bin.
			if len(fd.BinEdge) == len(fd.Additive)+1 {
				f.BinEdges = fd.BinEdge[:len(fd.BinEdge)-1]
				f.UpperBound = fd.BinEdge[len(fd.BinEdge)-1]
				f.HasUpper = true
			} else {
				f.BinEdges = fd.BinEdge
			}
			f.MAD = d.ContMADs[name]
		case Categorical:
			f.BinEdges = fd.BinEdge
		default:
			return nil, gamcfErrors.NewValueError(op, "feature "+name+" has non-main type "+string(f.Type))
		}
		if len(f.BinEdges) != len(f.Scores) {
			return nil, gamcfErrors.NewDimensionError(op, len(f.BinEdges), len(f.Scores), 1)
		}
		m.Features[i] = f
	}

	// Interaction terms.
	for i := range d.Features {
		fd := &d.Features[i]
		if FeatureType(fd.Type) != Interaction {
			continue
		}
		leftName, rightName, ok := splitInteractionName(fd.Name)
		if !ok {
			return nil, gamcfErrors.NewValueError(op, "malformed interaction name "+fd.Name)
		}
		left, okL := m.featureIdx[leftName]
		right, okR := m.featureIdx[rightName]
		if !okL || !okR {
			return nil, gamcfErrors.NewValueError(op, "interaction "+fd.Name+" references unknown feature")
		}
		term := InteractionTerm{
			Name:    fd.Name,
			Parents: [2]int{left, right},
			BinEdges: [2][]float64{
				trimInteractionAxis(&m.Features[left], fd.BinEdge1, len(fd.Additive2D)),
				trimInteractionAxis(&m.Features[right], fd.BinEdge2, rowLen(fd.Additive2D)),
			},
			Scores: fd.Additive2D,
		}
		idx := len(m.Interactions)
		m.Interactions = append(m.Interactions, term)
		m.interByFeat[left] = append(m.interByFeat[left], idx)
		m.interByFeat[right] = append(m.interByFeat[right], idx)
	}

	m.SetLogger(m.logger)
	m.SetFitted()
	m.LogDebug("model loaded",
		log.ModelNameKey, m.ModelType,
		log.FeaturesKey, len(m.Features),
		"interactions", len(m.Interactions))
	return m, nil
}

// trimInteractionAxis drops a continuous axis's trailing upper edge so the
// axis parallels its score dimension, mirroring the main-effect convention.
func trimInteractionAxis(parent *Feature, edges []float64, scoreDim int) []float64 {
	if parent.Type == Continuous && len(edges) == scoreDim+1 {
		return edges[:len(edges)-1]
	}
	return edges
}

func rowLen(grid [][]float64) int {
	if len(grid) == 0 {
		return 0
	}
	return len(grid[0])
}
