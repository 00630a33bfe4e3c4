package ebm

import (
	"sort"
	"strconv"
)

// LabelEncoder maps categorical string levels to the numeric level codes the
// additive terms are keyed by, and back. Codes come from the model
// description's labelEncoder record; code 0 is reserved for unseen levels
// and never carries a score.
type LabelEncoder struct {
	// LabelToCode maps feature name -> level label -> numeric code.
	LabelToCode map[string]map[string]float64

	// CodeToLabel maps feature name -> numeric code -> level label.
	CodeToLabel map[string]map[float64]string
}

func newLabelEncoder(raw map[string]map[string]string) *LabelEncoder {
	enc := &LabelEncoder{
		LabelToCode: make(map[string]map[string]float64, len(raw)),
		CodeToLabel: make(map[string]map[float64]string, len(raw)),
	}
	for feature, levels := range raw {
		l2c := make(map[string]float64, len(levels))
		c2l := make(map[float64]string, len(levels))
		// Description stores code -> label with string-typed codes.
		for codeStr, label := range levels {
			code, err := strconv.ParseFloat(codeStr, 64)
			if err != nil {
				continue
			}
			l2c[label] = code
			c2l[code] = label
		}
		enc.LabelToCode[feature] = l2c
		enc.CodeToLabel[feature] = c2l
	}
	return enc
}

// Encode returns the numeric code for a level. Unseen levels return
// (0, false); code 0 scores zero by construction.
func (e *LabelEncoder) Encode(feature, label string) (float64, bool) {
	if levels, ok := e.LabelToCode[feature]; ok {
		if code, ok := levels[label]; ok {
			return code, true
		}
	}
	return 0, false
}

// Decode returns the level label for a numeric code.
func (e *LabelEncoder) Decode(feature string, code float64) (string, bool) {
	if codes, ok := e.CodeToLabel[feature]; ok {
		if label, ok := codes[code]; ok {
			return label, true
		}
	}
	return "", false
}

// Levels returns a feature's level labels sorted by their codes.
func (e *LabelEncoder) Levels(feature string) []string {
	codes, ok := e.CodeToLabel[feature]
	if !ok {
		return nil
	}
	sorted := make([]float64, 0, len(codes))
	for code := range codes {
		sorted = append(sorted, code)
	}
	sort.Float64s(sorted)
	labels := make([]string, 0, len(sorted))
	for _, code := range sorted {
		labels = append(labels, codes[code])
	}
	return labels
}
