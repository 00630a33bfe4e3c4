// Package coach generates diverse counterfactual explanations for additive
// bin-based models: it enumerates candidate single-feature changes with
// their cost and benefit, assembles binary optimization problems from them,
// and drives an external MIP solver in a mute-and-resolve loop.
package coach

import (
	"fmt"

	"github.com/ezoic/gamcf/ebm"
)

// VarKind distinguishes decision-variable identifiers.
type VarKind int

const (
	// VarMain identifies a (feature, bin) main-effect selection.
	VarMain VarKind = iota
	// VarInteraction identifies a pair of main-effect selections joined
	// through an interaction term.
	VarInteraction
)

// VarID identifies one decision variable of the optimization model. Keeping
// the identifier typed (rather than a parsed string) removes a whole class
// of decode bugs; String is only used at the solver wire boundary.
type VarID struct {
	Kind     VarKind
	Feature  int // feature index (first parent for interactions)
	Bin      int // candidate bin (first parent's bin for interactions)
	Feature2 int // second parent feature index, -1 for main effects
	Bin2     int // second parent's bin, -1 for main effects
}

// MainID builds the identifier of a (feature, bin) selection.
func MainID(feature, bin int) VarID {
	return VarID{Kind: VarMain, Feature: feature, Bin: bin, Feature2: -1, Bin2: -1}
}

// InterID builds the identifier of an interaction auxiliary joining two
// main-effect selections.
func InterID(a, b VarID) VarID {
	return VarID{Kind: VarInteraction, Feature: a.Feature, Bin: a.Bin, Feature2: b.Feature, Bin2: b.Bin}
}

// String renders the wire name of the variable.
func (id VarID) String() string {
	if id.Kind == VarMain {
		return fmt.Sprintf("x_%d_%d", id.Feature, id.Bin)
	}
	return fmt.Sprintf("z_%d_%d_%d_%d", id.Feature, id.Bin, id.Feature2, id.Bin2)
}

// lessVarID orders identifiers deterministically: main effects before
// interaction auxiliaries, then by every index field.
func lessVarID(a, b VarID) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Feature != b.Feature {
		return a.Feature < b.Feature
	}
	if a.Bin != b.Bin {
		return a.Bin < b.Bin
	}
	if a.Feature2 != b.Feature2 {
		return a.Feature2 < b.Feature2
	}
	return a.Bin2 < b.Bin2
}

// MainOption is a candidate replacement of one feature's value. The Kind tag
// separates the continuous and categorical variants; both carry named fields
// instead of positional tuples.
type MainOption struct {
	// Kind is ebm.Continuous or ebm.Categorical.
	Kind ebm.FeatureType

	// Feature is the feature's sample position; Bin the candidate bin.
	Feature int
	Bin     int

	// Target is the model-space numeric target: the replacement value for
	// continuous features, the level code for categorical ones.
	Target float64

	// Level is the categorical level label; empty for continuous options.
	Level string

	// ScoreGain is the change in total additive score this option causes,
	// main-effect delta plus interaction deltas at the current sample.
	ScoreGain float64

	// Distance is the option's cost: MAD-normalized value distance for
	// continuous features, table distance for categorical ones, after any
	// rescaling and per-feature weighting.
	Distance float64

	// InterGains records, per touched interaction term, the share of
	// ScoreGain attributable to that term. Interaction-option construction
	// subtracts these shares to avoid double counting.
	InterGains map[string]float64
}

// ID returns the option's decision-variable identifier.
func (o *MainOption) ID() VarID { return MainID(o.Feature, o.Bin) }

// InterOption joins two parent main-effect options through one interaction
// term. It carries no independent distance; cost is paid only through the
// parents.
type InterOption struct {
	// Name is the interaction term name ("featA x featB").
	Name string

	// Term is the interaction's index in the model.
	Term int

	// Parents are the two joined main-effect identifiers, first parent on
	// the term's first axis.
	Parents [2]VarID

	// AxisBins are the located bins along the interaction's two axes.
	AxisBins [2]int

	// ScoreGain is the net interaction gain of selecting both parents:
	// the 2-D score delta minus the shares already attributed to each
	// parent option.
	ScoreGain float64
}

// ID returns the auxiliary variable's identifier.
func (o *InterOption) ID() VarID { return InterID(o.Parents[0], o.Parents[1]) }

// OptionSet holds every option produced for one GenerateCfs call. Options
// are created once per call and immutable afterwards.
type OptionSet struct {
	// Main maps feature index -> surviving options for that feature.
	Main map[int][]*MainOption

	// Inter holds interaction options built from surviving parents.
	Inter []*InterOption

	byID map[VarID]*MainOption
}

func newOptionSet() *OptionSet {
	return &OptionSet{
		Main: make(map[int][]*MainOption),
		byID: make(map[VarID]*MainOption),
	}
}

func (s *OptionSet) addMain(feature int, opts []*MainOption) {
	s.Main[feature] = opts
	for _, o := range opts {
		s.byID[o.ID()] = o
	}
}

// Lookup resolves a main-effect identifier back to its option.
func (s *OptionSet) Lookup(id VarID) (*MainOption, bool) {
	o, ok := s.byID[id]
	return o, ok
}
