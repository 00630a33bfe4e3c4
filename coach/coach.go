package coach

import (
	"context"
	"math"
	"sort"

	"github.com/ezoic/gamcf/core/model"
	"github.com/ezoic/gamcf/ebm"
	gamcfErrors "github.com/ezoic/gamcf/pkg/errors"
	"github.com/ezoic/gamcf/pkg/log"
	"github.com/ezoic/gamcf/solver"
)

// DefaultSimThresholdFactor scales the mean continuous additive-score range
// into the default redundancy-pruning similarity threshold.
const DefaultSimThresholdFactor = 0.005

// difficultyWeights maps a feature's configured difficulty to a distance
// multiplier. "locked" features are never varied.
var difficultyWeights = map[string]float64{
	"very-easy": 0.25,
	"easy":      0.5,
	"neutral":   1,
	"hard":      2,
	"very-hard": 4,
}

const difficultyLocked = "locked"

// Coach generates diverse counterfactual proposals for one model by
// repeatedly building optimization problems and delegating each solve to the
// external solver.
type Coach struct {
	model.BaseEstimator

	model  *ebm.Model
	solver solver.Solver
	logger log.Logger
}

// NewCoach creates a Coach over a loaded model.
func NewCoach(m *ebm.Model, s solver.Solver) (*Coach, error) {
	if m == nil || !m.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Coach", "NewCoach")
	}
	if s == nil {
		return nil, gamcfErrors.NewValueError("coach.NewCoach", "solver is required")
	}
	c := &Coach{
		model:  m,
		solver: s,
		logger: log.GetLoggerWithName("coach").With(log.ModelNameKey, m.ModelType),
	}
	c.ModelType = "GAMCoach"
	c.SetLogger(c.logger)
	c.SetFitted()
	return c, nil
}

// FeatureRange restricts a feature's counterfactual targets: a [lo, hi]
// value range for continuous features, an allowed level subset for
// categorical ones. Overrides the model file's acceptable range.
type FeatureRange struct {
	Range  []float64 `json:"range,omitempty"`
	Levels []string  `json:"levels,omitempty"`
}

// Config drives one GenerateCfs call.
type Config struct {
	// Sample is the scored sample to explain, in model feature order.
	Sample ebm.Sample

	// TotalCfs is the number of diverse proposals requested (min 1).
	TotalCfs int

	// TargetRange is the desired score range for regression models,
	// [lo, hi] with infinities allowed. Ignored for classifiers, which
	// always flip the predicted class.
	TargetRange []float64

	// FeaturesToVary names the features allowed to change. Empty means
	// every non-locked feature.
	FeaturesToVary []string

	// MaxFeaturesToVary caps how many features one proposal may change.
	// Zero means unbounded.
	MaxFeaturesToVary int

	// SimThreshold overrides the redundancy-pruning similarity threshold;
	// zero derives it from the model's score ranges.
	SimThreshold float64

	// SimThresholdFactor scales the derived threshold; zero uses
	// DefaultSimThresholdFactor.
	SimThresholdFactor float64

	// CategoricalWeight overrides the automatic categorical-distance
	// rescaling ratio; zero keeps the automatic behavior.
	CategoricalWeight float64

	// FeatureRanges restricts counterfactual targets per feature.
	FeatureRanges map[string]FeatureRange

	// FeatureWeights multiplies per-feature distances, biasing the search
	// away from features the user finds hard to change.
	FeatureWeights map[string]float64

	// IntegerFeatures names continuous features whose targets must take
	// integer values, in addition to any flagged in the model file.
	IntegerFeatures []string

	// KeepAllOptions disables the directional gain filter.
	KeepAllOptions bool
}

// TargetRangeInfo describes one changed feature in a proposal: the covering
// bin range in original value space for continuous features, or the chosen
// level for categorical ones.
type TargetRangeInfo struct {
	Feature string    `json:"feature"`
	Range   []float64 `json:"range,omitempty"`
	Level   string    `json:"level,omitempty"`
}

// Result is one batch of counterfactual proposals. Data, Distances,
// TargetRanges, ScoreGains and ActiveVariables are parallel per proposal;
// TargetRanges and ScoreGains are parallel per changed feature within a
// proposal.
type Result struct {
	Data            []ebm.Sample
	Distances       []float64
	TargetRanges    [][]TargetRangeInfo
	ScoreGains      [][]float64
	ActiveVariables [][]VarID

	// IsSuccessful is false when the solver failed before producing every
	// requested proposal; the proposals already in Data remain valid.
	IsSuccessful bool

	// State resumes the diverse search without regenerating options.
	State *SearchState
}

// SearchState is the self-contained, resumable state of a diverse search.
// Each step consumes the prior exclusion set and produces a grown copy; a
// state is never mutated after it is returned.
type SearchState struct {
	Sample      ebm.Sample
	Direction   int
	Needed      float64
	Bound       float64
	HasBound    bool
	MaxFeatures int
	Options     *OptionSet
	Muted       map[VarID]bool
}

// GenerateCfs computes a batch of diverse counterfactual proposals for one
// sample. Any solver failure marks the batch unsuccessful and stops it; the
// caller is expected to relax constraints and call again.
func (c *Coach) GenerateCfs(ctx context.Context, cfg Config) (_ *Result, err error) {
	defer gamcfErrors.Recover(&err, "Coach.GenerateCfs")
	const op = "Coach.GenerateCfs"

	if !c.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Coach", "GenerateCfs")
	}
	totalCfs := cfg.TotalCfs
	if totalCfs < 1 {
		totalCfs = 1
	}

	lm, err := c.model.NewLocalModel(cfg.Sample)
	if err != nil {
		return nil, err
	}
	curScore := lm.RawScore()

	direction, needed, bound, hasBound, err := c.searchTarget(lm, curScore, cfg.TargetRange)
	if err != nil {
		return nil, err
	}

	simThreshold := cfg.SimThreshold
	if simThreshold <= 0 {
		factor := cfg.SimThresholdFactor
		if factor <= 0 {
			factor = DefaultSimThresholdFactor
		}
		simThreshold = defaultSimilarityThreshold(c.model, factor)
	}

	featureIdxs, err := c.resolveFeaturesToVary(cfg.FeaturesToVary)
	if err != nil {
		return nil, err
	}

	params := genParams{
		direction:    direction,
		hasBound:     hasBound,
		bound:        bound,
		simThreshold: simThreshold,
		keepAll:      cfg.KeepAllOptions,
	}
	set := c.generateOptions(lm, featureIdxs, cfg, params)
	rescaleCategoricalDistances(set, cfg.CategoricalWeight)
	c.applyFeatureWeights(set, cfg.FeatureWeights)
	set.Inter = interactionOptions(lm, set)

	optionCount := 0
	for _, opts := range set.Main {
		optionCount += len(opts)
	}
	c.logger.Debug("options generated",
		log.OperationKey, log.OperationGenerate,
		log.PhaseKey, log.PhaseSearch,
		log.FeaturesKey, len(featureIdxs),
		log.OptionsKey, optionCount,
		"interaction_options", len(set.Inter))

	state := &SearchState{
		Sample:      cfg.Sample.Clone(),
		Direction:   direction,
		Needed:      needed,
		Bound:       bound,
		HasBound:    hasBound,
		MaxFeatures: cfg.MaxFeaturesToVary,
		Options:     set,
		Muted:       map[VarID]bool{},
	}

	result := &Result{IsSuccessful: true}
	for i := 0; i < totalCfs; i++ {
		step, err := c.solveStep(ctx, state)
		if err != nil {
			return nil, err
		}
		if step == nil {
			result.IsSuccessful = false
			c.logger.Warn("solver returned non-optimal status, remaining proposals marked failed",
				log.OperationKey, log.OperationGenerate,
				log.SolutionsKey, totalCfs-i)
			break
		}
		c.appendProposal(result, state, step)
		state = step.state
	}
	result.State = state
	return result, nil
}

// GenerateSubCf continues a diverse search from previously returned state,
// producing at most one additional proposal. The input state is not
// modified; the result carries the grown state.
func (c *Coach) GenerateSubCf(ctx context.Context, state *SearchState) (_ *Result, err error) {
	defer gamcfErrors.Recover(&err, "Coach.GenerateSubCf")

	if !c.IsFitted() {
		return nil, gamcfErrors.NewNotFittedError("Coach", "GenerateSubCf")
	}
	if state == nil || state.Options == nil {
		return nil, gamcfErrors.NewValueError("Coach.GenerateSubCf", "missing resume state")
	}

	step, err := c.solveStep(ctx, state)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return &Result{IsSuccessful: false, State: state}, nil
	}
	result := &Result{IsSuccessful: true}
	c.appendProposal(result, state, step)
	result.State = step.state
	return result, nil
}

// searchTarget determines the search direction, required score gain, and the
// opposite-bound cap. Classifiers flip the predicted class by crossing zero
// log-odds; regressors move toward the nearer bound of the target range.
func (c *Coach) searchTarget(lm *ebm.LocalModel, curScore float64, targetRange []float64) (direction int, needed, bound float64, hasBound bool, err error) {
	const op = "Coach.GenerateCfs"

	if c.model.IsClassifier {
		needed = -curScore
		if lm.PredictedClass() == 1 {
			return -1, needed, 0, false, nil
		}
		return 1, needed, 0, false, nil
	}

	if len(targetRange) != 2 {
		return 0, 0, 0, false, gamcfErrors.NewModelError(op,
			"regression requires a target range", gamcfErrors.ErrInvalidTargetRange)
	}
	lo, hi := targetRange[0], targetRange[1]
	if lo > hi {
		return 0, 0, 0, false, gamcfErrors.NewModelError(op,
			"target range lower bound exceeds upper bound", gamcfErrors.ErrInvalidTargetRange)
	}
	if curScore >= lo && curScore <= hi {
		return 0, 0, 0, false, gamcfErrors.NewModelError(op,
			"current score already lies inside the target range", gamcfErrors.ErrInvalidTargetRange)
	}
	if curScore < lo {
		return 1, lo - curScore, hi - curScore, !math.IsInf(hi, 1), nil
	}
	return -1, hi - curScore, lo - curScore, !math.IsInf(lo, -1), nil
}

// resolveFeaturesToVary maps requested names to sample positions, skipping
// locked features. Empty input means every non-locked main feature.
func (c *Coach) resolveFeaturesToVary(names []string) ([]int, error) {
	const op = "Coach.GenerateCfs"
	var idxs []int
	if len(names) == 0 {
		for i := range c.model.Features {
			if c.model.Features[i].Config.Difficulty != difficultyLocked {
				idxs = append(idxs, i)
			}
		}
		return idxs, nil
	}
	for _, name := range names {
		idx, ok := c.model.FeatureIndex(name)
		if !ok {
			return nil, gamcfErrors.NewValueError(op, "unknown feature "+name)
		}
		if c.model.Features[idx].Config.Difficulty == difficultyLocked {
			c.logger.Warn("requested feature is locked, skipping", "feature", name)
			continue
		}
		idxs = append(idxs, idx)
	}
	return idxs, nil
}

// generateOptions enumerates and filters options for every varying feature.
func (c *Coach) generateOptions(lm *ebm.LocalModel, featureIdxs []int, cfg Config, params genParams) *OptionSet {
	integerWanted := make(map[string]bool, len(cfg.IntegerFeatures))
	for _, name := range cfg.IntegerFeatures {
		integerWanted[name] = true
	}

	set := newOptionSet()
	for _, idx := range featureIdxs {
		f := &c.model.Features[idx]
		var opts []*MainOption
		switch f.Type {
		case ebm.Continuous:
			requiresInt := f.Config.RequiresInt || integerWanted[f.Name]
			opts = continuousOptions(lm, idx, requiresInt, params)
			opts = c.filterContinuousRange(lm, f, opts, cfg.FeatureRanges[f.Name])
		case ebm.Categorical:
			opts = categoricalOptions(lm, idx, params)
			opts = c.filterCategoricalLevels(f, opts, cfg.FeatureRanges[f.Name])
		}
		if len(opts) > 0 {
			set.addMain(idx, opts)
		}
	}
	return set
}

// filterContinuousRange drops options whose original-space target falls
// outside the allowed range: the model file's acceptable range clipped by
// increase/decrease-only flags, unless the caller supplied an override.
func (c *Coach) filterContinuousRange(lm *ebm.LocalModel, f *ebm.Feature, opts []*MainOption, override FeatureRange) []*MainOption {
	lo, hi := math.Inf(-1), math.Inf(1)
	if len(override.Range) == 2 {
		lo, hi = override.Range[0], override.Range[1]
	} else if len(f.Config.AcceptableRange) == 2 {
		lo, hi = f.Config.AcceptableRange[0], f.Config.AcceptableRange[1]
	}
	cur := f.InverseTransform(lm.Encoded(f.Index))
	if f.Config.IncreaseOnly && cur > lo {
		lo = cur
	}
	if f.Config.DecreaseOnly && cur < hi {
		hi = cur
	}
	if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
		return opts
	}
	kept := opts[:0]
	for _, o := range opts {
		target := f.InverseTransform(o.Target)
		if target >= lo && target <= hi {
			kept = append(kept, o)
		}
	}
	return kept
}

// filterCategoricalLevels drops options outside the allowed level subset.
func (c *Coach) filterCategoricalLevels(f *ebm.Feature, opts []*MainOption, override FeatureRange) []*MainOption {
	levels := override.Levels
	if len(levels) == 0 {
		levels = f.Config.AcceptableLevels
	}
	if len(levels) == 0 {
		return opts
	}
	allowed := make(map[string]bool, len(levels))
	for _, l := range levels {
		allowed[l] = true
	}
	kept := opts[:0]
	for _, o := range opts {
		if allowed[o.Level] {
			kept = append(kept, o)
		}
	}
	return kept
}

// applyFeatureWeights multiplies option distances by the feature's
// difficulty multiplier and any caller-supplied weight.
func (c *Coach) applyFeatureWeights(set *OptionSet, weights map[string]float64) {
	for idx, opts := range set.Main {
		f := &c.model.Features[idx]
		w := 1.0
		if dw, ok := difficultyWeights[f.Config.Difficulty]; ok {
			w = dw
		}
		if uw, ok := weights[f.Name]; ok && uw > 0 {
			w *= uw
		}
		if w == 1 {
			continue
		}
		for _, o := range opts {
			o.Distance *= w
		}
	}
}

// stepResult is one successful solve: the chosen identifiers, the weighted
// total distance, and the grown search state.
type stepResult struct {
	ids       []VarID
	objective float64
	state     *SearchState
}

// solveStep builds the problem excluding muted identifiers, runs one solve,
// and interprets the outcome. A nil stepResult (with nil error) means the
// solver reported a non-optimal status.
func (c *Coach) solveStep(ctx context.Context, state *SearchState) (*stepResult, error) {
	built := BuildProblem(BuildInput{
		Direction:   state.Direction,
		Needed:      state.Needed,
		Options:     state.Options,
		MaxFeatures: state.MaxFeatures,
		Muted:       state.Muted,
	})
	sol, err := c.solver.Solve(ctx, built.Problem)
	if err != nil {
		return nil, err
	}
	if !sol.IsOptimal() {
		return nil, nil
	}

	ids := make([]VarID, 0, 4)
	for name, value := range sol.Assignment {
		if value <= 0.5 {
			continue
		}
		if id, ok := built.Vars[name]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return lessVarID(ids[i], ids[j])
	})

	muted := make(map[VarID]bool, len(state.Muted)+len(ids))
	for id := range state.Muted {
		muted[id] = true
	}
	for _, id := range ids {
		muted[id] = true
	}
	next := *state
	next.Muted = muted
	return &stepResult{ids: ids, objective: sol.ObjectiveValue, state: &next}, nil
}

// appendProposal decodes a solve step into a full modified sample. Only
// main-effect selections change values; interaction selections are a derived
// consequence of their parents.
func (c *Coach) appendProposal(result *Result, state *SearchState, step *stepResult) {
	cf := state.Sample.Clone()
	var ranges []TargetRangeInfo
	var gains []float64

	for _, id := range step.ids {
		if id.Kind != VarMain {
			continue
		}
		opt, ok := state.Options.Lookup(id)
		if !ok {
			continue
		}
		f := &c.model.Features[id.Feature]
		switch opt.Kind {
		case ebm.Categorical:
			cf[id.Feature] = opt.Level
			ranges = append(ranges, TargetRangeInfo{Feature: f.Name, Level: opt.Level})
		default:
			cf[id.Feature] = f.InverseTransform(opt.Target)
			lo := f.InverseTransform(f.BinEdges[id.Bin])
			hi := math.Inf(1)
			if id.Bin+1 < len(f.BinEdges) {
				hi = f.InverseTransform(f.BinEdges[id.Bin+1])
			} else if f.HasUpper {
				hi = f.InverseTransform(f.UpperBound)
			}
			ranges = append(ranges, TargetRangeInfo{Feature: f.Name, Range: []float64{lo, hi}})
		}
		gains = append(gains, opt.ScoreGain)
	}

	result.Data = append(result.Data, cf)
	result.Distances = append(result.Distances, step.objective)
	result.TargetRanges = append(result.TargetRanges, ranges)
	result.ScoreGains = append(result.ScoreGains, gains)
	result.ActiveVariables = append(result.ActiveVariables, step.ids)
}
