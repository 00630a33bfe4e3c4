package coach

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/gamcf/ebm"
)

// targetEpsilon keeps a left-bin target strictly inside its bin.
const targetEpsilon = 1e-4

// genParams carries the filters applied during option enumeration.
type genParams struct {
	direction    int     // +1 increase score, -1 decrease
	hasBound     bool    // whether bound is active
	bound        float64 // score-gain cap toward the opposite target bound
	simThreshold float64 // redundancy-pruning gain similarity
	keepAll      bool    // disable the directional filter
}

// keepGain applies the directional and bound filters to a candidate gain.
func (p genParams) keepGain(gain float64) bool {
	if !p.keepAll && gain*float64(p.direction) <= 0 {
		return false
	}
	if p.hasBound {
		if p.direction > 0 && gain > p.bound {
			return false
		}
		if p.direction < 0 && gain < p.bound {
			return false
		}
	}
	return true
}

// continuousOptions enumerates candidate value changes for one continuous
// feature: one option per bin other than the sample's current bin, targeting
// a value just inside the candidate bin (or the nearest valid integer for
// integer-required features), costed by MAD-normalized distance.
func continuousOptions(lm *ebm.LocalModel, featureIdx int, requiresInt bool, p genParams) []*MainOption {
	m := lm.Model()
	f := &m.Features[featureIdx]
	cur := lm.Encoded(featureIdx)
	curBin := ebm.ContBin(f.BinEdges, cur)
	curMain := lm.Score(f.Name)

	opts := make([]*MainOption, 0, len(f.BinEdges))
	for bin := range f.BinEdges {
		if bin == curBin {
			continue
		}
		target, ok := continuousTarget(f, bin, curBin, requiresInt)
		if !ok {
			continue
		}
		interTotal, interGains := interactionDeltas(lm, featureIdx, target)
		gain := f.Scores[bin] - curMain + interTotal
		if !p.keepGain(gain) {
			continue
		}
		distance := math.Abs(target - cur)
		if f.MAD > 0 {
			distance /= f.MAD
		}
		opts = append(opts, &MainOption{
			Kind:       ebm.Continuous,
			Feature:    featureIdx,
			Bin:        bin,
			Target:     target,
			ScoreGain:  gain,
			Distance:   distance,
			InterGains: interGains,
		})
	}
	return pruneRedundant(opts, p.simThreshold)
}

// continuousTarget picks the model-space target value representing a bin.
// Bins left of the current one are entered from their upper side, clamped to
// the bin's own lower edge so the target never escapes a bin narrower than
// the epsilon; bins to the right are entered from their lower edge.
// Integer-required features snap to the nearest integer inside the bin, in
// original value space; the bin is skipped when it contains no integer.
func continuousTarget(f *ebm.Feature, bin, curBin int, requiresInt bool) (float64, bool) {
	if bin < curBin {
		upper := f.BinEdges[bin+1]
		if !requiresInt {
			target := upper - targetEpsilon
			if target < f.BinEdges[bin] {
				target = f.BinEdges[bin]
			}
			return target, true
		}
		t := largestIntBelow(f.InverseTransform(upper))
		if t < f.InverseTransform(f.BinEdges[bin]) {
			return 0, false
		}
		return f.ApplyTransform(t), true
	}

	lower := f.BinEdges[bin]
	if !requiresInt {
		return lower, true
	}
	t := math.Ceil(f.InverseTransform(lower))
	if bin+1 < len(f.BinEdges) && t >= f.InverseTransform(f.BinEdges[bin+1]) {
		return 0, false
	}
	return f.ApplyTransform(t), true
}

// largestIntBelow returns the largest integer strictly less than x.
func largestIntBelow(x float64) float64 {
	v := math.Floor(x)
	if v == x {
		return x - 1
	}
	return v
}

// categoricalOptions enumerates candidate level changes for one categorical
// feature. Distances come from the model's categorical distance table
// (default 1 when absent); no redundancy pruning is applied.
func categoricalOptions(lm *ebm.LocalModel, featureIdx int, p genParams) []*MainOption {
	m := lm.Model()
	f := &m.Features[featureIdx]
	cur := lm.Encoded(featureIdx)
	curBin := ebm.CatBin(f.BinEdges, cur)
	curMain := lm.Score(f.Name)
	distances := m.CatDistances[f.Name]

	opts := make([]*MainOption, 0, len(f.BinEdges))
	for bin, code := range f.BinEdges {
		if bin == curBin {
			continue
		}
		level, _ := m.Encoder().Decode(f.Name, code)
		interTotal, interGains := interactionDeltas(lm, featureIdx, code)
		gain := f.Scores[bin] - curMain + interTotal
		if !p.keepGain(gain) {
			continue
		}
		distance := 1.0
		if d, ok := distances[level]; ok {
			distance = d
		}
		opts = append(opts, &MainOption{
			Kind:       ebm.Categorical,
			Feature:    featureIdx,
			Bin:        bin,
			Target:     code,
			Level:      level,
			ScoreGain:  gain,
			Distance:   distance,
			InterGains: interGains,
		})
	}
	return opts
}

// interactionDeltas computes, for a hypothetical new encoded value of one
// feature, the score delta of every interaction term touching it (the other
// feature held at its current bin), returning the sum and the per-term
// breakdown.
func interactionDeltas(lm *ebm.LocalModel, featureIdx int, target float64) (float64, map[string]float64) {
	m := lm.Model()
	touching := m.InteractionsTouching(featureIdx)
	if len(touching) == 0 {
		return 0, nil
	}
	total := 0.0
	gains := make(map[string]float64, len(touching))
	for _, ti := range touching {
		term := &m.Interactions[ti]
		axis := 0
		if term.Parents[1] == featureIdx {
			axis = 1
		}
		other := 1 - axis
		otherBin := m.LocateInteractionBin(term, other, lm.Encoded(term.Parents[other]))
		curBin := m.LocateInteractionBin(term, axis, lm.Encoded(featureIdx))
		newBin := m.LocateInteractionBin(term, axis, target)

		var curScore, newScore float64
		if axis == 0 {
			curScore = term.ScoreAt(curBin, otherBin)
			newScore = term.ScoreAt(newBin, otherBin)
		} else {
			curScore = term.ScoreAt(otherBin, curBin)
			newScore = term.ScoreAt(otherBin, newBin)
		}
		delta := newScore - curScore
		gains[term.Name] = delta
		total += delta
	}
	return total, gains
}

// pruneRedundant drops costlier options whose score gain is within the
// similarity threshold of a cheaper option already kept. The scan mutates
// the slice in index order while iterating; the surviving set is therefore
// order-dependent, matching the observed behavior of the search.
func pruneRedundant(opts []*MainOption, threshold float64) []*MainOption {
	if threshold <= 0 || len(opts) < 2 {
		return opts
	}
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].Distance < opts[j].Distance
	})
	for i := 0; i < len(opts); i++ {
		for j := i + 1; j < len(opts); j++ {
			if math.Abs(opts[j].ScoreGain-opts[i].ScoreGain) <= threshold {
				opts = append(opts[:j], opts[j+1:]...)
				j--
			}
		}
	}
	return opts
}

// interactionOptions builds interaction options from the cross-product of
// each term's surviving parent options. The net gain subtracts both parents'
// already-attributed share of the term so selecting the pair never double
// counts; a parent with no recorded share for the term contributes a zero
// offset.
func interactionOptions(lm *ebm.LocalModel, set *OptionSet) []*InterOption {
	m := lm.Model()
	var out []*InterOption
	for ti := range m.Interactions {
		term := &m.Interactions[ti]
		left := set.Main[term.Parents[0]]
		right := set.Main[term.Parents[1]]
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		curScore := lm.Score(term.Name)
		for _, o1 := range left {
			bin0 := m.LocateInteractionBin(term, 0, o1.Target)
			for _, o2 := range right {
				bin1 := m.LocateInteractionBin(term, 1, o2.Target)
				raw := term.ScoreAt(bin0, bin1) - curScore
				net := raw - o1.InterGains[term.Name] - o2.InterGains[term.Name]
				out = append(out, &InterOption{
					Name:      term.Name,
					Term:      ti,
					Parents:   [2]VarID{o1.ID(), o2.ID()},
					AxisBins:  [2]int{bin0, bin1},
					ScoreGain: net,
				})
			}
		}
	}
	return out
}

// rescaleCategoricalDistances puts categorical and continuous options on
// comparable footing by scaling categorical distances with the ratio of the
// mean continuous distance to the mean categorical distance. An explicit
// weight overrides the automatic ratio.
func rescaleCategoricalDistances(set *OptionSet, explicitWeight float64) {
	var catOpts []*MainOption
	var contDists, catDists []float64
	for _, opts := range set.Main {
		for _, o := range opts {
			if o.Kind == ebm.Categorical {
				catOpts = append(catOpts, o)
				catDists = append(catDists, o.Distance)
			} else {
				contDists = append(contDists, o.Distance)
			}
		}
	}
	if len(catOpts) == 0 {
		return
	}

	weight := explicitWeight
	if weight <= 0 {
		if len(contDists) == 0 {
			return
		}
		meanCat := stat.Mean(catDists, nil)
		if meanCat == 0 {
			return
		}
		weight = stat.Mean(contDists, nil) / meanCat
	}
	for _, o := range catOpts {
		o.Distance *= weight
	}
}

// defaultSimilarityThreshold derives the redundancy-pruning threshold from
// the average additive-score range across continuous features.
func defaultSimilarityThreshold(model *ebm.Model, factor float64) float64 {
	var ranges []float64
	for i := range model.Features {
		f := &model.Features[i]
		if f.Type != ebm.Continuous || len(f.Scores) == 0 {
			continue
		}
		lo, hi := f.Scores[0], f.Scores[0]
		for _, s := range f.Scores[1:] {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
		ranges = append(ranges, hi-lo)
	}
	if len(ranges) == 0 {
		return 0
	}
	return stat.Mean(ranges, nil) * factor
}
