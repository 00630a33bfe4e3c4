package coach

import (
	"sort"

	"github.com/ezoic/gamcf/solver"
)

// BuildInput is everything the model builder needs for one solve: the
// direction and required score-gain threshold, the option set, an optional
// cap on simultaneously changed features, and the identifiers excluded by
// earlier solutions ("muted").
type BuildInput struct {
	Direction   int
	Needed      float64
	Options     *OptionSet
	MaxFeatures int // 0 means unbounded
	Muted       map[VarID]bool
}

// BuiltModel pairs the assembled problem with the mapping from wire variable
// names back to typed identifiers, used to decode solver output.
type BuiltModel struct {
	Problem *solver.Problem
	Vars    map[string]VarID
}

// BuildProblem assembles the binary optimization model:
//
//   - one binary variable per non-muted (feature, bin) option,
//   - an at-most-one selection constraint per feature,
//   - an optional global changed-feature cap,
//   - a [0,1] auxiliary z per usable interaction option with the AND
//     linearization z <= x1, z <= x2, x1 + x2 - z <= 1 (z only appears with
//     a nonnegative coefficient on the benefit side of the gain inequality
//     and never in the objective, so the solver has no incentive to set it
//     below the true logical AND),
//   - a single direction-dependent inequality bounding the total gain, and
//   - a distance-minimizing objective over the main-effect variables.
func BuildProblem(in BuildInput) *BuiltModel {
	p := &solver.Problem{
		Objective: solver.Objective{Direction: solver.Minimize},
	}
	vars := make(map[string]VarID)

	// Deterministic feature order keeps problems reproducible.
	features := make([]int, 0, len(in.Options.Main))
	for f := range in.Options.Main {
		features = append(features, f)
	}
	sort.Ints(features)

	gainTerms := make([]solver.Term, 0)
	capTerms := make([]solver.Term, 0)
	active := make(map[VarID]bool)

	for _, f := range features {
		selectOne := make([]solver.Term, 0, len(in.Options.Main[f]))
		for _, opt := range in.Options.Main[f] {
			id := opt.ID()
			if in.Muted[id] {
				continue
			}
			name := id.String()
			vars[name] = id
			active[id] = true
			p.Binaries = append(p.Binaries, name)
			p.Objective.Vars = append(p.Objective.Vars, solver.Term{Name: name, Coef: opt.Distance})
			gainTerms = append(gainTerms, solver.Term{Name: name, Coef: opt.ScoreGain})
			selectOne = append(selectOne, solver.Term{Name: name, Coef: 1})
			capTerms = append(capTerms, solver.Term{Name: name, Coef: 1})
		}
		if len(selectOne) > 0 {
			p.SubjectTo = append(p.SubjectTo, solver.Constraint{
				Vars:   selectOne,
				Bounds: solver.Bounds{Kind: solver.BoundUpper, UB: 1},
			})
		}
	}

	if in.MaxFeatures > 0 && len(capTerms) > 0 {
		p.SubjectTo = append(p.SubjectTo, solver.Constraint{
			Vars:   capTerms,
			Bounds: solver.Bounds{Kind: solver.BoundUpper, UB: float64(in.MaxFeatures)},
		})
	}

	for _, io := range in.Options.Inter {
		id := io.ID()
		if in.Muted[id] || !active[io.Parents[0]] || !active[io.Parents[1]] {
			continue
		}
		zName := id.String()
		x1 := io.Parents[0].String()
		x2 := io.Parents[1].String()
		vars[zName] = id
		p.Bounds = append(p.Bounds, solver.VarBounds{Name: zName, LB: 0, UB: 1})
		p.SubjectTo = append(p.SubjectTo,
			solver.Constraint{
				Vars:   []solver.Term{{Name: zName, Coef: 1}, {Name: x1, Coef: -1}},
				Bounds: solver.Bounds{Kind: solver.BoundUpper, UB: 0},
			},
			solver.Constraint{
				Vars:   []solver.Term{{Name: zName, Coef: 1}, {Name: x2, Coef: -1}},
				Bounds: solver.Bounds{Kind: solver.BoundUpper, UB: 0},
			},
			solver.Constraint{
				Vars:   []solver.Term{{Name: x1, Coef: 1}, {Name: x2, Coef: 1}, {Name: zName, Coef: -1}},
				Bounds: solver.Bounds{Kind: solver.BoundUpper, UB: 1},
			},
		)
		gainTerms = append(gainTerms, solver.Term{Name: zName, Coef: io.ScoreGain})
	}

	gainBounds := solver.Bounds{Kind: solver.BoundLower, LB: in.Needed}
	if in.Direction < 0 {
		gainBounds = solver.Bounds{Kind: solver.BoundUpper, UB: in.Needed}
	}
	p.SubjectTo = append(p.SubjectTo, solver.Constraint{Vars: gainTerms, Bounds: gainBounds})

	return &BuiltModel{Problem: p, Vars: vars}
}
