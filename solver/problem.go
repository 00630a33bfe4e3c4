// Package solver defines the optimization problem contract and the client
// for the external mixed-integer solver service. Only problem construction
// and result interpretation live in this repository; the solving algorithm
// itself is the service's concern.
package solver

// Objective directions.
const (
	Minimize = "min"
	Maximize = "max"
)

// Bound kinds for constraints and variable bounds.
const (
	BoundUpper  = "upper"  // expr <= UB
	BoundLower  = "lower"  // expr >= LB
	BoundDouble = "double" // LB <= expr <= UB
)

// Term is one linear coefficient on a named variable.
type Term struct {
	Name string  `json:"name"`
	Coef float64 `json:"coef"`
}

// Bounds describes the admissible range of a constraint expression.
type Bounds struct {
	Kind string  `json:"kind"`
	LB   float64 `json:"lb,omitempty"`
	UB   float64 `json:"ub,omitempty"`
}

// Constraint is one linear inequality over named variables.
type Constraint struct {
	Vars   []Term `json:"vars"`
	Bounds Bounds `json:"bounds"`
}

// VarBounds bounds a single continuous variable.
type VarBounds struct {
	Name string  `json:"name"`
	LB   float64 `json:"lb"`
	UB   float64 `json:"ub"`
}

// Objective is the linear objective function.
type Objective struct {
	Direction string `json:"direction"`
	Vars      []Term `json:"vars"`
}

// Problem is a self-contained binary/mixed-integer program. It is immutable
// once submitted; independent problems may be solved concurrently.
type Problem struct {
	Objective Objective    `json:"objective"`
	SubjectTo []Constraint `json:"subjectTo"`
	Binaries  []string     `json:"binaries"`
	Bounds    []VarBounds  `json:"bounds,omitempty"`
}

// Status is the solver's verdict on a problem.
type Status string

const (
	// StatusOptimal means an optimal assignment was found.
	StatusOptimal Status = "optimal"
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible Status = "infeasible"
	// StatusUnbounded means the objective is unbounded.
	StatusUnbounded Status = "unbounded"
	// StatusUndefined covers every other non-optimal outcome.
	StatusUndefined Status = "undefined"
)

// Solution is the solver's answer to a Problem.
type Solution struct {
	Status         Status             `json:"status"`
	Assignment     map[string]float64 `json:"variableAssignment"`
	ObjectiveValue float64            `json:"objectiveValue"`
}

// IsOptimal reports whether the solve produced an optimal assignment.
// Everything else is treated as a failed solve.
func (s *Solution) IsOptimal() bool {
	return s.Status == StatusOptimal
}

// Value returns a variable's assigned value, zero when absent.
func (s *Solution) Value(name string) float64 {
	return s.Assignment[name]
}
