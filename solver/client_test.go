package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProblem() *Problem {
	return &Problem{
		Objective: Objective{
			Direction: Minimize,
			Vars:      []Term{{Name: "x_0_1", Coef: 2}, {Name: "x_1_2", Coef: 0.5}},
		},
		SubjectTo: []Constraint{
			{
				Vars:   []Term{{Name: "x_0_1", Coef: 2.5}, {Name: "x_1_2", Coef: 1}},
				Bounds: Bounds{Kind: BoundLower, LB: 3},
			},
		},
		Binaries: []string{"x_0_1", "x_1_2"},
	}
}

func TestHTTPSolver_Solve(t *testing.T) {
	var gotPath, gotContentType string
	var gotProblem Problem

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotProblem))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":             "optimal",
			"variableAssignment": map[string]float64{"x_0_1": 1, "x_1_2": 1},
			"objectiveValue":     2.5,
		})
	}))
	defer srv.Close()

	s := NewHTTPSolver(HTTPConfig{BaseURL: srv.URL}, nil)
	sol, err := s.Solve(context.Background(), testProblem())
	require.NoError(t, err)

	assert.Equal(t, "/v1/solve", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, []string{"x_0_1", "x_1_2"}, gotProblem.Binaries)
	require.Len(t, gotProblem.SubjectTo, 1)
	assert.Equal(t, BoundLower, gotProblem.SubjectTo[0].Bounds.Kind)

	assert.True(t, sol.IsOptimal())
	assert.Equal(t, 1.0, sol.Value("x_0_1"))
	assert.Equal(t, 0.0, sol.Value("unknown"))
	assert.InDelta(t, 2.5, sol.ObjectiveValue, 1e-12)
}

func TestHTTPSolver_SolvePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom/solve", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Solution{Status: StatusOptimal})
	}))
	defer srv.Close()

	s := NewHTTPSolver(HTTPConfig{BaseURL: srv.URL, SolvePath: "/custom/solve"}, nil)
	_, err := s.Solve(context.Background(), testProblem())
	require.NoError(t, err)
}

// A well-formed non-optimal verdict is a valid answer, not an error.
func TestHTTPSolver_Infeasible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Solution{Status: StatusInfeasible})
	}))
	defer srv.Close()

	s := NewHTTPSolver(HTTPConfig{BaseURL: srv.URL}, nil)
	sol, err := s.Solve(context.Background(), testProblem())
	require.NoError(t, err)
	assert.False(t, sol.IsOptimal())
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestHTTPSolver_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPSolver(HTTPConfig{BaseURL: srv.URL}, nil)
	_, err := s.Solve(context.Background(), testProblem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestHTTPSolver_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	s := NewHTTPSolver(HTTPConfig{BaseURL: srv.URL}, nil)
	_, err := s.Solve(context.Background(), testProblem())
	require.Error(t, err)
}

func TestHTTPSolver_ContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	s := NewHTTPSolver(HTTPConfig{BaseURL: srv.URL}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Solve(ctx, testProblem())
	require.Error(t, err)
}

func TestHTTPSolver_TransportError(t *testing.T) {
	s := NewHTTPSolver(HTTPConfig{BaseURL: "http://127.0.0.1:1", RequestTimeout: 200 * time.Millisecond}, nil)
	_, err := s.Solve(context.Background(), testProblem())
	require.Error(t, err)
}

func TestSolutionDecoding(t *testing.T) {
	raw := `{"status":"optimal","variableAssignment":{"x_0_1":1,"z_0_1_1_2":1},"objectiveValue":4}`
	var sol Solution
	require.NoError(t, json.Unmarshal([]byte(raw), &sol))
	assert.True(t, sol.IsOptimal())
	assert.Equal(t, 1.0, sol.Value("z_0_1_1_2"))
	assert.Equal(t, 4.0, sol.ObjectiveValue)
}
