package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gamcfErrors "github.com/ezoic/gamcf/pkg/errors"
	"github.com/ezoic/gamcf/pkg/log"
)

// Solver solves one self-contained problem per call. Implementations must
// treat each call as an independent request/response exchange.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// HTTPConfig configures the HTTP solver client.
type HTTPConfig struct {
	// BaseURL is the solver service endpoint, e.g. "http://solver:8080".
	BaseURL string `json:"base_url"`

	// SolvePath is the solve endpoint path. Defaults to "/v1/solve".
	SolvePath string `json:"solve_path"`

	// RequestTimeout bounds a single solve exchange. Zero means no
	// client-side timeout; the caller's context still applies.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// HTTPSolver submits problems to an external MIP solver service as JSON.
type HTTPSolver struct {
	config     HTTPConfig
	httpClient *http.Client
	logger     log.Logger
}

// NewHTTPSolver creates a solver client. Pass a nil client to use a default
// one honoring the configured timeout.
func NewHTTPSolver(config HTTPConfig, httpClient *http.Client) *HTTPSolver {
	if config.SolvePath == "" {
		config.SolvePath = "/v1/solve"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.RequestTimeout}
	}
	return &HTTPSolver{
		config:     config,
		httpClient: httpClient,
		logger:     log.GetLoggerWithName("solver"),
	}
}

// Solve posts the problem to the service and decodes its verdict. A non-2xx
// response or transport failure is an error; a well-formed non-optimal
// verdict is not, and is surfaced through Solution.Status.
func (s *HTTPSolver) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	const op = "HTTPSolver.Solve"

	body, err := json.Marshal(p)
	if err != nil {
		return nil, gamcfErrors.NewModelError(op, "failed to encode problem", err)
	}

	url := s.config.BaseURL + s.config.SolvePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, gamcfErrors.NewModelError(op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, gamcfErrors.NewModelError(op, "solver request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain for connection reuse before reporting.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, gamcfErrors.NewValueError(op,
			fmt.Sprintf("solver returned HTTP %d", resp.StatusCode))
	}

	var sol Solution
	if err := json.NewDecoder(resp.Body).Decode(&sol); err != nil {
		return nil, gamcfErrors.NewModelError(op, "failed to decode solution", err)
	}

	s.logger.Debug("solve completed",
		log.OperationKey, log.OperationSolve,
		log.VariablesKey, len(p.Binaries),
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"status", sol.Status)
	return &sol, nil
}
