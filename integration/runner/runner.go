package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/easton-heights/internal/handlers"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running easton-heights API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence.
// Referenced cases are resolved relative to casesDir.
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite creates a session for the suite, runs every step and deletes the
// session afterwards.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	id, err := r.createSession(ctx, suite)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = id
	defer r.deleteSession(id)

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, id, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) createSession(ctx context.Context, suite TestSuite) (uuid.UUID, error) {
	req := handlers.CreateSessionRequest{
		Roster:     suite.Roster,
		Characters: suite.Characters,
		Location:   suite.Location,
		Zone:       suite.Zone,
		Range:      suite.Range,
		EnvFlags:   suite.EnvFlags,
	}
	var created handlers.SessionResponse
	status, err := r.do(ctx, http.MethodPost, "/v1/sessions", req, &created)
	if err != nil {
		return uuid.UUID{}, err
	}
	if status != http.StatusCreated {
		return uuid.UUID{}, fmt.Errorf("create session returned %d", status)
	}
	return created.ID, nil
}

func (r *Runner) deleteSession(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	if _, err := r.do(ctx, http.MethodDelete, sessionPath(id), nil, nil); err != nil {
		r.Logger("    Warning: failed to delete session %s: %v", id, err)
	}
}

// runStep performs one step and checks its expectations.
func (r *Runner) runStep(ctx context.Context, id uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var (
		status   int
		outcome  string
		finished bool
		err      error
	)
	switch step.Action {
	case ActionRoll:
		for range max(step.Count, 1) {
			var rr handlers.RoundResponse
			status, err = r.do(stepCtx, http.MethodPost, sessionPath(id)+"/rounds", nil, &rr)
			if err != nil {
				return fail(err)
			}
			outcome = rr.Outcome
			if !statusOK(status) {
				break
			}
		}
	case ActionAutoplay:
		msgs, err := StreamAutoplay(ctx, r.BaseURL, id, step.Count)
		if err != nil {
			return fail(err)
		}
		status = http.StatusOK
		if n := len(msgs); n > 0 {
			last := msgs[n-1]
			finished = last.Type == handlers.MessageFinished
			outcome = last.Outcome
		}
	case ActionAdd:
		status, err = r.do(stepCtx, http.MethodPost, sessionPath(id)+"/characters", step.Character, nil)
	case ActionRemove:
		status, err = r.do(stepCtx, http.MethodDelete, sessionPath(id)+"/characters/"+url.PathEscape(step.Target), nil, nil)
	case ActionScene:
		if step.Scene == nil {
			return fail(errors.New("scene step needs a scene"))
		}
		status, err = r.do(stepCtx, http.MethodPatch, sessionPath(id)+"/scene", step.Scene, nil)
	case ActionGet:
		status = http.StatusOK
	default:
		return fail(fmt.Errorf("unknown action %q", step.Action))
	}
	if err != nil {
		return fail(err)
	}

	var s handlers.SessionResponse
	getStatus, err := r.do(stepCtx, http.MethodGet, sessionPath(id), nil, &s)
	if err != nil {
		return fail(fmt.Errorf("failed to get session: %w", err))
	}
	if getStatus != http.StatusOK {
		return fail(fmt.Errorf("get session returned %d", getStatus))
	}
	if s.Latest != nil {
		result.Text = s.Latest.Text
	}

	if err := checkExpectations(step.Expectations, status, outcome, finished, &s); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// do sends a JSON request and decodes the JSON response into out when out
// is non-nil. Error bodies decode into out without failing the call.
func (r *Runner) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, rdr)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && statusOK(resp.StatusCode) {
			return resp.StatusCode, fmt.Errorf("failed to decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

func sessionPath(id uuid.UUID) string {
	return "/v1/sessions/" + id.String()
}

// checkExpectations validates a step's expectations against the response and
// the session fetched after it.
func checkExpectations(exp Expectations, status int, outcome string, finished bool, s *handlers.SessionResponse) error {
	if exp.Status != nil && status != *exp.Status {
		return fmt.Errorf("expected status %d, got %d", *exp.Status, status)
	}
	if exp.Outcome != "" && outcome != exp.Outcome {
		return fmt.Errorf("expected outcome %s, got %s", exp.Outcome, outcome)
	}
	if exp.Finished != nil && finished != *exp.Finished {
		return fmt.Errorf("expected autoplay finished=%t, got %t", *exp.Finished, finished)
	}
	if exp.Turn != nil && s.Turn != *exp.Turn {
		return fmt.Errorf("expected turn %d, got %d", *exp.Turn, s.Turn)
	}
	if exp.MinTurn != nil && s.Turn < *exp.MinTurn {
		return fmt.Errorf("expected turn >= %d, got %d", *exp.MinTurn, s.Turn)
	}
	if exp.Rounds != nil && s.Rounds != *exp.Rounds {
		return fmt.Errorf("expected %d rounds, got %d", *exp.Rounds, s.Rounds)
	}
	if exp.Location != nil && s.Scene.Location != *exp.Location {
		return fmt.Errorf("expected location %s, got %s", *exp.Location, s.Scene.Location)
	}
	if exp.Range != nil && s.Scene.Range != *exp.Range {
		return fmt.Errorf("expected range %s, got %s", *exp.Range, s.Scene.Range)
	}
	if exp.Alive != nil && s.Alive != *exp.Alive {
		return fmt.Errorf("expected %d alive, got %d", *exp.Alive, s.Alive)
	}
	if exp.MaxAlive != nil && s.Alive > *exp.MaxAlive {
		return fmt.Errorf("expected at most %d alive, got %d", *exp.MaxAlive, s.Alive)
	}
	if exp.Terminated != nil && s.Terminated != *exp.Terminated {
		return fmt.Errorf("expected terminated=%t, got %t", *exp.Terminated, s.Terminated)
	}

	names := make([]string, len(s.Players))
	for i, c := range s.Players {
		names[i] = c.Name
	}
	for _, n := range exp.RosterContains {
		if !slices.Contains(names, n) {
			return fmt.Errorf("expected roster to contain %q, got %v", n, names)
		}
	}
	for _, n := range exp.RosterExcludes {
		if slices.Contains(names, n) {
			return fmt.Errorf("expected roster to exclude %q, got %v", n, names)
		}
	}

	if len(exp.TextContains) > 0 {
		if s.Latest == nil {
			return fmt.Errorf("expected a latest round, got none")
		}
		for _, want := range exp.TextContains {
			if !strings.Contains(s.Latest.Text, want) {
				return fmt.Errorf("expected round text to contain %q, got %q", want, s.Latest.Text)
			}
		}
	}
	return nil
}
