// Package httpexec bridges workflow steps to external agent services over
// HTTP. Each step posts its input contract to a configured endpoint and
// treats the response body as the step's artifact.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/steps"
)

const defaultTimeout = 120 * time.Second

// Executor runs one step against an external agent endpoint.
type Executor struct {
	step   models.StepName
	url    string
	client *http.Client
}

// NewExecutor creates an HTTP-bridged executor for the given step.
func NewExecutor(step models.StepName, url string, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Executor{
		step:   step,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *Executor) Step() models.StepName {
	return e.step
}

// request is the wire contract with agent services. The prior state goes out
// without its trace to keep the payload bounded.
type request struct {
	CampaignID string                  `json:"campaign_id"`
	UserID     string                  `json:"user_id"`
	RunID      string                  `json:"run_id"`
	Step       models.StepName         `json:"step"`
	Job        models.JobContext       `json:"job"`
	Candidate  models.CandidateProfile `json:"candidate"`
	State      *models.StateDocument   `json:"state,omitempty"`
}

type response struct {
	Artifact json.RawMessage `json:"artifact"`
	Summary  string          `json:"summary"`
}

func (e *Executor) Execute(ctx context.Context, input steps.Input, _ steps.EventSink) (*steps.Result, error) {
	payload := request{
		CampaignID: input.CampaignID,
		UserID:     input.UserID,
		RunID:      input.RunID,
		Step:       e.step,
		Job:        input.Job,
		Candidate:  input.Candidate,
		State:      trimTrace(input.Prior),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build step request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("step %s agent unreachable: %w", e.step, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return nil, fmt.Errorf("step %s agent returned %d: %s", e.step, resp.StatusCode, string(detail))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode step %s response: %w", e.step, err)
	}

	if len(decoded.Artifact) == 0 {
		return nil, fmt.Errorf("step %s agent returned no artifact", e.step)
	}

	return &steps.Result{Artifact: decoded.Artifact, Summary: decoded.Summary}, nil
}

func trimTrace(doc *models.StateDocument) *models.StateDocument {
	if doc == nil {
		return nil
	}

	trimmed := *doc
	trimmed.Trace = nil

	return &trimmed
}
