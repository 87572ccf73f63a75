// Package steps defines the step executor protocol the orchestrator drives
// and the registry that binds step names to executors. The work a step does
// (contact discovery, evidence ranking, drafting) lives behind this boundary
// in external agent services.
package steps

import (
	"context"
	"encoding/json"

	"github.com/outriq/outriq/pkg/models"
)

// EventSink receives step_progress events an executor emits mid-execution.
// Keeping it a one-method interface decouples executors from how the
// orchestrator persists trace events.
type EventSink interface {
	Emit(ctx context.Context, event models.TraceEvent) error
}

// Input is the fixed input contract of every step executor.
type Input struct {
	CampaignID string
	UserID     string
	RunID      string
	Job        models.JobContext
	Candidate  models.CandidateProfile
	Prior      *models.StateDocument
}

// Result is what a successful executor returns: the raw artifact payload to
// persist under the step's fixed name plus a short human-readable summary.
type Result struct {
	Artifact json.RawMessage
	Summary  string
}

// Executor runs one workflow step. An error return is a step failure: it is
// recorded against the step and never aborts the whole run.
type Executor interface {
	Step() models.StepName
	Execute(ctx context.Context, input Input, sink EventSink) (*Result, error)
}
