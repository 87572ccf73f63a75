package models

import (
	"encoding/json"
	"time"
)

// TraceEventType discriminates entries of the trace log and the events the
// stream server synthesizes on top of it.
type TraceEventType string

const (
	// Persisted trace event types.
	TraceWorkflowStart    TraceEventType = "workflow_start"
	TraceStepStart        TraceEventType = "step_start"
	TraceStepProgress     TraceEventType = "step_progress"
	TraceStepDone         TraceEventType = "step_done"
	TraceStepError        TraceEventType = "step_error"
	TraceArtifact         TraceEventType = "artifact"
	TraceWaitingUser      TraceEventType = "waiting_user"
	TraceWorkflowComplete TraceEventType = "workflow_complete"
	TraceError            TraceEventType = "error"

	// Synthetic wire-only event types, never appended to the trace.
	TraceHeartbeat TraceEventType = "heartbeat"
	TraceTimeout   TraceEventType = "timeout"
)

// TraceEvent is one append-only record of workflow progress. Once appended
// its position in the trace never changes; the store stamps Timestamp at
// append time when the emitter left it zero.
type TraceEvent struct {
	Type      TraceEventType  `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id,omitempty"`
	Mode      string          `json:"mode,omitempty"`
	Step      StepName        `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
	Need      string          `json:"need,omitempty"`
	Artifact  ArtifactName    `json:"artifact,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Phase     Phase           `json:"phase,omitempty"`
}
