// Package events defines trace event constructors and the envelopes mirrored
// onto the event bus for external consumers.
package events

import (
	"encoding/json"
	"time"

	"github.com/outriq/outriq/pkg/models"
)

// Kafka topics for the non-authoritative event mirror. The SSE path never
// consumes these; clients are served from the durable trace alone.
const (
	TraceTopic       = "outriq.campaign.trace"
	FollowupDueTopic = "outriq.followups.due"
)

const NeedSelectContacts = "select_contacts"

// Watermill message metadata keys.
const (
	CampaignIDMetadataKey = "campaign_id"
	EventTypeMetadataKey  = "event_type"
)

func now() time.Time {
	return time.Now().UTC()
}

// WorkflowStart marks the beginning of a run.
func WorkflowStart(runID string, mode models.RunMode) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceWorkflowStart,
		Timestamp: now(),
		RunID:     runID,
		Mode:      string(mode),
	}
}

func StepStart(runID string, step models.StepName) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceStepStart,
		Timestamp: now(),
		RunID:     runID,
		Step:      step,
	}
}

// StepProgress is emitted by executors through the trace sink mid-execution.
func StepProgress(runID string, step models.StepName, message string) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceStepProgress,
		Timestamp: now(),
		RunID:     runID,
		Step:      step,
		Message:   message,
	}
}

func StepDone(runID string, step models.StepName, summary string) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceStepDone,
		Timestamp: now(),
		RunID:     runID,
		Step:      step,
		Message:   summary,
	}
}

func StepError(runID string, step models.StepName, err error) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceStepError,
		Timestamp: now(),
		RunID:     runID,
		Step:      step,
		Message:   err.Error(),
	}
}

// Artifact carries the full payload a step just persisted.
func Artifact(runID string, name models.ArtifactName, payload json.RawMessage) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceArtifact,
		Timestamp: now(),
		RunID:     runID,
		Artifact:  name,
		Payload:   payload,
	}
}

// WaitingUser marks the expected pause point of a full run that reached
// drafting without selected contacts. Not an error.
func WaitingUser(runID, need string) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceWaitingUser,
		Timestamp: now(),
		RunID:     runID,
		Need:      need,
	}
}

func WorkflowComplete(runID, message string) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceWorkflowComplete,
		Timestamp: now(),
		RunID:     runID,
		Message:   message,
	}
}

// Error records a run-level failure, terminal for the current run.
func Error(runID, message string) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceError,
		Timestamp: now(),
		RunID:     runID,
		Message:   message,
	}
}

// Heartbeat is a wire-only event carrying the current phase, emitted by the
// stream server during idle stretches. Never appended to the trace.
func Heartbeat(phase models.Phase) models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceHeartbeat,
		Timestamp: now(),
		Phase:     phase,
	}
}

// Timeout is the wire-only terminal event for an idle-expired stream.
func Timeout() models.TraceEvent {
	return models.TraceEvent{
		Type:      models.TraceTimeout,
		Timestamp: now(),
	}
}

// TraceEnvelope wraps a trace event for Kafka publication.
type TraceEnvelope struct {
	CampaignID string            `json:"campaign_id"`
	Event      models.TraceEvent `json:"event"`
}

// FollowupDue notifies external senders that a queued follow-up is due.
type FollowupDue struct {
	CampaignID string              `json:"campaign_id"`
	UserID     string              `json:"user_id"`
	Item       models.FollowupItem `json:"item"`
}
