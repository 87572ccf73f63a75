package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/scheduler"
)

// ScheduleExecutor is the built-in schedule step: it derives the follow-up
// queue from the drafts artifact of the prior state. The only step that runs
// in-process, since it is a pure transform with no agent behind it.
type ScheduleExecutor struct {
	now func() time.Time
}

// NewScheduleExecutor creates the schedule step executor.
func NewScheduleExecutor() *ScheduleExecutor {
	return &ScheduleExecutor{now: time.Now}
}

func (e *ScheduleExecutor) Step() models.StepName {
	return models.StepSchedule
}

func (e *ScheduleExecutor) Execute(ctx context.Context, input Input, sink EventSink) (*Result, error) {
	var byDraftType map[string][]models.FollowupDraft
	if input.Prior != nil && input.Prior.Artifacts.Drafts != nil {
		byDraftType = input.Prior.Artifacts.Drafts.Followups
	}

	queue := scheduler.BuildFollowupQueue(byDraftType, e.now().UTC())

	if sink != nil {
		_ = sink.Emit(ctx, events.StepProgress(input.RunID, models.StepSchedule,
			fmt.Sprintf("scheduled %d followups", len(queue))))
	}

	payload, err := json.Marshal(queue)
	if err != nil {
		return nil, fmt.Errorf("failed to encode followup queue: %w", err)
	}

	return &Result{
		Artifact: payload,
		Summary:  fmt.Sprintf("Queued %d follow-ups", len(queue)),
	}, nil
}
