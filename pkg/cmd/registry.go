package cmd

import (
	"log/slog"
	"time"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/steps"
	"github.com/outriq/outriq/pkg/steps/httpexec"
)

// NewRegistry builds the step registry. The research, evidence and drafts
// steps are bridged to the external agent service under its base URL; the
// schedule step is computed in-process. With no agent URL configured only the
// schedule step is runnable, which still permits replaying schedules on
// existing drafts.
func NewRegistry(logger *slog.Logger, agentBaseURL string, agentTimeout time.Duration) (*steps.Registry, error) {
	registry, err := steps.NewRegistry(logger)
	if err != nil {
		return nil, err
	}

	if agentBaseURL != "" {
		for _, step := range []models.StepName{models.StepResearch, models.StepEvidence, models.StepDrafts} {
			registry.Register(httpexec.NewExecutor(step, agentBaseURL+"/steps/"+string(step), agentTimeout))
		}
	}

	registry.Register(steps.NewScheduleExecutor())

	return registry, nil
}
