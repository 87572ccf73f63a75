package workflow

import (
	"context"

	"github.com/outriq/outriq/pkg/models"
)

// JobSource resolves the scraped job posting a campaign targets. Owned by
// the scraping subsystem; the orchestrator only reads.
type JobSource interface {
	Job(ctx context.Context, jobID string) (models.JobContext, error)
}

// ProfileSource resolves the candidate profile for a user.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (models.CandidateProfile, error)
}

// EmptySources satisfies both source interfaces with empty payloads, for
// deployments where agents fetch their own context and for tests.
type EmptySources struct{}

func (EmptySources) Job(_ context.Context, _ string) (models.JobContext, error) {
	return models.JobContext{}, nil
}

func (EmptySources) Profile(_ context.Context, _ string) (models.CandidateProfile, error) {
	return models.CandidateProfile{}, nil
}
