package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/persistence/file"
	"github.com/outriq/outriq/pkg/scheduler"
)

const testUser = "user-1"

func newService(t *testing.T) (*Campaign, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	return NewCampaign(store), store
}

func createCampaign(t *testing.T, service *Campaign) *models.Campaign {
	t.Helper()

	campaign, err := service.Create(context.Background(), testUser, &CreateCampaignRequest{JobID: "job-1"})
	require.NoError(t, err)

	return campaign
}

func TestCreate_GeneratesIDAndInitializesState(t *testing.T) {
	service, _ := newService(t)

	campaign := createCampaign(t, service)
	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, "job-1", campaign.JobID)

	doc, err := service.GetState(context.Background(), campaign.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseIdle, doc.Phase)
	assert.Len(t, doc.Steps, 4)
	assert.Equal(t, 1, doc.Version)
}

func TestCreate_ValidatesInput(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, "", &CreateCampaignRequest{JobID: "job-1"})
	assert.ErrorIs(t, err, ErrEmptyUserID)
	assert.True(t, IsValidationError(err))

	_, err = service.Create(ctx, testUser, &CreateCampaignRequest{})
	assert.ErrorIs(t, err, ErrEmptyJobID)
}

func TestCreate_ExistingIDReturnsExistingCampaign(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	first, err := service.Create(ctx, testUser, &CreateCampaignRequest{ID: "camp-1", JobID: "job-1"})
	require.NoError(t, err)

	// First-access semantics, not a conflict.
	second, err := service.Create(ctx, testUser, &CreateCampaignRequest{ID: "camp-1", JobID: "job-other"})
	require.NoError(t, err)
	assert.Equal(t, first.JobID, second.JobID)
}

func TestSelectContacts_MergesPerRole(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()
	campaign := createCampaign(t, service)

	_, err := service.SelectContacts(ctx, campaign.ID, testUser, map[models.ContactRole]models.Contact{
		models.RoleRecruiter: {Name: "Dana"},
	})
	require.NoError(t, err)

	doc, err := service.SelectContacts(ctx, campaign.ID, testUser, map[models.ContactRole]models.Contact{
		models.RoleHiringManager: {Name: "Alex"},
	})
	require.NoError(t, err)

	assert.Len(t, doc.SelectedContacts, 2)
	assert.Equal(t, "Dana", doc.SelectedContacts[models.RoleRecruiter].Name)
}

func TestSelectContacts_RejectsBadInput(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()
	campaign := createCampaign(t, service)

	_, err := service.SelectContacts(ctx, campaign.ID, testUser, nil)
	assert.ErrorIs(t, err, ErrNoContactsSelected)

	_, err = service.SelectContacts(ctx, campaign.ID, testUser, map[models.ContactRole]models.Contact{
		"cat": {Name: "Whiskers"},
	})
	assert.ErrorIs(t, err, ErrInvalidContactRole)
	assert.True(t, IsValidationError(err))
}

func TestAddFeedback_PreservesArrivalOrder(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()
	campaign := createCampaign(t, service)

	for _, text := range []string{"shorter", "mention the launch", "less formal"} {
		_, err := service.AddFeedback(ctx, campaign.ID, testUser, &FeedbackRequest{Text: text})
		require.NoError(t, err)
	}

	doc, err := service.AddFeedback(ctx, campaign.ID, testUser, &FeedbackRequest{
		Text:      "no emoji",
		Must:      true,
		DraftType: "recruiter_email",
	})
	require.NoError(t, err)

	require.Len(t, doc.Feedback.Global, 3)
	assert.Equal(t, "shorter", doc.Feedback.Global[0].Text)
	assert.Equal(t, "less formal", doc.Feedback.Global[2].Text)

	require.Len(t, doc.Feedback.DraftSpecific["recruiter_email"], 1)
	assert.True(t, doc.Feedback.DraftSpecific["recruiter_email"][0].Must)
	assert.False(t, doc.Feedback.DraftSpecific["recruiter_email"][0].Timestamp.IsZero())
}

func TestAddFeedback_RejectsEmptyText(t *testing.T) {
	service, _ := newService(t)
	campaign := createCampaign(t, service)

	_, err := service.AddFeedback(context.Background(), campaign.ID, testUser, &FeedbackRequest{})
	assert.ErrorIs(t, err, ErrEmptyFeedbackText)
}

func TestFinalize_RequiresWaitingUserPhase(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()
	campaign := createCampaign(t, service)

	_, err := service.Finalize(ctx, campaign.ID, testUser)
	assert.ErrorIs(t, err, ErrNotAwaitingReview)
	assert.True(t, IsConflictError(err))

	phase := models.PhaseWaitingUser
	_, err = store.States().PatchState(ctx, campaign.ID, testUser, &models.StatePatch{Phase: &phase})
	require.NoError(t, err)

	doc, err := service.Finalize(ctx, campaign.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDone, doc.Phase)

	// Finalization is observable on the trace like every other transition.
	final, err := service.GetState(ctx, campaign.ID, testUser)
	require.NoError(t, err)
	require.NotEmpty(t, final.Trace)
	assert.Equal(t, models.TraceWorkflowComplete, final.Trace[len(final.Trace)-1].Type)
}

func seedFollowups(t *testing.T, store persistence.Persistence, campaignID string, start time.Time) {
	t.Helper()

	queue := scheduler.BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {{Day: 3, Subject: "Nudge"}, {Day: 7, Subject: "Ping"}},
	}, start)

	_, err := store.States().UpdateState(context.Background(), campaignID, testUser, func(doc *models.StateDocument) error {
		doc.Artifacts.Followups = queue

		return nil
	})
	require.NoError(t, err)
}

func TestFollowups_DueFiltering(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()
	campaign := createCampaign(t, service)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedFollowups(t, store, campaign.ID, start)

	all, err := service.Followups(ctx, campaign.ID, testUser)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	due, err := service.DueFollowups(ctx, campaign.ID, testUser, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 3, due[0].Day)
}

func TestMarkFollowup_UpdatesStatusDurably(t *testing.T) {
	service, store := newService(t)
	ctx := context.Background()
	campaign := createCampaign(t, service)

	seedFollowups(t, store, campaign.ID, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	doc, err := service.MarkFollowup(ctx, campaign.ID, testUser, "recruiter_email", 3, models.FollowupSent)
	require.NoError(t, err)
	assert.Equal(t, models.FollowupSent, doc.Artifacts.Followups[0].Status)
	assert.Equal(t, models.FollowupPending, doc.Artifacts.Followups[1].Status)

	_, err = service.MarkFollowup(ctx, campaign.ID, testUser, "recruiter_email", 30, models.FollowupSkipped)
	assert.ErrorIs(t, err, scheduler.ErrFollowupNotFound)

	_, err = service.MarkFollowup(ctx, campaign.ID, testUser, "recruiter_email", 3, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
