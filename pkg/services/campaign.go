package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/scheduler"
)

// CreateCampaignRequest carries the inputs for campaign creation. ID is
// optional; one is generated when empty.
type CreateCampaignRequest struct {
	ID    string
	JobID string
}

// FeedbackRequest is one piece of user feedback. An empty DraftType targets
// the global list, otherwise the entry lands under that draft type.
type FeedbackRequest struct {
	Text      string
	Must      bool
	DraftType string
}

// Campaign handles campaign business operations on top of the state store.
type Campaign struct {
	persistence persistence.Persistence
}

// NewCampaign creates a new campaign service.
func NewCampaign(persistence persistence.Persistence) *Campaign {
	return &Campaign{persistence: persistence}
}

// Create registers a campaign and initializes its state document. Creation is
// first-access semantics: creating an ID that already exists returns the
// existing record untouched.
func (c *Campaign) Create(ctx context.Context, userID string, req *CreateCampaignRequest) (*models.Campaign, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	if req.JobID == "" {
		return nil, ErrEmptyJobID
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	campaign := &models.Campaign{
		ID:        id,
		UserID:    userID,
		JobID:     req.JobID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	err := c.persistence.Campaigns().Create(ctx, campaign)

	switch {
	case err == nil:
		if _, err := c.persistence.States().InitializeState(ctx, id, userID); err != nil {
			return nil, fmt.Errorf("failed to initialize campaign state: %w", err)
		}

		return campaign, nil
	case persistence.IsCampaignAlreadyExists(err):
		return c.persistence.Campaigns().GetByID(ctx, id, userID)
	default:
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
}

// Get returns the campaign identity record.
func (c *Campaign) Get(ctx context.Context, campaignID, userID string) (*models.Campaign, error) {
	return c.persistence.Campaigns().GetByID(ctx, campaignID, userID)
}

// List returns the user's campaigns.
func (c *Campaign) List(ctx context.Context, userID string) ([]*models.Campaign, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	return c.persistence.Campaigns().List(ctx, userID)
}

// GetState returns the campaign's current state document.
func (c *Campaign) GetState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error) {
	return c.persistence.States().GetState(ctx, campaignID, userID)
}

// SelectContacts records the user's chosen outreach targets. Selection merges
// per role: selecting a recruiter keeps a previously selected hiring manager.
func (c *Campaign) SelectContacts(ctx context.Context, campaignID, userID string, contacts map[models.ContactRole]models.Contact) (*models.StateDocument, error) {
	if len(contacts) == 0 {
		return nil, ErrNoContactsSelected
	}

	for role := range contacts {
		switch role {
		case models.RoleRecruiter, models.RoleHiringManager, models.RoleWarmIntro:
		default:
			return nil, &ServiceError{Op: "SelectContacts", Message: string(role), Err: ErrInvalidContactRole}
		}
	}

	return c.persistence.States().PatchState(ctx, campaignID, userID, &models.StatePatch{
		SelectedContacts: contacts,
	})
}

// AddFeedback appends one feedback entry, preserving arrival order.
func (c *Campaign) AddFeedback(ctx context.Context, campaignID, userID string, req *FeedbackRequest) (*models.StateDocument, error) {
	if req.Text == "" {
		return nil, ErrEmptyFeedbackText
	}

	entry := models.FeedbackEntry{
		Text:      req.Text,
		Must:      req.Must,
		Timestamp: time.Now().UTC(),
	}

	return c.persistence.States().UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		if req.DraftType == "" {
			doc.Feedback.Global = append(doc.Feedback.Global, entry)

			return nil
		}

		if doc.Feedback.DraftSpecific == nil {
			doc.Feedback.DraftSpecific = make(map[string][]models.FeedbackEntry)
		}

		doc.Feedback.DraftSpecific[req.DraftType] = append(doc.Feedback.DraftSpecific[req.DraftType], entry)

		return nil
	})
}

// Finalize moves a campaign the user has reviewed from waiting_user to done.
// Any other phase is a conflict: runs finish into waiting_user and only an
// explicit finalization ends the campaign.
func (c *Campaign) Finalize(ctx context.Context, campaignID, userID string) (*models.StateDocument, error) {
	doc, err := c.persistence.States().UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		if doc.Phase != models.PhaseWaitingUser {
			return &ServiceError{Op: "Finalize", Message: string(doc.Phase), Err: ErrNotAwaitingReview}
		}

		doc.Phase = models.PhaseDone

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.persistence.States().AppendTrace(ctx, campaignID, userID, events.WorkflowComplete("", "campaign finalized by user")); err != nil {
		return nil, err
	}

	return doc, nil
}

// Followups returns the campaign's scheduled follow-up queue.
func (c *Campaign) Followups(ctx context.Context, campaignID, userID string) ([]models.FollowupItem, error) {
	doc, err := c.persistence.States().GetState(ctx, campaignID, userID)
	if err != nil {
		return nil, err
	}

	return doc.Artifacts.Followups, nil
}

// DueFollowups returns the pending follow-ups due as of the given time.
func (c *Campaign) DueFollowups(ctx context.Context, campaignID, userID string, asOf time.Time) ([]models.FollowupItem, error) {
	queue, err := c.Followups(ctx, campaignID, userID)
	if err != nil {
		return nil, err
	}

	return scheduler.Due(queue, asOf), nil
}

// MarkFollowup records the outcome of one queued follow-up.
func (c *Campaign) MarkFollowup(ctx context.Context, campaignID, userID, draftType string, day int, status models.FollowupStatus) (*models.StateDocument, error) {
	switch status {
	case models.FollowupSent, models.FollowupSkipped, models.FollowupPending:
	default:
		return nil, &ServiceError{Op: "MarkFollowup", Message: string(status), Err: ErrInvalidStatus}
	}

	return c.persistence.States().UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		queue, err := scheduler.MarkStatus(doc.Artifacts.Followups, draftType, day, status)
		if err != nil {
			return err
		}

		doc.Artifacts.Followups = queue

		return nil
	})
}

// HealthCheck reports storage backend health.
func (c *Campaign) HealthCheck(ctx context.Context) error {
	return c.persistence.HealthCheck(ctx)
}
