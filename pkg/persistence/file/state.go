package file

import (
	"context"
	"time"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// StateRepository handles campaign state documents on the file system. All
// mutation goes through UpdateState, which holds the per-campaign lock for
// the duration of one read-modify-write cycle.
type StateRepository struct {
	root  string
	locks *keyedMutex
}

func (sr *StateRepository) GetState(_ context.Context, campaignID, userID string) (*models.StateDocument, error) {
	campaign, err := loadOwned(sr.root, campaignID, userID)
	if err != nil {
		return nil, err
	}

	if campaign.State == nil {
		return &models.StateDocument{Phase: models.PhaseIdle}, nil
	}

	return campaign.State, nil
}

func (sr *StateRepository) UpdateState(_ context.Context, campaignID, userID string, fn func(*models.StateDocument) error) (*models.StateDocument, error) {
	lock := sr.locks.forKey(campaignID)
	lock.Lock()
	defer lock.Unlock()

	campaign, err := loadOwned(sr.root, campaignID, userID)
	if err != nil {
		return nil, err
	}

	doc := campaign.State
	if doc == nil {
		doc = &models.StateDocument{}
	}

	if err := fn(doc); err != nil {
		return nil, err
	}

	campaign.State = doc
	campaign.UpdatedAt = time.Now().UTC()

	if err := writeCampaign(sr.root, campaign); err != nil {
		return nil, err
	}

	return doc, nil
}

func (sr *StateRepository) InitializeState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error) {
	return persistence.InitializeVia(ctx, sr, campaignID, userID)
}

func (sr *StateRepository) PatchState(ctx context.Context, campaignID, userID string, patch *models.StatePatch) (*models.StateDocument, error) {
	return persistence.PatchVia(ctx, sr, campaignID, userID, patch)
}

func (sr *StateRepository) ReplaceState(ctx context.Context, campaignID, userID string, doc *models.StateDocument) error {
	return persistence.ReplaceVia(ctx, sr, campaignID, userID, doc)
}

func (sr *StateRepository) AppendTrace(ctx context.Context, campaignID, userID string, event models.TraceEvent) error {
	return persistence.AppendTraceVia(ctx, sr, campaignID, userID, event)
}

// ReadTraceFrom is a non-locking read; the atomic file replace in
// writeCampaign keeps it consistent against concurrent writers.
func (sr *StateRepository) ReadTraceFrom(_ context.Context, campaignID, userID string, from int) ([]models.TraceEvent, models.Phase, int, error) {
	campaign, err := loadOwned(sr.root, campaignID, userID)
	if err != nil {
		return nil, "", 0, err
	}

	if campaign.State == nil {
		return []models.TraceEvent{}, models.PhaseIdle, 0, nil
	}

	doc := campaign.State

	return persistence.TraceFrom(doc.Trace, from), doc.Phase, len(doc.Trace), nil
}

func loadOwned(root, campaignID, userID string) (*models.Campaign, error) {
	campaign, err := readCampaign(root, campaignID)
	if err != nil {
		return nil, err
	}

	if userID != "" && campaign.UserID != userID {
		return nil, persistence.ErrCampaignNotFound
	}

	return campaign, nil
}
