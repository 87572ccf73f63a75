package redisstore

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// StateRepository handles campaign state documents in Redis. UpdateState
// holds the SET NX record lock for one read-modify-write cycle.
type StateRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func (sr *StateRepository) GetState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error) {
	campaign, err := sr.loadOwned(ctx, campaignID, userID)
	if err != nil {
		return nil, err
	}

	if campaign.State == nil {
		return &models.StateDocument{Phase: models.PhaseIdle}, nil
	}

	return campaign.State, nil
}

func (sr *StateRepository) UpdateState(ctx context.Context, campaignID, userID string, fn func(*models.StateDocument) error) (*models.StateDocument, error) {
	token, err := acquireLock(ctx, sr.client, campaignID)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := releaseLock(context.WithoutCancel(ctx), sr.client, campaignID, token); err != nil {
			sr.logger.ErrorContext(ctx, "failed to release campaign lock", "campaign_id", campaignID, "error", err)
		}
	}()

	campaign, err := sr.loadOwned(ctx, campaignID, userID)
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

	if err := writeCampaign(ctx, sr.client, campaign); err != nil {
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

// ReadTraceFrom reads without the record lock; a single GET is atomic.
func (sr *StateRepository) ReadTraceFrom(ctx context.Context, campaignID, userID string, from int) ([]models.TraceEvent, models.Phase, int, error) {
	campaign, err := sr.loadOwned(ctx, campaignID, userID)
	if err != nil {
		return nil, "", 0, err
	}

	if campaign.State == nil {
		return []models.TraceEvent{}, models.PhaseIdle, 0, nil
	}

	doc := campaign.State

	return persistence.TraceFrom(doc.Trace, from), doc.Phase, len(doc.Trace), nil
}

func (sr *StateRepository) loadOwned(ctx context.Context, campaignID, userID string) (*models.Campaign, error) {
	campaign, err := readCampaign(ctx, sr.client, campaignID)
	if err != nil {
		return nil, err
	}

	if userID != "" && campaign.UserID != userID {
		return nil, persistence.ErrCampaignNotFound
	}

	return campaign, nil
}
