package redisstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// CampaignRepository handles campaign identity records in Redis.
type CampaignRepository struct {
	client *redis.Client
}

func (cr *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	token, err := acquireLock(ctx, cr.client, campaign.ID)
	if err != nil {
		return err
	}

	defer func() {
		_ = releaseLock(context.WithoutCancel(ctx), cr.client, campaign.ID, token)
	}()

	exists, err := cr.client.Exists(ctx, campaignKey(campaign.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check campaign existence: %w", err)
	}

	if exists > 0 {
		return persistence.NewCampaignError("Create", campaign.ID, persistence.ErrCampaignAlreadyExists)
	}

	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	return writeCampaign(ctx, cr.client, campaign)
}

func (cr *CampaignRepository) GetByID(ctx context.Context, id, userID string) (*models.Campaign, error) {
	campaign, err := readCampaign(ctx, cr.client, id)
	if err != nil {
		return nil, err
	}

	if userID != "" && campaign.UserID != userID {
		return nil, persistence.ErrCampaignNotFound
	}

	return campaign, nil
}

// List returns campaigns for one user, or all campaigns when userID is empty.
func (cr *CampaignRepository) List(ctx context.Context, userID string) ([]*models.Campaign, error) {
	ids, err := cr.client.SMembers(ctx, campaignIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign ids: %w", err)
	}

	campaigns := make([]*models.Campaign, 0, len(ids))

	for _, id := range ids {
		campaign, err := readCampaign(ctx, cr.client, id)
		if err != nil {
			if persistence.IsCampaignNotFound(err) {
				continue
			}

			return nil, err
		}

		if userID != "" && campaign.UserID != userID {
			continue
		}

		campaigns = append(campaigns, campaign)
	}

	sort.Slice(campaigns, func(i, j int) bool {
		return campaigns[i].CreatedAt.Before(campaigns[j].CreatedAt)
	})

	return campaigns, nil
}
