package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// CampaignRepository handles campaign identity records on the file system.
type CampaignRepository struct {
	root  string
	locks *keyedMutex
}

func (cr *CampaignRepository) Create(_ context.Context, campaign *models.Campaign) error {
	lock := cr.locks.forKey(campaign.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(campaignPath(cr.root, campaign.ID)); err == nil {
		return persistence.NewCampaignError("Create", campaign.ID, persistence.ErrCampaignAlreadyExists)
	}

	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	return writeCampaign(cr.root, campaign)
}

func (cr *CampaignRepository) GetByID(_ context.Context, id, userID string) (*models.Campaign, error) {
	campaign, err := readCampaign(cr.root, id)
	if err != nil {
		return nil, err
	}

	if userID != "" && campaign.UserID != userID {
		return nil, persistence.ErrCampaignNotFound
	}

	return campaign, nil
}

// List returns campaigns for one user, or all campaigns when userID is
// empty (used by the follow-up dispatcher).
func (cr *CampaignRepository) List(_ context.Context, userID string) ([]*models.Campaign, error) {
	root := os.DirFS(cr.root + "/campaigns")

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign files: %w", err)
	}

	campaigns := make([]*models.Campaign, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		campaign, err := readCampaign(cr.root, id)
		if err != nil {
			if persistence.IsCampaignNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load campaign %s: %w", id, err)
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
