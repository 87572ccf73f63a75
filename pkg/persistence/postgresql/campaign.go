package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// CampaignRepository handles campaign identity rows.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	query := `
		INSERT INTO campaigns (id, user_id, job_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, campaign.ID, campaign.UserID, campaign.JobID, campaign.CreatedAt, campaign.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewCampaignError("Create", campaign.ID, persistence.ErrCampaignAlreadyExists)
		}

		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id, userID string) (*models.Campaign, error) {
	query := `
		SELECT id, user_id, job_id, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`

	args := []any{id}
	if userID != "" {
		query += " AND user_id = $2"

		args = append(args, userID)
	}

	row := r.db.QueryRowContext(ctx, query, args...)

	var campaign models.Campaign

	err := row.Scan(&campaign.ID, &campaign.UserID, &campaign.JobID, &campaign.CreatedAt, &campaign.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return &campaign, nil
}

// List returns campaigns for one user, or all campaigns when userID is empty.
func (r *CampaignRepository) List(ctx context.Context, userID string) ([]*models.Campaign, error) {
	query := `
		SELECT id, user_id, job_id, created_at, updated_at
		FROM campaigns
	`

	args := []any{}
	if userID != "" {
		query += " WHERE user_id = $1"

		args = append(args, userID)
	}

	query += " ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	campaigns := make([]*models.Campaign, 0)

	for rows.Next() {
		var campaign models.Campaign

		err := rows.Scan(&campaign.ID, &campaign.UserID, &campaign.JobID, &campaign.CreatedAt, &campaign.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, &campaign)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}
