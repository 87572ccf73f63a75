package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// StateRepository handles campaign state documents in the JSONB column. The
// per-record exclusive lock is the row lock of SELECT ... FOR UPDATE, held
// for the duration of one read-modify-write transaction.
type StateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStateRepository creates a new state repository.
func NewStateRepository(db *sql.DB, logger *slog.Logger) *StateRepository {
	return &StateRepository{db: db, logger: logger}
}

func (r *StateRepository) GetState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error) {
	raw, err := r.readState(ctx, r.db, campaignID, userID, false)
	if err != nil {
		return nil, err
	}

	return decodeState(raw, campaignID)
}

func (r *StateRepository) UpdateState(ctx context.Context, campaignID, userID string, fn func(*models.StateDocument) error) (*models.StateDocument, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin state transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	raw, err := r.readState(ctx, tx, campaignID, userID, true)
	if err != nil {
		return nil, err
	}

	doc, err := decodeState(raw, campaignID)
	if err != nil {
		return nil, err
	}

	if err := fn(doc); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state for campaign %s: %w", campaignID, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE campaigns SET state = $1, updated_at = $2 WHERE id = $3",
		encoded, time.Now().UTC(), campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to update state for campaign %s: %w", campaignID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit state update: %w", err)
	}

	return doc, nil
}

func (r *StateRepository) InitializeState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error) {
	return persistence.InitializeVia(ctx, r, campaignID, userID)
}

func (r *StateRepository) PatchState(ctx context.Context, campaignID, userID string, patch *models.StatePatch) (*models.StateDocument, error) {
	return persistence.PatchVia(ctx, r, campaignID, userID, patch)
}

func (r *StateRepository) ReplaceState(ctx context.Context, campaignID, userID string, doc *models.StateDocument) error {
	return persistence.ReplaceVia(ctx, r, campaignID, userID, doc)
}

func (r *StateRepository) AppendTrace(ctx context.Context, campaignID, userID string, event models.TraceEvent) error {
	return persistence.AppendTraceVia(ctx, r, campaignID, userID, event)
}

// ReadTraceFrom reads without the row lock; MVCC gives a consistent snapshot.
func (r *StateRepository) ReadTraceFrom(ctx context.Context, campaignID, userID string, from int) ([]models.TraceEvent, models.Phase, int, error) {
	raw, err := r.readState(ctx, r.db, campaignID, userID, false)
	if err != nil {
		return nil, "", 0, err
	}

	doc, err := decodeState(raw, campaignID)
	if err != nil {
		return nil, "", 0, err
	}

	return persistence.TraceFrom(doc.Trace, from), doc.Phase, len(doc.Trace), nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *StateRepository) readState(ctx context.Context, q querier, campaignID, userID string, forUpdate bool) ([]byte, error) {
	query := "SELECT state FROM campaigns WHERE id = $1"

	args := []any{campaignID}
	if userID != "" {
		query += " AND user_id = $2"

		args = append(args, userID)
	}

	if forUpdate {
		query += " FOR UPDATE"
	}

	var raw []byte

	err := q.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to read state for campaign %s: %w", campaignID, err)
	}

	return raw, nil
}

func decodeState(raw []byte, campaignID string) (*models.StateDocument, error) {
	if len(raw) == 0 {
		return &models.StateDocument{Phase: models.PhaseIdle}, nil
	}

	var doc models.StateDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode state for campaign %s: %w", campaignID, err)
	}

	return &doc, nil
}
