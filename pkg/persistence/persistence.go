// Package persistence provides the data storage abstraction for campaigns
// and their workflow state documents.
package persistence

import (
	"context"

	"github.com/outriq/outriq/pkg/models"
)

// CampaignRepository stores campaign identity records.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id, userID string) (*models.Campaign, error)
	List(ctx context.Context, userID string) ([]*models.Campaign, error)
}

// StateRepository stores the per-campaign state document. Every mutation runs
// under a per-record exclusive lock held for one read-modify-write cycle, so
// concurrent writers never lose each other's updates. Reads never lock.
type StateRepository interface {
	// GetState returns the state document, or ErrCampaignNotFound.
	GetState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error)

	// InitializeState writes the default document only when no document with
	// a non-empty steps map exists yet. Idempotent under concurrent callers;
	// returns the document that is current after the call.
	InitializeState(ctx context.Context, campaignID, userID string) (*models.StateDocument, error)

	// PatchState merges a typed partial update into the current document and
	// returns the merged result. ErrCampaignNotFound if the campaign does not
	// exist; it is never created implicitly.
	PatchState(ctx context.Context, campaignID, userID string, patch *models.StatePatch) (*models.StateDocument, error)

	// ReplaceState swaps the whole document.
	ReplaceState(ctx context.Context, campaignID, userID string, doc *models.StateDocument) error

	// UpdateState runs fn on the current document under the record lock and
	// persists the result. It is the primitive PatchState and AppendTrace are
	// built on; an error from fn aborts the write.
	UpdateState(ctx context.Context, campaignID, userID string, fn func(*models.StateDocument) error) (*models.StateDocument, error)

	// AppendTrace appends one event to the trace, stamping the timestamp when
	// the emitter left it zero. N concurrent appends always grow the trace by
	// exactly N.
	AppendTrace(ctx context.Context, campaignID, userID string, event models.TraceEvent) error

	// ReadTraceFrom returns trace[from:], the current phase and the total
	// trace length without taking the record lock. A from beyond the current
	// length yields no events, never an error.
	ReadTraceFrom(ctx context.Context, campaignID, userID string, from int) ([]models.TraceEvent, models.Phase, int, error)
}

// Persistence aggregates the repositories of one storage backend.
type Persistence interface {
	Campaigns() CampaignRepository
	States() StateRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
