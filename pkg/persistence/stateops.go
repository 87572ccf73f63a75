package persistence

import (
	"context"
	"time"

	"github.com/outriq/outriq/pkg/models"
)

// Updater is the locked read-modify-write primitive every driver provides.
// The shared state operations below are built on it so that merge, append and
// initialization semantics are identical across backends.
type Updater interface {
	UpdateState(ctx context.Context, campaignID, userID string, fn func(*models.StateDocument) error) (*models.StateDocument, error)
}

// InitializeVia writes the default document unless a document with a
// non-empty steps map already exists. The version counter survives across
// re-initializations so observers can detect a structural reset.
func InitializeVia(ctx context.Context, u Updater, campaignID, userID string) (*models.StateDocument, error) {
	return u.UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		if doc.Initialized() {
			return nil
		}

		fresh := models.NewStateDocument()
		fresh.Version = doc.Version + 1
		*doc = *fresh

		return nil
	})
}

// PatchVia merges a typed partial update into the current document.
func PatchVia(ctx context.Context, u Updater, campaignID, userID string, patch *models.StatePatch) (*models.StateDocument, error) {
	return u.UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		patch.Apply(doc)

		return nil
	})
}

// ReplaceVia swaps the whole document.
func ReplaceVia(ctx context.Context, u Updater, campaignID, userID string, next *models.StateDocument) error {
	_, err := u.UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		*doc = *next

		return nil
	})

	return err
}

// AppendTraceVia appends one event, stamping the timestamp at append time
// when the emitter left it zero. Ordering in the trace is therefore always
// non-decreasing by append time even when emitters race.
func AppendTraceVia(ctx context.Context, u Updater, campaignID, userID string, event models.TraceEvent) error {
	_, err := u.UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		doc.Trace = append(doc.Trace, event)

		return nil
	})

	return err
}

// TraceFrom clamps from into [0, len(trace)] and returns the tail. A from
// beyond the current length means the store was reset under the reader and
// is treated as "no new events", never as an error.
func TraceFrom(trace []models.TraceEvent, from int) []models.TraceEvent {
	if from < 0 {
		from = 0
	}

	if from > len(trace) {
		from = len(trace)
	}

	tail := make([]models.TraceEvent, len(trace)-from)
	copy(tail, trace[from:])

	return tail
}
