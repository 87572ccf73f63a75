// Package scheduler turns generated follow-up drafts into a due-date-ordered
// queue and answers due-now queries. Pure functions, no I/O.
package scheduler

import (
	"errors"
	"sort"
	"time"

	"github.com/outriq/outriq/pkg/models"
)

// ErrFollowupNotFound indicates no queue item matches the given draft type
// and day.
var ErrFollowupNotFound = errors.New("followup not found")

// BuildFollowupQueue flattens follow-up drafts per draft type into one queue
// with due_at = start + day days, stable-sorted ascending by due date. Items
// sharing a due date keep the flattening order, which iterates draft types
// alphabetically for determinism.
func BuildFollowupQueue(byDraftType map[string][]models.FollowupDraft, start time.Time) []models.FollowupItem {
	if start.IsZero() {
		start = time.Now().UTC()
	}

	draftTypes := make([]string, 0, len(byDraftType))
	for draftType := range byDraftType {
		draftTypes = append(draftTypes, draftType)
	}

	sort.Strings(draftTypes)

	queue := make([]models.FollowupItem, 0)

	for _, draftType := range draftTypes {
		for _, draft := range byDraftType[draftType] {
			queue = append(queue, models.FollowupItem{
				DraftType: draftType,
				Day:       draft.Day,
				DueAt:     start.AddDate(0, 0, draft.Day),
				Status:    models.FollowupPending,
				Subject:   draft.Subject,
				Body:      draft.Body,
			})
		}
	}

	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].DueAt.Before(queue[j].DueAt)
	})

	return queue
}

// Due returns the pending items whose due date has passed as of asOf.
func Due(queue []models.FollowupItem, asOf time.Time) []models.FollowupItem {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	due := make([]models.FollowupItem, 0)

	for _, item := range queue {
		if item.Status == models.FollowupPending && !item.DueAt.After(asOf) {
			due = append(due, item)
		}
	}

	return due
}

// MarkStatus sets the status of the first item matching (draftType, day);
// there is exactly one such item per pair by construction. Returns the
// updated queue.
func MarkStatus(queue []models.FollowupItem, draftType string, day int, status models.FollowupStatus) ([]models.FollowupItem, error) {
	for i := range queue {
		if queue[i].DraftType == draftType && queue[i].Day == day {
			queue[i].Status = status

			return queue, nil
		}
	}

	return queue, ErrFollowupNotFound
}
