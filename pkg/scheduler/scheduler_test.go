package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outriq/outriq/pkg/models"
)

func TestBuildFollowupQueue_SortsByDueDate(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	queue := BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {
			{Day: 7, Subject: "Still interested"},
			{Day: 3, Subject: "Quick nudge"},
		},
		"hm_email": {
			{Day: 3, Subject: "Following up"},
		},
	}, start)

	require.Len(t, queue, 3)

	// Both day-3 items come before the day-7 item.
	assert.Equal(t, 3, queue[0].Day)
	assert.Equal(t, 3, queue[1].Day)
	assert.Equal(t, 7, queue[2].Day)

	// Draft types flatten alphabetically, so equal due dates keep hm first.
	assert.Equal(t, "hm_email", queue[0].DraftType)
	assert.Equal(t, "recruiter_email", queue[1].DraftType)

	for _, item := range queue {
		assert.Equal(t, models.FollowupPending, item.Status)
		assert.Equal(t, start.AddDate(0, 0, item.Day), item.DueAt)
	}
}

func TestBuildFollowupQueue_EmptyInput(t *testing.T) {
	assert.Empty(t, BuildFollowupQueue(nil, time.Now()))
	assert.Empty(t, BuildFollowupQueue(map[string][]models.FollowupDraft{}, time.Now()))
}

func TestDue_FiltersPendingPastItems(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	queue := BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {{Day: 1}, {Day: 3}, {Day: 10}},
	}, start)

	// Day 3 already sent; only day 1 remains due.
	queue, err := MarkStatus(queue, "recruiter_email", 3, models.FollowupSent)
	require.NoError(t, err)

	due := Due(queue, start.AddDate(0, 0, 5))
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Day)
}

func TestDue_NothingDueBeforeFirstItem(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	queue := BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {{Day: 3}},
	}, start)

	assert.Empty(t, Due(queue, start.AddDate(0, 0, 2)))
	// Boundary: an item is due at exactly its due time.
	assert.Len(t, Due(queue, start.AddDate(0, 0, 3)), 1)
}

func TestMarkStatus(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	queue := BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {{Day: 3}, {Day: 7}},
	}, start)

	queue, err := MarkStatus(queue, "recruiter_email", 7, models.FollowupSkipped)
	require.NoError(t, err)
	assert.Equal(t, models.FollowupSkipped, queue[1].Status)
	assert.Equal(t, models.FollowupPending, queue[0].Status)

	_, err = MarkStatus(queue, "recruiter_email", 99, models.FollowupSent)
	assert.ErrorIs(t, err, ErrFollowupNotFound)

	_, err = MarkStatus(queue, "unknown_type", 3, models.FollowupSent)
	assert.ErrorIs(t, err, ErrFollowupNotFound)
}
