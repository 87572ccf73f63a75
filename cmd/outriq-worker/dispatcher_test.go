package main

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outriq/outriq/pkg/channels/gochannel"
	"github.com/outriq/outriq/pkg/eventbus"
	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/log"
	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/persistence/file"
	"github.com/outriq/outriq/pkg/scheduler"
)

func setupDispatcher(t *testing.T) (*FollowupDispatcher, persistence.Persistence, <-chan events.FollowupDue) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	received := make(chan events.FollowupDue, 16)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, bus.SubscribeFollowupDue(ctx, func(_ context.Context, notice events.FollowupDue) error {
		received <- notice

		return nil
	}))

	return NewFollowupDispatcher(log.WithModule("test"), store, bus), store, received
}

func seedCampaign(t *testing.T, store persistence.Persistence, id string, start time.Time) {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, store.Campaigns().Create(ctx, &models.Campaign{ID: id, UserID: "user-1", JobID: "job-1"}))

	queue := scheduler.BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {{Day: 3, Subject: "Nudge"}, {Day: 30, Subject: "Later"}},
	}, start)

	_, err := store.States().UpdateState(ctx, id, "user-1", func(doc *models.StateDocument) error {
		doc.Artifacts.Followups = queue

		return nil
	})
	require.NoError(t, err)
}

func TestScan_PublishesOnlyDueItems(t *testing.T) {
	dispatcher, store, received := setupDispatcher(t)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedCampaign(t, store, "camp-1", start)

	require.NoError(t, dispatcher.Scan(context.Background(), start.AddDate(0, 0, 5)))

	select {
	case notice := <-received:
		assert.Equal(t, "camp-1", notice.CampaignID)
		assert.Equal(t, "user-1", notice.UserID)
		assert.Equal(t, 3, notice.Item.Day)
	case <-time.After(5 * time.Second):
		t.Fatal("no due notice published")
	}

	select {
	case extra := <-received:
		t.Fatalf("unexpected extra notice: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScan_DoesNotRepublishAcrossScans(t *testing.T) {
	dispatcher, store, received := setupDispatcher(t)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedCampaign(t, store, "camp-1", start)

	asOf := start.AddDate(0, 0, 5)
	require.NoError(t, dispatcher.Scan(context.Background(), asOf))
	require.NoError(t, dispatcher.Scan(context.Background(), asOf))

	<-received

	select {
	case extra := <-received:
		t.Fatalf("duplicate notice published: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScan_PicksUpNewlyDueItems(t *testing.T) {
	dispatcher, store, received := setupDispatcher(t)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedCampaign(t, store, "camp-1", start)

	require.NoError(t, dispatcher.Scan(context.Background(), start.AddDate(0, 0, 5)))
	<-received

	// Day 30 crosses its due date on a later scan.
	require.NoError(t, dispatcher.Scan(context.Background(), start.AddDate(0, 0, 31)))

	select {
	case notice := <-received:
		assert.Equal(t, 30, notice.Item.Day)
	case <-time.After(5 * time.Second):
		t.Fatal("newly due notice never published")
	}
}

func TestScan_SkipsMarkedItems(t *testing.T) {
	dispatcher, store, received := setupDispatcher(t)

	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedCampaign(t, store, "camp-1", start)

	_, err := store.States().UpdateState(context.Background(), "camp-1", "user-1", func(doc *models.StateDocument) error {
		queue, err := scheduler.MarkStatus(doc.Artifacts.Followups, "recruiter_email", 3, models.FollowupSkipped)
		if err != nil {
			return err
		}

		doc.Artifacts.Followups = queue

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, dispatcher.Scan(context.Background(), start.AddDate(0, 0, 5)))

	select {
	case notice := <-received:
		t.Fatalf("skipped item was published: %+v", notice)
	case <-time.After(100 * time.Millisecond):
	}
}
