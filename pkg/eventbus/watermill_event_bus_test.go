package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outriq/outriq/pkg/channels/gochannel"
	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	return NewWatermillEventBus(pub, sub)
}

func TestPublishTrace_CarriesEnvelopeAndMetadata(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	messages, err := bus.subscriber.Subscribe(ctx, events.TraceTopic)
	require.NoError(t, err)

	event := events.StepDone("run-1", models.StepResearch, "found contacts")
	require.NoError(t, bus.PublishTrace(ctx, "camp-1", event))

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, "camp-1", msg.Metadata.Get(events.CampaignIDMetadataKey))
		assert.Equal(t, string(models.TraceStepDone), msg.Metadata.Get(events.EventTypeMetadataKey))

		var envelope events.TraceEnvelope

		require.NoError(t, json.Unmarshal(msg.Payload, &envelope))
		assert.Equal(t, "camp-1", envelope.CampaignID)
		assert.Equal(t, models.TraceStepDone, envelope.Event.Type)
		assert.Equal(t, "found contacts", envelope.Event.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestFollowupDue_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)
	received := make(chan events.FollowupDue, 1)

	require.NoError(t, bus.SubscribeFollowupDue(ctx, func(_ context.Context, notice events.FollowupDue) error {
		received <- notice

		return nil
	}))

	notice := events.FollowupDue{
		CampaignID: "camp-1",
		UserID:     "user-1",
		Item: models.FollowupItem{
			DraftType: "recruiter_email",
			Day:       3,
			Status:    models.FollowupPending,
			Subject:   "Nudge",
		},
	}
	require.NoError(t, bus.PublishFollowupDue(ctx, notice))

	select {
	case got := <-received:
		assert.Equal(t, notice.CampaignID, got.CampaignID)
		assert.Equal(t, notice.Item.DraftType, got.Item.DraftType)
		assert.Equal(t, notice.Item.Day, got.Item.Day)
	case <-time.After(5 * time.Second):
		t.Fatal("notice never delivered")
	}
}
