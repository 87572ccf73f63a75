package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
)

// WatermillEventBus publishes over any watermill channel: Kafka in
// production, GoChannel in tests.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{publisher: pub, subscriber: sub}
}

func (eb *WatermillEventBus) PublishTrace(ctx context.Context, campaignID string, event models.TraceEvent) error {
	payload, err := json.Marshal(events.TraceEnvelope{CampaignID: campaignID, Event: event})
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.CampaignIDMetadataKey, campaignID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.Type))

	return eb.publisher.Publish(events.TraceTopic, msg)
}

func (eb *WatermillEventBus) PublishFollowupDue(ctx context.Context, notice events.FollowupDue) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.CampaignIDMetadataKey, notice.CampaignID)

	return eb.publisher.Publish(events.FollowupDueTopic, msg)
}

func (eb *WatermillEventBus) SubscribeFollowupDue(ctx context.Context, handler FollowupDueHandler) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.FollowupDueTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var notice events.FollowupDue

			if err := json.Unmarshal(msg.Payload, &notice); err != nil {
				msg.Nack()

				continue
			}

			if err := handler(ctx, notice); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
