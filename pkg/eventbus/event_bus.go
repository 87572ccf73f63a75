// Package eventbus mirrors campaign activity onto an external message bus for
// integrations such as analytics pipelines and outbound email senders. The
// mirror is non-authoritative: clients observing a run are always served from
// the durable trace log, never from the bus.
package eventbus

import (
	"context"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
)

// FollowupDueHandler consumes due follow-up notifications. Returning an
// error nacks the message for redelivery.
type FollowupDueHandler func(ctx context.Context, notice events.FollowupDue) error

// EventBus publishes campaign activity for external consumers.
type EventBus interface {
	// PublishTrace mirrors one trace event under the campaign's key.
	PublishTrace(ctx context.Context, campaignID string, event models.TraceEvent) error

	// PublishFollowupDue announces that a queued follow-up has come due.
	PublishFollowupDue(ctx context.Context, notice events.FollowupDue) error

	// SubscribeFollowupDue starts consuming due notifications until the
	// context is canceled.
	SubscribeFollowupDue(ctx context.Context, handler FollowupDueHandler) error

	Close() error
}
