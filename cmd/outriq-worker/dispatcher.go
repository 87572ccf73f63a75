// Package main provides the Outriq worker, which scans campaigns for due
// follow-ups and publishes them for external senders.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/eventbus"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/scheduler"
)

// FollowupDispatcher periodically walks every campaign's follow-up queue and
// publishes a notification for each pending item that has come due. Delivery
// is at-least-once; consumers dedupe on (campaign, draft type, day) and the
// queue item stays pending until the user or sender marks it.
type FollowupDispatcher struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	cron        *cron.Cron

	mu       sync.Mutex
	notified map[string]struct{}
}

func NewFollowupDispatcher(logger *slog.Logger, persistence persistence.Persistence, eventBus eventbus.EventBus) *FollowupDispatcher {
	return &FollowupDispatcher{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		cron:        cron.New(),
		notified:    make(map[string]struct{}),
	}
}

// Start schedules scans on the given cron expression and blocks until the
// context is canceled.
func (d *FollowupDispatcher) Start(ctx context.Context, cronExpr string) error {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", cronExpr, err)
	}

	_, err := d.cron.AddFunc(cronExpr, func() {
		if err := d.Scan(ctx, time.Now().UTC()); err != nil {
			d.logger.ErrorContext(ctx, "Followup scan failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "Followup dispatcher started", "schedule", cronExpr)
	d.cron.Start()

	<-ctx.Done()

	stopCtx := d.cron.Stop()
	<-stopCtx.Done()

	return nil
}

// Scan publishes one notification per newly due follow-up across all
// campaigns.
func (d *FollowupDispatcher) Scan(ctx context.Context, asOf time.Time) error {
	campaigns, err := d.persistence.Campaigns().List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}

	var published int

	for _, campaign := range campaigns {
		doc, err := d.persistence.States().GetState(ctx, campaign.ID, campaign.UserID)
		if err != nil {
			d.logger.WarnContext(ctx, "Failed to load campaign state", "campaign_id", campaign.ID, "error", err)

			continue
		}

		for _, item := range scheduler.Due(doc.Artifacts.Followups, asOf) {
			key := fmt.Sprintf("%s/%s/%d", campaign.ID, item.DraftType, item.Day)

			d.mu.Lock()
			_, seen := d.notified[key]

			if !seen {
				d.notified[key] = struct{}{}
			}
			d.mu.Unlock()

			if seen {
				continue
			}

			notice := events.FollowupDue{
				CampaignID: campaign.ID,
				UserID:     campaign.UserID,
				Item:       item,
			}

			if err := d.eventBus.PublishFollowupDue(ctx, notice); err != nil {
				d.logger.ErrorContext(ctx, "Failed to publish due followup", "campaign_id", campaign.ID, "error", err)

				// Retry on the next scan.
				d.mu.Lock()
				delete(d.notified, key)
				d.mu.Unlock()

				continue
			}

			published++
		}
	}

	if published > 0 {
		d.logger.InfoContext(ctx, "Published due followups", "count", published)
	}

	return nil
}
