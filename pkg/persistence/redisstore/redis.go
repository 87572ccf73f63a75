// Package redisstore provides Redis persistence for campaigns. Each campaign
// is one JSON value; the per-record lock is a SET NX key with expiry, so the
// read-modify-write cycle stays exclusive across worker processes.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

const (
	campaignKeyPrefix = "outriq:campaign:"
	campaignIndexKey  = "outriq:campaigns"

	lockTTL        = 5 * time.Second
	lockRetryDelay = 25 * time.Millisecond
	lockWait       = 5 * time.Second
)

// ErrLockTimeout indicates the record lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for campaign lock")

// releaseScript deletes the lock only when the caller still holds it.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// Persistence implements the persistence layer for Redis.
type Persistence struct {
	client       *redis.Client
	logger       *slog.Logger
	campaignRepo *CampaignRepository
	stateRepo    *StateRepository
}

// NewPersistence connects to Redis using a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Persistence{
		client:       client,
		logger:       logger,
		campaignRepo: &CampaignRepository{client: client},
		stateRepo:    &StateRepository{client: client, logger: logger},
	}, nil
}

func (p *Persistence) Campaigns() persistence.CampaignRepository {
	return p.campaignRepo
}

func (p *Persistence) States() persistence.StateRepository {
	return p.stateRepo
}

// HealthCheck verifies the Redis connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func campaignKey(id string) string {
	return campaignKeyPrefix + id
}

func lockKey(id string) string {
	return campaignKeyPrefix + id + ":lock"
}

// acquireLock spins on SET NX until the lock is held or lockWait elapses.
func acquireLock(ctx context.Context, client *redis.Client, campaignID string) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(lockWait)

	for {
		ok, err := client.SetNX(ctx, lockKey(campaignID), token, lockTTL).Result()
		if err != nil {
			return "", fmt.Errorf("failed to acquire campaign lock: %w", err)
		}

		if ok {
			return token, nil
		}

		if time.Now().After(deadline) {
			return "", ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}

func releaseLock(ctx context.Context, client *redis.Client, campaignID, token string) error {
	return releaseScript.Run(ctx, client, []string{lockKey(campaignID)}, token).Err()
}

func readCampaign(ctx context.Context, client *redis.Client, id string) (*models.Campaign, error) {
	data, err := client.Get(ctx, campaignKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to read campaign %s: %w", id, err)
	}

	var campaign models.Campaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		return nil, fmt.Errorf("failed to decode campaign %s: %w", id, err)
	}

	return &campaign, nil
}

func writeCampaign(ctx context.Context, client *redis.Client, campaign *models.Campaign) error {
	data, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("failed to encode campaign %s: %w", campaign.ID, err)
	}

	pipe := client.TxPipeline()
	pipe.Set(ctx, campaignKey(campaign.ID), data, 0)
	pipe.SAdd(ctx, campaignIndexKey, campaign.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write campaign %s: %w", campaign.ID, err)
	}

	return nil
}
