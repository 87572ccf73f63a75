// Package file provides file-based persistence for campaigns. One JSON
// document per campaign; intended for development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root         string
	campaignRepo *CampaignRepository
	stateRepo    *StateRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	locks := newKeyedMutex()

	return &Persistence{
		root:         cleanRoot,
		campaignRepo: &CampaignRepository{root: cleanRoot, locks: locks},
		stateRepo:    &StateRepository{root: cleanRoot, locks: locks},
	}
}

func (fp *Persistence) Campaigns() persistence.CampaignRepository {
	return fp.campaignRepo
}

func (fp *Persistence) States() persistence.StateRepository {
	return fp.stateRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// keyedMutex hands out one mutex per campaign id, serializing the
// read-modify-write cycle per record without a global lock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) forKey(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}

	return lock
}

func campaignPath(root, id string) string {
	return filepath.Join(root, "campaigns", id+".json")
}

func readCampaign(root, id string) (*models.Campaign, error) {
	data, err := os.ReadFile(campaignPath(root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to read campaign file: %w", err)
	}

	var campaign models.Campaign
	if err := json.Unmarshal(data, &campaign); err != nil {
		return nil, fmt.Errorf("failed to decode campaign %s: %w", id, err)
	}

	return &campaign, nil
}

// writeCampaign writes atomically via temp file and rename so that the
// non-locking trace reads never observe a torn document.
func writeCampaign(root string, campaign *models.Campaign) error {
	dir := filepath.Join(root, "campaigns")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create campaigns directory: %w", err)
	}

	data, err := json.MarshalIndent(campaign, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode campaign %s: %w", campaign.ID, err)
	}

	tmp, err := os.CreateTemp(dir, campaign.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write campaign %s: %w", campaign.ID, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), campaignPath(root, campaign.ID)); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace campaign file: %w", err)
	}

	return nil
}
