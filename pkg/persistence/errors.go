// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrCampaignNotFound indicates no campaign exists for the given id and
	// user. Patch and AppendTrace surface it instead of creating records.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignAlreadyExists indicates a campaign with the same id already
	// exists for the user.
	ErrCampaignAlreadyExists = errors.New("campaign already exists")

	// ErrStateNotInitialized indicates the campaign exists but has no state
	// document yet.
	ErrStateNotInitialized = errors.New("campaign state not initialized")
)

// CampaignError wraps campaign-related storage errors with operation context.
type CampaignError struct {
	Op         string // Operation being performed (e.g. "GetState", "AppendTrace")
	CampaignID string
	Err        error
}

func (e *CampaignError) Error() string {
	return fmt.Sprintf("%s operation failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a new campaign error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{Op: op, CampaignID: campaignID, Err: err}
}

// IsCampaignNotFound checks if an error indicates a missing campaign.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsCampaignAlreadyExists checks if an error indicates a duplicate campaign.
func IsCampaignAlreadyExists(err error) bool {
	return errors.Is(err, ErrCampaignAlreadyExists)
}
