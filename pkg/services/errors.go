// Package services implements the campaign business operations exposed over
// the API: lifecycle, user actions on a paused run and the follow-up queue.
package services

import (
	"errors"
	"fmt"
)

// Validation errors (400 Bad Request).
var (
	ErrEmptyUserID        = errors.New("user ID cannot be empty")
	ErrEmptyJobID         = errors.New("job ID cannot be empty")
	ErrInvalidContactRole = errors.New("invalid contact role")
	ErrNoContactsSelected = errors.New("at least one contact must be selected")
	ErrEmptyFeedbackText  = errors.New("feedback text cannot be empty")
	ErrInvalidStatus      = errors.New("invalid followup status")
)

// Business logic conflicts (409 Conflict).
var (
	ErrNotAwaitingReview = errors.New("campaign is not awaiting user review")
	ErrRunInProgress     = errors.New("a run is currently in progress")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyUserID) ||
		errors.Is(err, ErrEmptyJobID) ||
		errors.Is(err, ErrInvalidContactRole) ||
		errors.Is(err, ErrNoContactsSelected) ||
		errors.Is(err, ErrEmptyFeedbackText) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsConflictError reports whether an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotAwaitingReview) ||
		errors.Is(err, ErrRunInProgress)
}
