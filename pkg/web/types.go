// Package web provides HTTP request and response types for the campaign API.
package web

import "github.com/outriq/outriq/pkg/models"

// CreateCampaignRequest represents the request body for creating a campaign.
// ID is optional; the server generates one when absent.
type CreateCampaignRequest struct {
	ID    string `json:"id,omitempty"`
	JobID string `json:"job_id"       validate:"required"`
}

// StartRunRequest represents the request body for starting a workflow run.
type StartRunRequest struct {
	Mode string `json:"mode" validate:"required,oneof=full research_only draft_only"`
}

// StartRunResponse carries the identifier of the detached run.
type StartRunResponse struct {
	RunID string `json:"run_id"`
}

// SelectContactsRequest represents the request body for contact selection.
// Keys are contact roles, merged per role into the existing selection.
type SelectContactsRequest struct {
	Contacts map[models.ContactRole]models.Contact `json:"contacts" validate:"required,min=1"`
}

// AddFeedbackRequest represents the request body for adding feedback. An
// empty draft_type targets the global feedback list.
type AddFeedbackRequest struct {
	Text      string `json:"text"                 validate:"required"`
	Must      bool   `json:"must"`
	DraftType string `json:"draft_type,omitempty"`
}

// MarkFollowupRequest represents the request body for recording a follow-up
// outcome.
type MarkFollowupRequest struct {
	DraftType string `json:"draft_type" validate:"required"`
	Day       int    `json:"day"        validate:"min=0"`
	Status    string `json:"status"     validate:"required,oneof=pending sent skipped"`
}
