// Package models defines the core domain models for outreach campaign orchestration.
package models

import "time"

// Campaign is the unit of durable state tracking one user's outreach workflow
// for one job posting. It is created empty on first access and never hard
// deleted while a run is in progress.
type Campaign struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id" validate:"required"`
	JobID     string         `json:"job_id"`
	State     *StateDocument `json:"state,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// JobContext carries the scraped job posting data handed to step executors.
// Its shape is owned by the scraping subsystem and treated as opaque here.
type JobContext map[string]any

// CandidateProfile carries the candidate's resume data handed to step
// executors. Opaque for the same reason as JobContext.
type CandidateProfile map[string]any
