package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ArtifactName keys the artifacts map. Each step writes exactly one artifact
// under a fixed name; re-runs overwrite, nothing ever deletes.
type ArtifactName string

const (
	ArtifactContacts     ArtifactName = "contacts"
	ArtifactEvidencePack ArtifactName = "evidence_pack"
	ArtifactDrafts       ArtifactName = "drafts"
	ArtifactFollowups    ArtifactName = "followups"
)

// ArtifactForStep maps a step to the artifact name it writes.
var ArtifactForStep = map[StepName]ArtifactName{
	StepResearch: ArtifactContacts,
	StepEvidence: ArtifactEvidencePack,
	StepDrafts:   ArtifactDrafts,
	StepSchedule: ArtifactFollowups,
}

// DraftMessage is one generated outreach message.
type DraftMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FollowupDraft is a delayed message as produced by the draft step, before
// the scheduler turns it into a queue item with a concrete due date.
type FollowupDraft struct {
	Day     int    `json:"day"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DraftsArtifact is the draft step's output: the initial messages per draft
// type plus the follow-up drafts the scheduler flattens into the queue.
type DraftsArtifact struct {
	Messages  map[string]DraftMessage    `json:"messages"`
	Followups map[string][]FollowupDraft `json:"followups"`
}

// FollowupStatus is the lifecycle state of one queued follow-up.
type FollowupStatus string

const (
	FollowupPending FollowupStatus = "pending"
	FollowupSent    FollowupStatus = "sent"
	FollowupSkipped FollowupStatus = "skipped"
)

// FollowupItem is one entry of the derived follow-up queue. The queue is
// always materialized sorted by DueAt ascending; there is exactly one item
// per (DraftType, Day) pair by construction.
type FollowupItem struct {
	DraftType string         `json:"draft_type"`
	Day       int            `json:"day"`
	DueAt     time.Time      `json:"due_at"`
	Status    FollowupStatus `json:"status"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
}

// Artifacts holds the durable step outputs under explicitly named fields.
// EvidencePack stays raw because its shape is owned by the evidence agent.
type Artifacts struct {
	Contacts     []Contact       `json:"contacts,omitempty"`
	EvidencePack json.RawMessage `json:"evidence_pack,omitempty"`
	Drafts       *DraftsArtifact `json:"drafts,omitempty"`
	Followups    []FollowupItem  `json:"followups,omitempty"`
}

// Set stores a raw step payload under its fixed name, decoding into the
// typed field where the orchestrator later branches on the content.
func (a *Artifacts) Set(name ArtifactName, payload json.RawMessage) error {
	switch name {
	case ArtifactContacts:
		var contacts []Contact
		if err := json.Unmarshal(payload, &contacts); err != nil {
			return fmt.Errorf("invalid contacts artifact: %w", err)
		}

		a.Contacts = contacts
	case ArtifactEvidencePack:
		a.EvidencePack = payload
	case ArtifactDrafts:
		var drafts DraftsArtifact
		if err := json.Unmarshal(payload, &drafts); err != nil {
			return fmt.Errorf("invalid drafts artifact: %w", err)
		}

		a.Drafts = &drafts
	case ArtifactFollowups:
		var followups []FollowupItem
		if err := json.Unmarshal(payload, &followups); err != nil {
			return fmt.Errorf("invalid followups artifact: %w", err)
		}

		a.Followups = followups
	default:
		return fmt.Errorf("unknown artifact name: %s", name)
	}

	return nil
}

// Get returns the stored payload for name as raw JSON, or nil when the
// artifact has not been produced yet.
func (a *Artifacts) Get(name ArtifactName) (json.RawMessage, error) {
	switch name {
	case ArtifactContacts:
		if a.Contacts == nil {
			return nil, nil
		}

		return json.Marshal(a.Contacts)
	case ArtifactEvidencePack:
		return a.EvidencePack, nil
	case ArtifactDrafts:
		if a.Drafts == nil {
			return nil, nil
		}

		return json.Marshal(a.Drafts)
	case ArtifactFollowups:
		if a.Followups == nil {
			return nil, nil
		}

		return json.Marshal(a.Followups)
	default:
		return nil, fmt.Errorf("unknown artifact name: %s", name)
	}
}
