package models

import "time"

// RunMode selects which steps a run executes.
type RunMode string

const (
	ModeFull         RunMode = "full"
	ModeResearchOnly RunMode = "research_only"
	ModeDraftOnly    RunMode = "draft_only"
)

// Valid reports whether the mode is a known member of the enumeration.
// Unknown modes are a caller error rejected at the API boundary.
func (m RunMode) Valid() bool {
	return m == ModeFull || m == ModeResearchOnly || m == ModeDraftOnly
}

// StepPatch is a partial update of one step's record.
type StepPatch struct {
	Status    *StepStatus `json:"status,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
	Error     *string     `json:"error,omitempty"`
}

// FeedbackPatch replaces feedback lists wholesale. Map keys merge, the list
// under a key is replaced as a unit, matching the document merge rules.
type FeedbackPatch struct {
	Global        []FeedbackEntry            `json:"global,omitempty"`
	DraftSpecific map[string][]FeedbackEntry `json:"draft_specific,omitempty"`
}

// ArtifactsPatch overwrites individual artifacts. A nil field leaves the
// stored artifact untouched; artifacts are only ever overwritten by re-runs,
// never deleted.
type ArtifactsPatch struct {
	Contacts     []Contact       `json:"contacts,omitempty"`
	EvidencePack []byte          `json:"evidence_pack,omitempty"`
	Drafts       *DraftsArtifact `json:"drafts,omitempty"`
	Followups    []FollowupItem  `json:"followups,omitempty"`
}

// StatePatch is a typed partial update of a state document. Nil fields are
// left untouched; maps merge per key with non-map values replaced wholesale.
// The trace is deliberately absent: it only grows through AppendTrace.
type StatePatch struct {
	Phase            *Phase                  `json:"phase,omitempty"`
	Steps            map[StepName]StepPatch  `json:"steps,omitempty"`
	SelectedContacts map[ContactRole]Contact `json:"selected_contacts,omitempty"`
	Feedback         *FeedbackPatch          `json:"feedback,omitempty"`
	Artifacts        *ArtifactsPatch         `json:"artifacts,omitempty"`
	Version          *int                    `json:"version,omitempty"`
}

// Apply merges the patch into doc. Sibling keys not named by the patch are
// never touched, which is what makes concurrent patches from the orchestrator
// and user actions composable under the store's per-record lock.
func (p *StatePatch) Apply(doc *StateDocument) {
	if p == nil || doc == nil {
		return
	}

	if p.Phase != nil {
		doc.Phase = *p.Phase
	}

	if len(p.Steps) > 0 {
		if doc.Steps == nil {
			doc.Steps = make(map[StepName]StepState, len(p.Steps))
		}

		for name, patch := range p.Steps {
			state := doc.Steps[name]

			if patch.Status != nil {
				state.Status = *patch.Status
			}

			if patch.UpdatedAt != nil {
				state.UpdatedAt = *patch.UpdatedAt
			} else if patch.Status != nil {
				state.UpdatedAt = time.Now().UTC()
			}

			if patch.Error != nil {
				state.Error = *patch.Error
			}

			doc.Steps[name] = state
		}
	}

	if len(p.SelectedContacts) > 0 {
		if doc.SelectedContacts == nil {
			doc.SelectedContacts = make(map[ContactRole]Contact, len(p.SelectedContacts))
		}

		for role, contact := range p.SelectedContacts {
			doc.SelectedContacts[role] = contact
		}
	}

	if p.Feedback != nil {
		if p.Feedback.Global != nil {
			doc.Feedback.Global = p.Feedback.Global
		}

		if len(p.Feedback.DraftSpecific) > 0 {
			if doc.Feedback.DraftSpecific == nil {
				doc.Feedback.DraftSpecific = make(map[string][]FeedbackEntry, len(p.Feedback.DraftSpecific))
			}

			for draftType, entries := range p.Feedback.DraftSpecific {
				doc.Feedback.DraftSpecific[draftType] = entries
			}
		}
	}

	if p.Artifacts != nil {
		if p.Artifacts.Contacts != nil {
			doc.Artifacts.Contacts = p.Artifacts.Contacts
		}

		if p.Artifacts.EvidencePack != nil {
			doc.Artifacts.EvidencePack = p.Artifacts.EvidencePack
		}

		if p.Artifacts.Drafts != nil {
			doc.Artifacts.Drafts = p.Artifacts.Drafts
		}

		if p.Artifacts.Followups != nil {
			doc.Artifacts.Followups = p.Artifacts.Followups
		}
	}

	if p.Version != nil {
		doc.Version = *p.Version
	}
}
