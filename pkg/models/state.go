package models

import "time"

// Phase represents the top-level workflow state of a campaign.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseRunning     Phase = "running"
	PhaseWaitingUser Phase = "waiting_user"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// Terminal reports whether the phase ends the current run. Terminal phases
// end the run, not the campaign: a new StartRun moves the phase back to
// running.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// StepName identifies one of the four tracked workflow steps.
type StepName string

const (
	StepResearch StepName = "research"
	StepEvidence StepName = "evidence"
	StepDrafts   StepName = "drafts"
	StepSchedule StepName = "schedule"
)

// StepNames lists every tracked step in execution order.
var StepNames = []StepName{StepResearch, StepEvidence, StepDrafts, StepSchedule}

// StepStatus represents the lifecycle state of a single step.
type StepStatus string

const (
	StepStatusQueued  StepStatus = "queued"
	StepStatusRunning StepStatus = "running"
	StepStatusDone    StepStatus = "done"
	StepStatusError   StepStatus = "error"
)

// StepState is the per-step record inside the state document.
type StepState struct {
	Status    StepStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
	Error     string     `json:"error,omitempty"`
}

// ContactRole keys the selected_contacts map.
type ContactRole string

const (
	RoleRecruiter     ContactRole = "recruiter"
	RoleHiringManager ContactRole = "hiring_manager"
	RoleWarmIntro     ContactRole = "warm_intro"
)

// Contact is a discovered outreach target. Population of selected_contacts is
// an explicit user action and the sole gate for drafting in full mode.
type Contact struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	Email      string `json:"email,omitempty"`
	Source     string `json:"source,omitempty"`
}

// FeedbackEntry is one piece of user feedback, ordered by arrival.
type FeedbackEntry struct {
	Text      string    `json:"text"`
	Must      bool      `json:"must"`
	Timestamp time.Time `json:"timestamp"`
}

// Feedback accumulates global and per-draft-type feedback lists.
type Feedback struct {
	Global        []FeedbackEntry            `json:"global"`
	DraftSpecific map[string][]FeedbackEntry `json:"draft_specific"`
}

// StateDocument is the campaign's sole mutable payload. All writers go
// through the persistence layer's per-record lock; the trace is append-only
// and its length is the authoritative index for event streaming.
type StateDocument struct {
	Phase            Phase                   `json:"phase"`
	Steps            map[StepName]StepState  `json:"steps"`
	SelectedContacts map[ContactRole]Contact `json:"selected_contacts"`
	Feedback         Feedback                `json:"feedback"`
	Artifacts        Artifacts               `json:"artifacts"`
	Trace            []TraceEvent            `json:"trace"`
	Version          int                     `json:"version"`
}

// NewStateDocument returns the default document written by Initialize:
// phase idle, all four steps queued, empty maps, empty trace, version 1.
func NewStateDocument() *StateDocument {
	now := time.Now().UTC()

	steps := make(map[StepName]StepState, len(StepNames))
	for _, name := range StepNames {
		steps[name] = StepState{Status: StepStatusQueued, UpdatedAt: now}
	}

	return &StateDocument{
		Phase:            PhaseIdle,
		Steps:            steps,
		SelectedContacts: make(map[ContactRole]Contact),
		Feedback: Feedback{
			Global:        make([]FeedbackEntry, 0),
			DraftSpecific: make(map[string][]FeedbackEntry),
		},
		Trace:   make([]TraceEvent, 0),
		Version: 1,
	}
}

// Initialized reports whether the document has been through Initialize.
// A non-empty steps map is the marker; Initialize is idempotent against it.
func (d *StateDocument) Initialized() bool {
	return d != nil && len(d.Steps) > 0
}
