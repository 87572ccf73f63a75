// Package workflow drives the campaign phase state machine: it sequences
// step executors, persists their results and leaves a trace event behind
// every transition. All progress lives in the state store, so a run on one
// worker process is fully observable from any other.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/otelhelper"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/steps"
)

// ErrContactsNotSelected is the precondition failure of a draft_only run
// started before the user picked contacts.
var ErrContactsNotSelected = errors.New("draft_only run requires selected contacts")

// Mirror republishes trace events to an external bus. Non-authoritative:
// stream clients are always served from the durable trace, never from here.
type Mirror interface {
	PublishTrace(ctx context.Context, campaignID string, event models.TraceEvent) error
}

// Orchestrator coordinates campaign runs.
type Orchestrator struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *steps.Registry
	jobs        JobSource
	candidates  ProfileSource
	mirror      Mirror
	tracer      trace.Tracer
}

// NewOrchestrator creates an orchestrator over the given store and registry.
func NewOrchestrator(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *steps.Registry,
	jobs JobSource,
	candidates ProfileSource,
) *Orchestrator {
	return &Orchestrator{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		jobs:        jobs,
		candidates:  candidates,
	}
}

// WithMirror enables trace event mirroring to an external bus.
func (o *Orchestrator) WithMirror(mirror Mirror) *Orchestrator {
	o.mirror = mirror

	return o
}

// WithTracer enables span creation around runs and steps.
func (o *Orchestrator) WithTracer(tracer trace.Tracer) *Orchestrator {
	o.tracer = tracer

	return o
}

// StartRun launches a run as a supervised detached goroutine and returns its
// run id immediately; the caller never blocks on workflow completion. The id
// only needs to be unique, not unguessable.
func (o *Orchestrator) StartRun(ctx context.Context, campaignID, userID string, mode models.RunMode) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("invalid run mode: %s", mode)
	}

	// Reject unknown campaigns up front so the detached run always has a
	// record to write its failures to.
	if _, err := o.persistence.Campaigns().GetByID(ctx, campaignID, userID); err != nil {
		return "", err
	}

	runID := fmt.Sprintf("%s-%d", campaignID, time.Now().UnixMilli())

	go o.supervise(context.WithoutCancel(ctx), campaignID, userID, runID, mode)

	return runID, nil
}

// supervise observes the detached run to its end. A panic or error in the
// run procedure is persisted as a terminal error phase; it never vanishes
// silently.
func (o *Orchestrator) supervise(ctx context.Context, campaignID, userID, runID string, mode models.RunMode) {
	logger := o.logger.With("campaign_id", campaignID, "run_id", runID, "mode", mode)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Run panicked", "panic", r)
			o.failRun(ctx, campaignID, userID, runID, fmt.Sprintf("run panicked: %v", r))
		}
	}()

	logger.InfoContext(ctx, "Starting campaign run")

	if err := o.run(ctx, campaignID, userID, runID, mode); err != nil {
		logger.ErrorContext(ctx, "Run failed", "error", err)
		o.failRun(ctx, campaignID, userID, runID, err.Error())

		return
	}

	logger.InfoContext(ctx, "Campaign run finished")
}

func (o *Orchestrator) run(ctx context.Context, campaignID, userID, runID string, mode models.RunMode) error {
	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "workflow.run",
			attribute.String(otelhelper.CampaignIDKey, campaignID),
			attribute.String(otelhelper.RunIDKey, runID),
			attribute.String(otelhelper.RunModeKey, string(mode)),
		)
		defer span.End()
	}

	states := o.persistence.States()

	st, err := states.GetState(ctx, campaignID, userID)
	if err != nil {
		return fmt.Errorf("failed to load campaign state: %w", err)
	}

	if !st.Initialized() {
		st, err = states.InitializeState(ctx, campaignID, userID)
		if err != nil {
			return fmt.Errorf("failed to initialize campaign state: %w", err)
		}
	}

	campaign, err := o.persistence.Campaigns().GetByID(ctx, campaignID, userID)
	if err != nil {
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	job, err := o.jobs.Job(ctx, campaign.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job data: %w", err)
	}

	candidate, err := o.candidates.Profile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load candidate profile: %w", err)
	}

	if err := o.setPhase(ctx, campaignID, userID, models.PhaseRunning); err != nil {
		return err
	}

	o.appendTrace(ctx, campaignID, userID, events.WorkflowStart(runID, mode))

	input := steps.Input{
		CampaignID: campaignID,
		UserID:     userID,
		RunID:      runID,
		Job:        job,
		Candidate:  candidate,
		Prior:      st,
	}

	if mode == models.ModeFull || mode == models.ModeResearchOnly {
		o.runStep(ctx, campaignID, userID, runID, models.StepResearch, input)

		// Reload before branching: users may have selected contacts or added
		// feedback while the step was executing.
		if input.Prior, err = states.GetState(ctx, campaignID, userID); err != nil {
			return fmt.Errorf("failed to reload campaign state: %w", err)
		}
	}

	if mode == models.ModeFull {
		o.runStep(ctx, campaignID, userID, runID, models.StepEvidence, input)

		if input.Prior, err = states.GetState(ctx, campaignID, userID); err != nil {
			return fmt.Errorf("failed to reload campaign state: %w", err)
		}
	}

	if mode == models.ModeFull || mode == models.ModeDraftOnly {
		if len(input.Prior.SelectedContacts) == 0 {
			if mode == models.ModeDraftOnly {
				return ErrContactsNotSelected
			}

			// Expected pause point of a full run, not an error: hand control
			// back to the user to pick contacts.
			if err := o.setPhase(ctx, campaignID, userID, models.PhaseWaitingUser); err != nil {
				return err
			}

			o.appendTrace(ctx, campaignID, userID, events.WaitingUser(runID, events.NeedSelectContacts))

			return nil
		}

		o.runStep(ctx, campaignID, userID, runID, models.StepDrafts, input)

		if input.Prior, err = states.GetState(ctx, campaignID, userID); err != nil {
			return fmt.Errorf("failed to reload campaign state: %w", err)
		}

		o.runStep(ctx, campaignID, userID, runID, models.StepSchedule, input)
	}

	// Control always returns to the user after producing artifacts; done is
	// reached only through explicit finalization.
	if err := o.setPhase(ctx, campaignID, userID, models.PhaseWaitingUser); err != nil {
		return err
	}

	o.appendTrace(ctx, campaignID, userID, events.WorkflowComplete(runID, "all requested steps finished"))

	return nil
}

// runStep applies the step protocol. A failing step is recorded and
// isolated: the run continues and the branching logic above decides what
// happens next.
func (o *Orchestrator) runStep(ctx context.Context, campaignID, userID, runID string, step models.StepName, input steps.Input) {
	logger := o.logger.With("campaign_id", campaignID, "run_id", runID, "step", step)

	var span trace.Span

	if o.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "workflow.step",
			attribute.String(otelhelper.CampaignIDKey, campaignID),
			attribute.String(otelhelper.StepNameKey, string(step)),
		)
		defer span.End()
	}

	fail := func(err error) {
		if span != nil {
			otelhelper.SetError(span, err)
		}

		o.stepFailed(ctx, campaignID, userID, runID, step, err)
	}

	if err := o.setStepStatus(ctx, campaignID, userID, step, models.StepStatusRunning, ""); err != nil {
		logger.ErrorContext(ctx, "Failed to mark step running", "error", err)
	}

	o.appendTrace(ctx, campaignID, userID, events.StepStart(runID, step))

	executor, err := o.registry.ExecutorFor(step)
	if err != nil {
		fail(err)

		return
	}

	sink := &traceSink{orchestrator: o, campaignID: campaignID, userID: userID}

	result, err := executor.Execute(ctx, input, sink)
	if err != nil {
		fail(err)

		return
	}

	artifactName := models.ArtifactForStep[step]

	if err := o.registry.ValidateArtifact(artifactName, result.Artifact); err != nil {
		fail(err)

		return
	}

	// Artifact write and step completion land in one locked update so
	// observers never see a done step without its artifact.
	_, err = o.persistence.States().UpdateState(ctx, campaignID, userID, func(doc *models.StateDocument) error {
		if err := doc.Artifacts.Set(artifactName, result.Artifact); err != nil {
			return err
		}

		state := doc.Steps[step]
		state.Status = models.StepStatusDone
		state.UpdatedAt = time.Now().UTC()
		state.Error = ""
		doc.Steps[step] = state

		return nil
	})
	if err != nil {
		fail(err)

		return
	}

	summary := result.Summary
	if summary == "" {
		summary = fmt.Sprintf("%s step completed", step)
	}

	o.appendTrace(ctx, campaignID, userID, events.StepDone(runID, step, summary))
	o.appendTrace(ctx, campaignID, userID, events.Artifact(runID, artifactName, result.Artifact))

	logger.InfoContext(ctx, "Step completed", "summary", summary)
}

func (o *Orchestrator) stepFailed(ctx context.Context, campaignID, userID, runID string, step models.StepName, stepErr error) {
	o.logger.ErrorContext(ctx, "Step failed", "campaign_id", campaignID, "step", step, "error", stepErr)

	if err := o.setStepStatus(ctx, campaignID, userID, step, models.StepStatusError, stepErr.Error()); err != nil {
		o.logger.ErrorContext(ctx, "Failed to record step failure", "campaign_id", campaignID, "step", step, "error", err)
	}

	o.appendTrace(ctx, campaignID, userID, events.StepError(runID, step, stepErr))
}

// failRun records a run-level failure: terminal error phase plus one error
// trace event. Accumulated artifacts and trace history stay untouched.
func (o *Orchestrator) failRun(ctx context.Context, campaignID, userID, runID, message string) {
	if err := o.setPhase(ctx, campaignID, userID, models.PhaseError); err != nil {
		o.logger.ErrorContext(ctx, "Failed to persist error phase", "campaign_id", campaignID, "error", err)
	}

	o.appendTrace(ctx, campaignID, userID, events.Error(runID, message))
}

func (o *Orchestrator) setPhase(ctx context.Context, campaignID, userID string, phase models.Phase) error {
	_, err := o.persistence.States().PatchState(ctx, campaignID, userID, &models.StatePatch{Phase: &phase})
	if err != nil {
		return fmt.Errorf("failed to set phase %s: %w", phase, err)
	}

	return nil
}

func (o *Orchestrator) setStepStatus(ctx context.Context, campaignID, userID string, step models.StepName, status models.StepStatus, stepErr string) error {
	now := time.Now().UTC()

	_, err := o.persistence.States().PatchState(ctx, campaignID, userID, &models.StatePatch{
		Steps: map[models.StepName]models.StepPatch{
			step: {Status: &status, UpdatedAt: &now, Error: &stepErr},
		},
	})

	return err
}

func (o *Orchestrator) appendTrace(ctx context.Context, campaignID, userID string, event models.TraceEvent) {
	if err := o.persistence.States().AppendTrace(ctx, campaignID, userID, event); err != nil {
		o.logger.ErrorContext(ctx, "Failed to append trace event", "campaign_id", campaignID, "type", event.Type, "error", err)
	}

	if o.mirror != nil {
		if err := o.mirror.PublishTrace(ctx, campaignID, event); err != nil {
			o.logger.WarnContext(ctx, "Failed to mirror trace event", "campaign_id", campaignID, "type", event.Type, "error", err)
		}
	}
}

// traceSink lets executors publish step_progress events without knowing how
// they are persisted.
type traceSink struct {
	orchestrator *Orchestrator
	campaignID   string
	userID       string
}

func (s *traceSink) Emit(ctx context.Context, event models.TraceEvent) error {
	s.orchestrator.appendTrace(ctx, s.campaignID, s.userID, event)

	return nil
}
