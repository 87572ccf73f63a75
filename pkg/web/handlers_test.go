package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outriq/outriq/pkg/events"
	"github.com/outriq/outriq/pkg/log"
	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/persistence/file"
	"github.com/outriq/outriq/pkg/scheduler"
	"github.com/outriq/outriq/pkg/services"
	"github.com/outriq/outriq/pkg/steps"
	"github.com/outriq/outriq/pkg/stream"
	"github.com/outriq/outriq/pkg/web"
	"github.com/outriq/outriq/pkg/workflow"
)

const testUser = "user-1"

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := log.WithModule("test")

	registry, err := steps.NewRegistry(logger)
	require.NoError(t, err)
	registry.Register(steps.NewScheduleExecutor())

	campaignService := services.NewCampaign(store)
	orchestrator := workflow.NewOrchestrator(logger, store, registry, workflow.EmptySources{}, workflow.EmptySources{})
	streamer := stream.NewStreamer(logger, store.States())
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(campaignService, orchestrator, streamer, registry, validate)

	app := fiber.New()

	campaigns := app.Group("/campaigns")
	campaigns.Post("/", handlers.CreateCampaign)
	campaigns.Get("/", handlers.ListCampaigns)
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Get("/:id/state", handlers.GetCampaignState)
	campaigns.Post("/:id/runs", handlers.StartRun)
	campaigns.Put("/:id/contacts", handlers.SelectContacts)
	campaigns.Post("/:id/feedback", handlers.AddFeedback)
	campaigns.Post("/:id/finalize", handlers.FinalizeCampaign)
	campaigns.Get("/:id/followups", handlers.GetFollowups)
	campaigns.Post("/:id/followups/status", handlers.MarkFollowup)
	campaigns.Get("/:id/events", handlers.StreamEvents)

	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(web.UserIDHeader, testUser)

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	var out T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func createCampaign(t *testing.T, app *fiber.App, id string) models.Campaign {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/campaigns/", web.CreateCampaignRequest{ID: id, JobID: "job-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decode[models.Campaign](t, resp)
}

func TestCreateCampaign(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful creation",
			requestBody:    web.CreateCampaignRequest{JobID: "job-1"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "validation error - missing job id",
			requestBody:    web.CreateCampaignRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp := doJSON(t, app, http.MethodPost, "/campaigns/", tt.requestBody)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				campaign := decode[models.Campaign](t, resp)
				assert.NotEmpty(t, campaign.ID)
				assert.Equal(t, testUser, campaign.UserID)
			}
		})
	}
}

func TestGetCampaignState(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	campaign := createCampaign(t, app, "camp-1")

	resp := doJSON(t, app, http.MethodGet, "/campaigns/"+campaign.ID+"/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decode[models.StateDocument](t, resp)
	assert.Equal(t, models.PhaseIdle, doc.Phase)
	assert.Len(t, doc.Steps, 4)

	resp = doJSON(t, app, http.MethodGet, "/campaigns/ghost/state", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartRun(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	campaign := createCampaign(t, app, "camp-1")

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/runs", web.StartRunRequest{Mode: "research_only"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	started := decode[web.StartRunResponse](t, resp)
	assert.NotEmpty(t, started.RunID)

	// Unknown mode never reaches the orchestrator.
	resp = doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/runs", web.StartRunRequest{Mode: "everything"})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartRun_UnknownCampaign(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/campaigns/ghost/runs", web.StartRunRequest{Mode: "full"})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectContacts(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)
	campaign := createCampaign(t, app, "camp-1")

	resp := doJSON(t, app, http.MethodPut, "/campaigns/"+campaign.ID+"/contacts", web.SelectContactsRequest{
		Contacts: map[models.ContactRole]models.Contact{
			models.RoleRecruiter: {Name: "Dana"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decode[models.StateDocument](t, resp)
	assert.Equal(t, "Dana", doc.SelectedContacts[models.RoleRecruiter].Name)

	resp = doJSON(t, app, http.MethodPut, "/campaigns/"+campaign.ID+"/contacts", web.SelectContactsRequest{
		Contacts: map[models.ContactRole]models.Contact{"cat": {Name: "Whiskers"}},
	})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddFeedbackAndFinalize(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	campaign := createCampaign(t, app, "camp-1")

	resp := doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/feedback", web.AddFeedbackRequest{
		Text: "keep it short",
		Must: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decode[models.StateDocument](t, resp)
	require.Len(t, doc.Feedback.Global, 1)
	assert.True(t, doc.Feedback.Global[0].Must)

	// Finalizing before any run completed is a conflict.
	resp = doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/finalize", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	phase := models.PhaseWaitingUser
	_, err := store.States().PatchState(context.Background(), campaign.ID, testUser, &models.StatePatch{Phase: &phase})
	require.NoError(t, err)

	resp = doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/finalize", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	final := decode[models.StateDocument](t, resp)
	assert.Equal(t, models.PhaseDone, final.Phase)
}

func TestFollowupEndpoints(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	campaign := createCampaign(t, app, "camp-1")

	queue := scheduler.BuildFollowupQueue(map[string][]models.FollowupDraft{
		"recruiter_email": {{Day: 3, Subject: "Nudge"}, {Day: 60, Subject: "Much later"}},
	}, time.Now().UTC().AddDate(0, 0, -10))

	_, err := store.States().UpdateState(context.Background(), campaign.ID, testUser, func(doc *models.StateDocument) error {
		doc.Artifacts.Followups = queue

		return nil
	})
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet, "/campaigns/"+campaign.ID+"/followups", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.FollowupItem](t, resp), 2)

	resp = doJSON(t, app, http.MethodGet, "/campaigns/"+campaign.ID+"/followups?due=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	due := decode[[]models.FollowupItem](t, resp)
	require.Len(t, due, 1)
	assert.Equal(t, 3, due[0].Day)

	resp = doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/followups/status", web.MarkFollowupRequest{
		DraftType: "recruiter_email",
		Day:       3,
		Status:    "sent",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := decode[models.StateDocument](t, resp)
	assert.Equal(t, models.FollowupSent, doc.Artifacts.Followups[0].Status)

	resp = doJSON(t, app, http.MethodPost, "/campaigns/"+campaign.ID+"/followups/status", web.MarkFollowupRequest{
		DraftType: "recruiter_email",
		Day:       99,
		Status:    "sent",
	})

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamEvents_DeliversTraceAsSSE(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	campaign := createCampaign(t, app, "camp-1")

	ctx := context.Background()

	require.NoError(t, store.States().AppendTrace(ctx, campaign.ID, testUser, events.WorkflowStart("run-1", models.ModeFull)))
	require.NoError(t, store.States().AppendTrace(ctx, campaign.ID, testUser, events.Error("run-1", "boom")))

	phase := models.PhaseError
	_, err := store.States().PatchState(ctx, campaign.ID, testUser, &models.StatePatch{Phase: &phase})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/campaigns/"+campaign.ID+"/events?from=1", nil)
	req.Header.Set(web.UserIDHeader, testUser)

	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var types []models.TraceEventType

	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event models.TraceEvent

		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		types = append(types, event.Type)
	}

	// from=1 skips workflow_start; the terminal phase closes the stream with
	// a synthetic completion event.
	assert.Equal(t, []models.TraceEventType{models.TraceError, models.TraceWorkflowComplete}, types)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
