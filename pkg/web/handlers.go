// Package web provides the HTTP handlers for the campaign API.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/outriq/outriq/pkg/models"
	"github.com/outriq/outriq/pkg/services"
	"github.com/outriq/outriq/pkg/steps"
	"github.com/outriq/outriq/pkg/stream"
	"github.com/outriq/outriq/pkg/workflow"
)

// UserIDHeader identifies the calling user. Authentication happens upstream;
// the API trusts the gateway-injected header.
const UserIDHeader = "X-User-ID"

type APIHandlers struct {
	campaignService *services.Campaign
	orchestrator    *workflow.Orchestrator
	streamer        *stream.Streamer
	registry        *steps.Registry
	validator       *validator.Validate
}

func NewAPIHandlers(
	campaignService *services.Campaign,
	orchestrator *workflow.Orchestrator,
	streamer *stream.Streamer,
	registry *steps.Registry,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		campaignService: campaignService,
		orchestrator:    orchestrator,
		streamer:        streamer,
		registry:        registry,
		validator:       validator,
	}
}

func userID(c fiber.Ctx) string {
	return c.Get(UserIDHeader)
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	campaign, err := h.campaignService.Create(c.Context(), userID(c), &services.CreateCampaignRequest{
		ID:    req.ID,
		JobID: req.JobID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (h *APIHandlers) ListCampaigns(c fiber.Ctx) error {
	campaigns, err := h.campaignService.List(c.Context(), userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaigns)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	campaign, err := h.campaignService.Get(c.Context(), c.Params("id"), userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(campaign)
}

func (h *APIHandlers) GetCampaignState(c fiber.Ctx) error {
	doc, err := h.campaignService.GetState(c.Context(), c.Params("id"), userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

// StartRun launches a detached workflow run and answers immediately with its
// id; progress is observed via the state and events endpoints.
func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	var req StartRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	runID, err := h.orchestrator.StartRun(c.Context(), c.Params("id"), userID(c), models.RunMode(req.Mode))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(StartRunResponse{RunID: runID})
}

func (h *APIHandlers) SelectContacts(c fiber.Ctx) error {
	var req SelectContactsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.campaignService.SelectContacts(c.Context(), c.Params("id"), userID(c), req.Contacts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) AddFeedback(c fiber.Ctx) error {
	var req AddFeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.campaignService.AddFeedback(c.Context(), c.Params("id"), userID(c), &services.FeedbackRequest{
		Text:      req.Text,
		Must:      req.Must,
		DraftType: req.DraftType,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) FinalizeCampaign(c fiber.Ctx) error {
	doc, err := h.campaignService.Finalize(c.Context(), c.Params("id"), userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

// GetFollowups returns the campaign's follow-up queue, filtered down to the
// currently due items when ?due=true.
func (h *APIHandlers) GetFollowups(c fiber.Ctx) error {
	id := c.Params("id")

	if dueStr := c.Query("due"); dueStr != "" {
		due, err := strconv.ParseBool(dueStr)
		if err != nil {
			return badRequest(c, "Invalid due parameter: "+dueStr)
		}

		if due {
			items, err := h.campaignService.DueFollowups(c.Context(), id, userID(c), time.Now().UTC())
			if err != nil {
				return handleServiceError(c, err)
			}

			return c.JSON(items)
		}
	}

	items, err := h.campaignService.Followups(c.Context(), id, userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(items)
}

func (h *APIHandlers) MarkFollowup(c fiber.Ctx) error {
	var req MarkFollowupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.campaignService.MarkFollowup(c.Context(), c.Params("id"), userID(c), req.DraftType, req.Day, models.FollowupStatus(req.Status))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck := "ok"
	repOk := true

	if err := h.campaignService.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
		repOk = false
	}

	status := "unhealthy"
	message := "Outriq API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Outriq API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
