package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/talentflow/automation/pkg/eventbus"
	"github.com/talentflow/automation/pkg/events"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/services"
	"github.com/talentflow/automation/pkg/workflow"
)

// APIHandlers wires the REST surface to the services, the engine (manual runs
// and cancellation) and the event bus (event submission).
type APIHandlers struct {
	workflowService *services.Workflow
	statsService    *services.Stats
	engine          *workflow.Engine
	eventBus        eventbus.EventBus
	validator       *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	statsService *services.Stats,
	engine *workflow.Engine,
	eventBus eventbus.EventBus,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		statsService:    statsService,
		engine:          engine,
		eventBus:        eventBus,
		validator:       validator,
	}
}

// Register attaches every route to the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/search", h.SearchWorkflows)
	app.Get("/workflows/templates", h.GetTemplates)
	app.Get("/workflows/stats", h.GetStats)
	app.Get("/workflows/types/:type", h.GetWorkflowsByType)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Patch("/workflows/:id", h.UpdateWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)
	app.Get("/workflows/:id/health", h.GetWorkflowHealth)
	app.Post("/workflows/:id/validate", h.ValidateWorkflow)
	app.Post("/workflows/:id/duplicate", h.DuplicateWorkflow)
	app.Post("/workflows/:id/toggle", h.ToggleWorkflow)
	app.Post("/workflows/:id/run", h.RunWorkflow)
	app.Get("/workflows/:id/runs", h.GetWorkflowRuns)

	app.Get("/runs/:id", h.GetRun)
	app.Post("/runs/:id/cancel", h.CancelRun)

	app.Post("/events", h.SubmitEvent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.workflowService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":     result.Workflows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
	})
}

func (h *APIHandlers) parseListRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{
		Search:    c.Query("search"),
		Type:      models.WorkflowType(c.Query("type")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		req.Status = &status
	}

	if triggerStr := c.Query("trigger_type"); triggerStr != "" {
		req.TriggerType = models.TriggerType(triggerStr)
	}

	if activeStr := c.Query("is_active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return nil, err
		}

		req.IsActive = &active
	}

	if templateStr := c.Query("is_template"); templateStr != "" {
		isTemplate, err := strconv.ParseBool(templateStr)
		if err != nil {
			return nil, err
		}

		req.IsTemplate = &isTemplate
	}

	if tagsStr := c.Query("tags"); tagsStr != "" {
		for _, tag := range strings.Split(tagsStr, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}

	if fromStr := c.Query("created_from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return nil, err
		}

		req.CreatedFrom = &from
	}

	if toStr := c.Query("created_to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return nil, err
		}

		req.CreatedTo = &to
	}

	return req, nil
}

func (h *APIHandlers) SearchWorkflows(c fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return badRequest(c, "Query parameter 'q' is required")
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	result, err := h.workflowService.Search(c.Context(), query, limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	result, err := h.workflowService.ListTemplates(c.Context(), limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetWorkflowsByType(c fiber.Ctx) error {
	workflowType := models.WorkflowType(c.Params("type"))

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	result, err := h.workflowService.ListByType(c.Context(), workflowType, limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetStats(c fiber.Ctx) error {
	stats, err := h.statsService.GetWorkflowStats(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), services.CreateWorkflowRequest{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Actions:       req.Actions,
		Conditions:    req.Conditions,
		Tags:          req.Tags,
		Priority:      req.Priority,
		TimeoutMs:     req.TimeoutMs,
		MaxRetries:    req.MaxRetries,
		ErrorHandling: req.ErrorHandling,
		IsTemplate:    req.IsTemplate,
		CreatedBy:     req.CreatedBy,
		Notes:         req.Notes,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), id, services.UpdateWorkflowRequest{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Actions:       req.Actions,
		Conditions:    req.Conditions,
		Tags:          req.Tags,
		Priority:      req.Priority,
		TimeoutMs:     req.TimeoutMs,
		MaxRetries:    req.MaxRetries,
		ErrorHandling: req.ErrorHandling,
		Notes:         req.Notes,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowHealth(c fiber.Ctx) error {
	health, err := h.statsService.GetWorkflowHealth(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(health)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	result, err := h.workflowService.ValidateWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) DuplicateWorkflow(c fiber.Ctx) error {
	var req DuplicateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	clone, err := h.workflowService.Duplicate(c.Context(), c.Params("id"), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(clone)
}

func (h *APIHandlers) ToggleWorkflow(c fiber.Ctx) error {
	var req ToggleWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	toggled, err := h.workflowService.Toggle(c.Context(), c.Params("id"), req.Active, req.Note)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(toggled)
}

// RunWorkflow triggers a synchronous manual run. Missing, inactive and
// template workflows are a 404: manual runs never target them.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	run, err := h.engine.RunWorkflow(c.Context(), c.Params("id"), req.InputData, req.RequestID)
	if err != nil {
		return internalError(c, err)
	}

	if run == nil {
		return notFound(c, "Workflow not found or not runnable")
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))

	runs, err := h.workflowService.ListRuns(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	run, err := h.workflowService.FetchRun(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(run)
}

// CancelRun requests cooperative cancellation of a run executing in this
// process. Runs that already settled (or run elsewhere) are a 404.
func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	if !h.engine.CancelRun(c.Params("id")) {
		return notFound(c, "Run is not currently executing")
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// SubmitEvent publishes a domain event for workers to match against active
// event workflows.
func (h *APIHandlers) SubmitEvent(c fiber.Ctx) error {
	var req SubmitEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if h.eventBus == nil {
		problem := problems.NewStatusProblem(503).
			WithInstance(c.Path()).
			WithType("event_bus_unavailable").
			WithDetail("event bus is not configured")

		return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
	}

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, ""),
		Event:       req.Event,
		Source:      string(models.TriggerTypeEvent),
		TriggerData: req.Payload,
	}

	if err := h.eventBus.Publish(c.Context(), req.Event, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event":     req.Event,
		"submitted": true,
	})
}
