package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	logaction "github.com/talentflow/automation/pkg/actions/log"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence/file"
	"github.com/talentflow/automation/pkg/registry"
	"github.com/talentflow/automation/pkg/services"
	"github.com/talentflow/automation/pkg/web"
	"github.com/talentflow/automation/pkg/workflow"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Workflow) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction("log", "Log a message", logaction.NewFactory())

	workflowService := services.NewWorkflow(store, workflow.NewValidator(reg))
	statsService := services.NewStats(store)
	engine := workflow.NewEngine(workflow.EngineConfig{
		Persistence: store,
		Registry:    reg,
		Logger:      slog.Default(),
		WorkerID:    "api-test",
	})

	handlers := web.NewAPIHandlers(workflowService, statsService, engine, nil,
		validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return app, workflowService
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func createRequest() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
		Name:          "Notify recruiter on application",
		Type:          models.WorkflowTypeApplication,
		TriggerType:   models.TriggerTypeEvent,
		TriggerConfig: map[string]any{"event": "application.submitted"},
		Actions: []*models.ActionSpec{
			{ID: "a-1", Type: "log", Parameters: map[string]any{"message": "candidate {{candidate}} applied"}},
		},
	}
}

func TestCreateWorkflowEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", createRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.Equal(t, 5, created.Priority)

	// Name too short fails DTO validation.
	bad := createRequest()
	bad.Name = "ab"
	resp, body = doJSON(t, app, http.MethodPost, "/workflows", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Name")
}

func TestGetWorkflowEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", createRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestUpdateWorkflowEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", createRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	newName := "Notify recruiter and hiring manager"
	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+created.ID,
		web.UpdateWorkflowRequest{Name: &newName})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, created.TriggerType, updated.TriggerType, "unspecified fields are untouched")
}

func TestListWorkflowsQueryFilters(t *testing.T) {
	app, _ := setupTestApp(t)

	welcome := createRequest()
	welcome.Name = "Welcome mail"
	welcome.Tags = []string{"onboarding", "email"}
	resp, _ := doJSON(t, app, http.MethodPost, "/workflows", welcome)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	receipt := createRequest()
	receipt.Name = "Payment receipt"
	receipt.Tags = []string{"finance"}
	resp, _ = doJSON(t, app, http.MethodPost, "/workflows", receipt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var page struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int64              `json:"total_count"`
	}

	resp, body := doJSON(t, app, http.MethodGet, "/workflows?tags=onboarding,email", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Equal(t, int64(1), page.TotalCount)
	assert.Equal(t, "Welcome mail", page.Workflows[0].Name)

	resp, body = doJSON(t, app, http.MethodGet, "/workflows?created_from=2000-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, int64(2), page.TotalCount)

	resp, body = doJSON(t, app, http.MethodGet, "/workflows?created_to=2000-01-01T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, int64(0), page.TotalCount)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows?created_from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleEndpointGatesActivation(t *testing.T) {
	app, _ := setupTestApp(t)

	invalid := createRequest()
	invalid.Actions = nil
	_, body := doJSON(t, app, http.MethodPost, "/workflows", invalid)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/toggle",
		web.ToggleWorkflowRequest{Active: true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Actions must be a non-empty array")
}

func TestRunWorkflowEndpoint(t *testing.T) {
	app, service := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", createRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	// Draft workflows are not runnable.
	resp, _ := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run",
		web.RunWorkflowRequest{InputData: map[string]any{"candidate": "c-7"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err := service.Toggle(t.Context(), created.ID, true, "")
	require.NoError(t, err)

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run",
		web.RunWorkflowRequest{InputData: map[string]any{"candidate": "c-7"}, RequestID: "req-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run models.Run
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.Len(t, run.ActionResults, 1)

	// Audit record is queryable.
	resp, body = doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/runs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), run.ID)

	resp, _ = doJSON(t, app, http.MethodGet, "/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchAndStatsEndpoints(t *testing.T) {
	app, _ := setupTestApp(t)

	_, _ = doJSON(t, app, http.MethodPost, "/workflows", createRequest())

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "q is required")

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/search?q=recruiter", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Notify recruiter")

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "total_workflows")

	resp, _ = doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWorkflowHealthEndpoint(t *testing.T) {
	app, service := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", createRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	_, err := service.Toggle(t.Context(), created.ID, true, "")
	require.NoError(t, err)

	_, _ = doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/run", web.RunWorkflowRequest{})

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+created.ID+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health services.WorkflowHealth
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, int64(1), health.ExecutionCount)
	assert.InDelta(t, 100.0, health.SuccessRate, 0.001)
}

func TestSubmitEventWithoutBus(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/events",
		web.SubmitEventRequest{Event: "application.submitted"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDuplicateEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", createRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+created.ID+"/duplicate",
		web.DuplicateWorkflowRequest{Name: "Notify recruiter v2"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var clone models.Workflow
	require.NoError(t, json.Unmarshal(body, &clone))
	assert.NotEqual(t, created.ID, clone.ID)
	assert.Equal(t, "Notify recruiter v2", clone.Name)
	assert.Equal(t, models.WorkflowStatusDraft, clone.Status)
}
