package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/persistence/file"
	"github.com/talentflow/automation/pkg/protocol"
	"github.com/talentflow/automation/pkg/registry"
	"github.com/talentflow/automation/pkg/workflow"
)

type noopFactory struct{ id string }

func (f *noopFactory) ID() string                  { return f.id }
func (f *noopFactory) Schema() *models.JSONSchema  { return &models.JSONSchema{Type: "object"} }
func (f *noopFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Workflow, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction("create_task", "test handler", &noopFactory{id: "create_task"})

	return NewWorkflow(store, workflow.NewValidator(reg)), store
}

func validCreateRequest() CreateWorkflowRequest {
	return CreateWorkflowRequest{
		Name:          "Screen new applications",
		Type:          models.WorkflowTypeApplication,
		TriggerType:   models.TriggerTypeEvent,
		TriggerConfig: map[string]any{"event": "application.submitted"},
		Actions: []*models.ActionSpec{
			{ID: "a-1", Type: "create_task"},
		},
	}
}

func TestCreateDefaultsToDraft(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	created, err := service.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.False(t, created.IsActive)
	assert.Equal(t, defaultPriority, created.Priority)
	assert.Equal(t, int64(0), created.ExecutionCount)

	fetched, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestCreateRequiresName(t *testing.T) {
	service, _ := newTestService(t)

	req := validCreateRequest()
	req.Name = "   "

	_, err := service.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrNameRequired)
	assert.True(t, IsValidationError(err))
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	created, err := service.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	newName := "Screen senior applications"
	newPriority := 8

	updated, err := service.Update(ctx, created.ID, UpdateWorkflowRequest{
		Name:     &newName,
		Priority: &newPriority,
	})
	require.NoError(t, err)

	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, newPriority, updated.Priority)
	assert.Equal(t, created.Description, updated.Description)
	assert.Equal(t, created.TriggerType, updated.TriggerType)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
	assert.Equal(t, created.Version+1, updated.Version)
}

func TestUpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)

	created, err := service.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	// A concurrent writer bumps the stored version.
	racing, err := store.WorkflowRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, store.WorkflowRepository().SaveVersioned(ctx, racing))

	stale := *created
	stale.Name = "Stale edit"
	err = store.WorkflowRepository().SaveVersioned(ctx, &stale)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)
	assert.True(t, IsConflict(err))
}

func TestDeleteMissingWorkflow(t *testing.T) {
	service, _ := newTestService(t)

	err := service.Delete(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		req := validCreateRequest()
		req.Type = models.WorkflowTypeApplication
		_, err := service.Create(ctx, req)
		require.NoError(t, err)
	}

	reporting := validCreateRequest()
	reporting.Name = "Weekly hiring report"
	reporting.Type = models.WorkflowTypeReporting
	_, err := service.Create(ctx, reporting)
	require.NoError(t, err)

	result, err := service.ListByType(ctx, models.WorkflowTypeApplication, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalCount)

	result, err = service.Search(ctx, "hiring report", 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.TotalCount)
	assert.Equal(t, "Weekly hiring report", result.Workflows[0].Name)

	paged, err := service.List(ctx, ListWorkflowsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Workflows, 2)
	assert.True(t, paged.HasNextPage)

	_, err = service.List(ctx, ListWorkflowsRequest{SortBy: "favorite_color"})
	require.ErrorIs(t, err, ErrInvalidSortField)
	assert.True(t, IsValidationError(err))
}

func TestListFiltersByTagsAndDateRange(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)
	repo := store.WorkflowRepository()

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	save := func(id, name string, createdAt time.Time, tags []string) {
		t.Helper()

		wf := &models.Workflow{
			ID:          id,
			Name:        name,
			Type:        models.WorkflowTypeApplication,
			TriggerType: models.TriggerTypeEvent,
			Actions:     []*models.ActionSpec{{ID: "a-1", Type: "create_task"}},
			Tags:        tags,
			Priority:    defaultPriority,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		wf.SetStatus(models.WorkflowStatusDraft)
		require.NoError(t, repo.Save(ctx, wf))
	}

	save("wf-old", "Archive stale applications", base.AddDate(0, -2, 0), []string{"finance"})
	save("wf-mid", "Welcome mail", base, []string{"onboarding", "email"})
	save("wf-new", "Interview reminder", base.AddDate(0, 1, 0), []string{"onboarding"})

	from := base.Add(-time.Hour)
	to := base.Add(time.Hour)

	result, err := service.List(ctx, ListWorkflowsRequest{CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.TotalCount)
	assert.Equal(t, "wf-mid", result.Workflows[0].ID)

	result, err = service.List(ctx, ListWorkflowsRequest{CreatedFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)

	result, err = service.List(ctx, ListWorkflowsRequest{Tags: []string{"onboarding"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalCount)

	result, err = service.List(ctx, ListWorkflowsRequest{Tags: []string{"onboarding", "email"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.TotalCount)
	assert.Equal(t, "wf-mid", result.Workflows[0].ID)

	_, err = service.List(ctx, ListWorkflowsRequest{CreatedFrom: &to, CreatedTo: &from})
	require.ErrorIs(t, err, ErrInvalidDateRange)
	assert.True(t, IsValidationError(err))
}

func TestListTemplates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	tmpl := validCreateRequest()
	tmpl.Name = "Onboarding template"
	tmpl.IsTemplate = true
	_, err := service.Create(ctx, tmpl)
	require.NoError(t, err)

	_, err = service.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	result, err := service.ListTemplates(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.TotalCount)
	assert.True(t, result.Workflows[0].IsTemplate)
}

func TestDuplicateResetsStateAndCounters(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(t)

	created, err := service.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	// Simulate a used, active workflow.
	source, err := store.WorkflowRepository().GetByID(ctx, created.ID)
	require.NoError(t, err)
	source.SetStatus(models.WorkflowStatusActive)
	source.ExecutionCount = 17
	source.SuccessCount = 15
	source.FailureCount = 2
	now := time.Now().UTC()
	source.LastExecutedAt = &now
	require.NoError(t, store.WorkflowRepository().Save(ctx, source))

	clone, err := service.Duplicate(ctx, created.ID, "Screen applications v2")
	require.NoError(t, err)

	assert.NotEqual(t, created.ID, clone.ID)
	assert.Equal(t, "Screen applications v2", clone.Name)
	assert.Equal(t, models.WorkflowStatusDraft, clone.Status)
	assert.False(t, clone.IsActive)
	assert.False(t, clone.IsTemplate)
	assert.Equal(t, int64(0), clone.ExecutionCount)
	assert.Equal(t, int64(0), clone.SuccessCount)
	assert.Nil(t, clone.LastExecutedAt)
	assert.Equal(t, created.Actions[0].Type, clone.Actions[0].Type)

	unnamed, err := service.Duplicate(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Contains(t, unnamed.Name, "(copy)")
}

func TestToggleActivationGatedOnValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	invalid := validCreateRequest()
	invalid.Actions = nil
	created, err := service.Create(ctx, invalid)
	require.NoError(t, err, "invalid definitions may still be saved as drafts")

	_, err = service.Toggle(ctx, created.ID, true, "")
	require.ErrorIs(t, err, ErrDefinitionInvalid)
	assert.Contains(t, err.Error(), "Actions must be a non-empty array")

	stored, err := service.FetchByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, stored.Status)

	valid, err := service.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	activated, err := service.Toggle(ctx, valid.ID, true, "go live for Q3 hiring")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)
	assert.True(t, activated.IsActive)
	assert.Contains(t, activated.Notes, "go live for Q3 hiring")

	deactivated, err := service.Toggle(ctx, valid.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusInactive, deactivated.Status)
	assert.False(t, deactivated.IsActive)
}

func TestValidateWorkflowReportsAllErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	req := validCreateRequest()
	req.Actions = nil
	created, err := service.Create(ctx, req)
	require.NoError(t, err)

	result, err := service.ValidateWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "Actions must be a non-empty array")

	_, err = service.ValidateWorkflow(ctx, "no-such-id")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
