package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/persistence/file"
)

func setupRepo(t *testing.T) (*file.Persistence, context.Context) {
	t.Helper()

	return file.NewPersistence(t.TempDir()), context.Background()
}

func sampleWorkflow(id, name string) *models.Workflow {
	workflow := &models.Workflow{
		ID:          id,
		Name:        name,
		Description: "sends a welcome mail to new applicants",
		Type:        models.WorkflowTypeApplication,
		TriggerType: models.TriggerTypeEvent,
		TriggerConfig: map[string]any{
			"event": "application_received",
		},
		Actions: []*models.ActionSpec{
			{ID: "a1", Type: models.ActionTypeSendEmail, Parameters: map[string]any{"to": "{{candidateEmail}}"}},
		},
		Priority:  5,
		Tags:      []string{"onboarding"},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	workflow.SetStatus(models.WorkflowStatusActive)

	return workflow
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	p, ctx := setupRepo(t)
	repo := p.WorkflowRepository()

	workflow := sampleWorkflow("wf-1", "Welcome Mail")
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome Mail", loaded.Name)
	assert.Equal(t, models.WorkflowTypeApplication, loaded.Type)
	assert.Equal(t, "application_received", loaded.EventName())
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, models.ActionTypeSendEmail, loaded.Actions[0].Type)
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	p, ctx := setupRepo(t)

	_, err := p.WorkflowRepository().GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	p, ctx := setupRepo(t)
	repo := p.WorkflowRepository()

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1", "To Delete")))
	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err := repo.GetByID(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = repo.Delete(ctx, "wf-1")
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_SaveVersioned(t *testing.T) {
	p, ctx := setupRepo(t)
	repo := p.WorkflowRepository()

	workflow := sampleWorkflow("wf-1", "Versioned")
	require.NoError(t, repo.Save(ctx, workflow))

	first, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)

	second, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)

	first.ExecutionCount = 1
	require.NoError(t, repo.SaveVersioned(ctx, first))

	second.Notes = "edited concurrently"
	err = repo.SaveVersioned(ctx, second)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)

	// Losing writer re-reads and retries against the new version.
	latest, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	latest.Notes = "edited concurrently"
	require.NoError(t, repo.SaveVersioned(ctx, latest))

	final, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), final.ExecutionCount)
	assert.Equal(t, "edited concurrently", final.Notes)
	assert.Equal(t, int64(2), final.Version)
}

func TestWorkflowRepository_List_Filters(t *testing.T) {
	p, ctx := setupRepo(t)
	repo := p.WorkflowRepository()

	onboarding := sampleWorkflow("wf-1", "Applicant Onboarding")
	require.NoError(t, repo.Save(ctx, onboarding))

	payments := sampleWorkflow("wf-2", "Payment Receipt")
	payments.Type = models.WorkflowTypePayment
	payments.Description = "acknowledges completed payments"
	payments.Tags = []string{"finance"}
	require.NoError(t, repo.Save(ctx, payments))

	template := sampleWorkflow("wf-3", "Interview Template")
	template.IsTemplate = true
	template.SetStatus(models.WorkflowStatusDraft)
	require.NoError(t, repo.Save(ctx, template))

	t.Run("by type", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{Type: models.WorkflowTypePayment})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, "wf-2", result.Workflows[0].ID)
		assert.Equal(t, int64(1), result.TotalCount)
	})

	t.Run("search is case-insensitive over name and description", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{Search: "ONBOARD"})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, "wf-1", result.Workflows[0].ID)

		result, err = repo.List(ctx, persistence.ListWorkflowsOptions{Search: "completed payments"})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, "wf-2", result.Workflows[0].ID)
	})

	t.Run("templates only", func(t *testing.T) {
		isTemplate := true
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{IsTemplate: &isTemplate})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, "wf-3", result.Workflows[0].ID)
	})

	t.Run("tags", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{Tags: []string{"finance"}})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, "wf-2", result.Workflows[0].ID)
	})

	t.Run("invalid sort field", func(t *testing.T) {
		_, err := repo.List(ctx, persistence.ListWorkflowsOptions{SortBy: "password"})
		require.ErrorIs(t, err, persistence.ErrInvalidSortField)
	})
}

func TestWorkflowRepository_List_Pagination(t *testing.T) {
	p, ctx := setupRepo(t)
	repo := p.WorkflowRepository()

	base := time.Now().UTC()

	for i := range 5 {
		workflow := sampleWorkflow("wf-"+string(rune('a'+i)), "Workflow "+string(rune('A'+i)))
		workflow.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, workflow))
	}

	page, err := repo.List(ctx, persistence.ListWorkflowsOptions{Limit: 2, SortBy: "created_at", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Workflows, 2)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "Workflow A", page.Workflows[0].Name)

	last, err := repo.List(ctx, persistence.ListWorkflowsOptions{Limit: 2, Offset: 4, SortBy: "created_at", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, last.Workflows, 1)
	assert.False(t, last.HasNextPage)
	assert.Equal(t, "Workflow E", last.Workflows[0].Name)
}

func TestRunRepository_SaveAndList(t *testing.T) {
	p, ctx := setupRepo(t)
	repo := p.RunRepository()

	base := time.Now().UTC()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		run := &models.Run{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.RunStatusCompleted,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Save(ctx, run))
	}

	other := &models.Run{ID: "run-x", WorkflowID: "wf-2", Status: models.RunStatusFailed, CreatedAt: base}
	require.NoError(t, repo.Save(ctx, other))

	runs, err := repo.ListByWorkflow(ctx, "wf-1", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	loaded, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, loaded.Status)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx := setupRepo(t)
	require.NoError(t, p.HealthCheck(ctx))
	require.NoError(t, p.Close(ctx))
}
