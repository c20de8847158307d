package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/persistence/postgresql"
	"github.com/talentflow/automation/pkg/testutil"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"workflow_runs", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("talentflow_test"),
			postgres.WithUsername("talentflow"),
			postgres.WithPassword("talentflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func testWorkflow(name string) *models.Workflow {
	return testutil.CreateTestWorkflow(testutil.WithName(name))
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflows')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflows table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflow_runs')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflow_runs table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestNewPersistence_SaveAndRetrieveWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := testWorkflow("Welcome Mail")

	err := repo.Save(ctx, workflow)
	require.NoError(t, err)

	retrieved, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, workflow.ID, retrieved.ID)
	assert.Equal(t, workflow.Name, retrieved.Name)
	assert.Equal(t, models.WorkflowTypeApplication, retrieved.Type)
	assert.Equal(t, models.WorkflowStatusActive, retrieved.Status)
	assert.True(t, retrieved.IsActive)
	assert.Equal(t, "application_received", retrieved.EventName())
	assert.Equal(t, []string{"onboarding", "email"}, retrieved.Tags)

	require.Len(t, retrieved.Actions, 2)
	assert.Equal(t, models.ActionTypeSendEmail, retrieved.Actions[0].Type)
	assert.Equal(t, "{{candidateEmail}}", retrieved.Actions[0].Parameters["to"])

	condition, err := models.ParseCondition(retrieved.Conditions)
	require.NoError(t, err)
	assert.Equal(t, "source", condition.Field)

	_, err = repo.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestNewPersistence_SaveVersioned(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := testWorkflow("Versioned")
	require.NoError(t, repo.Save(ctx, workflow))

	first, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)

	second, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)

	first.ExecutionCount = 1
	require.NoError(t, repo.SaveVersioned(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Notes = "edited concurrently"
	err = repo.SaveVersioned(ctx, second)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)

	latest, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest.ExecutionCount)
	assert.Equal(t, int64(1), latest.Version)

	missing := testWorkflow("Ghost")
	err = repo.SaveVersioned(ctx, missing)
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestNewPersistence_ListWorkflows(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	onboarding := testWorkflow("Applicant Onboarding")
	require.NoError(t, repo.Save(ctx, onboarding))

	payments := testWorkflow("Payment Receipt")
	payments.Type = models.WorkflowTypePayment
	payments.Description = "acknowledges completed payments"
	payments.Tags = []string{"finance"}
	require.NoError(t, repo.Save(ctx, payments))

	template := testWorkflow("Interview Template")
	template.IsTemplate = true
	template.SetStatus(models.WorkflowStatusDraft)
	require.NoError(t, repo.Save(ctx, template))

	t.Run("all", func(t *testing.T) {
		all, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("by type", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{Type: models.WorkflowTypePayment})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, payments.ID, result.Workflows[0].ID)
		assert.Equal(t, int64(1), result.TotalCount)
	})

	t.Run("search", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{Search: "ONBOARD"})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, onboarding.ID, result.Workflows[0].ID)
	})

	t.Run("tags", func(t *testing.T) {
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{Tags: []string{"finance"}})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, payments.ID, result.Workflows[0].ID)
	})

	t.Run("templates only", func(t *testing.T) {
		isTemplate := true
		result, err := repo.List(ctx, persistence.ListWorkflowsOptions{IsTemplate: &isTemplate})
		require.NoError(t, err)
		require.Len(t, result.Workflows, 1)
		assert.Equal(t, template.ID, result.Workflows[0].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := repo.List(ctx, persistence.ListWorkflowsOptions{Limit: 2, SortBy: "name", SortOrder: "asc"})
		require.NoError(t, err)
		require.Len(t, page.Workflows, 2)
		assert.Equal(t, int64(3), page.TotalCount)
		assert.True(t, page.HasNextPage)
		assert.Equal(t, "Applicant Onboarding", page.Workflows[0].Name)
	})

	t.Run("invalid sort field", func(t *testing.T) {
		_, err := repo.List(ctx, persistence.ListWorkflowsOptions{SortBy: "password"})
		require.ErrorIs(t, err, persistence.ErrInvalidSortField)
	})
}

func TestNewPersistence_DeleteWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.WorkflowRepository()

	workflow := testWorkflow("To Delete")
	require.NoError(t, repo.Save(ctx, workflow))

	require.NoError(t, repo.Delete(ctx, workflow.ID))

	_, err := repo.GetByID(ctx, workflow.ID)
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	err = repo.Delete(ctx, workflow.ID)
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestNewPersistence_Runs(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RunRepository()

	workflowID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)

	var lastID string

	for i := range 3 {
		started := base.Add(time.Duration(i) * time.Second)
		finished := started.Add(250 * time.Millisecond)
		run := &models.Run{
			ID:           uuid.NewString(),
			WorkflowID:   workflowID,
			WorkflowName: "Welcome Mail",
			TriggeredBy:  models.TriggeredBy{Source: "event", Event: "application_received"},
			InputData:    map[string]any{"candidateEmail": "jo@example.com"},
			Status:       models.RunStatusCompleted,
			ActionResults: []models.ActionResult{
				{ActionID: "a1", Type: models.ActionTypeSendEmail, Status: models.ActionResultSucceeded, Attempts: 1},
			},
			StartedAt:  &started,
			FinishedAt: &finished,
			CreatedAt:  started,
		}
		require.NoError(t, repo.Save(ctx, run))

		lastID = run.ID
	}

	runs, err := repo.ListByWorkflow(ctx, workflowID, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, lastID, runs[0].ID)

	loaded, err := repo.GetByID(ctx, lastID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, loaded.Status)
	assert.Equal(t, "application_received", loaded.TriggeredBy.Event)
	assert.Equal(t, "jo@example.com", loaded.InputData["candidateEmail"])
	require.Len(t, loaded.ActionResults, 1)
	assert.Equal(t, models.ActionResultSucceeded, loaded.ActionResults[0].Status)

	_, err = repo.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, persistence.ErrRunNotFound)
}
