package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
)

const runColumns = `
	id, workflow_id, workflow_name, triggered_by, input_data,
	status, action_results, error_message, retry_count,
	started_at, finished_at, created_at`

// RunRepository handles workflow run audit records.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Save upserts the run record.
func (r *RunRepository) Save(ctx context.Context, run *models.Run) error {
	triggeredBy, err := json.Marshal(run.TriggeredBy)
	if err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: fmt.Errorf("failed to marshal triggered_by: %w", err)}
	}

	var inputData, actionResults []byte

	if run.InputData != nil {
		inputData, err = json.Marshal(run.InputData)
		if err != nil {
			return &persistence.RunError{Op: "Save", RunID: run.ID, Err: fmt.Errorf("failed to marshal input data: %w", err)}
		}
	}

	if run.ActionResults != nil {
		actionResults, err = json.Marshal(run.ActionResults)
		if err != nil {
			return &persistence.RunError{Op: "Save", RunID: run.ID, Err: fmt.Errorf("failed to marshal action results: %w", err)}
		}
	}

	query := `
		INSERT INTO workflow_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			action_results = EXCLUDED.action_results,
			error_message = EXCLUDED.error_message,
			retry_count = EXCLUDED.retry_count,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.WorkflowName,
		triggeredBy,
		nullBytes(inputData),
		string(run.Status),
		nullBytes(actionResults),
		nullString(run.ErrorMessage),
		run.RetryCount,
		run.StartedAt,
		run.FinishedAt,
		run.CreatedAt,
	)
	if err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	return nil
}

// GetByID returns a run by ID, ErrRunNotFound when absent.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: persistence.ErrRunNotFound}
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

// ListByWorkflow returns the most recent runs for a workflow, newest first.
func (r *RunRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE workflow_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.Run, 0, limit)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		run           models.Run
		triggeredBy   []byte
		inputData     []byte
		actionResults []byte
		errorMessage  sql.NullString
		startedAt     sql.NullTime
		finishedAt    sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.WorkflowName,
		&triggeredBy,
		&inputData,
		&run.Status,
		&actionResults,
		&errorMessage,
		&run.RetryCount,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggeredBy, &run.TriggeredBy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triggered_by: %w", err)
	}

	if inputData != nil {
		if err := json.Unmarshal(inputData, &run.InputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input data: %w", err)
		}
	}

	if actionResults != nil {
		if err := json.Unmarshal(actionResults, &run.ActionResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
		}
	}

	run.ErrorMessage = errorMessage.String

	if startedAt.Valid {
		at := startedAt.Time

		run.StartedAt = &at
	}

	if finishedAt.Valid {
		at := finishedAt.Time

		run.FinishedAt = &at
	}

	return &run, nil
}
