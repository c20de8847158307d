package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
)

const workflowColumns = `
	id, name, description, type, status,
	trigger_type, trigger_config, actions, conditions,
	tags, priority, timeout_ms, max_retries, error_handling,
	is_active, is_template,
	execution_count, success_count, failure_count,
	last_executed_at, last_execution_status, last_error_message,
	created_by, notes, version, created_at, updated_at`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all workflows ordered by creation time, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// GetByID returns a workflow by ID, ErrWorkflowNotFound when absent.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// List returns a filtered page of workflows plus the unpaginated total count.
func (r *WorkflowRepository) List(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{
		"created_at": true, "updated_at": true, "name": true,
		"priority": true, "last_executed_at": true,
	}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	order := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		order = "ASC"
	}

	where, args := buildWorkflowFilters(opts)

	var totalCount int64

	countQuery := `SELECT COUNT(*) FROM workflows` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM workflows%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		workflowColumns, where, opts.SortBy, order, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0, opts.Limit)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(workflows)) < totalCount,
	}, nil
}

func buildWorkflowFilters(opts persistence.ListWorkflowsOptions) (string, []any) {
	clauses := make([]string, 0, 8)
	args := make([]any, 0, 8)

	arg := func(value any) string {
		args = append(args, value)

		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Search != "" {
		placeholder := arg("%" + opts.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", placeholder, placeholder))
	}

	if opts.Type != "" {
		clauses = append(clauses, "type = "+arg(string(opts.Type)))
	}

	if opts.Status != nil {
		clauses = append(clauses, "status = "+arg(string(*opts.Status)))
	}

	if opts.TriggerType != "" {
		clauses = append(clauses, "trigger_type = "+arg(string(opts.TriggerType)))
	}

	if opts.IsTemplate != nil {
		clauses = append(clauses, "is_template = "+arg(*opts.IsTemplate))
	}

	if opts.IsActive != nil {
		clauses = append(clauses, "is_active = "+arg(*opts.IsActive))
	}

	if len(opts.Tags) > 0 {
		clauses = append(clauses, "tags @> "+arg(pq.Array(opts.Tags)))
	}

	if opts.CreatedFrom != nil {
		clauses = append(clauses, "created_at >= "+arg(*opts.CreatedFrom))
	}

	if opts.CreatedTo != nil {
		clauses = append(clauses, "created_at <= "+arg(*opts.CreatedTo))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Save upserts the workflow unconditionally.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	triggerConfig, actions, conditions, err := marshalWorkflowDocs(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (` + strings.TrimSpace(workflowColumns) + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			actions = EXCLUDED.actions,
			conditions = EXCLUDED.conditions,
			tags = EXCLUDED.tags,
			priority = EXCLUDED.priority,
			timeout_ms = EXCLUDED.timeout_ms,
			max_retries = EXCLUDED.max_retries,
			error_handling = EXCLUDED.error_handling,
			is_active = EXCLUDED.is_active,
			is_template = EXCLUDED.is_template,
			execution_count = EXCLUDED.execution_count,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			last_executed_at = EXCLUDED.last_executed_at,
			last_execution_status = EXCLUDED.last_execution_status,
			last_error_message = EXCLUDED.last_error_message,
			created_by = EXCLUDED.created_by,
			notes = EXCLUDED.notes,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, workflowArgs(workflow, triggerConfig, actions, conditions)...)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// SaveVersioned updates the workflow only when the stored version matches
// workflow.Version, incrementing the version on success.
func (r *WorkflowRepository) SaveVersioned(ctx context.Context, workflow *models.Workflow) error {
	triggerConfig, actions, conditions, err := marshalWorkflowDocs(workflow)
	if err != nil {
		return persistence.NewWorkflowError("SaveVersioned", workflow.ID, err)
	}

	query := `
		UPDATE workflows SET
			name = $2,
			description = $3,
			type = $4,
			status = $5,
			trigger_type = $6,
			trigger_config = $7,
			actions = $8,
			conditions = $9,
			tags = $10,
			priority = $11,
			timeout_ms = $12,
			max_retries = $13,
			error_handling = $14,
			is_active = $15,
			is_template = $16,
			execution_count = $17,
			success_count = $18,
			failure_count = $19,
			last_executed_at = $20,
			last_execution_status = $21,
			last_error_message = $22,
			created_by = $23,
			notes = $24,
			version = version + 1,
			updated_at = $26
		WHERE id = $1 AND version = $25
	`

	// Versioned updates never rewrite created_at.
	args := workflowArgs(workflow, triggerConfig, actions, conditions)
	args = append(args[:25:25], workflow.UpdatedAt)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.NewWorkflowError("SaveVersioned", workflow.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("SaveVersioned", workflow.ID, err)
	}

	if affected == 0 {
		exists, err := r.exists(ctx, workflow.ID)
		if err != nil {
			return persistence.NewWorkflowError("SaveVersioned", workflow.ID, err)
		}

		if !exists {
			return persistence.NewWorkflowError("SaveVersioned", workflow.ID, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("SaveVersioned", workflow.ID, persistence.ErrVersionConflict)
	}

	workflow.Version++

	return nil
}

func (r *WorkflowRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM workflows WHERE id = $1)", id).Scan(&exists)

	return exists, err
}

// Delete removes the workflow row, ErrWorkflowNotFound when absent.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func marshalWorkflowDocs(workflow *models.Workflow) ([]byte, []byte, []byte, error) {
	var triggerConfig, conditions []byte

	if workflow.TriggerConfig != nil {
		data, err := json.Marshal(workflow.TriggerConfig)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal trigger config: %w", err)
		}

		triggerConfig = data
	}

	actions, err := json.Marshal(workflow.Actions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	if workflow.Conditions != nil {
		data, err := json.Marshal(workflow.Conditions)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal conditions: %w", err)
		}

		conditions = data
	}

	return triggerConfig, actions, conditions, nil
}

func workflowArgs(workflow *models.Workflow, triggerConfig, actions, conditions []byte) []any {
	return []any{
		workflow.ID,
		workflow.Name,
		workflow.Description,
		string(workflow.Type),
		string(workflow.Status),
		string(workflow.TriggerType),
		nullBytes(triggerConfig),
		actions,
		nullBytes(conditions),
		pq.Array(workflow.Tags),
		workflow.Priority,
		workflow.TimeoutMs,
		workflow.MaxRetries,
		string(workflow.Policy()),
		workflow.IsActive,
		workflow.IsTemplate,
		workflow.ExecutionCount,
		workflow.SuccessCount,
		workflow.FailureCount,
		workflow.LastExecutedAt,
		nullString(string(workflow.LastExecutionStatus)),
		nullString(workflow.LastErrorMessage),
		nullString(workflow.CreatedBy),
		nullString(workflow.Notes),
		workflow.Version,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	}
}

func nullBytes(data []byte) any {
	if data == nil {
		return nil
	}

	return data
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		triggerConfig []byte
		actions       []byte
		conditions    []byte
		tags          pq.StringArray
		lastExecuted  sql.NullTime
		lastStatus    sql.NullString
		lastError     sql.NullString
		createdBy     sql.NullString
		notes         sql.NullString
		updatedAt     time.Time
		createdAt     time.Time
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Type,
		&workflow.Status,
		&workflow.TriggerType,
		&triggerConfig,
		&actions,
		&conditions,
		&tags,
		&workflow.Priority,
		&workflow.TimeoutMs,
		&workflow.MaxRetries,
		&workflow.ErrorHandling,
		&workflow.IsActive,
		&workflow.IsTemplate,
		&workflow.ExecutionCount,
		&workflow.SuccessCount,
		&workflow.FailureCount,
		&lastExecuted,
		&lastStatus,
		&lastError,
		&createdBy,
		&notes,
		&workflow.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Tags = tags
	workflow.CreatedAt = createdAt
	workflow.UpdatedAt = updatedAt

	if lastExecuted.Valid {
		at := lastExecuted.Time

		workflow.LastExecutedAt = &at
	}

	workflow.LastExecutionStatus = models.RunStatus(lastStatus.String)
	workflow.LastErrorMessage = lastError.String
	workflow.CreatedBy = createdBy.String
	workflow.Notes = notes.String

	if triggerConfig != nil {
		if err := json.Unmarshal(triggerConfig, &workflow.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if actions != nil {
		if err := json.Unmarshal(actions, &workflow.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	if conditions != nil {
		if err := json.Unmarshal(conditions, &workflow.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	return &workflow, nil
}
