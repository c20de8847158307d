// Package protocol defines the contracts between the execution engine and
// pluggable action handlers and trigger sources.
package protocol

import (
	"context"
	"log/slog"

	"github.com/talentflow/automation/pkg/models"
)

// ActionHandler performs one action of a workflow run. Execute receives the
// run context (input data plus run metadata) with the action parameters
// already rendered, and returns the handler's output for the audit record.
type ActionHandler interface {
	Execute(ctx context.Context, runCtx map[string]any, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates handler instances for one action type.
type ActionFactory interface {
	Create(params map[string]any) (ActionHandler, error)
	ID() string
	Schema() *models.JSONSchema
}
