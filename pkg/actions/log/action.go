// Package log implements the log action: it writes a message to the
// structured log, mainly useful for smoke-testing workflow definitions.
package log

import (
	"context"
	"log/slog"
	"time"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/protocol"
)

type Action struct {
	Message string
	Level   string
}

func NewAction(params map[string]any) *Action {
	message, _ := params["message"].(string)
	level, _ := params["level"].(string)

	if level == "" {
		level = "info"
	}

	return &Action{Message: message, Level: level}
}

func (a *Action) Execute(ctx context.Context, runCtx map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", "log")

	switch a.Level {
	case "debug":
		logger.DebugContext(ctx, a.Message, "run_context", runCtx)
	case "warn":
		logger.WarnContext(ctx, a.Message, "run_context", runCtx)
	case "error":
		logger.ErrorContext(ctx, a.Message, "run_context", runCtx)
	default:
		logger.InfoContext(ctx, a.Message, "run_context", runCtx)
	}

	return map[string]any{
		"message":   a.Message,
		"logged_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Factory creates log handlers.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return models.ActionTypeLog
}

func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	if params == nil {
		params = map[string]any{}
	}

	return NewAction(params), nil
}

func (f *Factory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:        "object",
		Title:       "Log",
		Description: "Writes a message to the structured log.",
		Properties: map[string]*models.Property{
			"message": {
				Type:        "string",
				Description: "Message to log. Supports {{field}} placeholders.",
			},
			"level": {
				Type:        "string",
				Description: "Log level.",
				Default:     "info",
				Enum:        []any{"debug", "info", "warn", "error"},
			},
		},
		Required: []string{"message"},
	}
}
