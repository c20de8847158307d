package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence/file"
	"github.com/talentflow/automation/pkg/protocol"
	"github.com/talentflow/automation/pkg/registry"
)

type stubHandler func(ctx context.Context, runCtx map[string]any, logger *slog.Logger) (map[string]any, error)

func (h stubHandler) Execute(ctx context.Context, runCtx map[string]any, logger *slog.Logger) (map[string]any, error) {
	return h(ctx, runCtx, logger)
}

type stubFactory struct {
	id      string
	handler stubHandler
}

func (f *stubFactory) ID() string { return f.id }

func (f *stubFactory) Schema() *models.JSONSchema {
	return &models.JSONSchema{Type: "object"}
}

func (f *stubFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return f.handler, nil
}

// newTestRegistry registers a handler under the given action type.
func newTestRegistry(t *testing.T, actionType string, handler stubHandler) *registry.Registry {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(actionType, "test handler", &stubFactory{id: actionType, handler: handler})

	return reg
}

func newTestPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func activeWorkflow(actionType string, actionCount int) *models.Workflow {
	now := time.Now().UTC()

	actions := make([]*models.ActionSpec, 0, actionCount)
	for i := 0; i < actionCount; i++ {
		actions = append(actions, &models.ActionSpec{
			ID:   uuid.NewString(),
			Type: actionType,
		})
	}

	workflow := &models.Workflow{
		ID:          uuid.NewString(),
		Name:        "Screen new applications",
		Type:        models.WorkflowTypeApplication,
		TriggerType: models.TriggerTypeEvent,
		TriggerConfig: map[string]any{
			"event": "application.submitted",
		},
		Actions:   actions,
		Priority:  5,
		CreatedAt: now,
		UpdatedAt: now,
	}
	workflow.SetStatus(models.WorkflowStatusActive)

	return workflow
}

func runningRun(workflow *models.Workflow) *models.Run {
	now := time.Now().UTC()

	return &models.Run{
		ID:          uuid.NewString(),
		WorkflowID:  workflow.ID,
		TriggeredBy: models.TriggeredBy{Source: models.TriggerTypeManual},
		Status:      models.RunStatusRunning,
		StartedAt:   &now,
		CreatedAt:   now,
	}
}

// countingHandler fails with the given error until failures invocations have
// happened, then succeeds.
func countingHandler(calls *atomic.Int32, failures int32, failErr error) stubHandler {
	return func(_ context.Context, _ map[string]any, _ *slog.Logger) (map[string]any, error) {
		n := calls.Add(1)
		if n <= failures {
			return nil, failErr
		}

		return map[string]any{"call": n}, nil
	}
}
