package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/automation/pkg/eventbus"
	"github.com/talentflow/automation/pkg/events"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/otelhelper"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// maxErrorMessageLen bounds lastErrorMessage on the workflow record.
	maxErrorMessageLen = 512
	// settleAttempts bounds the optimistic retry loop for post-run counter
	// updates racing with definition edits.
	settleAttempts = 5
)

// Engine drives the run state machine: it creates the run, gates it on
// conditions, executes actions, persists the audit record and settles the
// workflow's counters.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	evaluator   *Evaluator
	executor    *Executor
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
	workerID    string

	mu            sync.Mutex
	cancellations map[string]chan struct{}
}

// EngineConfig carries the engine's collaborators. EventBus is optional;
// without one, lifecycle events are not published.
type EngineConfig struct {
	Persistence persistence.Persistence
	Registry    *registry.Registry
	EventBus    eventbus.EventBus
	Logger      *slog.Logger
	WorkerID    string
	Executor    *Executor
}

func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger.With("module", "execution_engine", "worker_id", cfg.WorkerID)

	executor := cfg.Executor
	if executor == nil {
		executor = NewExecutor(cfg.Registry, nil, cfg.Logger)
	}

	return &Engine{
		persistence:   cfg.Persistence,
		registry:      cfg.Registry,
		evaluator:     NewEvaluator(cfg.Logger),
		executor:      executor,
		eventBus:      cfg.EventBus,
		tracer:        otel.Tracer("talentflow.automation.engine"),
		logger:        logger,
		workerID:      cfg.WorkerID,
		cancellations: make(map[string]chan struct{}),
	}
}

// MatchWorkflows resolves the active, non-template workflows whose trigger
// matches the submitted source (and, for events, the event name).
func (e *Engine) MatchWorkflows(ctx context.Context, source models.TriggerType, event string) ([]*models.Workflow, error) {
	workflows, err := e.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if !workflow.Runnable() {
			continue
		}

		if workflow.TriggerType != source {
			continue
		}

		if source == models.TriggerTypeEvent && workflow.EventName() != event {
			continue
		}

		matched = append(matched, workflow)
	}

	return matched, nil
}

// RunWorkflow is the manual entry point. It targets one workflow directly,
// skipping trigger matching, and returns (nil, nil) without any state change
// when the workflow is missing, inactive or a template.
func (e *Engine) RunWorkflow(ctx context.Context, workflowID string, inputData map[string]any, requestID string) (*models.Run, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	if !workflow.Runnable() {
		return nil, nil
	}

	triggeredBy := models.TriggeredBy{Source: models.TriggerTypeManual, RequestID: requestID}

	return e.Execute(ctx, workflow, triggeredBy, inputData)
}

// CancelRun requests cooperative cancellation of an in-flight run. The flag
// is observed at action boundaries; an action already executing finishes
// first. Returns false when the run is not currently executing.
func (e *Engine) CancelRun(runID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancelCh, exists := e.cancellations[runID]
	if !exists {
		return false
	}

	select {
	case <-cancelCh:
	default:
		close(cancelCh)
	}

	return true
}

// Execute runs the full state machine for one workflow and one trigger
// occurrence. Run-time failures never escape as errors; callers observe the
// outcome through the returned run's status.
func (e *Engine) Execute(ctx context.Context, workflow *models.Workflow, triggeredBy models.TriggeredBy, inputData map[string]any) (*models.Run, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.TriggerSourceKey, string(triggeredBy.Source)),
		attribute.String(otelhelper.WorkerIDKey, e.workerID),
	)
	defer span.End()

	now := time.Now().UTC()
	run := &models.Run{
		ID:           uuid.NewString(),
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		TriggeredBy:  triggeredBy,
		InputData:    inputData,
		Status:       models.RunStatusPending,
		CreatedAt:    now,
	}

	logger := e.logger.With("workflow_id", workflow.ID, "run_id", run.ID)
	logger.Info("Run created", "source", triggeredBy.Source, "event", triggeredBy.Event)

	e.saveRun(ctx, run, logger)
	e.publish(ctx, workflow.ID, events.WorkflowTriggered{
		BaseEvent:   e.baseEvent(events.WorkflowTriggeredEvent, workflow.ID),
		RunID:       run.ID,
		Event:       triggeredBy.Event,
		Source:      string(triggeredBy.Source),
		TriggerData: inputData,
	})

	// Condition gate: a false evaluation is a no-op pass, the run completes
	// with zero actions executed.
	if !e.evaluator.Evaluate(workflow, run.Context()) {
		run.Status = models.RunStatusCompleted
		run.StartedAt = &now
		finished := time.Now().UTC()
		run.FinishedAt = &finished

		logger.Info("Conditions evaluated false, run completed as no-op")

		e.saveRun(ctx, run, logger)
		e.settleWorkflow(ctx, workflow.ID, run, logger)
		e.publish(ctx, workflow.ID, events.RunCompleted{
			BaseEvent: e.baseEvent(events.RunCompletedEvent, workflow.ID),
			RunID:     run.ID,
			NoOp:      true,
		})

		return run, nil
	}

	started := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &started

	e.saveRun(ctx, run, logger)
	e.publish(ctx, workflow.ID, events.RunStarted{
		BaseEvent: e.baseEvent(events.RunStartedEvent, workflow.ID),
		RunID:     run.ID,
	})

	cancelCh := make(chan struct{})

	e.mu.Lock()
	e.cancellations[run.ID] = cancelCh
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.cancellations, run.ID)
		e.mu.Unlock()
	}()

	cancelled := func() bool {
		select {
		case <-cancelCh:
			return true
		default:
			return false
		}
	}

	execErr := e.executor.Execute(ctx, workflow, run, cancelled)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Status = runStatusFor(execErr)

	if execErr != nil {
		run.ErrorMessage = truncateError(execErr.Error())

		otelhelper.SetError(span, execErr, attribute.String(otelhelper.RunIDKey, run.ID))
	}

	logger.Info("Run settled",
		"status", run.Status,
		"retry_count", run.RetryCount,
		"duration_ms", finished.Sub(started).Milliseconds())

	e.saveRun(ctx, run, logger)
	e.settleWorkflow(ctx, workflow.ID, run, logger)
	e.publishTerminal(ctx, workflow.ID, run, started, finished)

	return run, nil
}

func runStatusFor(execErr error) models.RunStatus {
	switch {
	case execErr == nil:
		return models.RunStatusCompleted
	case errors.Is(execErr, ErrRunTimeout):
		return models.RunStatusTimedOut
	case errors.Is(execErr, ErrRunCancelled):
		return models.RunStatusCancelled
	default:
		return models.RunStatusFailed
	}
}

// settleWorkflow applies the post-run counter update with optimistic
// concurrency: a definition edit racing with the update makes the engine
// re-read and retry against the latest version.
func (e *Engine) settleWorkflow(ctx context.Context, workflowID string, run *models.Run, logger *slog.Logger) {
	repo := e.persistence.WorkflowRepository()

	for attempt := 1; attempt <= settleAttempts; attempt++ {
		workflow, err := repo.GetByID(ctx, workflowID)
		if err != nil {
			logger.Error("Failed to load workflow for counter update", "error", err)

			return
		}

		now := time.Now().UTC()
		workflow.ExecutionCount++
		workflow.LastExecutedAt = &now
		workflow.LastExecutionStatus = run.Status

		if run.Status.Success() {
			workflow.SuccessCount++
			workflow.LastErrorMessage = ""
		} else {
			workflow.FailureCount++
			workflow.LastErrorMessage = truncateError(run.ErrorMessage)
		}

		workflow.UpdatedAt = now

		err = repo.SaveVersioned(ctx, workflow)
		if err == nil {
			return
		}

		if persistence.IsVersionConflict(err) {
			logger.Debug("Counter update lost an optimistic race, retrying", "attempt", attempt)

			continue
		}

		logger.Error("Failed to persist workflow counters", "error", err)

		return
	}

	logger.Error("Gave up settling workflow counters after repeated version conflicts",
		"attempts", settleAttempts)
}

func (e *Engine) publishTerminal(ctx context.Context, workflowID string, run *models.Run, started, finished time.Time) {
	durationMs := finished.Sub(started).Milliseconds()

	switch run.Status {
	case models.RunStatusCompleted:
		e.publish(ctx, workflowID, events.RunCompleted{
			BaseEvent:  e.baseEvent(events.RunCompletedEvent, workflowID),
			RunID:      run.ID,
			DurationMs: durationMs,
		})
	case models.RunStatusTimedOut:
		e.publish(ctx, workflowID, events.RunTimedOut{
			BaseEvent:  e.baseEvent(events.RunTimedOutEvent, workflowID),
			RunID:      run.ID,
			DurationMs: durationMs,
		})
	case models.RunStatusCancelled:
		e.publish(ctx, workflowID, events.RunCancelled{
			BaseEvent: e.baseEvent(events.RunCancelledEvent, workflowID),
			RunID:     run.ID,
		})
	default:
		e.publish(ctx, workflowID, events.RunFailed{
			BaseEvent:  e.baseEvent(events.RunFailedEvent, workflowID),
			RunID:      run.ID,
			Error:      run.ErrorMessage,
			DurationMs: durationMs,
		})
	}
}

func (e *Engine) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflowID)
	base.WorkerID = e.workerID

	return base
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.Error("Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) saveRun(ctx context.Context, run *models.Run, logger *slog.Logger) {
	if err := e.persistence.RunRepository().Save(ctx, run); err != nil {
		logger.Error("Failed to persist run audit record", "error", err)
	}
}

func truncateError(message string) string {
	if len(message) <= maxErrorMessageLen {
		return message
	}

	return message[:maxErrorMessageLen]
}
