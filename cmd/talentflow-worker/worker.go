// Package main provides the TalentFlow automation worker: it subscribes to
// trigger submissions, keeps schedule triggers in sync with the stored
// workflows and executes matched runs through the dispatcher.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentflow/automation/pkg/eventbus"
	"github.com/talentflow/automation/pkg/events"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/protocol"
	"github.com/talentflow/automation/pkg/registry"
	"github.com/talentflow/automation/pkg/workflow"
)

// scheduleSyncInterval bounds how long a toggled or rescheduled workflow
// waits before its cron trigger is picked up.
const scheduleSyncInterval = 30 * time.Second

type WorkerManagerConfig struct {
	ID          string
	Persistence persistence.Persistence
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	Logger      *slog.Logger
	Workers     int
	QueueName   string
	RedisAddr   string
}

type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	dispatcher  *workflow.Dispatcher
	scheduler   *workflow.Scheduler
	queueName   string
	redisAddr   string
}

func NewWorkerManager(cfg WorkerManagerConfig) *WorkerManager {
	engine := workflow.NewEngine(workflow.EngineConfig{
		Persistence: cfg.Persistence,
		Registry:    cfg.Registry,
		EventBus:    cfg.EventBus,
		Logger:      cfg.Logger,
		WorkerID:    cfg.ID,
	})

	dispatcherConfig := workflow.NewDispatcherConfig()
	if cfg.Workers > 0 {
		dispatcherConfig.Workers = cfg.Workers
	}

	dispatcher := workflow.NewDispatcher(engine, dispatcherConfig, cfg.Logger)

	return &WorkerManager{
		id:          cfg.ID,
		logger:      cfg.Logger,
		persistence: cfg.Persistence,
		registry:    cfg.Registry,
		eventBus:    cfg.EventBus,
		dispatcher:  dispatcher,
		scheduler:   workflow.NewScheduler(cfg.Registry, dispatcher, cfg.Logger),
		queueName:   cfg.QueueName,
		redisAddr:   cfg.RedisAddr,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.dispatcher.Start(runCtx)

	if err := w.scheduler.Sync(runCtx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to sync schedule triggers", "error", err)
	}

	go w.resyncSchedules(runCtx)

	queueTrigger, err := w.startQueueTrigger(runCtx)
	if err != nil {
		return err
	}

	if err := w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(runCtx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")

	w.scheduler.Stop(ctx)

	if queueTrigger != nil {
		if err := queueTrigger.Stop(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop queue trigger", "error", err)
		}
	}

	cancel()
	w.dispatcher.Stop()

	return nil
}

func (w *WorkerManager) resyncSchedules(ctx context.Context) {
	ticker := time.NewTicker(scheduleSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.scheduler.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Failed to sync schedule triggers", "error", err)
			}
		}
	}
}

func (w *WorkerManager) startQueueTrigger(ctx context.Context) (protocol.Trigger, error) {
	if w.queueName == "" {
		w.logger.InfoContext(ctx, "Queue trigger disabled, no queue name configured")

		return nil, nil
	}

	trigger, err := w.registry.CreateTrigger("queue", map[string]any{
		"queue": w.queueName,
		"addr":  w.redisAddr,
	})
	if err != nil {
		return nil, err
	}

	callback := func(ctx context.Context, event string, data map[string]any) error {
		matched, err := w.dispatcher.SubmitEvent(ctx, event, data)
		if err != nil {
			return err
		}

		w.logger.DebugContext(ctx, "Queue event dispatched", "event", event, "matched", matched)

		return nil
	}

	if err := trigger.Start(ctx, callback); err != nil {
		return nil, err
	}

	return trigger, nil
}

// handleWorkflowTriggered processes trigger submissions published on the bus
// by the API. Events carrying a run ID were already executed by the engine
// that published them and are only notifications.
func (w *WorkerManager) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowTriggered")

		return nil
	}

	if triggeredEvent.RunID != "" {
		return nil
	}

	logger := w.logger.With("event", triggeredEvent.Event, "event_id", triggeredEvent.ID)
	logger.InfoContext(ctx, "Processing trigger submission")

	matched, err := w.dispatcher.SubmitEvent(ctx, triggeredEvent.Event, triggeredEvent.TriggerData)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to dispatch trigger submission", "error", err)

		return err
	}

	logger.InfoContext(ctx, "Trigger submission dispatched", "matched", matched)

	return nil
}
