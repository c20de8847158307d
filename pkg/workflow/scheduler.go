package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/protocol"
	"github.com/talentflow/automation/pkg/registry"
)

// Scheduler owns one cron trigger per active schedule workflow and forwards
// firings to the dispatcher. Sync reconciles the trigger set against the
// store, so workflows toggled or rescheduled while the worker runs are picked
// up without a restart.
type Scheduler struct {
	registry   *registry.Registry
	dispatcher *Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	triggers map[string]scheduledTrigger
}

type scheduledTrigger struct {
	trigger protocol.Trigger
	cron    string
}

func NewScheduler(reg *registry.Registry, dispatcher *Dispatcher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		registry:   reg,
		dispatcher: dispatcher,
		logger:     logger.With("module", "scheduler"),
		triggers:   make(map[string]scheduledTrigger),
	}
}

// Sync reconciles running cron triggers with the current set of active
// schedule workflows: new ones are started, removed or rescheduled ones are
// stopped (and restarted with the new expression).
func (s *Scheduler) Sync(ctx context.Context) error {
	workflows, err := s.dispatcher.engine.MatchWorkflows(ctx, models.TriggerTypeSchedule, "")
	if err != nil {
		return err
	}

	wanted := make(map[string]string, len(workflows))
	for _, workflow := range workflows {
		wanted[workflow.ID] = workflow.CronExpr()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.triggers {
		cronExpr, keep := wanted[id]
		if keep && cronExpr == existing.cron {
			continue
		}

		if err := existing.trigger.Stop(ctx); err != nil {
			s.logger.Error("Failed to stop schedule trigger", "workflow_id", id, "error", err)
		}

		delete(s.triggers, id)
	}

	for id, cronExpr := range wanted {
		if _, exists := s.triggers[id]; exists {
			continue
		}

		if err := s.startTrigger(ctx, id, cronExpr); err != nil {
			s.logger.Error("Failed to start schedule trigger",
				"workflow_id", id, "cron", cronExpr, "error", err)
		}
	}

	return nil
}

func (s *Scheduler) startTrigger(ctx context.Context, workflowID, cronExpr string) error {
	trigger, err := s.registry.CreateTrigger("schedule", map[string]any{
		"cron":        cronExpr,
		"workflow_id": workflowID,
	})
	if err != nil {
		return err
	}

	callback := func(ctx context.Context, _ string, data map[string]any) error {
		return s.dispatcher.SubmitScheduled(ctx, workflowID, data)
	}

	if err := trigger.Start(ctx, callback); err != nil {
		return err
	}

	s.triggers[workflowID] = scheduledTrigger{trigger: trigger, cron: cronExpr}
	s.logger.Info("Schedule trigger started", "workflow_id", workflowID, "cron", cronExpr)

	return nil
}

// Stop halts every cron trigger.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.triggers {
		if err := existing.trigger.Stop(ctx); err != nil {
			s.logger.Error("Failed to stop schedule trigger", "workflow_id", id, "error", err)
		}

		delete(s.triggers, id)
	}
}
