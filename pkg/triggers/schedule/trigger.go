// Package schedule provides the cron trigger source. One trigger instance is
// created per active schedule workflow, carrying that workflow's cron
// expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talentflow/automation/pkg/protocol"
)

// EventScheduleDue is the event name passed to the trigger callback on every
// cron firing.
const EventScheduleDue = "schedule_due"

var ErrCronRequired = errors.New("schedule trigger cron expression is required")

type Trigger struct {
	CronExpr   string
	WorkflowID string

	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	cronExpr, _ := config["cron"].(string)
	workflowID, _ := config["workflow_id"].(string)

	trigger := &Trigger{
		CronExpr:   cronExpr,
		WorkflowID: workflowID,
		logger: logger.With(
			"module", "schedule_trigger",
			"cron", cronExpr,
			"workflow_id", workflowID,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.CronExpr == "" {
		return ErrCronRequired
	}

	if _, err := cron.ParseStandard(t.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", t.CronExpr, err)
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.logger.InfoContext(ctx, "Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := t.cron.AddFunc(t.CronExpr, t.fire)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron.Start()

	return nil
}

func (t *Trigger) fire() {
	data := map[string]any{
		"workflow_id": t.WorkflowID,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := t.callback(context.Background(), EventScheduleDue, data); err != nil {
			t.logger.Error("Schedule callback failed", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping schedule trigger")

	if t.cron != nil {
		t.cron.Stop()
	}

	return nil
}
