package models

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// TriggerType identifies the source that causes a workflow to be considered
// for execution.
type TriggerType string

const (
	TriggerTypeEvent    TriggerType = "event"
	TriggerTypeSchedule TriggerType = "schedule"
	TriggerTypeManual   TriggerType = "manual"
)

var ErrInvalidTriggerConfig = errors.New("invalid trigger config")

// EventTriggerConfig fires the workflow when a matching domain event is
// submitted (e.g. "application_received").
type EventTriggerConfig struct {
	Event string `json:"event"`
}

// ScheduleTriggerConfig fires the workflow on a cron schedule.
type ScheduleTriggerConfig struct {
	Cron string `json:"cron"`
}

// ParseEventTriggerConfig decodes and validates an event trigger config bag.
func ParseEventTriggerConfig(config map[string]any) (*EventTriggerConfig, error) {
	event, _ := config["event"].(string)
	if event == "" {
		return nil, fmt.Errorf("%w: event trigger requires a non-empty 'event' name", ErrInvalidTriggerConfig)
	}

	return &EventTriggerConfig{Event: event}, nil
}

// ParseScheduleTriggerConfig decodes and validates a schedule trigger config bag.
func ParseScheduleTriggerConfig(config map[string]any) (*ScheduleTriggerConfig, error) {
	expr, _ := config["cron"].(string)
	if expr == "" {
		return nil, fmt.Errorf("%w: schedule trigger requires a non-empty 'cron' expression", ErrInvalidTriggerConfig)
	}

	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("%w: invalid cron expression %q: %v", ErrInvalidTriggerConfig, expr, err)
	}

	return &ScheduleTriggerConfig{Cron: expr}, nil
}

// EventName extracts the configured event name, empty when absent. Used by the
// dispatcher to match submitted events against event-triggered workflows.
func (w *Workflow) EventName() string {
	if w.TriggerConfig == nil {
		return ""
	}

	event, _ := w.TriggerConfig["event"].(string)

	return event
}

// CronExpr extracts the configured cron expression, empty when absent.
func (w *Workflow) CronExpr() string {
	if w.TriggerConfig == nil {
		return ""
	}

	expr, _ := w.TriggerConfig["cron"].(string)

	return expr
}
