package models

import "time"

// Built-in action types recognized by the registry. Handlers for the
// platform-side types (email, tasks, records, reports, notifications) are
// capability implementations registered by the embedding application.
const (
	ActionTypeSendEmail        = "send_email"
	ActionTypeCreateTask       = "create_task"
	ActionTypeUpdateRecord     = "update_record"
	ActionTypeGenerateReport   = "generate_report"
	ActionTypeWebhookCall      = "webhook_call"
	ActionTypeSendNotification = "send_notification"
	ActionTypeLog              = "log"
)

// ActionSpec is one step of a workflow, discriminated by Type. Parameters is a
// type-specific bag validated against the registered JSON schema at definition
// time; string values may carry {{field}} placeholders resolved from the run
// context before dispatch.
type ActionSpec struct {
	ID         string         `json:"id"`
	Type       string         `json:"type" validate:"required"`
	Name       string         `json:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ActionResultStatus is the outcome of a single dispatched action.
type ActionResultStatus string

const (
	ActionResultSucceeded ActionResultStatus = "succeeded"
	ActionResultFailed    ActionResultStatus = "failed"
	ActionResultSkipped   ActionResultStatus = "skipped"
)

// ActionResult records the outcome of one action within a run. Attempts counts
// invocations, so Attempts-1 is the number of retries consumed.
type ActionResult struct {
	ActionID   string             `json:"action_id"`
	Type       string             `json:"type"`
	Status     ActionResultStatus `json:"status"`
	Output     any                `json:"output,omitempty"`
	Error      string             `json:"error,omitempty"`
	Attempts   int                `json:"attempts"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}
