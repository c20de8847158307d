package models

import "time"

// RunStatus is the lifecycle state of a single execution attempt.
// Transitions: pending, then running, then one of the terminal states.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusTimedOut  RunStatus = "timed_out"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusTimedOut, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Success reports whether a settled run counts toward successCount.
// Timed-out and cancelled runs count as failures.
func (s RunStatus) Success() bool {
	return s == RunStatusCompleted
}

// TriggeredBy identifies what caused a run: the trigger source plus the
// submitted event name, requesting user or request ID where applicable.
type TriggeredBy struct {
	Source    TriggerType `json:"source"`
	Event     string      `json:"event,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// Run is one execution attempt of a workflow's actions. Runs are persisted as
// independent audit records; deleting the workflow does not cascade to them.
type Run struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	WorkflowName  string         `json:"workflow_name,omitempty"`
	TriggeredBy   TriggeredBy    `json:"triggered_by"`
	InputData     map[string]any `json:"input_data,omitempty"`
	Status        RunStatus      `json:"status"`
	ActionResults []ActionResult `json:"action_results,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	RetryCount    int            `json:"retry_count"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Context returns the flat key-value map conditions and templates evaluate
// against, derived from the trigger input plus run identity fields.
func (r *Run) Context() map[string]any {
	ctx := make(map[string]any, len(r.InputData)+3)

	for k, v := range r.InputData {
		ctx[k] = v
	}

	ctx["run_id"] = r.ID
	ctx["workflow_id"] = r.WorkflowID
	ctx["triggered_by"] = string(r.TriggeredBy.Source)

	return ctx
}
