// Package models defines the core domain models for trigger-driven workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, never dispatched
	WorkflowStatusActive   WorkflowStatus = "active"   // Eligible for trigger matching
	WorkflowStatusInactive WorkflowStatus = "inactive" // Deactivated, kept for history
)

// WorkflowType categorizes a workflow by the HR domain it automates.
type WorkflowType string

const (
	WorkflowTypeApplication WorkflowType = "application"
	WorkflowTypeInterview   WorkflowType = "interview"
	WorkflowTypePayment     WorkflowType = "payment"
	WorkflowTypeReporting   WorkflowType = "reporting"
	WorkflowTypeCustom      WorkflowType = "custom"
)

// ErrorHandling controls how an action failure affects the rest of a run.
type ErrorHandling string

const (
	// ErrorHandlingAbort stops remaining actions, the run ends failed.
	ErrorHandlingAbort ErrorHandling = "abort"
	// ErrorHandlingContinue records the failure and proceeds to the next action.
	ErrorHandlingContinue ErrorHandling = "continue"
	// ErrorHandlingRetryAction retries the failing action with exponential
	// backoff before falling back to the abort treatment.
	ErrorHandlingRetryAction ErrorHandling = "retry-action"
)

const (
	MinPriority = 1
	MaxPriority = 10
	MaxRetries  = 5
)

// Workflow is a durable automation definition: a trigger, optional conditions
// and an ordered action list, plus execution bookkeeping maintained by the
// engine. Version backs optimistic concurrency between administrator edits and
// post-run counter settlement.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Type        WorkflowType   `json:"type"        validate:"required"`
	Status      WorkflowStatus `json:"status"`

	TriggerType   TriggerType    `json:"trigger_type"             validate:"required"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Actions       []*ActionSpec  `json:"actions"`
	Conditions    map[string]any `json:"conditions,omitempty"`

	Tags          []string      `json:"tags,omitempty"`
	Priority      int           `json:"priority"                 validate:"min=1,max=10"`
	TimeoutMs     int64         `json:"timeout_ms,omitempty"     validate:"min=0"`
	MaxRetries    int           `json:"max_retries"              validate:"min=0,max=5"`
	ErrorHandling ErrorHandling `json:"error_handling,omitempty"`

	IsActive   bool `json:"is_active"`
	IsTemplate bool `json:"is_template"`

	ExecutionCount      int64      `json:"execution_count"`
	SuccessCount        int64      `json:"success_count"`
	FailureCount        int64      `json:"failure_count"`
	LastExecutedAt      *time.Time `json:"last_executed_at,omitempty"`
	LastExecutionStatus RunStatus  `json:"last_execution_status,omitempty"`
	LastErrorMessage    string     `json:"last_error_message,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetStatus keeps Status and IsActive in lockstep: IsActive is true exactly
// when the status is active.
func (w *Workflow) SetStatus(status WorkflowStatus) {
	w.Status = status
	w.IsActive = status == WorkflowStatusActive
}

// Runnable reports whether the trigger dispatcher may consider this workflow.
// Templates are never auto-triggered.
func (w *Workflow) Runnable() bool {
	return w.IsActive && w.Status == WorkflowStatusActive && !w.IsTemplate
}

// Timeout returns the run deadline budget, zero when unbounded.
func (w *Workflow) Timeout() time.Duration {
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

// Policy returns the effective error-handling policy, defaulting to abort.
func (w *Workflow) Policy() ErrorHandling {
	if w.ErrorHandling == "" {
		return ErrorHandlingAbort
	}

	return w.ErrorHandling
}
