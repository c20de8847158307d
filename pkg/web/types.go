// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/talentflow/automation/pkg/models"

// CreateWorkflowRequest is the request body for creating a workflow. The
// definition may be incomplete; validation gates activation, not creation.
type CreateWorkflowRequest struct {
	Name          string               `json:"name"                     validate:"required,min=3"`
	Description   string               `json:"description"`
	Type          models.WorkflowType  `json:"type"                     validate:"required"`
	TriggerType   models.TriggerType   `json:"trigger_type"             validate:"required"`
	TriggerConfig map[string]any       `json:"trigger_config,omitempty"`
	Actions       []*models.ActionSpec `json:"actions,omitempty"`
	Conditions    map[string]any       `json:"conditions,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	Priority      int                  `json:"priority,omitempty"        validate:"omitempty,min=1,max=10"`
	TimeoutMs     int64                `json:"timeout_ms,omitempty"      validate:"omitempty,min=0"`
	MaxRetries    int                  `json:"max_retries,omitempty"     validate:"omitempty,min=0,max=5"`
	ErrorHandling models.ErrorHandling `json:"error_handling,omitempty"`
	IsTemplate    bool                 `json:"is_template,omitempty"`
	CreatedBy     string               `json:"created_by,omitempty"`
	Notes         string               `json:"notes,omitempty"`
}

// UpdateWorkflowRequest is the request body for a partial update. Only
// provided fields are applied; counters and version are server-managed.
type UpdateWorkflowRequest struct {
	Name          *string               `json:"name,omitempty"           validate:"omitempty,min=3"`
	Description   *string               `json:"description,omitempty"`
	Type          *models.WorkflowType  `json:"type,omitempty"`
	TriggerType   *models.TriggerType   `json:"trigger_type,omitempty"`
	TriggerConfig *map[string]any       `json:"trigger_config,omitempty"`
	Actions       *[]*models.ActionSpec `json:"actions,omitempty"`
	Conditions    *map[string]any       `json:"conditions,omitempty"`
	Tags          *[]string             `json:"tags,omitempty"`
	Priority      *int                  `json:"priority,omitempty"        validate:"omitempty,min=1,max=10"`
	TimeoutMs     *int64                `json:"timeout_ms,omitempty"      validate:"omitempty,min=0"`
	MaxRetries    *int                  `json:"max_retries,omitempty"     validate:"omitempty,min=0,max=5"`
	ErrorHandling *models.ErrorHandling `json:"error_handling,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
}

// DuplicateWorkflowRequest is the request body for duplicating a workflow.
type DuplicateWorkflowRequest struct {
	Name string `json:"name,omitempty" validate:"omitempty,min=3"`
}

// ToggleWorkflowRequest is the request body for activating or deactivating a
// workflow.
type ToggleWorkflowRequest struct {
	Active bool   `json:"active"`
	Note   string `json:"note,omitempty"`
}

// RunWorkflowRequest is the request body for a manual run.
type RunWorkflowRequest struct {
	InputData map[string]any `json:"input_data,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// SubmitEventRequest is the request body for submitting a domain event.
type SubmitEventRequest struct {
	Event   string         `json:"event"             validate:"required"`
	Payload map[string]any `json:"payload,omitempty"`
}
