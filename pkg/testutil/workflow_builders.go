// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/talentflow/automation/pkg/models"
)

// CreateTestWorkflow creates an active event workflow with default values
// that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.NewString(),
		Name:        "Welcome Mail",
		Description: "sends a welcome mail to new applicants",
		Type:        models.WorkflowTypeApplication,
		TriggerType: models.TriggerTypeEvent,
		TriggerConfig: map[string]any{
			"event": "application_received",
		},
		Actions: []*models.ActionSpec{
			{ID: "a1", Type: models.ActionTypeSendEmail, Parameters: map[string]any{"to": "{{candidateEmail}}"}},
			{ID: "a2", Type: models.ActionTypeLog, Parameters: map[string]any{"message": "welcomed"}},
		},
		Conditions: map[string]any{
			"field": "source", "operator": "eq", "value": "careers_page",
		},
		Tags:      []string{"onboarding", "email"},
		Priority:  5,
		CreatedAt: now,
		UpdatedAt: now,
	}
	workflow.SetStatus(models.WorkflowStatusActive)

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithName sets the workflow name.
func WithName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

// WithStatus sets the lifecycle status, keeping IsActive in lockstep.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.SetStatus(status)
	}
}

// WithScheduleTrigger configures the workflow as a cron schedule workflow.
func WithScheduleTrigger(cronExpr string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TriggerType = models.TriggerTypeSchedule
		w.TriggerConfig = map[string]any{"cron": cronExpr}
	}
}

// WithActions replaces the action list.
func WithActions(actions ...*models.ActionSpec) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Actions = actions
	}
}

// WithConditions replaces the condition document.
func WithConditions(conditions map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Conditions = conditions
	}
}

// AsTemplate marks the workflow as a template.
func AsTemplate() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.IsTemplate = true
	}
}

// CreateTestRun creates a pending run for the given workflow with default
// values that can be overridden.
func CreateTestRun(workflow *models.Workflow, overrides ...func(*models.Run)) *models.Run {
	run := &models.Run{
		ID:           uuid.NewString(),
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		TriggeredBy:  models.TriggeredBy{Source: workflow.TriggerType, Event: workflow.EventName()},
		InputData:    map[string]any{"source": "careers_page"},
		Status:       models.RunStatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	for _, override := range overrides {
		override(run)
	}

	return run
}

// WithRunStatus sets the run status.
func WithRunStatus(status models.RunStatus) func(*models.Run) {
	return func(r *models.Run) {
		r.Status = status
	}
}
