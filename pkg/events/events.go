// Package events defines the lifecycle notifications published while
// workflows are triggered and runs settle.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic all automation lifecycle events share.
const Topic = "talentflow.automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent EventType = "workflow.triggered"

	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunTimedOutEvent  EventType = "run.timed_out"
	RunCancelledEvent EventType = "run.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// WorkflowTriggered is published once per matched workflow when a trigger
// submission resolves, before the run starts.
type WorkflowTriggered struct {
	BaseEvent

	RunID       string         `json:"run_id"`
	Event       string         `json:"event,omitempty"`
	Source      string         `json:"source"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (e WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type RunStarted struct {
	BaseEvent

	RunID string `json:"run_id"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	RunID      string `json:"run_id"`
	DurationMs int64  `json:"duration_ms"`
	// NoOp marks a run whose conditions evaluated false: it completed
	// without executing any actions.
	NoOp bool `json:"no_op,omitempty"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	RunID      string `json:"run_id"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunTimedOut struct {
	BaseEvent

	RunID      string `json:"run_id"`
	DurationMs int64  `json:"duration_ms"`
}

func (e RunTimedOut) GetType() EventType {
	return RunTimedOutEvent
}

type RunCancelled struct {
	BaseEvent

	RunID string `json:"run_id"`
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}
