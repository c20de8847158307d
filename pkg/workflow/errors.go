// Package workflow contains the execution core: condition evaluation,
// definition validation, the action executor, the run state machine and the
// trigger dispatcher.
package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrRunTimeout marks a run that exceeded its wall-clock deadline.
	ErrRunTimeout = errors.New("run deadline exceeded")
	// ErrRunCancelled marks a run stopped by a cooperative cancellation request.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrActionsFailed marks a run in which one or more actions failed.
	ErrActionsFailed = errors.New("one or more actions failed")
)

// ConditionEvaluationError records a malformed condition tree. It is logged
// and the condition evaluates to false; it never aborts the dispatcher.
type ConditionEvaluationError struct {
	WorkflowID string
	Err        error
}

func (e *ConditionEvaluationError) Error() string {
	return fmt.Sprintf("condition evaluation failed for workflow %s: %v", e.WorkflowID, e.Err)
}

func (e *ConditionEvaluationError) Unwrap() error {
	return e.Err
}
