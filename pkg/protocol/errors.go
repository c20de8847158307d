package protocol

import "errors"

// ActionError is the failure contract between action handlers and the
// executor. Retryable failures drive action-level retries under the
// retry-action policy; permanent ones propagate straight to the workflow's
// error handling policy.
type ActionError struct {
	ActionType string
	Retryable  bool
	Err        error
}

func (e *ActionError) Error() string {
	if e.Err == nil {
		return "action " + e.ActionType + " failed"
	}

	return "action " + e.ActionType + " failed: " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// NewRetryableError marks a handler failure as transient.
func NewRetryableError(actionType string, err error) *ActionError {
	return &ActionError{ActionType: actionType, Retryable: true, Err: err}
}

// NewPermanentError marks a handler failure as not worth retrying.
func NewPermanentError(actionType string, err error) *ActionError {
	return &ActionError{ActionType: actionType, Retryable: false, Err: err}
}

// IsRetryable reports whether err carries a retryable ActionError. Errors that
// are not ActionErrors are treated as permanent.
func IsRetryable(err error) bool {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Retryable
	}

	return false
}
