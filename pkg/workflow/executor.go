package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentflow/automation/pkg/backoff"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/protocol"
	"github.com/talentflow/automation/pkg/registry"
	"github.com/talentflow/automation/pkg/template"
)

// defaultActionGrace bounds a single handler invocation. A handler that
// neither returns nor honors its context within the grace period force-fails
// the run as timed out.
const defaultActionGrace = 60 * time.Second

// Executor runs a workflow's actions strictly in list order, dispatching each
// to its registered handler with parameters rendered against the run context.
type Executor struct {
	registry    *registry.Registry
	backoff     backoff.Strategy
	actionGrace time.Duration
	logger      *slog.Logger
}

func NewExecutor(reg *registry.Registry, strategy backoff.Strategy, logger *slog.Logger) *Executor {
	if strategy == nil {
		strategy = backoff.Default()
	}

	return &Executor{
		registry:    reg,
		backoff:     strategy,
		actionGrace: defaultActionGrace,
		logger:      logger.With("module", "action_executor"),
	}
}

// Execute drives the run's actions. The returned error is the run's terminal
// classification: nil for completed, ErrRunTimeout, ErrRunCancelled, or
// ErrActionsFailed. Per-action outcomes are appended to run.ActionResults and
// run.RetryCount tracks the largest number of retries any one action consumed.
func (x *Executor) Execute(ctx context.Context, workflow *models.Workflow, run *models.Run, cancelled func() bool) error {
	policy := workflow.Policy()
	runCtx := run.Context()

	deadline := time.Time{}
	if timeout := workflow.Timeout(); timeout > 0 && run.StartedAt != nil {
		deadline = run.StartedAt.Add(timeout)
	}

	logger := x.logger.With("workflow_id", workflow.ID, "run_id", run.ID)

	anyFailed := false

	for i, action := range workflow.Actions {
		if cancelled != nil && cancelled() {
			x.skipRemaining(run, workflow.Actions[i:])

			return ErrRunCancelled
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			x.skipRemaining(run, workflow.Actions[i:])

			return ErrRunTimeout
		}

		result, err := x.executeAction(ctx, action, runCtx, workflow, run, deadline, logger)
		run.ActionResults = append(run.ActionResults, result)

		if err == nil {
			continue
		}

		// Grace timeouts and cancellation are terminal for the run whatever
		// the failure policy says.
		if errors.Is(err, ErrRunTimeout) || errors.Is(err, ErrRunCancelled) {
			x.skipRemaining(run, workflow.Actions[i+1:])

			return err
		}

		if policy == models.ErrorHandlingContinue {
			anyFailed = true

			continue
		}

		// abort, or retry-action with retries exhausted: stop here.
		x.skipRemaining(run, workflow.Actions[i+1:])

		return fmt.Errorf("%w: %s", ErrActionsFailed, result.Error)
	}

	if anyFailed {
		return ErrActionsFailed
	}

	return nil
}

// executeAction runs one action, retrying retryable failures when the
// workflow's policy is retry-action.
func (x *Executor) executeAction(
	ctx context.Context,
	action *models.ActionSpec,
	runCtx map[string]any,
	workflow *models.Workflow,
	run *models.Run,
	deadline time.Time,
	logger *slog.Logger,
) (models.ActionResult, error) {
	result := models.ActionResult{
		ActionID:  action.ID,
		Type:      action.Type,
		StartedAt: time.Now().UTC(),
	}

	maxAttempts := 1
	if workflow.Policy() == models.ErrorHandlingRetryAction {
		maxAttempts = 1 + workflow.MaxRetries
	}

	var (
		output  map[string]any
		lastErr error
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if attempt > 1 {
			delay := x.backoff.Delay(attempt - 1)
			logger.Info("Retrying action", "action_id", action.ID, "attempt", attempt, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				result.Status = models.ActionResultFailed
				result.Error = ctx.Err().Error()
				result.FinishedAt = time.Now().UTC()

				return result, ErrRunCancelled
			}
		}

		output, lastErr = x.invokeOnce(ctx, action, runCtx, deadline, logger)
		if lastErr == nil {
			break
		}

		if !protocol.IsRetryable(lastErr) {
			break
		}

		logger.Warn("Action failed with a retryable error",
			"action_id", action.ID, "attempt", attempt, "error", lastErr)
	}

	if retries := result.Attempts - 1; retries > run.RetryCount {
		run.RetryCount = retries
	}

	result.FinishedAt = time.Now().UTC()

	if lastErr != nil {
		result.Status = models.ActionResultFailed
		result.Error = lastErr.Error()
		result.Output = output

		return result, lastErr
	}

	result.Status = models.ActionResultSucceeded
	result.Output = output

	return result, nil
}

// invokeOnce renders parameters, builds the handler and calls it under the
// action grace timer.
func (x *Executor) invokeOnce(
	ctx context.Context,
	action *models.ActionSpec,
	runCtx map[string]any,
	deadline time.Time,
	logger *slog.Logger,
) (map[string]any, error) {
	params, err := template.RenderParameters(action.Parameters, runCtx)
	if err != nil {
		return nil, protocol.NewPermanentError(action.Type, err)
	}

	handler, err := x.registry.CreateAction(action.Type, params)
	if err != nil {
		return nil, protocol.NewPermanentError(action.Type, err)
	}

	grace := x.actionGrace
	if !deadline.IsZero() {
		if remaining := time.Until(deadline); remaining < grace {
			grace = remaining
		}
	}

	actionCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()

	type outcome struct {
		output map[string]any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		output, err := handler.Execute(actionCtx, runCtx, logger)
		done <- outcome{output: output, err: err}
	}()

	select {
	case res := <-done:
		return res.output, res.err
	case <-actionCtx.Done():
		return nil, fmt.Errorf("%w: action %s exceeded its grace period", ErrRunTimeout, action.ID)
	}
}

func (x *Executor) skipRemaining(run *models.Run, remaining []*models.ActionSpec) {
	now := time.Now().UTC()

	for _, action := range remaining {
		run.ActionResults = append(run.ActionResults, models.ActionResult{
			ActionID:   action.ID,
			Type:       action.Type,
			Status:     models.ActionResultSkipped,
			StartedAt:  now,
			FinishedAt: now,
		})
	}
}
