package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
)

const defaultWorkerCount = 4

type job struct {
	workflow    *models.Workflow
	triggeredBy models.TriggeredBy
	inputData   map[string]any
}

// DispatcherConfig tunes the worker pool. ExclusivePerWorkflow serializes runs
// of the same workflow in arrival order; it defaults to enabled via
// NewDispatcherConfig.
type DispatcherConfig struct {
	Workers              int
	ExclusivePerWorkflow bool
}

func NewDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:              defaultWorkerCount,
		ExclusivePerWorkflow: true,
	}
}

// Dispatcher fans trigger occurrences out to a bounded worker pool. Runs for
// distinct workflows proceed in parallel; with exclusivity enabled, runs for
// the same workflow are serialized so a workflow never has two runs in flight.
type Dispatcher struct {
	engine    *Engine
	logger    *slog.Logger
	workers   int
	exclusive bool

	jobs   chan job
	jobsWg sync.WaitGroup

	mu      sync.Mutex
	running map[string]bool
	queued  map[string][]job

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	workersWg sync.WaitGroup
}

func NewDispatcher(engine *Engine, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkerCount
	}

	return &Dispatcher{
		engine:    engine,
		logger:    logger.With("module", "dispatcher"),
		workers:   cfg.Workers,
		exclusive: cfg.ExclusivePerWorkflow,
		jobs:      make(chan job, cfg.Workers*16),
		running:   make(map[string]bool),
		queued:    make(map[string][]job),
		done:      make(chan struct{}),
	}
}

// Start launches the worker pool. Safe to call once; subsequent calls are
// no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.logger.Info("Starting dispatcher", "workers", d.workers)

		for i := 0; i < d.workers; i++ {
			d.workersWg.Add(1)

			go d.worker(ctx)
		}
	})
}

// Stop shuts the pool down. In-flight runs finish; queued jobs that have not
// been picked up are dropped and accounted for so Wait cannot hang.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
		d.workersWg.Wait()
		d.drainPending()
		d.logger.Info("Dispatcher stopped")
	})
}

// drainPending drops every job the stopped pool will never execute: the
// per-workflow FIFO queues and whatever is still buffered in the channel.
// Runs after the workers exit, so nothing races the maps or the channel.
func (d *Dispatcher) drainPending() {
	d.mu.Lock()

	for id, queue := range d.queued {
		for range queue {
			d.jobsWg.Done()
		}

		delete(d.queued, id)
		delete(d.running, id)
	}

	d.mu.Unlock()

	for {
		select {
		case <-d.jobs:
			d.jobsWg.Done()
		default:
			return
		}
	}
}

// SubmitEvent matches active event workflows against the event name and
// enqueues a run per match. Returns how many workflows matched.
func (d *Dispatcher) SubmitEvent(ctx context.Context, event string, payload map[string]any) (int, error) {
	matched, err := d.engine.MatchWorkflows(ctx, models.TriggerTypeEvent, event)
	if err != nil {
		return 0, err
	}

	triggeredBy := models.TriggeredBy{Source: models.TriggerTypeEvent, Event: event}

	for _, workflow := range matched {
		d.submit(job{workflow: workflow, triggeredBy: triggeredBy, inputData: payload})
	}

	d.logger.Info("Event submitted", "event", event, "matched", len(matched))

	return len(matched), nil
}

// OnScheduleTick enqueues a run for every active schedule workflow. Used when
// the caller drives scheduling externally rather than per workflow.
func (d *Dispatcher) OnScheduleTick(ctx context.Context) (int, error) {
	matched, err := d.engine.MatchWorkflows(ctx, models.TriggerTypeSchedule, "")
	if err != nil {
		return 0, err
	}

	triggeredBy := models.TriggeredBy{Source: models.TriggerTypeSchedule}

	for _, workflow := range matched {
		d.submit(job{workflow: workflow, triggeredBy: triggeredBy})
	}

	return len(matched), nil
}

// SubmitScheduled enqueues a run for one schedule workflow, typically from a
// cron callback. Missing or inactive workflows are skipped silently.
func (d *Dispatcher) SubmitScheduled(ctx context.Context, workflowID string, data map[string]any) error {
	workflow, err := d.engine.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil
		}

		return err
	}

	if !workflow.Runnable() {
		return nil
	}

	d.submit(job{
		workflow:    workflow,
		triggeredBy: models.TriggeredBy{Source: models.TriggerTypeSchedule},
		inputData:   data,
	})

	return nil
}

// Wait blocks until every submitted job has finished executing.
func (d *Dispatcher) Wait() {
	d.jobsWg.Wait()
}

// submit enqueues a job unless a run for the same workflow is already in
// flight, in which case it joins that workflow's FIFO queue and is released
// when the current run finishes.
func (d *Dispatcher) submit(j job) {
	d.jobsWg.Add(1)

	if !d.exclusive {
		d.jobs <- j

		return
	}

	id := j.workflow.ID

	d.mu.Lock()

	if d.running[id] {
		d.queued[id] = append(d.queued[id], j)
		d.mu.Unlock()

		return
	}

	d.running[id] = true
	d.mu.Unlock()

	// Send outside the lock so a full channel cannot stall release calls.
	d.jobs <- j
}

// release hands the workflow's next queued job to the pool, or clears the
// running mark when the queue is empty.
func (d *Dispatcher) release(workflowID string) {
	if !d.exclusive {
		return
	}

	d.mu.Lock()

	queue := d.queued[workflowID]
	if len(queue) == 0 {
		delete(d.running, workflowID)
		delete(d.queued, workflowID)
		d.mu.Unlock()

		return
	}

	next := queue[0]
	d.queued[workflowID] = queue[1:]
	d.mu.Unlock()

	// A blocking send here runs on a worker goroutine; selecting on done keeps
	// a deep backlog from deadlocking the pool during shutdown. The dropped
	// job is accounted for, the rest of the queue drains in Stop.
	select {
	case d.jobs <- next:
	case <-d.done:
		d.jobsWg.Done()
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.workersWg.Done()

	for {
		select {
		case <-d.done:
			return
		case j := <-d.jobs:
			d.execute(ctx, j)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	defer d.jobsWg.Done()
	defer d.release(j.workflow.ID)

	if _, err := d.engine.Execute(ctx, j.workflow, j.triggeredBy, j.inputData); err != nil {
		d.logger.Error("Run execution failed", "workflow_id", j.workflow.ID, "error", err)
	}
}
