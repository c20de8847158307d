package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
)

// RunRepository stores one JSON document per run under <root>/runs. Runs are
// audit records independent of their workflow; deleting a workflow leaves
// them in place.
type RunRepository struct {
	root string
	mu   sync.Mutex
}

// NewRunRepository creates a new run repository.
func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (rr *RunRepository) dir() string {
	return filepath.Join(rr.root, "runs")
}

func (rr *RunRepository) path(id string) string {
	return filepath.Join(rr.dir(), id+".json")
}

// Save writes the run document (insert or replace).
func (rr *RunRepository) Save(_ context.Context, run *models.Run) error {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	if err := os.MkdirAll(rr.dir(), 0o755); err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	if err := os.WriteFile(rr.path(run.ID), data, 0o600); err != nil {
		return &persistence.RunError{Op: "Save", RunID: run.ID, Err: err}
	}

	return nil
}

// GetByID loads a single run, ErrRunNotFound when absent.
func (rr *RunRepository) GetByID(_ context.Context, id string) (*models.Run, error) {
	data, err := os.ReadFile(rr.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: persistence.ErrRunNotFound}
		}

		return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: err}
	}

	var run models.Run

	if err := json.Unmarshal(data, &run); err != nil {
		return nil, &persistence.RunError{Op: "GetByID", RunID: id, Err: err}
	}

	return &run, nil
}

// ListByWorkflow returns the most recent runs for a workflow, newest first,
// bounded by limit (default 20).
func (rr *RunRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	root := os.DirFS(rr.dir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.Run, 0)

	for _, file := range jsonFiles {
		runID := strings.TrimSuffix(file, ".json")

		run, err := rr.GetByID(ctx, runID)
		if err != nil {
			if persistence.IsRunNotFound(err) {
				continue
			}

			return nil, err
		}

		if run.WorkflowID == workflowID {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}
