// Package file provides file-based persistence for workflows and runs,
// intended for development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/talentflow/automation/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
// Workflows live under <root>/workflows, runs under <root>/runs, one JSON
// document per record.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	runRepo      *RunRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is stripped so database-URL style configuration works.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		runRepo:      NewRunRepository(cleanRoot),
	}
}

// WorkflowRepository returns the workflow repository implementation.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// RunRepository returns the run repository implementation.
func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
