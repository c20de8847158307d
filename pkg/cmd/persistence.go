// Package cmd provides common initialization for the command-line binaries:
// persistence, event bus and registry construction from configuration.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/persistence/file"
	"github.com/talentflow/automation/pkg/persistence/postgresql"
)

// NewPersistence selects the backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if found && (scheme == "postgres" || scheme == "postgresql") {
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err)
		}

		return store, nil
	}

	return file.NewPersistence(databaseURL), nil
}
