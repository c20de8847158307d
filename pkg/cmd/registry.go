package cmd

import (
	"log/slog"

	"github.com/talentflow/automation/pkg/registry"
)

// NewRegistry builds the component registry with the built-in handlers,
// the schema-only platform action types and the trigger factories.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	registry.RegisterDefaults(reg)

	return reg
}
