// Package registry holds the action handler factories and trigger factories
// known to the engine, keyed by type.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrActionTypeUnknown is returned when an action type has no registered
	// component at all.
	ErrActionTypeUnknown = errors.New("action type not registered")
	// ErrHandlerNotAvailable is returned when an action type is recognized
	// but no handler implementation is registered for it in this process.
	ErrHandlerNotAvailable = errors.New("no handler registered for action type")
	// ErrTriggerUnknown is returned when a trigger ID has no registered factory.
	ErrTriggerUnknown = errors.New("trigger not registered")
	// ErrInvalidParameters is returned when action parameters fail schema validation.
	ErrInvalidParameters = errors.New("invalid action parameters")
)

// Registry maps action types to their parameter schemas and, where available
// in this process, handler factories. An action type may be registered
// schema-only: the validator recognizes it, but execution requires an external
// collaborator to register the handler.
type Registry struct {
	logger           *slog.Logger
	components       map[string]*models.RegisteredComponent
	actionFactories  map[string]protocol.ActionFactory
	triggerFactories map[string]protocol.TriggerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:           logger,
		components:       make(map[string]*models.RegisteredComponent),
		actionFactories:  make(map[string]protocol.ActionFactory),
		triggerFactories: make(map[string]protocol.TriggerFactory),
	}
}

// RegisterAction registers an action handler factory along with its schema.
func (r *Registry) RegisterAction(name, description string, factory protocol.ActionFactory) {
	r.components[factory.ID()] = &models.RegisteredComponent{
		Type:        factory.ID(),
		Name:        name,
		Description: description,
		Schema:      factory.Schema(),
	}
	r.actionFactories[factory.ID()] = factory
}

// RegisterSchema registers an action type without a handler. Definitions
// using the type validate, but runs fail with ErrHandlerNotAvailable unless a
// handler is registered before execution.
func (r *Registry) RegisterSchema(component *models.RegisteredComponent) {
	r.components[component.Type] = component
}

// RegisterTrigger registers a trigger source factory.
func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.triggerFactories[factory.ID()] = factory
}

// IsActionRegistered reports whether the action type is recognized, with or
// without a local handler.
func (r *Registry) IsActionRegistered(actionType string) bool {
	_, exists := r.components[actionType]

	return exists
}

// Components returns metadata for every registered action type.
func (r *Registry) Components() []*models.RegisteredComponent {
	components := make([]*models.RegisteredComponent, 0, len(r.components))
	for _, component := range r.components {
		components = append(components, component)
	}

	return components
}

// ValidateParameters checks an action's parameter bag against the registered
// schema for its type.
func (r *Registry) ValidateParameters(actionType string, params map[string]any) error {
	component, exists := r.components[actionType]
	if !exists {
		return fmt.Errorf("%w: %s", ErrActionTypeUnknown, actionType)
	}

	if component.Schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(component.Schema)
	dataLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate parameters for %s: %w", actionType, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidParameters, strings.Join(descriptions, "; "))
	}

	return nil
}

// CreateAction builds a handler for one action. Parameters must already be
// rendered against the run context.
func (r *Registry) CreateAction(actionType string, params map[string]any) (protocol.ActionHandler, error) {
	if _, exists := r.components[actionType]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrActionTypeUnknown, actionType)
	}

	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotAvailable, actionType)
	}

	return factory.Create(params)
}

// CreateTrigger builds a trigger source instance.
func (r *Registry) CreateTrigger(triggerID string, config map[string]any) (protocol.Trigger, error) {
	factory, ok := r.triggerFactories[triggerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTriggerUnknown, triggerID)
	}

	return factory.Create(config, r.logger)
}
