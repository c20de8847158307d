package workflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/registry"
)

// ValidationResult is the outcome of static definition validation. All rules
// run independently so the caller sees every problem at once.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validator performs static checks on a workflow definition. A definition
// failing validation may stay in draft but cannot transition to active.
type Validator struct {
	registry *registry.Registry
	validate *validator.Validate
}

func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{
		registry: reg,
		validate: validator.New(),
	}
}

func (v *Validator) Validate(workflow *models.Workflow) ValidationResult {
	result := ValidationResult{Errors: []string{}}

	result.Errors = append(result.Errors, v.structErrors(workflow)...)
	result.Errors = append(result.Errors, v.actionErrors(workflow)...)
	result.Errors = append(result.Errors, v.triggerErrors(workflow)...)
	result.Errors = append(result.Errors, v.conditionErrors(workflow)...)
	result.Errors = append(result.Errors, v.policyErrors(workflow)...)

	result.Valid = len(result.Errors) == 0

	return result
}

func (v *Validator) structErrors(workflow *models.Workflow) []string {
	err := v.validate.Struct(workflow)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrors))

	for _, fieldErr := range fieldErrors {
		switch fieldErr.Field() {
		case "Name":
			messages = append(messages, "Name must be at least 3 characters")
		case "Priority":
			messages = append(messages, fmt.Sprintf("Priority must be between %d and %d",
				models.MinPriority, models.MaxPriority))
		case "MaxRetries":
			messages = append(messages, fmt.Sprintf("MaxRetries must be between 0 and %d", models.MaxRetries))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", fieldErr.Field(), fieldErr.Tag()))
		}
	}

	return messages
}

func (v *Validator) actionErrors(workflow *models.Workflow) []string {
	if len(workflow.Actions) == 0 {
		return []string{"Actions must be a non-empty array"}
	}

	var messages []string

	for i, action := range workflow.Actions {
		if action == nil {
			messages = append(messages, fmt.Sprintf("Action %d is empty", i))

			continue
		}

		if action.Type == "" {
			messages = append(messages, fmt.Sprintf("Action %d is missing a type", i))

			continue
		}

		if !v.registry.IsActionRegistered(action.Type) {
			messages = append(messages, fmt.Sprintf("Action %d has unrecognized type %q", i, action.Type))

			continue
		}

		if err := v.registry.ValidateParameters(action.Type, action.Parameters); err != nil {
			messages = append(messages, fmt.Sprintf("Action %d (%s): %v", i, action.Type, err))
		}
	}

	return messages
}

func (v *Validator) triggerErrors(workflow *models.Workflow) []string {
	switch workflow.TriggerType {
	case models.TriggerTypeEvent:
		if _, err := models.ParseEventTriggerConfig(workflow.TriggerConfig); err != nil {
			return []string{fmt.Sprintf("Trigger config: %v", err)}
		}
	case models.TriggerTypeSchedule:
		if _, err := models.ParseScheduleTriggerConfig(workflow.TriggerConfig); err != nil {
			return []string{fmt.Sprintf("Trigger config: %v", err)}
		}
	case models.TriggerTypeManual:
		// Manual workflows carry no trigger config.
	default:
		return []string{fmt.Sprintf("Unknown trigger type %q", workflow.TriggerType)}
	}

	return nil
}

func (v *Validator) conditionErrors(workflow *models.Workflow) []string {
	if workflow.Conditions == nil {
		return nil
	}

	if _, err := models.ParseCondition(workflow.Conditions); err != nil {
		return []string{fmt.Sprintf("Conditions: %v", err)}
	}

	return nil
}

func (v *Validator) policyErrors(workflow *models.Workflow) []string {
	switch workflow.ErrorHandling {
	case "", models.ErrorHandlingAbort, models.ErrorHandlingContinue, models.ErrorHandlingRetryAction:
		return nil
	default:
		return []string{fmt.Sprintf("Unknown error handling policy %q", workflow.ErrorHandling)}
	}
}
