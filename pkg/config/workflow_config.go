// Package config provides loading of workflow definition files used to seed
// or bulk-import workflows.
package config

import (
	"fmt"
	"os"

	"github.com/talentflow/automation/pkg/models"
	"gopkg.in/yaml.v3"
)

// WorkflowFile is the structure of a workflows.yaml import file.
type WorkflowFile struct {
	Workflows []WorkflowDefinition `yaml:"workflows"`
}

// WorkflowDefinition is one workflow entry in the import file. Lifecycle
// fields (status, counters, versions) are intentionally absent: imported
// workflows always start as drafts.
type WorkflowDefinition struct {
	Name          string             `yaml:"name"`
	Description   string             `yaml:"description"`
	Type          string             `yaml:"type"`
	TriggerType   string             `yaml:"trigger_type"`
	TriggerConfig map[string]any     `yaml:"trigger_config"`
	Actions       []ActionDefinition `yaml:"actions"`
	Conditions    map[string]any     `yaml:"conditions"`
	Tags          []string           `yaml:"tags"`
	Priority      int                `yaml:"priority"`
	TimeoutMs     int64              `yaml:"timeout_ms"`
	MaxRetries    int                `yaml:"max_retries"`
	ErrorHandling string             `yaml:"error_handling"`
	IsTemplate    bool               `yaml:"is_template"`
	Notes         string             `yaml:"notes"`
}

// ActionDefinition is one action entry of a workflow in the import file.
type ActionDefinition struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Name       string         `yaml:"name"`
	Parameters map[string]any `yaml:"parameters"`
}

// LoadWorkflowFile parses a workflows.yaml file into workflow models. The
// returned workflows carry no ID, status or timestamps; the caller assigns
// those when persisting.
func LoadWorkflowFile(filepath string) ([]*models.Workflow, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", filepath, err)
	}

	var file WorkflowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file %s: %w", filepath, err)
	}

	workflows := make([]*models.Workflow, len(file.Workflows))
	for i, definition := range file.Workflows {
		workflows[i] = definition.toModel()
	}

	return workflows, nil
}

func (d WorkflowDefinition) toModel() *models.Workflow {
	actions := make([]*models.ActionSpec, len(d.Actions))
	for i, action := range d.Actions {
		actions[i] = &models.ActionSpec{
			ID:         action.ID,
			Type:       action.Type,
			Name:       action.Name,
			Parameters: action.Parameters,
		}
	}

	workflowType := models.WorkflowType(d.Type)
	if d.Type == "" {
		workflowType = models.WorkflowTypeCustom
	}

	return &models.Workflow{
		Name:          d.Name,
		Description:   d.Description,
		Type:          workflowType,
		TriggerType:   models.TriggerType(d.TriggerType),
		TriggerConfig: d.TriggerConfig,
		Actions:       actions,
		Conditions:    d.Conditions,
		Tags:          d.Tags,
		Priority:      d.Priority,
		TimeoutMs:     d.TimeoutMs,
		MaxRetries:    d.MaxRetries,
		ErrorHandling: models.ErrorHandling(d.ErrorHandling),
		IsTemplate:    d.IsTemplate,
		Notes:         d.Notes,
	}
}
