package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/automation/pkg/config"
	"github.com/talentflow/automation/pkg/models"
)

const sampleWorkflowFile = `
workflows:
  - name: Applicant Welcome
    description: sends a welcome mail to new applicants
    type: application
    trigger_type: event
    trigger_config:
      event: application_received
    conditions:
      field: source
      operator: eq
      value: careers_page
    actions:
      - id: a1
        type: send_email
        parameters:
          to: "{{candidateEmail}}"
      - id: a2
        type: log
        parameters:
          message: welcomed
    tags: [onboarding, email]
    priority: 7
    max_retries: 2
    error_handling: retry-action
  - name: Nightly Digest
    trigger_type: schedule
    trigger_config:
      cron: "0 2 * * *"
    actions:
      - id: a1
        type: generate_report
    is_template: true
`

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadWorkflowFile(t *testing.T) {
	workflows, err := config.LoadWorkflowFile(writeFile(t, sampleWorkflowFile))
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	welcome := workflows[0]
	assert.Equal(t, "Applicant Welcome", welcome.Name)
	assert.Equal(t, models.WorkflowTypeApplication, welcome.Type)
	assert.Equal(t, models.TriggerTypeEvent, welcome.TriggerType)
	assert.Equal(t, "application_received", welcome.EventName())
	assert.Equal(t, models.ErrorHandlingRetryAction, welcome.ErrorHandling)
	assert.Equal(t, 7, welcome.Priority)
	assert.Equal(t, 2, welcome.MaxRetries)
	require.Len(t, welcome.Actions, 2)
	assert.Equal(t, models.ActionTypeSendEmail, welcome.Actions[0].Type)
	assert.Equal(t, "eq", welcome.Conditions["operator"])

	digest := workflows[1]
	assert.Equal(t, models.WorkflowTypeCustom, digest.Type)
	assert.Equal(t, "0 2 * * *", digest.CronExpr())
	assert.True(t, digest.IsTemplate)

	// Lifecycle fields are assigned at import time, not in the file.
	assert.Empty(t, welcome.ID)
	assert.Empty(t, welcome.Status)
}

func TestLoadWorkflowFile_MissingFile(t *testing.T) {
	_, err := config.LoadWorkflowFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadWorkflowFile_InvalidYAML(t *testing.T) {
	_, err := config.LoadWorkflowFile(writeFile(t, "workflows: [unterminated"))
	require.Error(t, err)
}
