package registry

import (
	logaction "github.com/talentflow/automation/pkg/actions/log"
	"github.com/talentflow/automation/pkg/actions/webhook"
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/triggers/queue"
	"github.com/talentflow/automation/pkg/triggers/schedule"
)

// RegisterDefaults wires the built-in action handlers, the schema-only action
// types fulfilled by external collaborators, and the trigger sources.
func RegisterDefaults(r *Registry) {
	r.RegisterAction("Webhook Call", "Sends an HTTP request to an external endpoint.", webhook.NewFactory())
	r.RegisterAction("Log", "Writes a message to the structured log.", logaction.NewFactory())

	for _, component := range externalComponents() {
		r.RegisterSchema(component)
	}

	r.RegisterTrigger(schedule.NewFactory())
	r.RegisterTrigger(queue.NewFactory())
}

// externalComponents describes action types whose handlers live outside this
// process (mail gateway, notification fan-out, record services). Their
// schemas are registered so definitions validate; execution requires the
// collaborator to register a handler.
func externalComponents() []*models.RegisteredComponent {
	return []*models.RegisteredComponent{
		{
			Type:        models.ActionTypeSendEmail,
			Name:        "Send Email",
			Description: "Sends an email through the platform mail gateway.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"to":       {Type: "string", Description: "Recipient address. Supports {{field}} placeholders."},
					"subject":  {Type: "string", Description: "Subject line."},
					"template": {Type: "string", Description: "Mail template identifier."},
					"body":     {Type: "string", Description: "Body text, used when no template is set."},
				},
				Required: []string{"to"},
			},
		},
		{
			Type:        models.ActionTypeSendNotification,
			Name:        "Send Notification",
			Description: "Delivers an in-app, SMS or push notification.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"channel": {Type: "string", Enum: []any{"in_app", "sms", "push"}, Default: "in_app"},
					"user_id": {Type: "string", Description: "Target user. Supports placeholders."},
					"message": {Type: "string", Description: "Notification text."},
				},
				Required: []string{"user_id", "message"},
			},
		},
		{
			Type:        models.ActionTypeCreateTask,
			Name:        "Create Task",
			Description: "Creates a task for a recruiter or hiring manager.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"assignee": {Type: "string", Description: "User the task is assigned to."},
					"title":    {Type: "string", Description: "Task title."},
					"due_in_days": {
						Type: "integer", Description: "Days until the task is due.", Default: 3,
					},
				},
				Required: []string{"assignee", "title"},
			},
		},
		{
			Type:        models.ActionTypeUpdateRecord,
			Name:        "Update Record",
			Description: "Updates a field on a platform record (candidate, job, interview).",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"entity":    {Type: "string", Enum: []any{"candidate", "job", "interview", "payment"}},
					"record_id": {Type: "string", Description: "Record to update. Supports placeholders."},
					"field":     {Type: "string", Description: "Field name."},
					"value":     {Type: "string", Description: "New value."},
				},
				Required: []string{"entity", "record_id", "field"},
			},
		},
		{
			Type:        models.ActionTypeGenerateReport,
			Name:        "Generate Report",
			Description: "Queues generation of a report document.",
			Schema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"report_type": {Type: "string", Description: "Report template to render."},
					"recipients": {
						Type:        "array",
						Description: "Who receives the finished report.",
						Items:       &models.Property{Type: "string"},
					},
				},
				Required: []string{"report_type"},
			},
		},
	}
}
