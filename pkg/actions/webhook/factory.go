package webhook

import (
	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/protocol"
)

// Factory creates webhook_call handlers.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) ID() string {
	return models.ActionTypeWebhookCall
}

func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	return NewAction(params)
}

func (f *Factory) Schema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:        "object",
		Title:       "Webhook Call",
		Description: "Sends an HTTP request to an external endpoint.",
		Properties: map[string]*models.Property{
			"url": {
				Type:        "string",
				Format:      "uri",
				Description: "Endpoint to call. Supports {{field}} placeholders from the run context.",
			},
			"method": {
				Type:        "string",
				Description: "HTTP method.",
				Default:     "POST",
				Enum:        []any{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": {
				Type:        "object",
				Description: "HTTP headers to include. Values support placeholders.",
			},
			"body": {
				Type:        "string",
				Description: "Request body. Objects are serialized as JSON.",
			},
			"timeout_seconds": {
				Type:        "integer",
				Description: "Per-request timeout in seconds.",
				Default:     30,
			},
		},
		Required: []string{"url"},
	}
}
