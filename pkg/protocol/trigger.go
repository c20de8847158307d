package protocol

import (
	"context"
	"log/slog"
)

// TriggerCallback is invoked by a trigger source whenever it fires. The data
// map becomes the input data of the resulting run.
type TriggerCallback func(ctx context.Context, event string, data map[string]any) error

// Trigger is a long-running source of workflow trigger events, such as a cron
// scheduler or a queue consumer.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}

// TriggerFactory creates trigger instances from raw configuration.
type TriggerFactory interface {
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
	ID() string
}
