// Package queue provides the Redis queue trigger source: domain events pushed
// onto a Redis list by other platform services are popped and fed into the
// dispatcher as trigger events.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/talentflow/automation/pkg/protocol"
)

var ErrQueueNameRequired = errors.New("queue trigger queue name is required")

// Trigger consumes JSON messages of the form {"event": "...", "payload": {...}}
// from a Redis list. Messages without that shape are forwarded under the
// event name "queue_message" with the raw text as payload.
type Trigger struct {
	Addr     string
	Password string
	DB       int
	Queue    string

	client   redis.UniversalClient
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	queueName, _ := config["queue"].(string)
	addr, _ := config["addr"].(string)
	password, _ := config["password"].(string)

	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0
	if dbValue, ok := config["db"].(float64); ok {
		db = int(dbValue)
	}

	trigger := &Trigger{
		Addr:     addr,
		Password: password,
		DB:       db,
		Queue:    queueName,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queueName,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Queue == "" {
		return ErrQueueNameRequired
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.logger.InfoContext(ctx, "Starting queue trigger")
	t.callback = callback

	t.client = redis.NewClient(&redis.Options{
		Addr:     t.Addr,
		Password: t.Password,
		DB:       t.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := t.processMessage(ctx); err != nil {
				t.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, 1*time.Second, t.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	event, payload := parseMessage(result[1])

	go func() {
		if err := t.callback(ctx, event, payload); err != nil {
			t.logger.ErrorContext(ctx, "Trigger callback failed", "event", event, "error", err)
		}
	}()

	return nil
}

func parseMessage(message string) (string, map[string]any) {
	var envelope struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}

	if err := json.Unmarshal([]byte(message), &envelope); err == nil && envelope.Event != "" {
		if envelope.Payload == nil {
			envelope.Payload = map[string]any{}
		}

		return envelope.Event, envelope.Payload
	}

	return "queue_message", map[string]any{
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
