package queue

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTrigger_Defaults(t *testing.T) {
	trigger, err := NewTrigger(map[string]any{"queue": "automation:events"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", trigger.Addr)
	assert.Equal(t, 0, trigger.DB)
	assert.Equal(t, "automation:events", trigger.Queue)
}

func TestNewTrigger_RequiresQueueName(t *testing.T) {
	_, err := NewTrigger(map[string]any{}, testLogger())
	require.ErrorIs(t, err, ErrQueueNameRequired)
}

func TestParseMessage_Envelope(t *testing.T) {
	event, payload := parseMessage(`{"event":"application_received","payload":{"candidateEmail":"a@b.com"}}`)
	assert.Equal(t, "application_received", event)
	assert.Equal(t, "a@b.com", payload["candidateEmail"])
}

func TestParseMessage_RawText(t *testing.T) {
	event, payload := parseMessage("not json at all")
	assert.Equal(t, "queue_message", event)
	assert.Equal(t, "not json at all", payload["message"])
}
