package schedule_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talentflow/automation/pkg/triggers/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTrigger(t *testing.T) {
	trigger, err := schedule.NewTrigger(map[string]any{
		"cron":        "*/5 * * * *",
		"workflow_id": "wf-1",
	}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", trigger.CronExpr)
	assert.Equal(t, "wf-1", trigger.WorkflowID)
}

func TestNewTrigger_RequiresCron(t *testing.T) {
	_, err := schedule.NewTrigger(map[string]any{"workflow_id": "wf-1"}, testLogger())
	require.ErrorIs(t, err, schedule.ErrCronRequired)
}

func TestNewTrigger_RejectsBadCron(t *testing.T) {
	_, err := schedule.NewTrigger(map[string]any{"cron": "not a cron"}, testLogger())
	require.Error(t, err)
}
