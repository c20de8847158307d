package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/talentflow/automation/pkg/models"
	"github.com/talentflow/automation/pkg/persistence"
)

const recentWorkflowsLimit = 10

// Stats aggregates execution statistics across workflow definitions.
type Stats struct {
	persistence persistence.Persistence
}

func NewStats(persistence persistence.Persistence) *Stats {
	return &Stats{persistence: persistence}
}

// TypeStats is the per-category execution breakdown.
type TypeStats struct {
	Workflows      int   `json:"workflows"`
	ExecutionCount int64 `json:"execution_count"`
	SuccessCount   int64 `json:"success_count"`
	FailureCount   int64 `json:"failure_count"`
}

// WorkflowStats is the platform-wide aggregate view.
type WorkflowStats struct {
	TotalWorkflows  int                                   `json:"total_workflows"`
	ActiveWorkflows int                                   `json:"active_workflows"`
	DraftWorkflows  int                                   `json:"draft_workflows"`
	Templates       int                                   `json:"templates"`
	TotalExecutions int64                                 `json:"total_executions"`
	TotalSuccesses  int64                                 `json:"total_successes"`
	TotalFailures   int64                                 `json:"total_failures"`
	ByType          map[models.WorkflowType]*TypeStats    `json:"by_type"`
	ByStatus        map[models.WorkflowStatus]int         `json:"by_status"`
	RecentlyRun     []*models.Workflow                    `json:"recently_run"`
}

// WorkflowHealth is the per-workflow execution health view. SuccessRate is a
// percentage rounded to two decimals, zero when the workflow never ran.
type WorkflowHealth struct {
	WorkflowID          string           `json:"workflow_id"`
	Name                string           `json:"name"`
	IsActive            bool             `json:"is_active"`
	ExecutionCount      int64            `json:"execution_count"`
	SuccessCount        int64            `json:"success_count"`
	FailureCount        int64            `json:"failure_count"`
	SuccessRate         float64          `json:"success_rate"`
	LastExecutionStatus models.RunStatus `json:"last_execution_status,omitempty"`
	LastErrorMessage    string           `json:"last_error_message,omitempty"`
	LastExecutedAt      *string          `json:"last_executed_at,omitempty"`
}

// GetWorkflowStats computes the aggregate view over every definition.
func (s *Stats) GetWorkflowStats(ctx context.Context) (*WorkflowStats, error) {
	workflows, err := s.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &WorkflowStats{
		ByType:   make(map[models.WorkflowType]*TypeStats),
		ByStatus: make(map[models.WorkflowStatus]int),
	}

	executed := make([]*models.Workflow, 0)

	for _, wf := range workflows {
		stats.TotalWorkflows++
		stats.ByStatus[wf.Status]++

		if wf.IsTemplate {
			stats.Templates++
		}

		if wf.IsActive {
			stats.ActiveWorkflows++
		}

		if wf.Status == models.WorkflowStatusDraft {
			stats.DraftWorkflows++
		}

		stats.TotalExecutions += wf.ExecutionCount
		stats.TotalSuccesses += wf.SuccessCount
		stats.TotalFailures += wf.FailureCount

		typeStats, ok := stats.ByType[wf.Type]
		if !ok {
			typeStats = &TypeStats{}
			stats.ByType[wf.Type] = typeStats
		}

		typeStats.Workflows++
		typeStats.ExecutionCount += wf.ExecutionCount
		typeStats.SuccessCount += wf.SuccessCount
		typeStats.FailureCount += wf.FailureCount

		if wf.LastExecutedAt != nil {
			executed = append(executed, wf)
		}
	}

	sort.Slice(executed, func(i, j int) bool {
		return executed[i].LastExecutedAt.After(*executed[j].LastExecutedAt)
	})

	if len(executed) > recentWorkflowsLimit {
		executed = executed[:recentWorkflowsLimit]
	}

	stats.RecentlyRun = executed

	return stats, nil
}

// GetWorkflowHealth computes the execution health of one workflow.
func (s *Stats) GetWorkflowHealth(ctx context.Context, workflowID string) (*WorkflowHealth, error) {
	wf, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	health := &WorkflowHealth{
		WorkflowID:          wf.ID,
		Name:                wf.Name,
		IsActive:            wf.IsActive,
		ExecutionCount:      wf.ExecutionCount,
		SuccessCount:        wf.SuccessCount,
		FailureCount:        wf.FailureCount,
		LastExecutionStatus: wf.LastExecutionStatus,
		LastErrorMessage:    wf.LastErrorMessage,
	}

	if wf.ExecutionCount > 0 {
		rate := float64(wf.SuccessCount) / float64(wf.ExecutionCount) * 100
		health.SuccessRate = math.Round(rate*100) / 100
	}

	if wf.LastExecutedAt != nil {
		formatted := wf.LastExecutedAt.UTC().Format(time.RFC3339)
		health.LastExecutedAt = &formatted
	}

	return health, nil
}
