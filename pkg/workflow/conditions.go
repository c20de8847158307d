package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/talentflow/automation/pkg/models"
)

// Evaluator gates a matched workflow on its condition tree. Evaluation is
// pure and fails closed: a malformed tree evaluates to false and is reported
// as a ConditionEvaluationError instead of aborting the run path.
type Evaluator struct {
	logger *slog.Logger
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With("module", "condition_evaluator")}
}

// Evaluate returns whether the workflow's actions should run for the given
// run context. Absent conditions always pass.
func (e *Evaluator) Evaluate(workflow *models.Workflow, runCtx map[string]any) bool {
	if workflow.Conditions == nil {
		return true
	}

	node, err := models.ParseCondition(workflow.Conditions)
	if err != nil {
		condErr := &ConditionEvaluationError{WorkflowID: workflow.ID, Err: err}
		e.logger.Warn("Condition tree is malformed, failing closed", "workflow_id", workflow.ID, "error", condErr)

		return false
	}

	return evalNode(node, runCtx)
}

func evalNode(node *models.ConditionNode, runCtx map[string]any) bool {
	switch {
	case len(node.All) > 0:
		for _, child := range node.All {
			if !evalNode(child, runCtx) {
				return false
			}
		}

		return true
	case len(node.Any) > 0:
		for _, child := range node.Any {
			if evalNode(child, runCtx) {
				return true
			}
		}

		return false
	case node.Not != nil:
		return !evalNode(node.Not, runCtx)
	default:
		return evalLeaf(node, runCtx)
	}
}

func evalLeaf(node *models.ConditionNode, runCtx map[string]any) bool {
	actual, present := runCtx[node.Field]

	switch node.Operator {
	case models.OperatorExists:
		return present
	case models.OperatorNotExists:
		return !present
	}

	if !present {
		return false
	}

	switch node.Operator {
	case models.OperatorEq:
		return valuesEqual(actual, node.Value)
	case models.OperatorNeq:
		return !valuesEqual(actual, node.Value)
	case models.OperatorGt, models.OperatorGte, models.OperatorLt, models.OperatorLte:
		return compareOrdered(node.Operator, actual, node.Value)
	case models.OperatorContains:
		return containsValue(actual, node.Value)
	case models.OperatorIn:
		return inList(actual, node.Value)
	default:
		return false
	}
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}

		return false
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareOrdered(operator string, actual, expected any) bool {
	fa, okA := toFloat(actual)
	fb, okB := toFloat(expected)

	if !okA || !okB {
		return false
	}

	switch operator {
	case models.OperatorGt:
		return fa > fb
	case models.OperatorGte:
		return fa >= fb
	case models.OperatorLt:
		return fa < fb
	case models.OperatorLte:
		return fa <= fb
	default:
		return false
	}
}

func containsValue(actual, expected any) bool {
	switch v := actual.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", expected))
	case []any:
		for _, item := range v {
			if valuesEqual(item, expected) {
				return true
			}
		}

		return false
	case []string:
		for _, item := range v {
			if valuesEqual(item, expected) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func inList(actual, expected any) bool {
	items, ok := expected.([]any)
	if !ok {
		return false
	}

	for _, item := range items {
		if valuesEqual(actual, item) {
			return true
		}
	}

	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
