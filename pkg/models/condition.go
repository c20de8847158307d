package models

import (
	"errors"
	"fmt"
)

// ErrInvalidCondition indicates a condition document that does not parse to a
// boolean expression tree.
var ErrInvalidCondition = errors.New("invalid condition")

// Comparison operators supported by condition leaves.
const (
	OperatorEq        = "eq"
	OperatorNeq       = "neq"
	OperatorGt        = "gt"
	OperatorGte       = "gte"
	OperatorLt        = "lt"
	OperatorLte       = "lte"
	OperatorContains  = "contains"
	OperatorIn        = "in"
	OperatorExists    = "exists"
	OperatorNotExists = "not_exists"
)

var knownOperators = map[string]bool{
	OperatorEq:        true,
	OperatorNeq:       true,
	OperatorGt:        true,
	OperatorGte:       true,
	OperatorLt:        true,
	OperatorLte:       true,
	OperatorContains:  true,
	OperatorIn:        true,
	OperatorExists:    true,
	OperatorNotExists: true,
}

// ConditionNode is one node of a parsed condition tree: exactly one of the
// composite fields (All/Any/Not) or the leaf comparison fields is populated.
type ConditionNode struct {
	All []*ConditionNode `json:"and,omitempty"`
	Any []*ConditionNode `json:"or,omitempty"`
	Not *ConditionNode   `json:"not,omitempty"`

	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// IsLeaf reports whether the node is a field comparison.
func (n *ConditionNode) IsLeaf() bool {
	return n.Field != ""
}

// ParseCondition converts a loosely-typed condition document into a tagged
// expression tree. Scalars, empty composites and unknown operators are
// rejected so malformed definitions fail at validation time, not mid-run.
func ParseCondition(raw any) (*ConditionNode, error) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidCondition, raw)
	}

	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: empty condition object", ErrInvalidCondition)
	}

	if branch, ok := doc["and"]; ok {
		children, err := parseBranch("and", branch)
		if err != nil {
			return nil, err
		}

		return &ConditionNode{All: children}, nil
	}

	if branch, ok := doc["or"]; ok {
		children, err := parseBranch("or", branch)
		if err != nil {
			return nil, err
		}

		return &ConditionNode{Any: children}, nil
	}

	if child, ok := doc["not"]; ok {
		parsed, err := ParseCondition(child)
		if err != nil {
			return nil, err
		}

		return &ConditionNode{Not: parsed}, nil
	}

	return parseLeaf(doc)
}

func parseBranch(name string, raw any) ([]*ConditionNode, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q expects an array of conditions", ErrInvalidCondition, name)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %q must not be empty", ErrInvalidCondition, name)
	}

	children := make([]*ConditionNode, 0, len(items))

	for _, item := range items {
		child, err := ParseCondition(item)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return children, nil
}

func parseLeaf(doc map[string]any) (*ConditionNode, error) {
	field, _ := doc["field"].(string)
	if field == "" {
		return nil, fmt.Errorf("%w: leaf comparison requires a 'field'", ErrInvalidCondition)
	}

	operator, _ := doc["operator"].(string)
	if operator == "" {
		operator = OperatorEq
	}

	if !knownOperators[operator] {
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, operator)
	}

	return &ConditionNode{
		Field:    field,
		Operator: operator,
		Value:    doc["value"],
	}, nil
}
