package engine

import (
	"context"
	"fmt"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// Node is an element of the evaluation tree: a *Gate or a *CheckNode.
type Node interface {
	node()
}

// Gate folds its children with Logic. The routine root is an AND gate whose
// children are one gate per controlling condition.
type Gate struct {
	Logic     models.Logic
	Condition *models.Condition // nil for the routine root
	Children  []Node
}

// CheckNode is a leaf holding a single check.
type CheckNode struct {
	Check models.ConditionCheck
}

func (*Gate) node()      {}
func (*CheckNode) node() {}

// Combine folds values with logic. AND over nothing is true and OR over
// nothing is false.
func Combine(logic models.Logic, values []bool) (bool, error) {
	switch logic {
	case models.LogicAnd:
		for _, v := range values {
			if !v {
				return false, nil
			}
		}
		return true, nil
	case models.LogicOr:
		for _, v := range values {
			if v {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown logic %q", logic)
	}
}

// BuildTree turns a routine's conditions into the evaluation tree. Conditions
// that are disabled or do not control the routine are left out and returned
// as skipped trace entries, in input order.
func BuildTree(conditions []models.Condition) (*Gate, []ConditionResult) {
	root := &Gate{Logic: models.LogicAnd}
	var skipped []ConditionResult

	for i := range conditions {
		c := &conditions[i]
		reason := ""
		switch {
		case !c.Enabled:
			reason = "disabled"
		case !c.ControlsRoutine:
			reason = "does not control routine visibility"
		}
		if reason != "" {
			skipped = append(skipped, ConditionResult{
				ConditionID:  c.ID,
				Name:         c.Name,
				Logic:        c.Logic,
				Skipped:      true,
				SkipReason:   reason,
				CheckResults: []CheckResult{},
			})
			continue
		}

		gate := &Gate{Logic: c.Logic, Condition: c}
		for _, check := range c.Checks {
			gate.Children = append(gate.Children, &CheckNode{Check: check})
		}
		root.Children = append(root.Children, gate)
	}
	return root, skipped
}

// treeEval walks a tree for one evaluation, collecting per-condition trace
// entries as condition gates finish.
type treeEval struct {
	eval    *Evaluator
	ec      EvaluationContext
	current *ConditionResult
	results []ConditionResult
}

func (t *treeEval) evalNode(ctx context.Context, n Node) (bool, error) {
	switch n := n.(type) {
	case *CheckNode:
		cr, err := t.eval.EvaluateCheck(ctx, n.Check, t.ec)
		if err != nil {
			return false, err
		}
		if t.current != nil {
			t.current.CheckResults = append(t.current.CheckResults, cr)
		}
		return cr.Passed, nil

	case *Gate:
		var cond *ConditionResult
		if n.Condition != nil {
			cond = &ConditionResult{
				ConditionID:  n.Condition.ID,
				Name:         n.Condition.Name,
				Logic:        n.Condition.Logic,
				CheckResults: []CheckResult{},
			}
			parent := t.current
			t.current = cond
			defer func() { t.current = parent }()
		}

		values := make([]bool, 0, len(n.Children))
		for _, child := range n.Children {
			v, err := t.evalNode(ctx, child)
			if err != nil {
				return false, err
			}
			values = append(values, v)
		}

		passed, err := Combine(n.Logic, values)
		if err != nil {
			subject := "routine"
			if n.Condition != nil {
				subject = "condition " + n.Condition.ID
			}
			cfgErr := &apperrors.ConfigurationError{Subject: subject, Field: "logic", Reason: err.Error()}
			logger.Warn("condition failed closed", "error", cfgErr)
			if cond != nil {
				cond.Diagnostics = append(cond.Diagnostics, Diagnostic{
					Kind:    constants.DiagnosticConfiguration,
					Message: cfgErr.Error(),
				})
			}
			passed = false
		}

		if cond != nil {
			cond.Passed = passed
			t.results = append(t.results, *cond)
		}
		return passed, nil

	default:
		return false, fmt.Errorf("unknown node type %T", n)
	}
}

// EvaluateTree evaluates root and returns its value with one trace entry per
// condition gate, in tree order.
func (e *Evaluator) EvaluateTree(ctx context.Context, root *Gate, ec EvaluationContext) (bool, []ConditionResult, error) {
	t := &treeEval{eval: e, ec: ec}
	ok, err := t.evalNode(ctx, root)
	if err != nil {
		return false, nil, err
	}
	return ok, t.results, nil
}
