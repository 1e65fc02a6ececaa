package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

// Diagnostic explains why a clause failed closed.
type Diagnostic struct {
	Kind    string `json:"kind"` // constants.DiagnosticConfiguration or constants.DiagnosticDanglingReference
	Message string `json:"message"`
}

// CheckResult is the outcome of one check, after negation.
type CheckResult struct {
	CheckID     string       `json:"check_id"`
	Passed      bool         `json:"passed"`
	Negated     bool         `json:"negated,omitempty"`
	Reason      string       `json:"reason"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// ConditionResult is the trace entry for one condition. Skipped conditions
// (disabled, or not controlling the routine) did not take part in the decision.
type ConditionResult struct {
	ConditionID  string        `json:"condition_id"`
	Name         string        `json:"name,omitempty"`
	Logic        models.Logic  `json:"logic"`
	Passed       bool          `json:"passed"`
	Skipped      bool          `json:"skipped,omitempty"`
	SkipReason   string        `json:"skip_reason,omitempty"`
	CheckResults []CheckResult `json:"check_results"`
	Diagnostics  []Diagnostic  `json:"diagnostics,omitempty"`
}

// Label returns the condition name, falling back to its id.
func (c ConditionResult) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ConditionID
}

// FailedChecks returns the checks that evaluated false.
func (c ConditionResult) FailedChecks() []CheckResult {
	var out []CheckResult
	for _, cr := range c.CheckResults {
		if !cr.Passed {
			out = append(out, cr)
		}
	}
	return out
}

// VisibilityResult is the user-facing outcome of evaluating a routine.
type VisibilityResult struct {
	RoutineID         string            `json:"routine_id"`
	EvaluatedAt       time.Time         `json:"evaluated_at"`
	Visible           bool              `json:"visible"`
	RuleVisible       bool              `json:"rule_visible"`
	OverrideActive    bool              `json:"override_active"`
	OverrideExpiresAt *time.Time        `json:"override_expires_at,omitempty"`
	ConditionResults  []ConditionResult `json:"condition_results"`
}

// OverrideRemaining returns how long the active override still applies.
func (v VisibilityResult) OverrideRemaining() time.Duration {
	if !v.OverrideActive || v.OverrideExpiresAt == nil {
		return 0
	}
	d := v.OverrideExpiresAt.Sub(v.EvaluatedAt)
	if d < 0 {
		return 0
	}
	return d
}

// FailedConditions returns the evaluated conditions that did not pass.
func (v VisibilityResult) FailedConditions() []ConditionResult {
	var out []ConditionResult
	for _, c := range v.ConditionResults {
		if !c.Skipped && !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Diagnostics collects every diagnostic attached anywhere in the trace.
func (v VisibilityResult) Diagnostics() []Diagnostic {
	var out []Diagnostic
	for _, c := range v.ConditionResults {
		out = append(out, c.Diagnostics...)
		for _, cr := range c.CheckResults {
			out = append(out, cr.Diagnostics...)
		}
	}
	return out
}

// Summary renders a one-line explanation such as
// "hidden: condition 'Weekday mornings' failed: day Tue not in [Mon Wed Fri]".
func (v VisibilityResult) Summary() string {
	if v.OverrideActive {
		mins := int(v.OverrideRemaining().Round(time.Minute) / time.Minute)
		if v.RuleVisible {
			return fmt.Sprintf("visible (override active, %d min left)", mins)
		}
		return fmt.Sprintf("visible by override for %d more min (rules would hide it)", mins)
	}
	if v.Visible {
		return "visible"
	}

	failed := v.FailedConditions()
	if len(failed) == 0 {
		return "hidden"
	}
	var parts []string
	for _, c := range failed {
		var reasons []string
		for _, cr := range c.FailedChecks() {
			reasons = append(reasons, cr.Reason)
		}
		part := fmt.Sprintf("condition '%s' failed", c.Label())
		if len(reasons) > 0 {
			part += ": " + strings.Join(reasons, "; ")
		}
		parts = append(parts, part)
	}
	return "hidden: " + strings.Join(parts, ", ")
}
