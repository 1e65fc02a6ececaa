package validation

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// ConflictType represents the type of problem found in a condition
type ConflictType string

const (
	ConflictInvalidField     ConflictType = "invalid_field"
	ConflictNoChecks         ConflictType = "no_checks"
	ConflictUnknownOperator  ConflictType = "unknown_operator"
	ConflictNonNumericValue  ConflictType = "non_numeric_value"
	ConflictTargetMismatch   ConflictType = "target_mismatch"
	ConflictMultipleTargets  ConflictType = "multiple_targets"
	ConflictMissingTarget    ConflictType = "missing_target"
	ConflictInvalidTime      ConflictType = "invalid_time"
	ConflictMissingWindowEnd ConflictType = "missing_window_end"
	ConflictInvalidWeekday   ConflictType = "invalid_weekday"
	ConflictDanglingTarget   ConflictType = "dangling_target"
	ConflictDuplicateCheckID ConflictType = "duplicate_check_id"
)

// Conflict is one problem found in a condition or one of its checks.
type Conflict struct {
	Type        ConflictType
	Description string
	ConditionID string
	CheckID     string // empty for condition-level problems
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Err returns the report as an error, or nil when there is nothing to report.
func (vr *ValidationResult) Err() error {
	if !vr.HasConflicts() {
		return nil
	}
	return errors.New(strings.TrimSuffix(vr.FormatReport(), "\n"))
}

// Without returns the conflicts whose type is not listed.
func (vr *ValidationResult) Without(types ...ConflictType) ValidationResult {
	out := ValidationResult{Conflicts: []Conflict{}}
	for _, c := range vr.Conflicts {
		if !slices.Contains(types, c.Type) {
			out.Conflicts = append(out.Conflicts, c)
		}
	}
	return out
}

func (vr *ValidationResult) add(t ConflictType, c models.Condition, checkID, format string, args ...any) {
	vr.Conflicts = append(vr.Conflicts, Conflict{
		Type:        t,
		Description: fmt.Sprintf("condition %q: ", c.Label()) + fmt.Sprintf(format, args...),
		ConditionID: c.ID,
		CheckID:     checkID,
	})
}

// Refs is the set of live target ids a condition may point at. A nil Refs
// skips the dangling-reference pass.
type Refs struct {
	Tasks    map[string]bool
	Routines map[string]bool
	Goals    map[string]bool
}

// NewRefs builds a Refs from stored rows, skipping soft-deleted ones.
func NewRefs(tasks []models.Task, routines []models.Routine, goals []models.Goal) *Refs {
	r := &Refs{
		Tasks:    make(map[string]bool, len(tasks)),
		Routines: make(map[string]bool, len(routines)),
		Goals:    make(map[string]bool, len(goals)),
	}
	for _, t := range tasks {
		if t.DeletedAt == nil {
			r.Tasks[t.ID] = true
		}
	}
	for _, rt := range routines {
		if rt.DeletedAt == nil {
			r.Routines[rt.ID] = true
		}
	}
	for _, g := range goals {
		if g.DeletedAt == nil {
			r.Goals[g.ID] = true
		}
	}
	return r
}

func (r *Refs) has(kind models.TargetKind, id string) bool {
	switch kind {
	case models.TargetTask:
		return r.Tasks[id]
	case models.TargetRoutine:
		return r.Routines[id]
	case models.TargetGoal:
		return r.Goals[id]
	}
	return false
}

// Validator lints conditions before they are saved or when running doctor.
// Field-level rules come from the struct tags on models.Condition; the rest
// are cross-field checks the tags cannot express.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateCondition lints a single condition without reference checks.
func (v *Validator) ValidateCondition(c models.Condition) ValidationResult {
	return v.ValidateConditions([]models.Condition{c}, nil)
}

// ValidateConditions lints every condition. When refs is non-nil, target ids
// that do not resolve are reported as dangling.
func (v *Validator) ValidateConditions(conditions []models.Condition, refs *Refs) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	for _, c := range conditions {
		v.structErrors(&result, c)

		if len(c.Checks) == 0 {
			result.add(ConflictNoChecks, c, "", "has no checks (it always passes with AND and always fails with OR)")
		}

		seen := make(map[string]bool, len(c.Checks))
		for i, ch := range c.Checks {
			if ch.ID != "" {
				if seen[ch.ID] {
					result.add(ConflictDuplicateCheckID, c, ch.ID, "check id %s is used more than once", ch.ID)
				}
				seen[ch.ID] = true
			}
			checkTarget(&result, c, i, ch, refs)
			checkTime(&result, c, i, ch)
		}
	}

	return result
}

func (v *Validator) structErrors(result *ValidationResult, c models.Condition) {
	err := v.validate.Struct(c)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		result.add(ConflictInvalidField, c, "", "%v", err)
		return
	}
	for _, fe := range verrs {
		t := ConflictInvalidField
		if strings.HasPrefix(fe.StructField(), "DayOfWeek") {
			t = ConflictInvalidWeekday
		}
		result.add(t, c, "", "%s", describeFieldError(fe))
	}
}

func describeFieldError(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ns)
	case "oneof":
		return fmt.Sprintf("%s %q must be one of %s", ns, fmt.Sprint(fe.Value()), fe.Param())
	case "min", "max":
		if strings.HasPrefix(fe.StructField(), "DayOfWeek") {
			return fmt.Sprintf("%s %v is not a weekday (0=Sunday..6=Saturday)", ns, fe.Value())
		}
		return fmt.Sprintf("%s violates %s=%s", ns, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", ns, fe.Tag())
}

func checkLabel(i int, ch models.ConditionCheck) string {
	if ch.ID != "" {
		return ch.ID
	}
	return "#" + strconv.Itoa(i+1)
}

func checkTarget(result *ValidationResult, c models.Condition, i int, ch models.ConditionCheck, refs *Refs) {
	label := checkLabel(i, ch)
	kind, id, n := ch.Target()

	if n > 1 {
		result.add(ConflictMultipleTargets, c, ch.ID, "check %s sets %d targets, expected one", label, n)
		return
	}
	if ch.Operator == "" {
		if n == 1 {
			result.add(ConflictUnknownOperator, c, ch.ID, "check %s has a %s target but no operator", label, kind)
		}
		return
	}

	want, ok := ch.Operator.TargetKind()
	if !ok {
		result.add(ConflictUnknownOperator, c, ch.ID, "check %s uses unknown operator %s", label, ch.Operator)
		return
	}
	if n == 0 {
		result.add(ConflictMissingTarget, c, ch.ID, "check %s operator %s needs a %s target", label, ch.Operator, want)
		return
	}
	if want != kind {
		result.add(ConflictTargetMismatch, c, ch.ID, "check %s operator %s applies to a %s, not a %s", label, ch.Operator, want, kind)
		return
	}
	if ch.Operator.IsComparison() {
		f, err := strconv.ParseFloat(strings.TrimSpace(ch.Value), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			result.add(ConflictNonNumericValue, c, ch.ID, "check %s operator %s needs a numeric value, got %q", label, ch.Operator, ch.Value)
		}
	}
	if refs != nil && !refs.has(kind, id) {
		result.add(ConflictDanglingTarget, c, ch.ID, "check %s references missing %s %s", label, kind, id)
	}
}

func checkTime(result *ValidationResult, c models.Condition, i int, ch models.ConditionCheck) {
	if ch.TimeOperator == "" {
		return
	}
	label := checkLabel(i, ch)
	if !utils.ValidateTimeFormat(ch.TimeValue) {
		result.add(ConflictInvalidTime, c, ch.ID, "check %s time %q is not HH:MM", label, ch.TimeValue)
	}
	if ch.TimeOperator != models.TimeBetween {
		return
	}
	if ch.Value2 == "" {
		result.add(ConflictMissingWindowEnd, c, ch.ID, "check %s BETWEEN needs an end time", label)
		return
	}
	if !utils.ValidateTimeFormat(ch.Value2) {
		result.add(ConflictInvalidTime, c, ch.ID, "check %s end time %q is not HH:MM", label, ch.Value2)
	}
}

// SortConflicts orders conflicts by condition then check for stable output.
func SortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].ConditionID != conflicts[j].ConditionID {
			return conflicts[i].ConditionID < conflicts[j].ConditionID
		}
		return conflicts[i].CheckID < conflicts[j].CheckID
	})
}
