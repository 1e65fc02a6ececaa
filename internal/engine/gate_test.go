package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		logic  models.Logic
		values []bool
		want   bool
	}{
		{"and empty", models.LogicAnd, nil, true},
		{"and true true", models.LogicAnd, []bool{true, true}, true},
		{"and true false", models.LogicAnd, []bool{true, false}, false},
		{"and false true", models.LogicAnd, []bool{false, true}, false},
		{"and false false", models.LogicAnd, []bool{false, false}, false},
		{"and one false of three", models.LogicAnd, []bool{true, false, true}, false},
		{"or empty", models.LogicOr, nil, false},
		{"or true true", models.LogicOr, []bool{true, true}, true},
		{"or true false", models.LogicOr, []bool{true, false}, true},
		{"or false true", models.LogicOr, []bool{false, true}, true},
		{"or false false", models.LogicOr, []bool{false, false}, false},
		{"or one true of three", models.LogicOr, []bool{false, false, true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Combine(tt.logic, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Combine("XOR", []bool{true})
	assert.Error(t, err)
	_, err = Combine("", nil)
	assert.Error(t, err)
}

// Order of checks carries no meaning: every permutation gives the same result.
func TestCombineIsCommutative(t *testing.T) {
	perms := [][]bool{
		{true, false, true},
		{false, true, true},
		{true, true, false},
	}
	for _, logic := range []models.Logic{models.LogicAnd, models.LogicOr} {
		first, err := Combine(logic, perms[0])
		require.NoError(t, err)
		for _, p := range perms[1:] {
			got, err := Combine(logic, p)
			require.NoError(t, err)
			assert.Equal(t, first, got, "logic %s", logic)
		}
	}
}

func TestBuildTree(t *testing.T) {
	conditions := []models.Condition{
		{ID: "c1", Logic: models.LogicAnd, Enabled: true, ControlsRoutine: true,
			Checks: []models.ConditionCheck{{ID: "k1"}, {ID: "k2"}}},
		{ID: "c2", Name: "Off", Logic: models.LogicOr, Enabled: false, ControlsRoutine: true},
		{ID: "c3", Logic: models.LogicAnd, Enabled: true, ControlsRoutine: false},
		{ID: "c4", Logic: models.LogicOr, Enabled: true, ControlsRoutine: true},
	}

	root, skipped := BuildTree(conditions)
	assert.Equal(t, models.LogicAnd, root.Logic)
	assert.Nil(t, root.Condition)
	require.Len(t, root.Children, 2)

	g1, ok := root.Children[0].(*Gate)
	require.True(t, ok)
	assert.Equal(t, "c1", g1.Condition.ID)
	require.Len(t, g1.Children, 2)
	leaf, ok := g1.Children[1].(*CheckNode)
	require.True(t, ok)
	assert.Equal(t, "k2", leaf.Check.ID)

	g4 := root.Children[1].(*Gate)
	assert.Empty(t, g4.Children)

	require.Len(t, skipped, 2)
	assert.Equal(t, "c2", skipped[0].ConditionID)
	assert.Equal(t, "disabled", skipped[0].SkipReason)
	assert.True(t, skipped[0].Skipped)
	assert.Equal(t, "c3", skipped[1].ConditionID)
	assert.Equal(t, "does not control routine visibility", skipped[1].SkipReason)
}

func TestEvaluateTree(t *testing.T) {
	store := checkFixture()
	ev := NewEvaluator(store)
	ec := NewEvaluationContext(at(2, 9, 0), utcConfig())

	done := models.ConditionCheck{ID: "done", Operator: models.OpTaskCompleted, TargetTaskID: "t-done"}
	open := models.ConditionCheck{ID: "open", Operator: models.OpTaskCompleted, TargetTaskID: "t-open"}

	t.Run("no gates is visible", func(t *testing.T) {
		ok, results, err := ev.EvaluateTree(context.Background(), &Gate{Logic: models.LogicAnd}, ec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, results)
	})

	t.Run("empty OR condition fails the routine", func(t *testing.T) {
		root, _ := BuildTree([]models.Condition{
			{ID: "c1", Logic: models.LogicOr, Enabled: true, ControlsRoutine: true},
		})
		ok, results, err := ev.EvaluateTree(context.Background(), root, ec)
		require.NoError(t, err)
		assert.False(t, ok)
		require.Len(t, results, 1)
		assert.False(t, results[0].Passed)
	})

	t.Run("conditions are ANDed", func(t *testing.T) {
		root, _ := BuildTree([]models.Condition{
			{ID: "any", Logic: models.LogicOr, Enabled: true, ControlsRoutine: true, Checks: []models.ConditionCheck{done, open}},
			{ID: "all", Logic: models.LogicAnd, Enabled: true, ControlsRoutine: true, Checks: []models.ConditionCheck{done, open}},
		})
		ok, results, err := ev.EvaluateTree(context.Background(), root, ec)
		require.NoError(t, err)
		assert.False(t, ok)
		require.Len(t, results, 2)
		assert.True(t, results[0].Passed)
		assert.False(t, results[1].Passed)
		assert.Len(t, results[1].CheckResults, 2)
		require.Len(t, results[1].FailedChecks(), 1)
		assert.Equal(t, "open", results[1].FailedChecks()[0].CheckID)
	})

	t.Run("unknown logic fails closed", func(t *testing.T) {
		root, _ := BuildTree([]models.Condition{
			{ID: "weird", Logic: "XOR", Enabled: true, ControlsRoutine: true, Checks: []models.ConditionCheck{done}},
		})
		ok, results, err := ev.EvaluateTree(context.Background(), root, ec)
		require.NoError(t, err)
		assert.False(t, ok)
		require.Len(t, results, 1)
		require.Len(t, results[0].Diagnostics, 1)
		assert.Equal(t, constants.DiagnosticConfiguration, results[0].Diagnostics[0].Kind)
		assert.Contains(t, results[0].Diagnostics[0].Message, "condition weird")
	})

	t.Run("nested gates", func(t *testing.T) {
		root := &Gate{Logic: models.LogicOr, Children: []Node{
			&Gate{Logic: models.LogicAnd, Children: []Node{&CheckNode{Check: done}, &CheckNode{Check: open}}},
			&CheckNode{Check: done},
		}}
		ok, results, err := ev.EvaluateTree(context.Background(), root, ec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, results, "only condition gates produce trace entries")
	})
}
