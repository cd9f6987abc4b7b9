package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateMatchesByTargetKind(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.Compile([]Rule{
		{ID: "cpu-critical", Objective: "resource", Condition: "kind == 'cpu' && value >= 90.0", Severity: "critical", Priority: 2, TargetKinds: []string{"cpu"}},
		{ID: "cpu-high", Objective: "resource", Condition: "kind == 'cpu' && value >= 80.0", Severity: "high", Priority: 1, TargetKinds: []string{"cpu"}},
		{ID: "mem-high", Objective: "resource", Condition: "kind == 'mem' && value >= 80.0", Severity: "high", Priority: 1, TargetKinds: []string{"mem"}},
	}))

	matches, err := e.Evaluate(context.Background(), Metrics{Kind: "cpu", Value: 95})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "cpu-critical", matches[0].ID) // higher priority first
	assert.Equal(t, "cpu-high", matches[1].ID)
}

func TestEvaluateAppliesGlobalRules(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.Compile([]Rule{
		{ID: "global-nonzero", Condition: "value > 0.0", Severity: "info", Priority: 0},
	}))

	matches, err := e.Evaluate(context.Background(), Metrics{Kind: "anything", Value: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "global-nonzero", matches[0].ID)
}

func TestEvaluateNoMatchReturnsEmpty(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	require.NoError(t, e.Compile([]Rule{
		{ID: "cpu-critical", Condition: "kind == 'cpu' && value >= 90.0", TargetKinds: []string{"cpu"}},
	}))

	matches, err := e.Evaluate(context.Background(), Metrics{Kind: "cpu", Value: 10})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCompileRejectsInvalidExpression(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)
	err = e.Compile([]Rule{{ID: "broken", Condition: "kind ==="}})
	require.Error(t, err)
}
