package objectives

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/model"
)

func TestFleetAnalyzerFlagsDrift(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/edge/fleets": `[{"id":"f1","pipelineCount":10},{"id":"f2","pipelineCount":11},{"id":"f3","pipelineCount":2}]`,
	})

	a := NewFleetAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	found := false
	for _, f := range res.Findings {
		if f.Category == "fleet_drift" && f.Severity == model.SeverityMedium {
			found = true
			assert.Contains(t, f.Title, "f3")
		}
	}
	assert.True(t, found, "expected a drift finding for f3")
}

func TestFleetAnalyzerSingleFleetSkipsComparison(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/edge/fleets": `[{"id":"f1","pipelineCount":10}]`,
	})

	a := NewFleetAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
}

func TestFleetAnalyzerConsistentFleetsEmitInfoFinding(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/edge/fleets": `[{"id":"f1","pipelineCount":10},{"id":"f2","pipelineCount":11}]`,
	})

	a := NewFleetAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
}
