package objectives

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/model"
)

func TestHealthAnalyzerFlagsUnhealthyWorker(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/master/workers": `[
			{"id":"w1","group":"default","status":"healthy","lastMsgTime":0},
			{"id":"w2","group":"default","status":"disconnected","lastMsgTime":0}
		]`,
	})

	a := NewHealthAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityHigh, res.Findings[0].Severity)
	assert.Contains(t, res.Findings[0].Title, "w2")
}

func TestHealthAnalyzerSingleWorkerFlagsHA(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/master/workers": `[{"id":"w1","group":"default","status":"healthy","lastMsgTime":0}]`,
	})

	a := NewHealthAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0].Title, "high-availability")
	require.Len(t, res.Recommendations, 1)
}

func TestHealthAnalyzerAllHealthyEmitsInfoFinding(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/master/workers": `[
			{"id":"w1","group":"default","status":"healthy","lastMsgTime":0},
			{"id":"w2","group":"default","status":"healthy","lastMsgTime":0}
		]`,
	})

	a := NewHealthAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
}

func TestHealthAnalyzerObjectiveNameAndProducts(t *testing.T) {
	a := NewHealthAnalyzer()
	assert.Equal(t, "health", a.ObjectiveName())
	assert.ElementsMatch(t, model.AllProducts, a.SupportedProducts())
}

func TestHealthAnalyzerFlagsDegradedLeader(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/master/workers": `[{"id":"w1","group":"default","status":"healthy","lastMsgTime":0}]`,
		"/api/v1/health":         `{"status":"degraded","leader":{"status":"degraded"}}`,
	})

	a := NewHealthAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	found := false
	for _, f := range res.Findings {
		if f.Category == "leader_health" && f.Severity == model.SeverityCritical {
			found = true
		}
	}
	assert.True(t, found, "expected a critical leader-health finding")
}

func TestHealthAnalyzerSkipsLeaderHealthWhenUnavailable(t *testing.T) {
	// /api/v1/health is unmocked and comes back 404; GetHealth is optional
	// so the analyzer must continue without a leader-health finding rather
	// than failing the run.
	c := newTestClient(t, map[string]string{
		"/api/v1/master/workers": `[{"id":"w1","group":"default","status":"healthy","lastMsgTime":0},
			{"id":"w2","group":"default","status":"healthy","lastMsgTime":0}]`,
	})

	a := NewHealthAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	for _, f := range res.Findings {
		assert.NotEqual(t, "leader_health", f.Category)
	}
}
