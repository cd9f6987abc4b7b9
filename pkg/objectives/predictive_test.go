package objectives

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/model"
)

func TestPredictiveAnalyzerFlagsAnomaly(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/metrics/history": `[{"name":"queue_depth","values":[10,11,9,10,11,9,10,11,9,10,11,200],"threshold":0}]`,
	})

	a := NewPredictiveAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	found := false
	for _, f := range res.Findings {
		if f.Category == "anomaly_detection" {
			found = true
		}
	}
	assert.True(t, found, "expected an anomaly finding")
}

func TestPredictiveAnalyzerNotAvailableIsNotFatal(t *testing.T) {
	c := newTestClient(t, map[string]string{})

	a := NewPredictiveAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "not_available", res.Metadata["metrics_history"])
}

func TestPredictiveAnalyzerStableEmitsInfoFinding(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/metrics/history": `[{"name":"queue_depth","values":[10,10,10,10],"threshold":0}]`,
	})

	a := NewPredictiveAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
}
