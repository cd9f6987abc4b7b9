package objectives

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/model"
)

func TestConfigAnalyzerFlagsMissingPipelineReference(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/m/default/pipelines": `[{"id":"main"}]`,
		"/api/v1/m/default/outputs":   `[{"id":"s3-archive"}]`,
		"/api/v1/m/default/routes":    `[{"id":"r1","pipeline":"missing-pipeline","output":"s3-archive","disabled":false}]`,
	})

	a := NewConfigAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	var titles []string
	for _, f := range res.Findings {
		titles = append(titles, f.Title)
	}
	assert.Contains(t, titles, "Route r1 references missing pipeline missing-pipeline")
}

func TestConfigAnalyzerFlagsOrphanPipeline(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/m/default/pipelines": `[{"id":"main"},{"id":"unused"}]`,
		"/api/v1/m/default/outputs":   `[{"id":"s3-archive"}]`,
		"/api/v1/m/default/routes":    `[{"id":"r1","pipeline":"main","output":"s3-archive","disabled":false}]`,
	})

	a := NewConfigAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	found := false
	for _, f := range res.Findings {
		if f.Category == "routing" && f.Severity == model.SeverityLow {
			found = true
		}
	}
	assert.True(t, found, "expected an orphan-pipeline finding")
}

func TestConfigAnalyzerCleanConfigEmitsPositiveFinding(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/m/default/pipelines": `[{"id":"main"}]`,
		"/api/v1/m/default/outputs":   `[{"id":"s3-archive"}]`,
		"/api/v1/m/default/routes":    `[{"id":"r1","pipeline":"main","output":"s3-archive","disabled":false}]`,
	})

	a := NewConfigAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
}

func TestConfigAnalyzerCleanFindingCoexistsWithLowSeverityFinding(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/m/default/pipelines": `[{"id":"main"},{"id":"unused"}]`,
		"/api/v1/m/default/outputs":   `[{"id":"s3-archive"}]`,
		"/api/v1/m/default/routes":    `[{"id":"r1","pipeline":"main","output":"s3-archive","disabled":false}]`,
	})

	a := NewConfigAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	var sawOrphan, sawClean bool
	for _, f := range res.Findings {
		switch f.Severity {
		case model.SeverityLow:
			sawOrphan = true
		case model.SeverityInfo:
			sawClean = true
		}
	}
	assert.True(t, sawOrphan, "expected the orphan-pipeline low-severity finding")
	assert.True(t, sawClean, "expected the clean-configuration finding alongside it, since no high/critical finding is present")
}

func TestConfigAnalyzerIgnoresDisabledRoutes(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/m/default/pipelines": `[{"id":"main"}]`,
		"/api/v1/m/default/outputs":   `[{"id":"s3-archive"}]`,
		"/api/v1/m/default/routes":    `[{"id":"r1","pipeline":"gone","output":"gone-too","disabled":true}]`,
	})

	a := NewConfigAnalyzer()
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	for _, f := range res.Findings {
		assert.NotContains(t, f.Title, "r1")
	}
}
