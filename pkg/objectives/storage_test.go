package objectives

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageAnalyzerFlagsHighVolumeUnsampled(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/destinations": `[{"id":"s3-main","gbPerDay":120,"samplingRate":1.0,"compression":"none"}]`,
	})

	a := NewStorageAnalyzer(PricingConfig{})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.NotEmpty(t, res.Findings[0].EstimatedImpact)
	require.Len(t, res.Recommendations, 1)
	assert.NotNil(t, res.Recommendations[0].ImpactEstimate.CostSavingsAnnualUSD)
}

func TestStorageAnalyzerSkipsLowVolume(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/destinations": `[{"id":"s3-main","gbPerDay":5,"samplingRate":1.0,"compression":"none"}]`,
	})

	a := NewStorageAnalyzer(PricingConfig{})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "storage:optimized", res.Findings[0].ID)
}

func TestStorageAnalyzerSkipsAlreadySampledHighVolume(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/destinations": `[{"id":"s3-main","gbPerDay":120,"samplingRate":0.1,"compression":"gzip"}]`,
	})

	a := NewStorageAnalyzer(PricingConfig{})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "storage:optimized", res.Findings[0].ID)
}
