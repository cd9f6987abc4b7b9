package objectives

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/model"
)

func TestCostAnalyzerFlagsNearTermExhaustion(t *testing.T) {
	// allocatedGb=200 keeps current usage (85/200=42.5%) below the
	// current-usage-percentage threshold, isolating the trend projection:
	// slope 5 GB/day, 115 GB headroom, ~23 days -> high band.
	c := newTestClient(t, map[string]string{
		"/api/v1/system/limits":       `{"allocatedGb":200,"currentUsageGb":85,"dailyUsageGb":[70,75,80,85]}`,
		"/api/v1/system/destinations": `[]`,
	})

	a := NewCostAnalyzer(PricingConfig{})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityHigh, res.Findings[0].Severity)
	require.Len(t, res.Recommendations, 1)
}

func TestCostAnalyzerWithinAllocationIsQuiet(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/limits":       `{"allocatedGb":1000,"currentUsageGb":50,"dailyUsageGb":[50,50,50,50]}`,
		"/api/v1/system/destinations": `[]`,
	})

	a := NewCostAnalyzer(PricingConfig{})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityInfo, res.Findings[0].Severity)
}

func TestCostAnalyzerFlagsCurrentUsageCritical(t *testing.T) {
	// Flat trend (no projection finding); current usage alone crosses the
	// 95% critical threshold.
	c := newTestClient(t, map[string]string{
		"/api/v1/system/limits":       `{"allocatedGb":100,"currentUsageGb":96,"dailyUsageGb":[96,96,96,96]}`,
		"/api/v1/system/destinations": `[]`,
	})

	a := NewCostAnalyzer(PricingConfig{})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityCritical, res.Findings[0].Severity)
}

func TestCostAnalyzerBuildsTCOTableByDestination(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"/api/v1/system/limits": `{"allocatedGb":1000,"currentUsageGb":50,"dailyUsageGb":[50,50,50,50]}`,
		"/api/v1/system/destinations": `[{"id":"s3-archive","gbPerDay":10,"samplingRate":1.0,"compression":"gzip"},
			{"id":"splunk-prod","gbPerDay":20,"samplingRate":1.0,"compression":"gzip"}]`,
	})

	a := NewCostAnalyzer(PricingConfig{PerGBIngestUSD: 0.5})
	res, err := a.Analyze(context.Background(), c)
	require.NoError(t, err)

	tco, ok := res.Metadata["tco_by_destination"].(map[string]float64)
	require.True(t, ok)
	assert.InDelta(t, 10*365*0.5, tco["s3-archive"], 0.01)
	assert.InDelta(t, 20*365*0.5, tco["splunk-prod"], 0.01)
}
