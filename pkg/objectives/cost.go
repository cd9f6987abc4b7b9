package objectives

import (
	"context"
	"fmt"
	"math"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/predictive"
)

// Current-usage-percentage thresholds per §4.3's cost table.
const (
	costCurrentHighPct     = 85.0
	costCurrentCriticalPct = 95.0
)

// Days-to-exhaustion bands for the linear-regression projection. The
// worked scenario (slope 50 GB/day, 250 GB headroom, 5 days) must land
// critical, so the critical band has to reach at least a week out.
const (
	daysExhaustionCriticalMax = 7.0
	daysExhaustionHighMax     = 30.0
	daysExhaustionMediumMax   = 90.0
)

// CostAnalyzer checks current license usage against allocation, projects
// days-to-exhaustion from the consumption trend using the predictive
// sub-engine, and builds a per-destination TCO table.
type CostAnalyzer struct {
	pricing PricingConfig
}

// NewCostAnalyzer builds the cost objective.
func NewCostAnalyzer(pricing PricingConfig) *CostAnalyzer {
	return &CostAnalyzer{pricing: pricing.withDefaults()}
}

func (a *CostAnalyzer) ObjectiveName() string { return "cost" }

func (a *CostAnalyzer) SupportedProducts() []model.Product { return allProducts }

func (a *CostAnalyzer) EstimatedAPICalls() int { return 2 }

func (a *CostAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	license, err := c.GetLicenseInfo(ctx)
	if err != nil {
		return nil, err
	}
	destinations, err := destinationsForCost(ctx, c)
	if err != nil {
		return nil, err
	}

	result := &model.AnalyzerResult{Success: true, APICallsUsed: 2}

	currentPct := 0.0
	if license.AllocatedGB > 0 {
		currentPct = license.CurrentUsageGB / license.AllocatedGB * 100
	}
	if currentPct >= costCurrentHighPct {
		severity := model.SeverityHigh
		if currentPct >= costCurrentCriticalPct {
			severity = model.SeverityCritical
		}
		f, err := model.NewFinding(findingID("cost", "current-usage"), "license_consumption", severity,
			fmt.Sprintf("License usage is at %.0f%% of allocation", currentPct))
		if err != nil {
			return nil, err
		}
		f.Description = fmt.Sprintf("Current usage %.1f GB of %.1f GB allocated (%.0f%%).", license.CurrentUsageGB, license.AllocatedGB, currentPct)
		result.Findings = append(result.Findings, *f)
	}

	points := make([]predictive.Point, len(license.DailyUsageGB))
	for i, v := range license.DailyUsageGB {
		points[i] = predictive.Point{X: float64(i), Y: v}
	}
	trend := predictive.LinearTrend(points)
	daysToExhaustion := predictive.TimeToThreshold(trend, license.CurrentUsageGB, license.AllocatedGB)
	confidence := predictive.ConfidenceForHistoryLength(len(points))

	if !math.IsInf(daysToExhaustion, 1) && daysToExhaustion >= 0 && daysToExhaustion <= daysExhaustionMediumMax {
		severity := model.SeverityMedium
		priority := model.PriorityP2
		switch {
		case daysToExhaustion <= daysExhaustionCriticalMax:
			severity, priority = model.SeverityCritical, model.PriorityP0
		case daysToExhaustion <= daysExhaustionHighMax:
			severity, priority = model.SeverityHigh, model.PriorityP1
		}

		f, err := model.NewFinding(findingID("cost", "license-exhaustion"), "license_consumption", severity,
			fmt.Sprintf("License allocation projected to be exhausted in %.0f day(s)", daysToExhaustion))
		if err != nil {
			return nil, err
		}
		f.Description = fmt.Sprintf("Current usage %.1f GB of %.1f GB allocated; linear trend (slope %.1f GB/day, confidence: %s) projects exhaustion in ~%.0f day(s).",
			license.CurrentUsageGB, license.AllocatedGB, trend.Slope, confidence, daysToExhaustion)
		result.Findings = append(result.Findings, *f)

		rec, err := model.NewRecommendation(recID("cost", "license-exhaustion"), "license_consumption", priority,
			"Plan a license increase before projected exhaustion")
		if err != nil {
			return nil, err
		}
		rec.Description = "Consumption trend projects allocation exhaustion inside the procurement lead time."
		rec.BeforeState = fmt.Sprintf("%.1f GB used of %.1f GB allocated", license.CurrentUsageGB, license.AllocatedGB)
		rec.AfterState = fmt.Sprintf("Allocation exhausted in %.0f day(s) at current trend", daysToExhaustion)
		rec.ImpactEstimate = &model.ImpactEstimate{TimeToValue: fmt.Sprintf("~%.0f day(s) runway", daysToExhaustion)}
		rec.RelatedFindingIDs = []string{f.ID}
		result.Recommendations = append(result.Recommendations, *rec)
	}

	if len(result.Findings) == 0 {
		f, err := model.NewFinding(findingID("cost", "within-allocation"), "license_consumption", model.SeverityInfo,
			"License consumption trend is within allocation")
		if err != nil {
			return nil, err
		}
		result.Findings = append(result.Findings, *f)
	}

	tco := make(map[string]float64, len(destinations))
	totalAnnualUSD := 0.0
	for _, d := range destinations {
		annual := d.GBPerDay * 365 * a.pricing.PerGBIngestUSD
		tco[d.ID] = annual
		totalAnnualUSD += annual
	}

	result.Metadata = map[string]interface{}{
		"allocated_gb":         license.AllocatedGB,
		"current_usage_gb":     license.CurrentUsageGB,
		"current_usage_pct":    currentPct,
		"estimated_annual_usd": totalAnnualUSD,
		"tco_by_destination":   tco,
		"trend_confidence":     string(confidence),
		"days_to_exhaustion":   daysToExhaustion,
	}
	return result, nil
}

// destinationsForCost fetches the same per-destination volume data the
// storage analyzer uses, to build cost's TCO table.
func destinationsForCost(ctx context.Context, c *client.Client) ([]destination, error) {
	var destinations []destination
	if err := c.Get(ctx, "/api/v1/system/destinations", false, &destinations); err != nil {
		return nil, err
	}
	return destinations, nil
}
