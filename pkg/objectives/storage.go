package objectives

import (
	"context"
	"fmt"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
)

// destination is the subset of /api/v1/system/destinations'
// fields the storage analyzer inspects for volume/sampling opportunities.
type destination struct {
	ID           string  `json:"id"`
	GBPerDay     float64 `json:"gbPerDay"`
	SamplingRate float64 `json:"samplingRate"` // 1.0 == no sampling
	Compression  string  `json:"compression"`  // "none", "gzip", ...
}

// storageBreakpointGB is the daily-volume threshold above which an
// unsampled or uncompressed destination is flagged for optimization.
const storageBreakpointGB = 50.0

// StorageAnalyzer estimates per-destination ingest volume and flags
// destinations that would benefit from sampling, filtering, or
// compression, annotated with an estimated annual cost impact.
type StorageAnalyzer struct {
	pricing PricingConfig
}

// NewStorageAnalyzer builds the storage objective using pricing for its
// cost estimates.
func NewStorageAnalyzer(pricing PricingConfig) *StorageAnalyzer {
	return &StorageAnalyzer{pricing: pricing.withDefaults()}
}

func (a *StorageAnalyzer) ObjectiveName() string { return "storage" }

func (a *StorageAnalyzer) SupportedProducts() []model.Product {
	return []model.Product{model.ProductStream, model.ProductEdge, model.ProductLake}
}

func (a *StorageAnalyzer) EstimatedAPICalls() int { return 1 }

func (a *StorageAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	var destinations []destination
	if err := c.Get(ctx, "/api/v1/system/destinations", false, &destinations); err != nil {
		return nil, err
	}

	result := &model.AnalyzerResult{Success: true, APICallsUsed: 1}

	for _, d := range destinations {
		needsSampling := d.SamplingRate >= 1.0 && d.GBPerDay >= storageBreakpointGB
		needsCompression := d.Compression == "none" && d.GBPerDay >= storageBreakpointGB
		if !needsSampling && !needsCompression {
			continue
		}

		annualGB := d.GBPerDay * 365
		annualCostUSD := annualGB * a.pricing.PerGBIngestUSD

		f, err := model.NewFinding(findingID("storage", d.ID), "storage_optimization", model.SeverityMedium,
			fmt.Sprintf("Destination %s ingests %.0f GB/day unsampled", d.ID, d.GBPerDay))
		if err != nil {
			return nil, err
		}
		f.Description = fmt.Sprintf("Destination %q ingests %.0f GB/day with sampling=%.2f, compression=%q.", d.ID, d.GBPerDay, d.SamplingRate, d.Compression)
		f.EstimatedImpact = fmt.Sprintf("~$%.0f/year at current volume", annualCostUSD)
		result.Findings = append(result.Findings, *f)

		rec, err := model.NewRecommendation(recID("storage", d.ID), "storage_optimization", model.PriorityP2,
			fmt.Sprintf("Reduce volume to destination %s", d.ID))
		if err != nil {
			return nil, err
		}
		rec.Description = "Apply sampling, filtering, or compression to reduce storage and egress costs at this destination."
		savings := annualCostUSD * 0.3
		rec.ImpactEstimate = &model.ImpactEstimate{
			CostImpact:           fmt.Sprintf("Up to ~$%.0f/year", savings),
			CostSavingsAnnualUSD: &savings,
		}
		rec.RelatedFindingIDs = []string{f.ID}
		result.Recommendations = append(result.Recommendations, *rec)
	}

	if len(result.Findings) == 0 {
		f, err := model.NewFinding(findingID("storage", "optimized"), "storage_optimization", model.SeverityInfo,
			"No storage optimization opportunities found")
		if err != nil {
			return nil, err
		}
		result.Findings = append(result.Findings, *f)
	}

	result.Metadata = map[string]interface{}{"destination_count": len(destinations)}
	return result, nil
}
