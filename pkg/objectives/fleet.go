package objectives

import (
	"context"
	"fmt"
	"sort"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
)

// fleetGroup is the subset of /api/v1/edge/fleets a fleet entry exposes.
type fleetGroup struct {
	ID            string `json:"id"`
	PipelineCount int    `json:"pipelineCount"`
}

// fleetDriftThreshold is the allowed absolute deviation from the median
// pipeline count across fleets before a fleet is flagged as drifted.
const fleetDriftThreshold = 3

// FleetAnalyzer compares pipeline counts across an Edge deployment's
// fleets to flag configuration drift: a fleet whose deployed pipeline
// count diverges sharply from its peers usually means a rollout stalled
// partway through.
type FleetAnalyzer struct{}

// NewFleetAnalyzer builds the fleet objective.
func NewFleetAnalyzer() *FleetAnalyzer { return &FleetAnalyzer{} }

func (a *FleetAnalyzer) ObjectiveName() string { return "fleet" }

func (a *FleetAnalyzer) SupportedProducts() []model.Product {
	return []model.Product{model.ProductEdge}
}

func (a *FleetAnalyzer) EstimatedAPICalls() int { return 1 }

func (a *FleetAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	var fleets []fleetGroup
	if err := c.Get(ctx, "/api/v1/edge/fleets", false, &fleets); err != nil {
		return nil, err
	}

	result := &model.AnalyzerResult{Success: true, APICallsUsed: 1}

	if len(fleets) < 2 {
		f, err := model.NewFinding(findingID("fleet", "single-fleet"), "fleet_drift", model.SeverityInfo,
			"Only one fleet reporting; drift comparison needs at least two")
		if err != nil {
			return nil, err
		}
		result.Findings = append(result.Findings, *f)
		result.Metadata = map[string]interface{}{"fleet_count": len(fleets)}
		return result, nil
	}

	median := medianPipelineCount(fleets)
	for _, fl := range fleets {
		deviation := fl.PipelineCount - median
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation <= fleetDriftThreshold {
			continue
		}
		f, err := model.NewFinding(findingID("fleet", "drift:"+fl.ID), "fleet_drift", model.SeverityMedium,
			fmt.Sprintf("Fleet %s pipeline count diverges from peers", fl.ID))
		if err != nil {
			return nil, err
		}
		f.Description = fmt.Sprintf("Fleet %q has %d pipelines deployed; peer median is %d.", fl.ID, fl.PipelineCount, median)
		f.AffectedComponents = []string{fl.ID}
		f.ProductTags = []model.Product{model.ProductEdge}
		result.Findings = append(result.Findings, *f)
	}

	if len(result.Findings) == 0 {
		f, err := model.NewFinding(findingID("fleet", "consistent"), "fleet_drift", model.SeverityInfo,
			"Fleet pipeline counts are consistent")
		if err != nil {
			return nil, err
		}
		result.Findings = append(result.Findings, *f)
	}

	result.Metadata = map[string]interface{}{
		"fleet_count":      len(fleets),
		"median_pipelines": median,
	}
	return result, nil
}

func medianPipelineCount(fleets []fleetGroup) int {
	counts := make([]int, len(fleets))
	for i, f := range fleets {
		counts[i] = f.PipelineCount
	}
	sort.Ints(counts)
	return counts[len(counts)/2]
}
