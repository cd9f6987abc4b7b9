package objectives

import (
	"context"
	"fmt"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
)

// ConfigAnalyzer checks pipeline/route/output wiring for orphaned
// references: a route pointing at a pipeline or output that does not
// exist is silently dropping events.
type ConfigAnalyzer struct{}

// NewConfigAnalyzer builds the config objective.
func NewConfigAnalyzer() *ConfigAnalyzer { return &ConfigAnalyzer{} }

func (a *ConfigAnalyzer) ObjectiveName() string { return "config" }

func (a *ConfigAnalyzer) SupportedProducts() []model.Product {
	return []model.Product{model.ProductStream, model.ProductEdge}
}

func (a *ConfigAnalyzer) EstimatedAPICalls() int { return 3 }

func (a *ConfigAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	pipelines, err := c.GetPipelines(ctx)
	if err != nil {
		return nil, err
	}
	outputs, err := c.GetOutputs(ctx)
	if err != nil {
		return nil, err
	}
	routes, err := c.GetRoutes(ctx)
	if err != nil {
		return nil, err
	}

	pipelineSet := make(map[string]struct{}, len(pipelines))
	for _, p := range pipelines {
		pipelineSet[p.ID] = struct{}{}
	}
	outputSet := make(map[string]struct{}, len(outputs))
	for _, o := range outputs {
		outputSet[o.ID] = struct{}{}
	}

	result := &model.AnalyzerResult{Success: true, APICallsUsed: 3}

	referencedPipelines := make(map[string]struct{})
	for _, r := range routes {
		if r.Disabled {
			continue
		}
		referencedPipelines[r.Pipeline] = struct{}{}

		if _, ok := pipelineSet[r.Pipeline]; r.Pipeline != "" && !ok {
			f, err := model.NewFinding(findingID("config", "route-pipeline:"+r.ID), "routing", model.SeverityHigh,
				fmt.Sprintf("Route %s references missing pipeline %s", r.ID, r.Pipeline))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Route %q points at pipeline %q, which does not exist; matching events are silently dropped.", r.ID, r.Pipeline)
			result.Findings = append(result.Findings, *f)
		}
		if _, ok := outputSet[r.Output]; r.Output != "" && !ok {
			f, err := model.NewFinding(findingID("config", "route-output:"+r.ID), "routing", model.SeverityHigh,
				fmt.Sprintf("Route %s references missing output %s", r.ID, r.Output))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Route %q points at output %q, which does not exist; matching events are silently dropped.", r.ID, r.Output)
			result.Findings = append(result.Findings, *f)
		}
	}

	for _, p := range pipelines {
		if _, used := referencedPipelines[p.ID]; !used {
			f, err := model.NewFinding(findingID("config", "orphan-pipeline:"+p.ID), "routing", model.SeverityLow,
				fmt.Sprintf("Pipeline %s is not referenced by any route", p.ID))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Pipeline %q exists but no enabled route sends it events; it is dead configuration.", p.ID)
			result.Findings = append(result.Findings, *f)
		}
	}

	if !hasHighOrCritical(result.Findings) {
		f, err := model.NewFinding(findingID("config", "clean"), "routing", model.SeverityInfo,
			"Pipeline/route/output configuration is clean")
		if err != nil {
			return nil, err
		}
		f.Description = fmt.Sprintf("%d pipeline(s), %d route(s), %d output(s) checked; no orphans or missing references found.",
			len(pipelines), len(routes), len(outputs))
		result.Findings = append(result.Findings, *f)
	}

	result.Metadata = map[string]interface{}{
		"pipeline_count": len(pipelines),
		"route_count":    len(routes),
		"output_count":   len(outputs),
	}
	return result, nil
}
