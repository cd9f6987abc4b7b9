// Package report assembles a completed AnalysisRun into the two output
// formats consumers request: JSON (stable field order via struct tags) and
// Markdown (grouped by objective, then severity).
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/scoring"
)

// runDocument is the JSON wire shape: AnalysisRun plus its derived,
// flattened views, matching the §3 AnalysisRun field list exactly.
type runDocument struct {
	*model.AnalysisRun
	FindingsFlat        []model.Finding       `json:"findings_flat"`
	RecommendationsFlat []model.Recommendation `json:"recommendations_flat"`
	Partial             bool                  `json:"partial"`
	HealthBand          string                `json:"health_band"`
}

// JSON renders run as an indented JSON document, including the derived
// findings_flat/recommendations_flat/partial fields the data model
// specifies as computed rather than stored.
func JSON(run *model.AnalysisRun) ([]byte, error) {
	doc := runDocument{
		AnalysisRun:         run,
		FindingsFlat:        run.FindingsFlat(),
		RecommendationsFlat: run.RecommendationsFlat(),
		Partial:             run.Partial(),
		HealthBand:          scoring.Band(int(run.HealthScore)),
	}
	out, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: marshal run: %w", err)
	}
	return out, nil
}

// Markdown renders run as a human-readable report: a summary header, then
// findings grouped by objective and, within each objective, by severity
// (critical first), followed by a flat recommendations list in
// RecommendationsFlat's objective order.
func Markdown(run *model.AnalysisRun) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Health assessment: %s\n\n", run.DeploymentID)
	fmt.Fprintf(&buf, "- **Status:** %s\n", run.Status)
	fmt.Fprintf(&buf, "- **Health score:** %.0f (%s)\n", run.HealthScore, scoring.Band(int(run.HealthScore)))
	fmt.Fprintf(&buf, "- **Product:** %s %s\n", run.ProductType, run.ProductVersion)
	fmt.Fprintf(&buf, "- **Objectives completed:** %d, **failed:** %d\n", len(run.ObjectivesCompleted), len(run.ObjectivesFailed))
	fmt.Fprintf(&buf, "- **API calls used:** %d / %d\n", run.APICallsUsed, run.APICallsBudget)
	fmt.Fprintf(&buf, "- **Duration:** %.1fs\n\n", run.DurationSeconds)

	for _, name := range orderedObjectiveNames(run) {
		res := run.Results[name]
		if res == nil || len(res.Findings) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "## %s\n\n", name)

		bySeverity := groupBySeverity(res.Findings)
		for _, sev := range severityOrder {
			findings := bySeverity[sev]
			if len(findings) == 0 {
				continue
			}
			for _, f := range findings {
				fmt.Fprintf(&buf, "- **[%s]** %s\n", sev, f.Title)
				if f.Description != "" {
					fmt.Fprintf(&buf, "  %s\n", f.Description)
				}
			}
		}
		buf.WriteString("\n")
	}

	recs := run.RecommendationsFlat()
	if len(recs) > 0 {
		buf.WriteString("## Recommendations\n\n")
		for _, r := range recs {
			fmt.Fprintf(&buf, "- **[%s]** %s\n", r.Priority, r.Title)
		}
	}

	return buf.String()
}

var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

func groupBySeverity(findings []model.Finding) map[model.Severity][]model.Finding {
	out := make(map[model.Severity][]model.Finding, len(severityOrder))
	for _, f := range findings {
		out[f.Severity] = append(out[f.Severity], f)
	}
	return out
}

func orderedObjectiveNames(run *model.AnalysisRun) []string {
	names := make([]string, 0, len(run.Results))
	for name := range run.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
