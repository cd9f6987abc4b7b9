package model

import "time"

// AnalyzerResult is the per-analyzer output collected by the orchestrator.
type AnalyzerResult struct {
	ObjectiveName  string                 `json:"objective_name"`
	Success        bool                   `json:"success"`
	Duration       time.Duration          `json:"duration"`
	APICallsUsed   int                    `json:"api_calls_used"`
	Findings       []Finding              `json:"findings"`
	Recommendations []Recommendation      `json:"recommendations"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// SortFindingsBySeverity stably reorders Findings critical-first, in place.
// Idempotent: applying it twice leaves the slice unchanged.
func (r *AnalyzerResult) SortFindingsBySeverity() {
	sortFindingsBySeverity(r.Findings)
}

// SortRecommendationsByPriority stably reorders Recommendations p0-first, in place.
func (r *AnalyzerResult) SortRecommendationsByPriority() {
	sortRecommendationsByPriority(r.Recommendations)
}

// FilterByProduct returns a new AnalyzerResult retaining only findings and
// recommendations tagged (or universally tagged) for product. The receiver
// is left untouched; FilterByProduct is idempotent when composed with itself.
func (r *AnalyzerResult) FilterByProduct(product Product) *AnalyzerResult {
	out := &AnalyzerResult{
		ObjectiveName: r.ObjectiveName,
		Success:       r.Success,
		Duration:      r.Duration,
		APICallsUsed:  r.APICallsUsed,
		Metadata:      r.Metadata,
	}
	for _, f := range r.Findings {
		if f.AppliesToProduct(product) {
			out.Findings = append(out.Findings, f)
		}
	}
	for _, rec := range r.Recommendations {
		if rec.AppliesToProduct(product) {
			out.Recommendations = append(out.Recommendations, rec)
		}
	}
	return out
}

// AnalysisRun is the top-level artifact produced by one end-to-end run.
type AnalysisRun struct {
	RunID               string                    `json:"run_id"`
	DeploymentID        string                    `json:"deployment_id"`
	ProductType         Product                   `json:"product_type"`
	ProductVersion      string                    `json:"product_version"`
	StartedAt           time.Time                 `json:"started_at"`
	CompletedAt         *time.Time                `json:"completed_at,omitempty"`
	Status              RunStatus                 `json:"status"`
	ObjectivesRequested []string                  `json:"objectives_requested"`
	ObjectivesCompleted []string                  `json:"objectives_completed"`
	ObjectivesFailed    []string                  `json:"objectives_failed"`
	Results             map[string]*AnalyzerResult `json:"results"`
	HealthScore         float64                   `json:"health_score"`
	APICallsUsed        int                       `json:"api_calls_used"`
	APICallsBudget      int                       `json:"api_calls_budget"`
	DurationSeconds     float64                   `json:"duration_seconds"`
}

// Partial reports whether the run has at least one succeeded and at least
// one failed objective, per the §3 invariant. Computed rather than stored,
// so it can never drift from ObjectivesCompleted/ObjectivesFailed.
func (r *AnalysisRun) Partial() bool {
	return len(r.ObjectivesCompleted) > 0 && len(r.ObjectivesFailed) > 0
}

// FindingsFlat returns every finding across every result, objective by
// objective in ObjectivesRequested order; results keyed by an objective
// not in ObjectivesRequested follow in map iteration order.
func (r *AnalysisRun) FindingsFlat() []Finding {
	var out []Finding
	for _, name := range r.orderedObjectives() {
		res := r.Results[name]
		if res == nil {
			continue
		}
		out = append(out, res.Findings...)
	}
	return out
}

// RecommendationsFlat returns every recommendation across every result, in
// the same deterministic objective order as FindingsFlat.
func (r *AnalysisRun) RecommendationsFlat() []Recommendation {
	var out []Recommendation
	for _, name := range r.orderedObjectives() {
		res := r.Results[name]
		if res == nil {
			continue
		}
		out = append(out, res.Recommendations...)
	}
	return out
}

func (r *AnalysisRun) orderedObjectives() []string {
	seen := make(map[string]struct{}, len(r.Results))
	var out []string
	for _, name := range r.ObjectivesRequested {
		if _, ok := r.Results[name]; ok {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	for name := range r.Results {
		if _, ok := seen[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// FilterByProduct returns a new AnalysisRun whose Results are each filtered
// to product, leaving the receiver untouched.
func (r *AnalysisRun) FilterByProduct(product Product) *AnalysisRun {
	out := *r
	out.Results = make(map[string]*AnalyzerResult, len(r.Results))
	for name, res := range r.Results {
		out.Results[name] = res.FilterByProduct(product)
	}
	return &out
}

// KnownFindingIDs returns the set of finding ids present anywhere in the
// run, for validating Recommendation.RelatedFindingIDs at finalization time.
func (r *AnalysisRun) KnownFindingIDs() map[string]struct{} {
	known := make(map[string]struct{})
	for _, res := range r.Results {
		for _, f := range res.Findings {
			known[f.ID] = struct{}{}
		}
	}
	return known
}

// ValidateRecommendationReferences checks every recommendation's
// RelatedFindingIDs against the run's known finding ids.
func (r *AnalysisRun) ValidateRecommendationReferences() error {
	known := r.KnownFindingIDs()
	for _, res := range r.Results {
		for i := range res.Recommendations {
			if err := res.Recommendations[i].validateRelatedFindings(known); err != nil {
				return err
			}
		}
	}
	return nil
}
