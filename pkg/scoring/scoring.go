// Package scoring computes the deterministic, pure-function health score
// for a completed AnalysisRun.
package scoring

import "github.com/cribl-hc/cribl-hc/pkg/model"

var severityDeduction = map[model.Severity]int{
	model.SeverityCritical: 25,
	model.SeverityHigh:     10,
	model.SeverityMedium:   4,
	model.SeverityLow:      1,
	model.SeverityInfo:     0,
}

const partialPenalty = 5

// Score computes the run's health score: start at 100, subtract a fixed
// amount per finding severity (capped at 100 total), subtract an additional
// 5 for a partial run, and clamp to [0, 100]. A failed run always scores 0.
// The result is a pure function of the run's findings and status — two
// runs with the same findings and status always score the same.
func Score(run *model.AnalysisRun) int {
	if run.Status == model.RunFailed {
		return 0
	}

	deduction := 0
	for _, res := range run.Results {
		for _, f := range res.Findings {
			deduction += severityDeduction[f.Severity]
		}
	}
	if deduction > 100 {
		deduction = 100
	}

	score := 100 - deduction
	if run.Status == model.RunPartial {
		score -= partialPenalty
	}
	return clamp(score, 0, 100)
}

// Band returns the informational health band for a score: 90-100
// excellent, 70-89 good, 50-69 fair, 0-49 poor.
func Band(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 50:
		return "fair"
	default:
		return "poor"
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
