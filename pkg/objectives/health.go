package objectives

import (
	"context"
	"errors"
	"fmt"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
)

// staleAfterMillis flags a worker as unresponsive once its last-message
// timestamp is this far in the past, independent of its reported status
// string (a worker can report "healthy" while its heartbeat has stalled).
const staleAfterMillis = 5 * 60 * 1000

// HealthAnalyzer checks worker/node connectivity, leader health, and flags
// single-worker deployments that have no high-availability fallback.
type HealthAnalyzer struct{}

// NewHealthAnalyzer builds the health objective.
func NewHealthAnalyzer() *HealthAnalyzer { return &HealthAnalyzer{} }

func (a *HealthAnalyzer) ObjectiveName() string { return "health" }

func (a *HealthAnalyzer) SupportedProducts() []model.Product { return allProducts }

func (a *HealthAnalyzer) EstimatedAPICalls() int { return 2 }

func (a *HealthAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	workers, err := c.Workers(ctx)
	if err != nil {
		return nil, err
	}

	result := &model.AnalyzerResult{Success: true, APICallsUsed: 1}

	health, err := c.GetHealth(ctx)
	var na *client.NotAvailable
	leaderStatus := ""
	switch {
	case errors.As(err, &na):
		// Not every product/deployment exposes a leader concept; treat
		// as silently skippable rather than a finding-worthy gap.
	case err != nil:
		return nil, err
	default:
		result.APICallsUsed++
		leaderStatus = health.Leader.Status
		if health.Leader.Status != "" && health.Leader.Status != "healthy" {
			f, ferr := model.NewFinding(findingID("health", "leader"), "leader_health", model.SeverityCritical,
				fmt.Sprintf("Leader is %s", health.Leader.Status))
			if ferr != nil {
				return nil, ferr
			}
			f.Description = fmt.Sprintf("The deployment's leader node last reported status %q; a leader outage stops configuration pushes and, on Stream, event routing.", health.Leader.Status)
			result.Findings = append(result.Findings, *f)
		}
	}

	unhealthy := 0
	for _, w := range workers {
		if w.Status != "healthy" {
			unhealthy++
			f, ferr := model.NewFinding(findingID("health", w.ID), "worker_health", model.SeverityHigh,
				fmt.Sprintf("Worker %s is %s", w.ID, w.Status))
			if ferr != nil {
				return nil, ferr
			}
			f.Description = fmt.Sprintf("Worker %s in group %s last reported status %q.", w.ID, w.Group, w.Status)
			f.AffectedComponents = []string{w.ID}
			result.Findings = append(result.Findings, *f)
			continue
		}
		// Reported healthy but the heartbeat itself is stale: flag
		// separately since status and liveness can disagree.
		if isStale(w.LastMsgTime) {
			f, ferr := model.NewFinding(findingID("health", w.ID+":stale"), "worker_health", model.SeverityMedium,
				fmt.Sprintf("Worker %s heartbeat is stale", w.ID))
			if ferr != nil {
				return nil, ferr
			}
			f.Description = fmt.Sprintf("Worker %s reports healthy but has not sent a heartbeat recently.", w.ID)
			f.AffectedComponents = []string{w.ID}
			result.Findings = append(result.Findings, *f)
		}
	}

	if len(workers) == 1 {
		f, ferr := model.NewFinding(findingID("health", "single-worker-ha"), "availability", model.SeverityMedium,
			"Deployment has no high-availability fallback")
		if ferr != nil {
			return nil, ferr
		}
		f.Description = "Exactly one worker is reporting; a single-worker failure would take down the deployment."
		result.Findings = append(result.Findings, *f)
		rec, rerr := model.NewRecommendation(recID("health", "single-worker-ha"), "availability", model.PriorityP2,
			"Add a second worker for high availability")
		if rerr != nil {
			return nil, rerr
		}
		rec.Description = "Running with a single worker means any worker-level outage is a full outage."
		rec.ImplementationEffort = model.EffortMedium
		result.Recommendations = append(result.Recommendations, *rec)
	}

	if len(result.Findings) == 0 {
		f, ferr := model.NewFinding(findingID("health", "all-healthy"), "worker_health", model.SeverityInfo,
			"All workers healthy")
		if ferr != nil {
			return nil, ferr
		}
		f.Description = fmt.Sprintf("%d worker(s) reporting, all healthy.", len(workers))
		result.Findings = append(result.Findings, *f)
	}

	result.Metadata = map[string]interface{}{
		"worker_count":    len(workers),
		"unhealthy_count": unhealthy,
		"leader_status":   leaderStatus,
	}
	return result, nil
}

func isStale(lastMsgMillis int64) bool {
	if lastMsgMillis == 0 {
		return false
	}
	return nowMillisFunc()-lastMsgMillis > staleAfterMillis
}

// nowMillisFunc is a var so tests can freeze time without depending on
// wall-clock timing.
var nowMillisFunc = func() int64 { return timeNowUnixMilli() }
