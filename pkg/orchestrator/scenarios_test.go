package orchestrator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/analyzer"
	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/objectives"
	"github.com/cribl-hc/cribl-hc/pkg/ratelimit"
	"github.com/cribl-hc/cribl-hc/pkg/scoring"
)

// scenarioTransport routes by exact path, returning 404 for anything not
// listed so optional-endpoint probing (Detect's edge/lake fallback probes,
// predictive's metrics-history lookup) behaves like a real deployment that
// doesn't expose that endpoint rather than erroring the whole run.
type scenarioTransport struct {
	byPath map[string]string
	status map[string]int
}

func (s *scenarioTransport) Do(req *http.Request) (*http.Response, error) {
	path := req.URL.Path
	status := http.StatusOK
	if st, ok := s.status[path]; ok {
		status = st
	}
	body, ok := s.byPath[path]
	if !ok {
		status = http.StatusNotFound
		body = `{}`
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
}

func newScenarioClient(t *testing.T, byPath map[string]string, status map[string]int, budget int) *client.Client {
	t.Helper()
	tr := &scenarioTransport{byPath: byPath, status: status}
	c, err := client.New(client.Options{
		BaseURL:   "https://example.com",
		Transport: tr,
		Limiter:   ratelimit.New(1000, budget),
	})
	require.NoError(t, err)
	return c
}

func fullRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	objectives.RegisterAll(r, objectives.Deps{})
	return r
}

// Scenario 1: a Stream deployment whose only worker is healthy produces a
// completed run scoring above 50 (the single worker still draws a medium
// no-high-availability finding).
func TestScenarioHealthyStream(t *testing.T) {
	c := newScenarioClient(t, map[string]string{
		"/api/v1/version":       `{"product":"stream","version":"4.5.0"}`,
		"/api/v1/master/workers": `[{"id":"w1","group":"default","status":"healthy","lastMsgTime":9999999999999}]`,
	}, nil, 50)

	o := New(fullRegistry())
	run, err := o.Run(context.Background(), c, Options{
		DeploymentID: "scenario-1",
		Objectives:   []string{"health"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, model.ProductStream, run.ProductType)
	score := scoring.Score(run)
	assert.Greater(t, score, 50)
}

// Scenario 2: an Edge deployment with one disconnected node surfaces a
// health finding without failing the run.
func TestScenarioEdgeDisconnectedNode(t *testing.T) {
	c := newScenarioClient(t, map[string]string{
		"/api/v1/version":    `{"product":"edge","version":"1.2.0"}`,
		"/api/v1/edge/nodes": `[{"id":"n1","fleet":"fleet-a","status":"connected","lastSeen":"2026-07-31T00:00:00Z"},{"id":"n2","fleet":"fleet-a","status":"disconnected","lastSeen":"2026-07-30T00:00:00Z"}]`,
	}, nil, 50)

	o := New(fullRegistry())
	run, err := o.Run(context.Background(), c, Options{
		DeploymentID: "scenario-2",
		Objectives:   []string{"health"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProductEdge, run.ProductType)
	assert.Contains(t, run.ObjectivesCompleted, "health")

	var sawUnhealthy bool
	for _, f := range run.Results["health"].Findings {
		if strings.Contains(f.Title, "n2") {
			sawUnhealthy = true
		}
	}
	assert.True(t, sawUnhealthy, "expected a finding calling out the disconnected node")
}

// Scenario 3: a deployment with no metrics-history endpoint
// (404) must not fail the predictive objective — NotAvailable is handled,
// not fatal.
func TestScenarioMetricsHistoryNotAvailable(t *testing.T) {
	c := newScenarioClient(t, map[string]string{
		"/api/v1/version": `{"product":"stream","version":"4.5.0"}`,
	}, nil, 50)

	o := New(fullRegistry())
	run, err := o.Run(context.Background(), c, Options{
		DeploymentID: "scenario-3",
		Objectives:   []string{"predictive"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Contains(t, run.ObjectivesCompleted, "predictive")
	assert.Equal(t, "not_available", run.Results["predictive"].Metadata["metrics_history"])
}

// Scenario 4: an auth failure on the initial connectivity check is fatal
// to the whole run, before any objective is even selected.
func TestScenarioAuthFailureAtStartup(t *testing.T) {
	c := newScenarioClient(t, map[string]string{
		"/api/v1/version": `{"error":"unauthorized"}`,
	}, map[string]int{"/api/v1/version": http.StatusUnauthorized}, 50)

	o := New(fullRegistry())
	run, err := o.Run(context.Background(), c, Options{
		DeploymentID: "scenario-4",
		Objectives:   []string{"health"},
	})
	require.Error(t, err)
	assert.Equal(t, model.RunFailed, run.Status)
	assert.Empty(t, run.ObjectivesCompleted)
}

// Scenario 5: an API call budget that's exhausted mid-run surfaces the
// literal "budget_exhausted" metadata token on the affected objective,
// not the longer formatted client error string.
func TestScenarioBudgetExhaustedMidRun(t *testing.T) {
	c := newScenarioClient(t, map[string]string{
		"/api/v1/version":       `{"product":"stream","version":"4.5.0"}`,
		"/api/v1/master/workers": `[]`,
	}, nil, 1) // client-side limiter ceiling: Detect's own version call spends it entirely.

	o := New(fullRegistry())
	run, err := o.Run(context.Background(), c, Options{
		DeploymentID: "scenario-5",
		Objectives:   []string{"health"},
		// Large enough that pre-run admission (a static estimate check)
		// passes; the client's own limiter ceiling above is what actually
		// starves the health analyzer's runtime Workers() call.
		APICallBudget: 50,
	})
	require.NoError(t, err)
	require.Contains(t, run.ObjectivesFailed, "health")
	assert.Equal(t, "budget_exhausted", run.Results["health"].Metadata["error"])
}

// Scenario 6: a license trending toward exhaustion within the near-term
// window produces a critical-severity cost finding with a paired p0
// recommendation.
func TestScenarioLicenseExhaustionProjection(t *testing.T) {
	// Daily consumption [500,550,600,650,700,750] GB, allocation 1000 GB:
	// slope 50 GB/day, current 750, headroom 250, days-to-exhaustion 5.
	c := newScenarioClient(t, map[string]string{
		"/api/v1/version":             `{"product":"stream","version":"4.5.0"}`,
		"/api/v1/system/limits":       `{"allocatedGb":1000,"currentUsageGb":750,"dailyUsageGb":[500,550,600,650,700,750]}`,
		"/api/v1/system/destinations": `[]`,
	}, nil, 50)

	o := New(fullRegistry())
	run, err := o.Run(context.Background(), c, Options{
		DeploymentID: "scenario-6",
		Objectives:   []string{"cost"},
	})
	require.NoError(t, err)
	require.Contains(t, run.ObjectivesCompleted, "cost")
	res := run.Results["cost"]
	require.Len(t, res.Findings, 1)
	assert.Equal(t, model.SeverityCritical, res.Findings[0].Severity)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, model.PriorityP0, res.Recommendations[0].Priority)
	assert.Contains(t, res.Recommendations[0].AfterState, "5 day(s)")
}
