// Package orchestrator schedules analyzers under shared concurrency and
// budget constraints, propagates cancellation, and assembles the run's
// AnalyzerResults into a single AnalysisRun.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cribl-hc/cribl-hc/pkg/analyzer"
	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/scoring"
)

const (
	defaultMaxParallel   = 4
	defaultWallClock     = 5 * time.Minute
	defaultAPICallBudget = 100
)

// ProgressEvent is emitted on the orchestrator's progress channel as a run
// advances. Consumers treat channel closure as end-of-stream.
type ProgressEvent struct {
	Kind      string // analyzer_started, analyzer_progress, analyzer_completed, finding_emitted, run_completed, run_failed
	Objective string
	Finding   *model.Finding
	Err       error
}

// Options configures a single run.
type Options struct {
	DeploymentID        string
	Objectives          []string
	MaxParallelAnalyzers int
	WallClockBudget      time.Duration
	APICallBudget        int
	// Progress receives progress events if non-nil. The orchestrator
	// closes it when the run finishes; callers must keep draining it or
	// pass nil if they don't want events.
	Progress chan<- ProgressEvent
}

// Orchestrator schedules and runs analyzers drawn from a Registry against
// a single deployment Client.
type Orchestrator struct {
	registry *analyzer.Registry
}

// New builds an Orchestrator backed by registry.
func New(registry *analyzer.Registry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// Run executes opts.Objectives against c and returns the assembled
// AnalysisRun. It never returns a nil run: admission failures and fatal
// connectivity errors still produce a `failed` AnalysisRun describing why.
func (o *Orchestrator) Run(ctx context.Context, c *client.Client, opts Options) (*model.AnalysisRun, error) {
	maxParallel := opts.MaxParallelAnalyzers
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	wallClock := opts.WallClockBudget
	if wallClock <= 0 {
		wallClock = defaultWallClock
	}
	budget := opts.APICallBudget
	if budget <= 0 {
		budget = defaultAPICallBudget
	}

	run := &model.AnalysisRun{
		RunID:               uuid.NewString(),
		DeploymentID:        opts.DeploymentID,
		StartedAt:           time.Now(),
		Status:              model.RunPending,
		ObjectivesRequested: append([]string(nil), opts.Objectives...),
		Results:             make(map[string]*model.AnalyzerResult),
		APICallsBudget:      budget,
	}

	tr := otel.Tracer("cribl-hc/orchestrator")
	ctx, span := tr.Start(ctx, "run_analysis", trace.WithAttributes(
		attribute.String("deployment_id", opts.DeploymentID),
		attribute.Int("objective_count", len(opts.Objectives)),
	))
	defer span.End()

	if opts.Progress != nil {
		defer close(opts.Progress)
	}

	if err := c.TestConnection(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return o.finalizeFatal(run, "connect: "+err.Error(), opts.Progress), err
	}
	run.ProductType = c.ProductType()
	run.ProductVersion = c.ProductVersion()

	selected := o.selectAnalyzers(opts.Objectives, run.ProductType)

	estimated := 0
	for _, a := range selected {
		estimated += a.EstimatedAPICalls()
	}
	if estimated > budget-1 {
		err := fmt.Errorf("orchestrator: budget admission: estimated %d calls exceeds budget-1 (%d)", estimated, budget-1)
		span.RecordError(err)
		return o.finalizeFatal(run, "budget admission", opts.Progress), err
	}
	run.Status = model.RunRunning

	runCtx, cancel := context.WithTimeout(ctx, wallClock)
	defer cancel()

	results := o.fanOut(runCtx, c, selected, maxParallel, opts.Progress)

	for name, res := range results {
		run.Results[name] = res
		if res.Success {
			run.ObjectivesCompleted = append(run.ObjectivesCompleted, name)
		} else {
			run.ObjectivesFailed = append(run.ObjectivesFailed, name)
		}
		run.APICallsUsed += res.APICallsUsed
	}

	now := time.Now()
	run.CompletedAt = &now
	run.DurationSeconds = now.Sub(run.StartedAt).Seconds()
	run.Status = aggregateStatus(run)
	run.HealthScore = float64(scoring.Score(run))

	if opts.Progress != nil {
		kind := "run_completed"
		if run.Status == model.RunFailed {
			kind = "run_failed"
		}
		trySend(opts.Progress, ProgressEvent{Kind: kind})
	}

	return run, nil
}

func (o *Orchestrator) selectAnalyzers(objectives []string, product model.Product) map[string]analyzer.Analyzer {
	selected := make(map[string]analyzer.Analyzer, len(objectives))
	for _, name := range objectives {
		a := o.registry.Get(name)
		if a == nil {
			continue
		}
		if !supportsProduct(a, product) {
			continue
		}
		selected[name] = a
	}
	return selected
}

func supportsProduct(a analyzer.Analyzer, p model.Product) bool {
	for _, sp := range a.SupportedProducts() {
		if sp == p {
			return true
		}
	}
	return false
}

// fanOut runs every selected analyzer under a semaphore of width
// maxParallel, recovers panics as failed results, and returns one
// AnalyzerResult per objective name. Analyzers that never acquired a
// semaphore slot before ctx expired land in the map as
// budget_exhausted_pre_run failures.
func (o *Orchestrator) fanOut(ctx context.Context, c *client.Client, selected map[string]analyzer.Analyzer, maxParallel int, progress chan<- ProgressEvent) map[string]*model.AnalyzerResult {
	sem := make(chan struct{}, maxParallel)
	results := make(map[string]*model.AnalyzerResult, len(selected))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, a := range selected {
		name, a := name, a
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				results[name] = preRunFailure(name)
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			trySend(progress, ProgressEvent{Kind: "analyzer_started", Objective: name})
			res := o.runOne(ctx, c, name, a)
			trySend(progress, ProgressEvent{Kind: "analyzer_completed", Objective: name})
			for i := range res.Findings {
				trySend(progress, ProgressEvent{Kind: "finding_emitted", Objective: name, Finding: &res.Findings[i]})
			}

			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// runOne executes a single analyzer with its own child timeout, recovering
// panics into a failed AnalyzerResult so one analyzer can never take down
// the run.
func (o *Orchestrator) runOne(ctx context.Context, c *client.Client, name string, a analyzer.Analyzer) (res *model.AnalyzerResult) {
	tr := otel.Tracer("cribl-hc/orchestrator")
	childCtx, span := tr.Start(ctx, name)
	defer span.End()

	deadline, hasDeadline := ctx.Deadline()
	var cancel context.CancelFunc
	if hasDeadline {
		childCtx, cancel = context.WithDeadline(childCtx, deadline)
	} else {
		childCtx, cancel = context.WithTimeout(childCtx, defaultWallClock)
	}
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("analyzer panicked", "objective", name, "panic", r)
			res = failureResult(name, time.Since(start), err)
		}
	}()

	result, err := a.Analyze(childCtx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("analyzer failed", "objective", name, "error", err)
		return failureResult(name, time.Since(start), err)
	}
	if result == nil {
		result = &model.AnalyzerResult{ObjectiveName: name}
	}
	result.ObjectiveName = name
	if result.Success {
		result.SortFindingsBySeverity()
		result.SortRecommendationsByPriority()
	}
	return result
}

// errorMetadata reduces err to the short, machine-matchable token callers
// key off of, falling back to the full formatted message for kinds with no
// dedicated token. A budget-exhausted client error always surfaces as the
// literal "budget_exhausted", never the longer "client: budget_exhausted
// calling <endpoint>: ..." wrapper text.
func errorMetadata(err error) string {
	var cerr *client.Error
	if errors.As(err, &cerr) && cerr.Kind == client.KindBudgetExhausted {
		return string(client.KindBudgetExhausted)
	}
	return err.Error()
}

func failureResult(name string, dur time.Duration, err error) *model.AnalyzerResult {
	return &model.AnalyzerResult{
		ObjectiveName: name,
		Success:       false,
		Duration:      dur,
		Metadata: map[string]interface{}{
			"error":    errorMetadata(err),
			"duration": dur.String(),
		},
	}
}

func preRunFailure(name string) *model.AnalyzerResult {
	return &model.AnalyzerResult{
		ObjectiveName: name,
		Success:       false,
		Metadata: map[string]interface{}{
			"error": "budget_exhausted_pre_run",
		},
	}
}

// aggregateStatus computes the run's final status from the populated
// objective lists, per the completed/partial/failed invariant.
func aggregateStatus(run *model.AnalysisRun) model.RunStatus {
	switch {
	case len(run.ObjectivesFailed) == 0 && len(run.ObjectivesCompleted) > 0:
		return model.RunCompleted
	case len(run.ObjectivesCompleted) > 0 && len(run.ObjectivesFailed) > 0:
		return model.RunPartial
	default:
		return model.RunFailed
	}
}

func (o *Orchestrator) finalizeFatal(run *model.AnalysisRun, reason string, progress chan<- ProgressEvent) *model.AnalysisRun {
	now := time.Now()
	run.CompletedAt = &now
	run.DurationSeconds = now.Sub(run.StartedAt).Seconds()
	run.Status = model.RunFailed
	run.HealthScore = float64(scoring.Score(run))
	if run.Results == nil {
		run.Results = make(map[string]*model.AnalyzerResult)
	}
	run.Results["_run"] = &model.AnalyzerResult{
		ObjectiveName: "_run",
		Success:       false,
		Metadata:      map[string]interface{}{"error": reason},
	}
	trySend(progress, ProgressEvent{Kind: "run_failed", Err: fmt.Errorf("%s", reason)})
	return run
}

func trySend(ch chan<- ProgressEvent, ev ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
