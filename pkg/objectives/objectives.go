// Package objectives provides the concrete Analyzer bodies that exercise
// the pkg/analyzer contract end to end: health, config, resource, storage,
// security, cost, predictive, and fleet. Every other objective class named
// in the taxonomy registers as a stub (see stub.go) so the registry, the
// orchestrator, and the report assembler all have a real entry to exercise
// even where a full rule body is out of scope.
package objectives

import (
	"fmt"
	"time"

	"github.com/cribl-hc/cribl-hc/pkg/analyzer"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/policy"
)

func timeNowUnixMilli() int64 { return time.Now().UnixMilli() }

// findingID returns a deterministic, stable finding id scoped to an
// objective and a short discriminator, so the same condition always
// produces the same id across runs (useful for diffing runs over time).
func findingID(objective, discriminator string) string {
	return fmt.Sprintf("%s:%s", objective, discriminator)
}

func recID(objective, discriminator string) string {
	return fmt.Sprintf("%s:rec:%s", objective, discriminator)
}

// hasHighOrCritical reports whether any finding in the list is high or
// critical severity, the bar the "clean configuration" style of positive
// finding must clear before it can be emitted alongside lower-severity noise.
func hasHighOrCritical(findings []model.Finding) bool {
	for _, f := range findings {
		if f.Severity.Rank() >= model.SeverityHigh.Rank() {
			return true
		}
	}
	return false
}

var allProducts = model.AllProducts

// PricingConfig carries the per-unit cost estimates the storage and cost
// analyzers use to turn volume/consumption numbers into dollar estimates.
// Zero values fall back to the defaults below.
type PricingConfig struct {
	PerGBIngestUSD float64
	PerSearchUSD   float64
}

func (p PricingConfig) withDefaults() PricingConfig {
	if p.PerGBIngestUSD == 0 {
		p.PerGBIngestUSD = 0.30
	}
	if p.PerSearchUSD == 0 {
		p.PerSearchUSD = 0.05
	}
	return p
}

// Deps bundles the shared dependencies the non-trivial analyzers need
// beyond the Analyzer contract's own ctx/client arguments: the CEL policy
// engine for threshold-driven findings and pricing for cost estimates.
type Deps struct {
	Policy  *policy.Engine
	Pricing PricingConfig
}

// RegisterAll registers the full representative analyzer set plus the
// documented stubs for every other named objective class into r.
func RegisterAll(r *analyzer.Registry, deps Deps) {
	r.Register(NewHealthAnalyzer())
	r.Register(NewConfigAnalyzer())
	r.Register(NewResourceAnalyzer(deps.Policy))
	r.Register(NewStorageAnalyzer(deps.Pricing))
	r.Register(NewSecurityAnalyzer(deps.Policy))
	r.Register(NewCostAnalyzer(deps.Pricing))
	r.Register(NewPredictiveAnalyzer())
	r.Register(NewFleetAnalyzer())

	for _, stub := range stubObjectives {
		r.Register(stub)
	}
}
