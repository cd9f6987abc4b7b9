// Package analyzer defines the plugin contract every analysis objective
// implements, and a registry that analyzers are registered into once at
// startup.
package analyzer

import (
	"context"
	"sort"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
)

// Analyzer is the contract every analysis objective (health, config,
// resource, storage, security, cost, predictive, fleet, ...) implements.
// Individual rule bodies are not part of this package; this package only
// fixes the shape they plug into.
type Analyzer interface {
	// ObjectiveName is the stable identifier used in ObjectivesRequested/
	// Completed/Failed and as the Results map key.
	ObjectiveName() string

	// SupportedProducts lists which Cribl products this analyzer applies
	// to. The orchestrator skips an analyzer whose supported set excludes
	// the detected deployment's product.
	SupportedProducts() []model.Product

	// EstimatedAPICalls is a conservative upper bound used for admission
	// control: the orchestrator sums estimates across requested
	// objectives and rejects the run before anything starts if the sum
	// would exceed budget-1 (reserving one call for TestConnection).
	EstimatedAPICalls() int

	// Analyze runs the objective against c and returns its result. Analyze
	// must respect ctx cancellation/deadline and should return a non-nil
	// error only for failures that should mark the whole objective failed;
	// partial findings belong in the returned AnalyzerResult, not errors.
	Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error)
}

// Registry is a process-wide, alphabetically-listable collection of
// Analyzer implementations. Analyzers are registered explicitly at startup
// (objectives.RegisterAll), not from init() functions.
type Registry struct {
	byName map[string]Analyzer
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Analyzer)}
}

// Register adds a into the registry, panicking on a duplicate objective
// name since that indicates a programming error at startup, not a runtime
// condition callers should handle.
func (r *Registry) Register(a Analyzer) {
	name := a.ObjectiveName()
	if _, exists := r.byName[name]; exists {
		panic("analyzer: duplicate objective registered: " + name)
	}
	r.byName[name] = a
}

// Get returns the analyzer registered under name, or nil if none is.
func (r *Registry) Get(name string) Analyzer {
	return r.byName[name]
}

// ListObjectives returns every registered objective name, sorted
// alphabetically for deterministic iteration.
func (r *Registry) ListObjectives() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportsProduct reports whether the named analyzer declares support for
// product p. Unknown analyzer names report false.
func (r *Registry) SupportsProduct(name string, p model.Product) bool {
	a, ok := r.byName[name]
	if !ok {
		return false
	}
	for _, sp := range a.SupportedProducts() {
		if sp == p {
			return true
		}
	}
	return false
}
