// Package policy evaluates data-driven analyzer thresholds (resource,
// security, cost) as compiled CEL expressions, so operators can tune
// threshold rules without a code change.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/cel-go/cel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Rule is a single named threshold expression, e.g.
// `cpu_percent >= 90.0` for the resource analyzer's critical band.
type Rule struct {
	ID          string   `json:"id"`
	Objective   string   `json:"objective"`   // e.g. "resource", "security", "cost"
	Condition   string   `json:"condition"`   // CEL expression evaluated against Metrics
	Severity    string   `json:"severity"`    // returned verbatim when the rule fires
	Priority    int      `json:"priority"`    // higher wins when multiple rules match
	TargetKinds []string `json:"target_kinds"` // metric kinds this rule applies to, "*" for all
}

// Metrics is the evaluation context every compiled rule runs against.
type Metrics struct {
	Kind  string
	Value float64
	Tags  map[string]string
	Props map[string]interface{}
}

// Engine compiles and evaluates Rules against Metrics, grouping compiled
// programs by target kind for O(k) candidate lookup per evaluation.
type Engine struct {
	env               *cel.Env
	programs          map[string]cel.Program
	rules             map[string]Rule
	index             map[string][]string // kind -> rule ids
	violationsCounter metric.Int64Counter
}

// NewEngine builds an Engine with the fixed Metrics variable declarations.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("value", cel.DoubleType),
		cel.Variable("tags", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("props", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: create CEL env: %w", err)
	}

	meter := otel.Meter("cribl-hc/policy")
	violations, err := meter.Int64Counter("policy_threshold_violations_total",
		metric.WithDescription("Total number of analyzer threshold rules that matched"))
	if err != nil {
		slog.Warn("policy: failed to initialize violations counter", "error", err)
	}

	return &Engine{
		env:               env,
		programs:          make(map[string]cel.Program),
		rules:             make(map[string]Rule),
		index:             make(map[string][]string),
		violationsCounter: violations,
	}, nil
}

// Compile parses and caches every rule's CEL program, and indexes it by
// target kind for fast candidate lookup at evaluation time.
func (e *Engine) Compile(rules []Rule) error {
	for _, r := range rules {
		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("policy: rule %s: %w", r.ID, issues.Err())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("policy: rule %s program: %w", r.ID, err)
		}

		e.programs[r.ID] = prg
		e.rules[r.ID] = r

		if len(r.TargetKinds) == 0 {
			e.index["*"] = append(e.index["*"], r.ID)
			continue
		}
		for _, kind := range r.TargetKinds {
			if kind == "*" {
				e.index["*"] = append(e.index["*"], r.ID)
			} else {
				e.index[kind] = append(e.index[kind], r.ID)
			}
		}
	}
	return nil
}

// Evaluate runs every rule whose target kind matches m.Kind (plus global
// rules) and returns the matches sorted by descending priority, then by id
// for a stable order among ties.
func (e *Engine) Evaluate(ctx context.Context, m Metrics) ([]Rule, error) {
	vars := map[string]interface{}{
		"kind":  m.Kind,
		"value": m.Value,
		"tags":  m.Tags,
		"props": m.Props,
	}

	candidates := make([]string, 0, len(e.index[m.Kind])+len(e.index["*"]))
	candidates = append(candidates, e.index[m.Kind]...)
	candidates = append(candidates, e.index["*"]...)

	seen := make(map[string]bool, len(candidates))
	var matches []Rule
	for _, id := range candidates {
		if seen[id] {
			continue
		}
		seen[id] = true

		prg, ok := e.programs[id]
		if !ok {
			continue
		}
		out, _, err := prg.Eval(vars)
		if err != nil {
			slog.Error("policy: rule evaluation failed", "rule_id", id, "error", err)
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}
		rule := e.rules[id]
		matches = append(matches, rule)
		if e.violationsCounter != nil {
			e.violationsCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("rule_id", id),
				attribute.String("kind", m.Kind),
			))
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return matches[i].ID < matches[j].ID
	})
	return matches, nil
}
