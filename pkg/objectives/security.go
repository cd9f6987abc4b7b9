package objectives

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/policy"
)

// secretLikePattern flags config values that look like embedded
// credentials rather than references to a secret store — the same
// regex-over-config-text technique the teacher's forensic scanners use
// against AWS resource properties, re-targeted at Cribl config fields.
var secretLikePattern = regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[:=]\s*['"]?[A-Za-z0-9+/_\-]{12,}`)

// weakTLSVersions are protocol versions a modern deployment should not be
// negotiating, even with TLS nominally enabled.
var weakTLSVersions = map[string]bool{"1.0": true, "1.1": true, "ssl3": true}

// Deduction weights per §4.3's aggregate posture table. Secret deductions
// accumulate 5 points apiece but are capped at 25 total.
const (
	deductTLSDisabled = 30
	deductWeakTLS     = 20
	deductCertOff     = 15
	deductSecretEach  = 5
	deductSecretCap   = 25
	deductAuthzOff    = 10
)

// defaultSecurityRules scores aggregate posture: each unprotected input
// deducts from a 100-point posture score, evaluated through the same CEL
// engine the resource analyzer uses so posture thresholds stay data-driven.
var defaultSecurityRules = []policy.Rule{
	{ID: "security:posture:critical", Objective: "security", Condition: `kind == "posture_score" && value < 50.0`, Severity: "critical", Priority: 2, TargetKinds: []string{"posture_score"}},
	{ID: "security:posture:high", Objective: "security", Condition: `kind == "posture_score" && value >= 50.0 && value < 80.0`, Severity: "high", Priority: 1, TargetKinds: []string{"posture_score"}},
}

// SecurityAnalyzer flags inputs without TLS or authentication and
// config values that look like embedded secrets, then rolls the findings
// into an aggregate posture score.
type SecurityAnalyzer struct {
	policy *policy.Engine
}

// NewSecurityAnalyzer builds the security objective. A nil eng builds one
// from defaultSecurityRules.
func NewSecurityAnalyzer(eng *policy.Engine) *SecurityAnalyzer {
	if eng == nil {
		eng, _ = policy.NewEngine()
		_ = eng.Compile(defaultSecurityRules)
	}
	return &SecurityAnalyzer{policy: eng}
}

func (a *SecurityAnalyzer) ObjectiveName() string { return "security" }

func (a *SecurityAnalyzer) SupportedProducts() []model.Product { return allProducts }

func (a *SecurityAnalyzer) EstimatedAPICalls() int { return 1 }

func (a *SecurityAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	inputs, err := c.GetInputs(ctx)
	if err != nil {
		return nil, err
	}

	result := &model.AnalyzerResult{Success: true, APICallsUsed: 1}

	deductions := 0
	secretDeductions := 0
	for _, in := range inputs {
		switch {
		case !in.TLSEnabled:
			deductions += deductTLSDisabled
			f, err := model.NewFinding(findingID("security", "tls:"+in.ID), "transport_security", model.SeverityHigh,
				fmt.Sprintf("Input %s has TLS disabled", in.ID))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Input %q accepts connections without TLS; traffic is sent in cleartext.", in.ID)
			f.AffectedComponents = []string{in.ID}
			result.Findings = append(result.Findings, *f)
		case weakTLSVersions[in.TLSVersion]:
			deductions += deductWeakTLS
			f, err := model.NewFinding(findingID("security", "weak-tls:"+in.ID), "transport_security", model.SeverityMedium,
				fmt.Sprintf("Input %s negotiates a weak TLS version (%s)", in.ID, in.TLSVersion))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Input %q allows TLS version %q, which modern clients and compliance baselines both reject.", in.ID, in.TLSVersion)
			f.AffectedComponents = []string{in.ID}
			result.Findings = append(result.Findings, *f)
		}

		if in.TLSEnabled && in.SkipCertValidation {
			deductions += deductCertOff
			f, err := model.NewFinding(findingID("security", "cert-validation:"+in.ID), "transport_security", model.SeverityMedium,
				fmt.Sprintf("Input %s has certificate validation disabled", in.ID))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Input %q skips certificate validation, accepting any peer certificate including forged ones.", in.ID)
			f.AffectedComponents = []string{in.ID}
			result.Findings = append(result.Findings, *f)
		}

		if in.AuthType == "" || in.AuthType == "none" {
			deductions += deductAuthzOff
			f, err := model.NewFinding(findingID("security", "auth:"+in.ID), "authentication", model.SeverityHigh,
				fmt.Sprintf("Input %s has no authentication configured", in.ID))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Input %q accepts connections with no authentication.", in.ID)
			f.AffectedComponents = []string{in.ID}
			result.Findings = append(result.Findings, *f)
		} else if in.AuthType == "basic" {
			f, err := model.NewFinding(findingID("security", "weak-auth:"+in.ID), "authentication", model.SeverityLow,
				fmt.Sprintf("Input %s relies on weak basic authentication", in.ID))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Input %q authenticates with basic auth rather than a token or mutual-TLS scheme.", in.ID)
			f.AffectedComponents = []string{in.ID}
			result.Findings = append(result.Findings, *f)
		}

		if secretLikePattern.MatchString(in.RawConfig) {
			secretDeductions += deductSecretEach
			if secretDeductions > deductSecretCap {
				secretDeductions = deductSecretCap
			}
			f, err := model.NewFinding(findingID("security", "secret:"+in.ID), "secret_hygiene", model.SeverityCritical,
				fmt.Sprintf("Input %s config contains an embedded secret-like value", in.ID))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Input %q's configuration appears to embed a credential directly rather than referencing a secret store.", in.ID)
			f.AffectedComponents = []string{in.ID}
			result.Findings = append(result.Findings, *f)
		}
	}
	deductions += secretDeductions

	postureScore := 100 - deductions
	if postureScore < 0 {
		postureScore = 0
	}

	matches, err := a.policy.Evaluate(ctx, policy.Metrics{Kind: "posture_score", Value: float64(postureScore)})
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		f, ferr := model.NewFinding(findingID("security", "posture"), "security_posture", model.Severity(matches[0].Severity),
			fmt.Sprintf("Aggregate security posture score is %d/100", postureScore))
		if ferr != nil {
			return nil, ferr
		}
		f.Description = "Aggregate posture score reflects TLS, authentication, and secret-hygiene findings across all inputs."
		result.Findings = append(result.Findings, *f)
	}

	if len(result.Findings) == 0 {
		f, err := model.NewFinding(findingID("security", "clean"), "security_posture", model.SeverityInfo,
			"No security findings across inputs")
		if err != nil {
			return nil, err
		}
		result.Findings = append(result.Findings, *f)
	}

	result.Metadata = map[string]interface{}{
		"input_count":   len(inputs),
		"posture_score": postureScore,
	}
	return result, nil
}
