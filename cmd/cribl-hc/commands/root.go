package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cribl-hc/cribl-hc/internal/config"
	"github.com/cribl-hc/cribl-hc/internal/logging"
	"github.com/cribl-hc/cribl-hc/internal/telemetry"
	"github.com/cribl-hc/cribl-hc/pkg/adapters/history"
	"github.com/cribl-hc/cribl-hc/pkg/adapters/notify"
	"github.com/cribl-hc/cribl-hc/pkg/analyzer"
	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/credstore"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/objectives"
	"github.com/cribl-hc/cribl-hc/pkg/orchestrator"
	"github.com/cribl-hc/cribl-hc/pkg/policy"
	"github.com/cribl-hc/cribl-hc/pkg/ratelimit"
	"github.com/cribl-hc/cribl-hc/pkg/report"
)

// version is overridden at release build time via -ldflags.
var version = "dev"

var (
	cfgFile       string
	profileName   string
	objectivesCSV string
	outputFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "cribl-hc",
	Short: "Cribl deployment health check",
	Long:  "cribl-hc runs one read-only health assessment against a Cribl Stream, Edge, Lake, or Search deployment and prints a report.",
	RunE:  runOnce,
}

// Execute runs the root command, exiting non-zero on failure. This is the
// only entrypoint: there is no subcommand tree, per the single-shot
// assessment scope this tool covers.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "credential profile name to load from the credential store")
	rootCmd.PersistentFlags().StringVar(&objectivesCSV, "objectives", "", "comma-separated objective names to run (default: every registered objective)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "json", "report output format: json or markdown")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("cribl-hc: %w", err)
	}

	logger := logging.New(slog.LevelInfo, os.Stderr)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := telemetry.Init(ctx, "cribl-hc", version, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("cribl-hc: telemetry init: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	name := profileName
	if name == "" {
		name = cfg.Profile.Name
	}

	c, err := buildClient(cfg, name)
	if err != nil {
		return fmt.Errorf("cribl-hc: %w", err)
	}

	eng, err := buildPolicyEngine(cfg)
	if err != nil {
		return fmt.Errorf("cribl-hc: %w", err)
	}

	registry := analyzer.NewRegistry()
	objectives.RegisterAll(registry, objectives.Deps{
		Policy: eng,
		Pricing: objectives.PricingConfig{
			PerGBIngestUSD: cfg.Pricing.PerGBIngestUSD,
			PerSearchUSD:   cfg.Pricing.PerSearchUSD,
		},
	})

	requested := registry.ListObjectives()
	if objectivesCSV != "" {
		requested = splitCSV(objectivesCSV)
	} else if len(cfg.ObjectiveAllow) > 0 {
		requested = cfg.ObjectiveAllow
	}

	o := orchestrator.New(registry)
	run, err := o.Run(ctx, c, orchestrator.Options{
		DeploymentID:         name,
		Objectives:           requested,
		MaxParallelAnalyzers: cfg.Concurrency.MaxParallelAnalyzers,
		WallClockBudget:      cfg.Concurrency.WallClockTimeout,
		APICallBudget:        cfg.Concurrency.APICallBudget,
	})
	if err != nil {
		logger.Error("run failed", "error", err)
	}

	if err := emitReport(run); err != nil {
		return fmt.Errorf("cribl-hc: %w", err)
	}

	if cfg.HistoryPath != "" {
		if err := appendHistory(cfg.HistoryPath, run); err != nil {
			logger.Warn("history append failed", "error", err)
		}
	}

	if cfg.SlackWebhook != "" {
		notifier := notify.NewSlackNotifier(cfg.SlackWebhook, "")
		if err := notifier.SendRunSummary(ctx, run); err != nil {
			logger.Warn("slack notify failed", "error", err)
		}
	}

	if run.Status == model.RunFailed {
		os.Exit(1)
	}
	return nil
}

func buildClient(cfg config.Config, credentialProfile string) (*client.Client, error) {
	dir, err := credentialDir()
	if err != nil {
		return nil, err
	}
	store, err := credstore.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}

	baseURL := cfg.Profile.BaseURL
	var creds client.Credentials
	if credentialProfile != "" {
		p, err := store.Get(credentialProfile)
		if err != nil {
			return nil, fmt.Errorf("credential profile %q: %w", credentialProfile, err)
		}
		baseURL = p.BaseURL
		if p.BearerToken != "" {
			creds.BearerToken = p.BearerToken
		} else if p.ClientID != "" {
			creds.OAuth = &clientcredentials.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				TokenURL:     strings.TrimRight(p.BaseURL, "/") + "/api/v1/auth/token",
			}
		}
	} else {
		// No credential profile: fall back to CRIBL_URL / CRIBL_TOKEN.
		if baseURL == "" {
			baseURL = os.Getenv("CRIBL_URL")
		}
		creds.BearerToken = os.Getenv("CRIBL_TOKEN")
	}

	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.Concurrency.APICallBudget)
	return client.New(client.Options{
		BaseURL:     baseURL,
		Credentials: creds,
		Limiter:     limiter,
		MaxRetries:  cfg.RateLimit.MaxRetries,
	})
}

func buildPolicyEngine(cfg config.Config) (*policy.Engine, error) {
	eng, err := policy.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("policy engine: %w", err)
	}
	if len(cfg.ThresholdRules) == 0 {
		// No configured rules: a nil engine makes each analyzer install its
		// own default rules.
		return nil, nil
	}
	rules := make([]policy.Rule, 0, len(cfg.ThresholdRules))
	for _, r := range cfg.ThresholdRules {
		rules = append(rules, policy.Rule{
			ID:          r.ID,
			Objective:   r.Objective,
			Condition:   r.Condition,
			Severity:    r.Severity,
			Priority:    r.Priority,
			TargetKinds: r.TargetKinds,
		})
	}
	if err := eng.Compile(rules); err != nil {
		return nil, fmt.Errorf("policy rule compile: %w", err)
	}
	return eng, nil
}

func emitReport(run *model.AnalysisRun) error {
	switch strings.ToLower(outputFormat) {
	case "markdown", "md":
		fmt.Println(report.Markdown(run))
	default:
		out, err := report.JSON(run)
		if err != nil {
			return fmt.Errorf("assemble report: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}

func appendHistory(path string, run *model.AnalysisRun) error {
	ledger, err := history.Open(path)
	if err != nil {
		return err
	}
	return ledger.Append(history.Snapshot{
		Timestamp:    run.StartedAt.Unix(),
		DeploymentID: run.DeploymentID,
		HealthScore:  run.HealthScore,
		Metric:       "health_score",
		Value:        run.HealthScore,
	})
}

func credentialDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".cribl-hc"), nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
