package objectives

import (
	"context"
	"fmt"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/model"
	"github.com/cribl-hc/cribl-hc/pkg/predictive"
)

// capacityMetric is one named numeric series /api/v1/system/metrics/history
// exposes (queue depth, disk usage, event rate, ...).
type capacityMetric struct {
	Name      string    `json:"name"`
	Values    []float64 `json:"values"`
	Threshold float64   `json:"threshold"`
}

// PredictiveAnalyzer runs the generic capacity forecast + anomaly
// detection over every injected metric series the deployment reports,
// independent of any single domain (storage, cost, resource).
type PredictiveAnalyzer struct{}

// NewPredictiveAnalyzer builds the predictive objective.
func NewPredictiveAnalyzer() *PredictiveAnalyzer { return &PredictiveAnalyzer{} }

func (a *PredictiveAnalyzer) ObjectiveName() string { return "predictive" }

func (a *PredictiveAnalyzer) SupportedProducts() []model.Product { return allProducts }

func (a *PredictiveAnalyzer) EstimatedAPICalls() int { return 1 }

func (a *PredictiveAnalyzer) Analyze(ctx context.Context, c *client.Client) (*model.AnalyzerResult, error) {
	var metrics []capacityMetric
	if err := c.Get(ctx, "/api/v1/system/metrics/history", true, &metrics); err != nil {
		if _, ok := err.(*client.NotAvailable); ok {
			return &model.AnalyzerResult{
				Success:      true,
				APICallsUsed: 1,
				Metadata:     map[string]interface{}{"metrics_history": "not_available"},
			}, nil
		}
		return nil, err
	}

	result := &model.AnalyzerResult{Success: true}

	for _, m := range metrics {
		points := make([]predictive.Point, len(m.Values))
		for i, v := range m.Values {
			points[i] = predictive.Point{X: float64(i), Y: v}
		}
		trend := predictive.LinearTrend(points)
		confidence := predictive.ConfidenceForHistoryLength(len(points))

		anomalies := predictive.ZScoreAnomalies(m.Values, predictive.DefaultZScoreThreshold)
		if len(anomalies) > 0 {
			f, err := model.NewFinding(findingID("predictive", "anomaly:"+m.Name), "anomaly_detection", model.SeverityMedium,
				fmt.Sprintf("%d anomalous samples detected in %s", len(anomalies), m.Name))
			if err != nil {
				return nil, err
			}
			f.Description = fmt.Sprintf("Metric %q has %d sample(s) beyond %.1f standard deviations from the series mean.", m.Name, len(anomalies), predictive.DefaultZScoreThreshold)
			f.ConfidenceLevel = model.Confidence(confidence)
			result.Findings = append(result.Findings, *f)
		}

		if m.Threshold > 0 && len(m.Values) > 0 {
			current := m.Values[len(m.Values)-1]
			daysToThreshold := predictive.TimeToThreshold(trend, current, m.Threshold)
			if daysToThreshold >= 0 && daysToThreshold < 30 {
				f, err := model.NewFinding(findingID("predictive", "forecast:"+m.Name), "capacity_forecast", model.SeverityMedium,
					fmt.Sprintf("%s projected to cross threshold in %.0f periods", m.Name, daysToThreshold))
				if err != nil {
					return nil, err
				}
				f.Description = fmt.Sprintf("Metric %q trending at slope %.3f/period; projected to reach %.1f within %.0f periods.", m.Name, trend.Slope, m.Threshold, daysToThreshold)
				f.ConfidenceLevel = model.Confidence(confidence)
				result.Findings = append(result.Findings, *f)
			}
		}
	}

	if len(result.Findings) == 0 {
		f, err := model.NewFinding(findingID("predictive", "stable"), "capacity_forecast", model.SeverityInfo,
			"No capacity or anomaly concerns projected")
		if err != nil {
			return nil, err
		}
		result.Findings = append(result.Findings, *f)
	}

	result.APICallsUsed = 1
	result.Metadata = map[string]interface{}{"metrics_evaluated": len(metrics)}
	return result, nil
}
