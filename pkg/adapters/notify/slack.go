// Package notify is an optional, core-independent adapter that posts
// run summaries to a Slack incoming webhook. The core report assembler
// never depends on this package.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cribl-hc/cribl-hc/pkg/model"
)

// SlackNotifier posts AnalysisRun summaries to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	httpClient *http.Client
}

// NewSlackNotifier builds a notifier posting to webhookURL, optionally
// overriding the webhook's default channel.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Channel:    channel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendRunSummary posts a one-message summary of run. A blank WebhookURL is
// treated as "notifications disabled" rather than an error.
func (s *SlackNotifier) SendRunSummary(ctx context.Context, run *model.AnalysisRun) error {
	if s.WebhookURL == "" {
		return nil
	}

	payload := s.buildPayload(run)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: slack returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *SlackNotifier) buildPayload(run *model.AnalysisRun) map[string]interface{} {
	statusIcon := "🟢"
	switch run.Status {
	case model.RunFailed:
		statusIcon = "🔴"
	case model.RunPartial:
		statusIcon = "🟡"
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": fmt.Sprintf("%s Cribl deployment health: %s", statusIcon, run.DeploymentID),
			},
		},
		{
			"type": "section",
			"fields": []map[string]interface{}{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%s", run.Status)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Health score:*\n%.0f", run.HealthScore)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Objectives completed:*\n%d", len(run.ObjectivesCompleted))},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Objectives failed:*\n%d", len(run.ObjectivesFailed))},
			},
		},
	}

	payload := map[string]interface{}{"blocks": blocks}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return payload
}
