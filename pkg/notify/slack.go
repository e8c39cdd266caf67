package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

const slackMaxTextLength = 3000

// SlackNotifier posts the report summary to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts a summary message plus the (truncated) analysis text.
func (s *SlackNotifier) Notify(ctx context.Context, report *triage.Report) error {
	payload := map[string]string{"text": formatSlackText(report)}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(msg)), triageerrors.ErrDispatch)
	}
	return nil
}

func formatSlackText(report *triage.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Triage report* (%s)\n", report.Timestamp)
	fmt.Fprintf(&b, "Items: %d total, %d relevant, %d general\n",
		report.Summary.TotalItems, report.Summary.RelevantItems, report.Summary.GeneralItems)
	if len(report.Summary.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(report.Summary.Categories, ", "))
	}
	b.WriteString("\n")

	text := report.AnalysisText
	if len(text) > slackMaxTextLength {
		text = text[:slackMaxTextLength] + "\n… (truncated)"
	}
	b.WriteString(text)
	return b.String()
}
