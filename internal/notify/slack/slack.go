// Package slack posts action-required incident triage results to Slack via
// incoming webhooks.
package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triage-agent/internal/incident"
)

const (
	maxHeaderLen      = 150 // Slack's plain_text header limit
	maxDescriptionLen = 3000
	httpTimeout       = 10 * time.Second
)

// Notifier sends triage results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Notify posts a triage output to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, runID string, out *incident.Output) error {
	if n.webhookURL == "" {
		return nil
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, buildMessage(runID, out)); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}

	n.logger.Info(ctx, "slack notification sent",
		"run_id", runID,
		"incident_id", out.IncidentID,
		"severity", out.Severity,
	)
	return nil
}

func buildMessage(runID string, out *incident.Output) *slack.WebhookMessage {
	return &slack.WebhookMessage{
		Text: truncate(out.IncidentSummary, maxHeaderLen),
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			headerBlock(out),
			slack.NewDividerBlock(),
			fieldsBlock(out),
			slack.NewDividerBlock(),
			descriptionBlock(out),
			slack.NewDividerBlock(),
			contextBlock(runID, out),
		}},
	}
}

func headerBlock(out *incident.Output) *slack.HeaderBlock {
	text := fmt.Sprintf("%s %s: %s", severityEmoji(out.Severity), outcomeTitle(out.TriageOutcome), out.IncidentSummary)
	return slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, truncate(text, maxHeaderLen), true, false),
	)
}

func fieldsBlock(out *incident.Output) *slack.SectionBlock {
	fields := []*slack.TextBlockObject{
		mrkdwn(fmt.Sprintf("*Incident:* %s", out.IncidentID)),
		mrkdwn(fmt.Sprintf("*Outcome:* %s", out.TriageOutcome)),
		mrkdwn(fmt.Sprintf("*Severity:* %s", out.Severity)),
		mrkdwn(fmt.Sprintf("*Urgency:* %s", out.Urgency)),
	}
	return slack.NewSectionBlock(nil, fields, nil)
}

func descriptionBlock(out *incident.Output) *slack.SectionBlock {
	var sb strings.Builder

	desc := out.Description
	if desc == "" {
		desc = "_No description available._"
	}
	sb.WriteString("*Description*\n\n")
	sb.WriteString(desc)

	if len(out.PrimarySignals) > 0 {
		sb.WriteString("\n\n*Primary signals*\n")
		sb.WriteString(bullets(out.PrimarySignals))
	}
	if len(out.RisksOrUnknowns) > 0 {
		sb.WriteString("\n\n*Risks / unknowns*\n")
		sb.WriteString(bullets(out.RisksOrUnknowns))
	}

	return slack.NewSectionBlock(mrkdwn(truncate(sb.String(), maxDescriptionLen)), nil, nil)
}

func contextBlock(runID string, out *incident.Output) *slack.ContextBlock {
	ts := out.Timestamp
	if t, err := incident.ParseTimestamp(ts); err == nil {
		ts = t.UTC().Format("2006-01-02 15:04 UTC")
	}
	return slack.NewContextBlock("",
		mrkdwn(fmt.Sprintf("triage-agent • run %s • %s", runID, ts)),
	)
}

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = "• " + s
	}
	return strings.Join(lines, "\n")
}

func outcomeTitle(o incident.TriageOutcome) string {
	switch o {
	case incident.OutcomeActionRequired:
		return "Action required"
	case incident.OutcomeNeedsClarification:
		return "Needs clarification"
	default:
		return "Triage complete"
	}
}

func severityEmoji(sev incident.Severity) string {
	switch sev {
	case incident.Sev0, incident.Sev1:
		return "\U0001f534" // red circle
	case incident.Sev2:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
