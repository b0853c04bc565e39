package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/triage-agent/internal/agent"
)

// DefaultTimeout bounds a single Messages call when Config.Timeout is unset.
const DefaultTimeout = 120 * time.Second

// Config holds the settings for the Claude gateway.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // empty for the public API
	Timeout time.Duration
}

// Client implements agent.Gateway for the Claude Messages API.
type Client struct {
	sdk   anthropic.Client
	model string
}

// New creates a Claude gateway. The SDK's own retries are disabled so each
// Complete is exactly one request.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("claude: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("claude: model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		sdk:   anthropic.NewClient(opts...),
		model: cfg.Model,
	}, nil
}

// Complete sends the exchange to Claude and returns the reply text.
func (c *Client) Complete(ctx context.Context, req *agent.ModelRequest) (*agent.ModelReply, error) {
	system, msgs := toSDKMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    msgs,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude messages: %w", err)
	}

	return fromSDKResponse(msg)
}

// toSDKMessages lifts the system prompt into its own slot and converts the
// remaining messages to SDK params.
func toSDKMessages(msgs []agent.Message) (string, []anthropic.MessageParam) {
	system, rest := agent.SplitSystem(msgs)

	out := make([]anthropic.MessageParam, 0, len(rest))
	for _, m := range rest {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == agent.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
			continue
		}
		out = append(out, anthropic.NewUserMessage(block))
	}
	return system, out
}

func fromSDKResponse(msg *anthropic.Message) (*agent.ModelReply, error) {
	var (
		sb    strings.Builder
		found bool
	)
	for i := range msg.Content {
		if msg.Content[i].Type != "text" {
			continue
		}
		found = true
		sb.WriteString(msg.Content[i].Text)
	}
	if !found {
		return nil, errors.New("malformed provider response: no text content")
	}

	return &agent.ModelReply{
		Text:  sb.String(),
		Model: string(msg.Model),
		Usage: agent.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}
