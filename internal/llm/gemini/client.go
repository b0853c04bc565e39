// Package gemini implements agent.Gateway on Google's Gemini API through the
// genai SDK. The system message goes to SystemInstruction; assistant turns
// use the "model" role.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/linnemanlabs/triage-agent/internal/agent"
)

// DefaultTimeout bounds one GenerateContent call when Config.Timeout is unset.
const DefaultTimeout = 120 * time.Second

// Config holds the settings for the Gemini gateway.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements agent.Gateway on genai GenerateContent.
type Client struct {
	sdk   *genai.Client
	model string
}

// New creates a client for the Gemini API backend. APIKey and Model are
// required. genai does not retry failed calls.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("gemini: model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{sdk: client, model: cfg.Model}, nil
}

// Complete runs one GenerateContent call.
func (c *Client) Complete(ctx context.Context, req *agent.ModelRequest) (*agent.ModelReply, error) {
	system, contents := toContents(req.Messages)

	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens), //nolint:gosec // G115: MaxTokens is a small pipeline constant
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	return fromResponse(resp)
}

func toContents(msgs []agent.Message) (string, []*genai.Content) {
	system, rest := agent.SplitSystem(msgs)

	out := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		var role genai.Role = genai.RoleUser
		if m.Role == agent.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return system, out
}

func fromResponse(resp *genai.GenerateContentResponse) (*agent.ModelReply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("malformed provider response: no candidates")
	}

	reply := &agent.ModelReply{
		Text:  resp.Text(),
		Model: resp.ModelVersion,
	}
	if u := resp.UsageMetadata; u != nil {
		reply.Usage = agent.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	return reply, nil
}
