// Package openai implements the model gateway on the OpenAI chat completions
// API, either through an Azure OpenAI deployment or the public endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/linnemanlabs/triage-agent/internal/agent"
)

const (
	// DefaultAPIVersion is the Azure OpenAI API version used when none is set.
	DefaultAPIVersion = "2024-10-21"
	DefaultTimeout    = 120 * time.Second
)

// Config selects the endpoint and model. When Endpoint is set the client
// talks to Azure OpenAI and Model is the deployment name.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Model      string
	BaseURL    string // public API only; empty for api.openai.com
	Timeout    time.Duration
}

// Azure reports whether the config targets an Azure OpenAI resource.
func (c Config) Azure() bool { return c.Endpoint != "" }

// Client implements agent.Gateway for chat completions.
type Client struct {
	sdk   sdk.Client
	model string
}

// New builds a chat completions gateway. SDK retries are disabled.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.Azure() {
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, version),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	}

	return &Client{
		sdk:   sdk.NewClient(opts...),
		model: cfg.Model,
	}, nil
}

// Complete sends one chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req *agent.ModelRequest) (*agent.ModelReply, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toSDKMessages(req.Messages),
		Temperature: sdk.Float(req.Temperature),
		MaxTokens:   sdk.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	return fromSDKResponse(resp)
}

func toSDKMessages(msgs []agent.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case agent.RoleAssistant:
			out = append(out, sdk.AssistantMessage(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func fromSDKResponse(resp *sdk.ChatCompletion) (*agent.ModelReply, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("malformed provider response: no choices")
	}

	return &agent.ModelReply{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: agent.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}
