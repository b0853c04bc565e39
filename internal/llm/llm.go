// Package llm selects and builds the model gateway for the configured
// provider.
package llm

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/triage-agent/internal/agent"
	"github.com/linnemanlabs/triage-agent/internal/cfg"
	"github.com/linnemanlabs/triage-agent/internal/llm/claude"
	"github.com/linnemanlabs/triage-agent/internal/llm/gemini"
	"github.com/linnemanlabs/triage-agent/internal/llm/openai"
)

// NewGateway builds the gateway for c.Provider and returns it with the model
// (or Azure deployment) name it will call.
func NewGateway(ctx context.Context, c *cfg.Config) (agent.Gateway, string, error) {
	switch c.Provider {
	case cfg.ProviderAzureOpenAI:
		gw, err := openai.New(openai.Config{
			Endpoint:   c.AzureOpenAIEndpoint,
			APIKey:     c.AzureOpenAIKey,
			APIVersion: c.AzureOpenAIAPIVersion,
			Model:      c.AzureOpenAIDeployment,
			Timeout:    c.ModelTimeout(),
		})
		return done(gw, c.AzureOpenAIDeployment, err)

	case cfg.ProviderOpenAI:
		gw, err := openai.New(openai.Config{
			APIKey:  c.OpenAIAPIKey,
			Model:   c.OpenAIModel,
			BaseURL: c.OpenAIBaseURL,
			Timeout: c.ModelTimeout(),
		})
		return done(gw, c.OpenAIModel, err)

	case cfg.ProviderClaude:
		gw, err := claude.New(claude.Config{
			APIKey:  c.ClaudeAPIKey,
			Model:   c.ClaudeModel,
			Timeout: c.ModelTimeout(),
		})
		return done(gw, c.ClaudeModel, err)

	case cfg.ProviderGemini:
		gw, err := gemini.New(ctx, gemini.Config{
			APIKey:  c.GeminiAPIKey,
			Model:   c.GeminiModel,
			Timeout: c.ModelTimeout(),
		})
		return done(gw, c.GeminiModel, err)

	default:
		return nil, "", fmt.Errorf("unknown provider %q", c.Provider)
	}
}

// done keeps a typed nil client out of the returned interface.
func done[G agent.Gateway](gw G, model string, err error) (agent.Gateway, string, error) {
	if err != nil {
		return nil, "", err
	}
	return gw, model, nil
}
