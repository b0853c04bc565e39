package main

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/triage-agent/internal/agent"
	"github.com/linnemanlabs/triage-agent/internal/agentapi"
	vc "github.com/linnemanlabs/triage-agent/internal/cfg"
	"github.com/linnemanlabs/triage-agent/internal/llm"
	"github.com/linnemanlabs/triage-agent/internal/notify/slack"
)

// newService builds the agent pipeline and the HTTP API around it.
func newService(ctx context.Context, L log.Logger, reg prometheus.Registerer, c *vc.Config) (*agentapi.API, error) {
	gateway, model, err := llm.NewGateway(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("model gateway: %w", err)
	}
	L.Info(ctx, "initialized LLM provider", "provider", c.Provider, "model", model)

	// a bad prompt path should stop startup, not the first request
	prompts := agent.FilePrompt{Path: c.PromptPath}
	if _, err := prompts.SystemPrompt(ctx); err != nil {
		return nil, fmt.Errorf("system prompt: %w", err)
	}

	agentMetrics := agent.NewMetrics(reg)
	engine := agent.NewEngine(gateway, prompts, L, agentMetrics.Hooks())

	opts := []agentapi.Option{agentapi.WithVerdictObserver(agentMetrics)}
	if c.SlackWebhookURL != "" {
		opts = append(opts, agentapi.WithNotifier(slack.New(c.SlackWebhookURL, L)))
		L.Info(ctx, "notifier enabled", "type", "slack")
	}

	if c.FunctionKey == "" {
		L.Warn(ctx, "function key not set, relying on the host for agent_runner auth")
	}

	return agentapi.New(L, engine, opts...), nil
}
