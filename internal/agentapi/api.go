// Package agentapi exposes the triage agent over HTTP.
package agentapi

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/triage-agent/internal/agent"
	"github.com/linnemanlabs/triage-agent/internal/incident"
)

// Route is the path the Functions host forwards agent_runner invocations to.
const Route = "/api/agent_runner"

// Runner runs the agent pipeline for one incident report.
type Runner interface {
	Run(ctx context.Context, runID, input string) (*agent.Result, error)
}

// Notifier is told about validated outputs that need action.
type Notifier interface {
	Notify(ctx context.Context, runID string, out *incident.Output) error
}

// VerdictObserver records schema validation verdicts.
type VerdictObserver interface {
	ObserveVerdict(v incident.Verdict)
}

// Option configures an API.
type Option func(*API)

// WithNotifier sets the notifier for action_required outputs.
func WithNotifier(n Notifier) Option {
	return func(a *API) { a.notifier = n }
}

// WithVerdictObserver sets the observer called with every verdict.
func WithVerdictObserver(o VerdictObserver) Option {
	return func(a *API) { a.observer = o }
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	runner   Runner
	notifier Notifier
	observer VerdictObserver
	validate func(candidate any) incident.Verdict
}

// New creates a new API handler.
func New(logger log.Logger, runner Runner, opts ...Option) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if runner == nil {
		panic(xerrors.New("agent runner is required"))
	}
	a := &API{
		logger:   logger,
		runner:   runner,
		validate: incident.Validate,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post(Route, a.handleAgentRunner)
}
