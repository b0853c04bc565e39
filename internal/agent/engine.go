package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/triage-agent/internal/incident"
)

const (
	// Temperature and MaxTokens are the fixed generation parameters.
	Temperature = 0
	MaxTokens   = 1500

	// MaxPlanSteps bounds the plan length.
	MaxPlanSteps = 10

	tracerName = "github.com/linnemanlabs/triage-agent/internal/agent"
)

// DefaultPlan is the static plan every run follows.
var DefaultPlan = []string{
	"Read input",
	"Extract key points",
	"Identify risks or gaps",
	"Format JSON output",
}

// Stage names used in logs and spans.
const (
	StageReceive = "receive_input"
	StagePlan    = "plan"
	StagePrompt  = "prompt"
	StageModel   = "llm_call"
	StageStamp   = "stamp"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeEmptyInput      Outcome = "empty_input"
	OutcomePlanTooLong     Outcome = "plan_too_long"
	OutcomePromptError     Outcome = "prompt_error"
	OutcomeGatewayError    Outcome = "gateway_error"
	OutcomeMalformedOutput Outcome = "malformed_output"
)

// Result is the stamped model output of a successful run. Output has not been
// schema checked; that is the caller's job.
type Result struct {
	RunID    string
	Output   map[string]any
	Model    string
	Usage    Usage
	Duration float64
}

// Engine runs the receive, plan, prompt, model and stamp stages for one
// incident report. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	gateway Gateway
	prompts PromptSource
	logger  log.Logger
	hooks   Hooks
	plan    []string
	now     func() time.Time
}

// NewEngine creates an engine calling gateway. A nil prompts serves the
// built-in system prompt.
func NewEngine(gateway Gateway, prompts PromptSource, logger log.Logger, hooks Hooks) *Engine {
	if gateway == nil {
		panic(xerrors.New("model gateway is required"))
	}
	if prompts == nil {
		prompts = FilePrompt{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		gateway: gateway,
		prompts: prompts,
		logger:  logger,
		hooks:   hooks,
		plan:    DefaultPlan,
		now:     time.Now,
	}
}

// Run triages input. An empty runID is replaced with a fresh ULID. Errors
// wrap one of the package sentinels; nothing is retried.
func (e *Engine) Run(ctx context.Context, runID, input string) (res *Result, err error) {
	start := time.Now()
	if runID == "" {
		runID = ulid.Make().String()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.run.id", runID),
			attribute.Int("agent.input.length", len(input)),
		),
	)
	defer span.End()

	L := e.logger.With("run_id", runID)

	outcome := OutcomeOK
	defer func() {
		span.SetAttributes(attribute.String("agent.outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(outcome))
		}
		if e.hooks.OnComplete != nil {
			e.hooks.OnComplete(&CompleteEvent{
				RunID:    runID,
				Outcome:  outcome,
				Duration: time.Since(start).Seconds(),
			})
		}
	}()

	// receive
	L.Info(ctx, "stage", "stage", StageReceive, "length", len(input))
	if strings.TrimSpace(input) == "" {
		outcome = OutcomeEmptyInput
		return nil, ErrEmptyInput
	}

	// plan
	L.Info(ctx, "stage", "stage", StagePlan, "steps", len(e.plan))
	if len(e.plan) > MaxPlanSteps {
		outcome = OutcomePlanTooLong
		return nil, fmt.Errorf("%w: %d steps (max %d)", ErrPlanTooLong, len(e.plan), MaxPlanSteps)
	}

	// prompt
	system, err := e.prompts.SystemPrompt(ctx)
	if err != nil {
		outcome = OutcomePromptError
		return nil, fmt.Errorf("%w: %w", ErrPrompt, err)
	}
	req := &ModelRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: input},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	}
	L.Info(ctx, "stage", "stage", StagePrompt, "system_prompt_length", len(system))

	// model
	reply, err := e.callModel(ctx, runID, req)
	if err != nil {
		outcome = OutcomeGatewayError
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	L.Info(ctx, "stage", "stage", StageModel,
		"length", len(reply.Text),
		"model", reply.Model,
		"input_tokens", reply.Usage.InputTokens,
		"output_tokens", reply.Usage.OutputTokens,
	)

	output, err := parseOutput(reply.Text)
	if err != nil {
		outcome = OutcomeMalformedOutput
		return nil, err
	}

	// stamp, the model's own timestamp is never trusted
	output[incident.FieldTimestamp] = e.now().UTC().Format(time.RFC3339Nano)
	L.Info(ctx, "stage", "stage", StageStamp)

	return &Result{
		RunID:    runID,
		Output:   output,
		Model:    reply.Model,
		Usage:    reply.Usage,
		Duration: time.Since(start).Seconds(),
	}, nil
}

func (e *Engine) callModel(ctx context.Context, runID string, req *ModelRequest) (*ModelReply, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.call",
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "llm.call"),
			attribute.Float64("gen_ai.request.temperature", req.Temperature),
			attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
			attribute.String("agent.run.id", runID),
		),
	)
	defer span.End()

	span.AddEvent("llm.request", trace.WithAttributes(
		attribute.Int("llm.request.messages", len(req.Messages)),
	))

	start := time.Now()
	reply, err := e.gateway.Complete(ctx, req)
	dur := time.Since(start).Seconds()

	ev := &ModelCallEvent{Duration: dur, Err: err}
	if reply != nil {
		ev.Model = reply.Model
		ev.InputTokens = reply.Usage.InputTokens
		ev.OutputTokens = reply.Usage.OutputTokens
	}
	if e.hooks.OnModelCall != nil {
		e.hooks.OnModelCall(ev)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway error")
		return nil, err
	}
	if reply == nil {
		err := fmt.Errorf("gateway returned no reply")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gen_ai.response.model", reply.Model),
		attribute.Int("gen_ai.usage.input_tokens", reply.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", reply.Usage.OutputTokens),
	)
	span.AddEvent("llm.response", trace.WithAttributes(
		attribute.Int("llm.response.length", len(reply.Text)),
	))
	return reply, nil
}

// parseOutput decodes the reply, which must be a single JSON object.
func parseOutput(text string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: null", ErrMalformedOutput)
	}
	return out, nil
}
