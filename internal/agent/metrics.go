package agent

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/triage-agent/internal/incident"
)

// Hooks are optional callbacks the engine fires for instrumentation.
type Hooks struct {
	OnModelCall func(e *ModelCallEvent)
	OnComplete  func(e *CompleteEvent)
}

// ModelCallEvent describes one gateway call.
type ModelCallEvent struct {
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     float64
	Err          error
}

// CompleteEvent describes a finished run.
type CompleteEvent struct {
	RunID    string
	Outcome  Outcome
	Duration float64
}

// Metrics holds Prometheus metrics for the agent pipeline.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	ModelCallsTotal   *prometheus.CounterVec
	ModelCallDuration prometheus.Histogram
	ModelTokensIn     prometheus.Counter
	ModelTokensOut    prometheus.Counter
	VerdictsTotal     *prometheus.CounterVec
	SchemaErrorsTotal prometheus.Counter
}

// NewMetrics registers and returns agent metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_agent_runs_total",
			Help: "Total pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_agent_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"outcome"}),
		ModelCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_agent_model_calls_total",
			Help: "Total model gateway calls by status.",
		}, []string{"status"}),
		ModelCallDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_agent_model_call_duration_seconds",
			Help:    "Duration of individual model gateway calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}),
		ModelTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_agent_model_tokens_input_total",
			Help: "Total model input tokens consumed.",
		}),
		ModelTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_agent_model_tokens_output_total",
			Help: "Total model output tokens consumed.",
		}),
		VerdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_agent_schema_verdicts_total",
			Help: "Schema validation verdicts by result.",
		}, []string{"result"}),
		SchemaErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_agent_schema_errors_total",
			Help: "Total individual schema violations reported.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ModelCallsTotal,
		m.ModelCallDuration,
		m.ModelTokensIn,
		m.ModelTokensOut,
		m.VerdictsTotal,
		m.SchemaErrorsTotal,
	)

	return m
}

// Hooks returns engine Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnModelCall: func(e *ModelCallEvent) {
			status := "success"
			if e.Err != nil {
				status = "error"
			}
			m.ModelCallsTotal.WithLabelValues(status).Inc()
			m.ModelCallDuration.Observe(e.Duration)
			m.ModelTokensIn.Add(float64(e.InputTokens))
			m.ModelTokensOut.Add(float64(e.OutputTokens))
		},
		OnComplete: func(e *CompleteEvent) {
			m.RunsTotal.WithLabelValues(string(e.Outcome)).Inc()
			m.RunDuration.WithLabelValues(string(e.Outcome)).Observe(e.Duration)
		},
	}
}

// ObserveVerdict records a schema validation verdict.
func (m *Metrics) ObserveVerdict(v incident.Verdict) {
	result := "pass"
	if v.HardFail {
		result = "hard_fail"
	}
	m.VerdictsTotal.WithLabelValues(result).Inc()
	m.SchemaErrorsTotal.Add(float64(len(v.Errors)))
}
