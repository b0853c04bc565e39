package agentapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/triage-agent/internal/agent"
	"github.com/linnemanlabs/triage-agent/internal/incident"
)

type runRequest struct {
	InputText string `json:"input_text"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

const (
	msgInvalidPayload   = "invalid payload"
	msgInternal         = "Internal error"
	msgValidationFailed = "Output validation failed"
)

func (a *API) handleAgentRunner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeRequest(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidPayload})
		return
	}

	runID := ulid.Make().String()
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("agent.run.id", runID))

	L := a.logger.With("run_id", runID)

	res, err := a.runner.Run(ctx, runID, req.InputText)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		L.Error(ctx, err, "agent run failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	verdict := a.validate(res.Output)
	if a.observer != nil {
		a.observer.ObserveVerdict(verdict)
	}
	if verdict.HardFail {
		L.Warn(ctx, "output validation failed", "errors", verdict.Errors)
		span.SetAttributes(attribute.Bool("agent.output.hard_fail", true))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   msgValidationFailed,
			Details: verdict.Errors,
		})
		return
	}

	out, err := incident.Decode(res.Output)
	if err != nil {
		L.Error(ctx, err, "decode validated output")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	span.SetAttributes(
		attribute.String("incident.triage_outcome", string(out.TriageOutcome)),
		attribute.String("incident.severity", string(out.Severity)),
	)

	if a.notifier != nil && out.TriageOutcome == incident.OutcomeActionRequired {
		if err := a.notifier.Notify(ctx, runID, out); err != nil {
			L.Error(ctx, err, "notification failed", "incident_id", out.IncidentID)
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// decodeRequest reads exactly one JSON object; trailing data is rejected.
func decodeRequest(body io.Reader) (runRequest, error) {
	var req runRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errors.New("unexpected data after request object")
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}
