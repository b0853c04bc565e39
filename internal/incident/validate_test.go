package incident

import (
	"encoding/json"
	"strings"
	"testing"
)

// validCandidate returns a fully valid report as decoded from JSON.
func validCandidate() map[string]any {
	return map[string]any{
		"incident_id":       "INC-1",
		"incident_summary":  "Checkout latency spike",
		"description":       "p99 latency on checkout rose to 4s after deploy",
		"primary_signals":   []any{"p99 latency 4s", "error rate 3%"},
		"risks_or_unknowns": []any{"root cause unknown"},
		"triage_outcome":    "action_required",
		"severity":          "Sev2",
		"urgency":           "High",
		"timestamp":         "2026-10-19T08:30:00.123456+00:00",
	}
}

func errorsFor(v Verdict, field string) []string {
	var out []string
	for _, e := range v.Errors {
		if strings.HasPrefix(e, field+":") {
			out = append(out, e)
		}
	}
	return out
}

func TestValidate_ValidCandidate(t *testing.T) {
	t.Parallel()

	v := Validate(validCandidate())
	if v.HardFail {
		t.Fatalf("HardFail = true, errors = %v", v.Errors)
	}
	if len(v.Errors) != 0 {
		t.Errorf("errors = %v, want none", v.Errors)
	}
}

func TestValidate_MonitorOnlyWithoutSignals(t *testing.T) {
	t.Parallel()

	raw := `{"incident_id":"1","incident_summary":"s","description":"d","primary_signals":[],"triage_outcome":"monitor_only","severity":"Sev2","urgency":"Low","timestamp":"2026-10-19T08:30:00Z"}`
	var c map[string]any
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	v := Validate(c)
	if v.HardFail {
		t.Errorf("HardFail = true, errors = %v", v.Errors)
	}
}

func TestValidate_ActionRequiredSignals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		signals  any
		wantFail bool
	}{
		{"non-empty", []any{"disk full"}, false},
		{"empty", []any{}, true},
		{"empty typed", []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validCandidate()
			c["triage_outcome"] = "action_required"
			c["primary_signals"] = tt.signals

			v := Validate(c)
			if v.HardFail != tt.wantFail {
				t.Fatalf("HardFail = %v, want %v (errors %v)", v.HardFail, tt.wantFail, v.Errors)
			}
			if tt.wantFail && len(errorsFor(v, FieldPrimarySignals)) != 1 {
				t.Errorf("primary_signals errors = %v, want exactly 1", errorsFor(v, FieldPrimarySignals))
			}
		})
	}
}

func TestValidate_EmptySignalsAllowedForOtherOutcomes(t *testing.T) {
	t.Parallel()

	for _, o := range Outcomes {
		if o == OutcomeActionRequired {
			continue
		}
		t.Run(string(o), func(t *testing.T) {
			t.Parallel()

			c := validCandidate()
			c["triage_outcome"] = string(o)
			c["primary_signals"] = []any{}

			if v := Validate(c); v.HardFail {
				t.Errorf("HardFail = true for %s, errors = %v", o, v.Errors)
			}
		})
	}
}

func TestValidate_EnumViolationsProduceOneErrorEach(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field string
		value any
	}{
		{FieldTriageOutcome, "escalate"},
		{FieldTriageOutcome, ""},
		{FieldTriageOutcome, 3},
		{FieldSeverity, "Sev5"},
		{FieldSeverity, "sev1"},
		{FieldSeverity, nil},
		{FieldUrgency, "Urgent"},
		{FieldUrgency, []any{"High"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			t.Parallel()

			c := validCandidate()
			c[tt.field] = tt.value
			if tt.field == FieldTriageOutcome {
				// keep primary_signals valid regardless of outcome
				c["primary_signals"] = []any{"signal"}
			}

			v := Validate(c)
			if !v.HardFail {
				t.Fatalf("HardFail = false for %s=%v", tt.field, tt.value)
			}
			if got := errorsFor(v, tt.field); len(got) != 1 {
				t.Errorf("%s errors = %v, want exactly 1", tt.field, got)
			}
			if len(v.Errors) != 1 {
				t.Errorf("total errors = %v, want 1", v.Errors)
			}
		})
	}
}

func TestValidate_MissingFieldsAllReported(t *testing.T) {
	t.Parallel()

	v := Validate(map[string]any{})
	if !v.HardFail {
		t.Fatal("HardFail = false for empty object")
	}

	required := []string{
		FieldIncidentID,
		FieldIncidentSummary,
		FieldDescription,
		FieldTriageOutcome,
		FieldPrimarySignals,
		FieldSeverity,
		FieldUrgency,
		FieldTimestamp,
	}
	if len(v.Errors) != len(required) {
		t.Fatalf("errors = %d (%v), want %d", len(v.Errors), v.Errors, len(required))
	}
	for i, field := range required {
		if !strings.HasPrefix(v.Errors[i], field+":") {
			t.Errorf("errors[%d] = %q, want prefix %q", i, v.Errors[i], field)
		}
	}
}

func TestValidate_StringFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
		value any
		want  string
	}{
		{"id wrong type", FieldIncidentID, 42, "must be a string"},
		{"id empty", FieldIncidentID, "", "must not be empty"},
		{"summary blank", FieldIncidentSummary, "   \t", "must not be blank"},
		{"summary null", FieldIncidentSummary, nil, "must be a string"},
		{"description wrong type", FieldDescription, map[string]any{}, "must be a string"},
		{"description empty", FieldDescription, "", "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validCandidate()
			c[tt.field] = tt.value

			v := Validate(c)
			got := errorsFor(v, tt.field)
			if len(got) != 1 {
				t.Fatalf("%s errors = %v, want exactly 1", tt.field, got)
			}
			if !strings.Contains(got[0], tt.want) {
				t.Errorf("error = %q, want substring %q", got[0], tt.want)
			}
		})
	}
}

func TestValidate_PrimarySignalsShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
	}{
		{"string", "disk full"},
		{"mixed items", []any{"ok", 1}},
		{"null", nil},
		{"object", map[string]any{"a": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validCandidate()
			c[FieldPrimarySignals] = tt.value

			got := errorsFor(Validate(c), FieldPrimarySignals)
			if len(got) != 1 || !strings.Contains(got[0], "list of strings") {
				t.Errorf("primary_signals errors = %v, want one list-of-strings error", got)
			}
		})
	}
}

func TestValidate_RisksOrUnknownsOptional(t *testing.T) {
	t.Parallel()

	c := validCandidate()
	delete(c, FieldRisksOrUnknowns)
	if v := Validate(c); v.HardFail {
		t.Errorf("absent risks_or_unknowns: errors = %v", v.Errors)
	}

	c[FieldRisksOrUnknowns] = nil
	if v := Validate(c); v.HardFail {
		t.Errorf("null risks_or_unknowns: errors = %v", v.Errors)
	}

	c[FieldRisksOrUnknowns] = "none"
	if got := errorsFor(Validate(c), FieldRisksOrUnknowns); len(got) != 1 {
		t.Errorf("string risks_or_unknowns errors = %v, want 1", got)
	}
}

func TestValidate_Timestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    any
		wantFail bool
	}{
		{"2026-10-19T08:30:00Z", false},
		{"2026-10-19T08:30:00.123456+00:00", false},
		{"2026-10-19T08:30:00.123456789Z", false},
		{"2026-10-19T08:30:00", false},
		{"2026-10-19 08:30:00", false},
		{"2026-10-19T08:30", false},
		{"2026-10-19", false},
		{"2026-10-19T08:30:00+0530", false},
		{"2026-10-19T08:30:00.5-0700", false},
		{"2026-10-19T08:30:00+05", false},
		{"2026-10-19T08", false},
		{"20261019", false},
		{"20261019T083000Z", false},
		{"2026-10-19T08:30:00+5", true},
		{"2026-10-19T25:00:00", true},
		{"19/10/2026", true},
		{"yesterday", true},
		{"", true},
		{1760862600, true},
	}

	for _, tt := range tests {
		c := validCandidate()
		c[FieldTimestamp] = tt.value

		v := Validate(c)
		got := errorsFor(v, FieldTimestamp)
		if tt.wantFail && len(got) != 1 {
			t.Errorf("timestamp %v: errors = %v, want 1", tt.value, got)
		}
		if !tt.wantFail && len(got) != 0 {
			t.Errorf("timestamp %v: errors = %v, want none", tt.value, got)
		}
	}
}

func TestValidate_NonObjectCandidates(t *testing.T) {
	t.Parallel()

	for _, c := range []any{nil, "not json", 42, []any{"a"}} {
		v := Validate(c)
		if !v.HardFail {
			t.Errorf("Validate(%v) HardFail = false", c)
		}
		if len(v.Errors) != 1 {
			t.Errorf("Validate(%v) errors = %v, want 1", c, v.Errors)
		}
	}
}

func TestValidate_TypedOutput(t *testing.T) {
	t.Parallel()

	out := &Output{
		IncidentID:      "INC-2",
		IncidentSummary: "summary",
		Description:     "desc",
		PrimarySignals:  []string{"sig"},
		TriageOutcome:   OutcomeActionRequired,
		Severity:        Sev1,
		Urgency:         UrgencyCritical,
		Timestamp:       "2026-10-19T08:30:00Z",
	}
	if v := Validate(out); v.HardFail {
		t.Errorf("typed output: errors = %v", v.Errors)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	c := validCandidate()
	delete(c, FieldRisksOrUnknowns)
	c["confidence"] = 0.9

	out, err := Decode(c)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.IncidentID != "INC-1" {
		t.Errorf("IncidentID = %q, want INC-1", out.IncidentID)
	}
	if out.TriageOutcome != OutcomeActionRequired {
		t.Errorf("TriageOutcome = %q, want %q", out.TriageOutcome, OutcomeActionRequired)
	}
	if out.RisksOrUnknowns == nil || len(out.RisksOrUnknowns) != 0 {
		t.Errorf("RisksOrUnknowns = %#v, want empty non-nil slice", out.RisksOrUnknowns)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "confidence") {
		t.Errorf("unknown field leaked into output: %s", raw)
	}
	if !strings.Contains(string(raw), `"risks_or_unknowns":[]`) {
		t.Errorf("risks_or_unknowns not rendered as []: %s", raw)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	ts, err := ParseTimestamp("2026-10-19T08:30:00.5+02:00")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.UTC().Hour() != 6 {
		t.Errorf("UTC hour = %d, want 6", ts.UTC().Hour())
	}

	ts, err = ParseTimestamp("2026-10-19T08:30:00+0530")
	if err != nil {
		t.Fatalf("ParseTimestamp basic offset: %v", err)
	}
	if got := ts.UTC().Format("15:04"); got != "03:00" {
		t.Errorf("UTC time = %s, want 03:00", got)
	}
	if _, err := ParseTimestamp("not a time"); err == nil {
		t.Error("expected error for garbage input")
	}
}
