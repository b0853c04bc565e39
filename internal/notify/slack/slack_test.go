package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triage-agent/internal/incident"
)

func actionRequired() *incident.Output {
	return &incident.Output{
		IncidentID:      "INC-2041",
		IncidentSummary: "Checkout API returning 502s",
		Description:     "Error rate on checkout rose to 38% after the 14:05 deploy.",
		PrimarySignals:  []string{"502 rate 38%", "deploy at 14:05"},
		RisksOrUnknowns: []string{"payment retries may double-charge"},
		TriageOutcome:   incident.OutcomeActionRequired,
		Severity:        incident.Sev1,
		Urgency:         incident.UrgencyCritical,
		Timestamp:       "2026-10-19T14:23:00.123456Z",
	}
}

func TestNotify_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	if err := n.Notify(context.Background(), "01JN123", actionRequired()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, description, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "Checkout API returning 502s") {
		t.Errorf("header text = %q, want to contain summary", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Errorf("header should contain red circle for Sev1")
	}

	desc := blocks[4].(map[string]any)["text"].(map[string]any)["text"].(string)
	for _, want := range []string{"• 502 rate 38%", "• payment retries may double-charge"} {
		if !strings.Contains(desc, want) {
			t.Errorf("description block missing %q:\n%s", want, desc)
		}
	}

	ctxBlock := blocks[6].(map[string]any)
	elems := ctxBlock["elements"].([]any)
	ctxText := elems[0].(map[string]any)["text"].(string)
	if !strings.Contains(ctxText, "01JN123") || !strings.Contains(ctxText, "2026-10-19 14:23 UTC") {
		t.Errorf("context text = %q", ctxText)
	}
}

func TestNotify_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.Notify(context.Background(), "r", &incident.Output{}); err != nil {
		t.Fatalf("Notify with empty URL should be no-op, got: %v", err)
	}
}

func TestNotify_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Notify(context.Background(), "01JN789", actionRequired())
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}

func TestBuildMessage_TruncatesLongDescription(t *testing.T) {
	t.Parallel()

	out := actionRequired()
	out.Description = strings.Repeat("x", 4000)

	data, err := json.Marshal(buildMessage("r", out))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	blocks := decoded["blocks"].([]any)
	text := blocks[4].(map[string]any)["text"].(map[string]any)["text"].(string)
	if len(text) > maxDescriptionLen {
		t.Errorf("description length = %d, expected <= %d", len(text), maxDescriptionLen)
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated description to end with ...")
	}
}

func TestSeverityEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity incident.Severity
		want     string
	}{
		{incident.Sev0, "\U0001f534"},
		{incident.Sev1, "\U0001f534"},
		{incident.Sev2, "\U0001f7e1"},
		{incident.Sev3, "\U0001f7e2"},
		{incident.Sev4, "\U0001f7e2"},
		{"", "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			t.Parallel()
			if got := severityEmoji(tt.severity); got != tt.want {
				t.Errorf("severityEmoji(%q) = %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"ascii", "abcdefghij", 8, "abcde..."},
		{"rune boundary", "aa\u00e9\u00e9\u00e9\u00e9", 7, "aa\u00e9..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := truncate(tt.in, tt.limit)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("INC-1", "CPU is very high on node-1.", "Sev0", "signal")
	f.Add("", "", "", "")
	f.Add("<@U123> mention", "*bold* _italic_ ~strike~", "Sev2", "```code```")
	f.Add("id\x00\x01\x02", "summary\nline", "sev\ttab", "s\x00ignal")
	f.Add(strings.Repeat("A", 5000), strings.Repeat("x", 10000), "Sev4", strings.Repeat("\u00e9", 3000))

	f.Fuzz(func(t *testing.T, id, summary, severity, signal string) {
		out := &incident.Output{
			IncidentID:      id,
			IncidentSummary: summary,
			Description:     summary,
			PrimarySignals:  []string{signal},
			TriageOutcome:   incident.OutcomeActionRequired,
			Severity:        incident.Severity(severity),
			Urgency:         incident.UrgencyHigh,
			Timestamp:       "2026-01-01T00:00:00Z",
		}

		// Must not panic
		msg := buildMessage("fuzz-run", out)

		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 7 {
			t.Fatalf("blocks count = %d, want 7", len(blocks))
		}
	})
}
