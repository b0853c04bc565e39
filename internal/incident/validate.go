package incident

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Verdict is the result of checking a candidate report.
type Verdict struct {
	HardFail bool     `json:"hard_fail"`
	Errors   []string `json:"errors"`
}

var validate = validator.New()

var (
	outcomeTag  = oneOf(Outcomes)
	severityTag = oneOf(Severities)
	urgencyTag  = oneOf(Urgencies)
)

// timestampLayouts are the ISO-8601 shapes accepted for the timestamp field.
// time.Parse accepts fractional seconds after the seconds field even when the
// layout omits them.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02",
	"20060102T150405Z0700",
	"20060102T150405",
	"20060102",
}

// Validate checks candidate against the report schema. All rules are
// evaluated so the verdict lists every problem at once. It never panics.
func Validate(candidate any) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v.Errors = append(v.Errors, fmt.Sprintf("validation error: %v", r))
			v.HardFail = true
		}
	}()

	fields, err := asObject(candidate)
	if err != nil {
		return Verdict{HardFail: true, Errors: []string{"validation error: " + err.Error()}}
	}

	c := &checker{fields: fields}
	c.requireString(FieldIncidentID, nonEmpty)
	c.requireString(FieldIncidentSummary, nonBlank)
	c.requireString(FieldDescription, nonEmpty)
	outcome := c.requireEnum(FieldTriageOutcome, outcomeTag)
	c.primarySignals(TriageOutcome(outcome))
	c.requireEnum(FieldSeverity, severityTag)
	c.requireEnum(FieldUrgency, urgencyTag)
	c.timestamp()
	c.risksOrUnknowns()

	return Verdict{HardFail: len(c.errs) > 0, Errors: c.errs}
}

// Decode converts a candidate that passed Validate into an Output. Fields the
// schema does not know are dropped.
func Decode(candidate any) (*Output, error) {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	if out.RisksOrUnknowns == nil {
		out.RisksOrUnknowns = []string{}
	}
	if out.PrimarySignals == nil {
		out.PrimarySignals = []string{}
	}
	return &out, nil
}

type stringRule int

const (
	nonEmpty stringRule = iota
	nonBlank
)

type checker struct {
	fields map[string]any
	errs   []string
}

func (c *checker) fail(field, format string, args ...any) {
	c.errs = append(c.errs, field+": "+fmt.Sprintf(format, args...))
}

// lookup returns the value for field, recording a missing-field error when absent.
func (c *checker) lookup(field string) (any, bool) {
	v, ok := c.fields[field]
	if !ok {
		c.fail(field, "field required")
	}
	return v, ok
}

func (c *checker) requireString(field string, rule stringRule) {
	v, ok := c.lookup(field)
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		c.fail(field, "must be a string")
		return
	}
	switch rule {
	case nonEmpty:
		if s == "" {
			c.fail(field, "must not be empty")
		}
	case nonBlank:
		if strings.TrimSpace(s) == "" {
			c.fail(field, "must not be blank")
		}
	}
}

// requireEnum returns the value when it is a valid member, "" otherwise.
func (c *checker) requireEnum(field, tag string) string {
	v, ok := c.lookup(field)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok || validate.Var(s, tag) != nil {
		c.fail(field, "must be one of %s", strings.TrimPrefix(tag, "oneof="))
		return ""
	}
	return s
}

func (c *checker) primarySignals(outcome TriageOutcome) {
	v, ok := c.lookup(FieldPrimarySignals)
	if !ok {
		return
	}
	signals, ok := stringList(v)
	if !ok {
		c.fail(FieldPrimarySignals, "must be a list of strings")
		return
	}
	if outcome == OutcomeActionRequired && len(signals) == 0 {
		c.fail(FieldPrimarySignals, "must not be empty when triage_outcome is %s", OutcomeActionRequired)
	}
}

func (c *checker) timestamp() {
	v, ok := c.lookup(FieldTimestamp)
	if !ok {
		return
	}
	s, ok := v.(string)
	if !ok {
		c.fail(FieldTimestamp, "must be a string")
		return
	}
	if _, err := ParseTimestamp(s); err != nil {
		c.fail(FieldTimestamp, "invalid timestamp format - must be ISO 8601")
	}
}

// risks_or_unknowns is optional; null and absent both mean an empty list.
func (c *checker) risksOrUnknowns() {
	v, ok := c.fields[FieldRisksOrUnknowns]
	if !ok || v == nil {
		return
	}
	if _, ok := stringList(v); !ok {
		c.fail(FieldRisksOrUnknowns, "must be a list of strings")
	}
}

// ParseTimestamp parses an ISO-8601 date or datetime.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO 8601 timestamp: %q", s)
}

func asObject(candidate any) (map[string]any, error) {
	switch c := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("expected a JSON object, got null")
	case map[string]any:
		return c, nil
	}
	raw, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, fmt.Errorf("expected a JSON object, got %T", candidate)
	}
	return m, nil
}

func stringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func oneOf[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return "oneof=" + strings.Join(parts, " ")
}
