// Package incident defines the triage report produced for an incident and
// the schema checks a model-generated report must pass before it is returned.
package incident

// TriageOutcome is the disposition assigned to an incident.
type TriageOutcome string

const (
	OutcomeActionRequired     TriageOutcome = "action_required"
	OutcomeNeedsClarification TriageOutcome = "needs_clarification"
	OutcomeMonitorOnly        TriageOutcome = "monitor_only"
	OutcomeFalsePositive      TriageOutcome = "false_positive"
	OutcomeDuplicateOrKnown   TriageOutcome = "duplicate_or_known"
)

// Severity ranks impact, Sev0 being the worst.
type Severity string

const (
	Sev0 Severity = "Sev0"
	Sev1 Severity = "Sev1"
	Sev2 Severity = "Sev2"
	Sev3 Severity = "Sev3"
	Sev4 Severity = "Sev4"
)

// Urgency is how soon someone has to act.
type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

// Outcomes, Severities and Urgencies list the accepted enum values in order.
var (
	Outcomes = []TriageOutcome{
		OutcomeActionRequired,
		OutcomeNeedsClarification,
		OutcomeMonitorOnly,
		OutcomeFalsePositive,
		OutcomeDuplicateOrKnown,
	}
	Severities = []Severity{Sev0, Sev1, Sev2, Sev3, Sev4}
	Urgencies  = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
)

// Field names as they appear on the wire.
const (
	FieldIncidentID      = "incident_id"
	FieldIncidentSummary = "incident_summary"
	FieldDescription     = "description"
	FieldPrimarySignals  = "primary_signals"
	FieldRisksOrUnknowns = "risks_or_unknowns"
	FieldTriageOutcome   = "triage_outcome"
	FieldSeverity        = "severity"
	FieldUrgency         = "urgency"
	FieldTimestamp       = "timestamp"
)

// Output is a validated triage report.
type Output struct {
	IncidentID      string        `json:"incident_id"`
	IncidentSummary string        `json:"incident_summary"`
	Description     string        `json:"description"`
	PrimarySignals  []string      `json:"primary_signals"`
	RisksOrUnknowns []string      `json:"risks_or_unknowns"`
	TriageOutcome   TriageOutcome `json:"triage_outcome"`
	Severity        Severity      `json:"severity"`
	Urgency         Urgency       `json:"urgency"`
	Timestamp       string        `json:"timestamp"`
}
