// Package agent runs the incident triage pipeline: it checks the input,
// assembles the prompt, calls the model Gateway once and stamps the parsed
// reply. Schema checks on the reply live in package incident.
package agent
