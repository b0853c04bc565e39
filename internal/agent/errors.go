package agent

import "errors"

// Pipeline failure kinds. Callers match them with errors.Is; gateway errors
// wrap the provider's cause.
var (
	// ErrEmptyInput means the incident text was empty or whitespace only.
	ErrEmptyInput = errors.New("empty input")

	// ErrPlanTooLong means the plan exceeded MaxPlanSteps.
	ErrPlanTooLong = errors.New("plan too long")

	// ErrPrompt means the system prompt could not be loaded.
	ErrPrompt = errors.New("system prompt unavailable")

	// ErrGateway means the model provider call failed.
	ErrGateway = errors.New("model gateway error")

	// ErrMalformedOutput means the model reply was not a JSON object.
	ErrMalformedOutput = errors.New("model output is not valid JSON")
)
