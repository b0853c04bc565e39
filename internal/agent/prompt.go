package agent

import (
	"context"
	_ "embed"
	"fmt"
	"os"
)

//go:embed prompts/incident_triage_system_v1.txt
var defaultSystemPrompt string

// PromptSource supplies the system prompt template.
type PromptSource interface {
	SystemPrompt(ctx context.Context) (string, error)
}

// FilePrompt reads the template from Path on every call so edits are picked
// up without a restart. An empty Path serves the built-in template.
type FilePrompt struct {
	Path string
}

// SystemPrompt implements PromptSource.
func (p FilePrompt) SystemPrompt(_ context.Context) (string, error) {
	if p.Path == "" {
		return defaultSystemPrompt, nil
	}
	b, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", p.Path, err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("prompt %s is empty", p.Path)
	}
	return string(b), nil
}
