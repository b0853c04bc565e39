package agent

import "context"

// Gateway is the boundary to a language-model provider. Implementations make
// exactly one provider call per Complete and do not retry.
type Gateway interface {
	Complete(ctx context.Context, req *ModelRequest) (*ModelReply, error)
}

// Role tags a message in the exchange.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModelRequest carries the exchange and generation parameters.
type ModelRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ModelReply is the provider's raw text reply.
type ModelReply struct {
	Text  string
	Model string
	Usage Usage
}

// Usage is the provider-reported token count for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// SplitSystem separates the system prompt from the conversation, for
// providers that take the system prompt out of band. Multiple system messages
// are joined with a blank line.
func SplitSystem(msgs []Message) (system string, rest []Message) {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
