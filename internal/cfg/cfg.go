package cfg

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Model providers selectable with -provider.
const (
	ProviderAzureOpenAI = "azure-openai"
	ProviderOpenAI      = "openai"
	ProviderClaude      = "claude"
	ProviderGemini      = "gemini"
)

// Providers lists the accepted -provider values.
var Providers = []string{ProviderAzureOpenAI, ProviderOpenAI, ProviderClaude, ProviderGemini}

// customHandlerPortEnv is set by the Functions host for custom handlers.
const customHandlerPortEnv = "FUNCTIONS_CUSTOMHANDLER_PORT"

// AppSettings maps flags to the unprefixed Function App settings used by
// existing Azure OpenAI deployments.
var AppSettings = map[string]string{
	"azure-openai-endpoint":    "AZURE_OPENAI_ENDPOINT",
	"azure-openai-key":         "AZURE_OPENAI_API_KEY",
	"azure-openai-api-version": "AZURE_OPENAI_API_VERSION",
	"azure-openai-deployment":  "AZURE_OPENAI_DEPLOYMENT",
}

// FillFromAppSettings sets each AppSettings flag from its unprefixed variable
// when neither the command line nor the prefixed variable provided a value.
// lookup is usually os.LookupEnv.
func FillFromAppSettings(fs *flag.FlagSet, prefix string, lookup func(string) (string, bool)) error {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	names := make([]string, 0, len(AppSettings))
	for name := range AppSettings {
		names = append(names, name)
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		if set[name] || fs.Lookup(name) == nil {
			continue
		}
		if v, ok := lookup(prefix + envName(name)); ok && v != "" {
			continue
		}
		v, ok := lookup(AppSettings[name])
		if !ok || v == "" {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", AppSettings[name], err))
		}
	}
	return errors.Join(errs...)
}

func envName(flagName string) string {
	return strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	Provider            string
	ModelTimeoutSeconds int
	PromptPath          string

	AzureOpenAIEndpoint   string
	AzureOpenAIKey        string
	AzureOpenAIAPIVersion string
	AzureOpenAIDeployment string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	ClaudeAPIKey string
	ClaudeModel  string

	GeminiAPIKey string
	GeminiModel  string

	FunctionKey     string
	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 5, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 30, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", defaultAPIPort(), "API listen TCP port (1..65535), defaults to "+customHandlerPortEnv+" when set")

	fs.StringVar(&c.Provider, "provider", ProviderAzureOpenAI, "model provider: "+strings.Join(Providers, "|"))
	fs.IntVar(&c.ModelTimeoutSeconds, "model-timeout-seconds", 120, "timeout for a single model call (1..600)")
	fs.StringVar(&c.PromptPath, "prompt-path", "", "system prompt file (empty = built-in incident_triage_system_v1)")

	fs.StringVar(&c.AzureOpenAIEndpoint, "azure-openai-endpoint", "", "Azure OpenAI resource endpoint")
	fs.StringVar(&c.AzureOpenAIKey, "azure-openai-key", "", "Azure OpenAI API key")
	fs.StringVar(&c.AzureOpenAIAPIVersion, "azure-openai-api-version", "2024-10-21", "Azure OpenAI API version")
	fs.StringVar(&c.AzureOpenAIDeployment, "azure-openai-deployment", "", "Azure OpenAI chat deployment name")

	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "OpenAI API key")
	fs.StringVar(&c.OpenAIModel, "openai-model", "gpt-4o", "OpenAI chat model")
	fs.StringVar(&c.OpenAIBaseURL, "openai-base-url", "", "OpenAI-compatible base URL (empty = api.openai.com)")

	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")

	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "Gemini API key")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-2.5-flash", "Gemini model to use")

	fs.StringVar(&c.FunctionKey, "function-key", "", "function key required on agent_runner requests (empty = enforced by the host)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for action_required notifications")
}

// ModelTimeout returns the per-call model timeout.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.ModelTimeoutSeconds <= 0 || c.ModelTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid MODEL_TIMEOUT_SECONDS %d (must be 1..600)", c.ModelTimeoutSeconds))
	}

	// Provider-specific credentials
	switch c.Provider {
	case ProviderAzureOpenAI:
		errs = appendRequired(errs, map[string]string{
			"AZURE_OPENAI_ENDPOINT":   c.AzureOpenAIEndpoint,
			"AZURE_OPENAI_KEY":        c.AzureOpenAIKey,
			"AZURE_OPENAI_DEPLOYMENT": c.AzureOpenAIDeployment,
		})
	case ProviderOpenAI:
		errs = appendRequired(errs, map[string]string{
			"OPENAI_API_KEY": c.OpenAIAPIKey,
			"OPENAI_MODEL":   c.OpenAIModel,
		})
	case ProviderClaude:
		errs = appendRequired(errs, map[string]string{
			"CLAUDE_API_KEY": c.ClaudeAPIKey,
			"CLAUDE_MODEL":   c.ClaudeModel,
		})
	case ProviderGemini:
		errs = appendRequired(errs, map[string]string{
			"GEMINI_API_KEY": c.GeminiAPIKey,
			"GEMINI_MODEL":   c.GeminiModel,
		})
	default:
		errs = append(errs, fmt.Errorf("invalid PROVIDER %q (must be one of %s)", c.Provider, strings.Join(Providers, ", ")))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// appendRequired adds an error per empty value, in name order so messages are
// stable.
func appendRequired(errs []error, fields map[string]string) []error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if fields[name] == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	return errs
}

func defaultAPIPort() int {
	if p, err := strconv.Atoi(os.Getenv(customHandlerPortEnv)); err == nil && p > 0 {
		return p
	}
	return 8080
}
