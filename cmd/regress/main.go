// Regress replays golden incident reports through the triage agent and
// checks every output against the incident schema.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/triage-agent/internal/agent"
	vc "github.com/linnemanlabs/triage-agent/internal/cfg"
	"github.com/linnemanlabs/triage-agent/internal/llm"
	"github.com/linnemanlabs/triage-agent/internal/regress"
)

const appName = "triage-agent-regress"

// runnerFactory builds the pipeline a regression run drives.
type runnerFactory func(ctx context.Context, c *vc.Config, logger log.Logger) (regress.Runner, error)

func main() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "fatal error: load .env:", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newEngine).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newEngine(ctx context.Context, c *vc.Config, logger log.Logger) (regress.Runner, error) {
	gw, model, err := llm.NewGateway(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("model gateway: %w", err)
	}
	logger.Info(ctx, "initialized LLM provider", "provider", c.Provider, "model", model)
	return agent.NewEngine(gw, agent.FilePrompt{Path: c.PromptPath}, logger, agent.Hooks{}), nil
}

func newRootCmd(newRunner runnerFactory) *cobra.Command {
	var (
		appCfg    vc.Config
		logCfg    log.Config
		dir       string
		keepGoing bool
	)

	// reuse the server's flag definitions so both binaries read the same env
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	appCfg.RegisterFlags(fs)
	logCfg.RegisterFlags(fs)

	// env first, cobra parses cmdline flags over it afterwards
	cfg.FillFromEnv(fs, "TRIAGE_AGENT_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := vc.FillFromAppSettings(fs, "TRIAGE_AGENT_", os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, "app settings:", err)
	}

	cmd := &cobra.Command{
		Use:          "regress",
		Short:        "Replay golden incident reports through the triage agent",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := errors.Join(appCfg.Validate(), logCfg.Validate()); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			lg, err := log.New(logCfg.ToOptions(appName))
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer func() { _ = lg.Sync() }()

			runner, err := newRunner(ctx, &appCfg, lg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report, err := regress.Run(ctx, runner, dir, regress.Options{
				KeepGoing: keepGoing,
				Progress:  func(c *regress.Case) { printCase(out, c) },
			})
			if err != nil {
				return err
			}

			if !report.Passed() {
				return fmt.Errorf("%d of %d golden inputs failed", len(report.Failed()), report.Total)
			}
			fmt.Fprintf(out, "all %d regression tests passed\n", report.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "eval/golden_inputs", "directory of golden inputs (*.txt, *.md)")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "run every input instead of stopping at the first failure")
	cmd.Flags().AddGoFlagSet(fs)

	return cmd
}

func printCase(w io.Writer, c *regress.Case) {
	if c.Passed {
		fmt.Fprintf(w, "PASS %s (%.1fs)\n", c.Name, c.Duration.Seconds())
		return
	}
	fmt.Fprintf(w, "FAIL %s (%.1fs)\n", c.Name, c.Duration.Seconds())
	if c.Err != nil {
		fmt.Fprintf(w, "    %v\n", c.Err)
	}
	for _, e := range c.Errors {
		fmt.Fprintf(w, "    %s\n", e)
	}
}
