// Triage-agent turns free-text incident reports into validated triage records
// using a language model, served as an Azure Functions custom handler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/health"
	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/httpserver"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/metrics"
	"github.com/linnemanlabs/go-core/opshttp"
	"github.com/linnemanlabs/go-core/otelx"
	"github.com/linnemanlabs/go-core/prof"
	v "github.com/linnemanlabs/go-core/version"

	vc "github.com/linnemanlabs/triage-agent/internal/cfg"
)

const (
	appName   = "triage-agent"
	component = "server"
	envPrefix = "TRIAGE_AGENT_"
)

// configs groups every package's flag-backed settings.
type configs struct {
	app    vc.Config
	http   httpserver.Config
	httpmw httpmw.Config
	log    log.Config
	ops    opshttp.Config
	prof   prof.Config
	trace  otelx.Config
}

func (c *configs) register(fs *flag.FlagSet) {
	c.app.RegisterFlags(fs)
	c.http.RegisterFlags(fs)
	c.httpmw.RegisterFlags(fs)
	c.log.RegisterFlags(fs)
	c.ops.RegisterFlags(fs)
	c.prof.RegisterFlags(fs)
	c.trace.RegisterFlags(fs)
}

func (c *configs) validate() error {
	err := errors.Join(
		c.app.Validate(),
		c.http.Validate(),
		c.httpmw.Validate(),
		c.log.Validate(),
		c.ops.Validate(),
		c.prof.Validate(),
		c.trace.Validate(),
	)
	if err != nil {
		return err
	}
	if c.app.APIPort == c.ops.Port {
		return fmt.Errorf("http and admin ports must differ (both %d)", c.app.APIPort)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.AppName = appName
	v.Component = component
	vi := v.Get()

	// .env is for local runs; real environment variables win
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	var c configs
	c.register(flag.CommandLine)
	showVersion := flag.Bool("V", false, "Print version+build information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf(
			"%s (%s) %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return nil
	}

	// flags set on the command line are left alone
	cfg.FillFromEnv(flag.CommandLine, envPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	// unprefixed Function App settings from existing Azure deployments
	if err := vc.FillFromAppSettings(flag.CommandLine, envPrefix, os.LookupEnv); err != nil {
		return fmt.Errorf("app settings: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	lg, err := log.New(c.log.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	L := lg.With("component", vi.Component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", c.app.APIPort,
		"admin_port", c.ops.Port,
		"provider", c.app.Provider,
		"model_timeout_seconds", c.app.ModelTimeoutSeconds,
		"prompt_path", c.app.PromptPath,
		"function_key_enforced", c.app.FunctionKey != "",
		"slack_enabled", c.app.SlackWebhookURL != "",
		"enable_pprof", c.ops.EnablePprof,
		"enable_pyroscope", c.prof.EnablePyroscope,
		"enable_tracing", c.trace.EnableTracing,
		"otlp_endpoint", c.trace.OTLPEndpoint,
	)

	profOpts := c.prof.ToOptions()
	profOpts.AppName = v.AppName
	profOpts.Tags = map[string]string{
		"app":       v.AppName,
		"component": v.Component,
		"version":   vi.Version,
		"commit":    vi.Commit,
		"build_id":  vi.BuildId,
	}
	stopProf, profErr := prof.Start(ctx, profOpts)
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", c.prof.PyroServer)
	}

	traceOpts := c.trace.ToOptions()
	traceOpts.Service = v.AppName
	traceOpts.Component = v.Component
	traceOpts.Version = v.Version
	shutdownOtelx, err := otelx.Init(ctx, traceOpts)
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	if shutdownOtelx == nil {
		shutdownOtelx = func(context.Context) error { return nil }
	}

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	m.SetProfilingActive(profErr == nil && c.prof.EnablePyroscope)

	svc, err := newService(ctx, L, m.Registry(), &c.app)
	if err != nil {
		return err
	}

	// readiness flips to failing once shutdown starts
	var gate health.ShutdownGate
	readiness := health.All(gate.Probe())
	liveness := health.Fixed(true, "")

	opsOpts := c.ops.ToOptions()
	opsOpts.Metrics = m.Handler()
	opsOpts.Health = liveness
	opsOpts.Readiness = readiness
	opsOpts.UseRecoverMW = true
	opsOpts.OnPanic = m.IncHttpPanic

	opsStop, err := opshttp.Start(ctx, L, opsOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		return err
	}

	r := newRouter(svc, c.app.FunctionKey)
	r.Get("/-/healthy", health.HealthzHandler(liveness))
	r.Get("/-/ready", health.ReadyzHandler(readiness))

	httpOpts, err := c.http.ToOptions()
	if err != nil {
		L.Error(ctx, err, "invalid http config")
		_ = opsStop(context.Background())
		return err
	}

	apiStop, err := httpserver.Start(ctx, fmt.Sprintf(":%d", c.app.APIPort), wrapHandler(r, L, m, &c.httpmw), L, httpOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start agent api http listener")
		_ = opsStop(context.Background())
		return err
	}

	<-ctx.Done()
	L.Info(context.Background(), "shutdown signal received")

	gate.Set("draining")
	drain(L, c.app.DrainSeconds)

	shutdown(L, c.app.ShutdownBudgetSeconds, []stopper{
		{"agent api http server", apiStop},
		{"ops http server", opsStop},
		{"otel", shutdownOtelx},
	})
	if stopProf != nil {
		stopProf()
	}

	L.Info(context.Background(), "shutdown complete")
	return nil
}

// loadDotEnv loads path into the process environment when it exists.
// Variables already set are not overridden.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
