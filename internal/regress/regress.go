// Package regress replays golden incident reports through the agent pipeline
// and checks every output against the incident schema.
package regress

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/linnemanlabs/triage-agent/internal/agent"
	"github.com/linnemanlabs/triage-agent/internal/incident"
)

// ErrNoInputs is returned when the golden directory holds no input files.
var ErrNoInputs = errors.New("no golden inputs found")

// Extensions are the file suffixes treated as golden inputs.
var Extensions = []string{".txt", ".md"}

// Runner runs the agent pipeline for one input.
type Runner interface {
	Run(ctx context.Context, runID, input string) (*agent.Result, error)
}

// Options tunes a regression run.
type Options struct {
	// KeepGoing runs every input instead of stopping at the first failure.
	KeepGoing bool
	// Progress, if set, is called after each case.
	Progress func(c *Case)
}

// Case is the outcome of one golden input.
type Case struct {
	Name     string
	Passed   bool
	Err      error    // pipeline failure
	Errors   []string // schema violations
	Output   map[string]any
	Duration time.Duration
}

// Report collects the cases run, in file name order.
type Report struct {
	Cases []*Case
	Total int // inputs found, including any skipped after a failure
}

// Passed reports whether every input ran and passed.
func (r *Report) Passed() bool {
	if len(r.Cases) != r.Total {
		return false
	}
	for _, c := range r.Cases {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failing cases.
func (r *Report) Failed() []*Case {
	var out []*Case
	for _, c := range r.Cases {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Inputs lists the golden input files in dir, sorted by name.
func Inputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read golden inputs: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, dir)
	}
	slices.Sort(files)
	return files, nil
}

// Run replays every golden input in dir. It stops at the first failing case
// unless opts.KeepGoing is set. The returned error covers setup problems only;
// case failures are reported through Report.
func Run(ctx context.Context, runner Runner, dir string, opts Options) (*Report, error) {
	files, err := Inputs(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(files)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c := runCase(ctx, runner, path)
		report.Cases = append(report.Cases, c)
		if opts.Progress != nil {
			opts.Progress(c)
		}
		if !c.Passed && !opts.KeepGoing {
			break
		}
	}
	return report, nil
}

func runCase(ctx context.Context, runner Runner, path string) *Case {
	c := &Case{Name: filepath.Base(path)}
	start := time.Now()
	defer func() { c.Duration = time.Since(start) }()

	input, err := os.ReadFile(path)
	if err != nil {
		c.Err = fmt.Errorf("read input: %w", err)
		return c
	}

	res, err := runner.Run(ctx, "", string(input))
	if err != nil {
		c.Err = err
		return c
	}
	c.Output = res.Output

	verdict := incident.Validate(res.Output)
	c.Errors = verdict.Errors
	c.Passed = !verdict.HardFail
	return c
}
