package planner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/opal-lang/rsx/core/invariant"
	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/internal/ctxlog"
	"github.com/opal-lang/rsx/runtime/executor"
	"github.com/opal-lang/rsx/runtime/host"
)

// Runner executes a generated program and returns its console lines.
// *executor.Executor is the production implementation.
type Runner interface {
	Execute(ctx context.Context, commands []string, fb host.Feedback) ([]string, error)
}

// Result is the outcome of a run.
type Result struct {
	// Results maps destination and output names to paths or values.
	Results map[string]string
	Console []string
	Plan    *Plan
	// ExitCode is the interpreter's non-zero exit status, or 0.
	ExitCode int
}

// Run builds the program for alg, executes it with runner and collects
// plots, console output and output values.
//
// A non-zero interpreter exit is reported to the feedback sink and the
// run still collects whatever results exist. Failing to start the
// interpreter or a cancelled ctx aborts the run.
func Run(ctx context.Context, alg *model.Algorithm, inputs Inputs, env *Env, runner Runner) (*Result, error) {
	invariant.NotNil(alg, "algorithm")
	invariant.NotNil(env, "env")
	invariant.NotNil(runner, "runner")

	if ok, msg := alg.CanExecute(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExecutable, msg)
	}
	if env.CheckEnvironment != nil {
		if err := env.CheckEnvironment(); err != nil {
			return nil, err
		}
	}

	plan, err := Build(ctx, alg, inputs, env)
	if err != nil {
		return nil, err
	}

	fb := env.Feedback
	if fb == nil {
		fb = host.NewLogFeedback(ctx)
	}
	fb.PushInfo("R execution commands")
	for _, cmd := range plan.Commands {
		fb.PushCommand(cmd)
	}
	fb.PushInfo("R execution console output")

	res := &Result{Results: maps.Clone(plan.Results), Plan: plan}
	lines, err := runner.Execute(ctx, plan.Commands, fb)
	res.Console = lines
	if err != nil {
		var procErr *executor.ProcessError
		if !errors.As(err, &procErr) {
			return nil, err
		}
		res.ExitCode = procErr.ExitCode
		fb.ReportError(procErr.Error())
	}
	invariant.Invariant(plan.phase == PhaseExportsBuilt, "execute before build completed, at %s", plan.phase)
	plan.phase = PhaseExecuted

	if err := collect(alg, plan, res); err != nil {
		return nil, err
	}
	plan.phase = PhaseResultsCollected

	ctxlog.FromContext(ctx).Debug("run finished",
		"algorithm", alg.Name, "results", len(res.Results), "exit_code", res.ExitCode)
	return res, nil
}

func collect(alg *model.Algorithm, plan *Plan, res *Result) error {
	if alg.Flags.ShowPlots {
		if html := plan.Destinations[model.RPlots]; html != "" {
			if err := writeHTML(html, PlotsHTML(plan.PlotsFile)); err != nil {
				return err
			}
			res.Results[model.RPlots] = html
		}
	}
	if alg.Flags.ShowConsoleOutput {
		if html := plan.Destinations[model.RConsoleOutput]; html != "" {
			if err := writeHTML(html, ConsoleHTML(res.Console)); err != nil {
				return err
			}
			res.Results[model.RConsoleOutput] = html
		}
	}

	if !plan.SaveOutputValues || plan.OutputValuesFile == "" {
		return nil
	}
	f, err := os.Open(plan.OutputValuesFile)
	if err != nil {
		return fmt.Errorf("opening output values: %w", err)
	}
	defer f.Close()
	values, err := ParseOutputValues(f, alg)
	if err != nil {
		return err
	}
	for name, v := range values {
		if _, ok := res.Results[name]; !ok {
			res.Results[name] = v
		}
	}
	return nil
}
