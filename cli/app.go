package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opal-lang/rsx/internal/ctxlog"
	"github.com/opal-lang/rsx/runtime"
	"github.com/opal-lang/rsx/runtime/config"
	"github.com/opal-lang/rsx/runtime/parser"
	"github.com/opal-lang/rsx/runtime/planner"
	"github.com/opal-lang/rsx/runtime/provider"
	"github.com/opal-lang/rsx/runtime/scrubber"
)

// app carries the global flags and the loaded configuration of one
// invocation.
type app struct {
	configFile string
	envFile    string
	debug      bool
	noColor    bool

	stdin          io.Reader
	stdout, stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
	// scrub sits between the logger and stderr.
	scrub *scrubber.Scrubber
}

func (a *app) init(cmd *cobra.Command) error {
	a.scrub = scrubber.New(a.stderr)
	a.logger = ctxlog.New(a.scrub, a.debug)
	cfg, err := config.Load(config.LoadOptions{ConfigFile: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return &CLIError{
			Type:    "config",
			Message: "could not load configuration",
			Details: err.Error(),
			Hint:    "check --config, --env-file and the RSX_* environment variables",
		}
	}
	a.cfg = cfg
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(ctxlog.WithLogger(ctx, a.logger))
	return nil
}

// flush writes the log output held back by the scrubber.
func (a *app) flush() {
	if a.scrub != nil {
		_ = a.scrub.Flush()
	}
}

// registerSecrets makes the scrubber redact credentials found in any
// string input.
func (a *app) registerSecrets(inputs planner.Inputs) {
	var walk func(v any)
	walk = func(v any) {
		switch v := v.(type) {
		case string:
			a.scrub.RegisterSource(v)
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	for _, v := range inputs {
		walk(v)
	}
}

func (a *app) useColor(w io.Writer) bool {
	return ShouldUseColor(a.noColor, w)
}

// parse reads the script named by args, or stdin.
func (a *app) parse(args []string) (*parser.ParseTree, error) {
	r, path, err := a.getInputReader(args)
	if err != nil {
		return nil, err
	}
	if r != nil {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading script from stdin: %w", err)
		}
		return parser.Parse(data), nil
	}
	tree, err := parser.ParseFile(path)
	if err != nil {
		return nil, &CLIError{Type: "parse", Message: fmt.Sprintf("could not read script %s", path), Details: err.Error()}
	}
	return tree, nil
}

// checkScript prints every diagnostic and fails when there is one.
func checkScript(w io.Writer, tree *parser.ParseTree, useColor bool) error {
	alg := tree.Algorithm
	diags := tree.Diagnostics()
	if len(diags) == 0 {
		fmt.Fprintf(w, "%s %s (%s, %s)\n", Colorize("ok", ColorGreen, useColor), alg.Name,
			plural(len(alg.Parameters), "parameter"), plural(len(alg.Outputs), "output"))
		return nil
	}
	for _, d := range diags {
		fmt.Fprintln(w, Colorize(d.Detail(), ColorYellow, useColor))
	}
	return &CLIError{
		Type:    "parse",
		Message: fmt.Sprintf("%s cannot be executed: %s", alg.Name, plural(len(diags), "problem")),
	}
}

// prepare parses the script, checks it can run and assembles its inputs.
func (a *app) prepare(args []string, flags inputFlags) (*parser.ParseTree, planner.Inputs, error) {
	tree, err := a.parse(args)
	if err != nil {
		return nil, nil, err
	}
	if ok, msg := tree.Algorithm.CanExecute(); !ok {
		return nil, nil, fmt.Errorf("%w: %s", planner.ErrNotExecutable, msg)
	}
	inputs, err := readInputs(tree.Algorithm, flags.params, flags.inputsFile, a.stdin)
	if err != nil {
		return nil, nil, err
	}
	a.registerSecrets(inputs)
	return tree, inputs, nil
}

func (a *app) render(ctx context.Context, args []string, flags inputFlags) error {
	tree, inputs, err := a.prepare(args, flags)
	if err != nil {
		return err
	}
	exec, err := runtime.ExecuteAlgorithm(ctx, tree.Algorithm, runtime.ExecutionOptions{
		Inputs:  inputs,
		Config:  a.cfg,
		DryRun:  true,
		TempDir: flags.tempDir,
	})
	if err != nil {
		return err
	}
	for _, c := range exec.Plan.Commands {
		fmt.Fprintln(a.stdout, c)
	}
	return nil
}

func (a *app) execute(ctx context.Context, args []string, flags inputFlags, keepScript bool) error {
	tree, inputs, err := a.prepare(args, flags)
	if err != nil {
		return err
	}
	exec, err := runtime.ExecuteAlgorithm(ctx, tree.Algorithm, runtime.ExecutionOptions{
		Inputs:     inputs,
		Config:     a.cfg,
		TempDir:    flags.tempDir,
		KeepScript: keepScript,
	})
	if errors.Is(err, runtime.ErrRNotAvailable) {
		return &CLIError{
			Type:    "execution",
			Message: "R is not available",
			Details: err.Error(),
			Hint:    "set r.folder in the configuration or RSX_R_FOLDER",
		}
	}
	if err != nil {
		return err
	}
	res := exec.Result
	DisplayResults(a.stdout, res.Results, a.useColor(a.stdout))
	if res.ExitCode != 0 {
		return &CLIError{Type: "execution", Message: fmt.Sprintf("R exited with status %d", res.ExitCode)}
	}
	return nil
}

func (a *app) list(ctx context.Context, watch bool) error {
	p, err := provider.New(a.cfg.Scripts.Folders, 0)
	if err != nil {
		return err
	}
	if err := p.Load(ctx); err != nil {
		return err
	}
	useColor := a.useColor(a.stdout)
	DisplayAlgorithms(a.stdout, p.Algorithms(), useColor)
	if !watch {
		return nil
	}
	a.logger.Info("watching script folders", "folders", a.cfg.Scripts.Folders)
	err = p.Watch(ctx, func() {
		fmt.Fprintln(a.stdout)
		DisplayAlgorithms(a.stdout, p.Algorithms(), useColor)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
