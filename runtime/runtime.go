// Package runtime wires configuration, the local host and the R executor
// together so a script can be rendered or run in one call.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/runtime/codegen"
	"github.com/opal-lang/rsx/runtime/config"
	"github.com/opal-lang/rsx/runtime/executor"
	"github.com/opal-lang/rsx/runtime/host"
	"github.com/opal-lang/rsx/runtime/parser"
	"github.com/opal-lang/rsx/runtime/planner"
)

// ErrRNotAvailable is returned when the configured interpreter cannot be
// run or is too old.
var ErrRNotAvailable = errors.New("R is not available")

// ExecutionOptions configures how a script is executed
type ExecutionOptions struct {
	Inputs planner.Inputs
	// Config locates R and the package library. Nil uses config.Default().
	Config *config.Config
	// DryRun builds the program without running R.
	DryRun     bool
	TempDir    string
	KeepScript bool
	// Feedback receives progress and console lines. Nil logs through the
	// context logger.
	Feedback host.Feedback
}

// Execution is the outcome of one call.
type Execution struct {
	Plan *planner.Plan
	// Result is nil for dry runs.
	Result *planner.Result
}

// Execute parses a script from source and executes it
func Execute(ctx context.Context, source io.Reader, opts ExecutionOptions) (*Execution, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ExecuteAlgorithm(ctx, parser.Parse(data).Algorithm, opts)
}

// ExecuteAlgorithm renders alg with opts.Inputs and, unless DryRun is set,
// runs it with the configured Rscript.
func ExecuteAlgorithm(ctx context.Context, alg *model.Algorithm, opts ExecutionOptions) (*Execution, error) {
	if ok, msg := alg.CanExecute(); !ok {
		return nil, fmt.Errorf("%w: %s", planner.ErrNotExecutable, msg)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	env, err := NewEnv(ctx, cfg, opts.TempDir)
	if err != nil {
		return nil, err
	}
	if opts.Feedback != nil {
		env.Feedback = opts.Feedback
	}

	if opts.DryRun {
		plan, err := planner.Build(ctx, alg, opts.Inputs, env)
		if err != nil {
			return nil, err
		}
		return &Execution{Plan: plan}, nil
	}

	if err := cfg.CheckInstalled(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRNotAvailable, err)
	}
	runner := &executor.Executor{
		Interpreter: cfg.Executable(true),
		TempDir:     opts.TempDir,
		KeepScript:  opts.KeepScript,
	}
	res, err := planner.Run(ctx, alg, opts.Inputs, env, runner)
	if err != nil {
		return nil, err
	}
	return &Execution{Plan: res.Plan, Result: res}, nil
}

// NewEnv builds the planner environment for cfg: local sources and
// values, HCL expressions, the configured repository and library.
func NewEnv(ctx context.Context, cfg *config.Config, tempDir string) (*planner.Env, error) {
	lib, err := cfg.LibraryPath()
	if err != nil {
		return nil, err
	}
	local := &host.Local{}
	return &planner.Env{
		Resolver:         local,
		Coercer:          local,
		Evaluator:        &host.HCLEvaluator{},
		Feedback:         host.NewLogFeedback(ctx),
		Header:           codegen.HeaderOptions{Repo: cfg.Packages.Repo, LibraryPath: lib},
		TempDir:          tempDir,
		CheckEnvironment: cfg.CheckEnvironment,
	}, nil
}
