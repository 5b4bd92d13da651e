// Package planner turns a parsed script plus caller inputs into the full R
// program for one run, executes it and collects the results.
//
// Build walks fixed phases: header, expressions, imports, body, exports.
// Later phases reference variables bound by earlier ones, so the order is
// enforced with invariants. Run adds execution and result collection.
package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/opal-lang/rsx/core/invariant"
	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/internal/ctxlog"
	"github.com/opal-lang/rsx/runtime/codegen"
	"github.com/opal-lang/rsx/runtime/host"
	"github.com/opal-lang/rsx/runtime/params"
)

// Phase is a step of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHeaderBuilt
	PhaseExpressionsBuilt
	PhaseImportsBuilt
	PhaseBodyAppended
	PhaseExportsBuilt
	PhaseExecuted
	PhaseResultsCollected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHeaderBuilt:
		return "header-built"
	case PhaseExpressionsBuilt:
		return "expressions-built"
	case PhaseImportsBuilt:
		return "imports-built"
	case PhaseBodyAppended:
		return "body-appended"
	case PhaseExportsBuilt:
		return "exports-built"
	case PhaseExecuted:
		return "executed"
	case PhaseResultsCollected:
		return "results-collected"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// TemporaryOutput asks for a destination path inside the run directory.
const TemporaryOutput = "TEMPORARY_OUTPUT"

// Inputs maps parameter names to raw caller values.
type Inputs map[string]any

// Env holds the host collaborators of a run.
type Env struct {
	Resolver  host.SourceResolver
	Coercer   host.ValueCoercer
	Evaluator host.ExpressionEvaluator
	Feedback  host.Feedback
	Header    codegen.HeaderOptions

	// TempDir receives temporary destinations and the output values file.
	// Empty creates a fresh directory per run.
	TempDir string
	// CheckEnvironment is consulted by Run before building. Optional.
	CheckEnvironment func() error
}

// Sections are the generated commands grouped by phase.
type Sections struct {
	Header      []string
	Expressions []string
	Imports     []string
	Body        []string
	Exports     []string
}

// Plan is the generated program of one run and the bookkeeping needed to
// collect its results.
type Plan struct {
	Commands []string
	Sections Sections

	// Results holds destination paths known before execution.
	Results map[string]string
	// Destinations are the resolved paths of every destination parameter.
	Destinations map[string]string

	PlotsFile        string
	OutputValuesFile string
	SaveOutputValues bool
	RunDir           string

	phase Phase
}

// Phase reports the last completed phase.
func (p *Plan) Phase() Phase { return p.phase }

type builder struct {
	alg    *model.Algorithm
	inputs Inputs
	env    *Env
	state  *codegen.State
	plan   *Plan

	headerPackages []string
}

func (b *builder) advance(from, to Phase) {
	invariant.Invariant(b.plan.phase == from, "phase %s must follow %s, at %s", to, from, b.plan.phase)
	b.plan.phase = to
}

// Build generates the R program for alg with the given inputs.
func Build(ctx context.Context, alg *model.Algorithm, inputs Inputs, env *Env) (*Plan, error) {
	invariant.NotNil(alg, "algorithm")
	invariant.NotNil(env, "env")
	invariant.NotNil(env.Resolver, "resolver")
	invariant.NotNil(env.Coercer, "coercer")

	b := &builder{
		alg:    alg,
		inputs: inputs,
		env:    env,
		state:  codegen.NewState(alg),
		plan: &Plan{
			Results:          make(map[string]string),
			Destinations:     make(map[string]string),
			SaveOutputValues: alg.Flags.SaveOutputValues,
		},
	}
	if err := b.resolveDestinations(ctx); err != nil {
		return nil, err
	}

	b.header()
	if err := b.expressions(ctx); err != nil {
		return nil, err
	}
	if err := b.imports(ctx); err != nil {
		return nil, err
	}
	b.body()
	if err := b.exports(); err != nil {
		return nil, err
	}
	b.finish()

	ctxlog.FromContext(ctx).Debug("built R program",
		"algorithm", alg.Name, "commands", len(b.plan.Commands), "run_dir", b.plan.RunDir)
	return b.plan, nil
}

func (b *builder) header() {
	b.advance(PhaseIdle, PhaseHeaderBuilt)
	b.plan.Sections.Header = b.state.HeaderCommands(b.alg.Script, b.env.Header)

	b.headerPackages = b.state.NecessaryPackages()
	for _, p := range codegen.RequiredPackages(b.alg.Script) {
		b.headerPackages = append(b.headerPackages, p.Name)
	}
}

func (b *builder) expressions(ctx context.Context) error {
	b.advance(PhaseHeaderBuilt, PhaseExpressionsBuilt)
	if len(b.alg.Expressions) == 0 {
		return nil
	}
	invariant.NotNil(b.env.Evaluator, "evaluator")
	logger := ctxlog.FromContext(ctx)

	for _, line := range b.alg.Expressions {
		p, err := params.CreateParameter(line)
		if err != nil {
			logger.Debug("skipping expression directive", "line", line, "error", err)
			continue
		}
		if _, ok := p.Kind.(model.Expression); !ok {
			continue
		}
		expr, _ := p.Default.(string)

		value, err := b.env.Evaluator.Evaluate(ctx, expr)
		if err != nil {
			return expressionFailure(p.Name, expr, err)
		}
		cmd, err := b.state.SetValue(p.Name, value)
		if err != nil {
			return &EvaluationError{Parameter: p.Name, Expression: expr, Stage: host.StageEval, Reason: err.Error()}
		}
		b.plan.Sections.Expressions = append(b.plan.Sections.Expressions, cmd)
	}
	return nil
}

func expressionFailure(name, expr string, err error) error {
	evalErr := &EvaluationError{Parameter: name, Expression: expr, Stage: host.StageEval, Reason: err.Error()}
	var exprErr *host.ExpressionError
	if errors.As(err, &exprErr) {
		evalErr.Stage = exprErr.Stage
		evalErr.Reason = exprErr.Err.Error()
	}
	return evalErr
}

func (b *builder) body() {
	b.advance(PhaseImportsBuilt, PhaseBodyAppended)
	b.plan.Sections.Body = slices.Clone(b.alg.Commands)
}

func (b *builder) exports() error {
	b.advance(PhaseBodyAppended, PhaseExportsBuilt)
	var cmds []string

	for _, p := range b.alg.DestinationParameters() {
		dest := b.plan.Destinations[p.Name]
		switch p.Kind.(type) {
		case model.RasterDestination:
			cmds = append(cmds, b.state.WriteRaster(p.Name, dest))
			b.plan.Results[p.Name] = dest
		case model.VectorDestination:
			cmds = append(cmds, b.state.WriteVector(p.Name, dest))
			b.plan.Results[p.Name] = dest
		}
	}

	if b.plan.SaveOutputValues {
		for _, name := range b.alg.ResultNames() {
			if name == model.RConsoleOutput || name == model.RPlots {
				continue
			}
			if _, ok := b.plan.Results[name]; ok {
				continue
			}
			if b.plan.OutputValuesFile == "" {
				file, err := b.tempFile("processing_values*.txt")
				if err != nil {
					return err
				}
				b.plan.OutputValuesFile = file
			}
			cmds = append(cmds, b.state.WriteOutputValue(name, b.plan.OutputValuesFile)...)
		}
	}

	if b.alg.Flags.ShowPlots {
		cmds = append(cmds, b.state.DevOff())
	}
	b.plan.Sections.Exports = cmds
	return nil
}

// finish adds packages that only became necessary while rendering values
// and joins the sections.
func (b *builder) finish() {
	invariant.Invariant(b.plan.phase == PhaseExportsBuilt, "finish before exports, at %s", b.plan.phase)
	s := &b.plan.Sections
	s.Header = append(s.Header, b.state.LatePackages(b.headerPackages)...)

	cmds := make([]string, 0, len(s.Header)+len(s.Expressions)+len(s.Imports)+len(s.Body)+len(s.Exports))
	for _, part := range [][]string{s.Header, s.Expressions, s.Imports, s.Body, s.Exports} {
		cmds = append(cmds, part...)
	}
	b.plan.Commands = cmds
}

// runDir returns the per-run directory, creating it on first use.
func (b *builder) runDir() (string, error) {
	if b.plan.RunDir != "" {
		return b.plan.RunDir, nil
	}
	dir := b.env.TempDir
	if dir == "" {
		d, err := os.MkdirTemp("", "rsx-run-*")
		if err != nil {
			return "", fmt.Errorf("creating run directory: %w", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}
	b.plan.RunDir = dir
	return dir, nil
}

func (b *builder) tempFile(pattern string) (string, error) {
	dir, err := b.runDir()
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("allocating %s: %w", pattern, err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return slashed(name), nil
}
