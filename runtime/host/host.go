// Package host defines what a run needs from its embedding application:
// turning caller supplied values into typed values and readable layers,
// evaluating deferred expressions and receiving progress feedback.
//
// Local and HCLEvaluator are the implementations used by the CLI.
package host

import (
	"context"
	"fmt"

	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/core/types"
)

// SourceResolver converts a data source reference into a readable path and
// optional sub-layer name.
type SourceResolver interface {
	ResolveSource(ctx context.Context, parameter string, ref string) (types.Layer, error)
}

// ValueCoercer converts a raw caller value into the type p declares.
//
// Layer kinds coerce to their reference text (string, or []string for
// multiple layers); the reference is resolved separately through a
// SourceResolver.
type ValueCoercer interface {
	Coerce(ctx context.Context, p *model.Parameter, raw any) (any, error)
}

// ExpressionEvaluator evaluates the text of an "=expression" directive.
// Failures are reported as *ExpressionError.
type ExpressionEvaluator interface {
	Evaluate(ctx context.Context, expr string) (any, error)
}

// Feedback receives run progress. Implementations must not block.
type Feedback interface {
	PushInfo(msg string)
	PushCommand(cmd string)
	PushConsole(line string)
	ReportError(msg string)
}

// Stage tells whether an expression failed to parse or to evaluate.
type Stage int

const (
	StageParse Stage = iota
	StageEval
)

func (s Stage) String() string {
	switch s {
	case StageParse:
		return "parse"
	case StageEval:
		return "eval"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// ExpressionError is an expression failure reported by the host engine.
type ExpressionError struct {
	Stage      Stage
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Stage, e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }
