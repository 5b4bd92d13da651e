package planner

import (
	"errors"
	"fmt"

	"github.com/opal-lang/rsx/runtime/host"
)

// ErrNotExecutable is returned by Run for scripts with parse diagnostics.
var ErrNotExecutable = errors.New("script cannot be executed")

// EvaluationError is a deferred expression that failed to parse or
// evaluate. It aborts the build.
type EvaluationError struct {
	Parameter  string
	Expression string
	Stage      host.Stage
	Reason     string
}

func (e *EvaluationError) Error() string {
	if e.Stage == host.StageParse {
		return fmt.Sprintf("Expression with name `%s` and value `%s` is malformed. Error: %s.", e.Parameter, e.Expression, e.Reason)
	}
	return fmt.Sprintf("Expression with name `%s` and value `%s` can not be evaluated. Error: %s.", e.Parameter, e.Expression, e.Reason)
}

// UnsupportedProviderError is a raster input not served by gdal.
type UnsupportedProviderError struct {
	Parameter string
	Provider  string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("Layer %s is not a GDAL layer. Currently only GDAL based raster layers are supported.", e.Parameter)
}
