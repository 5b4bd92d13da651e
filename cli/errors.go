package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/rsx/core/types"
	"github.com/opal-lang/rsx/runtime/planner"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "usage", "config", "parse", "execution"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var (
		cliErr   *CLIError
		inputErr *types.InputError
		evalErr  *planner.EvaluationError
	)
	switch {
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case errors.As(err, &inputErr):
		formatInputError(w, inputErr, useColor)
	case errors.As(err, &evalErr):
		formatEvaluationError(w, evalErr, useColor)
	case errors.Is(err, planner.ErrNotExecutable):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), "run rsx check on the script for details")
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

func formatInputError(w io.Writer, err *types.InputError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%sinvalid inputs\n", Colorize("Error: ", ColorRed, useColor))
	for _, v := range err.Violations {
		loc := strings.TrimPrefix(v.Location, "/")
		if loc == "" {
			loc = "(document)"
		}
		_, _ = fmt.Fprintf(w, "  %s %s\n", Colorize(loc+":", ColorCyan, useColor), v.Message)
	}
}

func formatEvaluationError(w io.Writer, err *planner.EvaluationError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	_, _ = fmt.Fprintf(w, "%s%s = %s (%s)\n", Colorize("  ", ColorGray, useColor), err.Parameter, err.Expression, err.Stage)
}
