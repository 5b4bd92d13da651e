package parser

import "fmt"

// ErrorType represents different categories of script diagnostics
type ErrorType int

const (
	ErrorSyntax      ErrorType = iota // directive could not be tokenized or built
	ErrorUnsupported                  // directive that is no longer supported
	ErrorVariable                     // name is not a valid R variable
	ErrorHelp                         // malformed #' help line
)

func (e ErrorType) String() string {
	switch e {
	case ErrorSyntax:
		return "syntax error"
	case ErrorUnsupported:
		return "unsupported"
	case ErrorVariable:
		return "invalid variable"
	case ErrorHelp:
		return "help error"
	default:
		return "error"
	}
}

// Diagnostic is a problem with one script line. Parsing continues after it
// is recorded; any diagnostic blocks execution.
type Diagnostic struct {
	Type       ErrorType
	Line       int    // 1-based position in the parsed line sequence
	Text       string // offending line without leading '#'
	Message    string
	Suggestion string // "did you mean" hint, may be empty
	Err        error  // underlying cause, may be nil
}

// Error returns the user facing message.
func (d *Diagnostic) Error() string {
	return d.Message
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Detail returns the message with location and hint, for CLI output.
func (d *Diagnostic) Detail() string {
	s := fmt.Sprintf("line %d: %s: %s", d.Line, d.Type, d.Message)
	if d.Err != nil {
		s += fmt.Sprintf(" (%v)", d.Err)
	}
	if d.Suggestion != "" {
		s += fmt.Sprintf("\n  did you mean %q?", d.Suggestion)
	}
	return s
}

const unsupportedMessage = "This command is no longer supported, `rgdal` package was removed from CRAN."

func syntaxError(line int, text string, err error) *Diagnostic {
	return &Diagnostic{
		Type:    ErrorSyntax,
		Line:    line,
		Text:    text,
		Message: "This script has a syntax error.\nProblem with line: " + text,
		Err:     err,
	}
}

func variableError(line int, text, name string) *Diagnostic {
	return &Diagnostic{
		Type: ErrorVariable,
		Line: line,
		Text: text,
		Message: fmt.Sprintf("This script has a syntax error in variable name.\n"+
			"%q is not a valid variable name in R.\nProblem with line: %s", name, text),
	}
}

func unsupportedError(line int, text string) *Diagnostic {
	return &Diagnostic{
		Type:    ErrorUnsupported,
		Line:    line,
		Text:    text,
		Message: unsupportedMessage,
	}
}

func helpError(line int, text string) *Diagnostic {
	short := text
	if len(short) > 50 {
		short = short[:50] + "..."
	}
	return &Diagnostic{
		Type:    ErrorHelp,
		Line:    line,
		Text:    text,
		Message: "This script has a syntax error.\nProblem with help line: " + short,
	}
}
