package model

import (
	"errors"
	"fmt"
	"strings"
)

// Names of the parameters registered implicitly by the parser.
const (
	RConsoleOutput = "R_CONSOLE_OUTPUT"
	RPlots         = "RPLOTS"
)

// Default identity of scripts parsed from a string.
const (
	DefaultName        = "unnamedalgorithm"
	DefaultDisplayName = "[Unnamed algorithm]"
)

// ErrDuplicateName is returned when a parameter or output name is reused.
var ErrDuplicateName = errors.New("duplicate name")

// Parameter is one declared input, or a destination the caller must supply
// a path for.
type Parameter struct {
	Name        string
	Description string
	Kind        ParameterKind
	// Default holds a kind dependent value: string, float64, bool, int,
	// []int, []string or one of the core/types values. Nil means none.
	Default  any
	Optional bool
	Help     string
}

// Required reports whether a value must be supplied.
func (p *Parameter) Required() bool { return !p.Optional }

// IsDestination reports whether the parameter is an output location.
func (p *Parameter) IsDestination() bool { return IsDestinationKind(p.Kind) }

// ParentLayer returns the name of the layer parameter this one depends on.
func (p *Parameter) ParentLayer() string {
	switch k := p.Kind.(type) {
	case Field:
		return k.Parent
	case Band:
		return k.Parent
	case Expression:
		return k.Parent
	case Distance:
		return k.Parent
	default:
		return ""
	}
}

// Output is a value reported back after a run without a caller supplied path.
type Output struct {
	Name        string
	Description string
	Kind        OutputKind
}

// Flags are the script wide switches set by special directives.
type Flags struct {
	ShowPlots         bool
	ShowConsoleOutput bool
	PassFileNames     bool
	SaveOutputValues  bool
	AutoLoadPackages  bool
	InstallGithub     bool
}

// Algorithm is a parsed script. It is populated by the parser and treated
// as read-only afterwards.
type Algorithm struct {
	Name        string
	DisplayName string
	Group       string
	Source      string // script path, empty for scripts parsed from a string

	Parameters []*Parameter
	Outputs    []*Output

	// Commands is the R body passed through verbatim.
	Commands []string
	// Script is every consumed line, newline terminated.
	Script string
	// Expressions are the raw "=expression" directives, evaluated per run.
	Expressions []string

	Flags              Flags
	GithubDependencies []string

	Help        *HelpMap // inline #' help
	Description *HelpMap // .help file next to the script

	Diagnostics []error

	declared []string // destination and output names in declaration order
}

// New returns an empty algorithm with default identity and flags.
func New() *Algorithm {
	return &Algorithm{
		Name:        DefaultName,
		DisplayName: DefaultDisplayName,
		Flags:       Flags{AutoLoadPackages: true},
	}
}

// AddParameter appends p unless its name is taken.
func (a *Algorithm) AddParameter(p *Parameter) error {
	if a.nameTaken(p.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}
	a.Parameters = append(a.Parameters, p)
	if p.IsDestination() {
		a.declared = append(a.declared, p.Name)
	}
	return nil
}

// AddOutput appends o unless its name is taken.
func (a *Algorithm) AddOutput(o *Output) error {
	if a.nameTaken(o.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, o.Name)
	}
	a.Outputs = append(a.Outputs, o)
	a.declared = append(a.declared, o.Name)
	return nil
}

func (a *Algorithm) nameTaken(name string) bool {
	return a.Parameter(name) != nil || a.Output(name) != nil
}

// Parameter returns the parameter called name, or nil.
func (a *Algorithm) Parameter(name string) *Parameter {
	for _, p := range a.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Output returns the output called name, or nil.
func (a *Algorithm) Output(name string) *Output {
	for _, o := range a.Outputs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// InputParameters returns the non-destination parameters in declaration order.
func (a *Algorithm) InputParameters() []*Parameter {
	var out []*Parameter
	for _, p := range a.Parameters {
		if !p.IsDestination() {
			out = append(out, p)
		}
	}
	return out
}

// DestinationParameters returns the destination parameters in declaration order.
func (a *Algorithm) DestinationParameters() []*Parameter {
	var out []*Parameter
	for _, p := range a.Parameters {
		if p.IsDestination() {
			out = append(out, p)
		}
	}
	return out
}

// ResultNames lists every name a run may report, destinations and outputs
// interleaved in declaration order.
func (a *Algorithm) ResultNames() []string {
	return append([]string(nil), a.declared...)
}

// AddDiagnostic records a per-line problem.
func (a *Algorithm) AddDiagnostic(err error) {
	a.Diagnostics = append(a.Diagnostics, err)
}

// Error joins all diagnostics with newlines; empty when parsing was clean.
func (a *Algorithm) Error() string {
	msgs := make([]string, len(a.Diagnostics))
	for i, d := range a.Diagnostics {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "\n")
}

// CanExecute reports whether the script parsed cleanly.
func (a *Algorithm) CanExecute() (bool, string) {
	if len(a.Diagnostics) > 0 {
		return false, a.Error()
	}
	return true, ""
}

// ParameterHelp returns help text for name from the .help file, falling back
// to inline help.
func (a *Algorithm) ParameterHelp(name string) string {
	for _, m := range []*HelpMap{a.Description, a.Help} {
		if m == nil {
			continue
		}
		if v, ok := m.Get(name); ok {
			return v
		}
	}
	return ""
}
