// Package parser reads an annotated R script line by line and builds the
// algorithm model from its "##" directives, "#'" help lines, ">" console
// commands and plain R body.
//
// Parsing never fails as a whole. Problems with individual lines are
// recorded as *Diagnostic values on the algorithm and block execution.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opal-lang/rsx/core/invariant"
	"github.com/opal-lang/rsx/core/model"
	"github.com/opal-lang/rsx/runtime/directive"
	"github.com/opal-lang/rsx/runtime/params"
)

// MaxBlankRun is the number of consecutive blank lines that ends parsing.
const MaxBlankRun = 10

// State of the line state machine.
type State int

const (
	StateStart State = iota
	StateAccumulating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAccumulating:
		return "accumulating"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stats counts consumed lines by category.
type Stats struct {
	Consumed int
	Metadata int
	Help     int
	Console  int
	Body     int
	Blank    int
	// Terminated is set when a blank run stopped parsing before the input
	// was exhausted.
	Terminated bool
}

// ParseTree is the result of parsing one script.
type ParseTree struct {
	Algorithm   *model.Algorithm
	Stats       Stats
	Telemetry   *ParseTelemetry // nil unless telemetry enabled
	DebugEvents []DebugEvent    // nil unless debug enabled
}

// Diagnostics returns the per-line problems as *Diagnostic values.
func (t *ParseTree) Diagnostics() []*Diagnostic {
	var out []*Diagnostic
	for _, err := range t.Algorithm.Diagnostics {
		var d *Diagnostic
		if errors.As(err, &d) {
			out = append(out, d)
		}
	}
	return out
}

// Parse parses script source split on "\n".
func Parse(source []byte, opts ...ParserOpt) *ParseTree {
	return parseLines(strings.Split(string(source), "\n"), opts...)
}

// ParseString parses script text.
func ParseString(source string, opts ...ParserOpt) *ParseTree {
	return Parse([]byte(source), opts...)
}

func parseLines(lines []string, opts ...ParserOpt) *ParseTree {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}

	var start time.Time
	if config.telemetry >= TelemetryTiming {
		start = time.Now()
	}

	p := &parser{
		config: config,
		alg:    model.New(),
		state:  StateStart,
	}
	if config.name != "" {
		p.alg.Name = config.name
		p.alg.DisplayName = config.displayName
	}
	p.alg.Source = config.source
	p.alg.Description = config.descriptions
	if config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, len(lines))
	}

	var script strings.Builder
	for _, raw := range lines {
		if p.state == StateTerminated {
			p.stats.Terminated = true
			break
		}
		line := strings.Trim(strings.Trim(raw, "\n"), "\r")
		p.consume(line)
		script.WriteString(line)
		script.WriteByte('\n')
	}
	p.state = StateTerminated
	p.alg.Script = script.String()

	for _, param := range p.alg.Parameters {
		param.Help = p.alg.ParameterHelp(param.Name)
	}

	invariant.Postcondition(p.stats.Consumed == p.stats.Metadata+p.stats.Help+p.stats.Console+p.stats.Body+p.stats.Blank,
		"consumed %d lines but categorized %d", p.stats.Consumed,
		p.stats.Metadata+p.stats.Help+p.stats.Console+p.stats.Body+p.stats.Blank)

	tree := &ParseTree{
		Algorithm:   p.alg,
		Stats:       p.stats,
		DebugEvents: p.debugEvents,
	}
	if config.telemetry >= TelemetryBasic {
		tree.Telemetry = &ParseTelemetry{
			LineCount:      p.stats.Consumed,
			DirectiveCount: p.stats.Metadata,
			HelpCount:      p.stats.Help,
			ErrorCount:     len(p.alg.Diagnostics),
		}
		if config.telemetry >= TelemetryTiming {
			tree.Telemetry.TotalTime = time.Since(start)
		}
	}
	return tree
}

type parser struct {
	config      *ParserConfig
	alg         *model.Algorithm
	state       State
	blankRun    int
	lineNo      int
	stats       Stats
	debugEvents []DebugEvent
}

func (p *parser) recordDebugEvent(event, context string) {
	if p.config.debug == DebugOff {
		return
	}
	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		Line:      p.lineNo,
		Context:   context,
	})
}

func (p *parser) fail(d *Diagnostic) {
	p.alg.AddDiagnostic(d)
}

// consume advances the state machine by one line.
func (p *parser) consume(line string) {
	invariant.Precondition(p.state != StateTerminated, "line consumed after termination")
	p.state = StateAccumulating
	p.lineNo++
	p.stats.Consumed++

	switch {
	case strings.HasPrefix(line, "##"):
		p.stats.Metadata++
		p.recordDebugEvent("metadata", line)
		p.metadata(strings.TrimLeft(line, "#"))
	case strings.HasPrefix(line, "#'"):
		p.stats.Help++
		p.recordDebugEvent("help", line)
		p.help(line)
	case strings.HasPrefix(line, ">"):
		p.stats.Console++
		p.recordDebugEvent("console", line)
		p.console(line[1:])
	case line == "":
		p.stats.Blank++
		p.blankRun++
		p.recordDebugEvent("blank", fmt.Sprintf("run %d", p.blankRun))
		if p.blankRun >= MaxBlankRun {
			p.recordDebugEvent("terminate", "")
			p.state = StateTerminated
		}
	default:
		p.stats.Body++
		p.blankRun = 0
		p.recordDebugEvent("body", line)
		p.alg.Commands = append(p.alg.Commands, line)
	}
}

func (p *parser) console(command string) {
	p.alg.Commands = append(p.alg.Commands, command)
	if p.alg.Flags.ShowConsoleOutput {
		return
	}
	p.alg.Flags.ShowConsoleOutput = true
	err := p.alg.AddParameter(&model.Parameter{
		Name:        model.RConsoleOutput,
		Description: "R Console Output",
		Kind:        model.FileDestination{Filter: "HTML files (*.html)", Extension: "html"},
		Optional:    true,
	})
	if err != nil {
		p.fail(syntaxError(p.lineNo, ">"+command, err))
	}
}

// metadata handles a "##" line; body has its leading '#' removed.
func (p *parser) metadata(body string) {
	switch directive.Classify(body) {
	case directive.ShowPlots:
		p.alg.Flags.ShowPlots = true
		if p.alg.Parameter(model.RPlots) == nil {
			invariant.ExpectNoError(p.alg.AddParameter(&model.Parameter{
				Name:        model.RPlots,
				Description: "R Plots",
				Kind:        model.FileDestination{Filter: "HTML files (*.html)", Extension: "html"},
				Optional:    true,
			}), "registering plots destination")
		}
		return
	case directive.Unsupported:
		p.fail(unsupportedError(p.lineNo, body))
		return
	case directive.PassFileNames:
		p.alg.Flags.PassFileNames = true
		return
	case directive.DontLoadPackages:
		p.alg.Flags.AutoLoadPackages = false
		return
	}

	value, token, err := directive.Split(body)
	if err != nil {
		p.fail(syntaxError(p.lineNo, body, err))
		return
	}
	if !directive.IsTyped(body) && p.keyword(value, token) {
		return
	}

	if strings.Contains(body, "=expression") {
		p.alg.Expressions = append(p.alg.Expressions, body)
		return
	}

	p.declaration(body, value)
}

const (
	keywordGroup         = "group"
	keywordName          = "name"
	keywordDisplayName   = "display_name"
	keywordGithubInstall = "github_install"
)

func isKeyword(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case keywordGroup, keywordName, keywordDisplayName, keywordGithubInstall:
		return true
	}
	return false
}

// keyword applies a metadata keyword. Both "my group=group" and
// "group=my group" are accepted; the keyword on the right wins when both
// sides are keywords.
func (p *parser) keyword(left, right string) bool {
	var keyword, arg string
	switch {
	case isKeyword(right):
		keyword, arg = right, left
	case isKeyword(left):
		keyword, arg = left, right
	default:
		return false
	}
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case keywordGroup:
		p.alg.Group = arg
	case keywordName:
		p.alg.DisplayName = arg
		p.alg.Name = directive.StripSpecialCharacters(strings.ToLower(arg))
	case keywordDisplayName:
		p.alg.DisplayName = arg
	case keywordGithubInstall:
		p.alg.Flags.InstallGithub = true
		p.alg.GithubDependencies = nil
		for _, dep := range strings.Split(arg, ",") {
			if dep = strings.TrimSpace(dep); dep != "" {
				p.alg.GithubDependencies = append(p.alg.GithubDependencies, dep)
			}
		}
	}
	return true
}

// declaration builds an output or parameter from a directive.
func (p *parser) declaration(body, name string) {
	if !directive.IsValidRVariable(name) {
		p.fail(variableError(p.lineNo, body, name))
	}

	if result, ok := params.CreateOutput(body); ok {
		if result.Output != nil {
			if err := p.alg.AddOutput(result.Output); err != nil {
				p.fail(syntaxError(p.lineNo, body, err))
				return
			}
			p.alg.Flags.SaveOutputValues = true
			return
		}
		if err := p.alg.AddParameter(result.Parameter); err != nil {
			p.fail(syntaxError(p.lineNo, body, err))
		}
		return
	}

	param, err := params.CreateParameter(body)
	if err != nil {
		d := syntaxError(p.lineNo, body, err)
		var unknown *params.UnknownTypeError
		if errors.As(err, &unknown) {
			d.Suggestion = unknown.Suggestion
		}
		p.fail(d)
		return
	}
	if err := p.alg.AddParameter(param); err != nil {
		p.fail(syntaxError(p.lineNo, body, err))
	}
}

// help handles a "#' key: text" line. An empty key continues the
// previous entry.
func (p *parser) help(line string) {
	text := strings.TrimPrefix(line, "#'")
	key, value, ok := strings.Cut(text, ":")
	if !ok {
		p.fail(helpError(p.lineNo, line))
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if p.alg.Help == nil {
		p.alg.Help = model.NewHelpMap()
	}
	if key == "" {
		if !p.alg.Help.Append(value) {
			p.fail(helpError(p.lineNo, line))
		}
		return
	}
	p.alg.Help.Set(key, value)
}
