package parser

import (
	"time"

	"github.com/opal-lang/rsx/core/model"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// TelemetryMode controls telemetry collection
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Line counts only
	TelemetryTiming                      // Line counts + total time
)

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugDetailed                   // One event per consumed line
)

// ParserConfig holds parser configuration
type ParserConfig struct {
	telemetry    TelemetryMode
	debug        DebugLevel
	descriptions *model.HelpMap
	name         string
	displayName  string
	source       string
}

// WithTelemetryBasic enables basic telemetry (line counts only)
func WithTelemetryBasic() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryTiming
	}
}

// WithDebugDetailed records a DebugEvent per consumed line
func WithDebugDetailed() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugDetailed
	}
}

// WithDescriptions supplies parameter help loaded from a .help file.
// It takes precedence over inline #' help.
func WithDescriptions(m *model.HelpMap) ParserOpt {
	return func(c *ParserConfig) {
		c.descriptions = m
	}
}

// WithIdentity sets the algorithm id and display name used when the
// script declares none.
func WithIdentity(name, displayName string) ParserOpt {
	return func(c *ParserConfig) {
		c.name = name
		c.displayName = displayName
	}
}

// WithSource records the script path on the parsed algorithm.
func WithSource(path string) ParserOpt {
	return func(c *ParserConfig) {
		c.source = path
	}
}

// ParseTelemetry holds parser metrics
type ParseTelemetry struct {
	TotalTime      time.Duration
	LineCount      int // lines consumed
	DirectiveCount int // ## lines
	HelpCount      int // #' lines
	ErrorCount     int
}

// DebugEvent holds debug tracing information (development only)
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "metadata", "help", "console", "body", "blank", "terminate"
	Line      int
	Context   string
}
