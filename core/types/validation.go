package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema is a JSON Schema document in map form.
type JSONSchema map[string]any

// ValidationConfig controls input validation.
type ValidationConfig struct {
	MaxSchemaSize int  // Max schema size in bytes
	EnableCache   bool // Cache compiled validators by schema hash
	MaxCacheSize  int  // Max cached validators
	AssertFormat  bool // Enforce "format" keywords (point, extent, color, ...)
}

// DefaultValidationConfig returns the defaults used by the CLI.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxSchemaSize: 1024 * 1024,
		EnableCache:   true,
		MaxCacheSize:  256,
		AssertFormat:  true,
	}
}

// InputError lists every violation found in an input document.
type InputError struct {
	Violations []Violation
}

// Violation is one failed schema keyword at one instance location.
type Violation struct {
	Location string // JSON pointer into the input document ("/in_number")
	Message  string
}

func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString("invalid inputs:")
	for _, v := range e.Violations {
		loc := v.Location
		if loc == "" {
			loc = "/"
		}
		fmt.Fprintf(&b, "\n  %s: %s", loc, v.Message)
	}
	return b.String()
}

// Validator validates input documents against schemas generated from an
// algorithm's parameter set.
type Validator struct {
	config *ValidationConfig

	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates a validator; a nil config selects the defaults.
func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Validator{
		config: config,
		cache:  make(map[string]*jsonschema.Schema),
	}
}

// Validate checks doc (as produced by encoding/json) against schema.
func (v *Validator) Validate(schema JSONSchema, doc any) error {
	compiled, err := v.getValidator(schema)
	if err != nil {
		return fmt.Errorf("schema compilation failed: %w", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return convertValidationError(err)
	}
	return nil
}

func (v *Validator) getValidator(schema JSONSchema) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	if len(data) > v.config.MaxSchemaSize {
		return nil, fmt.Errorf("schema too large: %d bytes (max: %d)", len(data), v.config.MaxSchemaSize)
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	if v.config.EnableCache {
		v.mu.Lock()
		cached, ok := v.cache[key]
		v.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	compiled, err := v.compileSchema(data)
	if err != nil {
		return nil, err
	}

	if v.config.EnableCache {
		v.mu.Lock()
		if len(v.cache) >= v.config.MaxCacheSize {
			v.cache = make(map[string]*jsonschema.Schema)
		}
		v.cache[key] = compiled
		v.mu.Unlock()
	}
	return compiled, nil
}

func (v *Validator) compileSchema(data []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = v.config.AssertFormat

	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	for name, validator := range formatValidators() {
		compiler.Formats[name] = validator
	}

	// Generated schemas are self-contained.
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("$ref not allowed: %s", url)
	}

	url := "schema://inputs.json"
	if err := compiler.AddResource(url, strings.NewReader(string(data))); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// formatValidators accepts the textual forms the local host can coerce.
// Non-string values pass; type checks happen through "type".
func formatValidators() map[string]func(interface{}) bool {
	stringFormat := func(parse func(string) error) func(interface{}) bool {
		return func(v interface{}) bool {
			s, ok := v.(string)
			if !ok {
				return true
			}
			return parse(s) == nil
		}
	}
	return map[string]func(interface{}) bool{
		"rsx-point": stringFormat(func(s string) error {
			_, err := ParsePoint(s)
			return err
		}),
		"rsx-extent": stringFormat(func(s string) error {
			_, err := ParseExtent(s)
			return err
		}),
		"rsx-color": stringFormat(func(s string) error {
			_, err := ParseColor(s)
			return err
		}),
		"rsx-range": stringFormat(func(s string) error {
			_, err := ParseRange(s)
			return err
		}),
		"rsx-datetime": stringFormat(func(s string) error {
			_, err := ParseDateTime(s, KindDateTime)
			return err
		}),
	}
}

func convertValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	var out InputError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out.Violations = append(out.Violations, Violation{Location: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	sort.SliceStable(out.Violations, func(i, j int) bool {
		return out.Violations[i].Location < out.Violations[j].Location
	})
	return &out
}
