package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opal-lang/rsx/core/model"
)

// HelpFileSuffix is appended to a script path to find its descriptions.
const HelpFileSuffix = ".help"

// ParseFile parses the script at path. The algorithm id is the file name
// without extension; descriptions are read from "<path>.help" when present.
//
// Lines are trimmed and reordered so that help lines come first, then
// directives, then the R body.
func ParseFile(path string, opts ...ParserOpt) (*ParseTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}

	descriptions, err := LoadHelpFile(path + HelpFileSuffix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	name := ScriptName(path)
	base := []ParserOpt{
		WithIdentity(name, strings.ReplaceAll(name, "_", " ")),
		WithSource(path),
	}
	if descriptions != nil {
		base = append(base, WithDescriptions(descriptions))
	}
	return parseLines(reorder(data), append(base, opts...)...), nil
}

// ScriptName returns the file name of path up to its last '.'.
func ScriptName(path string) string {
	name := filepath.Base(path)
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}

func reorder(data []byte) []string {
	var helpLines, header, body []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#'"):
			helpLines = append(helpLines, line)
		case strings.HasPrefix(line, "##"):
			header = append(header, line)
		default:
			body = append(body, line)
		}
	}
	out := make([]string, 0, len(helpLines)+len(header)+len(body))
	out = append(out, helpLines...)
	out = append(out, header...)
	return append(out, body...)
}

// LoadHelpFile reads a JSON object of help texts, keeping key order.
// Non-string values are stored as their JSON text; null values are skipped.
func LoadHelpFile(path string) (*model.HelpMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := DecodeHelp(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("help file %s: %w", path, err)
	}
	return m, nil
}

// DecodeHelp decodes a help JSON object from r.
func DecodeHelp(r io.Reader) (*model.HelpMap, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	m := model.NewHelpMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		var s string
		switch {
		case string(value) == "null":
			continue
		case json.Unmarshal(value, &s) == nil:
			m.Set(key, s)
		default:
			m.Set(key, string(value))
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return m, nil
}
