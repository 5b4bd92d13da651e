package planner

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/opal-lang/rsx/core/model"
)

// maxBlankLines ends output value parsing, like the script parser's
// terminator.
const maxBlankLines = 10

// valueSeparator joins repeated values of one output.
const valueSeparator = "\n\r"

// ParseOutputValues reads the "##name" / value layout written by the
// export phase. Lines are trimmed. A "##name" line selects the output
// receiving the following lines; names that are not results of alg
// select nothing and their lines are dropped. Parsing stops at the end of
// input or after ten consecutive blank lines.
func ParseOutputValues(r io.Reader, alg *model.Algorithm) (map[string]string, error) {
	names := alg.ResultNames()
	values := make(map[string]string)

	var current string
	blanks := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for blanks < maxBlankLines && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "##") {
			name := strings.ReplaceAll(line, "#", "")
			current = ""
			if slices.Contains(names, name) {
				current = name
			}
			continue
		}
		if line == "" {
			blanks++
		} else {
			blanks = 0
		}
		if current == "" {
			continue
		}
		if prev, ok := values[current]; ok {
			values[current] = prev + valueSeparator + line
		} else {
			values[current] = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading output values: %w", err)
	}
	return values, nil
}

// fileURL renders a local path as a file:// URL.
func fileURL(path string) string {
	path = slashed(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}

// PlotsHTML wraps the plot image in a minimal page.
func PlotsHTML(pngFile string) string {
	return fmt.Sprintf(`<html><img src="%s"/></html>`, fileURL(pngFile))
}

// ConsoleHTML formats captured console lines.
func ConsoleHTML(lines []string) string {
	var sb strings.Builder
	sb.WriteString("<h2>R Output</h2>\n<code>\n")
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("<br />\n")
	}
	sb.WriteString("</code>")
	return sb.String()
}

func writeHTML(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
