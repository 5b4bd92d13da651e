// Package executor runs a generated R script in a child process and
// streams its console output back to the caller.
package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/opal-lang/rsx/core/invariant"
	"github.com/opal-lang/rsx/internal/ctxlog"
	"github.com/opal-lang/rsx/runtime/host"
)

// ScriptPattern names the temporary script file; "*" is replaced by a
// random string so concurrent runs do not collide.
const ScriptPattern = "processing_script*.r"

const maxLineSize = 1 << 20

// errorMarkers flag a console line as an R error.
var errorMarkers = []string{"Error ", "Execution halted"}

// IsErrorLine reports whether line carries an R error marker.
func IsErrorLine(line string) bool {
	for _, m := range errorMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// ProcessError is a non-zero interpreter exit. The console lines read
// before the exit are still returned alongside it.
type ProcessError struct {
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("R exited with status %d", e.ExitCode)
}

// Executor runs scripts with an R interpreter.
type Executor struct {
	// Interpreter is the Rscript executable.
	Interpreter string
	// TempDir receives the script file. Empty means os.TempDir().
	TempDir string
	// KeepScript leaves the script file on disk after the run.
	KeepScript bool
}

// WriteScript stores commands, one per line, in a new temporary file.
func (e *Executor) WriteScript(commands []string) (string, error) {
	f, err := os.CreateTemp(e.TempDir, ScriptPattern)
	if err != nil {
		return "", fmt.Errorf("creating script file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, c := range commands {
		w.WriteString(c)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("writing script file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing script file: %w", err)
	}
	return f.Name(), nil
}

// Execute writes commands to a script file and runs "<Interpreter> <file>"
// with stdin closed and stdout and stderr merged. Every output line is
// trimmed, sent to fb (error lines through ReportError) and returned in
// order.
//
// Cancelling ctx kills the interpreter and its children; output not yet
// read is dropped and ctx.Err() is returned. A non-zero exit yields a
// *ProcessError after the whole output has been read.
func (e *Executor) Execute(ctx context.Context, commands []string, fb host.Feedback) ([]string, error) {
	invariant.NotNil(ctx, "ctx")
	invariant.NotNil(fb, "feedback")
	invariant.Precondition(e.Interpreter != "", "interpreter must be set")

	logger := ctxlog.FromContext(ctx)

	script, err := e.WriteScript(commands)
	if err != nil {
		return nil, err
	}
	if !e.KeepScript {
		defer os.Remove(script)
	}

	cmd := exec.Command(e.Interpreter, script)
	configureCommandForCancellation(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout

	start := time.Now()
	logger.Debug("starting interpreter", "interpreter", e.Interpreter, "script", script)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", e.Interpreter, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			terminateCommandOnCancel(cmd)
		case <-done:
		}
	}()

	var lines []string
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if IsErrorLine(raw) {
			fb.ReportError(line)
		} else {
			fb.PushConsole(line)
		}
		lines = append(lines, line)
	}
	if ctx.Err() != nil {
		terminateCommandOnCancel(cmd)
	}
	scanErr := sc.Err()
	if scanErr != nil {
		io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	logger.Debug("interpreter finished", "duration", time.Since(start), "lines", len(lines))

	if err := ctx.Err(); err != nil {
		return lines, err
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return lines, &ProcessError{ExitCode: exitErr.ExitCode()}
		}
		return lines, waitErr
	}
	if scanErr != nil {
		return lines, fmt.Errorf("reading interpreter output: %w", scanErr)
	}
	return lines, nil
}
