package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects feedback in call order.
type recorder struct {
	mu      sync.Mutex
	console []string
	errors  []string
	onLine  func(string)
}

func (r *recorder) PushInfo(string)    {}
func (r *recorder) PushCommand(string) {}

func (r *recorder) PushConsole(line string) {
	r.mu.Lock()
	r.console = append(r.console, line)
	r.mu.Unlock()
	if r.onLine != nil {
		r.onLine(line)
	}
}

func (r *recorder) ReportError(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, line)
}

func shell(t *testing.T) *Executor {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh as the interpreter")
	}
	return &Executor{Interpreter: "/bin/sh", TempDir: t.TempDir()}
}

func TestIsErrorLine(t *testing.T) {
	t.Parallel()
	assert.True(t, IsErrorLine("Error in library(foo) : there is no package called 'foo'"))
	assert.True(t, IsErrorLine("Execution halted"))
	assert.False(t, IsErrorLine("Errors: none"))
	assert.False(t, IsErrorLine("[1] 42"))
}

func TestExecuteStreamsLines(t *testing.T) {
	t.Parallel()
	e := shell(t)
	fb := &recorder{}

	lines, err := e.Execute(context.Background(), []string{
		`echo "  [1] 42  "`,
		`echo "Error in f(): boom" >&2`,
		`echo done`,
	}, fb)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"[1] 42", "Error in f(): boom", "done"}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"[1] 42", "done"}, fb.console)
	assert.Equal(t, []string{"Error in f(): boom"}, fb.errors)

	entries, err := os.ReadDir(e.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "script file removed after the run")
}

func TestExecuteNonZeroExitKeepsOutput(t *testing.T) {
	t.Parallel()
	e := shell(t)
	fb := &recorder{}

	lines, err := e.Execute(context.Background(), []string{
		"echo before",
		"echo 'Execution halted'",
		"exit 3",
	}, fb)

	var procErr *ProcessError
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, 3, procErr.ExitCode)
	assert.Equal(t, []string{"before", "Execution halted"}, lines)
	assert.Equal(t, []string{"Execution halted"}, fb.errors)
}

func TestExecuteCancellation(t *testing.T) {
	t.Parallel()
	e := shell(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fb := &recorder{onLine: func(line string) {
		if line == "started" {
			cancel()
		}
	}}

	start := time.Now()
	lines, err := e.Execute(ctx, []string{
		"echo started",
		"sleep 30",
		"echo never",
	}, fb)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 20*time.Second)
	assert.Equal(t, []string{"started"}, lines)
}

func TestWriteScript(t *testing.T) {
	t.Parallel()
	e := &Executor{TempDir: t.TempDir()}

	path, err := e.WriteScript([]string{"x <- 1", "print(x)"})
	require.NoError(t, err)
	assert.Regexp(t, `processing_script\d+\.r$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x <- 1\nprint(x)\n", string(data))

	other, err := e.WriteScript(nil)
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func TestExecuteMissingInterpreter(t *testing.T) {
	t.Parallel()
	e := &Executor{Interpreter: filepath.Join(t.TempDir(), "Rscript"), TempDir: t.TempDir()}
	_, err := e.Execute(context.Background(), []string{"1"}, &recorder{})
	assert.ErrorContains(t, err, "starting")
}

func TestExecuteKeepScript(t *testing.T) {
	t.Parallel()
	e := shell(t)
	e.KeepScript = true
	_, err := e.Execute(context.Background(), []string{"true"}, &recorder{})
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(e.TempDir, "processing_script*.r"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
