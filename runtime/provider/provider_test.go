package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/rsx/core/model"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(algs []*model.Algorithm) []string {
	out := make([]string, len(algs))
	for i, a := range algs {
		out[i] = a.Name
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "buffer.rsx"), "##Layer=vector\n##out=output vector\nout <- Layer")
	write(t, filepath.Join(dir, "nested", "Slope_Map.RSX"), "##dem=raster\nprint(dem)")
	write(t, filepath.Join(dir, "broken.rsx"), "##load_vector_using_rgdal\nprint(1)")
	write(t, filepath.Join(dir, "notes.txt"), "##x=number 1")

	p, err := New([]string{dir, filepath.Join(dir, "missing")}, 0)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))

	assert.Equal(t, []string{"Slope_Map", "broken", "buffer"}, names(p.Algorithms()))

	alg, ok := p.Algorithm("Slope_Map")
	require.True(t, ok)
	assert.Equal(t, "Slope Map", alg.DisplayName)
	assert.NotNil(t, alg.Parameter("dem"))

	broken, ok := p.Algorithm("broken")
	require.True(t, ok)
	executable, _ := broken.CanExecute()
	assert.False(t, executable)

	_, ok = p.Algorithm("notes")
	assert.False(t, ok)
}

func TestLoadUsesCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.rsx")
	write(t, path, "##x=number 1\nprint(x)")

	p, err := New([]string{dir}, 8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.Load(ctx))
	first, _ := p.Algorithm("a")
	require.NoError(t, p.Load(ctx))
	second, _ := p.Algorithm("a")
	assert.Same(t, first, second, "unchanged script served from cache")
	assert.Equal(t, 1, p.CacheLen())

	write(t, path, "##x=number 2\nprint(x)")
	require.NoError(t, p.Load(ctx))
	third, _ := p.Algorithm("a")
	assert.NotSame(t, first, third)
	assert.Equal(t, 2.0, third.Parameter("x").Default)

	write(t, path+".help", `{"x": "the x value"}`)
	require.NoError(t, p.Load(ctx))
	fourth, _ := p.Algorithm("a")
	assert.Equal(t, "the x value", fourth.ParameterHelp("x"))
}

func TestLoadRemovedScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.rsx")
	write(t, path, "print(1)")

	p, err := New([]string{dir}, 0)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))
	require.Len(t, p.Algorithms(), 1)

	require.NoError(t, os.Remove(path))
	require.NoError(t, p.Load(context.Background()))
	assert.Empty(t, p.Algorithms())
}

func TestLoadCancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.rsx"), "print(1)")

	p, err := New([]string{dir}, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Load(ctx), context.Canceled)
}

func TestIsScript(t *testing.T) {
	t.Parallel()
	assert.True(t, IsScript("a.rsx"))
	assert.True(t, IsScript("/x/B.RSX"))
	assert.False(t, IsScript("a.rsx.help"))
	assert.False(t, IsScript("a.r"))
}

func TestWatchReloads(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p, err := New([]string{dir}, 0)
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, func() { reloaded <- struct{}{} })
	}()

	// The watcher registers asynchronously; keep touching the file until a
	// reload is observed.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	path := filepath.Join(dir, "new.rsx")
	for {
		select {
		case <-reloaded:
			_, ok := p.Algorithm("new")
			if ok {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-tick.C:
			write(t, path, "print(1)")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
