package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkip(t *testing.T) {
	w := &Watcher{opts: Options{SkipDirs: []string{"uml", "site"}}}
	assert.True(t, w.skip(".git"))
	assert.True(t, w.skip("uml"))
	assert.True(t, w.skip("site"))
	assert.False(t, w.skip("docs"))
}

func TestWatcherTriggersDebouncedRebuild(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "page.md"), []byte("# v1\n"), 0o644))

	var rebuilds atomic.Int32
	w, err := NewWatcher(srcDir, Options{Debounce: 50 * time.Millisecond}, func(ctx context.Context) error {
		rebuilds.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop(context.Background()) }()

	// A burst of writes must collapse into a single rebuild.
	for range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, "page.md"), []byte("# v2\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return rebuilds.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond, "expected a rebuild after source change")

	// Allow the debounce window to fully drain, then confirm the burst did
	// not fan out into one rebuild per write.
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, rebuilds.Load(), int32(2))
}

func TestWatcherIgnoresSkippedDirs(t *testing.T) {
	srcDir := t.TempDir()
	umlDir := filepath.Join(srcDir, "uml")
	require.NoError(t, os.Mkdir(umlDir, 0o755))

	var rebuilds atomic.Int32
	w, err := NewWatcher(srcDir, Options{
		Debounce: 30 * time.Millisecond,
		SkipDirs: []string{"uml"},
	}, func(ctx context.Context) error {
		rebuilds.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop(context.Background()) }()

	// Writes into the diagram directory must not retrigger builds; the build
	// itself writes generated images there.
	require.NoError(t, os.WriteFile(filepath.Join(umlDir, "classes_x.png"), []byte("png"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), rebuilds.Load())
}

func TestPeriodicRebuild(t *testing.T) {
	srcDir := t.TempDir()

	var rebuilds atomic.Int32
	w, err := NewWatcher(srcDir, Options{
		Debounce:        10 * time.Millisecond,
		RebuildInterval: 100 * time.Millisecond,
	}, func(ctx context.Context) error {
		rebuilds.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop(context.Background()) }()

	require.Eventually(t, func() bool {
		return rebuilds.Load() >= 1
	}, 5*time.Second, 20*time.Millisecond, "expected a scheduled rebuild")
}
