package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/corelog"
)

func waitReload(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no reload within 5s")
		return nil
	}
}

func Test_Watcher(t *testing.T) {
	a, _, _, errs := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: info\n"), 0o644))

	reloads := make(chan error, 8)
	w := NewWatcher(path, a, a.Logger().NewModule("config")).
		SetDebounce(20 * time.Millisecond).
		OnReload(func(err error) { reloads <- err })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	require.NoError(t, w.Start(context.Background()), "second start is a no-op")

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0o644))

	require.NoError(t, os.WriteFile(path, []byte("level: error\n"), 0o644))
	assert.NoError(t, waitReload(t, reloads))
	assert.Equal(t, corelog.LVL_ERROR, a.Logger().MinLevel())

	require.NoError(t, os.WriteFile(path, []byte("level: shouting\n"), 0o644))
	assert.ErrorIs(t, waitReload(t, reloads), corelog.ErrUnknownLevel)
	assert.Equal(t, corelog.LVL_ERROR, a.Logger().MinLevel(), "a broken file keeps the last configuration")
	assert.Contains(t, errs.Ordered(), "config|Failed to reload configuration from "+path)

	// replaced by rename, the way editors save
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("level: warn\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	assert.NoError(t, waitReload(t, reloads))
	assert.Equal(t, corelog.LVL_WARN, a.Logger().MinLevel())
}

func Test_Watcher_Debounce(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	reloads := make(chan error, 8)
	w := NewWatcher(path, a, a.Logger().NewModule("config")).
		SetDebounce(200 * time.Millisecond).
		OnReload(func(err error) { reloads <- err })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for _, lvl := range []string{"debug", "verbose", "info"} {
		require.NoError(t, os.WriteFile(path, []byte("level: "+lvl+"\n"), 0o644))
	}
	assert.NoError(t, waitReload(t, reloads))
	assert.Equal(t, corelog.LVL_INFO, a.Logger().MinLevel())
	select {
	case <-reloads:
		assert.Fail(t, "burst of writes must give a single reload")
	case <-time.After(400 * time.Millisecond):
	}
}

func Test_Watcher_Stop(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	reloads := make(chan error, 8)
	w := NewWatcher(path, a, a.Logger().NewModule("config")).
		SetDebounce(10 * time.Millisecond).
		OnReload(func(err error) { reloads <- err })
	w.Stop() // not started
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("level: fatal\n"), 0o644))
	select {
	case <-reloads:
		assert.Fail(t, "stopped watcher reloaded")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, corelog.LVL_TRACE, a.Logger().MinLevel())
}

func Test_Watcher_StopWaitsForReload(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	var once sync.Once
	entered, release := make(chan struct{}), make(chan struct{})
	w := NewWatcher(path, a, a.Logger().NewModule("config")).
		SetDebounce(10 * time.Millisecond).
		OnReload(func(error) {
			once.Do(func() { close(entered) })
			<-release
		})
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, os.WriteFile(path, []byte("level: warn\n"), 0o644))
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no reload within 5s")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		require.FailNow(t, "Stop returned while a reload was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Stop blocked after the reload finished")
	}
}

func Test_Watcher_Context(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "log.yaml")
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(path, a, a.Logger().NewModule("config"))
	require.NoError(t, w.Start(ctx))
	cancel()
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Stop blocked after context cancellation")
	}
}

func Test_Watcher_Reload(t *testing.T) {
	a, _, _, errs := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "log.yaml")
	w := NewWatcher(path, a, a.Logger().NewModule("config")).SetDebounce(0)
	assert.Equal(t, DEFAULT_DEBOUNCE, w.debounce)

	assert.ErrorIs(t, w.Reload(context.Background()), os.ErrNotExist)
	require.NoError(t, os.WriteFile(path, []byte("level: verbose\n"), 0o644))
	assert.NoError(t, w.Reload(context.Background()))
	assert.Equal(t, corelog.LVL_VERBOSE, a.Logger().MinLevel())
	assert.Contains(t, errs.Ordered(), "config|Failed to reload configuration")
}

func Test_Watcher_MissingDir(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	w := NewWatcher(filepath.Join(t.TempDir(), "none", "log.yaml"), a, a.Logger().NewModule("config"))
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
