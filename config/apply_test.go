package config

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/corelog"
)

const plainLine = "%m|%s\n"

// Logger with plain line formats whose own error reports land in the returned
// ring (LVL_ERROR is never reconfigured by these tests).
func newTestLogger(t *testing.T) (*corelog.Logger, *corelog.RingBuffer) {
	t.Helper()
	l := corelog.New().SetFallback(io.Discard).SetStderr(io.Discard)
	for lvl := range corelog.LVL_DISABLED {
		linefmt := plainLine
		l.ConfigureLine(lvl, &linefmt)
	}
	errs := corelog.NewRingBuffer(8192)
	require.NoError(t, l.ConfigureOutput(corelog.LVL_ERROR, &corelog.OutputConfig{Type: corelog.OUT_RINGBUF, Ring: errs}, nil))
	return l, errs
}

func newTestApplier(t *testing.T) (*Applier, *bytes.Buffer, *bytes.Buffer, *corelog.RingBuffer) {
	t.Helper()
	l, errs := newTestLogger(t)
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return NewApplier(l).SetStreams(stdout, stderr), stdout, stderr, errs
}

func Test_Applier_Streams(t *testing.T) {
	a, stdout, stderr, _ := newTestApplier(t)
	assert.Same(t, a.logger, a.Logger())
	cfg := &Config{
		Lines: map[string]string{"info": "\x1b[1m%m\x1b[0m %s\n", "warn": "\x1b[33m%m\x1b[0m %s\n"},
		Outputs: []Output{
			{Levels: []string{"info"}, Type: TYPE_STREAM},
			{Levels: []string{"warn"}, Type: TYPE_STREAM, Stream: STREAM_STDERR, StripEscapes: STRIP_FALSE},
		},
	}
	require.NoError(t, a.Apply(context.Background(), cfg))

	m := a.Logger().NewModule("app")
	m.Info("up")
	m.Warn("slow")
	assert.Equal(t, "app up\n", stdout.String(), "a buffer is not a terminal: escapes are stripped")
	assert.Equal(t, "\x1b[33mapp\x1b[0m slow\n", stderr.String())
	assert.Equal(t, corelog.OUT_STREAM, a.Logger().ReadOutput(corelog.LVL_INFO).Type)
	assert.NotZero(t, a.Logger().ReadOutput(corelog.LVL_INFO).Flags&corelog.FLAG_STRIP_ESC)
	assert.Zero(t, a.Logger().ReadOutput(corelog.LVL_WARN).Flags&corelog.FLAG_STRIP_ESC)
}

func Test_Applier_Terminal(t *testing.T) {
	a, stdout, _, _ := newTestApplier(t)
	a.isTerminal = func(io.Writer) bool { return true }
	require.NoError(t, a.Apply(context.Background(), &Config{
		Lines:   map[string]string{"info": "\x1b[1m%m\x1b[0m %s\n"},
		Outputs: []Output{{Levels: []string{"info"}, Type: TYPE_STREAM, StripEscapes: STRIP_AUTO}},
	}))
	a.Logger().NewModule("app").Info("up")
	assert.Equal(t, "\x1b[1mapp\x1b[0m up\n", stdout.String())
}

func Test_Applier_File(t *testing.T) {
	a, _, _, errs := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, a.Apply(context.Background(), &Config{
		Outputs: []Output{{Levels: []string{"verbose", "info", "warn"}, Type: TYPE_FILE, Path: path}},
	}))
	m := a.Logger().NewModule("app")
	m.Verbose("one")
	m.Info("two")
	m.Warn("three")
	a.Logger().Cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "app|one\napp|two\napp|three\n", string(data), "only the first open truncates")
	assert.Empty(t, errs.Ordered())
}

func Test_Applier_FileAppend(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, a.Apply(context.Background(), &Config{
		Outputs: []Output{{Levels: []string{"info"}, Type: TYPE_FILE, Path: path, Append: true}},
	}))
	out := a.Logger().ReadOutput(corelog.LVL_INFO)
	assert.NotZero(t, out.Flags&corelog.FLAG_APPEND)
	assert.NotZero(t, out.Flags&corelog.FLAG_STRIP_ESC, "files strip escapes by default")
	a.Logger().NewModule("app").Info("new")
	a.Logger().Cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\napp|new\n", string(data))
}

func Test_Applier_Rings(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	cfg := &Config{
		Rings:   map[string]int{"recent": 256},
		Outputs: []Output{{Levels: []string{"trace", "debug"}, Type: TYPE_RING, Ring: "recent"}},
	}
	require.NoError(t, a.Apply(context.Background(), cfg))
	ring := a.Ring("recent")
	require.NotNil(t, ring)
	assert.Equal(t, 256, ring.Size())
	assert.Nil(t, a.Ring("other"))
	assert.Equal(t, map[string]*corelog.RingBuffer{"recent": ring}, a.Rings())

	a.Logger().NewModule("app").Log(corelog.LVL_DEBUG, "kept")
	assert.Equal(t, "app|kept\n", ring.Ordered())

	require.NoError(t, a.Apply(context.Background(), cfg))
	assert.Same(t, ring, a.Ring("recent"), "same size must keep the buffer")
	assert.Equal(t, "app|kept\n", ring.Ordered())

	cfg.Rings["recent"] = 512
	require.NoError(t, a.Apply(context.Background(), cfg))
	assert.NotSame(t, ring, a.Ring("recent"))
	assert.Equal(t, 512, a.Ring("recent").Size())
	assert.Same(t, a.Ring("recent"), a.Logger().ReadOutput(corelog.LVL_TRACE).Ring)
}

func Test_Applier_CopyStartupRing(t *testing.T) {
	a, stdout, _, _ := newTestApplier(t)
	l := a.Logger()
	l.NewModule("boot").Info("early")
	require.NoError(t, a.Apply(context.Background(), &Config{
		Outputs: []Output{{Levels: []string{"info"}, Type: TYPE_STREAM, Copy: true}},
	}))
	l.NewModule("boot").Info("late")
	assert.Equal(t, "boot|early\nboot|late\n", stdout.String())
	outRing, _ := l.StartupRings()
	assert.Empty(t, outRing.Ordered())
}

func Test_Applier_LevelAndLines(t *testing.T) {
	a, stdout, _, _ := newTestApplier(t)
	require.NoError(t, a.Apply(context.Background(), &Config{
		Level:   "warn",
		Lines:   map[string]string{"WRN": "W %m: %s\n"},
		Outputs: []Output{{Levels: []string{"stdout", "warn"}, Type: TYPE_STREAM}},
	}))
	assert.Equal(t, corelog.LVL_WARN, a.Logger().MinLevel())
	assert.Equal(t, "W %m: %s\n", a.Logger().LineFormat(corelog.LVL_WARN))

	m := a.Logger().NewModule("app")
	m.Info("hidden")
	m.Warn("shown")
	assert.Equal(t, "W app: shown\n", stdout.String())

	require.NoError(t, a.Apply(context.Background(), &Config{Level: "off"}))
	assert.Equal(t, corelog.LVL_DISABLED, a.Logger().MinLevel())
}

func Test_Applier_Invalid(t *testing.T) {
	a, _, _, _ := newTestApplier(t)
	err := a.Apply(context.Background(), &Config{
		Level:   "info",
		Outputs: []Output{{Levels: []string{"info"}, Type: TYPE_FILE}},
	})
	assert.ErrorContains(t, err, "outputs[0].path: required for file outputs")
	assert.Equal(t, corelog.LVL_TRACE, a.Logger().MinLevel(), "nothing is applied")
	assert.Equal(t, corelog.OUT_RINGBUF, a.Logger().ReadOutput(corelog.LVL_INFO).Type)
}

func Test_Applier_Retry(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "app.log")

	t.Run("gives_up", func(t *testing.T) {
		a, stdout, _, errs := newTestApplier(t)
		a.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
		err := a.Apply(context.Background(), &Config{
			OpenRetries: 2,
			Outputs: []Output{
				{Levels: []string{"verbose"}, Type: TYPE_STREAM},
				{Levels: []string{"info"}, Type: TYPE_FILE, Path: missing},
				{Levels: []string{"warn"}, Type: TYPE_STREAM},
			},
		})
		assert.ErrorContains(t, err, "outputs[1]: level INFO: failed to open log file")
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, 3, strings.Count(errs.Ordered(), "Failed to configure output for level INFO"))
		assert.Equal(t, corelog.OUT_STREAM, a.Logger().ReadOutput(corelog.LVL_WARN).Type, "later outputs are still applied")
		assert.Empty(t, stdout.String())
	})
	t.Run("no_retries", func(t *testing.T) {
		a, _, _, errs := newTestApplier(t)
		a.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
		err := a.Apply(context.Background(), &Config{
			Outputs: []Output{{Levels: []string{"info"}, Type: TYPE_FILE, Path: missing}},
		})
		assert.Error(t, err)
		assert.Equal(t, 1, strings.Count(errs.Ordered(), "Failed to configure output"))
	})
	t.Run("stop", func(t *testing.T) {
		a, _, _, errs := newTestApplier(t)
		a.newBackOff = func() backoff.BackOff { return &backoff.StopBackOff{} }
		err := a.Apply(context.Background(), &Config{
			OpenRetries: 5,
			Outputs:     []Output{{Levels: []string{"info"}, Type: TYPE_FILE, Path: missing}},
		})
		assert.Error(t, err)
		assert.Equal(t, 1, strings.Count(errs.Ordered(), "Failed to configure output"))
	})
	t.Run("canceled", func(t *testing.T) {
		a, _, _, _ := newTestApplier(t)
		a.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := a.Apply(ctx, &Config{
			OpenRetries: 5,
			Outputs:     []Output{{Levels: []string{"info"}, Type: TYPE_FILE, Path: missing}},
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("succeeds_later", func(t *testing.T) {
		a, _, _, _ := newTestApplier(t)
		dir := filepath.Join(t.TempDir(), "late")
		attempts := 0
		a.newBackOff = func() backoff.BackOff { return &mkdirBackOff{dir: dir, attempts: &attempts} }
		err := a.Apply(context.Background(), &Config{
			OpenRetries: 3,
			Outputs:     []Output{{Levels: []string{"info"}, Type: TYPE_FILE, Path: filepath.Join(dir, "app.log")}},
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
		assert.Equal(t, corelog.OUT_FILEPATH, a.Logger().ReadOutput(corelog.LVL_INFO).Type)
		a.Logger().Cleanup()
	})
}

// Creates the missing directory when asked for the first delay.
type mkdirBackOff struct {
	dir      string
	attempts *int
}

func (b *mkdirBackOff) NextBackOff() time.Duration {
	*b.attempts++
	os.MkdirAll(b.dir, 0o755)
	return 0
}

func (b *mkdirBackOff) Reset() {}
