package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/term"

	"github.com/abyssdigger/corelog"
)

const (
	_OPEN_RETRY_INITIAL = 100 * time.Millisecond
	_OPEN_RETRY_MAX     = 2 * time.Second
)

// Applier applies configurations to one logger. Named ring buffers are kept
// across Apply calls as long as their declared size does not change, so a
// reload does not lose buffered lines.
type Applier struct {
	mtx        sync.Mutex
	logger     *corelog.Logger
	rings      map[string]*corelog.RingBuffer
	stdout     io.Writer
	stderr     io.Writer
	isTerminal func(w io.Writer) bool
	newBackOff func() backoff.BackOff
}

func NewApplier(l *corelog.Logger) *Applier {
	return &Applier{
		logger:     l,
		rings:      make(map[string]*corelog.RingBuffer),
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		isTerminal: isTerminal,
		newBackOff: defaultBackOff,
	}
}

// Replaces the writers used for `stream: stdout` and `stream: stderr`.
// Nil keeps the current writer.
func (a *Applier) SetStreams(stdout, stderr io.Writer) *Applier {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if stdout != nil {
		a.stdout = stdout
	}
	if stderr != nil {
		a.stderr = stderr
	}
	return a
}

func (a *Applier) Logger() *corelog.Logger {
	return a.logger
}

// Returns the named ring buffer of the last applied configuration, or nil.
func (a *Applier) Ring(name string) *corelog.RingBuffer {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.rings[name]
}

// Returns a copy of the name to ring mapping of the last applied configuration.
func (a *Applier) Rings() map[string]*corelog.RingBuffer {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return maps.Clone(a.rings)
}

// Apply validates cfg and pushes it into the logger: rings first, then line
// formats, outputs in file order and the minimal level last. Output failures
// do not stop the remaining outputs, they are joined into the returned error.
func (a *Applier) Apply(ctx context.Context, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()

	rings := make(map[string]*corelog.RingBuffer, len(cfg.Rings))
	for name, size := range cfg.Rings {
		if old := a.rings[name]; old != nil && old.Size() == size {
			rings[name] = old
		} else {
			rings[name] = corelog.NewRingBuffer(size)
		}
	}
	a.rings = rings

	for key, linefmt := range cfg.Lines {
		lvl, _ := levelByName(key)
		a.logger.ConfigureLine(lvl, &linefmt)
	}

	var errs []error
	for i := range cfg.Outputs {
		if err := a.applyOutput(ctx, &cfg.Outputs[i], cfg.OpenRetries); err != nil {
			errs = append(errs, fmt.Errorf("outputs[%d]: %w", i, err))
		}
	}

	if cfg.Level != "" {
		lvl, _ := corelog.ParseLevel(cfg.Level)
		a.logger.SetMinLevel(lvl)
	}
	return errors.Join(errs...)
}

func (a *Applier) applyOutput(ctx context.Context, out *Output, retries int) error {
	mask, _ := LevelMask(out.Levels)
	oc := a.outputConfig(out)

	var errs []error
	for lvl := range corelog.LVL_DISABLED {
		if !mask.Has(lvl) {
			continue
		}
		err := a.configure(ctx, lvl, oc, retries)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if oc.Type == corelog.OUT_FILEPATH {
			// the levels after the first one must not truncate what it opened
			oc.Flags |= corelog.FLAG_APPEND
		}
	}
	return errors.Join(errs...)
}

func (a *Applier) outputConfig(out *Output) *corelog.OutputConfig {
	oc := &corelog.OutputConfig{}
	switch out.Type {
	case TYPE_STREAM:
		oc.Type = corelog.OUT_STREAM
		oc.Stream = a.stdout
		if out.Stream == STREAM_STDERR {
			oc.Stream = a.stderr
		}
	case TYPE_FILE:
		oc.Type = corelog.OUT_FILEPATH
		oc.Path = out.Path
	case TYPE_RING:
		oc.Type = corelog.OUT_RINGBUF
		oc.Ring = a.rings[out.Ring]
	default:
		oc.Type = corelog.OUT_NONE
	}
	if out.Append {
		oc.Flags |= corelog.FLAG_APPEND
	}
	if out.Copy {
		oc.Flags |= corelog.FLAG_COPY
	}
	if a.stripEscapes(out, oc) {
		oc.Flags |= corelog.FLAG_STRIP_ESC
	}
	return oc
}

// Auto strips escapes for files and for streams that are not a terminal.
// Rings keep them: they are dumped to wherever the reader wants.
func (a *Applier) stripEscapes(out *Output, oc *corelog.OutputConfig) bool {
	switch strings.ToLower(out.StripEscapes) {
	case STRIP_TRUE:
		return true
	case STRIP_FALSE:
		return false
	}
	switch oc.Type {
	case corelog.OUT_FILEPATH:
		return true
	case corelog.OUT_STREAM:
		return !a.isTerminal(oc.Stream)
	}
	return false
}

// configure sets one level, retrying file opens with exponential backoff.
func (a *Applier) configure(ctx context.Context, lvl corelog.LogLevel, oc *corelog.OutputConfig, retries int) error {
	b := a.newBackOff()
	for attempt := 0; ; attempt++ {
		err := a.logger.ConfigureOutput(lvl, oc, nil)
		if err == nil || oc.Type != corelog.OUT_FILEPATH || attempt >= retries {
			return err
		}
		sleep := b.NextBackOff()
		if sleep == backoff.Stop {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = _OPEN_RETRY_INITIAL
	b.MaxInterval = _OPEN_RETRY_MAX
	return b
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
