// A levelled logging core with per-level reconfigurable outputs (caller-owned
// streams, files opened by path, in-memory ring buffers or nothing), per-level
// line formats and an optional ANSI escape stripping of those formats.
package corelog

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Creates a logger in its startup state:
//   - minimal level DEFAULT_LOG_LEVEL
//   - default line formats (DefaultLineFormats)
//   - MASK_STDOUT levels writing into one DEFAULT_RINGBUF_SIZE ring buffer and
//     MASK_STDERR levels into another (see StartupRings)
//   - [os.Stderr] as the fallback and abort destination, [os.Exit] as exit handler
//
// Preferred usage example:
//
//	func main() {
//	    logger := corelog.New()
//	    defer logger.Cleanup()
//	    outRing, _ := logger.StartupRings()
//	    logger.ConfigureOutputs(corelog.MASK_STDOUT, &corelog.OutputConfig{
//	        Type: corelog.OUT_STREAM, Stream: os.Stdout, Flags: corelog.FLAG_COPY,
//	    })
//	    ...
//	}
func New() *Logger {
	l := new(Logger)
	l.aborted = make(chan struct{})
	l.SetMinLevel(DEFAULT_LOG_LEVEL)
	for lvl := range _LVL_MAX_for_checks_only {
		linefmt := DefaultLineFormats[lvl]
		l.lines[lvl].Store(&linefmt)
	}
	l.outRing = NewRingBuffer(DEFAULT_RINGBUF_SIZE)
	l.errRing = NewRingBuffer(DEFAULT_RINGBUF_SIZE)
	for lvl := range _LVL_MAX_for_checks_only {
		ring := l.outRing
		if MASK_STDERR.Has(lvl) {
			ring = l.errRing
		}
		l.outputs[lvl].active.Store(&sink{kind: OUT_RINGBUF, ring: ring})
	}
	l.SetFallback(os.Stderr)
	l.SetStderr(os.Stderr)
	l.SetExitHandler(os.Exit)
	return l
}

// Returns the two ring buffers the logger writes into until outputs are configured.
func (l *Logger) StartupRings() (out, err *RingBuffer) {
	return l.outRing, l.errRing
}

// Sets the global minimal level. Messages below it are ignored, values at or
// above LVL_DISABLED disable logging completely.
func (l *Logger) SetMinLevel(minlevel LogLevel) *Logger {
	l.level.Store(uint32(normMinLevel(minlevel)))
	return l
}

// Returns the current global minimal level.
func (l *Logger) MinLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// Sets the fallback output used to report write errors that have no caller to
// return to, io.Discard is used instead of nil to silently drop them.
//
// The operation is protected by mutex for thread safety.
func (l *Logger) SetFallback(f io.Writer) *Logger {
	l.sync.fbckMtx.Lock()
	defer l.sync.fbckMtx.Unlock()
	if f != nil {
		l.fallbck = f
	} else {
		l.fallbck = io.Discard
	}
	return l
}

// Sets the stream used by Abort when the fatal level has no stream or file
// output ([os.Stderr] for nil).
func (l *Logger) SetStderr(w io.Writer) *Logger {
	l.sync.exitMtx.Lock()
	defer l.sync.exitMtx.Unlock()
	if w != nil {
		l.stderr = w
	} else {
		l.stderr = os.Stderr
	}
	return l
}

// Sets the function Abort calls to terminate the process ([os.Exit] for nil).
// The handler is expected not to return.
func (l *Logger) SetExitHandler(fn func(code int)) *Logger {
	l.sync.exitMtx.Lock()
	defer l.sync.exitMtx.Unlock()
	if fn != nil {
		l.exitfn = fn
	} else {
		l.exitfn = os.Exit
	}
	return l
}

// Replaces the line format of the level (if newfmt is not nil) and returns the
// previous one. Formats of LINEFMT_MAX_SIZE bytes or longer and invalid levels
// are contract violations and abort the process.
//
// The format is swapped by reference, messages being rendered at the moment keep
// using the format they have already loaded.
func (l *Logger) ConfigureLine(level LogLevel, newfmt *string) (old string) {
	if !level.IsValid() {
		l.contractViolation("ConfigureLine", "Invalid parameters: `level` (%d) not in range <0, %d>",
			level, _LVL_MAX_for_checks_only)
	}
	if newfmt == nil {
		return *l.lines[level].Load()
	}
	if len(*newfmt)+1 > LINEFMT_MAX_SIZE {
		l.contractViolation("ConfigureLine", "Invalid parameters: line format is too long (%d - max is %d)",
			len(*newfmt)+1, LINEFMT_MAX_SIZE)
	}
	linefmt := *newfmt
	return *l.lines[level].Swap(&linefmt)
}

// Returns the current line format of the level.
func (l *Logger) LineFormat(level LogLevel) string {
	return l.ConfigureLine(level, nil)
}

/////////////////////////////////////////////////////////////////////////////////////////
/*
Output reconfiguration

Every level owns one output slot. A change of a slot runs entirely under the
slot lock:

	validate (open) new -> copy old ring contents -> tear down old -> publish new

Validation failures leave the slot untouched, are logged at LVL_ERROR and
returned. The emit path loads the published sink without the lock, so a line
emitted concurrently with a reconfiguration lands in either the old or the new
output, never in a half-built one.
*/

var noSink = &sink{kind: OUT_NONE}

// Reads the level output into oldcfg (if not nil) and then switches the level
// to newcfg (if not nil). Both are done under the level lock.
//
// For OUT_FILEPATH the file is created if needed and truncated unless
// FLAG_APPEND is set. With FLAG_COPY, when the previous output is a ring
// buffer, its contents are written to the new output and the buffer is zeroed
// (nothing happens when the new output is the very same buffer).
//
// An invalid level is a contract violation and aborts the process.
func (l *Logger) ConfigureOutput(level LogLevel, newcfg, oldcfg *OutputConfig) error {
	if !level.IsValid() {
		l.contractViolation("ConfigureOutput", "Invalid parameters: `level` (%d) not in range <0, %d>",
			level, _LVL_MAX_for_checks_only)
	}
	o := &l.outputs[level]
	o.mtx.Lock()
	defer o.mtx.Unlock()

	cur := o.current()
	if oldcfg != nil {
		*oldcfg = cur.config()
	}
	if newcfg == nil {
		return nil
	}

	next, err := openSink(newcfg)
	if err != nil {
		l.Log(LVL_ERROR, MODULE_NAME, "Failed to configure output for level %s: %v", level, err)
		return fmt.Errorf("level %s: %w", level, err)
	}
	if newcfg.Flags&FLAG_COPY != 0 && cur.kind == OUT_RINGBUF && cur.ring != next.ring {
		if err := next.write(cur.ring.drain()); err != nil {
			l.Log(LVL_ERROR, MODULE_NAME, "Failed to copy over data from old ring buffer (for level %s): %v", level, err)
		}
	}
	o.active.Store(next)
	l.teardown(cur)
	return nil
}

// Applies one configuration to every level in mask and returns the number of
// levels that failed. OUT_FILEPATH outputs get a file handle per level: the
// first successful open follows cfg.Flags, the others always append so they
// don't truncate what the previous levels have already written.
func (l *Logger) ConfigureOutputs(mask LevelMask, cfg *OutputConfig) (failed int) {
	if cfg == nil {
		return 0
	}
	levelcfg := *cfg
	for lvl := range _LVL_MAX_for_checks_only {
		if !mask.Has(lvl) {
			continue
		}
		if l.ConfigureOutput(lvl, &levelcfg, nil) != nil {
			failed++
		} else if levelcfg.Type == OUT_FILEPATH {
			levelcfg.Flags |= FLAG_APPEND
		}
	}
	return failed
}

// Returns the current output configuration of the level.
func (l *Logger) ReadOutput(level LogLevel) (cfg OutputConfig) {
	l.ConfigureOutput(level, nil, &cfg)
	return cfg
}

// Switches every level to OUT_NONE closing the files opened by the logger.
// Safe to call any number of times.
func (l *Logger) Cleanup() {
	l.cleanup(false)
}

// cleanup with force set doesn't wait for slot locks: it is used by the abort
// path, which may run on a goroutine already holding one of them.
func (l *Logger) cleanup(force bool) {
	for lvl := range _LVL_MAX_for_checks_only {
		o := &l.outputs[lvl]
		locked := true
		if force {
			locked = o.mtx.TryLock()
		} else {
			o.mtx.Lock()
		}
		l.teardown(o.active.Swap(noSink))
		if locked {
			o.mtx.Unlock()
		}
	}
}

// Returns the published sink of the slot (never nil).
func (o *output) current() *sink {
	if s := o.active.Load(); s != nil {
		return s
	}
	return noSink
}

// Flushes and releases an output that is being replaced. Streams and rings
// belong to the caller and are left open.
func (l *Logger) teardown(s *sink) {
	if s == nil {
		return
	}
	if err := s.flush(); err != nil {
		l.handleLogWriteError("error flushing log output: " + err.Error())
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			l.handleLogWriteError("error closing log file `" + s.path + "`: " + err.Error())
		}
	}
}

/////////////////////////////////////////////////////////////////////////////////////////

// Validates cfg and builds the sink for it, opening the file for OUT_FILEPATH.
func openSink(cfg *OutputConfig) (*sink, error) {
	s := &sink{kind: cfg.Type, flags: cfg.Flags}
	switch cfg.Type {
	case OUT_STREAM:
		if cfg.Stream == nil {
			return nil, ErrNilStream
		}
		s.out = cfg.Stream
	case OUT_FILEPATH:
		if cfg.Path == "" {
			return nil, ErrEmptyPath
		}
		mode := os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if cfg.Flags&FLAG_APPEND == 0 {
			mode |= os.O_TRUNC
		}
		f, err := os.OpenFile(cfg.Path, mode, _FILE_PERM)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file `%s`: %w", cfg.Path, err)
		}
		s.out, s.file, s.path = f, f, cfg.Path
	case OUT_RINGBUF:
		if cfg.Ring == nil || cfg.Ring.buf == nil {
			return nil, ErrNilRingBuffer
		}
		if cfg.Ring.Size() < MIN_RINGBUF_SIZE {
			return nil, fmt.Errorf("%w (%d < %d)", ErrRingBufferTooSmall, cfg.Ring.Size(), MIN_RINGBUF_SIZE)
		}
		s.ring = cfg.Ring
	case OUT_NONE:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOutput, cfg.Type)
	}
	return s, nil
}

// Converts a sink back into the caller-facing configuration.
func (s *sink) config() OutputConfig {
	return OutputConfig{
		Type:   s.kind,
		Stream: s.out,
		Path:   s.path,
		Ring:   s.ring,
		Flags:  s.flags,
	}
}

// Writes data to the sink in a single call.
func (s *sink) write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	switch s.kind {
	case OUT_STREAM, OUT_FILEPATH:
		n, err := s.out.Write(data)
		if err != nil {
			return fmt.Errorf("error writing log to output (%d bytes written): %w", n, err)
		}
	case OUT_RINGBUF:
		s.ring.Append(string(data))
	}
	return nil
}

type flusher interface{ Flush() error }
type syncer interface{ Sync() error }

// Flushes buffered data of writers that support it.
func (s *sink) flush() error {
	if s.out == nil {
		return nil
	}
	if f, ok := s.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}
