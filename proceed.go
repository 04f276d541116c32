package corelog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode/utf8"
)

/*
proceed.go

The emit path: level gate, message formatting, line rendering and the single
write of the rendered line to the level output. Write failures can't be
returned to the caller, they are reported to the fallback writer instead.
*/

var linePool = sync.Pool{
	New: func() any { return bytes.NewBuffer(make([]byte, 0, DEFAULT_OUT_BUFF)) },
}

// Log emits a message at the given level for the given module. The message is
// fmt.Sprintf(format, args...) cut to MAX_MESSAGE_SIZE-1 bytes. Without args
// format is used as is, verbs and escapes included: "100%% done" is logged
// with both percent signs, pass args (or a single "%s") to get one.
//
// Messages below the minimal level are dropped before any formatting. A
// LVL_FATAL message goes to Abort and Log never returns. An invalid level is a
// contract violation and aborts the process too.
func (l *Logger) Log(level LogLevel, module, format string, args ...any) {
	if !level.IsValid() {
		l.contractViolation("Log", "Invalid parameters: `level` (%d) not in range <0, %d>",
			level, _LVL_MAX_for_checks_only)
	}
	if level < l.MinLevel() {
		return
	}
	if level == LVL_FATAL {
		l.Abort(module, "(unknown)", format, args...)
	}
	l.emit(level, module, formatMessage(format, args))
}

// Renders the line and writes it to the level output with one call. The output
// is loaded without the slot lock.
func (l *Logger) emit(level LogLevel, module, message string) {
	s := l.outputs[level].current()
	if s.kind == OUT_NONE {
		return
	}
	linefmt := *l.lines[level].Load()
	if s.flags&FLAG_STRIP_ESC != 0 {
		linefmt = StripEscapes(linefmt, LINEFMT_MAX_SIZE-1)
	}

	buf := linePool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		linePool.Put(buf)
	}()
	renderLine(buf, linefmt, module, message)

	if err := l.writeSafe(s, buf.Bytes()); err != nil && !errors.Is(err, os.ErrClosed) {
		// os.ErrClosed: the file has just been replaced by a reconfiguration
		l.handleLogWriteError(err.Error())
	}
}

// Writes data to the sink converting panics of misbehaving writers to errors.
func (l *Logger) writeSafe(s *sink, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic writing log to output" + panicDesc(r))
		}
	}()
	return s.write(data)
}

// handleLogWriteError writes a human-readable error message to the fallback
// writer. A read lock is used since we only need consistent access to fallbck.
func (l *Logger) handleLogWriteError(errormsg string) {
	l.sync.fbckMtx.RLock()
	defer l.sync.fbckMtx.RUnlock()
	if l.fallbck != nil {
		l.fallbck.Write([]byte(errormsg + "\n"))
	}
}

// Formats the message and cuts it to MAX_MESSAGE_SIZE-1 bytes without
// splitting a UTF-8 sequence.
func formatMessage(format string, args []any) string {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return truncateUTF8(msg, MAX_MESSAGE_SIZE-1)
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && cut > max-utf8.UTFMax && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
