package corelog

import (
	"bytes"
	"io"
)

const _ABORT_TRAILER = "\nFatal error encountered. Terminating.\n"

// Abort writes a fatal diagnostic, closes every output and terminates the
// process through the exit handler with FATAL_EXIT_CODE. It never returns.
//
// The diagnostic goes to the LVL_FATAL output if it is a stream or a file and to
// the logger stderr (see SetStderr) otherwise:
//
//	[module] FATAL ERROR: function: message
//	Fatal error encountered. Terminating.
//
// An abort started while another one is running waits for the first one to
// write its diagnostic and clean up, then exits without a diagnostic of its own.
func (l *Logger) Abort(module, function, format string, args ...any) {
	l.sync.exitMtx.RLock()
	exitfn, stderr := l.exitfn, l.stderr
	l.sync.exitMtx.RUnlock()

	if l.aborting.CompareAndSwap(false, true) {
		dest := stderr
		if s := l.outputs[LVL_FATAL].current(); s.out != nil {
			dest = s.out
		}
		var buf bytes.Buffer
		buf.WriteString("[" + module + "] FATAL ERROR: " + function + ": ")
		buf.WriteString(formatMessage(format, args))
		buf.WriteString(_ABORT_TRAILER)
		writeAndFlush(dest, buf.Bytes())
		l.cleanup(true)
		close(l.aborted)
	} else {
		<-l.aborted
	}

	exitfn(FATAL_EXIT_CODE)
	panic("corelog: exit handler returned after a fatal error")
}

// Contract violations by callers of the logger are fatal.
func (l *Logger) contractViolation(function, format string, args ...any) {
	l.Abort(MODULE_NAME, function, format, args...)
}

// Best effort: the process is going down anyway, so errors and panics of the
// destination are ignored.
func writeAndFlush(w io.Writer, data []byte) {
	defer func() { recover() }()
	w.Write(data)
	switch f := w.(type) {
	case syncer:
		f.Sync()
	case flusher:
		f.Flush()
	}
}
