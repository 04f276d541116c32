package corelog

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

/*
clients.go

A Module is a named handle for one part of a program (package, subsystem,
goroutine). Every line it logs carries its name, which is rendered in place of
%m by the line formats. Modules are cheap, immutable and safe for concurrent
use; create one per package:

	var log = corelog.NewModule("storage")

	func Open(path string) {
	    log.Info("opening %s", path)
	    ...
	}

Trace and Debug compile to no-ops with the corelog_release build tag.
*/

// Module logs on behalf of a named program part.
type Module struct {
	logger   *Logger
	name     string
	curLevel LogLevel // level used by Write
}

// Constructs a module client of this logger.
func (l *Logger) NewModule(name string) *Module {
	return &Module{logger: l, name: name, curLevel: LVL_INFO}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// Logger returns the logger the module writes to.
func (m *Module) Logger() *Logger {
	return m.logger
}

// Log emits a message at the given level (see Logger.Log).
func (m *Module) Log(level LogLevel, format string, args ...any) {
	m.logger.Log(level, m.name, format, args...)
}

// Trace logs very verbose diagnostics. No-op in release builds.
func (m *Module) Trace(format string, args ...any) {
	if releaseBuild {
		return
	}
	m.logger.Log(LVL_TRACE, m.name, format, args...)
}

// Debug logs developer-focused output. No-op in release builds.
func (m *Module) Debug(format string, args ...any) {
	if releaseBuild {
		return
	}
	m.logger.Log(LVL_DEBUG, m.name, format, args...)
}

func (m *Module) Verbose(format string, args ...any) {
	m.logger.Log(LVL_VERBOSE, m.name, format, args...)
}

func (m *Module) Info(format string, args ...any) {
	m.logger.Log(LVL_INFO, m.name, format, args...)
}

func (m *Module) Warn(format string, args ...any) {
	m.logger.Log(LVL_WARN, m.name, format, args...)
}

func (m *Module) Error(format string, args ...any) {
	m.logger.Log(LVL_ERROR, m.name, format, args...)
}

// Err logs an error value at LVL_ERROR (nil errors are ignored).
func (m *Module) Err(e error) {
	if e != nil {
		m.logger.Log(LVL_ERROR, m.name, e.Error())
	}
}

// Fatal aborts the process with the message (see Logger.Abort). The function
// name in the diagnostic is the caller of Fatal. Unlike Log(LVL_FATAL, ...) it
// does not depend on the minimal level.
func (m *Module) Fatal(format string, args ...any) {
	m.logger.Abort(m.name, callerFunc(2), format, args...)
}

// Assert does nothing if cond holds. Otherwise it logs the failed assertion
// location at LVL_ERROR and aborts with the message.
func (m *Module) Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	m.logger.Log(LVL_ERROR, m.name, "Assertion failed: '%s'", callerLine(2))
	m.logger.Abort(m.name, callerFunc(2), format, args...)
}

// Returns the short name ("Type.Method", "(*Type).Method" or "func") of the
// function skip frames above the caller.
func callerFunc(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "(unknown)"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "(unknown)"
	}
	name := fn.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Returns "file.go:line" of the frame skip levels above the caller.
func callerLine(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "(unknown)"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
