package corelog

import "sync/atomic"

// The process-wide logger used by the package-level functions. It is built by
// New when the package is initialized and can be swapped with ReplaceGlobal.
var global atomic.Pointer[Logger]

func init() {
	global.Store(New())
}

// Default returns the process-wide logger.
func Default() *Logger {
	return global.Load()
}

// ReplaceGlobal makes l the process-wide logger and returns the previous one
// (nil is ignored). The previous logger is not cleaned up.
func ReplaceGlobal(l *Logger) (prev *Logger) {
	if l == nil {
		return global.Load()
	}
	return global.Swap(l)
}

func Log(level LogLevel, module, format string, args ...any) {
	Default().Log(level, module, format, args...)
}

func Abort(module, function, format string, args ...any) {
	Default().Abort(module, function, format, args...)
}

func ConfigureOutput(level LogLevel, newcfg, oldcfg *OutputConfig) error {
	return Default().ConfigureOutput(level, newcfg, oldcfg)
}

func ConfigureOutputs(mask LevelMask, cfg *OutputConfig) int {
	return Default().ConfigureOutputs(mask, cfg)
}

func ConfigureLine(level LogLevel, newfmt *string) string {
	return Default().ConfigureLine(level, newfmt)
}

func SetMinLevel(level LogLevel) {
	Default().SetMinLevel(level)
}

func MinLevel() LogLevel {
	return Default().MinLevel()
}

func Cleanup() {
	Default().Cleanup()
}

// NewModule creates a module client of the process-wide logger current at the
// moment of the call.
func NewModule(name string) *Module {
	return Default().NewModule(name)
}
