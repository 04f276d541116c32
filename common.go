package corelog

/*
Package-wide constants, enums and helper utilities used by the logging core:
  - default sizes and limits
  - ANSI escape fragments used by the default line formats
  - enums for levels, output types and configuration flags
  - normalization helpers
*/

import (
	"errors"
	"fmt"
	"strings"
)

type basetype byte // basetype is the underlying byte-sized representation used for enums

type LogLevel basetype    // Severity levels (alias for byte)
type OutputType basetype  // Output sink variants
type ConfigFlags basetype // Additional output configuration flags (bit set)
type lineToken basetype   // Line format tokenizer results

type LevelMask uint32 // Bit set of levels, bit N stands for LogLevel(N)

const (
	// Log level values in ascending severity. _LVL_MAX_for_checks_only is the
	// exclusive upper bound of real levels, LVL_DISABLED sits above all of them.
	LVL_TRACE LogLevel = iota
	LVL_DEBUG
	LVL_VERBOSE
	LVL_INFO
	LVL_WARN
	LVL_ERROR
	LVL_FATAL
	_LVL_MAX_for_checks_only
	LVL_DISABLED = _LVL_MAX_for_checks_only
)

const (
	MASK_TRACE LevelMask = 1 << iota
	MASK_DEBUG
	MASK_VERBOSE
	MASK_INFO
	MASK_WARN
	MASK_ERROR
	MASK_FATAL

	// Levels associated with the standard output stream
	MASK_STDOUT = MASK_TRACE | MASK_DEBUG | MASK_VERBOSE | MASK_INFO
	// Levels associated with the standard error stream
	MASK_STDERR = MASK_WARN | MASK_ERROR | MASK_FATAL
	MASK_ALL    = MASK_STDOUT | MASK_STDERR
)

const (
	OUT_STREAM   OutputType = iota // caller-owned io.Writer, never closed by the core
	OUT_FILEPATH                   // file opened (and closed) by the core
	OUT_RINGBUF                    // caller-owned in-memory wraparound buffer
	OUT_NONE                       // level is disabled
	_OUT_MAX_for_checks_only
)

const (
	// Used only by OUT_FILEPATH: open the file in append mode instead of truncating it.
	FLAG_APPEND ConfigFlags = 1 << iota
	// Used only when the previous output is OUT_RINGBUF: its contents are written
	// to the new output before the switch and the buffer is cleared afterwards.
	FLAG_COPY
	// Strip ANSI terminal escape sequences from the line format (never from the
	// message itself). Recommended for files, not for terminals.
	FLAG_STRIP_ESC
)

const (
	_TOKEN_END lineToken = iota
	_TOKEN_LITERAL
	_TOKEN_MODULE
	_TOKEN_MESSAGE
)

const (
	DEFAULT_LOG_LEVEL    = LVL_TRACE
	DEFAULT_RINGBUF_SIZE = 4096 // size of each of the two startup buffers
	DEFAULT_OUT_BUFF     = 256  // initial capacity of a line render buffer
	MIN_RINGBUF_SIZE     = 16   // smaller buffers are rejected as outputs
	MAX_MESSAGE_SIZE     = 4096 // rendered messages are cut to MAX_MESSAGE_SIZE-1 bytes
	LINEFMT_MAX_SIZE     = 64   // line formats must be shorter than this
	FATAL_EXIT_CODE      = 1
	MODULE_NAME          = "log" // module name used by the core for its own messages

	_LINEFMT_LITERAL_MAX = 127 // longest literal token produced by the tokenizer
	_FILE_PERM           = 0o644
)

const (
	// ANSI escape fragments used in the default line formats.
	ANSI_COL_PRFX  = "\033["
	ANSI_COL_SUFX  = "m"
	ANSI_COL_RESET = ANSI_COL_PRFX + "0" + ANSI_COL_SUFX
	ANSI_BOLD      = ANSI_COL_PRFX + "1" + ANSI_COL_SUFX
	ANSI_DIM       = ANSI_COL_PRFX + "2" + ANSI_COL_SUFX
	ANSI_UNDERLINE = ANSI_COL_PRFX + "4" + ANSI_COL_SUFX
	ANSI_FG_RED    = ANSI_COL_PRFX + "31" + ANSI_COL_SUFX
	ANSI_FG_YELLOW = ANSI_COL_PRFX + "33" + ANSI_COL_SUFX
	ANSI_FG_GRAY   = ANSI_COL_PRFX + "90" + ANSI_COL_SUFX
)

const (
	// Error messages used across the core (used for testing).
	_ERROR_MESSAGE_NIL_STREAM        = "output stream is nil"
	_ERROR_MESSAGE_EMPTY_PATH        = "output file path is empty"
	_ERROR_MESSAGE_NIL_RINGBUF       = "output ring buffer is nil"
	_ERROR_MESSAGE_RINGBUF_TOO_SMALL = "output ring buffer is smaller than the minimum size"
	_ERROR_MESSAGE_UNKNOWN_OUTPUT    = "unknown output type"
	_ERROR_MESSAGE_UNKNOWN_LEVEL     = "unknown log level"
	_ERROR_UNKNOWN_PANIC_TEXT        = "[no panic description]"
)

var (
	ErrNilStream          = errors.New(_ERROR_MESSAGE_NIL_STREAM)
	ErrEmptyPath          = errors.New(_ERROR_MESSAGE_EMPTY_PATH)
	ErrNilRingBuffer      = errors.New(_ERROR_MESSAGE_NIL_RINGBUF)
	ErrRingBufferTooSmall = errors.New(_ERROR_MESSAGE_RINGBUF_TOO_SMALL)
	ErrUnknownOutput      = errors.New(_ERROR_MESSAGE_UNKNOWN_OUTPUT)
	ErrUnknownLevel       = errors.New(_ERROR_MESSAGE_UNKNOWN_LEVEL)
)

/////////////////////////////////////////////////////////////////////////////////////////

// LevelMap is a fixed-size array with one entry per real log level.
type LevelMap [_LVL_MAX_for_checks_only]string

var LevelShortNames = &LevelMap{
	"TRC", //LVL_TRACE
	"DBG", //LVL_DEBUG
	"VRB", //LVL_VERBOSE
	"INF", //LVL_INFO
	"WRN", //LVL_WARN
	"ERR", //LVL_ERROR
	"FTL", //LVL_FATAL
}

var LevelFullNames = &LevelMap{
	"TRACE",   //LVL_TRACE
	"DEBUG",   //LVL_DEBUG
	"VERBOSE", //LVL_VERBOSE
	"INFO",    //LVL_INFO
	"WARNING", //LVL_WARN
	"ERROR",   //LVL_ERROR
	"FATAL",   //LVL_FATAL
}

// Default per-level line formats. All of them fit in LINEFMT_MAX_SIZE.
var DefaultLineFormats = &LevelMap{
	ANSI_DIM + "T [%m] %s" + ANSI_COL_RESET + "\n",                  //LVL_TRACE
	ANSI_FG_GRAY + "D " + ANSI_COL_RESET + "[%m] %s\n",              //LVL_DEBUG
	"V [%m] %s\n",                                                   //LVL_VERBOSE
	ANSI_BOLD + "I " + ANSI_COL_RESET + "[%m] %s\n",                 //LVL_INFO
	ANSI_BOLD + ANSI_FG_YELLOW + "W " + ANSI_COL_RESET + "[%m] %s\n", //LVL_WARN
	ANSI_UNDERLINE + ANSI_BOLD + ANSI_FG_RED + "E " + ANSI_COL_RESET +
		ANSI_UNDERLINE + "[%m] %s" + ANSI_COL_RESET + "\n", //LVL_ERROR
	"[%m] %s\n", //LVL_FATAL
}

var outputTypeNames = [_OUT_MAX_for_checks_only]string{
	"stream",   //OUT_STREAM
	"filepath", //OUT_FILEPATH
	"ringbuf",  //OUT_RINGBUF
	"none",     //OUT_NONE
}

// String returns the full upper-case name of the level ("DISABLED" for the
// sentinel, "UNKNOWN" for anything else out of range).
func (lvl LogLevel) String() string {
	if lvl.IsValid() {
		return LevelFullNames[lvl]
	}
	if lvl == LVL_DISABLED {
		return "DISABLED"
	}
	return "UNKNOWN"
}

// IsValid reports whether lvl is a real level (the disabled sentinel is not).
func (lvl LogLevel) IsValid() bool {
	return lvl < _LVL_MAX_for_checks_only
}

func (t OutputType) String() string {
	if t < _OUT_MAX_for_checks_only {
		return outputTypeNames[t]
	}
	return "unknown"
}

// ParseLevel parses a level name (case-insensitive, full or short form).
// "disabled", "off" and "none" map to LVL_DISABLED.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "DISABLED", "OFF", "NONE":
		return LVL_DISABLED, nil
	case "WARN":
		return LVL_WARN, nil
	}
	for lvl := range _LVL_MAX_for_checks_only {
		if name == LevelFullNames[lvl] || name == LevelShortNames[lvl] {
			return lvl, nil
		}
	}
	return LVL_DISABLED, fmt.Errorf("%w: `%s`", ErrUnknownLevel, s)
}

// Mask builds a level mask from the given levels (invalid levels are ignored).
func Mask(levels ...LogLevel) (m LevelMask) {
	for _, lvl := range levels {
		if lvl.IsValid() {
			m |= 1 << lvl
		}
	}
	return m
}

// Has reports whether the mask includes lvl.
func (m LevelMask) Has(lvl LogLevel) bool {
	return lvl.IsValid() && m&(1<<lvl) != 0
}

// Generic byte normalization helper.
func norm_byte[T ~byte](val, overlimit, def T) T {
	if val < overlimit {
		return val
	} else {
		return def
	}
}

// Ensures a minimal level is a real level or the disabled sentinel
func normMinLevel(level LogLevel) LogLevel {
	return norm_byte(level, LVL_DISABLED, LVL_DISABLED)
}

// Converts a panic value into a compact readable string (used when
// translating panics of misbehaving writers into fallback messages)
func panicDesc(panic any) (errtext string) {
	switch v := panic.(type) {
	case string:
		errtext = ": `" + v + "`"
	case error:
		errtext = ": (error) `" + v.Error() + "`"
	default:
		errtext = " " + _ERROR_UNKNOWN_PANIC_TEXT
	}
	return errtext
}
