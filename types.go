package corelog

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
)

/*
types.go

Defines the core data structures of the logger:
  - OutputConfig: caller-facing description of a level's output
  - sink: immutable published snapshot of an active output
  - output: per-level slot (reconfiguration lock + active sink)
  - Logger: the process-scoped state owning levels, line formats and outputs
*/

// OutputConfig describes an output for a single level. Only the field matching
// Type is used: Stream for OUT_STREAM, Path for OUT_FILEPATH, Ring for OUT_RINGBUF.
//
// When returned by ReadOutput or ConfigureOutput for OUT_FILEPATH, Stream holds
// the file opened by the logger (do not close it, it belongs to the logger).
type OutputConfig struct {
	Type   OutputType
	Stream io.Writer
	Path   string
	Ring   *RingBuffer
	Flags  ConfigFlags
}

// sink is never mutated after being published to an output slot, so the
// emit path may read it without holding the slot lock.
type sink struct {
	kind  OutputType
	out   io.Writer   // stream or file (nil for rings and none)
	file  *os.File    // non-nil only when the file is owned by the logger
	path  string      // OUT_FILEPATH only
	ring  *RingBuffer // OUT_RINGBUF only
	flags ConfigFlags
}

// output is the per-level slot. mtx serializes reconfiguration and explicit
// reads, active is loaded lock-free by the emit path.
type output struct {
	mtx    sync.Mutex
	active atomic.Pointer[sink]
}

// Logger holds the whole mutable state of a logging core. Create it with New.
type Logger struct {
	sync struct {
		fbckMtx sync.RWMutex // guards access to fallback writer
		exitMtx sync.RWMutex // guards the exit handler and stderr
	}
	level    atomic.Uint32 // minimal level (LogLevel stored as uint32)
	lines    [_LVL_MAX_for_checks_only]atomic.Pointer[string]
	outputs  [_LVL_MAX_for_checks_only]output
	outRing  *RingBuffer // startup buffer shared by MASK_STDOUT levels
	errRing  *RingBuffer // startup buffer shared by MASK_STDERR levels
	fallbck  io.Writer   // receives write failures that have no return path
	stderr   io.Writer   // abort destination when the fatal output has no stream
	exitfn   func(int)
	aborting atomic.Bool
	aborted  chan struct{} // closed once the first abort has written and cleaned up
}
