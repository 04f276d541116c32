package corelog

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// RingBuffer is a fixed-size text buffer that overwrites its oldest contents
// once full. The last byte of the storage is reserved for a NUL terminator, and
// after each append the cursor sits on the NUL that ends the newest text, so the
// storage can be read back as a C-like string at any time.
//
// Buffers are owned by the caller: the logger only appends to them and never
// resizes or drops them. A buffer may be shared by several levels.
type RingBuffer struct {
	mtx    sync.Mutex // serializes appends (and resets)
	buf    []byte
	cursor atomic.Uint64
}

// NewRingBuffer allocates a zeroed buffer of the given total size.
func NewRingBuffer(size int) *RingBuffer {
	if size < 0 {
		size = 0
	}
	return &RingBuffer{buf: make([]byte, size)}
}

// Size returns the total storage size (usable capacity is one byte less).
func (r *RingBuffer) Size() int {
	if r == nil {
		return 0
	}
	return len(r.buf)
}

// Cursor returns the current write position (the index of the newest terminator).
func (r *RingBuffer) Cursor() int {
	if r == nil {
		return 0
	}
	return int(r.cursor.Load())
}

// Append writes text followed by a terminator at the cursor, wrapping to the
// start of the storage when the end of the usable capacity is reached. Text that
// does not fit into the usable capacity at all is cut to its tail, and the cursor
// moves as if the dropped head had been written too.
func (r *RingBuffer) Append(text string) {
	if r == nil || r.buf == nil || len(r.buf) <= 1 || len(text) == 0 {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.appendLocked(text)
}

func (r *RingBuffer) appendLocked(text string) {
	usable := len(r.buf) - 1
	r.buf[usable] = 0

	n := len(text) + 1
	idx := int(r.cursor.Load())
	if n > usable {
		d := n - usable
		text = text[d:]
		n = usable
		idx = (idx + d) % usable
	}
	if idx+n > usable {
		first := usable - idx
		copy(r.buf[idx:usable], text[:first])
		text = text[first:]
		n -= first
		idx = 0
	}
	copy(r.buf[idx:], text)
	r.buf[idx+n-1] = 0
	r.cursor.Store(uint64(idx + n - 1))
}

// String returns the storage contents up to the first terminator, or the whole
// storage if there is none. For a buffer that has not wrapped yet this is exactly
// everything appended so far.
func (r *RingBuffer) String() string {
	if r == nil {
		return ""
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return string(r.head())
}

func (r *RingBuffer) head() []byte {
	if i := bytes.IndexByte(r.buf, 0); i >= 0 {
		return r.buf[:i]
	}
	return r.buf
}

// Bytes returns a copy of the raw storage.
func (r *RingBuffer) Bytes() []byte {
	if r == nil {
		return nil
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return bytes.Clone(r.buf)
}

// Ordered returns the buffer contents oldest first: the part after the cursor
// (the remains of wrapped-over text) followed by the part before it. Terminators
// are removed.
func (r *RingBuffer) Ordered() string {
	if r == nil || len(r.buf) <= 1 {
		return ""
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	usable := len(r.buf) - 1
	pos := int(r.cursor.Load())
	var out bytes.Buffer
	out.Grow(usable)
	for _, part := range [][]byte{r.buf[pos:usable], r.buf[:pos]} {
		for _, b := range part {
			if b != 0 {
				out.WriteByte(b)
			}
		}
	}
	return out.String()
}

// Reset zeroes the storage and moves the cursor to the start.
func (r *RingBuffer) Reset() {
	if r == nil {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.resetLocked()
}

func (r *RingBuffer) resetLocked() {
	clear(r.buf)
	r.cursor.Store(0)
}

// drain returns the contents up to the first terminator and zeroes the buffer
// in one step, so no append can land between the copy and the reset.
func (r *RingBuffer) drain() []byte {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	data := bytes.Clone(r.head())
	r.resetLocked()
	return data
}
