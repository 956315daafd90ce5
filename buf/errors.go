package buf

import "errors"

var (
	// ErrOutOfMemory indicates a FixedBuffer allocation would exceed the
	// buffer's capacity. Fixed buffers never grow; the caller must reset
	// or use a larger buffer.
	ErrOutOfMemory = errors.New("buf: fixed buffer capacity exceeded")

	// ErrResourceExhausted indicates the raw memory provider could not
	// supply a new region. There is no recovery inside this package; the
	// host is out of memory.
	ErrResourceExhausted = errors.New("buf: cannot reserve memory region")

	// ErrForeignCheckpoint indicates a checkpoint was restored against a
	// buffer other than the one it was saved from.
	ErrForeignCheckpoint = errors.New("buf: checkpoint belongs to a different buffer")

	// ErrCheckpointOrder indicates a checkpoint was restored out of
	// last-in-first-out order, or restored a second time.
	ErrCheckpointOrder = errors.New("buf: checkpoint restored out of order")

	// ErrBufferClosed indicates an operation on a closed buffer.
	ErrBufferClosed = errors.New("buf: buffer closed")
)
