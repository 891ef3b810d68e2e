// Package bytestream implements a capacity-bounded producer/consumer byte
// buffer: the leaf of the TCP endpoint state machine that every other
// component (reassembler, sender) is ultimately backed by.
package bytestream

import "errors"

// ErrZeroCapacity is returned by New when asked to build a stream with no
// room to hold anything.
var ErrZeroCapacity = errors.New("bytestream: capacity must be positive")

// ByteStream is a ring buffer of bytes with a fixed capacity, an
// "input ended" sentinel on the producer side, and an orthogonal error
// flag observable from both sides.
//
// The zero value is not ready to use; construct with New.
type ByteStream struct {
	buf      []byte
	capacity int

	// writeCursor/readCursor are indices into buf modulo capacity.
	writeCursor int
	readCursor  int

	bytesWritten uint64
	bytesRead    uint64

	inputEnded bool
	errored    bool
}

// New returns a ByteStream that holds up to capacity bytes.
func New(capacity int) (*ByteStream, error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	return &ByteStream{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}, nil
}

// Write accepts min(len(data), RemainingCapacity()) bytes of data and
// returns the number accepted. It accepts zero bytes once EndInput has been
// called, or once an error has been set.
func (b *ByteStream) Write(data []byte) int {
	if b.inputEnded || b.errored {
		return 0
	}
	n := len(data)
	if room := b.RemainingCapacity(); n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		b.buf[b.writeCursor] = data[i]
		b.writeCursor = (b.writeCursor + 1) % b.capacity
	}
	b.bytesWritten += uint64(n)
	return n
}

// PeekOutput returns up to len bytes from the front of the unread region,
// without consuming them.
func (b *ByteStream) PeekOutput(length int) []byte {
	n := length
	if size := b.BufferSize(); n > size {
		n = size
	}
	out := make([]byte, n)
	cursor := b.readCursor
	for i := 0; i < n; i++ {
		out[i] = b.buf[cursor]
		cursor = (cursor + 1) % b.capacity
	}
	return out
}

// PopOutput discards up to len bytes from the front of the unread region.
func (b *ByteStream) PopOutput(length int) {
	n := length
	if size := b.BufferSize(); n > size {
		n = size
	}
	b.readCursor = (b.readCursor + n) % b.capacity
	b.bytesRead += uint64(n)
}

// Read peeks then pops up to len bytes, returning what was read.
func (b *ByteStream) Read(length int) []byte {
	out := b.PeekOutput(length)
	b.PopOutput(len(out))
	return out
}

// EndInput signals that no further bytes will ever be written.
func (b *ByteStream) EndInput() { b.inputEnded = true }

// InputEnded reports whether EndInput has been called.
func (b *ByteStream) InputEnded() bool { return b.inputEnded }

// EOF reports whether the input has ended and every written byte has been
// read.
func (b *ByteStream) EOF() bool { return b.inputEnded && b.BufferEmpty() }

// BufferSize returns the number of bytes written but not yet read.
func (b *ByteStream) BufferSize() int { return int(b.bytesWritten - b.bytesRead) }

// BufferEmpty reports whether BufferSize is zero.
func (b *ByteStream) BufferEmpty() bool { return b.BufferSize() == 0 }

// BytesWritten returns the total number of bytes ever written.
func (b *ByteStream) BytesWritten() uint64 { return b.bytesWritten }

// BytesRead returns the total number of bytes ever read.
func (b *ByteStream) BytesRead() uint64 { return b.bytesRead }

// RemainingCapacity returns how many more bytes Write would currently
// accept.
func (b *ByteStream) RemainingCapacity() int { return b.capacity - b.BufferSize() }

// Capacity returns the stream's fixed capacity.
func (b *ByteStream) Capacity() int { return b.capacity }

// SetError marks the stream as errored. The error bit is orthogonal to EOF
// and is observable from both the producer and consumer side.
func (b *ByteStream) SetError() { b.errored = true }

// Error reports whether SetError has been called.
func (b *ByteStream) Error() bool { return b.errored }
