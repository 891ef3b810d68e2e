// Package reassembler implements an out-of-order substring store that
// assembles a contiguous byte stream from possibly-overlapping,
// possibly-out-of-order segments.
package reassembler

import "github.com/YukunJ/Sponge-TCP-Protocol/bytestream"

// Reassembler holds bytes pushed out of order until they become
// contiguous with the front of the stream, at which point it writes them
// into the wrapped ByteStream in order.
type Reassembler struct {
	store map[uint64]byte

	stream *bytestream.ByteStream

	// nextIndex is the first stream index not yet written to stream.
	nextIndex uint64

	// eofIndex is the index strictly past the last byte of the stream, once
	// known. eofSeen distinguishes "not yet known" from index 0.
	eofIndex uint64
	eofSeen  bool

	capacity int
}

// New returns a Reassembler that, together with its output stream, never
// holds more than capacity bytes (reassembled or not).
func New(capacity int) (*Reassembler, error) {
	stream, err := bytestream.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Reassembler{
		store:    make(map[uint64]byte),
		stream:   stream,
		capacity: capacity,
	}, nil
}

// StreamOut returns the reassembled, in-order output stream.
func (r *Reassembler) StreamOut() *bytestream.ByteStream { return r.stream }

// firstUnread is the smallest stream index not yet consumed by the reader
// of the output stream.
func (r *Reassembler) firstUnread() uint64 {
	return r.nextIndex - uint64(r.stream.BufferSize())
}

// firstUnacceptable is one past the highest stream index PushSubstring will
// currently accept.
func (r *Reassembler) firstUnacceptable() uint64 {
	return r.firstUnread() + uint64(r.capacity)
}

// PushSubstring accepts a substring of the logical stream starting at the
// given absolute stream index, trims it to the current acceptance window,
// stores any newly-seen bytes, and pushes every run of now-contiguous bytes
// into the output stream. If eof is set, index+len(data) marks the end of
// the stream; once nextIndex reaches that point the output stream's input
// is ended exactly once.
func (r *Reassembler) PushSubstring(data []byte, index uint64, eof bool) {
	begin := index
	end := index + uint64(len(data))

	acceptBegin := r.nextIndex
	acceptEnd := r.firstUnacceptable()

	if begin < acceptBegin {
		begin = acceptBegin
	}
	if end > acceptEnd {
		end = acceptEnd
	}

	if begin >= end {
		// Nothing in range: handle the empty/zero-length EOF edge case and
		// stop.
		if eof && index+uint64(len(data)) == r.nextIndex && len(r.store) == 0 {
			r.stream.EndInput()
		}
		return
	}

	for i := begin; i < end; i++ {
		if _, dup := r.store[i]; !dup {
			r.store[i] = data[i-index]
		}
	}

	if eof {
		r.eofIndex = index + uint64(len(data))
		r.eofSeen = true
	}

	r.tryOutput()
}

// tryOutput drains every run of bytes starting at nextIndex that is
// currently present in the store into the output stream, in order, ending
// the stream's input exactly once nextIndex reaches a known eofIndex.
func (r *Reassembler) tryOutput() {
	var run []byte
	for {
		b, ok := r.store[r.nextIndex]
		if !ok {
			break
		}
		run = append(run, b)
		delete(r.store, r.nextIndex)
		r.nextIndex++
	}
	if len(run) > 0 {
		r.stream.Write(run)
	}
	if r.eofSeen && r.nextIndex == r.eofIndex {
		r.stream.EndInput()
	}
}

// UnassembledBytes returns the number of distinct bytes held in the store
// that have not yet been written to the output stream.
func (r *Reassembler) UnassembledBytes() int { return len(r.store) }

// Empty reports whether the store holds no pending bytes.
func (r *Reassembler) Empty() bool { return len(r.store) == 0 }

// FirstUnassembled returns the first stream index not yet written to the
// output stream.
func (r *Reassembler) FirstUnassembled() uint64 { return r.nextIndex }

// WindowSize returns the reassembler's current admission room: the
// capacity minus what it is already holding (reassembled-but-unread, plus
// unassembled).
func (r *Reassembler) WindowSize() int {
	room := r.capacity - r.stream.BufferSize() - len(r.store)
	if room < 0 {
		room = 0
	}
	return room
}
