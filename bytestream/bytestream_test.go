package bytestream

import (
	"bytes"
	"testing"
)

func TestNewRejectsZeroCapacity(t *testing.T) {
	if _, err := New(0); err != ErrZeroCapacity {
		t.Fatalf("New(0) error = %v, want ErrZeroCapacity", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	bs, err := New(15)
	if err != nil {
		t.Fatal(err)
	}
	if n := bs.Write([]byte("cat")); n != 3 {
		t.Fatalf("Write = %d, want 3", n)
	}
	if got := bs.Read(3); !bytes.Equal(got, []byte("cat")) {
		t.Fatalf("Read = %q, want %q", got, "cat")
	}
	if !bs.BufferEmpty() {
		t.Fatalf("expected buffer empty after reading everything written")
	}
}

func TestWriteTruncatesToCapacity(t *testing.T) {
	bs, _ := New(2)
	if n := bs.Write([]byte("cat")); n != 2 {
		t.Fatalf("Write = %d, want 2 (truncated to capacity)", n)
	}
	if got := bs.RemainingCapacity(); got != 0 {
		t.Fatalf("RemainingCapacity = %d, want 0", got)
	}
	if got := bs.PeekOutput(10); !bytes.Equal(got, []byte("ca")) {
		t.Fatalf("PeekOutput = %q, want %q", got, "ca")
	}
}

func TestEndInputStopsAcceptingWrites(t *testing.T) {
	bs, _ := New(10)
	bs.Write([]byte("ab"))
	bs.EndInput()
	if n := bs.Write([]byte("cd")); n != 0 {
		t.Fatalf("Write after EndInput = %d, want 0", n)
	}
	if bs.EOF() {
		t.Fatalf("EOF should be false while unread bytes remain")
	}
	bs.PopOutput(2)
	if !bs.EOF() {
		t.Fatalf("EOF should be true once input ended and buffer drained")
	}
}

func TestErrorIsOrthogonalToEOF(t *testing.T) {
	bs, _ := New(10)
	bs.SetError()
	if bs.EOF() {
		t.Fatalf("setting the error bit must not imply EOF")
	}
	if !bs.Error() {
		t.Fatalf("Error() should report true after SetError")
	}
	if n := bs.Write([]byte("x")); n != 0 {
		t.Fatalf("Write after SetError = %d, want 0", n)
	}
}

func TestRingWrapsAroundCorrectly(t *testing.T) {
	bs, _ := New(4)
	bs.Write([]byte("ab"))
	bs.Read(2)
	// Both cursors now sit mid-buffer; a full-capacity write must wrap the
	// write cursor around and still be fully usable.
	if n := bs.Write([]byte("cdef")); n != 4 {
		t.Fatalf("Write after wraparound = %d, want 4", n)
	}
	if got := bs.Read(4); !bytes.Equal(got, []byte("cdef")) {
		t.Fatalf("Read after wraparound = %q, want %q", got, "cdef")
	}
}

func TestInvariantBufferSizePlusRemaining(t *testing.T) {
	bs, _ := New(8)
	for _, w := range [][]byte{[]byte("abc"), []byte("de")} {
		bs.Write(w)
		if bs.BufferSize()+bs.RemainingCapacity() != bs.Capacity() {
			t.Fatalf("invariant violated: %d + %d != %d", bs.BufferSize(), bs.RemainingCapacity(), bs.Capacity())
		}
	}
	bs.Read(1)
	if bs.BufferSize()+bs.RemainingCapacity() != bs.Capacity() {
		t.Fatalf("invariant violated after read")
	}
}
