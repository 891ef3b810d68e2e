package tcp

import (
	"testing"

	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

func mustReceiver(t *testing.T, capacity int) *receiver {
	t.Helper()
	r, err := newReceiver(capacity)
	if err != nil {
		t.Fatalf("newReceiver: %v", err)
	}
	return r
}

func TestReceiverLatchesISNOnSyn(t *testing.T) {
	r := mustReceiver(t, 4000)
	if _, ok := r.Ackno(); ok {
		t.Fatalf("ackno defined before SYN")
	}

	isn := seqnum.Value(42)
	r.segmentReceived(&Segment{SeqNum: isn, Flags: FlagSyn})

	ackno, ok := r.Ackno()
	if !ok {
		t.Fatalf("ackno still undefined after SYN")
	}
	if want := isn.Add(1); ackno != want {
		t.Fatalf("ackno = %v, want %v", ackno, want)
	}
}

func TestReceiverRejectsSecondDifferentSyn(t *testing.T) {
	r := mustReceiver(t, 4000)
	isn := seqnum.Value(100)
	r.segmentReceived(&Segment{SeqNum: isn, Flags: FlagSyn})
	r.segmentReceived(&Segment{SeqNum: isn.Add(50), Flags: FlagSyn})

	ackno, _ := r.Ackno()
	if want := isn.Add(1); ackno != want {
		t.Fatalf("second SYN should have been rejected, ackno = %v, want %v", ackno, want)
	}
}

func TestReceiverRejectsDataBeforeSyn(t *testing.T) {
	r := mustReceiver(t, 4000)
	r.segmentReceived(&Segment{SeqNum: 1, Payload: []byte("hi")})
	if _, ok := r.Ackno(); ok {
		t.Fatalf("data before SYN should not establish ackno")
	}
}

func TestReceiverReassemblesInOrderPayload(t *testing.T) {
	r := mustReceiver(t, 4000)
	isn := seqnum.Value(0)
	r.segmentReceived(&Segment{SeqNum: isn, Flags: FlagSyn})
	r.segmentReceived(&Segment{SeqNum: isn.Add(1), Payload: []byte("hello")})

	ackno, _ := r.Ackno()
	if want := isn.Add(6); ackno != want {
		t.Fatalf("ackno = %v, want %v", ackno, want)
	}
	got := string(r.reasm.StreamOut().Read(5))
	if got != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

func TestReceiverAcknoAdvancesOnceFinConsumed(t *testing.T) {
	r := mustReceiver(t, 4000)
	isn := seqnum.Value(0)
	r.segmentReceived(&Segment{SeqNum: isn, Flags: FlagSyn})
	r.segmentReceived(&Segment{SeqNum: isn.Add(1), Payload: []byte("hi"), Flags: FlagFin})

	ackno, _ := r.Ackno()
	if want := isn.Add(4); ackno != want {
		t.Fatalf("ackno = %v, want %v (SYN+2+FIN)", ackno, want)
	}
}

func TestReceiverDropsOutOfWindowSegment(t *testing.T) {
	r := mustReceiver(t, 4)
	isn := seqnum.Value(0)
	r.segmentReceived(&Segment{SeqNum: isn, Flags: FlagSyn})
	// window is 4; a segment starting far beyond it must be dropped.
	r.segmentReceived(&Segment{SeqNum: isn.Add(100), Payload: []byte("x")})

	if r.UnassembledBytes() != 0 {
		t.Fatalf("out-of-window segment should have been dropped, got %d unassembled bytes", r.UnassembledBytes())
	}
}

func TestReceiverAcceptsZeroLengthProbeAtExpectedAck(t *testing.T) {
	r := mustReceiver(t, 4000)
	isn := seqnum.Value(0)
	r.segmentReceived(&Segment{SeqNum: isn, Flags: FlagSyn})
	before, _ := r.Ackno()
	r.segmentReceived(&Segment{SeqNum: isn.Add(1)})
	after, _ := r.Ackno()
	if before != after {
		t.Fatalf("zero-length probe should not change ackno: before %v after %v", before, after)
	}
}
