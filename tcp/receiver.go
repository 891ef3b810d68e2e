package tcp

import (
	"github.com/YukunJ/Sponge-TCP-Protocol/reassembler"
	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

// receiver holds the state necessary to receive TCP segments and turn them
// into a stream of bytes: the ISN of the peer (once seen), a reassembler
// that owns the incoming byte stream, and the FIN bookkeeping needed to
// compute ackno.
type receiver struct {
	reasm *reassembler.Reassembler

	isn    seqnum.Value
	isnSet bool

	// absFin is the absolute sequence number one past the FIN, once a FIN
	// has been accepted within the window.
	absFin    uint64
	absFinSet bool
}

func newReceiver(capacity int) (*receiver, error) {
	r, err := reassembler.New(capacity)
	if err != nil {
		return nil, err
	}
	return &receiver{reasm: r}, nil
}

// segmentReceived folds an inbound segment into the receiver's state,
// latching the peer's ISN on SYN, rejecting anything outside the current
// acceptance window, and pushing any accepted payload to the reassembler.
func (r *receiver) segmentReceived(seg *Segment) {
	if seg.Syn() && r.isnSet && seg.SeqNum != r.isn {
		// Different SYN beginning than the one already latched: reject.
		return
	}

	// expectedAck reflects the receiver's state prior to this segment, so
	// the very first SYN (which latches the ISN in this same call) is
	// checked against "nothing received yet" rather than against a window
	// that already assumes the SYN landed.
	expectedAck := r.absAckno()

	if seg.Syn() && !r.isnSet {
		r.isn = seg.SeqNum
		r.isnSet = true
	}
	if !r.isnSet {
		// Cannot accept data before a SYN has established the ISN.
		return
	}

	checkpoint := r.reasm.FirstUnassembled()
	absSeqno := seqnum.Unwrap(seg.SeqNum, r.isn, checkpoint)

	streamIdx := uint64(0)
	if absSeqno > 0 {
		streamIdx = absSeqno - 1
	}

	windowSize := uint64(r.WindowSize())
	length := uint64(seg.LengthInSequenceSpace())

	inWindow := absSeqno < expectedAck+windowSize && absSeqno+length > expectedAck
	zeroLengthProbe := length == 0 && absSeqno == expectedAck
	if !inWindow && !zeroLengthProbe {
		// Outside the window entirely: silently drop.
		return
	}

	fin := seg.Fin()
	if fin && streamIdx+uint64(len(seg.Payload)) > checkpoint+windowSize {
		// The payload runs past the window's right edge, so the FIN that
		// follows it is outside too: accept the in-window data, drop the FIN.
		fin = false
	}
	if fin {
		r.absFin = absSeqno + length
		r.absFinSet = true
	}

	r.reasm.PushSubstring(seg.Payload, streamIdx, fin)
}

// absAckno is the absolute sequence number of the next byte the receiver
// expects, counting the SYN and, once delivered, the FIN.
func (r *receiver) absAckno() uint64 {
	if !r.isnSet {
		return 0
	}
	ack := 1 + r.reasm.FirstUnassembled()
	if r.absFinSet && ack+1 == r.absFin {
		ack++
	}
	return ack
}

// Ackno returns the wire-format acknowledgement number, and whether one is
// defined yet (it isn't until a SYN has been seen).
func (r *receiver) Ackno() (seqnum.Value, bool) {
	if !r.isnSet {
		return 0, false
	}
	return seqnum.Wrap(r.absAckno(), r.isn), true
}

// WindowSize returns the receiver's currently advertised admission room:
// the reassembler's capacity minus what it already holds, reassembled and
// unassembled both — clamped to fit the wire's 16-bit window field only
// when a caller actually stamps it onto a segment (internally it may
// exceed 2^16-1).
func (r *receiver) WindowSize() int {
	return r.reasm.WindowSize()
}

// UnassembledBytes reports how many bytes the reassembler is holding that
// have not yet been written to the output stream.
func (r *receiver) UnassembledBytes() int { return r.reasm.UnassembledBytes() }
