package tcp

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/YukunJ/Sponge-TCP-Protocol/bytestream"
	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

// sender holds the state necessary to send TCP segments: it owns an
// outgoing byte stream, divides it into segments honoring the peer's
// advertised window, tracks which segments are outstanding, and maintains
// the single retransmission timer with exponential back-off.
type sender struct {
	isn seqnum.Value

	stream *bytestream.ByteStream

	nextAbsSeqno uint64
	bytesInFlight uint64

	outstanding outstandingQueue
	outbound    outboundQueue

	windowSize uint64
	freeSpace  uint64

	synSent bool
	finSent bool

	timerRunning bool
	elapsedMS    uint64

	initialRTO uint64
	rto        uint64

	consecutiveRetx uint32

	maxPayloadSize int
}

// newSender constructs a sender with the given capacity and retransmission
// parameters. If fixedISN is nil, randomSource (defaulting to crypto/rand)
// supplies the ISN's 32 random bits.
func newSender(capacity int, initialRTO uint64, maxPayloadSize int, fixedISN *seqnum.Value, randomSource func() (uint32, error)) (*sender, error) {
	stream, err := bytestream.New(capacity)
	if err != nil {
		return nil, err
	}

	var isn seqnum.Value
	if fixedISN != nil {
		isn = *fixedISN
	} else {
		if randomSource == nil {
			randomSource = randomISN
		}
		n, err := randomSource()
		if err != nil {
			return nil, err
		}
		isn = seqnum.Value(n)
	}

	return &sender{
		isn:            isn,
		stream:         stream,
		initialRTO:     initialRTO,
		rto:            initialRTO,
		maxPayloadSize: maxPayloadSize,
	}, nil
}

func randomISN() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// Stream returns the sender's outgoing byte stream (the producer side that
// Connection.Write writes into).
func (s *sender) Stream() *bytestream.ByteStream { return s.stream }

// nextSeqno is the wire-format sequence number of the next byte to send.
func (s *sender) nextSeqno() seqnum.Value { return seqnum.Wrap(s.nextAbsSeqno, s.isn) }

// send assigns seq/length bookkeeping to seg, queues it for emission and as
// outstanding, and starts the retransmission timer if it is not already
// running. Every caller of send
// occupies sequence space; a segment that doesn't (a pure empty ACK) goes
// out via sendEmptySegment instead, bypassing this bookkeeping entirely.
func (s *sender) send(seg *Segment) {
	s.outbound.pushBack(*seg)

	length := seg.LengthInSequenceSpace()
	s.nextAbsSeqno += uint64(length)
	s.bytesInFlight += uint64(length)

	if !s.timerRunning {
		s.timerRunning = true
		s.elapsedMS = 0
	}

	s.outstanding.pushBack(seg)
}

// fillWindow emits segments honoring the peer's advertised window and the
// local byte stream.
func (s *sender) fillWindow() {
	if !s.synSent {
		s.synSent = true
		seg := &Segment{SeqNum: s.nextSeqno(), Flags: FlagSyn}
		s.send(seg)
		return
	}

	if front := s.outstanding.front(); front != nil && front.Syn() {
		// SYN outstanding, unacknowledged: nothing more to send yet.
		return
	}
	if s.finSent {
		return
	}
	if !s.stream.InputEnded() && s.stream.BufferEmpty() {
		return
	}

	if s.windowSize > 0 {
		for s.freeSpace > 0 {
			payloadLen := s.stream.BufferSize()
			if uint64(payloadLen) > s.freeSpace {
				payloadLen = int(s.freeSpace)
			}
			if payloadLen > s.maxPayloadSize {
				payloadLen = s.maxPayloadSize
			}

			payload := s.stream.Read(payloadLen)
			seg := &Segment{SeqNum: s.nextSeqno(), Payload: payload}

			if s.stream.EOF() && s.freeSpace > uint64(payloadLen) {
				seg.Flags |= FlagFin
				s.finSent = true
			}

			s.freeSpace -= uint64(seg.LengthInSequenceSpace())
			s.send(seg)

			if s.stream.BufferEmpty() && !(s.stream.EOF() && !s.finSent) {
				break
			}
			if s.finSent {
				break
			}
		}
		return
	}

	// Zero window: probe for at most one segment, treating the window as
	// if it were 1: nothing goes out while anything is still in flight.
	if s.bytesInFlight != 0 {
		return
	}
	if s.stream.EOF() {
		seg := &Segment{SeqNum: s.nextSeqno(), Flags: FlagFin}
		s.finSent = true
		s.send(seg)
	} else if !s.stream.BufferEmpty() {
		payload := s.stream.Read(1)
		seg := &Segment{SeqNum: s.nextSeqno(), Payload: payload}
		s.send(seg)
	}
}

// validAckno reports whether abs is a plausible absolute ackno: not beyond
// what has been sent, and not below the earliest outstanding segment.
func (s *sender) validAckno(abs uint64) bool {
	if abs > s.nextAbsSeqno {
		return false
	}
	if front := s.outstanding.front(); front != nil {
		frontAbs := seqnum.Unwrap(front.SeqNum, s.isn, s.nextAbsSeqno)
		return abs >= frontAbs
	}
	return true
}

// ackReceived folds a new acknowledgement and advertised window into the
// sender's state, popping every fully-acknowledged outstanding segment and
// opportunistically filling the window with more.
func (s *sender) ackReceived(ackno seqnum.Value, window seqnum.Size) {
	absAckno := seqnum.Unwrap(ackno, s.isn, s.nextAbsSeqno)
	if !s.validAckno(absAckno) {
		return
	}

	s.windowSize = uint64(window)
	s.freeSpace = uint64(window)

	for {
		front := s.outstanding.front()
		if front == nil {
			break
		}
		frontAbs := seqnum.Unwrap(front.SeqNum, s.isn, s.nextAbsSeqno)
		frontLen := uint64(front.LengthInSequenceSpace())
		if frontAbs+frontLen > absAckno {
			break
		}
		s.outstanding.popFront()
		s.bytesInFlight -= frontLen
		s.rto = s.initialRTO
		s.elapsedMS = 0
		s.consecutiveRetx = 0
	}

	if s.bytesInFlight >= s.freeSpace {
		s.freeSpace = 0
	} else {
		s.freeSpace -= s.bytesInFlight
	}

	if s.bytesInFlight == 0 {
		s.timerRunning = false
	}

	s.fillWindow()
}

// tick advances the retransmission timer by ms milliseconds, retransmitting
// the oldest outstanding segment and backing off if the timer has expired.
func (s *sender) tick(ms uint64) {
	if !s.timerRunning {
		return
	}
	s.elapsedMS += ms
	if s.elapsedMS < s.rto {
		return
	}

	front := s.outstanding.front()
	if front != nil {
		s.outbound.pushBack(*front)

		if s.windowSize != 0 || front.Syn() {
			s.consecutiveRetx++
			s.rto *= 2
		}
	}
	s.elapsedMS = 0
}

// sendEmptySegment emits a zero-length segment at the current next seqno,
// bypassing send entirely: it occupies no sequence space, is never
// retransmitted, and must not start or perturb the retransmission timer.
func (s *sender) sendEmptySegment() {
	seg := &Segment{SeqNum: s.nextSeqno()}
	s.outbound.pushBack(*seg)
}

// BytesInFlight returns the number of sequence numbers currently occupied
// by segments sent but not yet fully acknowledged.
func (s *sender) BytesInFlight() uint64 { return s.bytesInFlight }

// ConsecutiveRetransmissions returns the number of consecutive
// retransmissions that have occurred without an intervening ack that
// advanced coverage.
func (s *sender) ConsecutiveRetransmissions() uint32 { return s.consecutiveRetx }

// RTO returns the sender's current retransmission timeout in milliseconds.
func (s *sender) RTO() uint64 { return s.rto }
