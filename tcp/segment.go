// Package tcp implements the receiver, sender, and connection-supervisor
// components of a user-space TCP endpoint state machine: the part of the
// protocol that turns a reliable, in-order byte stream into a sequence of
// wire segments and back, independent of how those segments are actually
// carried (that adapter, along with checksums, options, and congestion
// control, is out of scope here).
package tcp

import (
	"github.com/YukunJ/Sponge-TCP-Protocol/buffer"
	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

// Flag bits that may be set on a Segment.
const (
	FlagFin uint8 = 1 << iota
	FlagSyn
	FlagRst
	FlagPsh
	FlagAck
	FlagUrg
)

// Segment is the wire-independent shape of a TCP segment as consumed by
// segment_received and produced onto the outbound queue: a header plus an
// opaque payload. Checksum and port fields belong to the transport adapter
// and are not modeled here.
type Segment struct {
	SeqNum  seqnum.Value
	AckNum  seqnum.Value
	Win     seqnum.Size
	Flags   uint8
	Payload buffer.View

	// segmentEntry links this Segment into the sender's outstanding-segment
	// ilist.List. The outbound-emission queue holds plain copies instead.
	segmentEntry
}

func (s *Segment) Syn() bool { return s.Flags&FlagSyn != 0 }
func (s *Segment) Fin() bool { return s.Flags&FlagFin != 0 }
func (s *Segment) Ack() bool { return s.Flags&FlagAck != 0 }
func (s *Segment) Rst() bool { return s.Flags&FlagRst != 0 }

// LengthInSequenceSpace is the number of sequence numbers this segment
// occupies: one payload byte each, plus one for SYN, plus one for FIN.
func (s *Segment) LengthInSequenceSpace() seqnum.Size {
	n := seqnum.Size(len(s.Payload))
	if s.Syn() {
		n++
	}
	if s.Fin() {
		n++
	}
	return n
}

// clone returns a shallow copy of s suitable for retransmission or for
// handing to a second queue; the payload slice is shared (it is never
// mutated after a segment is sent).
func (s *Segment) clone() *Segment {
	c := *s
	c.segmentEntry = segmentEntry{}
	return &c
}
