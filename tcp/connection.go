package tcp

import (
	"log/slog"

	"github.com/rs/xid"

	"github.com/YukunJ/Sponge-TCP-Protocol/bytestream"
	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

// state names the connection's position in the handshake, used only to
// pick SegmentReceived's branch; shutdown is tracked separately by
// active/linger below rather than as a further state enum.
type state int

const (
	stateListen state = iota
	stateSynSent
	stateEstablished
)

const maxWin = 1<<16 - 1

// Connection composes a sender and a receiver into the full TCP endpoint
// state machine: it drives the three-way handshake, stamps every outbound
// segment with the current ack/window, enforces reset and linger
// semantics, and exposes the handful of accessors an embedder needs to
// observe liveness.
type Connection struct {
	id xid.ID

	cfg Config
	log *slog.Logger

	snd *sender
	rcv *receiver

	st state

	active bool
	linger bool

	msSinceLastSegmentReceived uint64

	outbound outboundQueue
}

// NewConnection constructs an active Connection in the listen state with the
// given configuration, defaulting unset fields via DefaultConfig.
func NewConnection(cfg Config) (*Connection, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.InitialRTO <= 0 {
		cfg.InitialRTO = defaultInitialRTO
	}
	if cfg.MaxRetx <= 0 {
		cfg.MaxRetx = defaultMaxRetx
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = defaultMaxPayloadSize
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	snd, err := newSender(cfg.Capacity, cfg.InitialRTO, cfg.MaxPayloadSize, cfg.FixedISN, cfg.RandomSource)
	if err != nil {
		return nil, err
	}
	rcv, err := newReceiver(cfg.Capacity)
	if err != nil {
		return nil, err
	}

	connID := xid.New()
	return &Connection{
		id:     connID,
		cfg:    cfg,
		log:    slog.Default().With("conn", connID.String()),
		snd:    snd,
		rcv:    rcv,
		st:     stateListen,
		active: true,
		linger: true,
	}, nil
}

// ID returns the connection's correlation id, suitable for a log or metric
// label.
func (c *Connection) ID() string { return c.id.String() }

// Connect initiates the handshake by sending our SYN.
func (c *Connection) Connect() {
	c.st = stateSynSent
	c.snd.fillWindow()
	c.drain()
}

// Write accepts data into the sender's outgoing stream and attempts to
// send it immediately, returning the number of bytes accepted.
func (c *Connection) Write(data []byte) int {
	if !c.active || len(data) == 0 {
		return 0
	}
	n := c.snd.stream.Write(data)
	c.snd.fillWindow()
	c.drain()
	return n
}

// EndInputStream signals that no further bytes will be written, triggering
// a FIN once the outgoing stream drains.
func (c *Connection) EndInputStream() {
	c.snd.stream.EndInput()
	c.snd.fillWindow()
	c.drain()
}

// SegmentReceived folds an inbound segment into the connection's state
// per the handshake/established rules, then drains any resulting outbound
// segments.
func (c *Connection) SegmentReceived(seg *Segment) {
	if !c.active {
		return
	}
	c.msSinceLastSegmentReceived = 0

	switch c.st {
	case stateListen:
		c.segmentReceivedListen(seg)
	case stateSynSent:
		c.segmentReceivedSynSent(seg)
	default:
		c.segmentReceivedEstablished(seg)
	}

	c.drain()
	c.cleanShutdownCheck()
}

func (c *Connection) segmentReceivedListen(seg *Segment) {
	if !seg.Syn() {
		return
	}
	c.rcv.segmentReceived(seg)
	c.st = stateEstablished
	c.snd.fillWindow()
}

func (c *Connection) segmentReceivedSynSent(seg *Segment) {
	if seg.Rst() {
		if seg.Ack() && seg.AckNum == c.snd.nextSeqno() {
			c.ensureOutboundSegment()
			c.uncleanShutdown()
		}
		return
	}
	if seg.Syn() && !seg.Ack() {
		// Simultaneous open: the peer's SYN arrived before our SYN+ACK did.
		c.rcv.segmentReceived(seg)
		c.st = stateEstablished
		c.snd.sendEmptySegment()
		return
	}
	if !seg.Ack() {
		return
	}
	c.rcv.segmentReceived(seg)
	c.snd.ackReceived(seg.AckNum, seg.Win)
	c.st = stateEstablished

	if seg.LengthInSequenceSpace() > 0 && c.snd.outbound.empty() {
		c.snd.sendEmptySegment()
	}
}

func (c *Connection) segmentReceivedEstablished(seg *Segment) {
	if seg.Rst() {
		c.ensureOutboundSegment()
		c.uncleanShutdown()
		return
	}

	c.rcv.segmentReceived(seg)

	if seg.Ack() {
		c.snd.ackReceived(seg.AckNum, seg.Win)
	}

	if seg.LengthInSequenceSpace() > 0 && c.snd.outbound.empty() {
		c.snd.sendEmptySegment()
	}
}

// drain stamps every segment the sender has queued with the current
// ack/ackno/window (once the peer's ISN is known) and moves it onto the
// connection's externally visible outbound queue.
func (c *Connection) drain() {
	ackno, haveAckno := c.rcv.Ackno()
	win := c.rcv.WindowSize()
	if win > maxWin {
		win = maxWin
	}

	for {
		seg, ok := c.snd.outbound.popFront()
		if !ok {
			break
		}
		if haveAckno {
			seg.Flags |= FlagAck
			seg.AckNum = ackno
			seg.Win = seqnum.Size(win)
		}
		c.outbound.pushBack(seg)
	}
}

// cleanShutdownCheck implements the clean-shutdown rule: once the
// receiver's stream has ended, the connection stops lingering if the
// sender side hasn't reached EOF yet; once both sides are fully finished,
// the connection becomes inactive once linger is false or the linger
// timeout has elapsed.
func (c *Connection) cleanShutdownCheck() {
	if !c.active {
		return
	}
	if !c.rcv.reasm.StreamOut().InputEnded() {
		return
	}
	if !c.snd.stream.EOF() {
		c.linger = false
	}
	if c.snd.stream.EOF() && c.snd.BytesInFlight() == 0 {
		if !c.linger || c.msSinceLastSegmentReceived >= 10*c.cfg.InitialRTO {
			c.active = false
		}
	}
}

// ensureOutboundSegment guarantees the sender's outbound queue is
// non-empty, so uncleanShutdown always has a carrier segment to stamp RST
// onto.
func (c *Connection) ensureOutboundSegment() {
	if c.snd.outbound.empty() {
		c.snd.sendEmptySegment()
	}
}

// uncleanShutdown marks both streams errored, deactivates the connection,
// and stamps RST onto the sender's queued head before handing it to the
// connection's outbound queue. Callers must call ensureOutboundSegment
// first.
func (c *Connection) uncleanShutdown() {
	c.snd.stream.SetError()
	c.rcv.reasm.StreamOut().SetError()
	c.active = false

	ackno, haveAckno := c.rcv.Ackno()
	win := c.rcv.WindowSize()
	if win > maxWin {
		win = maxWin
	}
	seg, ok := c.snd.outbound.popFront()
	if !ok {
		seg = Segment{SeqNum: c.snd.nextSeqno()}
	}
	seg.Flags |= FlagRst
	if haveAckno {
		seg.Flags |= FlagAck
		seg.AckNum = ackno
		seg.Win = seqnum.Size(win)
	}
	c.outbound.pushBack(seg)

	c.log.Warn("connection reset", "reason", "unclean shutdown")
}

// Tick advances the connection's wall clock by ms milliseconds: it ages
// the sender's retransmission timer and the linger timeout, escalating to
// an unclean shutdown if the retransmission limit is exceeded.
func (c *Connection) Tick(ms uint64) {
	if !c.active {
		return
	}
	c.msSinceLastSegmentReceived += ms
	c.snd.tick(ms)

	if c.snd.ConsecutiveRetransmissions() > c.cfg.MaxRetx {
		c.ensureOutboundSegment()
		c.uncleanShutdown()
		c.drain()
		return
	}

	c.drain()
	c.cleanShutdownCheck()
}

// Close performs the supervisor's destructor-equivalent teardown: if still
// active, it logs a warning, ensures the sender's outbound queue is
// non-empty so the unclean-shutdown path has a carrier segment, and
// shuts down uncleanly.
func (c *Connection) Close() {
	if !c.active {
		return
	}
	c.log.Warn("connection closed while still active")
	c.ensureOutboundSegment()
	c.uncleanShutdown()
	c.drain()
}

// Outbound pops the next segment ready to be sent, if any.
func (c *Connection) Outbound() (Segment, bool) { return c.outbound.popFront() }

// Active reports whether the connection is still live.
func (c *Connection) Active() bool { return c.active }

// BytesInFlight returns the sender's currently unacknowledged sequence
// space.
func (c *Connection) BytesInFlight() uint64 { return c.snd.BytesInFlight() }

// UnassembledBytes returns the receiver's currently buffered-but-not-yet-
// contiguous bytes.
func (c *Connection) UnassembledBytes() int { return c.rcv.UnassembledBytes() }

// RemainingOutboundCapacity returns how many more bytes Write would accept
// right now.
func (c *Connection) RemainingOutboundCapacity() int { return c.snd.stream.RemainingCapacity() }

// ConsecutiveRetransmissions returns the sender's current back-off count.
func (c *Connection) ConsecutiveRetransmissions() uint32 { return c.snd.ConsecutiveRetransmissions() }

// TimeSinceLastSegmentReceived returns the linger clock, in milliseconds.
func (c *Connection) TimeSinceLastSegmentReceived() uint64 { return c.msSinceLastSegmentReceived }

// InboundStream returns the reassembled byte stream a reader consumes.
func (c *Connection) InboundStream() *bytestream.ByteStream { return c.rcv.reasm.StreamOut() }

// OutboundStream returns the byte stream Write feeds.
func (c *Connection) OutboundStream() *bytestream.ByteStream { return c.snd.stream }
