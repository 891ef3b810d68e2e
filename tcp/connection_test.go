package tcp

import (
	"testing"

	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

func mustConnection(t *testing.T, cfg Config) *Connection {
	t.Helper()
	c, err := NewConnection(cfg)
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	return c
}

func fixedISNConfig(isn seqnum.Value) Config {
	cfg := DefaultConfig()
	cfg.Capacity = 4000
	cfg.FixedISN = &isn
	return cfg
}

func TestConnectionHandshakeActiveSide(t *testing.T) {
	c := mustConnection(t, fixedISNConfig(0))
	c.Connect()

	seg, ok := c.Outbound()
	if !ok {
		t.Fatalf("expected an outbound SYN segment")
	}
	if !seg.Syn() || seg.Ack() || len(seg.Payload) != 0 {
		t.Fatalf("expected bare SYN, got %+v", seg)
	}
	if seg.SeqNum != 0 {
		t.Fatalf("seqno = %v, want ISN", seg.SeqNum)
	}

	peerISN := seqnum.Value(1000)
	c.SegmentReceived(&Segment{SeqNum: peerISN, AckNum: seqnum.Value(1), Flags: FlagSyn | FlagAck, Win: 4000})

	reply, ok := c.Outbound()
	if !ok {
		t.Fatalf("expected an ack-of-syn-ack segment")
	}
	if !reply.Ack() || reply.Syn() {
		t.Fatalf("expected pure ACK, got %+v", reply)
	}
	if reply.AckNum != peerISN.Add(1) {
		t.Fatalf("ackno = %v, want %v", reply.AckNum, peerISN.Add(1))
	}
}

func TestConnectionHandshakePassiveSide(t *testing.T) {
	c := mustConnection(t, fixedISNConfig(0))

	peerISN := seqnum.Value(555)
	c.SegmentReceived(&Segment{SeqNum: peerISN, Flags: FlagSyn, Win: 4000})

	seg, ok := c.Outbound()
	if !ok {
		t.Fatalf("expected a SYN+ACK segment")
	}
	if !seg.Syn() || !seg.Ack() {
		t.Fatalf("expected SYN+ACK, got %+v", seg)
	}
	if seg.AckNum != peerISN.Add(1) {
		t.Fatalf("ackno = %v, want %v", seg.AckNum, peerISN.Add(1))
	}
}

func TestConnectionTransfersData(t *testing.T) {
	client := mustConnection(t, fixedISNConfig(0))
	server := mustConnection(t, fixedISNConfig(1000))

	client.Connect()
	syn, _ := client.Outbound()

	server.SegmentReceived(&syn)
	synAck, _ := server.Outbound()

	client.SegmentReceived(&synAck)
	ack, _ := client.Outbound()

	server.SegmentReceived(&ack)

	client.Write([]byte("hello, world"))
	data, ok := client.Outbound()
	if !ok {
		t.Fatalf("expected a data segment")
	}
	if string(data.Payload) != "hello, world" {
		t.Fatalf("payload = %q", data.Payload)
	}

	server.SegmentReceived(&data)
	got := server.InboundStream().Read(len(data.Payload))
	if string(got) != "hello, world" {
		t.Fatalf("server read %q, want hello, world", got)
	}
}

func TestConnectionClosesCleanlyAfterBothFins(t *testing.T) {
	client := mustConnection(t, fixedISNConfig(0))
	server := mustConnection(t, fixedISNConfig(1000))

	client.Connect()
	syn, _ := client.Outbound()
	server.SegmentReceived(&syn)
	synAck, _ := server.Outbound()
	client.SegmentReceived(&synAck)
	ack, _ := client.Outbound()
	server.SegmentReceived(&ack)

	client.EndInputStream()
	fin, _ := client.Outbound()
	if !fin.Fin() {
		t.Fatalf("expected FIN, got %+v", fin)
	}
	server.SegmentReceived(&fin)
	finAck, _ := server.Outbound()
	client.SegmentReceived(&finAck)

	if !server.InboundStream().InputEnded() {
		t.Fatalf("server should have seen client's FIN")
	}

	server.EndInputStream()
	serverFin, _ := server.Outbound()
	client.SegmentReceived(&serverFin)
	serverFinAck, _ := client.Outbound()
	server.SegmentReceived(&serverFinAck)

	if server.Active() {
		t.Fatalf("passive closer should deactivate immediately (no linger)")
	}
	if !client.Active() {
		t.Fatalf("active closer should still linger")
	}

	client.Tick(10 * client.cfg.InitialRTO)
	if client.Active() {
		t.Fatalf("client should deactivate once the linger timeout elapses")
	}
}

func TestConnectionRstDeactivatesAndErrorsStreams(t *testing.T) {
	client := mustConnection(t, fixedISNConfig(0))
	client.Connect()
	client.Outbound()

	// In SYN-SENT an un-ACKed RST is ignored (it could be spoofed); only a
	// RST carrying an ACK for our SYN is honored.
	client.SegmentReceived(&Segment{SeqNum: seqnum.Value(1), AckNum: seqnum.Value(1), Flags: FlagRst | FlagAck})

	if client.Active() {
		t.Fatalf("connection should be inactive after RST")
	}
	if !client.InboundStream().Error() || !client.OutboundStream().Error() {
		t.Fatalf("both byte streams should be errored after RST")
	}
}

func TestConnectionRetransmissionExhaustionResetsConnection(t *testing.T) {
	cfg := fixedISNConfig(0)
	cfg.MaxRetx = 2
	c := mustConnection(t, cfg)
	c.Connect()
	c.Outbound()

	rto := c.cfg.InitialRTO
	for i := 0; i < 10 && c.Active(); i++ {
		c.Tick(rto)
		rto *= 2
		for {
			if _, ok := c.Outbound(); !ok {
				break
			}
		}
	}

	if c.Active() {
		t.Fatalf("connection should self-reset after exceeding max retransmissions")
	}
}
