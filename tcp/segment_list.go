package tcp

import "github.com/YukunJ/Sponge-TCP-Protocol/ilist"

// segmentEntry is the intrusive link embedded into every Segment. A
// Segment can be a member of exactly one intrusive list at a time, since
// the link lives inside the Segment itself.
type segmentEntry = ilist.Entry[Segment]

// outstandingQueue is the sender's FIFO of segments sent but not yet fully
// acknowledged, with O(1) push/pop-front and no per-element allocation.
type outstandingQueue struct {
	list ilist.List[Segment, *Segment]
	n    int
}

func (q *outstandingQueue) pushBack(s *Segment) {
	q.list.PushBack(s)
	q.n++
}

func (q *outstandingQueue) front() *Segment { return q.list.Front() }

func (q *outstandingQueue) popFront() *Segment {
	s := q.list.Front()
	if s == nil {
		return nil
	}
	q.list.Remove(s)
	q.n--
	return s
}

func (q *outstandingQueue) empty() bool { return q.list.Empty() }

func (q *outstandingQueue) len() int { return q.n }

// outboundQueue is a plain value FIFO of segments waiting to be drained by
// a caller (the connection supervisor, ultimately whatever drives the
// transport adapter). It holds independent copies, so the same logical
// segment can sit here and in an outstandingQueue at once without the two
// lists fighting over a single intrusive link.
type outboundQueue struct {
	segs []Segment
}

func (q *outboundQueue) pushBack(s Segment) {
	s.segmentEntry = segmentEntry{}
	q.segs = append(q.segs, s)
}

func (q *outboundQueue) popFront() (Segment, bool) {
	if len(q.segs) == 0 {
		return Segment{}, false
	}
	s := q.segs[0]
	q.segs = q.segs[1:]
	return s, true
}

func (q *outboundQueue) empty() bool { return len(q.segs) == 0 }

func (q *outboundQueue) len() int { return len(q.segs) }
