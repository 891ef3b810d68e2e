// Package seqnum implements the wrapping 32-bit sequence number arithmetic
// used to translate between wire sequence numbers and an absolute 64-bit
// stream index.
package seqnum

// Value is a 32-bit sequence number as it appears on the wire. Arithmetic on
// Value wraps modulo 2^32, the same way TCP's SEQ/ACK fields do.
type Value uint32

// Size is a length expressed in sequence-space units (payload bytes, plus
// one for SYN and/or one for FIN).
type Size uint32

// Add returns v shifted forward by delta sequence-space units, wrapping
// modulo 2^32.
func (v Value) Add(delta Size) Value {
	return v + Value(delta)
}

// Size returns the sequence-space distance from v to other, i.e. the number
// of sequence numbers that have to elapse for v to become other, again
// wrapping modulo 2^32. It is the inverse of Add: v.Add(v.Size(other)) ==
// other.
func (v Value) Size(other Value) Size {
	return Size(other - v)
}

// LessThan returns whether v occurs strictly before other in sequence
// space, using the usual wraparound-aware comparison: v is "less than"
// other iff the forward distance from v to other is nonzero and at most
// 2^31.
func (v Value) LessThan(other Value) bool {
	return int32(v-other) < 0
}

// InRange returns whether v lies in the half-open interval [a, a+size),
// accounting for wraparound.
func (v Value) InRange(a Value, size Size) bool {
	return a.Size(v) < size
}

// Wrap converts an absolute, zero-indexed 64-bit sequence number into its
// wire representation relative to isn: wrap(n, isn) = isn + (n mod 2^32).
func Wrap(n uint64, isn Value) Value {
	return isn.Add(Size(uint32(n)))
}

// Unwrap converts a wire sequence number back into the absolute 64-bit
// sequence number that wraps to n and is closest to checkpoint (choosing
// the smaller candidate on a tie), never returning a negative value.
//
// The algorithm: fix checkpoint's own wrapped representation, take the
// 32-bit (wraparound) difference between n and that representation, and
// add the signed interpretation of that difference to checkpoint. If doing
// so would make the result negative, the next-higher wrap epoch is used
// instead.
func Unwrap(n Value, isn Value, checkpoint uint64) uint64 {
	wrappedCheckpoint := Wrap(checkpoint, isn)
	diff := int32(uint32(n) - uint32(wrappedCheckpoint))

	if int64(checkpoint)+int64(diff) < 0 {
		return checkpoint + uint64(uint32(diff))
	}
	return uint64(int64(checkpoint) + int64(diff))
}
