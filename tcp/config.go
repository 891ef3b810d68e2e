package tcp

import (
	"errors"

	"github.com/YukunJ/Sponge-TCP-Protocol/seqnum"
)

// ErrInvalidConfig is returned by Config.validate when Capacity or
// MaxPayloadSize is not positive. NewConnection replaces non-positive values
// of those fields with their defaults before validating, so it does not
// return this error for them.
var ErrInvalidConfig = errors.New("tcp: invalid configuration")

const (
	// defaultCapacity is the default byte-stream capacity, 64 KiB, a
	// typical value for this kind of endpoint.
	defaultCapacity = 64 * 1024

	// defaultInitialRTO is the default initial retransmission timeout, in
	// milliseconds.
	defaultInitialRTO = 1000

	// defaultMaxRetx is the default retransmission limit before the
	// connection self-resets.
	defaultMaxRetx = 8

	// defaultMaxPayloadSize is the default maximum payload bytes per
	// emitted segment.
	defaultMaxPayloadSize = 1452
)

// Config bundles the tunables a Connection needs at construction time.
// There is no external configuration library wired in here: five scalar
// knobs don't warrant one, and no example in the retrieval pack reaches for
// a config library at this granularity either.
type Config struct {
	// Capacity is the byte-stream capacity used by both the sender's
	// outgoing stream and the receiver's reassembler/incoming stream.
	Capacity int

	// InitialRTO is the sender's initial retransmission timeout, in
	// milliseconds.
	InitialRTO uint64

	// FixedISN, if non-nil, is used as the local initial sequence number
	// instead of one drawn from RandomSource. Tests set this for
	// determinism.
	FixedISN *seqnum.Value

	// RandomSource supplies 32 random bits for the ISN when FixedISN is
	// nil. Defaults to crypto/rand if nil.
	RandomSource func() (uint32, error)

	// MaxRetx is the number of consecutive retransmissions allowed before
	// the connection performs an unclean shutdown.
	MaxRetx uint32

	// MaxPayloadSize is the maximum number of payload bytes the sender
	// will put in a single emitted segment.
	MaxPayloadSize int
}

// DefaultConfig returns a Config with reasonable production defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:       defaultCapacity,
		InitialRTO:     defaultInitialRTO,
		MaxRetx:        defaultMaxRetx,
		MaxPayloadSize: defaultMaxPayloadSize,
	}
}

func (c Config) validate() error {
	if c.Capacity <= 0 || c.MaxPayloadSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}
