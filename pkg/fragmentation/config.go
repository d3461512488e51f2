package fragmentation

import (
	"time"

	"protoserial/pkg/link"
	"protoserial/pkg/wire"
)

// Config is the handler's immutable, constructor-provided configuration
// (spec.md §6). MaxFragmentSize is the maximum on-wire fragment size,
// header included; the handler subtracts wire.HeaderSize once at
// construction the same way the teacher's fragmentation_handler
// constructor does (`_max_fragment_size(max_fragment_size - sizeof(Header))`).
type Config struct {
	Interface link.InterfaceIdentifier

	// MaxFragmentSize is the link's maximum data size, header included.
	MaxFragmentSize int

	// RetransmitTime is the minimum idle interval before the handler
	// re-emits a probe or REQ.
	RetransmitTime time.Duration

	// DropTime is the maximum idle interval after which a transfer is
	// discarded.
	DropTime time.Duration

	// RetransmitMultiplier bounds how many times an outgoing transfer may
	// be probed before it is considered exhausted:
	// retransmissions < FragmentsCount * RetransmitMultiplier.
	RetransmitMultiplier uint

	// TombstoneMultiplier scales DropTime for how long a tombstone
	// (a delivered incoming transfer's residual record) is kept around to
	// answer a duplicate delivery with a fresh ACK. spec.md §9 flags this
	// as a hard-coded constant (5) in the source that should become
	// configuration; DefaultConfig keeps 5 as the default.
	TombstoneMultiplier uint
}

// DefaultConfig returns a Config with the source's hard-coded constants
// made explicit: a tombstone multiplier of 5 and a retransmit multiplier
// of 3, in the 2-4 range spec.md §6 calls "typical".
func DefaultConfig(iface link.InterfaceIdentifier, maxFragmentSize int) Config {
	return Config{
		Interface:            iface,
		MaxFragmentSize:      maxFragmentSize,
		RetransmitTime:       2 * time.Second,
		DropTime:             30 * time.Second,
		RetransmitMultiplier: 3,
		TombstoneMultiplier:  5,
	}
}

// payloadSize is the usable fragment payload size: MaxFragmentSize less
// the header.
func (c Config) payloadSize() int {
	return c.MaxFragmentSize - wire.HeaderSize
}
