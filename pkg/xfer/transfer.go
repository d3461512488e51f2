// Package xfer implements Transfer, the logical payload addressed to a
// peer and identified by (peer, id), and Progress, the bookkeeping wrapper
// the fragmentation handler actually keeps in its two transfer lists.
package xfer

import (
	"errors"
	"time"

	"protoserial/pkg/link"
)

// Mode distinguishes how a Transfer organizes its storage: incoming
// transfers accumulate fragments into a sparse slot vector (Reassembly),
// outgoing transfers hold one contiguous payload and materialize
// fragments from it on demand (Transmission). This is spec.md §9's
// collapse of the source's polymorphic transfer_wrapper hierarchy into a
// single variant type tagged by Mode, instead of replicating C++
// single-inheritance layout games in Go.
type Mode int

const (
	ModeReassembly Mode = iota
	ModeTransmission
)

// ErrInvalidArgument is returned by GetFragment when called with an index
// of 0 or past the transfer's fragment count — a programmer error, fatal
// to that call but not to the transfer or the handler.
var ErrInvalidArgument = errors.New("xfer: invalid fragment index")

// Metadata is the read-only summary of a transfer handed to
// transfer_ack_event subscribers once an outgoing transfer is ACKed.
type Metadata struct {
	ID             uint16
	PrevID         uint16
	Source         link.Address
	Destination    link.Address
	FragmentsCount uint8
}

// Transfer is a logical payload spanning one or more fragments, identified
// by (peer, id). Its (peer, id) never changes after construction.
type Transfer struct {
	mode        Mode
	id          uint16
	prevID      uint16
	source      link.Address
	destination link.Address
	iface       link.InterfaceIdentifier

	// Reassembly mode.
	slots [][]byte

	// Transmission mode.
	payload         []byte
	maxFragmentSize int

	timestampModified time.Time
}

// NewReassemblyTransfer constructs a transfer in reassembly mode, sized to
// hold fragmentsTotal slots. source is pinned from the first fragment that
// created this transfer and is used by Match to recognize later fragments
// of the same id from the same peer.
func NewReassemblyTransfer(iface link.InterfaceIdentifier, source, destination link.Address, id, prevID uint16, fragmentsTotal uint8, now time.Time) *Transfer {
	return &Transfer{
		mode:              ModeReassembly,
		id:                id,
		prevID:            prevID,
		source:            source,
		destination:       destination,
		iface:             iface,
		slots:             make([][]byte, fragmentsTotal),
		timestampModified: now,
	}
}

// NewTransmissionTransfer constructs a transfer in transmission mode
// holding a contiguous payload, fragmented on demand into pieces of at
// most maxFragmentSize bytes.
func NewTransmissionTransfer(source, destination link.Address, id, prevID uint16, payload []byte, maxFragmentSize int) *Transfer {
	return &Transfer{
		mode:            ModeTransmission,
		id:              id,
		prevID:          prevID,
		source:          source,
		destination:     destination,
		payload:         payload,
		maxFragmentSize: maxFragmentSize,
	}
}

func (t *Transfer) Mode() Mode                   { return t.mode }
func (t *Transfer) ID() uint16                   { return t.id }
func (t *Transfer) PrevID() uint16               { return t.prevID }
func (t *Transfer) Source() link.Address         { return t.source }
func (t *Transfer) Destination() link.Address    { return t.destination }
func (t *Transfer) Interface() link.InterfaceIdentifier { return t.iface }
func (t *Transfer) TimestampModified() time.Time { return t.timestampModified }

// FragmentsCount returns the number of fragments this transfer spans: the
// preallocated slot count in reassembly mode, or
// ceil(len(payload)/maxFragmentSize) in transmission mode.
func (t *Transfer) FragmentsCount() uint8 {
	if t.mode == ModeReassembly {
		return uint8(len(t.slots))
	}
	n := len(t.payload) / t.maxFragmentSize
	if len(t.payload)%t.maxFragmentSize != 0 {
		n++
	}
	return uint8(n)
}

// Assign writes fragment data into 1-based slot index. Reassembly mode
// only. Assigning the same index twice with the same data is idempotent;
// assigning it twice with different data simply overwrites, per spec.md
// §8's duplicate-fragment tolerance — the handler's dedup discipline
// lives in deciding *whether* to call Assign again, not here.
func (t *Transfer) Assign(index uint8, data []byte, now time.Time) error {
	if index < 1 || int(index) > len(t.slots) {
		return ErrInvalidArgument
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.slots[index-1] = cp
	t.timestampModified = now
	return nil
}

// IsComplete reports whether every slot has been filled. Reassembly mode
// only.
func (t *Transfer) IsComplete() bool {
	for _, s := range t.slots {
		if s == nil {
			return false
		}
	}
	return true
}

// MissingFragment returns the 1-based index of the first empty slot, or 0
// if none is missing. Reassembly mode only.
func (t *Transfer) MissingFragment() uint8 {
	for i, s := range t.slots {
		if s == nil {
			return uint8(i + 1)
		}
	}
	return 0
}

// Data returns the transfer's payload: the concatenation of filled slots
// in index order for a reassembly-mode transfer, or the contiguous
// payload for a transmission-mode transfer.
func (t *Transfer) Data() []byte {
	if t.mode == ModeTransmission {
		return t.payload
	}
	size := 0
	for _, s := range t.slots {
		size += len(s)
	}
	out := make([]byte, 0, size)
	for _, s := range t.slots {
		out = append(out, s...)
	}
	return out
}

// DataSize returns the size in bytes of Data(), without materializing it.
func (t *Transfer) DataSize() int {
	if t.mode == ModeTransmission {
		return len(t.payload)
	}
	size := 0
	for _, s := range t.slots {
		size += len(s)
	}
	return size
}

// GetFragment materializes the 1-based index-th fragment of a
// transmission-mode transfer on demand.
func (t *Transfer) GetFragment(index uint8) ([]byte, error) {
	if index < 1 {
		return nil, ErrInvalidArgument
	}
	pos := int(index-1) * t.maxFragmentSize
	if pos >= len(t.payload) {
		return nil, ErrInvalidArgument
	}
	end := pos + t.maxFragmentSize
	if end > len(t.payload) {
		end = len(t.payload)
	}
	out := make([]byte, end-pos)
	copy(out, t.payload[pos:end])
	return out, nil
}

// Match reports whether fragment f belongs to this reassembly-mode
// transfer: it must originate from the same peer this transfer's first
// fragment came from. The transfer's id is already known equal by the
// caller's lookup key; Match only disambiguates peer.
func (t *Transfer) Match(f link.Fragment) bool {
	return f.Source == t.source
}

// MatchAsResponse reports whether fragment f (a FRAGMENT_REQ or
// FRAGMENT_ACK) is a legitimate response to this transmission-mode
// transfer: it must come back from the peer the transfer was addressed
// to.
func (t *Transfer) MatchAsResponse(f link.Fragment) bool {
	return f.Source == t.destination
}

// GetMetadata summarizes the transfer for transfer_ack_event subscribers.
func (t *Transfer) GetMetadata() Metadata {
	return Metadata{
		ID:             t.id,
		PrevID:         t.prevID,
		Source:         t.source,
		Destination:    t.destination,
		FragmentsCount: t.FragmentsCount(),
	}
}
