package wire

import (
	"encoding/binary"
	"errors"

	"protoserial/pkg/sliceio"
)

// lengthPrefixSize is the size of the big-endian length prefix ahead of
// every framed Packet on a raw byte-stream transport (a packet carries no
// self-describing length of its own).
const lengthPrefixSize = 4

// ErrFrameTooLarge is returned by Feed when accepting data would overrun
// the Framer's backing buffer.
var ErrFrameTooLarge = errors.New("wire: framed packet exceeds buffer capacity")

// Framer accumulates raw stream bytes into a fixed-size wrap-around
// buffer and extracts complete, checksum-verified Packets from it. This
// is the Go shape of buffered_interface's circular_iterator feeding
// parse_packet (original_source/libprotoserial/interface/buffered.hpp,
// parsers.hpp): Framer owns the accumulation buffer and a write/read pair
// of sliceio.Ring cursors into it, the same "two iterators into shared
// storage" relationship circular_iterator::distance() is built around. A
// stream-oriented link.Interface (quicif, ptyif) feeds it arbitrary-sized
// reads off the wire and drains it for complete frames.
type Framer struct {
	buf      []byte
	write    sliceio.Ring
	read     sliceio.Ring
	buffered int
}

// NewFramer allocates a Framer with a size-byte backing buffer. size
// should comfortably exceed the largest packet the caller expects to
// frame, since Feed refuses to wrap past unconsumed data.
func NewFramer(size int) *Framer {
	buf := make([]byte, size)
	return &Framer{buf: buf, write: sliceio.NewRing(buf), read: sliceio.NewRing(buf)}
}

// Feed copies data into the ring buffer, advancing the write cursor.
func (f *Framer) Feed(data []byte) error {
	if f.buffered+len(data) > len(f.buf) {
		return ErrFrameTooLarge
	}
	for _, b := range data {
		f.buf[f.write.Pos()] = b
		f.write = f.write.Advance()
	}
	f.buffered += len(data)
	return nil
}

// Next extracts one framed Packet if a complete frame is buffered. ok is
// false when more bytes are needed before a frame can be extracted. A
// non-nil error means a complete frame was consumed off the buffer but
// failed to parse (ErrBadChecksum); the caller drops it and keeps
// reading, the same silent-drop discipline spec.md requires of a
// malformed fragment.
func (f *Framer) Next() (Packet, bool, error) {
	if f.buffered < lengthPrefixSize {
		return Packet{}, false, nil
	}
	n := int(binary.BigEndian.Uint32(f.peek(0, lengthPrefixSize)))
	if f.buffered < lengthPrefixSize+n {
		return Packet{}, false, nil
	}
	frame := f.peek(lengthPrefixSize, n)
	f.read = f.read.AdvanceBy(lengthPrefixSize + n)
	f.buffered -= lengthPrefixSize + n

	p, err := ParsePacket(frame)
	return p, true, err
}

// peek materializes length bytes starting offset positions ahead of the
// read cursor into a flat slice, following the ring through any wrap —
// the same role sp::bytes(circular_iterator, n) plays ahead of
// parse_packet in the source.
func (f *Framer) peek(offset, length int) []byte {
	cur := f.read.AdvanceBy(offset)
	out := make([]byte, length)
	for i := range out {
		out[i] = f.buf[cur.Pos()]
		cur = cur.Advance()
	}
	return out
}

// Frame serializes src/dst/body into a length-prefixed Packet envelope,
// ready to write to a raw byte-stream transport. The inverse of Next.
func Frame(src, dst uint16, body []byte) []byte {
	packet := SerializePacket(src, dst, body)
	out := make([]byte, lengthPrefixSize+len(packet))
	binary.BigEndian.PutUint32(out[:lengthPrefixSize], uint32(len(packet)))
	copy(out[lengthPrefixSize:], packet)
	return out
}
