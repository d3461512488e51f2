// Package loopback implements an in-process link.Interface pair for tests
// and local demos, standing in for the teacher's pkg/channel transports
// when there is no real wire. Grounded on the Channel/PhysicalChannel
// split in pkg/channel/channel.go: two Loopbacks wired together play the
// same role a Channel and its PhysicalChannel play, minus the network.
package loopback

import (
	"protoserial/pkg/link"
)

// Loopback is a link.Interface that delivers whatever is written to it to
// its Peer's ReceiveEvent, and vice versa. Writes never fail and the
// interface always reports capacity, since there is no real medium to
// exhaust.
type Loopback struct {
	id          link.InterfaceIdentifier
	maxDataSize int
	peer        *Loopback

	receive link.Subject[link.Fragment]
	status  link.Subject[link.Status]
}

// NewPair returns two Loopbacks wired to each other: a fragment written to
// one is delivered, unmodified, to the other's ReceiveEvent.
func NewPair(maxDataSize int) (a, b *Loopback) {
	a = &Loopback{id: link.NewInterfaceIdentifier(), maxDataSize: maxDataSize}
	b = &Loopback{id: link.NewInterfaceIdentifier(), maxDataSize: maxDataSize}
	a.peer, b.peer = b, a
	return a, b
}

func (l *Loopback) MaxDataSize() int                     { return l.maxDataSize }
func (l *Loopback) ReceiveEvent() *link.Subject[link.Fragment] { return &l.receive }
func (l *Loopback) StatusEvent() *link.Subject[link.Status]    { return &l.status }
func (l *Loopback) Identifier() link.InterfaceIdentifier  { return l.id }

// WriteNoexcept hands f straight to the peer's subscribers. Like every
// link.Interface.WriteNoexcept, this never blocks and never panics.
func (l *Loopback) WriteNoexcept(f link.Fragment) {
	if l.peer == nil {
		return
	}
	cp := f
	cp.Data = append([]byte(nil), f.Data...)
	cp.Interface = l.peer.id
	l.peer.receive.Emit(cp)
}

// Announce publishes an initial transmit-capacity status, since a fresh
// Loopback has none subscribed yet at construction. Handler.BindTo must
// run before this for the slot count to reach it.
func (l *Loopback) Announce(slots int) {
	l.status.Emit(link.Status{AvailableTransmitSlots: slots})
}
