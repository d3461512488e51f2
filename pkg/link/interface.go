package link

// Status is the link's self-reported transmit capacity, the sole gate the
// fragmentation handler consults before emitting anything (spec.md §4.4
// "slot gating").
type Status struct {
	AvailableTransmitSlots int
}

// Interface is the contract a link implementation (UART, loopback, QUIC,
// WebSocket, a multiplexed yamux stream, ...) must satisfy to be driven by
// the fragmentation handler. It intentionally says nothing about how bytes
// actually move; that is entirely the implementation's concern.
type Interface interface {
	// MaxDataSize is the maximum size of a single on-wire fragment this
	// interface can carry, header included.
	MaxDataSize() int

	// WriteNoexcept hands f to the interface for transmission. It must not
	// block the caller's thread of control indefinitely and must not
	// panic; transmit failures are the interface's problem to retry or
	// surface through StatusEvent, not the handler's.
	WriteNoexcept(f Fragment)

	// ReceiveEvent fires once per fragment the interface has accepted off
	// the wire.
	ReceiveEvent() *Subject[Fragment]

	// StatusEvent fires whenever the interface's transmit capacity changes.
	StatusEvent() *Subject[Status]

	// Identifier names this interface within the local device.
	Identifier() InterfaceIdentifier
}

// Binder is implemented by anything that wants to wire itself into an
// Interface's events and drive its writes, i.e. the fragmentation handler.
type Binder interface {
	BindTo(i Interface)
}
