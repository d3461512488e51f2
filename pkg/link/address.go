// Package link defines the contract between the fragmentation handler and
// whatever moves bytes on its behalf: addresses, the fragment container,
// the Interface a link implementation must satisfy, and the Subject[T]
// synchronous pub/sub primitive events are delivered through.
package link

import "github.com/google/uuid"

// Address is an opaque integer identifying a peer on one interface.
type Address uint16

// InterfaceIdentifier identifies one interface within the local device.
// Backed by a UUID rather than a small integer so interfaces can be
// created and torn down (e.g. a hot-plugged USB-serial adapter) without a
// central allocator handing out small ids.
type InterfaceIdentifier uuid.UUID

// NewInterfaceIdentifier returns a fresh, random InterfaceIdentifier.
func NewInterfaceIdentifier() InterfaceIdentifier {
	return InterfaceIdentifier(uuid.New())
}

func (id InterfaceIdentifier) String() string {
	return uuid.UUID(id).String()
}

// Zero is the InterfaceIdentifier value used where no particular interface
// is implied (e.g. a transfer constructed directly by a test).
var Zero InterfaceIdentifier
