package loopback

import (
	"bytes"
	"testing"

	"protoserial/pkg/link"
)

func TestNewPairDeliversToPeer(t *testing.T) {
	a, b := NewPair(64)

	var got link.Fragment
	b.ReceiveEvent().Subscribe(func(f link.Fragment) { got = f })

	a.WriteNoexcept(link.Fragment{Source: 1, Destination: 2, Data: []byte("hello")})

	if !bytes.Equal(got.Data, []byte("hello")) {
		t.Fatalf("peer received %q, want %q", got.Data, "hello")
	}
	if got.Source != 1 || got.Destination != 2 {
		t.Errorf("addresses not preserved: %+v", got)
	}
	if got.Interface != b.Identifier() {
		t.Error("delivered fragment should be stamped with the receiving interface's identifier")
	}
}

func TestWriteNoexceptCopiesData(t *testing.T) {
	a, b := NewPair(64)
	var got link.Fragment
	b.ReceiveEvent().Subscribe(func(f link.Fragment) { got = f })

	payload := []byte("mutate me")
	a.WriteNoexcept(link.Fragment{Data: payload})
	payload[0] = 'X'

	if got.Data[0] == 'X' {
		t.Error("WriteNoexcept must copy the payload, not alias the caller's slice")
	}
}

func TestAnnounceEmitsStatus(t *testing.T) {
	a, _ := NewPair(64)
	var got link.Status
	a.StatusEvent().Subscribe(func(s link.Status) { got = s })

	a.Announce(3)

	if got.AvailableTransmitSlots != 3 {
		t.Errorf("AvailableTransmitSlots = %d, want 3", got.AvailableTransmitSlots)
	}
}

func TestIdentifiersAreDistinct(t *testing.T) {
	a, b := NewPair(64)
	if a.Identifier() == b.Identifier() {
		t.Error("a loopback pair must have distinct identifiers")
	}
}
