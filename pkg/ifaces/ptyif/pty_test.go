package ptyif

import (
	"testing"
	"time"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
)

// TestCatEchoesFramedFragment runs cat(1) attached to the PTY slave, which
// echoes every byte written to it straight back: a write should come back
// through Fragments() as the same fragment, exercising the full
// Framer/ParsePacket/SerializePacket round trip over a real pseudo-terminal.
func TestCatEchoesFramedFragment(t *testing.T) {
	i, err := New(Config{Command: "cat"}, logger.NewNoOpLogger())
	if err != nil {
		t.Skipf("ptyif.New: %v (pty unavailable in this environment)", err)
	}
	defer i.Close()

	i.WriteNoexcept(link.Fragment{Source: 5, Destination: 6, Data: []byte("hello pty")})

	select {
	case got := <-i.Fragments():
		if string(got.Data) != "hello pty" {
			t.Errorf("Data = %q, want %q", got.Data, "hello pty")
		}
		if got.Source != 5 || got.Destination != 6 {
			t.Errorf("addresses = %d/%d, want 5/6", got.Source, got.Destination)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed fragment")
	}
}
