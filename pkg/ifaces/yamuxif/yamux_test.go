package yamuxif

import (
	"net"
	"testing"
	"time"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
)

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve tcp port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func waitForFragment(t *testing.T, ch <-chan link.Fragment) link.Fragment {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fragment")
		return link.Fragment{}
	}
}

func TestSessionExchangesFramedFragmentsOverSeparateStreams(t *testing.T) {
	addr := freeTCPAddr(t)

	server, err := New(Config{Address: addr, IsServer: true}, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	defer server.Close()

	client, err := New(Config{Address: addr, IsServer: false}, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	defer client.Close()

	client.WriteNoexcept(link.Fragment{Source: 3, Destination: 4, Data: []byte("hello yamux")})
	got := waitForFragment(t, server.Fragments())
	if string(got.Data) != "hello yamux" {
		t.Errorf("Data = %q, want %q", got.Data, "hello yamux")
	}
	if got.Source != 3 || got.Destination != 4 {
		t.Errorf("addresses = %d/%d, want 3/4", got.Source, got.Destination)
	}

	server.WriteNoexcept(link.Fragment{Source: 4, Destination: 3, Data: []byte("hello back")})
	got = waitForFragment(t, client.Fragments())
	if string(got.Data) != "hello back" {
		t.Errorf("Data = %q, want %q", got.Data, "hello back")
	}
}
