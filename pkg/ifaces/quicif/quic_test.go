package quicif

import (
	"net"
	"testing"
	"time"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
)

// freeUDPAddr opens and immediately closes a UDP socket on 127.0.0.1 to
// borrow an ephemeral port number for a server Interface under test.
func freeUDPAddr(t *testing.T) string {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("reserve udp port: %v", err)
	}
	addr := conn.LocalAddr().String()
	conn.Close()
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

func TestDialedInterfaceExchangesFramedFragments(t *testing.T) {
	addr := freeUDPAddr(t)

	server, err := New(Config{Address: addr, IsServer: true}, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	defer server.Close()

	client, err := New(Config{Address: addr, IsServer: false, ReconnectDelay: 50 * time.Millisecond}, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	defer client.Close()

	client.WriteNoexcept(link.Fragment{Source: 7, Destination: 9, Data: []byte("hello quic")})

	got := waitForFragment(t, server.Fragments())
	if string(got.Data) != "hello quic" {
		t.Errorf("Data = %q, want %q", got.Data, "hello quic")
	}
	if got.Source != 7 || got.Destination != 9 {
		t.Errorf("addresses = %d/%d, want 7/9", got.Source, got.Destination)
	}

	server.WriteNoexcept(link.Fragment{Source: 9, Destination: 7, Data: []byte("hello back")})
	got = waitForFragment(t, client.Fragments())
	if string(got.Data) != "hello back" {
		t.Errorf("Data = %q, want %q", got.Data, "hello back")
	}
}
