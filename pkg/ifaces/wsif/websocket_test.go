package wsif

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

func TestConnectionDeliversBinaryMessagesAsFragments(t *testing.T) {
	addr := freeTCPAddr(t)

	server, err := New(Config{ListenAddr: addr, Path: "/ws"}, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("New(server): %v", err)
	}
	defer server.Close()

	var client *Interface
	for i := 0; i < 50; i++ {
		client, err = New(Config{DialURL: "ws://" + addr + "/ws"}, logger.NewNoOpLogger())
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("New(client): %v", err)
	}
	defer client.Close()

	client.WriteNoexcept(link.Fragment{Data: []byte("hello ws")})
	got := waitForFragment(t, server.Fragments())
	if string(got.Data) != "hello ws" {
		t.Errorf("Data = %q, want %q", got.Data, "hello ws")
	}
}
