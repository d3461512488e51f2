package main

import (
	"fmt"

	"protoserial/pkg/config"
	"protoserial/pkg/ifaces/ptyif"
	"protoserial/pkg/ifaces/quicif"
	"protoserial/pkg/ifaces/wsif"
	"protoserial/pkg/ifaces/yamuxif"
	"protoserial/internal/logger"
	"protoserial/pkg/link"
)

// fragmentSource is satisfied by every pkg/ifaces transport that queues
// received fragments instead of delivering them synchronously: the
// caller's single event loop must drain Fragments() and hand each one to
// ReceiveEvent().Emit itself, preserving fragmentation.Handler's
// non-reentrancy guarantee across goroutine boundaries.
type fragmentSource interface {
	link.Interface
	Fragments() <-chan link.Fragment
}

// buildTransport constructs the link.Interface named by cfg.Kind.
// loopback is rejected here: it has no remote peer to speak to and exists
// only for in-process tests.
func buildTransport(cfg config.TransportConfig, log logger.Logger) (fragmentSource, error) {
	maxData := 1200
	switch cfg.Kind {
	case "quic":
		return quicif.New(quicif.Config{Address: cfg.Addr, IsServer: true, MaxDataSize: maxData}, log)
	case "websocket":
		return wsif.New(wsif.Config{ListenAddr: cfg.Addr, Path: "/fragments", MaxDataSize: maxData}, log)
	case "yamux":
		return yamuxif.New(yamuxif.Config{Address: cfg.Addr, IsServer: true, MaxDataSize: maxData}, log)
	case "pty":
		return ptyif.New(ptyif.Config{Command: cfg.Addr}, log)
	default:
		return nil, fmt.Errorf("fragctl: unsupported transport kind %q for a network endpoint", cfg.Kind)
	}
}
