// Package ptyif adapts github.com/kr/pty into a link.Interface for testing
// against a real serial-like byte stream without real UART hardware: it
// spawns a subprocess attached to a pseudo-terminal and treats the PTY
// master as the physical medium, the same read-loop-plus-write shape
// pkg/channel/tcp_channel.go uses for a real socket.
package ptyif

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/kr/pty"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
	"protoserial/pkg/wire"
)

// framerBufSize sizes the Framer's wrap-around accumulation buffer well
// above any single fragment the handler will ever hand this interface.
const framerBufSize = 16384

// Config configures a PTY-backed link.Interface.
type Config struct {
	// Command is run attached to the PTY's slave side, e.g. a loopback
	// cat(1) for tests or a real modem-control utility.
	Command     string
	Args        []string
	MaxDataSize int
}

// Interface is a link.Interface backed by a pseudo-terminal master fd.
type Interface struct {
	cfg Config
	id  link.InterfaceIdentifier
	log logger.Logger

	cmd    *exec.Cmd
	master *os.File

	writeMu sync.Mutex

	fragments chan link.Fragment
	receive   link.Subject[link.Fragment]
	status    link.Subject[link.Status]
}

// New starts cfg.Command attached to a fresh pseudo-terminal and begins
// reading checksum-framed fragments off its master fd.
func New(cfg Config, log logger.Logger) (*Interface, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("ptyif: command is required")
	}
	if cfg.MaxDataSize <= 0 {
		cfg.MaxDataSize = 255
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	master, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("ptyif: pty.Start: %w", err)
	}

	i := &Interface{
		cfg:       cfg,
		id:        link.NewInterfaceIdentifier(),
		log:       log,
		cmd:       cmd,
		master:    master,
		fragments: make(chan link.Fragment, 64),
	}
	i.status.Emit(link.Status{AvailableTransmitSlots: 1})
	go i.readLoop()
	return i, nil
}

func (i *Interface) readLoop() {
	framer := wire.NewFramer(framerBufSize)
	scratch := make([]byte, 4096)
	for {
		n, err := i.master.Read(scratch)
		if n > 0 {
			if ferr := framer.Feed(scratch[:n]); ferr != nil {
				i.log.Error("ptyif: framer overrun: %v", ferr)
				i.status.Emit(link.Status{AvailableTransmitSlots: 0})
				return
			}
			i.drainFrames(framer)
		}
		if err != nil {
			i.log.Warn("ptyif: read: %v", err)
			i.status.Emit(link.Status{AvailableTransmitSlots: 0})
			return
		}
	}
}

func (i *Interface) drainFrames(framer *wire.Framer) {
	for {
		p, ok, err := framer.Next()
		if !ok {
			return
		}
		if err != nil {
			i.log.Warn("ptyif: dropping malformed frame: %v", err)
			continue
		}
		i.fragments <- link.Fragment{
			Source:      link.Address(p.Source),
			Destination: link.Address(p.Destination),
			Data:        p.Body,
			Interface:   i.id,
		}
	}
}

// Fragments is the queue the caller's single event loop must drain and
// feed to ReceiveEvent().Emit.
func (i *Interface) Fragments() <-chan link.Fragment { return i.fragments }

func (i *Interface) MaxDataSize() int                          { return i.cfg.MaxDataSize }
func (i *Interface) ReceiveEvent() *link.Subject[link.Fragment] { return &i.receive }
func (i *Interface) StatusEvent() *link.Subject[link.Status]    { return &i.status }
func (i *Interface) Identifier() link.InterfaceIdentifier       { return i.id }

// WriteNoexcept writes f as a checksum-framed packet to the PTY master.
func (i *Interface) WriteNoexcept(f link.Fragment) {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()
	framed := wire.Frame(uint16(f.Source), uint16(f.Destination), f.Data)
	if _, err := i.master.Write(framed); err != nil {
		i.log.Warn("ptyif: write: %v", err)
	}
}

// Close kills the attached subprocess and closes the PTY master.
func (i *Interface) Close() error {
	if i.cmd.Process != nil {
		i.cmd.Process.Kill()
	}
	return i.master.Close()
}
