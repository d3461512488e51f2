// Package yamuxif adapts github.com/hashicorp/yamux into a link.Interface:
// a single underlying net.Conn (typically a TCP connection) carries a yamux
// session, and every fragment written crosses on its own short-lived yamux
// stream.
// Grounded on pkg/channel/tcp_channel.go's dial-or-listen shape, with the
// raw net.Conn handed to yamux.Client/yamux.Server instead of read/written
// to directly.
package yamuxif

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/hashicorp/yamux"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
	"protoserial/pkg/wire"
)

// Config configures a yamux-multiplexed link.Interface.
type Config struct {
	Address     string // "host:port"
	IsServer    bool
	MaxDataSize int
}

// Interface is a link.Interface backed by a yamux session over one
// net.Conn; every fragment crosses on its own yamux stream.
type Interface struct {
	cfg Config
	id  link.InterfaceIdentifier
	log logger.Logger

	sessionLock sync.RWMutex
	session     *yamux.Session
	listener    net.Listener

	fragments chan link.Fragment
	receive   link.Subject[link.Fragment]
	status    link.Subject[link.Status]
}

// New dials or listens per cfg and establishes the yamux session.
func New(cfg Config, log logger.Logger) (*Interface, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("yamuxif: address is required")
	}
	if cfg.MaxDataSize <= 0 {
		cfg.MaxDataSize = 1200
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	i := &Interface{cfg: cfg, id: link.NewInterfaceIdentifier(), log: log, fragments: make(chan link.Fragment, 64)}

	if cfg.IsServer {
		if err := i.startServer(); err != nil {
			return nil, err
		}
	} else {
		if err := i.dial(); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Interface) startServer() error {
	ln, err := net.Listen("tcp", i.cfg.Address)
	if err != nil {
		return fmt.Errorf("yamuxif: listen %s: %w", i.cfg.Address, err)
	}
	i.listener = ln
	go i.acceptLoop()
	return nil
}

func (i *Interface) acceptLoop() {
	for {
		conn, err := i.listener.Accept()
		if err != nil {
			return
		}
		session, err := yamux.Server(conn, nil)
		if err != nil {
			i.log.Error("yamuxif: server handshake: %v", err)
			conn.Close()
			continue
		}
		i.setSession(session)
		go i.acceptStreams(session)
	}
}

func (i *Interface) dial() error {
	conn, err := net.Dial("tcp", i.cfg.Address)
	if err != nil {
		return fmt.Errorf("yamuxif: dial %s: %w", i.cfg.Address, err)
	}
	session, err := yamux.Client(conn, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("yamuxif: client handshake: %w", err)
	}
	i.setSession(session)
	go i.acceptStreams(session)
	return nil
}

func (i *Interface) setSession(s *yamux.Session) {
	i.sessionLock.Lock()
	i.session = s
	i.sessionLock.Unlock()
	i.status.Emit(link.Status{AvailableTransmitSlots: 1})
}

// acceptStreams reads each peer-opened stream to completion: one
// checksum-framed fragment per stream, since yamux only guarantees
// ordering within a stream.
func (i *Interface) acceptStreams(session *yamux.Session) {
	for {
		stream, err := session.AcceptStream()
		if err != nil {
			i.log.Warn("yamuxif: accept stream: %v", err)
			i.status.Emit(link.Status{AvailableTransmitSlots: 0})
			return
		}
		go i.readStream(stream)
	}
}

// readStream reads one checksum-framed wire.Packet off a fresh stream.
// Unlike quicif/ptyif, which multiplex arbitrarily many fragments over
// one long-lived byte stream and so need wire.Framer's wrap-around
// reassembly, a yamux stream already delimits exactly one fragment, so
// ParsePacket is applied directly to the stream's single frame body.
func (i *Interface) readStream(stream *yamux.Stream) {
	defer stream.Close()
	var lenBuf [4]byte
	if _, err := io.ReadFull(stream, lenBuf[:]); err != nil {
		return
	}
	frame := make([]byte, binary.BigEndian.Uint32(lenBuf[:]))
	if _, err := io.ReadFull(stream, frame); err != nil {
		return
	}
	p, err := wire.ParsePacket(frame)
	if err != nil {
		i.log.Warn("yamuxif: dropping malformed frame: %v", err)
		return
	}
	i.fragments <- link.Fragment{
		Source:      link.Address(p.Source),
		Destination: link.Address(p.Destination),
		Data:        p.Body,
		Interface:   i.id,
	}
}

// Fragments is the queue the caller's single event loop must drain and
// feed to ReceiveEvent().Emit.
func (i *Interface) Fragments() <-chan link.Fragment { return i.fragments }

func (i *Interface) MaxDataSize() int                          { return i.cfg.MaxDataSize }
func (i *Interface) ReceiveEvent() *link.Subject[link.Fragment] { return &i.receive }
func (i *Interface) StatusEvent() *link.Subject[link.Status]    { return &i.status }
func (i *Interface) Identifier() link.InterfaceIdentifier       { return i.id }

// WriteNoexcept opens a fresh yamux stream for f and writes it as a single
// checksum-framed packet; the stream is closed as soon as the write returns.
func (i *Interface) WriteNoexcept(f link.Fragment) {
	i.sessionLock.RLock()
	session := i.session
	i.sessionLock.RUnlock()
	if session == nil {
		i.log.Warn("yamuxif: write with no session established")
		return
	}
	stream, err := session.OpenStream()
	if err != nil {
		i.log.Warn("yamuxif: open stream: %v", err)
		return
	}
	defer stream.Close()
	packet := wire.SerializePacket(uint16(f.Source), uint16(f.Destination), f.Data)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(packet)))
	if _, err := stream.Write(lenBuf[:]); err != nil {
		i.log.Warn("yamuxif: write length prefix: %v", err)
		return
	}
	if _, err := stream.Write(packet); err != nil {
		i.log.Warn("yamuxif: write body: %v", err)
	}
}

// Close tears down the session and listener.
func (i *Interface) Close() error {
	i.sessionLock.Lock()
	if i.session != nil {
		i.session.Close()
	}
	i.sessionLock.Unlock()
	if i.listener != nil {
		return i.listener.Close()
	}
	return nil
}
