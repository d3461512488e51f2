// Package quicif adapts github.com/quic-go/quic-go into a link.Interface,
// grounded on pkg/channel/quic_channel.go's QUICChannel: the same
// dial/listen-and-accept-stream shape and reconnect loop, stripped of the
// DNP3 frame-length parser (replaced by wire.Framer's checksum-verified
// packet framing) and of PhysicalChannel in favor of link.Interface.
//
// Reads happen on a background goroutine and are only queued, never
// delivered synchronously: fragmentation.Handler must never be reentered,
// so the caller is expected to drain Fragments() and call
// ReceiveEvent().Emit itself from its single serialized event loop (see
// cmd/fragctl). This is the same discipline BindTo documents for every
// link.Interface, made unavoidable here because the QUIC stream read loop
// runs on its own goroutine.
package quicif

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"golang.org/x/sync/singleflight"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
	"protoserial/pkg/wire"
)

// framerBufSize sizes the Framer's wrap-around accumulation buffer well
// above any single fragment the handler will ever hand this interface.
const framerBufSize = 16384

// Config configures a QUIC link.Interface.
type Config struct {
	Address        string        // "host:port"
	IsServer       bool          // true = listen, false = dial
	MaxDataSize    int           // maximum on-wire fragment size
	ReconnectDelay time.Duration // client-only
	TLSConfig      *tls.Config   // nil generates a self-signed cert
}

// Interface is a link.Interface backed by a single QUIC stream.
type Interface struct {
	cfg Config
	id  link.InterfaceIdentifier
	log logger.Logger

	connLock   sync.RWMutex
	connection *quic.Conn
	stream     *quic.Stream

	listener *quic.Listener

	fragments chan link.Fragment

	receive link.Subject[link.Fragment]
	status  link.Subject[link.Status]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// redial deduplicates concurrent reconnect attempts: while one dial
	// triggered by readLoop is still running, another trigger joins it
	// instead of starting a second dial.
	redial singleflight.Group
}

// New builds and starts an Interface per cfg: it either listens for one
// incoming connection (IsServer) or dials out, then begins reading
// fragments into its internal queue.
func New(cfg Config, log logger.Logger) (*Interface, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("quicif: address is required")
	}
	if cfg.MaxDataSize <= 0 {
		cfg.MaxDataSize = 1200
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		var err error
		tlsConfig, err = generateTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("quicif: generate TLS config: %w", err)
		}
	}
	cfg.TLSConfig = tlsConfig

	ctx, cancel := context.WithCancel(context.Background())
	iface := &Interface{
		cfg:       cfg,
		id:        link.NewInterfaceIdentifier(),
		log:       log,
		fragments: make(chan link.Fragment, 64),
		ctx:       ctx,
		cancel:    cancel,
	}

	var err error
	if cfg.IsServer {
		err = iface.startServer()
	} else {
		err = iface.dial()
	}
	if err != nil {
		cancel()
		return nil, err
	}
	return iface, nil
}

func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		NextProtos:         []string{"protoserial-quic"},
		InsecureSkipVerify: true,
	}, nil
}

func (i *Interface) startServer() error {
	udpAddr, err := net.ResolveUDPAddr("udp", i.cfg.Address)
	if err != nil {
		return fmt.Errorf("quicif: resolve %s: %w", i.cfg.Address, err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("quicif: listen %s: %w", i.cfg.Address, err)
	}
	listener, err := quic.Listen(udpConn, i.cfg.TLSConfig, nil)
	if err != nil {
		udpConn.Close()
		return fmt.Errorf("quicif: quic.Listen: %w", err)
	}
	i.listener = listener
	i.wg.Add(1)
	go i.acceptLoop()
	return nil
}

func (i *Interface) acceptLoop() {
	defer i.wg.Done()
	for {
		conn, err := i.listener.Accept(i.ctx)
		if err != nil {
			return
		}
		i.setConnection(conn)
		i.wg.Add(1)
		go i.acceptStream(conn)
	}
}

func (i *Interface) acceptStream(conn *quic.Conn) {
	defer i.wg.Done()
	stream, err := conn.AcceptStream(i.ctx)
	if err != nil {
		return
	}
	i.setStream(stream)
	i.emitStatus(1)
	i.readLoop(stream)
}

func (i *Interface) dial() error {
	localAddr, err := net.ResolveUDPAddr("udp", "0.0.0.0:0")
	if err != nil {
		return fmt.Errorf("quicif: resolve local addr: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return fmt.Errorf("quicif: open udp socket: %w", err)
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", i.cfg.Address)
	if err != nil {
		udpConn.Close()
		return fmt.Errorf("quicif: resolve %s: %w", i.cfg.Address, err)
	}
	conn, err := quic.Dial(i.ctx, udpConn, remoteAddr, i.cfg.TLSConfig, nil)
	if err != nil {
		udpConn.Close()
		return fmt.Errorf("quicif: dial %s: %w", i.cfg.Address, err)
	}
	stream, err := conn.OpenStreamSync(i.ctx)
	if err != nil {
		conn.CloseWithError(0, "open stream failed")
		return fmt.Errorf("quicif: open stream: %w", err)
	}
	i.setConnection(conn)
	i.setStream(stream)
	i.emitStatus(1)
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.readLoop(stream)
	}()
	return nil
}

// readLoop reads checksum-framed fragments off stream through a wire.Framer
// and enqueues them. The length-prefix-plus-CRC envelope replaces the
// DNP3-specific frame parser the teacher's QUICChannel.Read used, since a
// fragmentation fragment has no fixed frame sync bytes of its own.
func (i *Interface) readLoop(stream *quic.Stream) {
	framer := wire.NewFramer(framerBufSize)
	scratch := make([]byte, 4096)
	for {
		n, err := stream.Read(scratch)
		if n > 0 {
			if ferr := framer.Feed(scratch[:n]); ferr != nil {
				i.log.Error("quicif: framer overrun: %v", ferr)
				i.emitStatus(0)
				i.triggerReconnect()
				return
			}
			if !i.drainFrames(framer) {
				return
			}
		}
		if err != nil {
			i.log.Warn("quicif: read: %v", err)
			i.emitStatus(0)
			i.triggerReconnect()
			return
		}
	}
}

// drainFrames delivers every complete frame currently buffered in framer,
// reporting false if the caller's context was cancelled mid-delivery.
func (i *Interface) drainFrames(framer *wire.Framer) bool {
	for {
		p, ok, err := framer.Next()
		if !ok {
			return true
		}
		if err != nil {
			i.log.Warn("quicif: dropping malformed frame: %v", err)
			continue
		}
		select {
		case i.fragments <- link.Fragment{
			Source:      link.Address(p.Source),
			Destination: link.Address(p.Destination),
			Data:        p.Body,
			Interface:   i.id,
		}:
		case <-i.ctx.Done():
			return false
		}
	}
}

// triggerReconnect redials after cfg.ReconnectDelay when running as a
// client. Server mode has no peer to redial to; a fresh client connection
// will simply show up through acceptLoop instead. redial.Do collapses
// triggers whose dials overlap into a single dial attempt. Only readLoop
// triggers a reconnect; a failed WriteNoexcept is logged and nothing more.
func (i *Interface) triggerReconnect() {
	if i.cfg.IsServer {
		return
	}
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		select {
		case <-time.After(i.cfg.ReconnectDelay):
		case <-i.ctx.Done():
			return
		}
		_, err, _ := i.redial.Do("dial", func() (interface{}, error) {
			return nil, i.dial()
		})
		if err != nil {
			i.log.Warn("quicif: reconnect: %v", err)
		}
	}()
}

func (i *Interface) setConnection(c *quic.Conn) {
	i.connLock.Lock()
	i.connection = c
	i.connLock.Unlock()
}

func (i *Interface) setStream(s *quic.Stream) {
	i.connLock.Lock()
	i.stream = s
	i.connLock.Unlock()
}

func (i *Interface) emitStatus(slots int) {
	i.status.Emit(link.Status{AvailableTransmitSlots: slots})
}

// Fragments is the queue the caller's single event loop must drain and
// feed to ReceiveEvent().Emit.
func (i *Interface) Fragments() <-chan link.Fragment { return i.fragments }

func (i *Interface) MaxDataSize() int                          { return i.cfg.MaxDataSize }
func (i *Interface) ReceiveEvent() *link.Subject[link.Fragment] { return &i.receive }
func (i *Interface) StatusEvent() *link.Subject[link.Status]    { return &i.status }
func (i *Interface) Identifier() link.InterfaceIdentifier       { return i.id }

// WriteNoexcept writes f as a checksum-framed packet to the current stream.
// Failures are logged, not returned, per link.Interface's contract.
func (i *Interface) WriteNoexcept(f link.Fragment) {
	i.connLock.RLock()
	stream := i.stream
	i.connLock.RUnlock()
	if stream == nil {
		i.log.Warn("quicif: write with no stream established")
		return
	}
	framed := wire.Frame(uint16(f.Source), uint16(f.Destination), f.Data)
	if _, err := stream.Write(framed); err != nil {
		i.log.Warn("quicif: write: %v", err)
	}
}

// Close tears down the stream, connection, and listener.
func (i *Interface) Close() error {
	i.cancel()
	i.connLock.Lock()
	if i.stream != nil {
		i.stream.Close()
	}
	if i.connection != nil {
		i.connection.CloseWithError(0, "closed")
	}
	i.connLock.Unlock()
	if i.listener != nil {
		i.listener.Close()
	}
	i.wg.Wait()
	return nil
}
