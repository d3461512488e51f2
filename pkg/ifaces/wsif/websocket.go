// Package wsif adapts github.com/gorilla/websocket into a link.Interface,
// following the same dial-or-listen, background-read-loop shape as
// pkg/channel/tcp_channel.go but speaking one binary WebSocket message per
// fragment instead of raw stream bytes. WebSocket already frames each
// message, so this interface deliberately does not run its payload through
// wire.Framer/ParsePacket the way quicif and ptyif run theirs through
// wire.Framer (a continuous byte stream with no message boundaries of its
// own) and yamuxif through ParsePacket, while a ReadMessage call here
// already returns exactly one fragment's bytes.

package wsif

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"protoserial/internal/logger"
	"protoserial/pkg/link"
)

// Config configures a WebSocket link.Interface.
type Config struct {
	// ListenAddr, when set, runs a server accepting one connection at Path.
	ListenAddr string
	Path       string
	// DialURL, when set (and ListenAddr is not), dials out as a client.
	DialURL     string
	MaxDataSize int
}

// Interface is a link.Interface backed by a single WebSocket connection.
type Interface struct {
	cfg Config
	id  link.InterfaceIdentifier
	log logger.Logger

	connLock sync.RWMutex
	conn     *websocket.Conn
	writeMu  sync.Mutex

	fragments chan link.Fragment
	receive   link.Subject[link.Fragment]
	status    link.Subject[link.Status]

	server *http.Server
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// New builds an Interface per cfg. A ListenAddr interface starts an HTTP
// server and upgrades its first connection; a DialURL interface connects
// immediately.
func New(cfg Config, log logger.Logger) (*Interface, error) {
	if cfg.MaxDataSize <= 0 {
		cfg.MaxDataSize = 1200
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	i := &Interface{
		cfg:       cfg,
		id:        link.NewInterfaceIdentifier(),
		log:       log,
		fragments: make(chan link.Fragment, 64),
	}

	switch {
	case cfg.ListenAddr != "":
		if err := i.listen(); err != nil {
			return nil, err
		}
	case cfg.DialURL != "":
		if err := i.dial(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("wsif: one of ListenAddr or DialURL is required")
	}
	return i, nil
}

func (i *Interface) listen() error {
	mux := http.NewServeMux()
	ready := make(chan struct{})
	mux.HandleFunc(i.cfg.Path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			i.log.Error("wsif: upgrade: %v", err)
			return
		}
		i.setConn(conn)
		close(ready)
		i.readLoop(conn)
	})
	i.server = &http.Server{Addr: i.cfg.ListenAddr, Handler: mux}
	go func() {
		if err := i.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			i.log.Error("wsif: serve: %v", err)
		}
	}()
	return nil
}

func (i *Interface) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(i.cfg.DialURL, nil)
	if err != nil {
		return fmt.Errorf("wsif: dial %s: %w", i.cfg.DialURL, err)
	}
	i.setConn(conn)
	i.status.Emit(link.Status{AvailableTransmitSlots: 1})
	go i.readLoop(conn)
	return nil
}

func (i *Interface) setConn(c *websocket.Conn) {
	i.connLock.Lock()
	i.conn = c
	i.connLock.Unlock()
	i.status.Emit(link.Status{AvailableTransmitSlots: 1})
}

func (i *Interface) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			i.log.Warn("wsif: read: %v", err)
			i.status.Emit(link.Status{AvailableTransmitSlots: 0})
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		i.fragments <- link.Fragment{Data: data, Interface: i.id}
	}
}

// Fragments is the queue the caller's single event loop must drain and
// feed to ReceiveEvent().Emit, same discipline as quicif.Interface.
func (i *Interface) Fragments() <-chan link.Fragment { return i.fragments }

func (i *Interface) MaxDataSize() int                          { return i.cfg.MaxDataSize }
func (i *Interface) ReceiveEvent() *link.Subject[link.Fragment] { return &i.receive }
func (i *Interface) StatusEvent() *link.Subject[link.Status]    { return &i.status }
func (i *Interface) Identifier() link.InterfaceIdentifier       { return i.id }

// WriteNoexcept sends f.Data as a single binary WebSocket message.
func (i *Interface) WriteNoexcept(f link.Fragment) {
	i.connLock.RLock()
	conn := i.conn
	i.connLock.RUnlock()
	if conn == nil {
		i.log.Warn("wsif: write with no connection established")
		return
	}
	i.writeMu.Lock()
	defer i.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.BinaryMessage, f.Data); err != nil {
		i.log.Warn("wsif: write: %v", err)
	}
}

// Close tears down the connection and, for a listening Interface, the
// HTTP server.
func (i *Interface) Close() error {
	i.connLock.Lock()
	if i.conn != nil {
		i.conn.Close()
	}
	i.connLock.Unlock()
	if i.server != nil {
		return i.server.Close()
	}
	return nil
}
