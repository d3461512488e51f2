// Package fragmentation implements the central state machine: the
// receive callback, the periodic maintenance task, the transmit entry
// point, and ACK/REQ generation and timeout/drop policy described in
// spec.md §4.3-§4.6. It is adapted line-for-line from
// original_source/libprotoserial/fragmentation/fragmentation.hpp's
// fragmentation_handler, generalized from C++ std::list<transfer_progress>
// to Go slices and from subject<T>/C++ exceptions to link.Subject[T] and
// Go error returns, and enriched with the optional metrics and logging
// hooks the teacher's transport layer carries (pkg/transport/master_transport.go,
// internal/logger).
package fragmentation

import (
	"protoserial/pkg/clock"
	"protoserial/internal/logger"
	"protoserial/pkg/link"
	"protoserial/pkg/metrics"
	"protoserial/pkg/wire"
	"protoserial/pkg/xfer"
)

// Handler is the fragmentation/reassembly state machine. It is never
// entered reentrantly (spec.md §5): ReceiveCallback and MainTask are the
// only two entry points, and the caller — not Handler — is responsible
// for serializing calls into it. Accordingly Handler carries no internal
// lock; see SPEC_FULL.md §5 for why that is a deliberate departure from
// the teacher's concurrent transport layer rather than an oversight.
type Handler struct {
	cfg             Config
	maxFragmentSize int

	incoming []*xfer.Progress
	outgoing []*xfer.Progress

	status link.Status

	clock   clock.Source
	metrics metrics.Recorder
	log     logger.Logger

	TransmitEvent        link.Subject[link.Fragment]
	TransferReceiveEvent link.Subject[*xfer.Transfer]
	TransferAckEvent     link.Subject[xfer.Metadata]
}

// Option configures optional Handler collaborators.
type Option func(*Handler)

// WithClock overrides the handler's time source, for deterministic tests.
func WithClock(c clock.Source) Option {
	return func(h *Handler) { h.clock = c }
}

// WithMetrics attaches a metrics.Recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger attaches a logger.Logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler constructs a Handler from cfg.
func NewHandler(cfg Config, opts ...Option) *Handler {
	h := &Handler{
		cfg:             cfg,
		maxFragmentSize: cfg.payloadSize(),
		clock:           clock.Real{},
		metrics:         metrics.NoOp(),
		log:             logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MaxFragmentSize returns the usable payload size per fragment, header
// excluded, computed once from the interface's max data size.
func (h *Handler) MaxFragmentSize() int {
	return h.maxFragmentSize
}

// BindTo wires i's receive/status events into the handler's callbacks and
// the handler's TransmitEvent into i's write entry point. This is the
// shortcut-for-event-subscribe spec.md §4.3 describes.
func (h *Handler) BindTo(i link.Interface) {
	i.ReceiveEvent().Subscribe(h.ReceiveCallback)
	i.StatusEvent().Subscribe(h.interfaceStatusCallback)
	h.TransmitEvent.Subscribe(i.WriteNoexcept)
}

func (h *Handler) interfaceStatusCallback(s link.Status) {
	h.status = s
}

func (h *Handler) canTransmit() bool {
	return h.status.AvailableTransmitSlots > 0
}

// ReceiveCallback handles one fragment off the link. It never panics and
// never returns an error to the caller: malformed input is a silent drop
// (spec.md §7).
func (h *Handler) ReceiveCallback(p link.Fragment) {
	if len(p.Data) < wire.HeaderSize {
		return
	}
	hdr, err := wire.HeaderFromBytes(p.Data)
	if err != nil || !hdr.IsValid() {
		return
	}
	p.Data = p.Data[wire.HeaderSize:]
	h.handleFragment(hdr, p)
}

// Transmit stores t as a new outgoing progress record and emits as many
// of its fragments as the link currently has slots for; the rest are sent
// opportunistically through retransmission (spec.md §4.3).
func (h *Handler) Transmit(t *xfer.Transfer) {
	now := h.clock.Now()
	prog := xfer.NewProgress(t, now)
	h.outgoing = append(h.outgoing, prog)
	h.metrics.TransferCreated(metrics.Outgoing)

	count := t.FragmentsCount()
	for idx := uint8(1); idx <= count; idx++ {
		if !h.canTransmit() {
			break
		}
		h.emitDataFragment(wire.Fragment, idx, prog)
	}
	prog.TransmitDone(now)
	h.metrics.InflightSet(metrics.Outgoing, len(h.outgoing))
}

func (h *Handler) emitHeader(typ wire.Type, index, total uint8, id, prevID uint16, payload []byte, src, dst link.Address) {
	hdr := wire.Header{Type: typ, Index: index, Total: total, ID: id, PrevID: prevID}
	data := append(hdr.Bytes(), payload...)
	h.TransmitEvent.Emit(link.Fragment{Source: src, Destination: dst, Data: data, Interface: h.cfg.Interface})
}

// emitDataFragment materializes fragment index out of prog's (necessarily
// transmission-mode) transfer and emits it with header type typ.
func (h *Handler) emitDataFragment(typ wire.Type, index uint8, prog *xfer.Progress) {
	t := prog.Transfer
	payload, err := t.GetFragment(index)
	if err != nil {
		h.log.Warn("fragmentation: GetFragment(%d) for id %d failed: %v", index, t.ID(), err)
		return
	}
	h.emitHeader(typ, index, t.FragmentsCount(), t.ID(), t.PrevID(), payload, t.Source(), t.Destination())
}
