package fragmentation

import (
	"protoserial/pkg/link"
	"protoserial/pkg/metrics"
	"protoserial/pkg/wire"
	"protoserial/pkg/xfer"
)

// handleFragment dispatches a parsed header and its stripped payload to
// the incoming or outgoing transfer list per spec.md §4.4.
func (h *Handler) handleFragment(hdr wire.Header, p link.Fragment) {
	switch hdr.Type {
	case wire.Fragment:
		h.handleIncomingFragment(hdr, p)
	case wire.FragmentReq:
		h.handleFragmentReq(hdr, p)
	case wire.FragmentAck:
		h.handleFragmentAck(hdr, p)
	default:
		// unknown type: silent drop
	}
}

// handleIncomingFragment implements spec.md §4.4's three cases for a
// received FRAGMENT: no match creates a new reassembly transfer, a match
// against a live transfer assigns into it, and a match against a
// tombstone re-emits the ACK the peer evidently missed.
func (h *Handler) handleIncomingFragment(hdr wire.Header, p link.Fragment) {
	now := h.clock.Now()

	prog := h.findIncoming(hdr, p)
	if prog == nil {
		t := xfer.NewReassemblyTransfer(h.cfg.Interface, p.Source, p.Destination, hdr.ID, hdr.PrevID, hdr.Total, now)
		prog = xfer.NewProgress(t, now)
		h.incoming = append(h.incoming, prog)
		h.metrics.TransferCreated(metrics.Incoming)
		h.metrics.InflightSet(metrics.Incoming, len(h.incoming))
		if err := t.Assign(hdr.Index, p.Data, now); err != nil {
			h.log.Warn("fragmentation: assign on new incoming transfer %d failed: %v", hdr.ID, err)
		}
		return
	}

	if !prog.IsTombstone() {
		if err := prog.Transfer.Assign(hdr.Index, p.Data, now); err != nil {
			h.log.Warn("fragmentation: assign on incoming transfer %d failed: %v", hdr.ID, err)
		}
		return
	}

	// Tombstone: the peer thinks we missed its transfer because our
	// previous ACK was lost. Reply with a fresh ACK, drop the fragment.
	if h.canTransmit() {
		h.emitHeader(wire.FragmentAck, hdr.Index, hdr.Total, hdr.ID, hdr.PrevID, nil, p.Destination, p.Source)
		h.metrics.AckSent()
	}
}

// findIncoming locates the incoming progress record for hdr.ID, matching
// a live transfer by Transfer.Match and a tombstone by its shadow id —
// spec.md §3's note that the progress record keeps an id shadow once its
// transfer is released specifically so this lookup still works.
func (h *Handler) findIncoming(hdr wire.Header, p link.Fragment) *xfer.Progress {
	for _, prog := range h.incoming {
		if prog.IsTombstone() {
			if prog.ID == hdr.ID {
				return prog
			}
			continue
		}
		if prog.Transfer.ID() == hdr.ID && prog.Transfer.Match(p) {
			return prog
		}
	}
	return nil
}

// handleFragmentReq fulfills a peer's retransmit request for one of our
// outgoing fragments.
func (h *Handler) handleFragmentReq(hdr wire.Header, p link.Fragment) {
	prog := h.findOutgoing(hdr, p)
	if prog == nil || !h.canTransmit() {
		return
	}
	h.emitDataFragment(wire.Fragment, hdr.Index, prog)
	prog.RetransmitDone(h.clock.Now())
	h.metrics.Retransmission(metrics.Outgoing)
}

// handleFragmentAck processes a peer's confirmation of one of our
// outgoing transfers: fires transfer_ack_event and erases the record —
// unlike the incoming side, once we have the ACK we can be sure the peer
// is done, so there is no tombstone to keep.
func (h *Handler) handleFragmentAck(hdr wire.Header, p link.Fragment) {
	idx := -1
	for i, prog := range h.outgoing {
		if prog.Transfer != nil && prog.Transfer.ID() == hdr.ID && prog.Transfer.MatchAsResponse(p) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	h.metrics.AckReceived()
	h.TransferAckEvent.Emit(h.outgoing[idx].Transfer.GetMetadata())
	h.outgoing = append(h.outgoing[:idx], h.outgoing[idx+1:]...)
	h.metrics.InflightSet(metrics.Outgoing, len(h.outgoing))
}

func (h *Handler) findOutgoing(hdr wire.Header, p link.Fragment) *xfer.Progress {
	for _, prog := range h.outgoing {
		if prog.Transfer != nil && prog.Transfer.ID() == hdr.ID && prog.Transfer.MatchAsResponse(p) {
			return prog
		}
	}
	return nil
}
