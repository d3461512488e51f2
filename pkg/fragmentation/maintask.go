package fragmentation

import (
	"time"

	"protoserial/pkg/clock"
	"protoserial/pkg/metrics"
	"protoserial/pkg/wire"
	"protoserial/pkg/xfer"
)

// MainTask advances timeouts and triggers retransmits. It is driven by
// the application at a coarse polling rate (spec.md §4.4); it never
// blocks and never throws.
func (h *Handler) MainTask() {
	now := h.clock.Now()
	h.incoming = h.stepIncoming(now, h.incoming)
	h.metrics.InflightSet(metrics.Incoming, len(h.incoming))
	h.outgoing = h.stepOutgoing(now, h.outgoing)
	h.metrics.InflightSet(metrics.Outgoing, len(h.outgoing))
}

func (h *Handler) stepIncoming(now time.Time, records []*xfer.Progress) []*xfer.Progress {
	kept := records[:0:0]
	for _, prog := range records {
		if prog.IsTombstone() {
			if clock.OlderThan(now, prog.LastAccess, h.cfg.DropTime*time.Duration(h.cfg.TombstoneMultiplier)) {
				continue // erase
			}
			kept = append(kept, prog)
			continue
		}

		if prog.Transfer.IsComplete() && h.canTransmit() {
			t := prog.Transfer
			count := t.FragmentsCount()
			h.emitHeader(wire.FragmentAck, count, count, t.ID(), t.PrevID(), nil, t.Destination(), t.Source())
			h.metrics.AckSent()
			h.TransferReceiveEvent.Emit(t)
			h.metrics.TransferCompleted(metrics.Incoming)
			prog.Release(now)
			kept = append(kept, prog)
			continue
		}

		if clock.OlderThan(now, prog.Transfer.TimestampModified(), h.cfg.DropTime) {
			h.metrics.TransferDropped(metrics.Incoming)
			continue // erase
		}

		if h.canTransmit() &&
			clock.OlderThan(now, prog.Transfer.TimestampModified(), h.cfg.RetransmitTime) &&
			clock.OlderThan(now, prog.LastAccess, h.cfg.RetransmitTime) {
			idx := prog.Transfer.MissingFragment()
			t := prog.Transfer
			h.emitHeader(wire.FragmentReq, idx, t.FragmentsCount(), t.ID(), t.PrevID(), nil, t.Destination(), t.Source())
			h.metrics.FragmentReqSent()
			prog.RetransmitDone(now)
			h.metrics.Retransmission(metrics.Incoming)
		}
		kept = append(kept, prog)
	}
	return kept
}

func (h *Handler) stepOutgoing(now time.Time, records []*xfer.Progress) []*xfer.Progress {
	kept := records[:0:0]
	for _, prog := range records {
		if clock.OlderThan(now, prog.LastAccess, h.cfg.DropTime) {
			h.metrics.TransferDropped(metrics.Outgoing)
			continue // erase, no transfer_ack_event: best-effort reliability only
		}

		if h.canTransmit() &&
			prog.Retransmissions < uint(prog.Transfer.FragmentsCount())*h.cfg.RetransmitMultiplier &&
			clock.OlderThan(now, prog.LastAccess, h.cfg.RetransmitTime) {
			h.emitDataFragment(wire.Fragment, 1, prog)
			prog.RetransmitDone(now)
			h.metrics.Retransmission(metrics.Outgoing)
		}
		kept = append(kept, prog)
	}
	return kept
}
