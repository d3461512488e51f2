package xfer

import "time"

// Progress wraps a Transfer with the bookkeeping the handler needs but the
// payload itself shouldn't carry: when it was last touched, how many times
// it has been retransmitted, and a shadow of its id that survives after
// Transfer is released.
//
// Once an incoming transfer has been delivered via transfer_receive_event,
// Transfer is set to nil and the record lingers as a tombstone — spec.md
// §9's "release-the-transfer-but-keep-the-record" note, represented here
// as a nil-able field rather than a separate tagged union since Go structs
// don't need the latter to express "maybe absent".
type Progress struct {
	Transfer        *Transfer
	ID              uint16
	LastAccess      time.Time
	Retransmissions uint
}

// NewProgress wraps t, stamping LastAccess at now. ID shadows t.ID() so it
// survives Release.
func NewProgress(t *Transfer, now time.Time) *Progress {
	return &Progress{Transfer: t, ID: t.ID(), LastAccess: now}
}

// IsTombstone reports whether this record's transfer has already been
// released.
func (p *Progress) IsTombstone() bool {
	return p.Transfer == nil
}

// Release nils out the owned transfer, turning this record into a
// tombstone, and stamps LastAccess.
func (p *Progress) Release(now time.Time) {
	p.Transfer = nil
	p.LastAccess = now
}

// TransmitDone stamps LastAccess after a fresh transmit.
func (p *Progress) TransmitDone(now time.Time) {
	p.LastAccess = now
}

// RetransmitDone stamps LastAccess and increments the retry counter after
// a retransmission or retransmit request.
func (p *Progress) RetransmitDone(now time.Time) {
	p.LastAccess = now
	p.Retransmissions++
}
