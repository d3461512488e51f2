// Package sliceio provides a forward-iterating view over a fixed-size byte
// buffer that wraps at the end, the window a buffered link interface hands
// to a parser so the parser never has to know the receive buffer wraps.
package sliceio

// Ring is a forward iterator over a fixed-size byte buffer with
// wrap-around. It carries three positions: begin, end (one past the
// buffer), and current, always within [begin, end).
//
// Ring is a value type: copying it copies the cursor, not the underlying
// buffer, the same way two C++ iterators into the same container are
// independent cursors over shared storage.
type Ring struct {
	buf     []byte
	begin   int
	end     int
	current int
}

// NewRing returns a Ring over buf with the cursor at its start.
func NewRing(buf []byte) Ring {
	return Ring{buf: buf, begin: 0, end: len(buf), current: 0}
}

// At returns a Ring over buf with the cursor placed at index start.
func At(buf []byte, start int) Ring {
	return Ring{buf: buf, begin: 0, end: len(buf), current: start}
}

// Byte dereferences the iterator, returning the byte at the current position.
func (r Ring) Byte() byte {
	return r.buf[r.current]
}

// Advance moves the cursor forward by one position, wrapping at end.
func (r Ring) Advance() Ring {
	r.current++
	if r.current == r.end {
		r.current = r.begin
	}
	return r
}

// AdvanceBy moves the cursor forward by n positions, wrapping at end.
// n must be less than the buffer's length.
func (r Ring) AdvanceBy(n int) Ring {
	r.current += n
	if r.current >= r.end {
		r.current -= r.end - r.begin
	}
	return r
}

// Distance returns the number of forward steps from r (the lagging
// iterator) to lead (the leading iterator), wrapping through the buffer
// if lead's position is numerically behind r's.
func (r Ring) Distance(lead Ring) int {
	d := lead.current - r.current
	if d < 0 {
		d += r.end - r.begin
	}
	return d
}

// Equal reports whether r and other refer to the same position.
func (r Ring) Equal(other Ring) bool {
	return r.current == other.current
}

// Pos returns the iterator's current index into the underlying buffer,
// for callers that need to slice around it directly.
func (r Ring) Pos() int {
	return r.current
}

// Len returns the length of the underlying buffer.
func (r Ring) Len() int {
	return r.end - r.begin
}
