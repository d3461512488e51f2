package wire

import (
	"bytes"
	"testing"
)

func TestFramerRoundTrip(t *testing.T) {
	framed := Frame(1, 2, []byte("hello"))

	f := NewFramer(64)
	if err := f.Feed(framed); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	p, ok, err := f.Next()
	if !ok {
		t.Fatal("Next() should have a complete frame buffered")
	}
	if err != nil {
		t.Fatalf("Next(): %v", err)
	}
	if p.Source != 1 || p.Destination != 2 {
		t.Errorf("Source/Destination = %d/%d, want 1/2", p.Source, p.Destination)
	}
	if !bytes.Equal(p.Body, []byte("hello")) {
		t.Errorf("Body = %q, want %q", p.Body, "hello")
	}
}

func TestFramerWaitsForCompleteFrame(t *testing.T) {
	framed := Frame(1, 2, []byte("hello world"))
	f := NewFramer(64)

	if err := f.Feed(framed[:len(framed)-3]); err != nil {
		t.Fatalf("Feed partial: %v", err)
	}
	if _, ok, _ := f.Next(); ok {
		t.Fatal("Next() should not produce a frame before all its bytes arrive")
	}

	if err := f.Feed(framed[len(framed)-3:]); err != nil {
		t.Fatalf("Feed remainder: %v", err)
	}
	_, ok, err := f.Next()
	if !ok || err != nil {
		t.Fatalf("Next() after the remainder arrived: ok=%v err=%v", ok, err)
	}
}

func TestFramerHandlesMultipleFramesAndWrap(t *testing.T) {
	f := NewFramer(32) // deliberately small so frames wrap around the buffer
	for i := 0; i < 20; i++ {
		if err := f.Feed(Frame(uint16(i), uint16(i+1), []byte{byte(i)})); err != nil {
			t.Fatalf("Feed frame %d: %v", i, err)
		}
		p, ok, err := f.Next()
		if !ok || err != nil {
			t.Fatalf("frame %d: ok=%v err=%v", i, ok, err)
		}
		if p.Source != uint16(i) || len(p.Body) != 1 || p.Body[0] != byte(i) {
			t.Errorf("frame %d: got %+v", i, p)
		}
	}
}

func TestFramerDetectsCorruptedChecksum(t *testing.T) {
	framed := Frame(1, 2, []byte("hello"))
	framed[len(framed)-1] ^= 0xFF // flip a bit in the footer

	f := NewFramer(64)
	if err := f.Feed(framed); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	_, ok, err := f.Next()
	if !ok {
		t.Fatal("a corrupted but complete frame should still be consumed off the buffer")
	}
	if err != ErrBadChecksum {
		t.Errorf("Next() error = %v, want ErrBadChecksum", err)
	}
}

func TestFramerRejectsOverflow(t *testing.T) {
	f := NewFramer(8)
	if err := f.Feed(make([]byte, 9)); err != ErrFrameTooLarge {
		t.Errorf("Feed() = %v, want ErrFrameTooLarge", err)
	}
}
