package wire

import (
	"bytes"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	raw := SerializePacket(10, 20, body)

	p, err := ParsePacket(raw)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if p.Source != 10 || p.Destination != 20 {
		t.Errorf("addresses: got src=%d dst=%d", p.Source, p.Destination)
	}
	if !bytes.Equal(p.Body, body) {
		t.Errorf("body mismatch: got %v, want %v", p.Body, body)
	}
}

func TestPacketBadChecksum(t *testing.T) {
	raw := SerializePacket(1, 2, []byte{0xAA})
	raw[len(raw)-1] ^= 0xFF

	_, err := ParsePacket(raw)
	if err != ErrBadChecksum {
		t.Errorf("expected ErrBadChecksum, got %v", err)
	}
}

func TestPacketBadSize(t *testing.T) {
	_, err := ParsePacket([]byte{0x01, 0x02})
	if err != ErrBadSize {
		t.Errorf("expected ErrBadSize, got %v", err)
	}
}

func TestCRC16KnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{"empty", []byte{}, 0xFFFF},
		{"single byte", []byte{0x05}, 0x9F15},
		{"two bytes", []byte{0x05, 0x64}, 0x7A65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.expected {
				t.Errorf("CRC16(%v) = %#04x, want %#04x", tt.data, got, tt.expected)
			}
		})
	}
}
