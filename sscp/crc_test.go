package sscp

import (
	"math/rand"
	"testing"
)

func TestCRCCCITT_KnownVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", []byte{}, 0xFFFF},
		{"123456789", []byte("123456789"), 0x29B1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crcCCITT(tt.data); got != tt.want {
				t.Errorf("crcCCITT(%X) = %04X, want %04X", tt.data, got, tt.want)
			}
		})
	}
}

func TestCRCCCITT_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 64; i++ {
		addr := byte(i % 128)
		proto := byte(0x20 + i%2)
		payload := make([]byte, i)
		r.Read(payload)

		frame, err := encodeFrame(addr, proto, payload)
		if err != nil {
			t.Fatalf("encodeFrame: %v", err)
		}
		gotAddr, gotProto, gotPayload, err := decodeFrame(frame)
		if err != nil {
			t.Fatalf("decodeFrame: %v", err)
		}
		if gotAddr != addr || gotProto != proto {
			t.Fatalf("addr/proto mismatch: got (%02X,%02X) want (%02X,%02X)", gotAddr, gotProto, addr, proto)
		}
		if string(gotPayload) != string(payload) {
			t.Fatalf("payload round-trip mismatch at len %d", i)
		}
	}
}

func TestCRCCCITT_BadCRCDetected(t *testing.T) {
	frame, err := encodeFrame(0x00, 0x20, []byte{0x00, 0x00})
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	frame[len(frame)-1] ^= 0xFF

	if _, _, _, err := decodeFrame(frame); err == nil {
		t.Fatalf("expected CRC mismatch error, got nil")
	} else if sErr, ok := err.(*Error); !ok || sErr.Kind != KindFrame {
		t.Fatalf("expected KindFrame error, got %v", err)
	}
}
