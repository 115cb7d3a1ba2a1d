package protocol

import (
	"bytes"
	"testing"
	"time"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{
			"audio frame",
			&Frame{
				Header:  &Header{Kind: FrameKindAudio, Rate: 16000, Timestamp: 1700000000000000},
				Payload: []byte{0x01, 0x02, 0x03, 0x04},
			},
		},
		{
			"video frame",
			&Frame{
				Header:  &Header{Kind: FrameKindVideo, Format: VideoFormatJPEG, Timestamp: 1700000000000000},
				Payload: []byte{0xFF, 0xD8, 0xFF},
			},
		},
		{
			"flush frame",
			&Frame{
				Header: &Header{Kind: FrameKindFlush, Rate: 16000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeFrame(tt.frame)
			if err != nil {
				t.Fatalf("EncodeFrame failed: %v", err)
			}
			if len(encoded) != HeaderSize+len(tt.frame.Payload) {
				t.Errorf("Expected %d bytes, got %d", HeaderSize+len(tt.frame.Payload), len(encoded))
			}

			decoded, err := ParseFrame(encoded)
			if err != nil {
				t.Fatalf("ParseFrame failed: %v", err)
			}
			if *decoded.Header != *tt.frame.Header {
				t.Errorf("Header mismatch: got %+v, want %+v", decoded.Header, tt.frame.Header)
			}
			if !bytes.Equal(decoded.Payload, tt.frame.Payload) {
				t.Errorf("Payload mismatch: got %v, want %v", decoded.Payload, tt.frame.Payload)
			}
		})
	}
}

func TestParseFrameRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", make([]byte, HeaderSize-1)},
		{"unknown kind", append([]byte{0xEE, 0x00}, make([]byte, 14)...)},
		{"audio without rate", append([]byte{FrameKindAudio, 0x00}, make([]byte, 14)...)},
		{"audio empty payload", mustEncode(t, &Header{Kind: FrameKindAudio, Rate: 16000}, nil)},
		{"audio odd payload", mustEncode(t, &Header{Kind: FrameKindAudio, Rate: 16000}, []byte{0x01})},
		{"video bad format", mustEncode(t, &Header{Kind: FrameKindVideo, Format: 0x09}, []byte{0x01})},
		{"video empty payload", mustEncode(t, &Header{Kind: FrameKindVideo, Format: VideoFormatJPEG}, nil)},
		{"flush with payload", mustEncode(t, &Header{Kind: FrameKindFlush, Rate: 16000}, []byte{0x01, 0x02})},
		{"flush without rate", mustEncode(t, &Header{Kind: FrameKindFlush}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFrame(tt.data); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// mustEncode builds raw frame bytes without validation so malformed
// combinations can be fed to the parser.
func mustEncode(t *testing.T, h *Header, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = h.Kind
	buf[1] = h.Format
	buf[2] = byte(h.Rate >> 24)
	buf[3] = byte(h.Rate >> 16)
	buf[4] = byte(h.Rate >> 8)
	buf[5] = byte(h.Rate)
	copy(buf[HeaderSize:], payload)
	return buf
}

func TestCaptureTime(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := &Header{Timestamp: uint64(at.UnixMicro())}

	if !h.CaptureTime().Equal(at) {
		t.Errorf("Expected %v, got %v", at, h.CaptureTime())
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		format   uint8
		expected string
	}{
		{VideoFormatJPEG, "image/jpeg"},
		{VideoFormatPNG, "image/png"},
		{0xEE, "application/octet-stream"},
	}

	for _, tt := range tests {
		h := &Header{Format: tt.format}
		if got := h.ContentType(); got != tt.expected {
			t.Errorf("Format 0x%02x: expected %q, got %q", tt.format, tt.expected, got)
		}
	}
}
