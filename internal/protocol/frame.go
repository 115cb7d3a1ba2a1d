package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Frame kinds carried over the ingress WebSocket
const (
	FrameKindAudio = 0x01
	FrameKindVideo = 0x02
	FrameKindFlush = 0x03

	// Video payload formats
	VideoFormatJPEG = 0x01
	VideoFormatPNG  = 0x02

	// Header layout: [Kind:1][Format:1][Rate:4][TimestampMicros:8]
	HeaderSize = 14
)

// Header represents the fixed 14-byte frame header
type Header struct {
	Kind      uint8  // 0x01=Audio, 0x02=Video, 0x03=Flush
	Format    uint8  // video payload format; zero for audio/flush
	Rate      uint32 // audio sample rate in Hz; zero for video
	Timestamp uint64 // capture time, microseconds since the Unix epoch
}

// Frame represents a fully parsed media frame
type Frame struct {
	Header  *Header
	Payload []byte // PCM-16LE bytes for audio, encoded image for video, empty for flush
}

// ParseHeader parses the fixed-size frame header
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	header := &Header{
		Kind:      data[0],
		Format:    data[1],
		Rate:      binary.BigEndian.Uint32(data[2:6]),
		Timestamp: binary.BigEndian.Uint64(data[6:14]),
	}

	return header, nil
}

// ParseFrame parses a complete media frame (header + payload)
func ParseFrame(data []byte) (*Frame, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	frame := &Frame{Header: header}
	payload := data[HeaderSize:]

	switch header.Kind {
	case FrameKindAudio:
		if len(payload) == 0 {
			return nil, fmt.Errorf("audio frame has empty payload")
		}
		if len(payload)%2 != 0 {
			return nil, fmt.Errorf("audio payload length must be even for PCM-16, got %d", len(payload))
		}
		frame.Payload = make([]byte, len(payload))
		copy(frame.Payload, payload)

	case FrameKindVideo:
		if len(payload) == 0 {
			return nil, fmt.Errorf("video frame has empty payload")
		}
		frame.Payload = make([]byte, len(payload))
		copy(frame.Payload, payload)

	case FrameKindFlush:
		if len(payload) != 0 {
			return nil, fmt.Errorf("flush frame must not carry a payload, got %d bytes", len(payload))
		}
	}

	return frame, nil
}

// EncodeFrame serializes a frame into its wire representation
func EncodeFrame(frame *Frame) ([]byte, error) {
	if frame == nil || frame.Header == nil {
		return nil, fmt.Errorf("frame and header must not be nil")
	}

	if err := ValidateHeader(frame.Header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	buf := make([]byte, HeaderSize+len(frame.Payload))
	buf[0] = frame.Header.Kind
	buf[1] = frame.Header.Format
	binary.BigEndian.PutUint32(buf[2:6], frame.Header.Rate)
	binary.BigEndian.PutUint64(buf[6:14], frame.Header.Timestamp)
	copy(buf[HeaderSize:], frame.Payload)

	return buf, nil
}

// ValidateHeader validates the frame header fields
func ValidateHeader(header *Header) error {
	if !IsValidKind(header.Kind) {
		return fmt.Errorf("invalid frame kind: 0x%02x", header.Kind)
	}

	switch header.Kind {
	case FrameKindAudio:
		if header.Rate == 0 {
			return fmt.Errorf("audio frame requires a sample rate")
		}
	case FrameKindVideo:
		if header.Format != VideoFormatJPEG && header.Format != VideoFormatPNG {
			return fmt.Errorf("invalid video format: 0x%02x", header.Format)
		}
	case FrameKindFlush:
		if header.Rate == 0 {
			return fmt.Errorf("flush frame requires the last known sample rate")
		}
	}

	return nil
}

// IsValidKind checks if the frame kind is valid
func IsValidKind(kind uint8) bool {
	return kind == FrameKindAudio || kind == FrameKindVideo || kind == FrameKindFlush
}

// CaptureTime returns the header timestamp as a time.Time
func (h *Header) CaptureTime() time.Time {
	return time.UnixMicro(int64(h.Timestamp))
}

// FormatName returns the video payload format as a string
func (h *Header) FormatName() string {
	switch h.Format {
	case VideoFormatJPEG:
		return "jpeg"
	case VideoFormatPNG:
		return "png"
	default:
		return fmt.Sprintf("unknown(0x%02x)", h.Format)
	}
}

// ContentType returns the MIME type of a video payload
func (h *Header) ContentType() string {
	switch h.Format {
	case VideoFormatJPEG:
		return "image/jpeg"
	case VideoFormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// String returns a human-readable representation of the header
func (h *Header) String() string {
	var kind string

	switch h.Kind {
	case FrameKindAudio:
		kind = "Audio"
	case FrameKindVideo:
		kind = "Video"
	case FrameKindFlush:
		kind = "Flush"
	default:
		kind = fmt.Sprintf("Unknown(0x%02x)", h.Kind)
	}

	return fmt.Sprintf("Header{Kind:%s, Format:0x%02x, Rate:%d, Timestamp:%d}",
		kind, h.Format, h.Rate, h.Timestamp)
}
