package audio

import (
	"math"
	"testing"
)

func TestEncodeDecodeWAV(t *testing.T) {
	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if len(data) != 44+len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}
	for i := range samples {
		if math.Abs(decoded[i]-samples[i]) > 0.001 {
			t.Fatalf("Sample %d: expected %v, got %v", i, samples[i], decoded[i])
		}
	}
}

func TestDecodeWAVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte("RIFF")},
		{"wrong magic", make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestEncodeWAVInvalidRate(t *testing.T) {
	if _, err := EncodeWAV([]float64{0}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %v", got)
	}

	samples := []float64{0.5, -0.5, 0.5, -0.5}
	if got := RMS(samples); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5, got %v", got)
	}
}

func TestNormalizeRMS(t *testing.T) {
	samples := []float64{0.01, -0.01, 0.01, -0.01}
	out := NormalizeRMS(samples, 0.1, 50.0)

	if got := RMS(out); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Expected RMS 0.1 after normalization, got %v", got)
	}
	// Input untouched
	if samples[0] != 0.01 {
		t.Error("NormalizeRMS modified its input")
	}
}

func TestNormalizeRMSGainCap(t *testing.T) {
	samples := []float64{0.002, -0.002}
	out := NormalizeRMS(samples, 0.5, 10.0)

	if got := RMS(out); math.Abs(got-0.02) > 1e-9 {
		t.Errorf("Expected gain capped at 10x (RMS 0.02), got %v", got)
	}
}

func TestBytesToSamplesRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x00, 0xFF, 0x7F, 0x01, 0x80}
	samples := BytesToSamples(data)

	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("Expected 0, got %v", samples[0])
	}
	if math.Abs(samples[1]-1.0) > 0.001 {
		t.Errorf("Expected ~1.0, got %v", samples[1])
	}
	if samples[2] >= -0.999 {
		t.Errorf("Expected near -1.0, got %v", samples[2])
	}
}
