package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeWAV wraps float64 samples in a mono 16-bit PCM WAV container
func EncodeWAV(samples []float64, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	pcm := SamplesToInt16(samples)
	dataSize := len(pcm) * 2

	buf := new(bytes.Buffer)

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	// data chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	if err := binary.Write(buf, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("failed to write PCM data: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeWAV extracts float64 samples and the sample rate from a mono or
// stereo 16-bit PCM WAV file. Stereo input is downmixed by averaging channels.
func DecodeWAV(data []byte) ([]float64, int, error) {
	if len(data) < 44 {
		return nil, 0, fmt.Errorf("WAV data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		sampleRate    int
		numChannels   int
		bitsPerSample int
		pcmData       []byte
	)

	// Walk the chunk list; fmt and data can appear after optional chunks
	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("unsupported WAV format: %d (expected PCM)", format)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcmData = data[body : body+chunkSize]
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if sampleRate == 0 || pcmData == nil {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (expected 16)", bitsPerSample)
	}
	if numChannels < 1 || numChannels > 2 {
		return nil, 0, fmt.Errorf("unsupported channel count: %d", numChannels)
	}

	frameSize := numChannels * 2
	numFrames := len(pcmData) / frameSize
	samples := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		sum := 0.0
		for c := 0; c < numChannels; c++ {
			off := i*frameSize + c*2
			v := int16(pcmData[off]) | int16(pcmData[off+1])<<8
			sum += float64(v) / 32767.0
		}
		samples[i] = sum / float64(numChannels)
	}

	return samples, sampleRate, nil
}
