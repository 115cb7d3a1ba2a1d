package transcribe

import (
	"context"
	"errors"
)

// ErrUnavailable means the backend cannot serve requests right now,
// usually because credentials are missing or a local model failed to load.
// Chain treats it the same as a transcription failure and moves on.
var ErrUnavailable = errors.New("transcription backend unavailable")

// ErrEmptyAudio means the utterance had no samples to transcribe
var ErrEmptyAudio = errors.New("empty audio")

// Segment is one transcribed stretch of speech with timestamps relative
// to the start of the utterance.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcriber converts an utterance of float64 samples into text segments
type Transcriber interface {
	// Name identifies the backend in logs and the /config surface
	Name() string
	// Available reports whether the backend can currently serve requests
	Available() bool
	// Transcribe converts samples at sampleRate into ordered segments.
	// An empty result with nil error means the backend heard no speech.
	Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error)
}

// JoinText concatenates segment texts with single spaces, skipping blanks
func JoinText(segments []Segment) string {
	out := ""
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += seg.Text
	}
	return out
}
