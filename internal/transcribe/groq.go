package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Lothnic/hack-the-throne/internal/audio"
)

// GroqConfig holds settings for the Groq Whisper backend
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Groq transcribes through Groq's OpenAI-compatible Whisper endpoint
type Groq struct {
	client   openai.Client
	model    string
	hasKey   bool
	promptFn func() string
	logger   *slog.Logger
}

// NewGroq creates the Groq backend. promptFn supplies the priming prompt
// per request and may be nil.
func NewGroq(cfg GroqConfig, promptFn func() string, logger *slog.Logger) *Groq {
	if promptFn == nil {
		promptFn = func() string { return BuildPrompt(nil) }
	}
	return &Groq{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
		),
		model:    cfg.Model,
		hasKey:   cfg.APIKey != "",
		promptFn: promptFn,
		logger:   logger,
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Available() bool { return g.hasKey }

func (g *Groq) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	if !g.hasKey {
		return nil, ErrUnavailable
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	wav, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	resp, err := g.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model:    openai.AudioModel(g.model),
		Language: openai.String("en"),
		Prompt:   openai.String(g.promptFn()),
	})
	if err != nil {
		return nil, fmt.Errorf("groq transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, nil
	}

	duration := float64(len(samples)) / float64(sampleRate)
	g.logger.Debug("Groq transcription complete",
		slog.Int("chars", len(text)),
		slog.Float64("audio_seconds", duration))

	return []Segment{{Start: 0, End: duration, Text: text}}, nil
}
