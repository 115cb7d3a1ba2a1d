package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/audio"
)

// ElevenLabsConfig holds settings for the ElevenLabs Scribe backend
type ElevenLabsConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// ElevenLabs transcribes through the ElevenLabs speech-to-text API.
// Input is gain-normalized before upload because Scribe underperforms
// on quiet far-field audio.
type ElevenLabs struct {
	cfg    ElevenLabsConfig
	client *http.Client
	logger *slog.Logger
}

const (
	elevenLabsTargetRMS = 0.1
	elevenLabsMaxGain   = 30.0
)

// NewElevenLabs creates the ElevenLabs backend
func NewElevenLabs(cfg ElevenLabsConfig, logger *slog.Logger) *ElevenLabs {
	return &ElevenLabs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Available() bool { return e.cfg.APIKey != "" }

type elevenLabsWord struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Type      string  `json:"type"`
	SpeakerID string  `json:"speaker_id"`
}

type elevenLabsResponse struct {
	Text  string           `json:"text"`
	Words []elevenLabsWord `json:"words"`
}

func (e *ElevenLabs) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	if !e.Available() {
		return nil, ErrUnavailable
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	normalized := audio.NormalizeRMS(samples, elevenLabsTargetRMS, elevenLabsMaxGain)
	wav, err := audio.EncodeWAV(normalized, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return nil, fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := writer.WriteField("model_id", e.cfg.Model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var parsed elevenLabsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return nil, nil
	}

	seg := Segment{Text: text, End: float64(len(samples)) / float64(sampleRate)}
	if len(parsed.Words) > 0 {
		seg.Start = parsed.Words[0].Start
		seg.End = parsed.Words[len(parsed.Words)-1].End
		seg.Speaker = parsed.Words[0].SpeakerID
	}

	e.logger.Debug("ElevenLabs transcription complete",
		slog.Int("chars", len(text)),
		slog.Int("words", len(parsed.Words)))

	return []Segment{seg}, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
