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

// SarvamConfig holds settings for the Sarvam speech-to-text backend
type SarvamConfig struct {
	APIKey      string
	Endpoint    string
	Model       string
	MaxChunkSec float64 // API rejects clips longer than this
	OverlapSec  float64 // shared audio between consecutive chunks
	Timeout     time.Duration
}

// Sarvam transcribes through the Sarvam speech-to-text API. The API caps
// clip length, so long utterances are split into overlapping windows and
// transcribed window by window. Words falling in an overlap can appear in
// both neighboring segments.
type Sarvam struct {
	cfg    SarvamConfig
	client *http.Client
	logger *slog.Logger
}

// NewSarvam creates the Sarvam backend
func NewSarvam(cfg SarvamConfig, logger *slog.Logger) *Sarvam {
	return &Sarvam{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (s *Sarvam) Name() string { return "sarvam" }

func (s *Sarvam) Available() bool { return s.cfg.APIKey != "" }

type sarvamResponse struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

func (s *Sarvam) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	chunkLen := int(s.cfg.MaxChunkSec * float64(sampleRate))
	overlapLen := int(s.cfg.OverlapSec * float64(sampleRate))
	windows := audio.SplitWindows(samples, chunkLen, overlapLen)

	if len(windows) > 1 {
		s.logger.Debug("Splitting long utterance for Sarvam",
			slog.Int("windows", len(windows)),
			slog.Float64("total_seconds", float64(len(samples))/float64(sampleRate)))
	}

	var segments []Segment
	for i, win := range windows {
		text, err := s.transcribeChunk(ctx, win.Samples, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("sarvam chunk %d/%d failed: %w", i+1, len(windows), err)
		}
		if text == "" {
			continue
		}

		offset := float64(win.Offset) / float64(sampleRate)
		segments = append(segments, Segment{
			Start: offset,
			End:   offset + float64(len(win.Samples))/float64(sampleRate),
			Text:  text,
		})
	}
	return segments, nil
}

func (s *Sarvam) transcribeChunk(ctx context.Context, samples []float64, sampleRate int) (string, error) {
	wav, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode WAV: %w", err)
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := writer.WriteField("model", s.cfg.Model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("language_code", "unknown"); err != nil {
		return "", fmt.Errorf("failed to write language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("api-subscription-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var parsed sarvamResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return strings.TrimSpace(parsed.Transcript), nil
}
