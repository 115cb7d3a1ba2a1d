package face

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// Detection is one face found in a video frame
type Detection struct {
	Embedding  []float64 `json:"embedding"`
	Confidence float64   `json:"confidence"`
}

// ExtractorConfig holds settings for the face embedding service
type ExtractorConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Extractor calls the external face embedding service. It posts a frame
// image and gets back zero or more face detections with embeddings.
type Extractor struct {
	cfg    ExtractorConfig
	client *http.Client
	logger *slog.Logger
}

// NewExtractor creates the extractor client
func NewExtractor(cfg ExtractorConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Available reports whether an endpoint is configured
func (e *Extractor) Available() bool {
	return e.cfg.Endpoint != ""
}

type extractorResponse struct {
	Faces []Detection `json:"faces"`
}

// Extract posts one encoded frame and returns the detected faces.
// contentType is the frame's MIME type, image/jpeg or image/png.
func (e *Extractor) Extract(ctx context.Context, frame []byte, contentType string) ([]Detection, error) {
	if !e.Available() {
		return nil, fmt.Errorf("no face extractor endpoint configured")
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="image"; filename="frame"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to write frame data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("face extractor returned status %d", resp.StatusCode)
	}

	var parsed extractorResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	e.logger.Debug("Face extraction complete", slog.Int("faces", len(parsed.Faces)))
	return parsed.Faces, nil
}
