package identity

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiConfig holds settings for the Gemini extractor
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiExtractor runs identity extraction through the Gemini API
type GeminiExtractor struct {
	cfg    GeminiConfig
	client *genai.Client
	logger *slog.Logger
}

// NewGeminiExtractor creates the Gemini extraction provider. The client
// is created eagerly; a missing key just leaves the provider unavailable.
func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiExtractor, error) {
	e := &GeminiExtractor{cfg: cfg, logger: logger}
	if cfg.APIKey == "" {
		return e, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	e.client = client
	return e, nil
}

func (g *GeminiExtractor) Name() string { return "gemini" }

func (g *GeminiExtractor) Available() bool { return g.client != nil }

func (g *GeminiExtractor) Extract(ctx context.Context, transcript string) (*Update, error) {
	if g.client == nil {
		return nil, fmt.Errorf("no Gemini API key configured")
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model,
		genai.Text(extractionPrompt+transcript), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini extraction failed: %w", err)
	}

	upd, err := parseUpdate(resp.Text())
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Identity extraction complete",
		slog.String("provider", "gemini"),
		slog.Bool("has_name", upd.Name != ""))
	return upd, nil
}
