package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GroqConfig holds settings for the Groq chat extractor
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// GroqExtractor runs identity extraction through a Groq-hosted chat model
type GroqExtractor struct {
	client openai.Client
	model  string
	hasKey bool
	logger *slog.Logger
}

// NewGroqExtractor creates the Groq extraction provider
func NewGroqExtractor(cfg GroqConfig, logger *slog.Logger) *GroqExtractor {
	return &GroqExtractor{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
		),
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
		logger: logger,
	}
}

func (g *GroqExtractor) Name() string { return "groq" }

func (g *GroqExtractor) Available() bool { return g.hasKey }

func (g *GroqExtractor) Extract(ctx context.Context, transcript string) (*Update, error) {
	if !g.hasKey {
		return nil, fmt.Errorf("no Groq API key configured")
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(extractionPrompt + transcript),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("groq extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("groq returned no choices")
	}

	upd, err := parseUpdate(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Identity extraction complete",
		slog.String("provider", "groq"),
		slog.Bool("has_name", upd.Name != ""))
	return upd, nil
}
