package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Selection policies for the backend chain
const (
	// PolicyFirst routes every request to the first available backend
	PolicyFirst = "first"
	// PolicyFixed routes to one named backend and never falls back
	PolicyFixed = "fixed"
	// PolicyFailover tries available backends in order until one succeeds
	PolicyFailover = "failover"
)

// ChainConfig selects how the chain picks among its backends
type ChainConfig struct {
	Policy string
	Fixed  string // backend name, required for PolicyFixed
}

// Chain composes transcription backends behind a single Transcriber.
// Order matters: it encodes preference.
type Chain struct {
	backends []Transcriber
	cfg      ChainConfig
	logger   *slog.Logger
}

// NewChain builds a chain over the given backends
func NewChain(cfg ChainConfig, backends []Transcriber, logger *slog.Logger) (*Chain, error) {
	switch cfg.Policy {
	case PolicyFirst, PolicyFailover:
	case PolicyFixed:
		if findBackend(backends, cfg.Fixed) == nil {
			return nil, fmt.Errorf("fixed backend %q not in chain", cfg.Fixed)
		}
	default:
		return nil, fmt.Errorf("unknown chain policy: %q", cfg.Policy)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("chain needs at least one backend")
	}
	return &Chain{backends: backends, cfg: cfg, logger: logger}, nil
}

func findBackend(backends []Transcriber, name string) Transcriber {
	for _, b := range backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

func (c *Chain) Name() string { return "chain" }

// Available reports whether any backend can serve
func (c *Chain) Available() bool {
	if c.cfg.Policy == PolicyFixed {
		return findBackend(c.backends, c.cfg.Fixed).Available()
	}
	for _, b := range c.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// Backends lists backend names with their availability, for the config surface
func (c *Chain) Backends() map[string]bool {
	out := make(map[string]bool, len(c.backends))
	for _, b := range c.backends {
		out[b.Name()] = b.Available()
	}
	return out
}

func (c *Chain) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	switch c.cfg.Policy {
	case PolicyFixed:
		return findBackend(c.backends, c.cfg.Fixed).Transcribe(ctx, samples, sampleRate)

	case PolicyFirst:
		for _, b := range c.backends {
			if b.Available() {
				return b.Transcribe(ctx, samples, sampleRate)
			}
		}
		return nil, ErrUnavailable

	case PolicyFailover:
		var lastErr error
		for _, b := range c.backends {
			if !b.Available() {
				continue
			}
			segments, err := b.Transcribe(ctx, samples, sampleRate)
			if err == nil {
				return segments, nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			c.logger.Warn("Backend failed, trying next",
				slog.String("backend", b.Name()),
				slog.String("error", err.Error()))
			lastErr = err
		}
		if lastErr != nil {
			return nil, fmt.Errorf("all backends failed: %w", lastErr)
		}
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("unknown chain policy: %q", c.cfg.Policy)
}
