package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Engine is a locally hosted speech recognizer. Implementations wrap
// whatever model runtime is installed on the box.
type Engine interface {
	Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error)
}

// EngineLoader constructs an Engine on first use. Loading a local model
// can take tens of seconds, so it must not happen at startup.
type EngineLoader func() (Engine, error)

// Local is the offline fallback backend. The engine loads lazily on the
// first request; a failed load fails that request only and the next
// request retries, since the failure may be transient.
type Local struct {
	loader EngineLoader
	logger *slog.Logger

	mu     sync.Mutex
	engine Engine
}

// NewLocal creates the local backend. A nil loader yields a permanently
// unavailable backend, which keeps chain assembly uniform when no local
// model is configured.
func NewLocal(loader EngineLoader, logger *slog.Logger) *Local {
	return &Local{loader: loader, logger: logger}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Available() bool {
	return l.loader != nil
}

func (l *Local) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	engine, err := l.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return engine.Transcribe(ctx, samples, sampleRate)
}

func (l *Local) load() (Engine, error) {
	if l.loader == nil {
		return nil, fmt.Errorf("no local engine configured")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}

	l.logger.Info("Loading local transcription engine")
	engine, err := l.loader()
	if err != nil {
		l.logger.Error("Local engine load failed", slog.String("error", err.Error()))
		return nil, err
	}
	l.logger.Info("Local transcription engine ready")
	l.engine = engine
	return engine, nil
}
