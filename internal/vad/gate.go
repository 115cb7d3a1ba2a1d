package vad

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lothnic/hack-the-throne/internal/audio"
)

// aggressivenessThresholds maps the 0-3 aggressiveness scale to RMS energy
// thresholds. Higher aggressiveness demands more energy to count as speech.
var aggressivenessThresholds = [4]float64{0.02, 0.035, 0.05, 0.08}

// Gate classifies audio frames as speech or silence using RMS energy.
// It stands in for a model-based detector when none is available and
// shares its tuning scale (0 permissive, 3 strict).
type Gate struct {
	threshold float64
	logger    *slog.Logger

	mu          sync.Mutex
	totalFrames uint64
	voicedCount uint64
}

// NewGate creates a gate at the given aggressiveness (0-3). minRMS raises
// the floor when it exceeds the aggressiveness threshold, so very quiet
// rooms do not leak noise into utterances.
func NewGate(aggressiveness int, minRMS float64, logger *slog.Logger) (*Gate, error) {
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("aggressiveness must be 0-3, got %d", aggressiveness)
	}

	threshold := aggressivenessThresholds[aggressiveness]
	if minRMS > threshold {
		threshold = minRMS
	}

	logger.Info("VAD gate initialized",
		slog.Int("aggressiveness", aggressiveness),
		slog.Float64("threshold", threshold))

	return &Gate{
		threshold: threshold,
		logger:    logger,
	}, nil
}

// IsVoiced reports whether the frame's energy clears the speech threshold
func (g *Gate) IsVoiced(samples []float64) bool {
	voiced := audio.RMS(samples) >= g.threshold

	g.mu.Lock()
	g.totalFrames++
	if voiced {
		g.voicedCount++
	}
	g.mu.Unlock()

	return voiced
}

// Threshold returns the effective RMS threshold
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Stats returns total frames seen and how many were voiced
func (g *Gate) Stats() (total, voiced uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalFrames, g.voicedCount
}
