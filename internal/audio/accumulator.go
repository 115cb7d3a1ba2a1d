package audio

import (
	"log/slog"
	"time"
)

// AccumulatorState tracks where an utterance is in its lifecycle
type AccumulatorState int

const (
	// StateIdle means no speech has been detected yet
	StateIdle AccumulatorState = iota
	// StateCollecting means speech is active and frames are buffered
	StateCollecting
	// StateWaitingSilence means speech stopped and trailing silence is counted
	StateWaitingSilence
)

func (s AccumulatorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateWaitingSilence:
		return "waiting_silence"
	default:
		return "unknown"
	}
}

// Gate decides whether a frame of samples carries speech
type Gate interface {
	IsVoiced(samples []float64) bool
}

// Utterance is a completed stretch of speech ready for transcription
type Utterance struct {
	Samples    []float64
	SampleRate int
	StartedAt  time.Time
}

// Duration returns the utterance length in wall time
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(u.Samples)) / float64(u.SampleRate) * float64(time.Second))
}

// AccumulatorConfig holds utterance boundary settings
type AccumulatorConfig struct {
	SampleRate   int
	MinDuration  time.Duration // utterances shorter than this are dropped
	MaxDuration  time.Duration // force-close ceiling
	SilenceClose time.Duration // trailing silence that closes an utterance
}

// Accumulator buffers voiced frames into utterances. A stretch of trailing
// silence closes the current utterance, a hard ceiling force-closes runaway
// ones, and anything under the minimum floor is dropped as noise.
// Not safe for concurrent use; each session owns one accumulator.
type Accumulator struct {
	cfg      AccumulatorConfig
	gate     Gate
	denoiser Denoiser
	logger   *slog.Logger

	state          AccumulatorState
	buffer         []float64
	silenceSamples int
	startedAt      time.Time

	minSamples int
	maxSamples int
	gapSamples int
}

// NewAccumulator creates an accumulator with the given boundary settings.
// A nil denoiser disables denoising.
func NewAccumulator(cfg AccumulatorConfig, gate Gate, denoiser Denoiser, logger *slog.Logger) *Accumulator {
	if denoiser == nil {
		denoiser = PassthroughDenoiser{}
	}
	return &Accumulator{
		cfg:        cfg,
		gate:       gate,
		denoiser:   denoiser,
		logger:     logger,
		state:      StateIdle,
		minSamples: durationSamples(cfg.MinDuration, cfg.SampleRate),
		maxSamples: durationSamples(cfg.MaxDuration, cfg.SampleRate),
		gapSamples: durationSamples(cfg.SilenceClose, cfg.SampleRate),
	}
}

func durationSamples(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}

// State returns the current lifecycle state
func (a *Accumulator) State() AccumulatorState {
	return a.state
}

// BufferedSamples returns how many samples are currently held
func (a *Accumulator) BufferedSamples() int {
	return len(a.buffer)
}

// AddFrame feeds one frame of samples into the accumulator. It returns a
// completed utterance when the frame closes one, or nil.
func (a *Accumulator) AddFrame(samples []float64) *Utterance {
	if len(samples) == 0 {
		return nil
	}

	voiced := a.gate.IsVoiced(samples)

	switch a.state {
	case StateIdle:
		if !voiced {
			return nil
		}
		a.state = StateCollecting
		a.startedAt = time.Now()
		a.buffer = append(a.buffer, samples...)
		a.logger.Debug("Utterance started")

	case StateCollecting:
		a.buffer = append(a.buffer, samples...)
		if !voiced {
			a.state = StateWaitingSilence
			a.silenceSamples = len(samples)
		}

	case StateWaitingSilence:
		a.buffer = append(a.buffer, samples...)
		if voiced {
			a.state = StateCollecting
			a.silenceSamples = 0
		} else {
			a.silenceSamples += len(samples)
			if a.silenceSamples >= a.gapSamples {
				return a.finalize("silence")
			}
		}
	}

	if len(a.buffer) >= a.maxSamples {
		return a.finalize("max_duration")
	}
	return nil
}

// Flush force-closes whatever is buffered. Used on session teardown so
// trailing speech is not lost. Returns nil when nothing worth keeping
// is buffered.
func (a *Accumulator) Flush() *Utterance {
	if a.state == StateIdle || len(a.buffer) == 0 {
		a.reset()
		return nil
	}
	return a.finalize("flush")
}

func (a *Accumulator) finalize(reason string) *Utterance {
	buffered := len(a.buffer)
	if buffered < a.minSamples {
		a.logger.Debug("Dropping short utterance",
			slog.Int("samples", buffered),
			slog.Int("min_samples", a.minSamples),
			slog.String("reason", reason))
		a.reset()
		return nil
	}

	utt := &Utterance{
		Samples:    a.denoiser.Denoise(a.buffer, a.cfg.SampleRate),
		SampleRate: a.cfg.SampleRate,
		StartedAt:  a.startedAt,
	}
	a.logger.Debug("Utterance finalized",
		slog.Int("samples", buffered),
		slog.Duration("duration", utt.Duration()),
		slog.String("reason", reason))

	a.reset()
	return utt
}

func (a *Accumulator) reset() {
	a.state = StateIdle
	a.buffer = nil
	a.silenceSamples = 0
	a.startedAt = time.Time{}
}
