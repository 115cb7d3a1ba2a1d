package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Ingress       IngressConfig       `yaml:"ingress"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Fusion        FusionConfig        `yaml:"fusion"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Identity      IdentityConfig      `yaml:"identity"`
	Directory     DirectoryConfig     `yaml:"directory"`
	Logging       LoggingConfig       `yaml:"logging"`

	// Credentials are sourced from the environment, never from the YAML file.
	Credentials Credentials `yaml:"-"`
}

// Credentials holds environment-sourced API keys and connection strings
type Credentials struct {
	GroqAPIKey       string `env:"GROQ_API_KEY"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
	SarvamAPIKey     string `env:"SARVAM_API_KEY"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	DatabaseURL      string `env:"DATABASE_URL"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// IngressConfig contains media ingress (WebSocket) configuration
type IngressConfig struct {
	Path           string `yaml:"path"`
	MaxSessions    int    `yaml:"max_sessions"`
	FrameQueueSize int    `yaml:"frame_queue_size"`
	SessionTimeout int    `yaml:"session_timeout"`  // seconds
	ReadLimitBytes int64  `yaml:"read_limit_bytes"` // max WS message size
}

// AudioConfig contains utterance accumulation parameters
type AudioConfig struct {
	MinUtteranceDuration float64 `yaml:"min_utterance_duration"` // seconds, non-speech floor
	MaxUtteranceDuration float64 `yaml:"max_utterance_duration"` // seconds, forced close
	SilenceCloseDuration float64 `yaml:"silence_close_duration"` // seconds of silence that closes an utterance
	DefaultSampleRate    int     `yaml:"default_sample_rate"`
}

// VADConfig contains voice-activity gate configuration
type VADConfig struct {
	Aggressiveness int     `yaml:"aggressiveness"` // 0..3
	MinSpeechRMS   float64 `yaml:"min_speech_rms"`
}

// FusionConfig contains speaker-face fusion tunables
type FusionConfig struct {
	FaceRepublishInterval    float64 `yaml:"face_republish_interval"`    // seconds
	SpeakerAssociationWindow float64 `yaml:"speaker_association_window"` // seconds
	FaceMatchThreshold       float64 `yaml:"face_match_threshold"`
	VideoFrameSubsample      int     `yaml:"video_frame_subsample"` // process every Nth frame
	EventQueueSize           int     `yaml:"event_queue_size"`      // per-subscriber buffer
	FaceExtractorEndpoint    string  `yaml:"face_extractor_endpoint"`
}

// TranscriptionConfig contains transcriber chain configuration
type TranscriptionConfig struct {
	Policy    string `yaml:"policy"`    // "first", "fixed" or "failover"
	Preferred string `yaml:"preferred"` // backend name for "fixed" policy
	Timeout   int    `yaml:"timeout"`   // seconds, per backend call

	Groq       GroqConfig       `yaml:"groq"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Sarvam     SarvamConfig     `yaml:"sarvam"`
	Local      LocalConfig      `yaml:"local"`
}

// GroqConfig configures the Groq Whisper backend
type GroqConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// ElevenLabsConfig configures the ElevenLabs Scribe backend
type ElevenLabsConfig struct {
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

// SarvamConfig configures the Sarvam backend (duration-limited, chunked)
type SarvamConfig struct {
	Model            string  `yaml:"model"`
	Endpoint         string  `yaml:"endpoint"`
	MaxChunkDuration float64 `yaml:"max_chunk_duration"` // seconds
	OverlapDuration  float64 `yaml:"overlap_duration"`   // seconds
}

// LocalConfig configures the local in-process model backend
type LocalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ModelPath string `yaml:"model_path"`
}

// IdentityConfig configures LLM-based identity extraction
type IdentityConfig struct {
	Provider string `yaml:"provider"` // "groq", "gemini" or "none"
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// DirectoryConfig configures the person directory backend
type DirectoryConfig struct {
	Driver string `yaml:"driver"` // "memory" or "postgres"
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration file and binds environment credentials
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := env.Parse(&config.Credentials); err != nil {
		return nil, fmt.Errorf("failed to read credentials from environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Default returns a configuration populated with the documented defaults
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:    8000,
			Address: "0.0.0.0",
		},
		Ingress: IngressConfig{
			Path:           "/ingress",
			MaxSessions:    64,
			FrameQueueSize: 256,
			SessionTimeout: 120,
			ReadLimitBytes: 8 << 20,
		},
		Audio: AudioConfig{
			MinUtteranceDuration: 2.0,
			MaxUtteranceDuration: 60.0,
			SilenceCloseDuration: 1.2,
			DefaultSampleRate:    16000,
		},
		VAD: VADConfig{
			Aggressiveness: 2,
			MinSpeechRMS:   0.05,
		},
		Fusion: FusionConfig{
			FaceRepublishInterval:    4.0,
			SpeakerAssociationWindow: 15.0,
			FaceMatchThreshold:       0.25,
			VideoFrameSubsample:      30,
			EventQueueSize:           64,
		},
		Transcription: TranscriptionConfig{
			Policy:  "first",
			Timeout: 30,
			Groq: GroqConfig{
				Model:   "whisper-large-v3-turbo",
				BaseURL: "https://api.groq.com/openai/v1",
			},
			ElevenLabs: ElevenLabsConfig{
				Model:    "scribe_v2",
				Endpoint: "https://api.elevenlabs.io/v1/speech-to-text",
			},
			Sarvam: SarvamConfig{
				Model:            "saarika:v2.5",
				Endpoint:         "https://api.sarvam.ai/speech-to-text",
				MaxChunkDuration: 25.0,
				OverlapDuration:  1.0,
			},
			Local: LocalConfig{
				Enabled: false,
			},
		},
		Identity: IdentityConfig{
			Provider: "groq",
			Model:    "llama-3.3-70b-versatile",
			Timeout:  15,
		},
		Directory: DirectoryConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Ingress.Validate(); err != nil {
		return fmt.Errorf("ingress config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Fusion.Validate(); err != nil {
		return fmt.Errorf("fusion config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Identity.Validate(); err != nil {
		return fmt.Errorf("identity config: %w", err)
	}

	if err := c.Directory.Validate(c.Credentials); err != nil {
		return fmt.Errorf("directory config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates ingress configuration
func (i *IngressConfig) Validate() error {
	if i.Path == "" || i.Path[0] != '/' {
		return fmt.Errorf("path must start with '/', got %q", i.Path)
	}

	if i.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1, got %d", i.MaxSessions)
	}

	if i.FrameQueueSize < 1 {
		return fmt.Errorf("frame_queue_size must be at least 1, got %d", i.FrameQueueSize)
	}

	if i.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", i.SessionTimeout)
	}

	if i.ReadLimitBytes < 1024 {
		return fmt.Errorf("read_limit_bytes must be at least 1024, got %d", i.ReadLimitBytes)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.MinUtteranceDuration <= 0 {
		return fmt.Errorf("min_utterance_duration must be positive, got %f", a.MinUtteranceDuration)
	}

	if a.MaxUtteranceDuration <= a.MinUtteranceDuration {
		return fmt.Errorf("max_utterance_duration (%f) must be greater than min_utterance_duration (%f)",
			a.MaxUtteranceDuration, a.MinUtteranceDuration)
	}

	if a.SilenceCloseDuration <= 0 {
		return fmt.Errorf("silence_close_duration must be positive, got %f", a.SilenceCloseDuration)
	}

	if a.DefaultSampleRate <= 0 {
		return fmt.Errorf("default_sample_rate must be positive, got %d", a.DefaultSampleRate)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.Aggressiveness < 0 || v.Aggressiveness > 3 {
		return fmt.Errorf("aggressiveness must be between 0 and 3, got %d", v.Aggressiveness)
	}

	if v.MinSpeechRMS < 0 || v.MinSpeechRMS >= 1 {
		return fmt.Errorf("min_speech_rms must be in [0, 1), got %f", v.MinSpeechRMS)
	}

	return nil
}

// Validate validates fusion configuration
func (f *FusionConfig) Validate() error {
	if f.FaceRepublishInterval <= 0 {
		return fmt.Errorf("face_republish_interval must be positive, got %f", f.FaceRepublishInterval)
	}

	if f.SpeakerAssociationWindow <= 0 {
		return fmt.Errorf("speaker_association_window must be positive, got %f", f.SpeakerAssociationWindow)
	}

	if f.FaceMatchThreshold <= 0 || f.FaceMatchThreshold > 1 {
		return fmt.Errorf("face_match_threshold must be in (0, 1], got %f", f.FaceMatchThreshold)
	}

	if f.VideoFrameSubsample < 1 {
		return fmt.Errorf("video_frame_subsample must be at least 1, got %d", f.VideoFrameSubsample)
	}

	if f.EventQueueSize < 1 {
		return fmt.Errorf("event_queue_size must be at least 1, got %d", f.EventQueueSize)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	validPolicies := map[string]bool{"first": true, "fixed": true, "failover": true}
	if !validPolicies[t.Policy] {
		return fmt.Errorf("policy must be one of [first, fixed, failover], got %q", t.Policy)
	}

	if t.Policy == "fixed" && t.Preferred == "" {
		return fmt.Errorf("preferred backend is required for the fixed policy")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.Sarvam.MaxChunkDuration <= 0 {
		return fmt.Errorf("sarvam max_chunk_duration must be positive, got %f", t.Sarvam.MaxChunkDuration)
	}

	if t.Sarvam.OverlapDuration < 0 || t.Sarvam.OverlapDuration >= t.Sarvam.MaxChunkDuration {
		return fmt.Errorf("sarvam overlap_duration must be in [0, max_chunk_duration), got %f",
			t.Sarvam.OverlapDuration)
	}

	if t.Local.Enabled && t.Local.ModelPath == "" {
		return fmt.Errorf("local model_path is required when the local backend is enabled")
	}

	return nil
}

// Validate validates identity configuration
func (i *IdentityConfig) Validate() error {
	validProviders := map[string]bool{"groq": true, "gemini": true, "none": true}
	if !validProviders[i.Provider] {
		return fmt.Errorf("provider must be one of [groq, gemini, none], got %q", i.Provider)
	}

	if i.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", i.Timeout)
	}

	return nil
}

// Validate validates directory configuration against available credentials
func (d *DirectoryConfig) Validate(creds Credentials) error {
	switch d.Driver {
	case "memory":
		return nil
	case "postgres":
		if creds.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres driver")
		}
		return nil
	default:
		return fmt.Errorf("driver must be 'memory' or 'postgres', got %q", d.Driver)
	}
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got %q", l.Format)
	}

	return nil
}

// GetSessionTimeout returns the ingress session timeout as a time.Duration
func (i *IngressConfig) GetSessionTimeout() time.Duration {
	return time.Duration(i.SessionTimeout) * time.Second
}

// GetMinUtteranceDuration returns the minimum utterance duration as a time.Duration
func (a *AudioConfig) GetMinUtteranceDuration() time.Duration {
	return time.Duration(a.MinUtteranceDuration * float64(time.Second))
}

// GetMaxUtteranceDuration returns the maximum utterance duration as a time.Duration
func (a *AudioConfig) GetMaxUtteranceDuration() time.Duration {
	return time.Duration(a.MaxUtteranceDuration * float64(time.Second))
}

// GetSilenceCloseDuration returns the silence-close duration as a time.Duration
func (a *AudioConfig) GetSilenceCloseDuration() time.Duration {
	return time.Duration(a.SilenceCloseDuration * float64(time.Second))
}

// GetFaceRepublishInterval returns the face republish interval as a time.Duration
func (f *FusionConfig) GetFaceRepublishInterval() time.Duration {
	return time.Duration(f.FaceRepublishInterval * float64(time.Second))
}

// GetSpeakerAssociationWindow returns the speaker association window as a time.Duration
func (f *FusionConfig) GetSpeakerAssociationWindow() time.Duration {
	return time.Duration(f.SpeakerAssociationWindow * float64(time.Second))
}

// GetTimeout returns the per-backend transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeout() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeout returns the identity extraction timeout as a time.Duration
func (i *IdentityConfig) GetTimeout() time.Duration {
	return time.Duration(i.Timeout) * time.Second
}
