package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  port: 9000
audio:
  silence_close_duration: 0.8
transcription:
  policy: failover
fusion:
  face_match_threshold: 0.4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTP.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.HTTP.Port)
	}
	if cfg.Audio.SilenceCloseDuration != 0.8 {
		t.Errorf("Expected silence close 0.8, got %v", cfg.Audio.SilenceCloseDuration)
	}
	if cfg.Transcription.Policy != "failover" {
		t.Errorf("Expected failover policy, got %q", cfg.Transcription.Policy)
	}
	if cfg.Fusion.FaceMatchThreshold != 0.4 {
		t.Errorf("Expected threshold 0.4, got %v", cfg.Fusion.FaceMatchThreshold)
	}

	// Untouched sections keep their defaults
	if cfg.Audio.MaxUtteranceDuration != 60.0 {
		t.Errorf("Expected default max utterance 60, got %v", cfg.Audio.MaxUtteranceDuration)
	}
	if cfg.Ingress.Path != "/ingress" {
		t.Errorf("Expected default ingress path, got %q", cfg.Ingress.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "http:\n  port: 0\n"},
		{"bad aggressiveness", "vad:\n  aggressiveness: 7\n"},
		{"bad policy", "transcription:\n  policy: roulette\n"},
		{"fixed without preferred", "transcription:\n  policy: fixed\n"},
		{"bad threshold", "fusion:\n  face_match_threshold: 1.5\n"},
		{"bad directory driver", "directory:\n  driver: cassette\n"},
		{"bad log level", "logging:\n  level: whisper\n"},
		{"silence longer than max", "audio:\n  max_utterance_duration: 1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := Default()

	if got := cfg.Ingress.GetSessionTimeout(); got != 120*time.Second {
		t.Errorf("Expected 120s session timeout, got %v", got)
	}
	if got := cfg.Audio.GetSilenceCloseDuration(); got != 1200*time.Millisecond {
		t.Errorf("Expected 1.2s silence close, got %v", got)
	}
	if got := cfg.Fusion.GetFaceRepublishInterval(); got != 4*time.Second {
		t.Errorf("Expected 4s republish interval, got %v", got)
	}
	if got := cfg.Fusion.GetSpeakerAssociationWindow(); got != 15*time.Second {
		t.Errorf("Expected 15s association window, got %v", got)
	}
	if got := cfg.Transcription.GetTimeout(); got != 30*time.Second {
		t.Errorf("Expected 30s transcription timeout, got %v", got)
	}
}
