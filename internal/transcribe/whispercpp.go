package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Lothnic/hack-the-throne/internal/audio"
)

const whisperBinary = "whisper-cli"

// WhisperCpp runs the whisper.cpp command line tool against a local model
// file. It satisfies Engine for the offline fallback backend.
type WhisperCpp struct {
	binPath   string
	modelPath string
	logger    *slog.Logger
}

// WhisperCppLoader returns an EngineLoader that verifies the binary and
// model exist before handing out the engine. Verification runs at first
// use, not at startup.
func WhisperCppLoader(modelPath string, logger *slog.Logger) EngineLoader {
	return func() (Engine, error) {
		binPath, err := exec.LookPath(whisperBinary)
		if err != nil {
			return nil, fmt.Errorf("%s not found in PATH: %w", whisperBinary, err)
		}
		if _, err := os.Stat(modelPath); err != nil {
			return nil, fmt.Errorf("model file not accessible: %w", err)
		}
		return &WhisperCpp{binPath: binPath, modelPath: modelPath, logger: logger}, nil
	}
}

func (w *WhisperCpp) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	wav, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	path := filepath.Join(os.TempDir(), "utt-"+uuid.New().String()+".wav")
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp WAV: %w", err)
	}
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, w.binPath,
		"-m", w.modelPath,
		"-f", path,
		"--no-timestamps",
		"--no-prints",
		"-l", "en")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w: %s", err, truncate(stderr.Bytes(), 200))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, nil
	}

	duration := float64(len(samples)) / float64(sampleRate)
	w.logger.Debug("Local transcription complete", slog.Int("chars", len(text)))

	return []Segment{{Start: 0, End: duration, Text: text}}, nil
}
