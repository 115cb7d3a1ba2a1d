package server

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/audio"
	"github.com/Lothnic/hack-the-throne/internal/transcribe"
)

const maxUploadBytes = 32 << 20

// handleTranscribe runs one uploaded WAV file through the transcription
// chain. The audio can arrive as a multipart "file" field or as the raw
// request body.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid WAV file: "+err.Error())
		return
	}
	if len(samples) == 0 {
		s.writeError(w, http.StatusBadRequest, "WAV file contains no audio")
		return
	}

	start := time.Now()
	segments, err := s.chain.Transcribe(r.Context(), samples, sampleRate)
	if err != nil {
		s.logger.Error("Upload transcription failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	if segments == nil {
		segments = []transcribe.Segment{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"segments":         segments,
		"duration_seconds": float64(len(samples)) / float64(sampleRate),
		"elapsed_ms":       time.Since(start).Milliseconds(),
	})
}

func readUpload(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	if len(contentType) >= 19 && contentType[:19] == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}
