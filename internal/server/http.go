package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lothnic/hack-the-throne/internal/config"
	"github.com/Lothnic/hack-the-throne/internal/event"
	"github.com/Lothnic/hack-the-throne/internal/face"
	"github.com/Lothnic/hack-the-throne/internal/session"
	"github.com/Lothnic/hack-the-throne/internal/transcribe"
)

const sseKeepaliveInterval = 15 * time.Second

// Server is the HTTP surface: media ingress, event streams, session
// inspection, and operational endpoints.
type Server struct {
	cfg       *config.Config
	manager   *session.Manager
	bus       *event.Bus
	directory face.Directory
	chain     *transcribe.Chain
	logger    *slog.Logger

	httpServer *http.Server
	startedAt  time.Time
}

// NewServer creates the HTTP server
func NewServer(cfg *config.Config, manager *session.Manager, bus *event.Bus, directory face.Directory, chain *transcribe.Chain, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		manager:   manager,
		bus:       bus,
		directory: directory,
		chain:     chain,
		logger:    logger,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Ingress.Path, s.handleIngress)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /sessions", s.handleSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	mux.HandleFunc("GET /people", s.handlePeople)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /stream/conversation", s.handleConversationStream)
	mux.HandleFunc("GET /stream/inference", s.handleInferenceStream)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port),
		Handler: mux,
	}
	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": s.manager.List(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.directory.RecentPeople(r.Context(), 50)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list people")
		return
	}

	out := make([]map[string]any, 0, len(people))
	for _, p := range people {
		out = append(out, map[string]any{
			"person_id":    p.ID,
			"name":         p.Name,
			"relationship": p.Relationship,
			"last_seen_at": p.LastSeenAt,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"people": out})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"transcription": map[string]any{
			"policy":   s.cfg.Transcription.Policy,
			"backends": s.chain.Backends(),
		},
		"audio": map[string]any{
			"min_utterance_duration": s.cfg.Audio.MinUtteranceDuration,
			"max_utterance_duration": s.cfg.Audio.MaxUtteranceDuration,
			"silence_close_duration": s.cfg.Audio.SilenceCloseDuration,
			"default_sample_rate":    s.cfg.Audio.DefaultSampleRate,
		},
		"fusion": map[string]any{
			"face_republish_interval":    s.cfg.Fusion.FaceRepublishInterval,
			"speaker_association_window": s.cfg.Fusion.SpeakerAssociationWindow,
			"face_match_threshold":       s.cfg.Fusion.FaceMatchThreshold,
			"video_frame_subsample":      s.cfg.Fusion.VideoFrameSubsample,
		},
		"identity": map[string]any{
			"provider": s.cfg.Identity.Provider,
		},
		"directory": map[string]any{
			"driver": s.cfg.Directory.Driver,
		},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active_sessions":   s.manager.Count(),
		"event_subscribers": s.bus.SubscriberCount(),
		"events_dropped":    s.bus.Dropped(),
		"uptime_seconds":    int(time.Since(s.startedAt).Seconds()),
	})
}

// handleConversationStream feeds raw bus events to the client as SSE
func (s *Server) handleConversationStream(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, func(ev event.Event) (any, bool) {
		return ev, true
	})
}

// inferenceView is the derived per-event payload for UI clients: who was
// recognized, enriched from the directory.
type inferenceView struct {
	PersonID     string `json:"person_id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Description  string `json:"description"`
}

// handleInferenceStream feeds directory-enriched identity events as SSE
func (s *Server) handleInferenceStream(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, func(ev event.Event) (any, bool) {
		if ev.PersonID == "" {
			return nil, false
		}
		view := inferenceView{PersonID: ev.PersonID}

		person, err := s.directory.GetPerson(r.Context(), ev.PersonID)
		if err != nil {
			view.Name = ev.SpeakerName()
			return view, true
		}
		view.Name = person.Name
		view.Relationship = person.Relationship
		if person.Relationship != "" {
			view.Description = fmt.Sprintf("%s (%s)", person.Name, person.Relationship)
		} else {
			view.Description = person.Name
		}
		return view, true
	})
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, render func(event.Event) (any, bool)) {
	sse, err := newSSEWriter(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub := s.bus.Subscribe()
	defer sub.Close()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	s.logger.Debug("Event stream opened", slog.String("remote", r.RemoteAddr))
	defer s.logger.Debug("Event stream closed", slog.String("remote", r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if err := sse.sendComment("keepalive"); err != nil {
				return
			}
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			payload, send := render(ev)
			if !send {
				continue
			}
			if err := sse.sendJSON(string(ev.Type), payload); err != nil {
				return
			}
		}
	}
}
