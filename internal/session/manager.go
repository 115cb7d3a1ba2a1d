package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/audio"
	"github.com/Lothnic/hack-the-throne/internal/config"
	"github.com/Lothnic/hack-the-throne/internal/event"
	"github.com/Lothnic/hack-the-throne/internal/face"
	"github.com/Lothnic/hack-the-throne/internal/identity"
	"github.com/Lothnic/hack-the-throne/internal/metrics"
	"github.com/Lothnic/hack-the-throne/internal/protocol"
	"github.com/Lothnic/hack-the-throne/internal/transcribe"
)

const cleanupInterval = 10 * time.Second

// Deps bundles everything the manager needs to run the fusion pipeline
type Deps struct {
	Transcriber   transcribe.Transcriber
	Gate          audio.Gate
	Denoiser      audio.Denoiser
	Extractor     identity.Extractor // may be nil
	Resolver      *identity.Resolver
	FaceExtractor *face.Extractor
	Matcher       *face.Matcher
	Directory     face.Directory
	Bus           *event.Bus
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Manager owns all active sessions. Each session runs one audio consumer
// and one video consumer goroutine; the manager routes ingress frames to
// them and reaps idle sessions on a timer.
type Manager struct {
	cfg  *config.Config
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager
func NewManager(cfg *config.Config, deps Deps) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the idle-session reaper
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.cleanupLoop()
	m.deps.Logger.Info("Session manager started",
		slog.Duration("session_timeout", m.cfg.Ingress.GetSessionTimeout()))
}

// Stop closes every session and waits for their pipelines to drain
func (m *Manager) Stop() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.CloseSession(id)
	}
	m.cancel()
	m.wg.Wait()
	m.deps.Logger.Info("Session manager stopped")
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.reapIdle()
		}
	}
}

func (m *Manager) reapIdle() {
	timeout := m.cfg.Ingress.GetSessionTimeout()

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if time.Since(s.idleSince()) > timeout {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		m.deps.Logger.Info("Reaping idle session", slog.String("session_id", id))
		m.CloseSession(id)
	}
}

// Get returns a session by id
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns snapshots of all active sessions, ordered by id
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Snapshot())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Open creates the session if it does not exist yet and returns it.
// It fails when the session cap is reached.
func (m *Manager) Open(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if len(m.sessions) >= m.cfg.Ingress.MaxSessions {
		return nil, fmt.Errorf("session limit reached (%d)", m.cfg.Ingress.MaxSessions)
	}

	s := newSession(m.ctx, id, m.cfg.Ingress.FrameQueueSize)
	m.sessions[id] = s

	s.wg.Add(2)
	go m.runAudio(s)
	go m.runVideo(s)

	m.deps.Metrics.RecordSessionStart()
	m.deps.Logger.Info("Session opened",
		slog.String("session_id", id),
		slog.String("conversation_id", s.conversationID))
	return s, nil
}

// HandleFrame routes one decoded ingress frame to its session's pipeline
func (m *Manager) HandleFrame(sessionID string, frame *protocol.Frame) error {
	s, ok := m.Get(sessionID)
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	s.touch()

	switch frame.Header.Kind {
	case protocol.FrameKindAudio:
		m.deps.Metrics.RecordAudioFrame()
		return m.enqueueAudio(s, audioMsg{
			samples: audio.BytesToSamples(frame.Payload),
			rate:    int(frame.Header.Rate),
		})
	case protocol.FrameKindVideo:
		m.deps.Metrics.RecordVideoFrame()
		m.enqueueVideo(s, videoMsg{
			data:        frame.Payload,
			contentType: frame.Header.ContentType(),
		})
		return nil
	case protocol.FrameKindFlush:
		return m.enqueueAudio(s, audioMsg{flush: true})
	default:
		return fmt.Errorf("unroutable frame kind: 0x%02x", frame.Header.Kind)
	}
}

// enqueueAudio sends under the session mutex so the closed check and the
// send are atomic with respect to CloseSession closing audioCh.
func (m *Manager) enqueueAudio(s *Session, msg audioMsg) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed: %s", s.ID)
	}

	select {
	case s.audioCh <- msg:
		s.mu.Unlock()
		return nil
	default:
		s.mu.Unlock()
		m.deps.Logger.Warn("Audio queue full, dropping frame",
			slog.String("session_id", s.ID))
		return nil
	}
}

func (m *Manager) enqueueVideo(s *Session, msg videoMsg) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	// Video frames are snapshots; when the consumer lags the newest
	// frame wins and older queued ones are dropped.
	for {
		select {
		case s.videoCh <- msg:
			return
		default:
			select {
			case <-s.videoCh:
			default:
			}
		}
	}
}

// CloseSession flushes and tears down a session. The trailing utterance
// is finalized and the conversation-end event published before the
// session disappears.
func (m *Manager) CloseSession(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	// Closing audioCh under the same mutex as the enqueue keeps a
	// concurrent HandleFrame from sending on the closed channel. The
	// audio consumer drains its queue, finalizes the trailing utterance,
	// publishes the conversation end, then cancels the session context
	// so the video consumer exits too.
	s.mu.Lock()
	alreadyClosed := s.closed
	s.closed = true
	if !alreadyClosed {
		close(s.audioCh)
	}
	s.mu.Unlock()
	if alreadyClosed {
		return
	}

	s.wg.Wait()

	m.deps.Metrics.RecordSessionEnd()
	m.deps.Logger.Info("Session closed", slog.String("session_id", id))
}

func (m *Manager) publish(ev event.Event) {
	m.deps.Bus.Publish(ev)
	m.deps.Metrics.RecordEventPublished()
}
