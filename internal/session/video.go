package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/event"
)

// runVideo consumes the session's video queue. Frames surviving the
// subsample stride go to the face extractor; recognized faces update the
// session's face state and publish debounced face events, and unknown
// faces get bound to whoever spoke inside the association window.
func (m *Manager) runVideo(s *Session) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.videoCh:
			if !s.nextVideoFrame(uint64(m.cfg.Fusion.VideoFrameSubsample)) {
				continue
			}
			m.processFrame(s, msg)
		}
	}
}

func (m *Manager) processFrame(s *Session, msg videoMsg) {
	logger := m.deps.Logger.With(slog.String("session_id", s.ID))

	if m.deps.FaceExtractor == nil || !m.deps.FaceExtractor.Available() {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, m.cfg.Identity.GetTimeout())
	defer cancel()

	detections, err := m.deps.FaceExtractor.Extract(ctx, msg.data, msg.contentType)
	if err != nil {
		logger.Warn("Face extraction failed", slog.String("error", err.Error()))
		return
	}
	if len(detections) == 0 {
		m.deps.Metrics.RecordFaceDetections(0, 0)
		return
	}

	refs, err := m.deps.Directory.ListFaceRefs(ctx)
	if err != nil {
		logger.Error("Failed to load face references", slog.String("error", err.Error()))
		return
	}

	matched := 0
	boundUnknown := false
	for _, det := range detections {
		match := m.deps.Matcher.BestMatch(det.Embedding, refs)
		if match != nil {
			matched++
			m.handleMatch(ctx, s, match.PersonID, match.Name, match.Score)
			continue
		}
		if !boundUnknown {
			boundUnknown = m.bindUnknownFace(ctx, s, det.Embedding)
		}
	}
	m.deps.Metrics.RecordFaceDetections(len(detections), matched)
}

func (m *Manager) handleMatch(ctx context.Context, s *Session, personID, name string, score float64) {
	logger := m.deps.Logger.With(slog.String("session_id", s.ID))

	s.setFace(personID, name, time.Now())
	if err := m.deps.Directory.TouchLastSeen(ctx, personID, time.Now()); err != nil {
		logger.Warn("Failed to touch last seen",
			slog.String("person_id", personID),
			slog.String("error", err.Error()))
	}

	if !s.shouldPublishFace(personID, m.cfg.Fusion.GetFaceRepublishInterval()) {
		return
	}

	m.publish(event.Event{
		Type:      event.TypeFaceDetected,
		PersonID:  personID,
		SessionID: s.ID,
	})
	logger.Info("Face recognized",
		slog.String("person_id", personID),
		slog.String("name", name),
		slog.Float64("score", score))
}

// bindUnknownFace stores an unrecognized face embedding against the
// current speaker, provided someone spoke recently enough that the face
// plausibly belongs to them. Reports whether a binding happened.
func (m *Manager) bindUnknownFace(ctx context.Context, s *Session, embedding []float64) bool {
	window := m.cfg.Fusion.GetSpeakerAssociationWindow()
	speakerID, speakerName, ok := s.recentSpeaker(window)
	if !ok {
		// No one to bind the face to: whoever we tracked before has
		// left frame, so forget them rather than keep attributing.
		s.resetFace()
		return false
	}

	logger := m.deps.Logger.With(slog.String("session_id", s.ID))
	if err := m.deps.Directory.UpdateFaceEmbedding(ctx, speakerID, embedding); err != nil {
		logger.Warn("Failed to bind face to speaker",
			slog.String("person_id", speakerID),
			slog.String("error", err.Error()))
		return false
	}

	s.setFace(speakerID, speakerName, time.Now())
	logger.Info("Bound new face to recent speaker",
		slog.String("person_id", speakerID),
		slog.String("name", speakerName))

	// A successful binding always publishes, even if the same person was
	// announced moments ago: the directory just changed.
	s.markFacePublished(speakerID)
	m.publish(event.Event{
		Type:      event.TypeFaceDetected,
		PersonID:  speakerID,
		SessionID: s.ID,
	})
	return true
}
