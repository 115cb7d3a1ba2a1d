package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/audio"
	"github.com/Lothnic/hack-the-throne/internal/event"
	"github.com/Lothnic/hack-the-throne/internal/face"
	"github.com/Lothnic/hack-the-throne/internal/identity"
	"github.com/Lothnic/hack-the-throne/internal/transcribe"
)

// runAudio consumes the session's audio queue: frames feed the utterance
// accumulator, and completed utterances go through transcription, speaker
// attribution, and the conversation-end publish. Channel close triggers
// the final flush so trailing speech gets the same treatment.
func (m *Manager) runAudio(s *Session) {
	defer s.wg.Done()
	defer s.cancel()

	var acc *audio.Accumulator

	finish := func() {
		if acc != nil {
			if utt := acc.Flush(); utt != nil {
				m.processUtterance(s, utt)
			}
		}
		m.publishConversationEnd(s)
	}

	for {
		select {
		case <-s.ctx.Done():
			finish()
			return
		case msg, ok := <-s.audioCh:
			if !ok {
				finish()
				return
			}
			if msg.flush {
				if acc != nil {
					if utt := acc.Flush(); utt != nil {
						m.processUtterance(s, utt)
					}
				}
				continue
			}

			rate := msg.rate
			if rate == 0 {
				rate = m.cfg.Audio.DefaultSampleRate
			}
			if acc == nil {
				acc = audio.NewAccumulator(audio.AccumulatorConfig{
					SampleRate:   rate,
					MinDuration:  m.cfg.Audio.GetMinUtteranceDuration(),
					MaxDuration:  m.cfg.Audio.GetMaxUtteranceDuration(),
					SilenceClose: m.cfg.Audio.GetSilenceCloseDuration(),
				}, m.deps.Gate, m.deps.Denoiser, m.deps.Logger.With(slog.String("session_id", s.ID)))
			}

			if utt := acc.AddFrame(msg.samples); utt != nil {
				m.processUtterance(s, utt)
			}
		}
	}
}

func (m *Manager) processUtterance(s *Session, utt *audio.Utterance) {
	m.deps.Metrics.RecordUtterance()

	logger := m.deps.Logger.With(slog.String("session_id", s.ID))

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Transcription.GetTimeout())
	segments, err := m.deps.Transcriber.Transcribe(ctx, utt.Samples, utt.SampleRate)
	cancel()
	m.deps.Metrics.RecordTranscription(m.deps.Transcriber.Name(), err, time.Since(start))

	if err != nil {
		if errors.Is(err, transcribe.ErrUnavailable) {
			logger.Warn("No transcription backend available, dropping utterance")
		} else {
			logger.Error("Transcription failed",
				slog.Duration("utterance", utt.Duration()),
				slog.String("error", err.Error()))
		}
		return
	}

	text := transcribe.JoinText(segments)
	if text == "" {
		logger.Debug("Utterance transcribed to silence")
		return
	}

	person := m.attribute(s, text)

	name := identity.UnknownPersonName
	personID := ""
	if person != nil {
		name = person.Name
		personID = person.ID
	}

	s.setSpeaker(personID, name, time.Now())
	s.appendUtterance(name, text)

	logger.Info("Utterance transcribed",
		slog.String("speaker", name),
		slog.Duration("duration", utt.Duration()),
		slog.Int("chars", len(text)))

	// A closed utterance is a finished exchange: publish it right away
	// rather than holding it until the session tears down.
	m.publishConversationEnd(s)
}

// attribute decides who spoke. A name stated in the transcript wins,
// otherwise a face seen inside the association window, otherwise the
// resolver's recency fallback.
func (m *Manager) attribute(s *Session, text string) *face.Person {
	logger := m.deps.Logger.With(slog.String("session_id", s.ID))

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Identity.GetTimeout())
	defer cancel()

	var upd *identity.Update
	if m.deps.Extractor != nil && m.deps.Extractor.Available() {
		var err error
		upd, err = m.deps.Extractor.Extract(ctx, text)
		m.deps.Metrics.RecordExtraction(m.deps.Extractor.Name(), err)
		if err != nil {
			logger.Warn("Identity extraction failed", slog.String("error", err.Error()))
			upd = nil
		}
	}

	if upd == nil || upd.Name == "" {
		window := m.cfg.Fusion.GetSpeakerAssociationWindow()
		if faceID, faceName, ok := s.recentFace(window); ok {
			person, err := m.deps.Directory.GetPerson(ctx, faceID)
			if err == nil {
				if terr := m.deps.Directory.TouchLastSeen(ctx, faceID, time.Now()); terr != nil {
					logger.Warn("Failed to touch last seen", slog.String("error", terr.Error()))
				}
				logger.Debug("Attributed utterance to recent face",
					slog.String("person_id", faceID),
					slog.String("name", faceName))
				return person
			}
			logger.Warn("Recent face person lookup failed",
				slog.String("person_id", faceID),
				slog.String("error", err.Error()))
		}
	}

	person, err := m.deps.Resolver.Resolve(ctx, upd)
	if err != nil {
		logger.Error("Speaker resolution failed", slog.String("error", err.Error()))
		return nil
	}
	return person
}

func (m *Manager) publishConversationEnd(s *Session) {
	conversationID, speakerID, conv := s.drainConversation()
	if len(conv) == 0 {
		return
	}

	m.publish(event.Event{
		Type:           event.TypeConversationEnd,
		PersonID:       speakerID,
		ConversationID: conversationID,
		SessionID:      s.ID,
		Conversation:   conv,
	})
	m.deps.Logger.Info("Conversation ended",
		slog.String("session_id", s.ID),
		slog.String("conversation_id", conversationID),
		slog.Int("utterances", len(conv)))
}
