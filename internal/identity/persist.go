package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/event"
	"github.com/Lothnic/hack-the-throne/internal/face"
	"github.com/Lothnic/hack-the-throne/internal/metrics"
)

// Persister subscribes to the conversation bus and writes finished
// conversations into the directory. It runs the extractor once more over
// the full transcript so the stored summary covers the whole exchange,
// not just the last utterance.
type Persister struct {
	bus       *event.Bus
	directory face.Directory
	extractor Extractor
	resolver  *Resolver
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPersister creates a persister. extractor may be unavailable; the
// conversation is then stored without a summary.
func NewPersister(bus *event.Bus, directory face.Directory, extractor Extractor, resolver *Resolver, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Persister {
	return &Persister{
		bus:       bus,
		directory: directory,
		extractor: extractor,
		resolver:  resolver,
		timeout:   timeout,
		metrics:   m,
		logger:    logger,
	}
}

// Run consumes bus events until ctx is cancelled
func (p *Persister) Run(ctx context.Context) {
	sub := p.bus.Subscribe()
	defer sub.Close()

	p.logger.Info("Conversation persister started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Conversation persister stopped")
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Type != event.TypeConversationEnd {
				continue
			}
			p.handle(ctx, ev)
		}
	}
}

func (p *Persister) handle(ctx context.Context, ev event.Event) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	transcript := ev.Transcript()
	if transcript == "" {
		return
	}

	var upd *Update
	if p.extractor != nil && p.extractor.Available() {
		var err error
		upd, err = p.extractor.Extract(ctx, transcript)
		if err != nil {
			p.logger.Warn("Conversation summary extraction failed",
				slog.String("conversation_id", ev.ConversationID),
				slog.String("error", err.Error()))
		}
	}

	personID := ev.PersonID
	if personID == "" {
		person, err := p.resolver.Resolve(ctx, upd)
		if err != nil {
			p.logger.Error("Failed to resolve person for conversation",
				slog.String("conversation_id", ev.ConversationID),
				slog.String("error", err.Error()))
			return
		}
		personID = person.ID
	}

	conv := &face.Conversation{
		ID:         ev.ConversationID,
		PersonID:   personID,
		SessionID:  ev.SessionID,
		Transcript: transcript,
	}
	if upd != nil {
		conv.Summary = upd.Summary
	}

	if err := p.directory.SaveConversation(ctx, conv); err != nil {
		p.logger.Error("Failed to save conversation",
			slog.String("conversation_id", ev.ConversationID),
			slog.String("person_id", personID),
			slog.String("error", err.Error()))
		return
	}
	p.metrics.RecordConversationSaved()
	p.logger.Info("Conversation saved",
		slog.String("conversation_id", ev.ConversationID),
		slog.String("person_id", personID),
		slog.Int("utterances", len(ev.Conversation)))
}
