package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/face"
)

// UnknownPersonName is the directory entry conversations fall back to when
// nothing identifies the speaker.
const UnknownPersonName = "Unknown Person"

// Resolver maps an extraction result to a directory person. When the
// transcript names the speaker it finds or creates that person; otherwise
// it falls back to whoever was seen most recently, and finally to the
// shared unknown-person entry.
type Resolver struct {
	directory face.Directory
	logger    *slog.Logger
}

// NewResolver creates a resolver over the given directory
func NewResolver(directory face.Directory, logger *slog.Logger) *Resolver {
	return &Resolver{directory: directory, logger: logger}
}

// Resolve picks the person this conversation belongs to and applies the
// extracted relationship when one was learned.
func (r *Resolver) Resolve(ctx context.Context, upd *Update) (*face.Person, error) {
	person, err := r.pick(ctx, upd)
	if err != nil {
		return nil, err
	}

	if upd != nil && upd.Relationship != "" && upd.Relationship != person.Relationship {
		if err := r.directory.UpdateRelationship(ctx, person.ID, upd.Relationship); err != nil {
			r.logger.Warn("Failed to update relationship",
				slog.String("person_id", person.ID),
				slog.String("error", err.Error()))
		} else {
			person.Relationship = upd.Relationship
		}
	}

	if err := r.directory.TouchLastSeen(ctx, person.ID, time.Now()); err != nil {
		r.logger.Warn("Failed to touch last seen",
			slog.String("person_id", person.ID),
			slog.String("error", err.Error()))
	}
	return person, nil
}

func (r *Resolver) pick(ctx context.Context, upd *Update) (*face.Person, error) {
	if upd != nil && upd.Name != "" {
		return r.findOrCreate(ctx, upd.Name, upd.Relationship)
	}

	recent, err := r.directory.RecentPeople(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to look up recent people: %w", err)
	}
	if len(recent) > 0 && recent[0].Name != UnknownPersonName {
		r.logger.Debug("Attributing to most recent person",
			slog.String("person_id", recent[0].ID),
			slog.String("name", recent[0].Name))
		return recent[0], nil
	}

	return r.findOrCreate(ctx, UnknownPersonName, "")
}

func (r *Resolver) findOrCreate(ctx context.Context, name, relationship string) (*face.Person, error) {
	person, err := r.directory.FindPersonByName(ctx, name)
	if err == nil {
		return person, nil
	}
	if !errors.Is(err, face.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up %q: %w", name, err)
	}

	person, err = r.directory.CreatePerson(ctx, name, relationship)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", name, err)
	}
	r.logger.Info("Created new person",
		slog.String("person_id", person.ID),
		slog.String("name", name))
	return person, nil
}
