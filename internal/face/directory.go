package face

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound means the requested person does not exist in the directory
var ErrNotFound = errors.New("person not found")

// FaceRef pairs a stored face embedding with the person it belongs to
type FaceRef struct {
	PersonID  string
	Name      string
	Embedding []float64
}

// Person is a directory entry
type Person struct {
	ID           string
	Name         string
	Relationship string
	LastSeenAt   time.Time
	CreatedAt    time.Time
}

// Conversation is a saved exchange attributed to a person
type Conversation struct {
	ID         string
	PersonID   string
	SessionID  string
	Summary    string
	Transcript string
	CreatedAt  time.Time
}

// Directory stores people, their face embeddings, and their conversation
// history. Implementations must be safe for concurrent use.
type Directory interface {
	// ListFaceRefs returns every stored embedding for matching
	ListFaceRefs(ctx context.Context) ([]FaceRef, error)
	// GetPerson fetches one person by id
	GetPerson(ctx context.Context, id string) (*Person, error)
	// FindPersonByName does a case-insensitive exact-name lookup
	FindPersonByName(ctx context.Context, name string) (*Person, error)
	// CreatePerson adds a person and returns the stored record
	CreatePerson(ctx context.Context, name, relationship string) (*Person, error)
	// UpdateFaceEmbedding stores or replaces a person's face embedding
	UpdateFaceEmbedding(ctx context.Context, personID string, embedding []float64) error
	// UpdateRelationship sets a person's relationship label
	UpdateRelationship(ctx context.Context, personID, relationship string) error
	// TouchLastSeen bumps a person's last-seen time
	TouchLastSeen(ctx context.Context, personID string, at time.Time) error
	// SaveConversation appends a conversation to a person's history
	SaveConversation(ctx context.Context, conv *Conversation) error
	// RecentPeople returns people ordered by last-seen, newest first
	RecentPeople(ctx context.Context, limit int) ([]*Person, error)
}
