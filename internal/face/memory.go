package face

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDirectory is an in-process Directory for development and tests.
// Contents are lost on restart.
type MemoryDirectory struct {
	mu            sync.RWMutex
	people        map[string]*Person
	embeddings    map[string][]float64
	conversations []*Conversation
}

// NewMemoryDirectory creates an empty in-memory directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		people:     make(map[string]*Person),
		embeddings: make(map[string][]float64),
	}
}

func (d *MemoryDirectory) ListFaceRefs(ctx context.Context) ([]FaceRef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	refs := make([]FaceRef, 0, len(d.embeddings))
	for id, emb := range d.embeddings {
		p := d.people[id]
		if p == nil {
			continue
		}
		refs = append(refs, FaceRef{PersonID: id, Name: p.Name, Embedding: emb})
	}
	return refs, nil
}

func (d *MemoryDirectory) GetPerson(ctx context.Context, id string) (*Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.people[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (d *MemoryDirectory) FindPersonByName(ctx context.Context, name string) (*Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, p := range d.people {
		if strings.EqualFold(p.Name, name) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) CreatePerson(ctx context.Context, name, relationship string) (*Person, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	p := &Person{
		ID:           uuid.New().String(),
		Name:         name,
		Relationship: relationship,
		LastSeenAt:   now,
		CreatedAt:    now,
	}
	d.people[p.ID] = p
	cp := *p
	return &cp, nil
}

func (d *MemoryDirectory) UpdateFaceEmbedding(ctx context.Context, personID string, embedding []float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.people[personID]; !ok {
		return ErrNotFound
	}
	d.embeddings[personID] = append([]float64(nil), embedding...)
	return nil
}

func (d *MemoryDirectory) UpdateRelationship(ctx context.Context, personID, relationship string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.people[personID]
	if !ok {
		return ErrNotFound
	}
	p.Relationship = relationship
	return nil
}

func (d *MemoryDirectory) TouchLastSeen(ctx context.Context, personID string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.people[personID]
	if !ok {
		return ErrNotFound
	}
	if at.After(p.LastSeenAt) {
		p.LastSeenAt = at
	}
	return nil
}

func (d *MemoryDirectory) SaveConversation(ctx context.Context, conv *Conversation) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.people[conv.PersonID]; !ok {
		return ErrNotFound
	}
	cp := *conv
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	d.conversations = append(d.conversations, &cp)
	return nil
}

func (d *MemoryDirectory) RecentPeople(ctx context.Context, limit int) ([]*Person, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	people := make([]*Person, 0, len(d.people))
	for _, p := range d.people {
		cp := *p
		people = append(people, &cp)
	}
	sort.Slice(people, func(i, j int) bool {
		return people[i].LastSeenAt.After(people[j].LastSeenAt)
	})
	if limit > 0 && len(people) > limit {
		people = people[:limit]
	}
	return people, nil
}
