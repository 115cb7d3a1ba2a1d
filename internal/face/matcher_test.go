package face

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
		wantErr  bool
	}{
		{"identical", []float64{1, 0, 0}, []float64{1, 0, 0}, 1.0, false},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0, false},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0, false},
		{"scaled", []float64{2, 0}, []float64{5, 0}, 1.0, false},
		{"dimension mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0, true},
		{"empty", nil, nil, 0, true},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMatcherThresholdValidation(t *testing.T) {
	for _, v := range []float64{0, 1, -0.5, 1.5} {
		if _, err := NewMatcher(v); err == nil {
			t.Errorf("Expected error for threshold %v", v)
		}
	}
	if _, err := NewMatcher(0.25); err != nil {
		t.Errorf("Unexpected error for valid threshold: %v", err)
	}
}

func TestMatcherBestMatch(t *testing.T) {
	matcher, err := NewMatcher(0.25)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	refs := []FaceRef{
		{PersonID: "p1", Name: "Asha", Embedding: []float64{1, 0, 0}},
		{PersonID: "p2", Name: "Ravi", Embedding: []float64{0.9, 0.1, 0}},
		{PersonID: "p3", Name: "Meera", Embedding: []float64{0, 1, 0}},
	}

	match := matcher.BestMatch([]float64{0.9, 0.1, 0}, refs)
	if match == nil {
		t.Fatal("Expected a match")
	}
	if match.PersonID != "p2" {
		t.Errorf("Expected best match p2, got %s (score %v)", match.PersonID, match.Score)
	}
}

func TestMatcherBelowThreshold(t *testing.T) {
	matcher, _ := NewMatcher(0.25)

	refs := []FaceRef{{PersonID: "p1", Name: "Asha", Embedding: []float64{1, 0}}}
	if match := matcher.BestMatch([]float64{0, 1}, refs); match != nil {
		t.Errorf("Expected no match for orthogonal embedding, got %+v", match)
	}
}

func TestMatcherSkipsBadRefs(t *testing.T) {
	matcher, _ := NewMatcher(0.25)

	refs := []FaceRef{
		{PersonID: "bad", Name: "Broken", Embedding: []float64{1}},
		{PersonID: "p1", Name: "Asha", Embedding: []float64{1, 0}},
	}
	match := matcher.BestMatch([]float64{1, 0}, refs)
	if match == nil || match.PersonID != "p1" {
		t.Errorf("Expected p1 despite malformed ref, got %+v", match)
	}
}

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	p, err := dir.CreatePerson(ctx, "Asha", "friend")
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}

	found, err := dir.FindPersonByName(ctx, "asha")
	if err != nil {
		t.Fatalf("FindPersonByName failed: %v", err)
	}
	if found.ID != p.ID {
		t.Errorf("Expected person %s, got %s", p.ID, found.ID)
	}

	if _, err := dir.FindPersonByName(ctx, "nobody"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := dir.UpdateFaceEmbedding(ctx, p.ID, []float64{1, 0}); err != nil {
		t.Fatalf("UpdateFaceEmbedding failed: %v", err)
	}
	refs, err := dir.ListFaceRefs(ctx)
	if err != nil {
		t.Fatalf("ListFaceRefs failed: %v", err)
	}
	if len(refs) != 1 || refs[0].PersonID != p.ID {
		t.Errorf("Unexpected refs: %+v", refs)
	}

	if err := dir.SaveConversation(ctx, &Conversation{PersonID: p.ID, SessionID: "s1", Transcript: "hi"}); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}
	if err := dir.SaveConversation(ctx, &Conversation{PersonID: "missing"}); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for unknown person, got %v", err)
	}
}

func TestMemoryDirectoryRecentPeople(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	older, _ := dir.CreatePerson(ctx, "Old", "")
	newer, _ := dir.CreatePerson(ctx, "New", "")

	dir.TouchLastSeen(ctx, older.ID, time.Now().Add(-time.Hour))
	dir.TouchLastSeen(ctx, newer.ID, time.Now().Add(time.Minute))

	people, err := dir.RecentPeople(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPeople failed: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("Expected 2 people, got %d", len(people))
	}
	if people[0].ID != newer.ID {
		t.Errorf("Expected most recent first, got %s", people[0].Name)
	}

	limited, _ := dir.RecentPeople(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit to apply, got %d people", len(limited))
	}
}
