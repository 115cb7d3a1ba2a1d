package face

import (
	"fmt"
	"math"
)

// Match is the best-scoring known face for an embedding
type Match struct {
	PersonID string
	Name     string
	Score    float64
}

// Matcher compares face embeddings against a set of known references
// using cosine similarity.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher. Embeddings scoring below threshold are
// treated as unknown faces.
func NewMatcher(threshold float64) (*Matcher, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("match threshold must be in (0, 1), got %v", threshold)
	}
	return &Matcher{threshold: threshold}, nil
}

// Threshold returns the configured similarity cutoff
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// BestMatch returns the highest-scoring reference at or above the
// threshold, or nil when no reference is close enough.
func (m *Matcher) BestMatch(embedding []float64, refs []FaceRef) *Match {
	var best *Match
	for _, ref := range refs {
		score, err := CosineSimilarity(embedding, ref.Embedding)
		if err != nil {
			continue
		}
		if score < m.threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &Match{PersonID: ref.PersonID, Name: ref.Name, Score: score}
		}
	}
	return best
}

// CosineSimilarity computes the cosine of the angle between two vectors
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero-magnitude vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
