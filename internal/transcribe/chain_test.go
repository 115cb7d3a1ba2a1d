package transcribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type stubBackend struct {
	name      string
	available bool
	segments  []Segment
	err       error
	calls     int
}

func (s *stubBackend) Name() string    { return s.name }
func (s *stubBackend) Available() bool { return s.available }

func (s *stubBackend) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]Segment, error) {
	s.calls++
	return s.segments, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainValidation(t *testing.T) {
	backends := []Transcriber{&stubBackend{name: "a", available: true}}

	if _, err := NewChain(ChainConfig{Policy: "bogus"}, backends, testLogger()); err == nil {
		t.Error("Expected error for unknown policy")
	}
	if _, err := NewChain(ChainConfig{Policy: PolicyFixed, Fixed: "missing"}, backends, testLogger()); err == nil {
		t.Error("Expected error for fixed backend not in chain")
	}
	if _, err := NewChain(ChainConfig{Policy: PolicyFirst}, nil, testLogger()); err == nil {
		t.Error("Expected error for empty chain")
	}
}

func TestChainFirstSkipsUnavailable(t *testing.T) {
	down := &stubBackend{name: "cloud", available: false}
	up := &stubBackend{name: "local", available: true, segments: []Segment{{Text: "hello"}}}

	chain, err := NewChain(ChainConfig{Policy: PolicyFirst}, []Transcriber{down, up}, testLogger())
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	segments, err := chain.Transcribe(context.Background(), []float64{0}, 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "hello" {
		t.Errorf("Expected segment from available backend, got %+v", segments)
	}
	if down.calls != 0 {
		t.Error("Unavailable backend was called")
	}
}

func TestChainFirstNoFallbackOnError(t *testing.T) {
	failing := &stubBackend{name: "a", available: true, err: errors.New("boom")}
	next := &stubBackend{name: "b", available: true}

	chain, _ := NewChain(ChainConfig{Policy: PolicyFirst}, []Transcriber{failing, next}, testLogger())

	if _, err := chain.Transcribe(context.Background(), []float64{0}, 16000); err == nil {
		t.Error("Expected error to propagate under first policy")
	}
	if next.calls != 0 {
		t.Error("First policy fell back on error")
	}
}

func TestChainFailover(t *testing.T) {
	failing := &stubBackend{name: "a", available: true, err: errors.New("boom")}
	down := &stubBackend{name: "b", available: false}
	up := &stubBackend{name: "c", available: true, segments: []Segment{{Text: "recovered"}}}

	chain, _ := NewChain(ChainConfig{Policy: PolicyFailover}, []Transcriber{failing, down, up}, testLogger())

	segments, err := chain.Transcribe(context.Background(), []float64{0}, 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "recovered" {
		t.Errorf("Expected segment from last backend, got %+v", segments)
	}
	if failing.calls != 1 || down.calls != 0 || up.calls != 1 {
		t.Errorf("Unexpected call counts: %d %d %d", failing.calls, down.calls, up.calls)
	}
}

func TestChainFailoverAllFail(t *testing.T) {
	a := &stubBackend{name: "a", available: true, err: errors.New("boom a")}
	b := &stubBackend{name: "b", available: true, err: errors.New("boom b")}

	chain, _ := NewChain(ChainConfig{Policy: PolicyFailover}, []Transcriber{a, b}, testLogger())

	if _, err := chain.Transcribe(context.Background(), []float64{0}, 16000); err == nil {
		t.Error("Expected error when every backend fails")
	}
}

func TestChainFailoverStopsOnCancel(t *testing.T) {
	a := &stubBackend{name: "a", available: true, err: context.Canceled}
	b := &stubBackend{name: "b", available: true}

	chain, _ := NewChain(ChainConfig{Policy: PolicyFailover}, []Transcriber{a, b}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := chain.Transcribe(ctx, []float64{0}, 16000); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if b.calls != 0 {
		t.Error("Chain kept trying backends after cancellation")
	}
}

func TestChainFixed(t *testing.T) {
	a := &stubBackend{name: "a", available: true, segments: []Segment{{Text: "from a"}}}
	b := &stubBackend{name: "b", available: true, segments: []Segment{{Text: "from b"}}}

	chain, err := NewChain(ChainConfig{Policy: PolicyFixed, Fixed: "b"}, []Transcriber{a, b}, testLogger())
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	segments, err := chain.Transcribe(context.Background(), []float64{0}, 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if segments[0].Text != "from b" {
		t.Errorf("Fixed policy routed to wrong backend: %+v", segments)
	}
	if a.calls != 0 {
		t.Error("Fixed policy called a non-selected backend")
	}
}

func TestChainNoneAvailable(t *testing.T) {
	a := &stubBackend{name: "a", available: false}

	chain, _ := NewChain(ChainConfig{Policy: PolicyFirst}, []Transcriber{a}, testLogger())

	if chain.Available() {
		t.Error("Chain reported available with all backends down")
	}
	if _, err := chain.Transcribe(context.Background(), []float64{0}, 16000); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestJoinText(t *testing.T) {
	segments := []Segment{{Text: "hello"}, {Text: ""}, {Text: "world"}}
	if got := JoinText(segments); got != "hello world" {
		t.Errorf("Expected %q, got %q", "hello world", got)
	}
}
