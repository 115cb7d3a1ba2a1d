package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Lothnic/hack-the-throne/internal/audio"
	"github.com/Lothnic/hack-the-throne/internal/config"
	"github.com/Lothnic/hack-the-throne/internal/event"
	"github.com/Lothnic/hack-the-throne/internal/face"
	"github.com/Lothnic/hack-the-throne/internal/identity"
	"github.com/Lothnic/hack-the-throne/internal/metrics"
	"github.com/Lothnic/hack-the-throne/internal/session"
	"github.com/Lothnic/hack-the-throne/internal/transcribe"
)

type echoBackend struct{}

func (echoBackend) Name() string    { return "echo" }
func (echoBackend) Available() bool { return true }

func (echoBackend) Transcribe(ctx context.Context, samples []float64, sampleRate int) ([]transcribe.Segment, error) {
	return []transcribe.Segment{{Text: "echoed speech", End: float64(len(samples)) / float64(sampleRate)}}, nil
}

var serverMetrics = metrics.NewMetrics()

func testServer(t *testing.T) (*Server, *event.Bus, face.Directory) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	dir := face.NewMemoryDirectory()
	bus := event.NewBus(16, logger)

	chain, err := transcribe.NewChain(
		transcribe.ChainConfig{Policy: transcribe.PolicyFirst},
		[]transcribe.Transcriber{echoBackend{}}, logger)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	matcher, _ := face.NewMatcher(cfg.Fusion.FaceMatchThreshold)
	manager := session.NewManager(cfg, session.Deps{
		Transcriber: chain,
		Gate:        gateTrue{},
		Resolver:    identity.NewResolver(dir, logger),
		Matcher:     matcher,
		Directory:   dir,
		Bus:         bus,
		Metrics:     serverMetrics,
		Logger:      logger,
	})

	return NewServer(cfg, manager, bus, dir, chain, logger), bus, dir
}

type gateTrue struct{}

func (gateTrue) IsVoiced(samples []float64) bool { return true }

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected ok status, got %v", body["status"])
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Transcription struct {
			Policy   string          `json:"policy"`
			Backends map[string]bool `json:"backends"`
		} `json:"transcription"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if !body.Transcription.Backends["echo"] {
		t.Errorf("Expected echo backend available, got %+v", body.Transcription.Backends)
	}
}

func TestTranscribeUpload(t *testing.T) {
	srv, _, _ := testServer(t)

	samples := make([]float64, 16000)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(float64(i)/10)
	}
	wav, err := audio.EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/transcribe", bytes.NewReader(wav))
	req.Header.Set("Content-Type", "audio/wav")
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Segments []transcribe.Segment `json:"segments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(body.Segments) != 1 || body.Segments[0].Text != "echoed speech" {
		t.Errorf("Unexpected segments: %+v", body.Segments)
	}
}

func TestTranscribeUploadRejectsGarbage(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("not a wav"))
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestConversationStream(t *testing.T) {
	srv, bus, _ := testServer(t)

	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stream/conversation")
	if err != nil {
		t.Fatalf("Stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Expected event-stream content type, got %q", got)
	}

	// Give the handler time to subscribe before publishing
	waitForSubscriber(t, bus)
	bus.Publish(event.Event{Type: event.TypeFaceDetected, PersonID: "p1", SessionID: "s1"})

	reader := bufio.NewReader(resp.Body)
	var data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Stream read failed: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}

	var ev event.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("Invalid event JSON %q: %v", data, err)
	}
	if ev.PersonID != "p1" || ev.Type != event.TypeFaceDetected {
		t.Errorf("Unexpected event: %+v", ev)
	}
}

func TestInferenceStreamEnrichment(t *testing.T) {
	srv, bus, dir := testServer(t)

	person, err := dir.CreatePerson(context.Background(), "Asha", "friend")
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}

	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stream/inference")
	if err != nil {
		t.Fatalf("Stream request failed: %v", err)
	}
	defer resp.Body.Close()

	waitForSubscriber(t, bus)
	bus.Publish(event.Event{Type: event.TypeFaceDetected, PersonID: person.ID, SessionID: "s1"})

	reader := bufio.NewReader(resp.Body)
	var data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("Stream read failed: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}

	var view inferenceView
	if err := json.Unmarshal([]byte(data), &view); err != nil {
		t.Fatalf("Invalid view JSON %q: %v", data, err)
	}
	if view.Name != "Asha" || view.Relationship != "friend" {
		t.Errorf("Expected enriched view, got %+v", view)
	}
}

func waitForSubscriber(t *testing.T, bus *event.Bus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Stream handler never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
