// Package metrics exposes Prometheus instrumentation for the fusion
// pipeline: session lifecycle, frame throughput, transcription latency,
// and face matching outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service
type Metrics struct {
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	AudioFramesTotal prometheus.Counter
	VideoFramesTotal prometheus.Counter

	UtterancesTotal          prometheus.Counter
	TranscriptionsTotal      *prometheus.CounterVec
	TranscriptionDuration    prometheus.Histogram
	IdentityExtractionsTotal *prometheus.CounterVec

	FaceDetectionsTotal prometheus.Counter
	FaceMatchesTotal    prometheus.Counter

	EventsPublishedTotal    prometheus.Counter
	ConversationsSavedTotal prometheus.Counter
}

// NewMetrics creates and registers all collectors with the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fusion_sessions_active",
			Help: "Number of currently active sessions",
		}),
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_sessions_total",
			Help: "Total number of sessions created",
		}),
		AudioFramesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_audio_frames_total",
			Help: "Total number of audio frames ingested",
		}),
		VideoFramesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_video_frames_total",
			Help: "Total number of video frames ingested",
		}),
		UtterancesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_utterances_total",
			Help: "Total number of finalized utterances",
		}),
		TranscriptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_transcriptions_total",
			Help: "Transcription attempts by backend and outcome",
		}, []string{"backend", "status"}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fusion_transcription_duration_seconds",
			Help:    "Wall time spent transcribing one utterance",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		IdentityExtractionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fusion_identity_extractions_total",
			Help: "Identity extraction attempts by provider and outcome",
		}, []string{"provider", "status"}),
		FaceDetectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_face_detections_total",
			Help: "Total number of faces detected in video frames",
		}),
		FaceMatchesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_face_matches_total",
			Help: "Total number of face detections matched to known people",
		}),
		EventsPublishedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_events_published_total",
			Help: "Total number of events published to the conversation bus",
		}),
		ConversationsSavedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fusion_conversations_saved_total",
			Help: "Total number of conversations persisted to the directory",
		}),
	}
}

// RecordSessionStart marks a new session
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd marks a session teardown
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
}

// RecordAudioFrame counts one ingested audio frame
func (m *Metrics) RecordAudioFrame() {
	m.AudioFramesTotal.Inc()
}

// RecordVideoFrame counts one ingested video frame
func (m *Metrics) RecordVideoFrame() {
	m.VideoFramesTotal.Inc()
}

// RecordUtterance counts one finalized utterance
func (m *Metrics) RecordUtterance() {
	m.UtterancesTotal.Inc()
}

// RecordTranscription records one transcription attempt
func (m *Metrics) RecordTranscription(backend string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.TranscriptionsTotal.WithLabelValues(backend, status).Inc()
	m.TranscriptionDuration.Observe(duration.Seconds())
}

// RecordExtraction records one identity extraction attempt
func (m *Metrics) RecordExtraction(provider string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.IdentityExtractionsTotal.WithLabelValues(provider, status).Inc()
}

// RecordFaceDetections counts detected and matched faces from one frame
func (m *Metrics) RecordFaceDetections(detected, matched int) {
	m.FaceDetectionsTotal.Add(float64(detected))
	m.FaceMatchesTotal.Add(float64(matched))
}

// RecordEventPublished counts one bus publish
func (m *Metrics) RecordEventPublished() {
	m.EventsPublishedTotal.Inc()
}

// RecordConversationSaved counts one persisted conversation
func (m *Metrics) RecordConversationSaved() {
	m.ConversationsSavedTotal.Inc()
}
