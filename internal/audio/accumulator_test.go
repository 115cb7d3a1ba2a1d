package audio

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

type fixedGate struct {
	voiced bool
}

func (g *fixedGate) IsVoiced(samples []float64) bool {
	return g.voiced
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAccumulator(gate Gate) *Accumulator {
	return NewAccumulator(AccumulatorConfig{
		SampleRate:   16000,
		MinDuration:  2 * time.Second,
		MaxDuration:  60 * time.Second,
		SilenceClose: 1200 * time.Millisecond,
	}, gate, nil, testLogger())
}

func frame(ms int) []float64 {
	return make([]float64, 16000*ms/1000)
}

func TestAccumulatorIdleOnSilence(t *testing.T) {
	acc := newTestAccumulator(&fixedGate{voiced: false})

	for i := 0; i < 50; i++ {
		if utt := acc.AddFrame(frame(100)); utt != nil {
			t.Fatal("Silence alone should never produce an utterance")
		}
	}
	if acc.State() != StateIdle {
		t.Errorf("Expected idle state, got %s", acc.State())
	}
	if acc.BufferedSamples() != 0 {
		t.Errorf("Expected empty buffer, got %d samples", acc.BufferedSamples())
	}
}

func TestAccumulatorSilenceCloses(t *testing.T) {
	gate := &fixedGate{voiced: true}
	acc := newTestAccumulator(gate)

	// 3 seconds of speech
	for i := 0; i < 30; i++ {
		if utt := acc.AddFrame(frame(100)); utt != nil {
			t.Fatal("Utterance closed during active speech")
		}
	}
	if acc.State() != StateCollecting {
		t.Fatalf("Expected collecting state, got %s", acc.State())
	}

	// 1.2 seconds of trailing silence closes it
	gate.voiced = false
	var utt *Utterance
	for i := 0; i < 12 && utt == nil; i++ {
		utt = acc.AddFrame(frame(100))
	}
	if utt == nil {
		t.Fatal("Trailing silence did not close the utterance")
	}

	// Buffer holds the speech plus trailing silence
	want := 16000 * 42 / 10
	if len(utt.Samples) != want {
		t.Errorf("Expected %d samples, got %d", want, len(utt.Samples))
	}
	if acc.State() != StateIdle {
		t.Errorf("Expected idle state after close, got %s", acc.State())
	}
}

func TestAccumulatorResumesOnSpeech(t *testing.T) {
	gate := &fixedGate{voiced: true}
	acc := newTestAccumulator(gate)

	for i := 0; i < 30; i++ {
		acc.AddFrame(frame(100))
	}

	// Brief pause under the close threshold
	gate.voiced = false
	for i := 0; i < 5; i++ {
		if utt := acc.AddFrame(frame(100)); utt != nil {
			t.Fatal("Utterance closed before silence threshold")
		}
	}
	if acc.State() != StateWaitingSilence {
		t.Fatalf("Expected waiting_silence state, got %s", acc.State())
	}

	// Speech resumes, silence counter resets
	gate.voiced = true
	acc.AddFrame(frame(100))
	if acc.State() != StateCollecting {
		t.Errorf("Expected collecting state after speech resumed, got %s", acc.State())
	}

	gate.voiced = false
	for i := 0; i < 11; i++ {
		if utt := acc.AddFrame(frame(100)); utt != nil {
			t.Fatal("Silence counter did not reset after speech resumed")
		}
	}
	if utt := acc.AddFrame(frame(100)); utt == nil {
		t.Error("Expected utterance after full silence window")
	}
}

func TestAccumulatorDropsShortUtterance(t *testing.T) {
	gate := &fixedGate{voiced: true}
	acc := newTestAccumulator(gate)

	// Half a second of speech, under the 2 second floor
	for i := 0; i < 5; i++ {
		acc.AddFrame(frame(100))
	}
	gate.voiced = false
	for i := 0; i < 12; i++ {
		if utt := acc.AddFrame(frame(100)); utt != nil {
			t.Fatal("Short utterance should have been dropped")
		}
	}
	if acc.State() != StateIdle {
		t.Errorf("Expected idle state after drop, got %s", acc.State())
	}
}

func TestAccumulatorMaxDurationForceCloses(t *testing.T) {
	acc := newTestAccumulator(&fixedGate{voiced: true})

	var utt *Utterance
	frames := 0
	for frames < 700 && utt == nil {
		utt = acc.AddFrame(frame(100))
		frames++
	}
	if utt == nil {
		t.Fatal("Continuous speech never hit the duration ceiling")
	}
	if got := utt.Duration(); got < 59*time.Second || got > 61*time.Second {
		t.Errorf("Expected roughly 60s utterance, got %s", got)
	}
}

func TestAccumulatorFlush(t *testing.T) {
	gate := &fixedGate{voiced: true}
	acc := newTestAccumulator(gate)

	for i := 0; i < 30; i++ {
		acc.AddFrame(frame(100))
	}

	utt := acc.Flush()
	if utt == nil {
		t.Fatal("Flush dropped a valid in-progress utterance")
	}
	if len(utt.Samples) != 16000*3 {
		t.Errorf("Expected 48000 samples, got %d", len(utt.Samples))
	}
	if acc.State() != StateIdle {
		t.Errorf("Expected idle state after flush, got %s", acc.State())
	}

	// Flushing again is a no-op
	if utt := acc.Flush(); utt != nil {
		t.Error("Flush on empty accumulator returned an utterance")
	}
}

func TestAccumulatorFlushDropsShort(t *testing.T) {
	gate := &fixedGate{voiced: true}
	acc := newTestAccumulator(gate)

	for i := 0; i < 5; i++ {
		acc.AddFrame(frame(100))
	}
	if utt := acc.Flush(); utt != nil {
		t.Error("Flush kept an utterance under the minimum floor")
	}
}
