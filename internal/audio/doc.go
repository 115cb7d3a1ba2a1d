// Package audio handles PCM conversion, WAV encoding, overlap windowing for
// duration-limited transcription backends, and per-session utterance accumulation
// driven by voice-activity gating.
package audio
