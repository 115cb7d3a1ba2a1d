// Package session owns per-connection state and the audio/video consumer loops,
// including the temporal speaker-face association algorithm that fuses the two
// identity signals.
package session
