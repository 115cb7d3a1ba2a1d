// Package transcribe implements the pluggable transcription backend chain.
// Four backends share one contract; a configurable policy picks among them by
// availability, and every backend failure degrades to an empty result.
package transcribe
