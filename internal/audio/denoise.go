package audio

// Denoiser cleans up an utterance before it is handed to transcription.
// Implementations must not modify the input slice.
type Denoiser interface {
	Denoise(samples []float64, sampleRate int) []float64
}

// PassthroughDenoiser returns the input unchanged. It stands in when no
// denoising backend is configured.
type PassthroughDenoiser struct{}

func (PassthroughDenoiser) Denoise(samples []float64, sampleRate int) []float64 {
	return samples
}
