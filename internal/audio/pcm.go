package audio

import "math"

// BytesToSamples converts little-endian PCM-16 bytes to float64 samples in [-1, 1]
func BytesToSamples(data []byte) []float64 {
	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float64(v) / 32767.0
	}
	return samples
}

// SamplesToInt16 converts float64 samples in [-1, 1] to PCM-16 values with clipping
func SamplesToInt16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * 32767.0)
	}
	return out
}

// RMS computes the root-mean-square level of the samples
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// NormalizeRMS applies gain toward targetRMS, capped at maxGain, clipping to [-1, 1].
// Very quiet audio (RMS below the noise floor) is returned unchanged.
func NormalizeRMS(samples []float64, targetRMS, maxGain float64) []float64 {
	rms := RMS(samples)
	if rms <= 0.001 {
		return samples
	}

	gain := targetRMS / rms
	if gain > maxGain {
		gain = maxGain
	}

	out := make([]float64, len(samples))
	for i, s := range samples {
		v := s * gain
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		out[i] = v
	}
	return out
}
