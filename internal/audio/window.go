package audio

// Window is a slice of a longer utterance with its offset in the original,
// used to re-base segment timestamps after per-window transcription.
type Window struct {
	Samples []float64
	Offset  int // sample index of the window start in the source buffer
}

// SplitWindows cuts samples into windows of at most chunkLen samples, with
// consecutive windows sharing overlapLen samples. Input no longer than
// chunkLen comes back as a single window. The final window may be shorter
// than chunkLen but always ends exactly at the input length.
func SplitWindows(samples []float64, chunkLen, overlapLen int) []Window {
	if len(samples) == 0 {
		return nil
	}
	if chunkLen <= 0 || len(samples) <= chunkLen {
		return []Window{{Samples: samples, Offset: 0}}
	}
	if overlapLen < 0 {
		overlapLen = 0
	}
	if overlapLen >= chunkLen {
		overlapLen = chunkLen - 1
	}

	step := chunkLen - overlapLen
	var windows []Window
	for start := 0; start < len(samples); start += step {
		end := start + chunkLen
		if end >= len(samples) {
			windows = append(windows, Window{Samples: samples[start:], Offset: start})
			break
		}
		windows = append(windows, Window{Samples: samples[start:end], Offset: start})
	}
	return windows
}
