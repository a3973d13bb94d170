package pipeline

import "time"

// timeoutFactor scales audio duration into a processing time allowance.
// Transcription of an N second file takes roughly real time on CPU, so
// 1.5x leaves headroom without letting a stuck call wait forever.
const timeoutFactor = 1.5

// AdaptiveTimeout returns the processing deadline for a piece of audio:
// the configured base timeout, or 1.5x the audio duration when the audio
// is long enough that the base would cut healthy processing short.
func AdaptiveTimeout(base time.Duration, audioSeconds float64) time.Duration {
	scaled := time.Duration(audioSeconds * timeoutFactor * float64(time.Second))
	if scaled < base {
		return base
	}
	return scaled
}
