package audio

import (
	"fmt"
	"math"
)

// Buffer holds decoded PCM audio. Samples are mono float32 in [-1, 1].
// A Buffer is immutable for the duration of one pipeline invocation and
// owned by the caller that decoded it.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// NewBuffer creates a Buffer from decoded samples
func NewBuffer(samples []float32, sampleRate int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("audio buffer is empty (0 samples)")
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

// Duration returns the buffer duration in seconds
func (b *Buffer) Duration() float64 {
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Stats holds basic signal statistics for a block of samples
type Stats struct {
	MaxAmplitude  float64 `json:"max_amplitude"`
	MeanAmplitude float64 `json:"mean_amplitude"`
	StdDev        float64 `json:"std_dev"`
}

// ComputeStats calculates max/mean absolute amplitude and standard deviation
func ComputeStats(samples []float32) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	var sum, absSum, maxAbs float64
	for _, s := range samples {
		v := float64(s)
		sum += v
		abs := math.Abs(v)
		absSum += abs
		if abs > maxAbs {
			maxAbs = abs
		}
	}

	mean := sum / float64(len(samples))

	var variance float64
	for _, s := range samples {
		d := float64(s) - mean
		variance += d * d
	}
	variance /= float64(len(samples))

	return Stats{
		MaxAmplitude:  maxAbs,
		MeanAmplitude: absSum / float64(len(samples)),
		StdDev:        math.Sqrt(variance),
	}
}
