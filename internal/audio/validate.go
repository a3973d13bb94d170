package audio

// Validation thresholds. Audio below SilenceThreshold peak amplitude carries
// no usable signal; a standard deviation below NoiseThreshold means the
// samples are a flat line or DC offset, not speech.
const (
	SilenceThreshold = 0.01
	NoiseThreshold   = 0.001
)

// Classification is the result of content validation for one chunk
type Classification int

const (
	Viable Classification = iota
	Silent
	ConstantNoise
)

// String returns a human-readable classification name
func (c Classification) String() string {
	switch c {
	case Viable:
		return "viable"
	case Silent:
		return "silent"
	case ConstantNoise:
		return "constant_noise"
	default:
		return "unknown"
	}
}

// Classify inspects a chunk's samples and decides whether they are worth
// submitting to the inference engine. Silent and constant-noise audio is an
// expected real-world condition, not a fault; callers treat it as a soft
// success with empty text.
func Classify(samples []float32) (Classification, Stats) {
	stats := ComputeStats(samples)

	if len(samples) == 0 || stats.MaxAmplitude < SilenceThreshold {
		return Silent, stats
	}

	if stats.StdDev < NoiseThreshold {
		return ConstantNoise, stats
	}

	return Viable, stats
}
