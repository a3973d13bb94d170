package audio

import (
	"math"
	"testing"
)

func TestClassify(t *testing.T) {
	speech := make([]float32, 16000)
	for i := range speech {
		speech[i] = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	quiet := make([]float32, 16000)
	for i := range quiet {
		quiet[i] = 0.005 * float32(math.Sin(2*math.Pi*440*float64(i)/16000))
	}

	dcOffset := make([]float32, 16000)
	for i := range dcOffset {
		dcOffset[i] = 0.5
	}

	tests := []struct {
		name    string
		samples []float32
		want    Classification
	}{
		{"speech-like tone", speech, Viable},
		{"empty", nil, Silent},
		{"digital silence", make([]float32, 16000), Silent},
		{"below silence threshold", quiet, Silent},
		{"constant dc offset", dcOffset, ConstantNoise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.samples)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyThresholdBoundaries(t *testing.T) {
	// Peaks just above the silence threshold with real variation are
	// viable, even though the signal is very quiet
	quietButAlive := []float32{0.011, -0.011, 0.011, -0.011}
	if got, _ := Classify(quietButAlive); got != Viable {
		t.Errorf("Classify(just above threshold) = %v, want %v", got, Viable)
	}

	justBelow := []float32{0.009, -0.009, 0.009, -0.009}
	if got, _ := Classify(justBelow); got != Silent {
		t.Errorf("Classify(just below threshold) = %v, want %v", got, Silent)
	}
}

func TestComputeStats(t *testing.T) {
	samples := []float32{0.5, -0.5, 0.5, -0.5}
	stats := ComputeStats(samples)

	if stats.MaxAmplitude != 0.5 {
		t.Errorf("MaxAmplitude = %v, want 0.5", stats.MaxAmplitude)
	}
	if stats.MeanAmplitude != 0.5 {
		t.Errorf("MeanAmplitude = %v, want 0.5", stats.MeanAmplitude)
	}
	if math.Abs(stats.StdDev-0.5) > 1e-9 {
		t.Errorf("StdDev = %v, want 0.5", stats.StdDev)
	}
}
