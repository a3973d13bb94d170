package pipeline

import (
	"testing"
	"time"
)

func TestAdaptiveTimeout(t *testing.T) {
	tests := []struct {
		name         string
		base         time.Duration
		audioSeconds float64
		want         time.Duration
	}{
		{"short audio uses base", 30 * time.Second, 10, 30 * time.Second},
		{"long audio scales", 30 * time.Second, 60, 90 * time.Second},
		{"large base dominates", 90 * time.Second, 10, 90 * time.Second},
		{"scaled equals base", 45 * time.Second, 30, 45 * time.Second},
		{"zero audio uses base", 30 * time.Second, 0, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdaptiveTimeout(tt.base, tt.audioSeconds); got != tt.want {
				t.Errorf("AdaptiveTimeout(%v, %v) = %v, want %v", tt.base, tt.audioSeconds, got, tt.want)
			}
		})
	}
}
