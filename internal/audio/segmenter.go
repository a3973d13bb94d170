package audio

import (
	"fmt"
)

// maxChunks guards against a non-advancing boundary calculation
const maxChunks = 1000

// Chunk is one bounded window of a longer audio buffer. Consecutive chunks
// overlap by the configured overlap; Samples alias the parent buffer and
// must not outlive the pipeline invocation that produced them.
type Chunk struct {
	Index   int
	Start   float64 // seconds from buffer start, inclusive
	End     float64 // seconds from buffer start, exclusive
	Samples []float32
}

// Duration returns the chunk duration in seconds
func (c *Chunk) Duration() float64 {
	return c.End - c.Start
}

// SegmentConfig contains segmentation parameters, all in seconds
type SegmentConfig struct {
	ChunkDuration    float64
	ChunkOverlap     float64
	MinChunkDuration float64
}

// Validate checks the segmentation invariants
func (c *SegmentConfig) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %g", c.ChunkDuration)
	}

	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %g", c.ChunkOverlap)
	}

	if c.ChunkOverlap >= c.ChunkDuration/2 {
		return fmt.Errorf("chunk overlap (%gs) must be less than half of chunk duration (%gs)",
			c.ChunkOverlap, c.ChunkDuration)
	}

	return nil
}

// Segment splits a buffer into ordered overlapping chunks covering [0, D)
// with no gaps. Chunk i spans [i*(duration-overlap), i*(duration-overlap)+duration),
// clamped to the buffer end. A final chunk shorter than MinChunkDuration is
// absorbed into the previous chunk instead of being emitted on its own.
// If the buffer fits in one chunk it is returned whole.
func Segment(buf *Buffer, cfg SegmentConfig) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	total := buf.Duration()

	if total <= cfg.ChunkDuration {
		return []Chunk{{
			Index:   0,
			Start:   0,
			End:     total,
			Samples: buf.Samples,
		}}, nil
	}

	type span struct{ start, end float64 }
	var spans []span

	start := 0.0
	for start < total {
		end := start + cfg.ChunkDuration
		if end > total {
			end = total
		}
		spans = append(spans, span{start, end})

		if end >= total {
			break
		}

		next := end - cfg.ChunkOverlap
		if next <= start {
			return nil, fmt.Errorf("chunk boundaries do not advance (start=%g, next=%g)", start, next)
		}
		start = next

		if len(spans) > maxChunks {
			return nil, fmt.Errorf("too many chunks calculated (>%d), refusing to segment", maxChunks)
		}
	}

	// Absorb a too-short final chunk into the previous one.
	if len(spans) > 1 {
		last := spans[len(spans)-1]
		if last.end-last.start < cfg.MinChunkDuration {
			spans[len(spans)-2].end = last.end
			spans = spans[:len(spans)-1]
		}
	}

	chunks := make([]Chunk, 0, len(spans))
	for i, s := range spans {
		lo := int(s.start * float64(buf.SampleRate))
		hi := int(s.end * float64(buf.SampleRate))
		if hi > len(buf.Samples) {
			hi = len(buf.Samples)
		}

		chunks = append(chunks, Chunk{
			Index:   i,
			Start:   s.start,
			End:     s.end,
			Samples: buf.Samples[lo:hi],
		})
	}

	return chunks, nil
}
