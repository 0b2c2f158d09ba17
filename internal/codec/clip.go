package codec

import "time"

// Clip is a fully decoded sound held in memory.
type Clip struct {
	Samples    []float32 // interleaved
	Channels   int
	SampleRate int
}

// Frames returns the number of whole frames in the clip.
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// DurationMs returns the clip length in milliseconds, or 0 when the rate
// or channel count is unknown.
func (c Clip) DurationMs() uint64 {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	return uint64(c.Frames()) * 1000 / uint64(c.SampleRate)
}

// Duration is DurationMs as a time.Duration.
func (c Clip) Duration() time.Duration {
	return time.Duration(c.DurationMs()) * time.Millisecond
}

// SampleOffset converts a millisecond position into an index into Samples,
// rounded down to a frame boundary.
func (c Clip) SampleOffset(ms uint64) int {
	if c.Channels <= 0 {
		return 0
	}
	off := ms * uint64(c.SampleRate) * uint64(c.Channels) / 1000
	off -= off % uint64(c.Channels)
	if off > uint64(len(c.Samples)) {
		return len(c.Samples)
	}
	return int(off)
}

// Trim returns the part of c between startMs (inclusive) and endMs
// (exclusive). The samples are copied. An empty selection returns
// ErrEmptyTrim.
func Trim(c Clip, startMs, endMs uint64) (Clip, error) {
	start := c.SampleOffset(startMs)
	end := c.SampleOffset(endMs)
	if end <= start {
		return Clip{}, ErrEmptyTrim
	}

	out := Clip{
		Samples:    make([]float32, end-start),
		Channels:   c.Channels,
		SampleRate: c.SampleRate,
	}
	copy(out.Samples, c.Samples[start:end])
	return out, nil
}

// Scaled returns a copy of c with every sample multiplied by gain.
func (c Clip) Scaled(gain float32) Clip {
	out := c
	out.Samples = make([]float32, len(c.Samples))
	for i, s := range c.Samples {
		out.Samples[i] = s * gain
	}
	return out
}
