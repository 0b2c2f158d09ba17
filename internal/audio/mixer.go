package audio

import (
	"time"

	"github.com/yok-tottii/deck8-soundboard/internal/ringbuf"
)

// Mixer is the pipeline's output source. Each sample it yields is the next
// captured sample times the mic volume plus the next injected sample times
// the sound volume; an empty buffer contributes silence.
type Mixer struct {
	capture *ringbuf.Consumer
	inject  *ringbuf.Consumer
	mic     *Volume
	sound   *Volume
	format  Format
}

// NewMixer creates a mixer draining capture and inject.
func NewMixer(capture, inject *ringbuf.Consumer, mic, sound *Volume, format Format) *Mixer {
	return &Mixer{capture: capture, inject: inject, mic: mic, sound: sound, format: format}
}

// Next returns exactly one output sample. It never blocks.
func (m *Mixer) Next() float32 {
	micSample, _ := m.capture.Pop()
	micVol := m.mic.Load()
	injected, _ := m.inject.Pop()
	soundVol := m.sound.Load()
	return micSample*micVol + injected*soundVol
}

// Fill writes one mixed sample into every element of out.
func (m *Mixer) Fill(out []float32) {
	for i := range out {
		out[i] = m.Next()
	}
}

// Format returns the channel count and sample rate the mixer produces.
func (m *Mixer) Format() Format { return m.format }

// Duration reports that the mixer is an endless source.
func (m *Mixer) Duration() (time.Duration, bool) { return 0, false }
