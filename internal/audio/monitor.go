package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yok-tottii/deck8-soundboard/internal/codec"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
)

// drainGrace is added to a clip's length before playback is abandoned.
const drainGrace = 2 * time.Second

// Monitor plays clips on the default output device so the user hears them
// locally. Every Play runs on its own goroutine and is never joined.
type Monitor struct {
	host   Host
	log    *logger.Logger
	active atomic.Int32
}

// NewMonitor creates a monitor playing through host.
func NewMonitor(host Host, log *logger.Logger) *Monitor {
	return &Monitor{host: host, log: log}
}

// Play starts playing clip at volume and returns immediately. Failures are
// logged only.
func (m *Monitor) Play(clip codec.Clip, volume float32) {
	m.active.Add(1)
	go func() {
		defer m.active.Add(-1)
		if err := m.PlaySync(clip, volume); err != nil {
			m.log.Warn("Local playback skipped: %v", err)
		}
	}()
}

// Active returns the number of playbacks in progress.
func (m *Monitor) Active() int { return int(m.active.Load()) }

// PlaySync plays clip at volume on the default output and waits until it
// has been handed to the device.
func (m *Monitor) PlaySync(clip codec.Clip, volume float32) error {
	if len(clip.Samples) == 0 {
		return nil
	}

	format, err := m.host.DefaultOutputFormat()
	if err != nil {
		return fmt.Errorf("no default output: %w", err)
	}
	if format.Channels < 1 || format.SampleRate < 1 {
		return fmt.Errorf("default output reports unusable format %+v", format)
	}

	samples := Convert(clip.Scaled(volume), format)
	player := &clipPlayer{samples: samples, done: make(chan struct{})}

	stream, err := m.host.OpenDefaultOutput(format, player.fill)
	if err != nil {
		return fmt.Errorf("failed to open default output: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start default output: %w", err)
	}

	select {
	case <-player.done:
	case <-time.After(clip.Duration() + drainGrace):
		m.log.Warn("Local playback timed out after %v", clip.Duration()+drainGrace)
	}
	return nil
}

// clipPlayer renders a fixed sample slice followed by silence.
type clipPlayer struct {
	samples []float32
	pos     int
	once    sync.Once
	done    chan struct{}
}

func (c *clipPlayer) fill(out []float32) {
	n := copy(out, c.samples[c.pos:])
	c.pos += n
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if c.pos >= len(c.samples) {
		c.once.Do(func() { close(c.done) })
	}
}
