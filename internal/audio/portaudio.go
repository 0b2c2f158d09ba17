package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 512

// PortAudioHost implements Host using PortAudio
type PortAudioHost struct {
	latency LatencyMode

	mu     sync.Mutex
	closed bool
}

// NewPortAudioHost initializes PortAudio.
func NewPortAudioHost(latency LatencyMode) (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioHost{latency: latency}, nil
}

func (h *PortAudioHost) check() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHostClosed
	}
	return nil
}

// Devices returns every PortAudio device.
func (h *PortAudioHost) Devices() ([]Device, error) {
	if err := h.check(); err != nil {
		return nil, err
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	for _, dev := range devices {
		result = append(result, Device{
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
		})
	}
	return result, nil
}

func (h *PortAudioHost) lookup(name string, input bool) (*portaudio.DeviceInfo, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name != name {
			continue
		}
		if input && dev.MaxInputChannels > 0 || !input && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

func (h *PortAudioHost) latencyFor(dev *portaudio.DeviceInfo, input bool) time.Duration {
	switch {
	case input && h.latency == LowLatency:
		return dev.DefaultLowInputLatency
	case input:
		return dev.DefaultHighInputLatency
	case h.latency == LowLatency:
		return dev.DefaultLowOutputLatency
	default:
		return dev.DefaultHighOutputLatency
	}
}

// InputFormat reports the device's default rate and up to two channels.
func (h *PortAudioHost) InputFormat(name string) (Format, error) {
	dev, err := h.lookup(name, true)
	if err != nil {
		return Format{}, err
	}
	return Format{Channels: nativeChannels(dev.MaxInputChannels), SampleRate: int(dev.DefaultSampleRate)}, nil
}

// OpenInput opens a capture stream delivering float32 samples to fn.
func (h *PortAudioHost) OpenInput(name string, f Format, fn CaptureFunc) (Stream, error) {
	dev, err := h.lookup(name, true)
	if err != nil {
		return nil, err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: f.Channels,
			Latency:  h.latencyFor(dev, true),
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	callback := func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		fn(in, flags&portaudio.InputOverflow != 0)
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %q: %w", name, err)
	}
	return &paStream{stream: stream}, nil
}

// OpenOutput opens a playback stream on the named device.
func (h *PortAudioHost) OpenOutput(name string, f Format, fn RenderFunc) (Stream, error) {
	dev, err := h.lookup(name, false)
	if err != nil {
		return nil, err
	}
	return h.openOutput(dev, f, fn)
}

// DefaultOutputFormat reports the default playback device's format.
func (h *PortAudioHost) DefaultOutputFormat() (Format, error) {
	if err := h.check(); err != nil {
		return Format{}, err
	}
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return Format{}, fmt.Errorf("failed to get default output device: %w", err)
	}
	return Format{Channels: nativeChannels(dev.MaxOutputChannels), SampleRate: int(dev.DefaultSampleRate)}, nil
}

// OpenDefaultOutput opens a playback stream on the default device.
func (h *PortAudioHost) OpenDefaultOutput(f Format, fn RenderFunc) (Stream, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to get default output device: %w", err)
	}
	return h.openOutput(dev, f, fn)
}

func (h *PortAudioHost) openOutput(dev *portaudio.DeviceInfo, f Format, fn RenderFunc) (Stream, error) {
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: f.Channels,
			Latency:  h.latencyFor(dev, false),
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	stream, err := portaudio.OpenStream(params, func(out []float32) { fn(out) })
	if err != nil {
		return nil, fmt.Errorf("failed to open output stream on %q: %w", dev.Name, err)
	}
	return &paStream{stream: stream}, nil
}

// Close terminates PortAudio. Streams must be closed first.
func (h *PortAudioHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paStream adapts *portaudio.Stream to Stream.
type paStream struct {
	stream  *portaudio.Stream
	mu      sync.Mutex
	started bool
	closed  bool
}

func (s *paStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("stream closed")
	}
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	s.started = true
	return nil
}

func (s *paStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var stopErr error
	if s.started {
		// Stop drains queued output buffers before returning.
		stopErr = s.stream.Stop()
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("failed to stop stream: %w", stopErr)
	}
	return nil
}
