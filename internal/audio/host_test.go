package audio

import (
	"errors"
	"sync"
	"time"
)

// fakeStream records its lifecycle. Streams opened on the default output
// render in the background while started, like a real device would.
type fakeStream struct {
	mu      sync.Mutex
	started bool
	closed  bool
	render  RenderFunc
	format  Format
	stop    chan struct{}
	stopped chan struct{}

	startErr error
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	if s.render != nil {
		s.stop = make(chan struct{})
		s.stopped = make(chan struct{})
		go s.loop()
	}
	return nil
}

func (s *fakeStream) loop() {
	defer close(s.stopped)
	buf := make([]float32, 64*s.format.Channels)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		s.render(buf)
		time.Sleep(time.Millisecond)
	}
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stop != nil {
		close(s.stop)
		<-s.stopped
	}
	return nil
}

func (s *fakeStream) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// fakeHost is an in-memory Host.
type fakeHost struct {
	mu            sync.Mutex
	devices       []Device
	inputFormat   Format
	defaultOutput Format
	defaultErr    error

	capture  CaptureFunc
	render   RenderFunc
	inputs   []*fakeStream
	outputs  []*fakeStream
	defaults []*fakeStream

	// rendered collects everything pulled from default-output streams.
	rendered []float32
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		devices: []Device{
			{Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
			{Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
			{Name: "CABLE Input (VB-Audio Virtual Cable)", MaxOutputChannels: 2, DefaultSampleRate: 48000},
			{Name: "USB Headset", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
		},
		inputFormat:   Format{Channels: 2, SampleRate: 48000},
		defaultOutput: Format{Channels: 2, SampleRate: 48000},
	}
}

func (h *fakeHost) Devices() ([]Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Device(nil), h.devices...), nil
}

func (h *fakeHost) InputFormat(name string) (Format, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := FindDevice(h.devices, name, true); !ok {
		return Format{}, ErrDeviceNotFound
	}
	return h.inputFormat, nil
}

func (h *fakeHost) OpenInput(name string, f Format, fn CaptureFunc) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := FindDevice(h.devices, name, true); !ok {
		return nil, ErrDeviceNotFound
	}
	s := &fakeStream{format: f}
	h.capture = fn
	h.inputs = append(h.inputs, s)
	return s, nil
}

func (h *fakeHost) OpenOutput(name string, f Format, fn RenderFunc) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := FindDevice(h.devices, name, false); !ok {
		return nil, ErrDeviceNotFound
	}
	s := &fakeStream{format: f}
	h.render = fn
	h.outputs = append(h.outputs, s)
	return s, nil
}

func (h *fakeHost) DefaultOutputFormat() (Format, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.defaultOutput, h.defaultErr
}

func (h *fakeHost) OpenDefaultOutput(f Format, fn RenderFunc) (Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.defaultErr != nil {
		return nil, h.defaultErr
	}
	s := &fakeStream{format: f}
	s.render = func(out []float32) {
		fn(out)
		h.mu.Lock()
		h.rendered = append(h.rendered, out...)
		h.mu.Unlock()
	}
	h.defaults = append(h.defaults, s)
	return s, nil
}

func (h *fakeHost) openStreams() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range append(append([]*fakeStream{}, h.inputs...), h.outputs...) {
		if s.isOpen() {
			n++
		}
	}
	return n
}

var errNoDevice = errors.New("no default device")
