package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yok-tottii/deck8-soundboard/internal/codec"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
	"github.com/yok-tottii/deck8-soundboard/internal/ringbuf"
)

const (
	captureSeconds = 1
	injectSeconds  = 30
	statsInterval  = 5 * time.Second
)

// Player plays a decoded clip somewhere other than the pipeline.
type Player interface {
	Play(clip codec.Clip, volume float32)
}

// Options carries the collaborators of a pipeline. Zero values are valid.
type Options struct {
	// Decode loads a sound file. Defaults to codec.DecodeFile.
	Decode func(path string) (codec.Clip, error)
	// Monitor plays every injected clip locally as well.
	Monitor Player
	Logger  *logger.Logger
}

// Stats is a snapshot of the pipeline's buffer counters.
type Stats struct {
	CaptureQueued  int    `json:"capture_queued"`
	CaptureDropped uint64 `json:"capture_dropped"`
	InjectQueued   int    `json:"inject_queued"`
	InjectDropped  uint64 `json:"inject_dropped"`
	HostOverflows  uint64 `json:"host_overflows"`
}

// Pipeline captures one input device, mixes injected sounds into it and
// plays the result on one output device.
type Pipeline struct {
	config PipelineConfig
	format Format

	input  Stream
	output Stream

	capture *ringbuf.Producer

	injectMu sync.Mutex
	inject   *ringbuf.Producer

	mixer       *Mixer
	micVolume   *Volume
	soundVolume *Volume

	hostOverflows atomic.Uint64

	decode  func(string) (codec.Clip, error)
	monitor Player
	log     *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// StartPipeline opens both devices and starts the streams. The pipeline
// format is the native format of the input device.
func StartPipeline(host Host, config PipelineConfig, opts Options) (*Pipeline, error) {
	devices, err := host.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if _, ok := FindDevice(devices, config.InputDevice, true); !ok {
		return nil, fmt.Errorf("%w: input %q", ErrDeviceNotFound, config.InputDevice)
	}
	outDev, ok := FindDevice(devices, config.OutputDevice, false)
	if !ok {
		return nil, fmt.Errorf("%w: output %q", ErrDeviceNotFound, config.OutputDevice)
	}

	format, err := host.InputFormat(config.InputDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to read input format: %w", err)
	}
	if format.Channels < 1 || format.SampleRate < 1 {
		return nil, fmt.Errorf("input %q reports unusable format %+v", config.InputDevice, format)
	}

	p := newPipeline(config, format, opts)

	p.input, err = host.OpenInput(config.InputDevice, format, p.onCapture)
	if err != nil {
		return nil, err
	}
	p.output, err = host.OpenOutput(config.OutputDevice, format, p.mixer.Fill)
	if err != nil {
		p.input.Close()
		// The output runs in the input's format without conversion.
		err = fmt.Errorf("output %q (%d ch max, %d Hz default) cannot play %d ch @ %d Hz from %q: %w",
			config.OutputDevice, outDev.MaxOutputChannels, int(outDev.DefaultSampleRate),
			format.Channels, format.SampleRate, config.InputDevice, err)
		p.log.Error("Failed to open playback stream: %v", err)
		return nil, err
	}

	if err := p.input.Start(); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}
	if err := p.output.Start(); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start playback: %w", err)
	}

	go p.reportStats()

	p.log.Info("Pipeline started: %q -> %q (%d ch @ %d Hz)",
		config.InputDevice, config.OutputDevice, format.Channels, format.SampleRate)
	return p, nil
}

func newPipeline(config PipelineConfig, format Format, opts Options) *Pipeline {
	perSecond := format.SampleRate * format.Channels
	capProd, capCons := ringbuf.New(perSecond * captureSeconds)
	injProd, injCons := ringbuf.New(perSecond * injectSeconds)

	p := &Pipeline{
		config:      config,
		format:      format,
		capture:     capProd,
		inject:      injProd,
		micVolume:   NewVolume(config.MicVolume),
		soundVolume: NewVolume(config.SoundVolume),
		decode:      opts.Decode,
		monitor:     opts.Monitor,
		log:         opts.Logger,
		done:        make(chan struct{}),
	}
	if p.decode == nil {
		p.decode = codec.DecodeFile
	}
	p.mixer = NewMixer(capCons, injCons, p.micVolume, p.soundVolume, format)
	return p
}

// onCapture runs on the host input thread: no locks, no allocation, no I/O.
func (p *Pipeline) onCapture(in []float32, overflowed bool) {
	if overflowed {
		p.hostOverflows.Add(1)
	}
	p.capture.PushSlice(in)
}

// reportStats logs buffer drops from outside the audio threads.
func (p *Pipeline) reportStats() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	var last Stats
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			s := p.Stats()
			if s.CaptureDropped > last.CaptureDropped || s.HostOverflows > last.HostOverflows {
				p.log.Warn("Capture falling behind: %d samples dropped, %d host overflows",
					s.CaptureDropped-last.CaptureDropped, s.HostOverflows-last.HostOverflows)
			}
			last = s
		}
	}
}

// PlaySound decodes the file at path, converts it to the pipeline format
// and queues it for mixing. It returns once the samples are queued.
func (p *Pipeline) PlaySound(path string) error {
	clip, err := p.decode(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	samples := Convert(clip, p.format)
	if n := p.Inject(samples); n < len(samples) {
		p.log.Warn("Injection buffer full, dropped %d of %d samples from %s", len(samples)-n, len(samples), path)
	}

	if p.monitor != nil {
		p.monitor.Play(clip, p.soundVolume.Load())
	}
	return nil
}

// Inject queues samples already in the pipeline format and returns how
// many fit. Concurrent callers are serialized.
func (p *Pipeline) Inject(samples []float32) int {
	p.injectMu.Lock()
	defer p.injectMu.Unlock()
	return p.inject.PushSlice(samples)
}

// SetMicVolume changes the microphone gain without interrupting playback.
func (p *Pipeline) SetMicVolume(v float32) { p.micVolume.Store(v) }

// SetSoundVolume changes the injected-sound gain without interrupting playback.
func (p *Pipeline) SetSoundVolume(v float32) { p.soundVolume.Store(v) }

// MicVolume returns the current microphone gain.
func (p *Pipeline) MicVolume() float32 { return p.micVolume.Load() }

// SoundVolume returns the current injected-sound gain.
func (p *Pipeline) SoundVolume() float32 { return p.soundVolume.Load() }

// Format returns the fixed format of the pipeline.
func (p *Pipeline) Format() Format { return p.format }

// Config returns the configuration the pipeline was started with.
func (p *Pipeline) Config() PipelineConfig { return p.config }

// Stats returns the current buffer counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		CaptureQueued:  p.capture.Len(),
		CaptureDropped: p.capture.Dropped(),
		InjectQueued:   p.inject.Len(),
		InjectDropped:  p.inject.Dropped(),
		HostOverflows:  p.hostOverflows.Load(),
	}
}

// Close stops and releases both streams. It is safe to call more than once
// and after a stream has failed.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)

		var errs []error
		if p.input != nil {
			if err := p.input.Close(); err != nil {
				errs = append(errs, fmt.Errorf("input: %w", err))
			}
		}
		if p.output != nil {
			if err := p.output.Close(); err != nil {
				errs = append(errs, fmt.Errorf("output: %w", err))
			}
		}
		p.closeErr = errors.Join(errs...)

		if p.closeErr != nil {
			p.log.Warn("Pipeline closed with errors: %v", p.closeErr)
		} else {
			p.log.Info("Pipeline stopped: %q -> %q", p.config.InputDevice, p.config.OutputDevice)
		}
	})
	return p.closeErr
}
