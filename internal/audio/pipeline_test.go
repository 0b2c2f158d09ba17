package audio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yok-tottii/deck8-soundboard/internal/codec"
)

type recordingPlayer struct {
	mu      sync.Mutex
	clips   []codec.Clip
	volumes []float32
}

func (r *recordingPlayer) Play(clip codec.Clip, volume float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips = append(r.clips, clip)
	r.volumes = append(r.volumes, volume)
}

func writeClip(t *testing.T, clip codec.Clip) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create clip: %v", err)
	}
	defer f.Close()
	if err := codec.WriteFloatWAV(f, clip); err != nil {
		t.Fatalf("WriteFloatWAV() error = %v", err)
	}
	return path
}

func defaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		InputDevice:  "Built-in Microphone",
		OutputDevice: "CABLE Input (VB-Audio Virtual Cable)",
		MicVolume:    1,
		SoundVolume:  1,
	}
}

func TestStartPipeline_DeviceNotFound(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
	}{
		{"unknown input", func(c *PipelineConfig) { c.InputDevice = "Gone" }},
		{"unknown output", func(c *PipelineConfig) { c.OutputDevice = "Gone" }},
		{"output used as input", func(c *PipelineConfig) { c.InputDevice = "Speakers" }},
		{"input used as output", func(c *PipelineConfig) { c.OutputDevice = "Built-in Microphone" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			cfg := defaultPipelineConfig()
			tt.mutate(&cfg)

			p, err := StartPipeline(host, cfg, Options{})
			if !errors.Is(err, ErrDeviceNotFound) {
				t.Fatalf("StartPipeline() error = %v, want ErrDeviceNotFound", err)
			}
			if p != nil {
				t.Error("expected nil pipeline on error")
			}
			if len(host.inputs)+len(host.outputs) != 0 {
				t.Error("no stream may be opened when a device is missing")
			}
		})
	}
}

func TestStartPipeline_UsesInputFormat(t *testing.T) {
	host := newFakeHost()
	host.inputFormat = Format{Channels: 1, SampleRate: 16000}

	p, err := StartPipeline(host, defaultPipelineConfig(), Options{})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	if p.Format() != host.inputFormat {
		t.Errorf("Format() = %+v, want %+v", p.Format(), host.inputFormat)
	}
	if got := host.outputs[0].format; got != host.inputFormat {
		t.Errorf("output opened with %+v, want %+v", got, host.inputFormat)
	}
	if !host.inputs[0].started || !host.outputs[0].started {
		t.Error("both streams should be started")
	}

	// Buffers hold 1 s of capture and 30 s of injection.
	if c := p.capture.Cap(); c != 16000 {
		t.Errorf("capture capacity = %d, want 16000", c)
	}
	if c := p.inject.Cap(); c != 16000*30 {
		t.Errorf("inject capacity = %d, want %d", c, 16000*30)
	}
}

func TestPipeline_CaptureFlowsToOutput(t *testing.T) {
	host := newFakeHost()
	host.inputFormat = Format{Channels: 1, SampleRate: 8000}

	cfg := defaultPipelineConfig()
	cfg.MicVolume = 0.5
	p, err := StartPipeline(host, cfg, Options{})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	host.capture([]float32{0.5, 1}, false)
	host.capture([]float32{-1}, true)

	out := make([]float32, 4)
	host.render(out)

	want := []float32{0.25, 0.5, -0.5, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	if s := p.Stats(); s.HostOverflows != 1 {
		t.Errorf("HostOverflows = %d, want 1", s.HostOverflows)
	}
}

func TestPipeline_CaptureOverflowDrops(t *testing.T) {
	host := newFakeHost()
	host.inputFormat = Format{Channels: 1, SampleRate: 100}

	p, err := StartPipeline(host, defaultPipelineConfig(), Options{})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	host.capture(make([]float32, 250), false)

	s := p.Stats()
	if s.CaptureQueued != 100 || s.CaptureDropped != 150 {
		t.Errorf("Stats() = %+v, want 100 queued and 150 dropped", s)
	}

	// Draining restores normal operation.
	host.render(make([]float32, 100))
	host.capture([]float32{1}, false)
	out := make([]float32, 1)
	host.render(out)
	if out[0] != 1 {
		t.Errorf("sample after overflow = %v, want 1", out[0])
	}
}

func TestPipeline_PlaySoundInjectsConvertedSamples(t *testing.T) {
	host := newFakeHost()
	host.inputFormat = Format{Channels: 2, SampleRate: 48000}

	// 500 ms of mono 8 kHz.
	clip := codec.Clip{Samples: make([]float32, 4000), Channels: 1, SampleRate: 8000}
	for i := range clip.Samples {
		clip.Samples[i] = 0.25
	}
	path := writeClip(t, clip)

	monitor := &recordingPlayer{}
	cfg := defaultPipelineConfig()
	cfg.SoundVolume = 0.5
	p, err := StartPipeline(host, cfg, Options{Monitor: monitor})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	if err := p.PlaySound(path); err != nil {
		t.Fatalf("PlaySound() error = %v", err)
	}

	if got := p.Stats().InjectQueued; got != 48000 {
		t.Errorf("InjectQueued = %d, want 48000", got)
	}

	out := make([]float32, 2)
	host.render(out)
	if out[0] != 0.125 || out[1] != 0.125 {
		t.Errorf("mixed output = %v, want [0.125 0.125]", out)
	}

	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	if len(monitor.clips) != 1 {
		t.Fatalf("monitor played %d clips, want 1", len(monitor.clips))
	}
	if monitor.clips[0].Channels != 1 || monitor.clips[0].SampleRate != 8000 {
		t.Error("monitor must receive the original decoded clip")
	}
	if monitor.volumes[0] != 0.5 {
		t.Errorf("monitor volume = %v, want 0.5", monitor.volumes[0])
	}
}

func TestPipeline_PlaySoundDecodeError(t *testing.T) {
	host := newFakeHost()
	monitor := &recordingPlayer{}

	p, err := StartPipeline(host, defaultPipelineConfig(), Options{Monitor: monitor})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	bad := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(bad, []byte("not audio"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := p.PlaySound(bad); !errors.Is(err, codec.ErrDecode) {
		t.Errorf("PlaySound() error = %v, want ErrDecode", err)
	}
	if q := p.Stats().InjectQueued; q != 0 {
		t.Errorf("InjectQueued = %d after failed decode, want 0", q)
	}
	if len(monitor.clips) != 0 {
		t.Error("monitor must not play a clip that failed to decode")
	}
}

func TestPipeline_InjectOverflowIsNotAnError(t *testing.T) {
	host := newFakeHost()
	host.inputFormat = Format{Channels: 1, SampleRate: 10}

	clip := codec.Clip{Samples: make([]float32, 500), Channels: 1, SampleRate: 10}
	p, err := StartPipeline(host, defaultPipelineConfig(), Options{
		Decode: func(string) (codec.Clip, error) { return clip, nil },
	})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	if err := p.PlaySound("long.wav"); err != nil {
		t.Fatalf("PlaySound() error = %v", err)
	}
	s := p.Stats()
	if s.InjectQueued != 300 || s.InjectDropped != 200 {
		t.Errorf("Stats() = %+v, want 300 queued and 200 dropped", s)
	}
}

func TestPipeline_ConcurrentPlaySound(t *testing.T) {
	host := newFakeHost()
	host.inputFormat = Format{Channels: 1, SampleRate: 1000}

	clip := codec.Clip{Samples: make([]float32, 100), Channels: 1, SampleRate: 1000}
	p, err := StartPipeline(host, defaultPipelineConfig(), Options{
		Decode: func(string) (codec.Clip, error) { return clip, nil },
	})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.PlaySound("clip.wav"); err != nil {
				t.Errorf("PlaySound() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if q := p.Stats().InjectQueued; q != 2000 {
		t.Errorf("InjectQueued = %d, want 2000", q)
	}
}

func TestPipeline_VolumeSetters(t *testing.T) {
	p, err := StartPipeline(newFakeHost(), defaultPipelineConfig(), Options{})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}
	defer p.Close()

	p.SetMicVolume(0.3)
	p.SetSoundVolume(1.7)
	if p.MicVolume() != 0.3 || p.SoundVolume() != 1.7 {
		t.Errorf("volumes = %v/%v, want 0.3/1.7", p.MicVolume(), p.SoundVolume())
	}
}

func TestPipeline_CloseIsIdempotent(t *testing.T) {
	host := newFakeHost()
	p, err := StartPipeline(host, defaultPipelineConfig(), Options{})
	if err != nil {
		t.Fatalf("StartPipeline() error = %v", err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if n := host.openStreams(); n != 0 {
		t.Errorf("%d streams still open after Close", n)
	}
}

func TestStartPipeline_StartFailureReleasesStreams(t *testing.T) {
	host := &failingStartHost{fakeHost: newFakeHost()}

	if _, err := StartPipeline(host, defaultPipelineConfig(), Options{}); err == nil {
		t.Fatal("StartPipeline() succeeded with a failing output stream")
	}
	if n := host.openStreams(); n != 0 {
		t.Errorf("%d streams left open after failed start", n)
	}
}

// failingStartHost opens output streams that refuse to start.
type failingStartHost struct {
	*fakeHost
}

func (h *failingStartHost) OpenOutput(name string, f Format, fn RenderFunc) (Stream, error) {
	s, err := h.fakeHost.OpenOutput(name, f, fn)
	if err != nil {
		return nil, err
	}
	s.(*fakeStream).startErr = errors.New("device busy")
	return s, nil
}

// rejectingOutputHost fails every playback open the way PortAudio does
// for an unsupported layout.
type rejectingOutputHost struct {
	*fakeHost
}

var errInvalidChannels = errors.New("invalid number of channels")

func (h *rejectingOutputHost) OpenOutput(string, Format, RenderFunc) (Stream, error) {
	return nil, errInvalidChannels
}

func TestStartPipeline_OutputOpenFailureReportsFormats(t *testing.T) {
	host := &rejectingOutputHost{fakeHost: newFakeHost()}
	host.devices = append(host.devices, Device{Name: "Mono Cable", MaxOutputChannels: 1, DefaultSampleRate: 44100})

	cfg := defaultPipelineConfig()
	cfg.OutputDevice = "Mono Cable"

	p, err := StartPipeline(host, cfg, Options{})
	if !errors.Is(err, errInvalidChannels) {
		t.Fatalf("StartPipeline() error = %v, want wrapped host error", err)
	}
	if p != nil {
		t.Error("expected nil pipeline on error")
	}
	for _, want := range []string{`"Mono Cable"`, "1 ch max", "44100 Hz default", "2 ch @ 48000 Hz"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if n := host.openStreams(); n != 0 {
		t.Errorf("%d streams left open after failed open", n)
	}
}
