package audio

import (
	"fmt"
	"sync"

	"github.com/yok-tottii/deck8-soundboard/internal/codec"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
)

// Status describes the manager's pipeline slot.
type Status struct {
	Running      bool    `json:"running"`
	InputDevice  string  `json:"input_device,omitempty"`
	OutputDevice string  `json:"output_device,omitempty"`
	Format       Format  `json:"format"`
	MicVolume    float32 `json:"mic_volume"`
	SoundVolume  float32 `json:"sound_volume"`
	Stats        Stats   `json:"stats"`
}

// Manager owns at most one Pipeline. Starting a pipeline always closes the
// previous one first, so two pipelines never hold a device at once.
type Manager struct {
	host    Host
	monitor *Monitor
	decode  func(string) (codec.Clip, error)
	log     *logger.Logger

	mu          sync.Mutex
	current     *Pipeline
	micVolume   float32
	soundVolume float32
}

// NewManager creates a manager with no running pipeline.
func NewManager(host Host, log *logger.Logger) *Manager {
	return &Manager{
		host:        host,
		monitor:     NewMonitor(host, log),
		decode:      codec.DecodeFile,
		log:         log,
		micVolume:   1,
		soundVolume: 1,
	}
}

// Monitor returns the local playback monitor.
func (m *Manager) Monitor() *Monitor { return m.monitor }

// ListDevices returns the host's input and output device names.
func (m *Manager) ListDevices() (DeviceList, error) {
	return ListDevices(m.host)
}

// Start replaces the running pipeline, if any, with a new one.
func (m *Manager) Start(config PipelineConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.stopLocked(); err != nil {
		m.log.Warn("Previous pipeline did not close cleanly: %v", err)
	}

	p, err := StartPipeline(m.host, config, Options{
		Decode:  m.decode,
		Monitor: m.monitor,
		Logger:  m.log,
	})
	if err != nil {
		return err
	}

	m.current = p
	m.micVolume = config.MicVolume
	m.soundVolume = config.SoundVolume
	return nil
}

// Stop closes the running pipeline. Stopping an idle manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// Running reports whether a pipeline is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Status returns a snapshot of the slot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{MicVolume: m.micVolume, SoundVolume: m.soundVolume}
	if p := m.current; p != nil {
		s.Running = true
		s.InputDevice = p.config.InputDevice
		s.OutputDevice = p.config.OutputDevice
		s.Format = p.format
		s.Stats = p.Stats()
	}
	return s
}

// PlaySound injects the file into the running pipeline. Without a pipeline
// the whole clip is only played locally.
func (m *Manager) PlaySound(path string) error {
	m.mu.Lock()
	p := m.current
	volume := m.soundVolume
	m.mu.Unlock()

	if p != nil {
		return p.PlaySound(path)
	}

	clip, err := m.decode(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	m.monitor.Play(clip, volume)
	return nil
}

// SetMicVolume sets the microphone gain, live if a pipeline is running.
func (m *Manager) SetMicVolume(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.micVolume = v
	if m.current != nil {
		m.current.SetMicVolume(v)
	}
}

// SetSoundVolume sets the injected-sound gain, live if a pipeline is running.
func (m *Manager) SetSoundVolume(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.soundVolume = v
	if m.current != nil {
		m.current.SetSoundVolume(v)
	}
}

// Close stops any running pipeline.
func (m *Manager) Close() error {
	return m.Stop()
}
