// Package soundboard coordinates the persisted configuration, the sound
// library and the audio pipeline behind one command surface.
package soundboard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yok-tottii/deck8-soundboard/internal/audio"
	"github.com/yok-tottii/deck8-soundboard/internal/config"
	"github.com/yok-tottii/deck8-soundboard/internal/library"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
)

var (
	// ErrNoSound is returned when a triggered key has no sound assigned.
	ErrNoSound = errors.New("soundboard: no sound assigned")
	// ErrDevicesNotSet is returned by StartPipeline before both devices are chosen.
	ErrDevicesNotSet = errors.New("soundboard: input and output devices must be set")
	// ErrInvalidVolume is returned for gains outside [0, 2].
	ErrInvalidVolume = errors.New("soundboard: volume out of range")
)

// Engine runs the audio pipeline. *audio.Manager implements it.
type Engine interface {
	ListDevices() (audio.DeviceList, error)
	Start(config audio.PipelineConfig) error
	Stop() error
	Running() bool
	Status() audio.Status
	PlaySound(path string) error
	SetMicVolume(v float32)
	SetSoundVolume(v float32)
}

// StateFunc is told whenever the pipeline starts or stops.
type StateFunc func(running bool)

// Board is the command surface used by the HTTP API, the tray menu and the
// key dispatcher.
type Board struct {
	cfg     *config.Config
	cfgPath string
	store   *library.Store
	engine  Engine
	log     *logger.Logger

	// pipelineMu serializes pipeline restarts.
	pipelineMu sync.Mutex
	onState    StateFunc
}

// New creates a board. cfgPath may be empty to disable persistence.
func New(cfg *config.Config, cfgPath string, store *library.Store, engine Engine, log *logger.Logger) *Board {
	return &Board{cfg: cfg, cfgPath: cfgPath, store: store, engine: engine, log: log}
}

// OnStateChange registers fn to be called after pipeline starts and stops.
func (b *Board) OnStateChange(fn StateFunc) {
	b.pipelineMu.Lock()
	defer b.pipelineMu.Unlock()
	b.onState = fn
}

// Config returns the live configuration.
func (b *Board) Config() *config.Config { return b.cfg }

// SaveConfig writes the configuration to disk.
func (b *Board) SaveConfig() error {
	if b.cfgPath == "" {
		return nil
	}
	return b.cfg.Save(b.cfgPath)
}

// persist saves the configuration. Failures are logged only.
func (b *Board) persist() {
	if err := b.SaveConfig(); err != nil {
		b.log.Error("Failed to save config: %v", err)
	}
}

func (b *Board) notify(running bool) {
	if b.onState != nil {
		b.onState(running)
	}
}

// ListDevices returns the names of the capture and playback devices.
func (b *Board) ListDevices() (audio.DeviceList, error) {
	return b.engine.ListDevices()
}

// SetInputDevice records the capture device and restarts the pipeline
// when auto-start conditions hold.
func (b *Board) SetInputDevice(name string) {
	b.cfg.SetInputDevice(name)
	b.persist()
	b.AutoStart()
}

// SetOutputDevice records the playback device and restarts the pipeline
// when auto-start conditions hold.
func (b *Board) SetOutputDevice(name string) {
	b.cfg.SetOutputDevice(name)
	b.persist()
	b.AutoStart()
}

// AutoStart stops any running pipeline and starts a new one when both
// devices are set and the output looks like a virtual cable. It reports
// whether a pipeline is running afterwards.
func (b *Board) AutoStart() bool {
	b.pipelineMu.Lock()
	defer b.pipelineMu.Unlock()

	if b.engine.Running() {
		if err := b.engine.Stop(); err != nil {
			b.log.Warn("Pipeline did not stop cleanly: %v", err)
		}
		b.log.Info("Pipeline stopped (restart)")
		b.notify(false)
	}

	input, output := b.cfg.Devices()
	if input == "" || output == "" {
		return false
	}
	if !audio.IsVirtualCable(output) {
		b.log.Info("Skipping pipeline auto-start: output %q is not a virtual cable", output)
		return false
	}

	if err := b.startLocked(input, output); err != nil {
		b.log.Warn("Auto-start pipeline failed: %v", err)
		return false
	}
	return true
}

// StartPipeline starts the pipeline on the configured devices, replacing a
// running one. Unlike AutoStart any output device is accepted.
func (b *Board) StartPipeline() error {
	b.pipelineMu.Lock()
	defer b.pipelineMu.Unlock()

	input, output := b.cfg.Devices()
	if input == "" || output == "" {
		return ErrDevicesNotSet
	}
	if !audio.IsVirtualCable(output) {
		b.log.Warn("Output %q is not a virtual cable, the microphone will be audible locally", output)
	}
	return b.startLocked(input, output)
}

func (b *Board) startLocked(input, output string) error {
	mic, sound := b.cfg.Volumes()
	err := b.engine.Start(audio.PipelineConfig{
		InputDevice:  input,
		OutputDevice: output,
		MicVolume:    mic,
		SoundVolume:  sound,
	})
	if err != nil {
		b.notify(false)
		return err
	}

	b.log.Info("Pipeline started: %s -> %s", input, output)
	b.cfg.SetEnabled(true)
	b.persist()
	b.notify(true)
	return nil
}

// StopPipeline stops the pipeline. Stopping an idle board is a no-op.
func (b *Board) StopPipeline() error {
	b.pipelineMu.Lock()
	defer b.pipelineMu.Unlock()

	wasRunning := b.engine.Running()
	err := b.engine.Stop()

	b.cfg.SetEnabled(false)
	b.persist()
	if wasRunning {
		b.log.Info("Pipeline stopped")
		b.notify(false)
	}
	return err
}

// Status returns a snapshot of the pipeline.
func (b *Board) Status() audio.Status {
	return b.engine.Status()
}

// Library returns the sound library and the sound id of every key.
func (b *Board) Library() ([]library.Entry, [config.KeyCount]string) {
	return b.cfg.Library(), b.cfg.KeyAssignments()
}

// AddSound imports source unchanged.
func (b *Board) AddSound(source, displayName string) (library.Entry, error) {
	entry, err := b.store.Import(source, displayName)
	if err != nil {
		return library.Entry{}, err
	}
	b.cfg.AddSound(entry)
	b.persist()
	return entry, nil
}

// AddSoundTrimmed imports [startMs, endMs) of source as a float WAV.
func (b *Board) AddSoundTrimmed(source, displayName string, startMs, endMs uint64) (library.Entry, error) {
	entry, err := b.store.ImportTrimmed(source, displayName, startMs, endMs)
	if err != nil {
		return library.Entry{}, err
	}
	b.cfg.AddSound(entry)
	b.persist()
	return entry, nil
}

// RemoveSound drops a sound, its file and every key assignment to it.
func (b *Board) RemoveSound(id string) error {
	entry, err := b.cfg.RemoveSound(id)
	if err != nil {
		return err
	}
	if err := b.store.Delete(entry.Filename); err != nil {
		b.log.Warn("Failed to delete %s: %v", entry.Filename, err)
	}
	b.persist()
	return nil
}

// RenameSound changes a display name. Ids and files are untouched.
func (b *Board) RenameSound(id, name string) error {
	if err := b.cfg.RenameSound(id, name); err != nil {
		return err
	}
	b.persist()
	return nil
}

// SetKeySound assigns a sound to key. An empty id clears the key.
func (b *Board) SetKeySound(key int, id string) error {
	if err := b.cfg.SetKeySound(key, id); err != nil {
		return err
	}
	b.persist()
	return nil
}

// TriggerKey plays the sound assigned to key.
func (b *Board) TriggerKey(key int) error {
	if key < 0 || key >= config.KeyCount {
		return fmt.Errorf("%w: %d", config.ErrInvalidKey, key)
	}
	entry, ok := b.cfg.KeySound(key)
	if !ok {
		return fmt.Errorf("%w: key %d", ErrNoSound, key+1)
	}
	b.log.Info("Key %d: %s", key+1, entry.DisplayName)
	return b.play(entry)
}

// PreviewSound plays a library sound by id.
func (b *Board) PreviewSound(id string) error {
	entry, ok := b.cfg.FindSound(id)
	if !ok {
		return fmt.Errorf("%w: %s", config.ErrSoundNotFound, id)
	}
	return b.play(entry)
}

func (b *Board) play(entry library.Entry) error {
	path, err := b.store.Path(entry.Filename)
	if err != nil {
		return err
	}
	return b.engine.PlaySound(path)
}

// SetMicVolume sets the microphone gain, live and persisted.
func (b *Board) SetMicVolume(v float32) error {
	if !validVolume(v) {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, v)
	}
	b.cfg.SetMicVolume(v)
	b.persist()
	b.engine.SetMicVolume(v)
	return nil
}

// SetSoundVolume sets the injected-sound gain, live and persisted.
func (b *Board) SetSoundVolume(v float32) error {
	if !validVolume(v) {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, v)
	}
	b.cfg.SetSoundVolume(v)
	b.persist()
	b.engine.SetSoundVolume(v)
	return nil
}

func validVolume(v float32) bool {
	return v >= 0 && v <= 2
}

// Duration returns the length of an arbitrary audio file in milliseconds.
func (b *Board) Duration(path string) (uint64, error) {
	return b.store.Duration(path)
}

// PreviewTrim plays [startMs, endMs) of an arbitrary file locally at the
// current sound volume.
func (b *Board) PreviewTrim(path string, startMs, endMs uint64) error {
	_, sound := b.cfg.Volumes()
	return b.store.PreviewTrim(path, startMs, endMs, sound)
}

// Close stops the pipeline without touching the persisted enabled flag.
func (b *Board) Close() error {
	b.pipelineMu.Lock()
	defer b.pipelineMu.Unlock()
	return b.engine.Stop()
}
