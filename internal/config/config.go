package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yok-tottii/deck8-soundboard/internal/library"
)

// KeyCount is the number of keys on the pad.
const KeyCount = 8

var (
	// ErrSoundNotFound is returned for an unknown sound id.
	ErrSoundNotFound = errors.New("config: sound not found")
	// ErrInvalidKey is returned for a key index outside [0, KeyCount).
	ErrInvalidKey = errors.New("config: invalid key index")
)

// Config holds the persisted soundboard state
type Config struct {
	SoundLibrary []library.Entry `json:"sound_library"`
	// KeySounds holds a sound id per key; "" leaves the key silent.
	KeySounds   [KeyCount]string       `json:"key_sounds"`
	KeyBindings [KeyCount]HotkeyConfig `json:"key_bindings"`

	AudioInputDevice  string  `json:"audio_input_device"`
	AudioOutputDevice string  `json:"audio_output_device"`
	MicVolume         float32 `json:"mic_volume"`
	SoundVolume       float32 `json:"sound_volume"`
	SoundboardEnabled bool    `json:"soundboard_enabled"`
	AutoStart         bool    `json:"auto_start"`

	LogLevel   string `json:"log_level"`
	ServerPort int    `json:"server_port"`

	// LegacySoundFiles is the pre-library per-key file list. It is only read,
	// migrated by Load and never written back.
	LegacySoundFiles []string `json:"sound_files,omitempty"`

	mu sync.RWMutex
	// saveMu serializes writers of the temp file.
	saveMu sync.Mutex
}

// HotkeyConfig holds hotkey configuration
type HotkeyConfig struct {
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Cmd   bool   `json:"cmd"`
	Key   string `json:"key"` // e.g., "1", "F13"
}

// DefaultKeyBindings returns Ctrl+Alt+Shift+1 ... Ctrl+Alt+Shift+8.
func DefaultKeyBindings() [KeyCount]HotkeyConfig {
	var b [KeyCount]HotkeyConfig
	for i := range b {
		b[i] = HotkeyConfig{Ctrl: true, Alt: true, Shift: true, Key: fmt.Sprintf("%d", i+1)}
	}
	return b
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SoundLibrary: []library.Entry{},
		KeyBindings:  DefaultKeyBindings(),
		MicVolume:    1.0,
		SoundVolume:  1.0,
		AutoStart:    true,
		LogLevel:     "info",
		ServerPort:   18765,
	}
}

// Load loads configuration from the specified path. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.SoundLibrary == nil {
		config.SoundLibrary = []library.Entry{}
	}
	for i := range config.KeyBindings {
		if config.KeyBindings[i].Key == "" {
			config.KeyBindings[i] = DefaultKeyBindings()[i]
		}
	}
	config.migrateLegacySoundFiles()

	return config, nil
}

// migrateLegacySoundFiles turns per-key file names into library entries.
// Names look like "key3_airhorn.mp3"; the stem becomes the id and the part
// after the first underscore the display name.
func (c *Config) migrateLegacySoundFiles() int {
	if len(c.SoundLibrary) > 0 {
		c.LegacySoundFiles = nil
		return 0
	}

	migrated := 0
	for i, filename := range c.LegacySoundFiles {
		if i >= KeyCount {
			break
		}
		if filename == "" {
			continue
		}
		id, _, _ := strings.Cut(filename, ".")
		display := ""
		if _, rest, ok := strings.Cut(filename, "_"); ok {
			display, _, _ = strings.Cut(rest, ".")
		}
		if display == "" {
			display = fmt.Sprintf("Key %d sound", i+1)
		}

		c.SoundLibrary = append(c.SoundLibrary, library.Entry{ID: id, Filename: filename, DisplayName: display})
		c.KeySounds[i] = id
		migrated++
	}
	c.LegacySoundFiles = nil
	return migrated
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write through a temp file so a crash never leaves half a config.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	return nil
}

// GetConfigDir returns the application's configuration directory
func GetConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, "deck8-soundboard")
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

// Update updates configuration fields from a decoded JSON object
func (c *Config) Update(updates map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range updates {
		switch key {
		case "audio_input_device":
			if v, ok := value.(string); ok {
				c.AudioInputDevice = v
			}
		case "audio_output_device":
			if v, ok := value.(string); ok {
				c.AudioOutputDevice = v
			}
		case "mic_volume", "sound_volume":
			v, ok := value.(float64)
			if !ok {
				return fmt.Errorf("invalid %s: %v", key, value)
			}
			if err := validateVolume(float32(v)); err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			if key == "mic_volume" {
				c.MicVolume = float32(v)
			} else {
				c.SoundVolume = float32(v)
			}
		case "soundboard_enabled":
			if v, ok := value.(bool); ok {
				c.SoundboardEnabled = v
			}
		case "auto_start":
			if v, ok := value.(bool); ok {
				c.AutoStart = v
			}
		case "log_level":
			if v, ok := value.(string); ok {
				if !validLogLevel(v) {
					return fmt.Errorf("invalid log_level: %s", v)
				}
				c.LogLevel = v
			}
		case "server_port":
			v, ok := value.(float64)
			if !ok || v < 0 || v > 65535 || v != math.Trunc(v) {
				return fmt.Errorf("invalid server_port: %v", value)
			}
			c.ServerPort = int(v)
		case "key_bindings":
			list, ok := value.([]interface{})
			if !ok {
				return fmt.Errorf("invalid key_bindings: %v", value)
			}
			for i, raw := range list {
				if i >= KeyCount {
					break
				}
				if m, ok := raw.(map[string]interface{}); ok {
					applyHotkey(&c.KeyBindings[i], m)
				}
			}
		}
	}

	return nil
}

func applyHotkey(h *HotkeyConfig, v map[string]interface{}) {
	if ctrl, ok := v["ctrl"].(bool); ok {
		h.Ctrl = ctrl
	}
	if shift, ok := v["shift"].(bool); ok {
		h.Shift = shift
	}
	if alt, ok := v["alt"].(bool); ok {
		h.Alt = alt
	}
	if cmd, ok := v["cmd"].(bool); ok {
		h.Cmd = cmd
	}
	if key, ok := v["key"].(string); ok && key != "" {
		h.Key = key
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		SoundLibrary:      append([]library.Entry{}, c.SoundLibrary...),
		KeySounds:         c.KeySounds,
		KeyBindings:       c.KeyBindings,
		AudioInputDevice:  c.AudioInputDevice,
		AudioOutputDevice: c.AudioOutputDevice,
		MicVolume:         c.MicVolume,
		SoundVolume:       c.SoundVolume,
		SoundboardEnabled: c.SoundboardEnabled,
		AutoStart:         c.AutoStart,
		LogLevel:          c.LogLevel,
		ServerPort:        c.ServerPort,
	}
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := validateVolume(c.MicVolume); err != nil {
		return fmt.Errorf("invalid mic_volume: %w", err)
	}
	if err := validateVolume(c.SoundVolume); err != nil {
		return fmt.Errorf("invalid sound_volume: %w", err)
	}
	if !validLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port: %d", c.ServerPort)
	}

	ids := make(map[string]bool, len(c.SoundLibrary))
	for _, e := range c.SoundLibrary {
		if e.ID == "" || e.Filename == "" {
			return fmt.Errorf("sound library entry %+v is incomplete", e)
		}
		if ids[e.ID] {
			return fmt.Errorf("duplicate sound id %s", e.ID)
		}
		ids[e.ID] = true
	}
	for i, id := range c.KeySounds {
		if id != "" && !ids[id] {
			return fmt.Errorf("key %d refers to unknown sound %s", i+1, id)
		}
	}

	return nil
}

func validateVolume(v float32) error {
	if math.IsNaN(float64(v)) || v < 0 || v > 2 {
		return fmt.Errorf("%v (must be between 0 and 2)", v)
	}
	return nil
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Library returns a copy of the sound library.
func (c *Config) Library() []library.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]library.Entry{}, c.SoundLibrary...)
}

// KeyAssignments returns the sound id of every key.
func (c *Config) KeyAssignments() [KeyCount]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.KeySounds
}

// AddSound appends an entry to the library.
func (c *Config) AddSound(e library.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SoundLibrary = append(c.SoundLibrary, e)
}

// RemoveSound drops the entry with id and clears every key that played it.
func (c *Config) RemoveSound(id string) (library.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return library.Entry{}, fmt.Errorf("%w: %s", ErrSoundNotFound, id)
	}
	removed := c.SoundLibrary[i]
	c.SoundLibrary = append(c.SoundLibrary[:i], c.SoundLibrary[i+1:]...)

	for k := range c.KeySounds {
		if c.KeySounds[k] == id {
			c.KeySounds[k] = ""
		}
	}
	return removed, nil
}

// RenameSound changes the display name of an entry.
func (c *Config) RenameSound(id, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSoundNotFound, id)
	}
	c.SoundLibrary[i].DisplayName = name
	return nil
}

// FindSound looks up an entry by id.
func (c *Config) FindSound(id string) (library.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexLocked(id)
	if i < 0 {
		return library.Entry{}, false
	}
	return c.SoundLibrary[i], true
}

// SetKeySound assigns id to key. An empty id clears the key.
func (c *Config) SetKeySound(key int, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key < 0 || key >= KeyCount {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	if id != "" && c.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrSoundNotFound, id)
	}
	c.KeySounds[key] = id
	return nil
}

// KeySound returns the entry assigned to key, if any.
func (c *Config) KeySound(key int) (library.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if key < 0 || key >= KeyCount || c.KeySounds[key] == "" {
		return library.Entry{}, false
	}
	i := c.indexLocked(c.KeySounds[key])
	if i < 0 {
		return library.Entry{}, false
	}
	return c.SoundLibrary[i], true
}

// Bindings returns the hotkey of every key.
func (c *Config) Bindings() [KeyCount]HotkeyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.KeyBindings
}

// SetDevices records the selected input and output devices.
func (c *Config) SetDevices(input, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AudioInputDevice = input
	c.AudioOutputDevice = output
}

// SetInputDevice records the capture device.
func (c *Config) SetInputDevice(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AudioInputDevice = name
}

// SetOutputDevice records the playback device.
func (c *Config) SetOutputDevice(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AudioOutputDevice = name
}

// Devices returns the selected input and output devices.
func (c *Config) Devices() (input, output string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AudioInputDevice, c.AudioOutputDevice
}

// SetVolumes records the mic and sound gains.
func (c *Config) SetVolumes(mic, sound float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MicVolume = mic
	c.SoundVolume = sound
}

// SetMicVolume records the microphone gain.
func (c *Config) SetMicVolume(v float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MicVolume = v
}

// SetSoundVolume records the injected-sound gain.
func (c *Config) SetSoundVolume(v float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SoundVolume = v
}

// Volumes returns the mic and sound gains.
func (c *Config) Volumes() (mic, sound float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MicVolume, c.SoundVolume
}

// SetEnabled records whether the pipeline was running.
func (c *Config) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SoundboardEnabled = enabled
}

func (c *Config) indexLocked(id string) int {
	for i, e := range c.SoundLibrary {
		if e.ID == id {
			return i
		}
	}
	return -1
}
