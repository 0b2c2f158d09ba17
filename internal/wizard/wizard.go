package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yok-tottii/deck8-soundboard/internal/audio"
	"github.com/yok-tottii/deck8-soundboard/internal/config"
)

// SetupWizard tracks whether first-run setup has finished. Setup counts as
// finished once the pipeline has run for the first time.
type SetupWizard struct {
	configDir     string
	configPath    string
	setupFlagFile string
	mu            sync.RWMutex
}

// NewSetupWizard creates a setup wizard for the config file at configPath
func NewSetupWizard(configPath string) (*SetupWizard, error) {
	configDir := filepath.Dir(configPath)

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &SetupWizard{
		configDir:     configDir,
		configPath:    configPath,
		setupFlagFile: filepath.Join(configDir, ".setup_completed"),
	}, nil
}

// IsFirstRun checks if this is the first run of the application
func (w *SetupWizard) IsFirstRun() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.configPath)
	return os.IsNotExist(err)
}

// IsSetupCompleted checks if setup has been completed
func (w *SetupWizard) IsSetupCompleted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.setupFlagFile)
	return !os.IsNotExist(err)
}

// MarkSetupCompleted marks setup as completed
func (w *SetupWizard) MarkSetupCompleted() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.Create(w.setupFlagFile)
	if err != nil {
		return fmt.Errorf("failed to create setup flag file: %w", err)
	}
	return file.Close()
}

// ShouldShowWizard reports whether the settings page should open at launch:
// on the first run and until setup has been completed
func (w *SetupWizard) ShouldShowWizard() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, err := os.Stat(w.configPath); os.IsNotExist(err) {
		return true
	}
	_, err := os.Stat(w.setupFlagFile)
	return os.IsNotExist(err)
}

// SetupProgress is the completion state of each setup step
type SetupProgress struct {
	DevicesSelected bool `json:"devices_selected"`
	VirtualCable    bool `json:"virtual_cable"`
	SoundsImported  bool `json:"sounds_imported"`
	KeysAssigned    bool `json:"keys_assigned"`
}

// Complete reports whether every step is done
func (p SetupProgress) Complete() bool {
	return p.DevicesSelected && p.VirtualCable && p.SoundsImported && p.KeysAssigned
}

// GetProgress derives the setup steps from cfg
func GetProgress(cfg *config.Config) SetupProgress {
	input, output := cfg.Devices()

	assigned := false
	for _, id := range cfg.KeyAssignments() {
		if id != "" {
			assigned = true
			break
		}
	}

	return SetupProgress{
		DevicesSelected: input != "" && output != "",
		VirtualCable:    audio.IsVirtualCable(output),
		SoundsImported:  len(cfg.Library()) > 0,
		KeysAssigned:    assigned,
	}
}

// ResetSetup resets the setup state
func (w *SetupWizard) ResetSetup() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.Remove(w.setupFlagFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove setup flag file: %w", err)
	}
	return nil
}

// GetConfigDir returns the configuration directory
func (w *SetupWizard) GetConfigDir() string {
	return w.configDir
}
