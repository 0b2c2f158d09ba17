package tray

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/yok-tottii/deck8-soundboard/internal/i18n"
)

const appName = "Deck8 Soundboard"

// State represents the current pipeline state
type State int

const (
	StateStopped State = iota
	StateRunning
	StateError
)

// String returns the status line shown in the menu
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Manager manages the system tray icon and menu
type Manager struct {
	stateMutex      sync.RWMutex
	state           State
	ready           bool
	onReadyCallback func()
	onSettings      func()
	onToggle        func()
	onInputDevice   func(name string)
	onOutputDevice  func(name string)
	onQuit          func()
	translator      *i18n.Translator

	menuStatus   *systray.MenuItem
	menuToggle   *systray.MenuItem
	menuInput    *systray.MenuItem // Parent menu for capture devices
	menuOutput   *systray.MenuItem // Parent menu for playback devices
	menuSettings *systray.MenuItem
	menuQuit     *systray.MenuItem

	inputItems  deviceItems
	outputItems deviceItems
	deviceMutex sync.Mutex
	pendingIn   []Device
	pendingOut  []Device
	havePending bool
	iconStopped []byte
	iconRunning []byte
	iconError   []byte
}

// deviceItems is one device submenu and the goroutines watching its entries
type deviceItems struct {
	items   []*systray.MenuItem
	cancels []context.CancelFunc
}

// Config holds tray manager configuration
type Config struct {
	OnReady        func() // Called when systray is ready for initialization
	OnSettings     func()
	OnToggle       func() // Start or stop the pipeline
	OnInputDevice  func(name string)
	OnOutputDevice func(name string)
	OnQuit         func()
	Translator     *i18n.Translator // nil shows English
}

// Device is one entry of a device submenu
type Device struct {
	Name      string
	IsCurrent bool
}

// NewManager creates a new tray manager
func NewManager(config Config) *Manager {
	return &Manager{
		state:           StateStopped,
		onReadyCallback: config.OnReady,
		onSettings:      config.OnSettings,
		onToggle:        config.OnToggle,
		onInputDevice:   config.OnInputDevice,
		onOutputDevice:  config.OnOutputDevice,
		onQuit:          config.OnQuit,
		translator:      config.Translator,
		iconStopped:     renderIcon(color.RGBA{0x9e, 0x9e, 0x9e, 0xff}),
		iconRunning:     renderIcon(color.RGBA{0x2e, 0xb8, 0x4b, 0xff}),
		iconError:       renderIcon(color.RGBA{0xe0, 0x3b, 0x2f, 0xff}),
	}
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// onReady is called when systray is ready
func (m *Manager) onReady() {
	t := m.translator.Translate
	m.menuStatus = systray.AddMenuItem("", t("tooltip.status"))
	m.menuStatus.Disable()
	m.menuToggle = systray.AddMenuItem("", t("tooltip.toggle"))

	systray.AddSeparator()

	m.menuInput = systray.AddMenuItem(t("menu.microphone"), t("tooltip.microphone"))
	m.menuOutput = systray.AddMenuItem(t("menu.output"), t("tooltip.output"))
	m.menuSettings = systray.AddMenuItem(t("menu.settings"), t("tooltip.settings"))

	systray.AddSeparator()

	m.menuQuit = systray.AddMenuItem(t("menu.quit"), t("tooltip.quit"))

	m.stateMutex.Lock()
	m.ready = true
	m.apply()
	m.stateMutex.Unlock()

	m.deviceMutex.Lock()
	if m.havePending {
		m.rebuildDevices(m.pendingIn, m.pendingOut)
	}
	m.deviceMutex.Unlock()

	go m.handleMenuEvents()

	if m.onReadyCallback != nil {
		m.onReadyCallback()
	}
}

// onExit is called when systray is exiting
func (m *Manager) onExit() {
	m.deviceMutex.Lock()
	defer m.deviceMutex.Unlock()
	m.inputItems.clear()
	m.outputItems.clear()
}

// handleMenuEvents handles menu item clicks
func (m *Manager) handleMenuEvents() {
	for {
		select {
		case <-m.menuToggle.ClickedCh:
			if m.onToggle != nil {
				m.onToggle()
			}
		case <-m.menuSettings.ClickedCh:
			if m.onSettings != nil {
				m.onSettings()
			}
		case <-m.menuQuit.ClickedCh:
			if m.onQuit != nil {
				m.onQuit()
			}
			systray.Quit()
			return
		}
	}
}

// SetState updates the icon, tooltip and menu for state
func (m *Manager) SetState(state State) {
	m.stateMutex.Lock()
	defer m.stateMutex.Unlock()
	m.state = state
	m.apply()
}

// GetState returns the displayed state
func (m *Manager) GetState() State {
	m.stateMutex.RLock()
	defer m.stateMutex.RUnlock()
	return m.state
}

// apply pushes the current state to the tray. Callers hold stateMutex.
func (m *Manager) apply() {
	if !m.ready {
		return
	}
	systray.SetIcon(m.icon(m.state))
	systray.SetTooltip(m.tooltip(m.state))
	m.menuStatus.SetTitle(m.statusTitle(m.state))
	m.menuToggle.SetTitle(m.toggleTitle(m.state))
}

func (m *Manager) icon(state State) []byte {
	switch state {
	case StateRunning:
		return m.iconRunning
	case StateError:
		return m.iconError
	default:
		return m.iconStopped
	}
}

// stateLabel is the translated name of state
func (m *Manager) stateLabel(state State) string {
	switch state {
	case StateStopped, StateRunning, StateError:
		return m.translator.Translate("state." + strings.ToLower(state.String()))
	default:
		return state.String()
	}
}

func (m *Manager) tooltip(state State) string {
	return appName + " - " + m.stateLabel(state)
}

func (m *Manager) statusTitle(state State) string {
	return m.translator.TranslateWithFormat("menu.status", map[string]string{"state": m.stateLabel(state)})
}

func (m *Manager) toggleTitle(state State) string {
	if state == StateRunning {
		return m.translator.Translate("menu.stop")
	}
	return m.translator.Translate("menu.start")
}

// UpdateDeviceMenus replaces the entries of both device submenus. Calls
// made before the tray is ready are applied once it is.
func (m *Manager) UpdateDeviceMenus(inputs, outputs []Device) {
	m.deviceMutex.Lock()
	defer m.deviceMutex.Unlock()

	m.stateMutex.RLock()
	ready := m.ready
	m.stateMutex.RUnlock()

	if !ready {
		m.pendingIn, m.pendingOut, m.havePending = inputs, outputs, true
		return
	}
	m.rebuildDevices(inputs, outputs)
}

// rebuildDevices requires deviceMutex
func (m *Manager) rebuildDevices(inputs, outputs []Device) {
	m.pendingIn, m.pendingOut, m.havePending = nil, nil, false
	m.inputItems.rebuild(m.menuInput, inputs, m.onInputDevice)
	m.outputItems.rebuild(m.menuOutput, outputs, m.onOutputDevice)
}

func (d *deviceItems) clear() {
	for _, cancel := range d.cancels {
		cancel()
	}
	d.cancels = nil

	// systray cannot remove items, hide them instead
	for _, item := range d.items {
		item.Hide()
	}
	d.items = nil
}

func (d *deviceItems) rebuild(parent *systray.MenuItem, devices []Device, onSelect func(string)) {
	d.clear()

	for _, device := range devices {
		item := parent.AddSubMenuItemCheckbox(device.Name, "", device.IsCurrent)
		d.items = append(d.items, item)

		ctx, cancel := context.WithCancel(context.Background())
		d.cancels = append(d.cancels, cancel)

		go func(name string, item *systray.MenuItem, ctx context.Context) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-item.ClickedCh:
					if onSelect != nil {
						onSelect(name)
					}
				}
			}
		}(device.Name, item, ctx)
	}
}

// Quit quits the system tray
func (m *Manager) Quit() {
	systray.Quit()
}

// DeviceEntries marks current in names
func DeviceEntries(names []string, current string) []Device {
	devices := make([]Device, len(names))
	for i, name := range names {
		devices[i] = Device{Name: name, IsCurrent: name == current}
	}
	return devices
}

// renderIcon draws a filled 32x32 circle in c
func renderIcon(c color.RGBA) []byte {
	const size = 32
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	center := float64(size-1) / 2
	radius := float64(size)/2 - 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
