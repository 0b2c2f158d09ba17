package hotkey

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/deck8-soundboard/internal/config"
	"github.com/yok-tottii/deck8-soundboard/internal/logger"
)

// Event reports a key-down on one pad slot
type Event struct {
	Slot int
}

// Binding is one global shortcut
type Binding struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
}

// registrar is the part of *hotkey.Hotkey the manager uses
type registrar interface {
	Register() error
	Unregister() error
	Keydown() <-chan hotkey.Event
}

type slot struct {
	index   int
	binding Binding
	hk      registrar
}

// Manager registers one global shortcut per pad slot and merges their
// key-down notifications into a single event channel
type Manager struct {
	newHotkey func(mods []hotkey.Modifier, key hotkey.Key) registrar
	log       *logger.Logger

	slots     []*slot
	eventChan chan Event
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
}

// New creates a hotkey manager
func New(log *logger.Logger) *Manager {
	return &Manager{
		newHotkey: func(mods []hotkey.Modifier, key hotkey.Key) registrar {
			return hotkey.New(mods, key)
		},
		log:       log,
		eventChan: make(chan Event, 16),
		stopChan:  make(chan struct{}),
	}
}

// BindingFor converts one persisted hotkey
func BindingFor(c config.HotkeyConfig) (Binding, error) {
	key, err := ParseKey(c.Key)
	if err != nil {
		return Binding{}, err
	}
	return Binding{Modifiers: modifiersFor(c), Key: key}, nil
}

// FromConfig converts persisted key bindings
func FromConfig(cfgs [config.KeyCount]config.HotkeyConfig) ([]Binding, error) {
	bindings := make([]Binding, len(cfgs))
	for i, c := range cfgs {
		b, err := BindingFor(c)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i+1, err)
		}
		bindings[i] = b
	}
	return bindings, nil
}

// Register registers bindings[i] as slot i. Slots whose registration fails
// are skipped and reported in the returned error; the rest stay active.
func (m *Manager) Register(bindings []Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("hotkeys are already registered, call Close() first")
	}
	if dup := DuplicateSlots(bindings); len(dup) > 0 {
		return fmt.Errorf("duplicate hotkey bindings: %v", dup)
	}

	// Recreate channels (they may have been closed by a previous Close())
	m.stopChan = make(chan struct{})
	m.eventChan = make(chan Event, 16)
	m.slots = nil

	var errs []error
	for i, b := range bindings {
		hk := m.newHotkey(b.Modifiers, b.Key)
		if err := hk.Register(); err != nil {
			errs = append(errs, fmt.Errorf("slot %d (%s): %w", i+1, FormatBinding(b), err))
			m.log.Warn("Failed to register hotkey %s for key %d: %v", FormatBinding(b), i+1, err)
			continue
		}
		s := &slot{index: i, binding: b, hk: hk}
		m.slots = append(m.slots, s)

		m.wg.Add(1)
		go m.listen(s)
	}

	m.running = true
	m.log.Info("Registered %d of %d hotkeys", len(m.slots), len(bindings))
	return errors.Join(errs...)
}

// listen forwards key-downs of one slot to the event channel
func (m *Manager) listen(s *slot) {
	defer m.wg.Done()

	keydown := s.hk.Keydown()
	for {
		select {
		case _, ok := <-keydown:
			if !ok {
				return
			}
			select {
			case m.eventChan <- Event{Slot: s.index}:
			case <-m.stopChan:
				return
			}
		case <-m.stopChan:
			return
		}
	}
}

// Events returns the event channel for receiving hotkey events
func (m *Manager) Events() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventChan
}

// Close unregisters every hotkey and closes the event channel
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	close(m.stopChan)
	m.wg.Wait()

	var errs []error
	for _, s := range m.slots {
		if err := s.hk.Unregister(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unregister hotkey %s: %w", FormatBinding(s.binding), err))
		}
	}
	m.slots = nil

	close(m.eventChan)

	// running is cleared even when Unregister fails so Register can retry.
	m.running = false

	return errors.Join(errs...)
}

// IsRunning returns whether hotkeys are registered
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Active returns the slots whose hotkey is registered
func (m *Manager) Active() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make([]int, 0, len(m.slots))
	for _, s := range m.slots {
		active = append(active, s.index)
	}
	return active
}

// DuplicateSlots returns the 1-based slots whose binding repeats an earlier one
func DuplicateSlots(bindings []Binding) []int {
	var dup []int
	for i := range bindings {
		for j := 0; j < i; j++ {
			if hotkeyMatches(bindings[i].Modifiers, bindings[i].Key, bindings[j].Modifiers, bindings[j].Key) {
				dup = append(dup, i+1)
				break
			}
		}
	}
	return dup
}
