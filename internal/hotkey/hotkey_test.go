package hotkey

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.design/x/hotkey"

	"github.com/yok-tottii/deck8-soundboard/internal/config"
)

type fakeHotkey struct {
	mu           sync.Mutex
	registered   bool
	registerErr  error
	unregistered bool
	keydown      chan hotkey.Event
}

func (f *fakeHotkey) Register() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = true
	return nil
}

func (f *fakeHotkey) Unregister() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = true
	return nil
}

func (f *fakeHotkey) Keydown() <-chan hotkey.Event { return f.keydown }

// newFakeManager returns a manager whose hotkeys are fakes, in slot order.
func newFakeManager(failSlots ...int) (*Manager, *[]*fakeHotkey) {
	m := New(nil)
	var fakes []*fakeHotkey
	m.newHotkey = func([]hotkey.Modifier, hotkey.Key) registrar {
		f := &fakeHotkey{keydown: make(chan hotkey.Event, 1)}
		for _, s := range failSlots {
			if s == len(fakes) {
				f.registerErr = errors.New("already taken")
			}
		}
		fakes = append(fakes, f)
		return f
	}
	return m, &fakes
}

func defaultBindings(t *testing.T) []Binding {
	t.Helper()
	bindings, err := FromConfig(config.DefaultKeyBindings())
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	return bindings
}

func TestFromConfig(t *testing.T) {
	bindings := defaultBindings(t)

	if len(bindings) != config.KeyCount {
		t.Fatalf("got %d bindings, want %d", len(bindings), config.KeyCount)
	}
	if bindings[0].Key != hotkey.Key1 || bindings[7].Key != hotkey.Key8 {
		t.Errorf("keys = %v, %v", bindings[0].Key, bindings[7].Key)
	}
	if len(bindings[0].Modifiers) != 3 {
		t.Errorf("Expected 3 modifiers, got %d", len(bindings[0].Modifiers))
	}

	cfgs := config.DefaultKeyBindings()
	cfgs[3].Key = "Hyper"
	if _, err := FromConfig(cfgs); err == nil || !strings.Contains(err.Error(), "key 4") {
		t.Errorf("FromConfig() error = %v, want key 4 failure", err)
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		name string
		want hotkey.Key
	}{
		{"A", hotkey.KeyA},
		{"z", hotkey.KeyZ},
		{"7", hotkey.Key7},
		{"F13", hotkey.KeyF13},
		{"f1", hotkey.KeyF1},
		{"space", hotkey.KeySpace},
		{" Return ", hotkey.KeyReturn},
		{"enter", hotkey.KeyReturn},
		{"Esc", hotkey.KeyEscape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.name)
			if err != nil {
				t.Fatalf("ParseKey(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "F21", "Hyper", "AA"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}

func TestKeyName(t *testing.T) {
	for _, name := range []string{"A", "5", "F20", "Space"} {
		key, err := ParseKey(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := KeyName(key); got != name {
			t.Errorf("KeyName(ParseKey(%q)) = %q", name, got)
		}
	}
}

func TestParseModifier(t *testing.T) {
	for _, name := range []string{"ctrl", "Shift", "ALT", "cmd"} {
		if _, err := ParseModifier(name); err != nil {
			t.Errorf("ParseModifier(%q) error = %v", name, err)
		}
	}
	if _, err := ParseModifier("hyper"); err == nil {
		t.Error("ParseModifier(hyper) should fail")
	}

	ctrl, _ := ParseModifier("ctrl")
	control, _ := ParseModifier("control")
	if ctrl != control {
		t.Error("ctrl and control should be the same modifier")
	}
}

func TestFormatBinding(t *testing.T) {
	ctrl, _ := ParseModifier("ctrl")
	b := Binding{Modifiers: []hotkey.Modifier{ctrl}, Key: hotkey.KeyA}

	want := modifierLabel(ctrl) + modifierSeparator + "A"
	if got := FormatBinding(b); got != want {
		t.Errorf("FormatBinding() = %q, want %q", got, want)
	}
	if got := FormatBinding(Binding{Key: hotkey.KeySpace}); got != "Space" {
		t.Errorf("FormatBinding(no modifiers) = %q", got)
	}
}

func TestCheckConflicts(t *testing.T) {
	for _, known := range knownConflicts {
		if len(CheckConflicts(known.Modifiers, known.Key)) == 0 {
			t.Errorf("%s should be reported as a conflict", known.Name)
		}
	}

	for i, b := range defaultBindings(t) {
		if conflicts := CheckConflicts(b.Modifiers, b.Key); len(conflicts) != 0 {
			t.Errorf("default binding %d conflicts with %v", i+1, conflicts)
		}
	}
}

func TestHotkeyMatches(t *testing.T) {
	ctrl, _ := ParseModifier("ctrl")
	alt, _ := ParseModifier("alt")
	shift, _ := ParseModifier("shift")

	tests := []struct {
		name     string
		mods1    []hotkey.Modifier
		key1     hotkey.Key
		mods2    []hotkey.Modifier
		key2     hotkey.Key
		expected bool
	}{
		{"Same hotkey", []hotkey.Modifier{ctrl, alt}, hotkey.KeySpace, []hotkey.Modifier{ctrl, alt}, hotkey.KeySpace, true},
		{"Different key", []hotkey.Modifier{ctrl}, hotkey.KeySpace, []hotkey.Modifier{ctrl}, hotkey.KeyReturn, false},
		{"Different modifiers", []hotkey.Modifier{ctrl}, hotkey.KeySpace, []hotkey.Modifier{shift}, hotkey.KeySpace, false},
		{"Same modifiers, different order", []hotkey.Modifier{ctrl, alt}, hotkey.KeySpace, []hotkey.Modifier{alt, ctrl}, hotkey.KeySpace, true},
		{"Repeated modifier", []hotkey.Modifier{ctrl, ctrl}, hotkey.KeyA, []hotkey.Modifier{ctrl}, hotkey.KeyA, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := hotkeyMatches(tt.mods1, tt.key1, tt.mods2, tt.key2)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestDuplicateSlots(t *testing.T) {
	bindings := defaultBindings(t)
	if dup := DuplicateSlots(bindings); len(dup) != 0 {
		t.Errorf("default bindings have duplicates: %v", dup)
	}

	bindings[5] = bindings[1]
	if dup := DuplicateSlots(bindings); len(dup) != 1 || dup[0] != 6 {
		t.Errorf("DuplicateSlots() = %v, want [6]", dup)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m, fakes := newFakeManager()

	if m.IsRunning() {
		t.Error("Manager should not be running initially")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() on non-running manager returned error: %v", err)
	}

	if err := m.Register(defaultBindings(t)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !m.IsRunning() || len(m.Active()) != config.KeyCount {
		t.Errorf("running=%v active=%v", m.IsRunning(), m.Active())
	}
	if err := m.Register(defaultBindings(t)); err == nil {
		t.Error("second Register() should fail while running")
	}

	events := m.Events()
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for i, f := range *fakes {
		if !f.unregistered {
			t.Errorf("hotkey %d not unregistered", i)
		}
	}
	if _, ok := <-events; ok {
		t.Error("event channel should be closed after Close()")
	}

	// Register works again after Close.
	if err := m.Register(defaultBindings(t)[:2]); err != nil {
		t.Fatalf("Register() after Close error = %v", err)
	}
	m.Close()
}

func TestManagerEvents(t *testing.T) {
	m, fakes := newFakeManager()
	if err := m.Register(defaultBindings(t)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	defer m.Close()

	(*fakes)[4].keydown <- hotkey.Event{}

	select {
	case ev := <-m.Events():
		if ev.Slot != 4 {
			t.Errorf("Slot = %d, want 4", ev.Slot)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestManagerPartialRegistration(t *testing.T) {
	m, fakes := newFakeManager(2)

	err := m.Register(defaultBindings(t))
	if err == nil || !strings.Contains(err.Error(), "slot 3") {
		t.Fatalf("Register() error = %v, want slot 3 failure", err)
	}
	defer m.Close()

	active := m.Active()
	if len(active) != config.KeyCount-1 {
		t.Fatalf("Active() = %v", active)
	}
	for _, s := range active {
		if s == 2 {
			t.Error("failed slot reported active")
		}
	}

	(*fakes)[3].keydown <- hotkey.Event{}
	select {
	case ev := <-m.Events():
		if ev.Slot != 3 {
			t.Errorf("Slot = %d, want 3", ev.Slot)
		}
	case <-time.After(time.Second):
		t.Fatal("no event from a registered slot")
	}
}

func TestManagerRejectsDuplicates(t *testing.T) {
	m, fakes := newFakeManager()
	bindings := defaultBindings(t)
	bindings[7] = bindings[0]

	if err := m.Register(bindings); err == nil {
		t.Fatal("Register() should reject duplicate bindings")
	}
	if m.IsRunning() || len(*fakes) != 0 {
		t.Error("nothing should be registered")
	}
}
