package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// ConflictInfo represents information about a known shortcut conflict
type ConflictInfo struct {
	Name        string
	Description string
	Modifiers   []hotkey.Modifier
	Key         hotkey.Key
}

// CheckConflicts checks if the given hotkey conflicts with known system shortcuts
func CheckConflicts(modifiers []hotkey.Modifier, key hotkey.Key) []ConflictInfo {
	var conflicts []ConflictInfo

	for _, known := range knownConflicts {
		if hotkeyMatches(modifiers, key, known.Modifiers, known.Key) {
			conflicts = append(conflicts, known)
		}
	}

	return conflicts
}

// hotkeyMatches checks if two hotkey combinations are identical
func hotkeyMatches(mods1 []hotkey.Modifier, key1 hotkey.Key, mods2 []hotkey.Modifier, key2 hotkey.Key) bool {
	if key1 != key2 {
		return false
	}

	modMap1 := make(map[hotkey.Modifier]bool)
	modMap2 := make(map[hotkey.Modifier]bool)

	for _, mod := range mods1 {
		modMap1[mod] = true
	}

	for _, mod := range mods2 {
		modMap2[mod] = true
	}

	if len(modMap1) != len(modMap2) {
		return false
	}

	for mod := range modMap1 {
		if !modMap2[mod] {
			return false
		}
	}

	return true
}

// ParseModifier converts a modifier name ("ctrl", "shift", "alt", "cmd" and
// their platform aliases) to the platform modifier
func ParseModifier(name string) (hotkey.Modifier, error) {
	if mod, ok := modifierNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mod, nil
	}
	return 0, fmt.Errorf("unknown modifier %q", name)
}

// FormatBinding returns a human-readable string representation of the hotkey
func FormatBinding(b Binding) string {
	parts := make([]string, 0, len(b.Modifiers)+1)
	for _, mod := range b.Modifiers {
		parts = append(parts, modifierLabel(mod))
	}
	parts = append(parts, KeyName(b.Key))
	return strings.Join(parts, modifierSeparator)
}
