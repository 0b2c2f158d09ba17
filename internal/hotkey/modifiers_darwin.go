package hotkey

import (
	"golang.design/x/hotkey"

	"github.com/yok-tottii/deck8-soundboard/internal/config"
)

const modifierSeparator = ""

var modifierNames = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.ModOption,
	"option":  hotkey.ModOption,
	"cmd":     hotkey.ModCmd,
	"command": hotkey.ModCmd,
}

// knownConflicts contains macOS shortcuts that might conflict
var knownConflicts = []ConflictInfo{
	{
		Name:        "Spotlight",
		Description: "macOS Spotlight search",
		Modifiers:   []hotkey.Modifier{hotkey.ModCmd},
		Key:         hotkey.KeySpace,
	},
	{
		Name:        "Force Quit",
		Description: "macOS Force Quit",
		Modifiers:   []hotkey.Modifier{hotkey.ModCmd, hotkey.ModOption},
		Key:         hotkey.KeyEscape,
	},
	{
		Name:        "Screenshot",
		Description: "macOS screenshot toolbar",
		Modifiers:   []hotkey.Modifier{hotkey.ModCmd, hotkey.ModShift},
		Key:         hotkey.Key5,
	},
	{
		Name:        "Quit",
		Description: "Quit the frontmost application",
		Modifiers:   []hotkey.Modifier{hotkey.ModCmd},
		Key:         hotkey.KeyQ,
	},
}

func modifiersFor(c config.HotkeyConfig) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if c.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if c.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if c.Alt {
		mods = append(mods, hotkey.ModOption)
	}
	if c.Cmd {
		mods = append(mods, hotkey.ModCmd)
	}
	return mods
}

func modifierLabel(mod hotkey.Modifier) string {
	switch mod {
	case hotkey.ModCtrl:
		return "⌃"
	case hotkey.ModShift:
		return "⇧"
	case hotkey.ModOption:
		return "⌥"
	case hotkey.ModCmd:
		return "⌘"
	}
	return "?"
}
