package hotkey

import (
	"golang.design/x/hotkey"

	"github.com/yok-tottii/deck8-soundboard/internal/config"
)

const modifierSeparator = "+"

var modifierNames = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.ModAlt,
	"cmd":     hotkey.ModWin,
	"win":     hotkey.ModWin,
}

// knownConflicts contains Windows shortcuts that might conflict
var knownConflicts = []ConflictInfo{
	{
		Name:        "Close Window",
		Description: "Close the active window",
		Modifiers:   []hotkey.Modifier{hotkey.ModAlt},
		Key:         hotkey.KeyF4,
	},
	{
		Name:        "Lock",
		Description: "Lock the workstation",
		Modifiers:   []hotkey.Modifier{hotkey.ModWin},
		Key:         hotkey.KeyL,
	},
	{
		Name:        "Task Manager",
		Description: "Open Task Manager",
		Modifiers:   []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift},
		Key:         hotkey.KeyEscape,
	},
	{
		Name:        "Snipping Tool",
		Description: "Screen snip",
		Modifiers:   []hotkey.Modifier{hotkey.ModWin, hotkey.ModShift},
		Key:         hotkey.KeyS,
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
		mods = append(mods, hotkey.ModAlt)
	}
	if c.Cmd {
		mods = append(mods, hotkey.ModWin)
	}
	return mods
}

func modifierLabel(mod hotkey.Modifier) string {
	switch mod {
	case hotkey.ModCtrl:
		return "Ctrl"
	case hotkey.ModShift:
		return "Shift"
	case hotkey.ModAlt:
		return "Alt"
	case hotkey.ModWin:
		return "Win"
	}
	return "?"
}
