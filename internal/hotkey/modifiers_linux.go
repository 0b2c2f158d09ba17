package hotkey

import (
	"golang.design/x/hotkey"

	"github.com/yok-tottii/deck8-soundboard/internal/config"
)

const modifierSeparator = "+"

// X11 maps Alt to Mod1 and Super to Mod4 on common keyboard layouts.
var modifierNames = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.Mod1,
	"cmd":     hotkey.Mod4,
	"super":   hotkey.Mod4,
}

// knownConflicts contains common desktop shortcuts that might conflict
var knownConflicts = []ConflictInfo{
	{
		Name:        "Terminal",
		Description: "Open a terminal (GNOME, Ubuntu)",
		Modifiers:   []hotkey.Modifier{hotkey.ModCtrl, hotkey.Mod1},
		Key:         hotkey.KeyT,
	},
	{
		Name:        "Log Out",
		Description: "Session log out",
		Modifiers:   []hotkey.Modifier{hotkey.ModCtrl, hotkey.Mod1},
		Key:         hotkey.KeyDelete,
	},
	{
		Name:        "Close Window",
		Description: "Close the active window",
		Modifiers:   []hotkey.Modifier{hotkey.Mod1},
		Key:         hotkey.KeyF4,
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
		mods = append(mods, hotkey.Mod1)
	}
	if c.Cmd {
		mods = append(mods, hotkey.Mod4)
	}
	return mods
}

func modifierLabel(mod hotkey.Modifier) string {
	switch mod {
	case hotkey.ModCtrl:
		return "Ctrl"
	case hotkey.ModShift:
		return "Shift"
	case hotkey.Mod1:
		return "Alt"
	case hotkey.Mod4:
		return "Super"
	}
	return "?"
}
