package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	// Navigation
	Up       Key
	Down     Key
	PageUp   Key
	PageDown Key

	// Actions
	Select  Key
	Back    Key
	Quit    Key
	Refresh Key

	// Production orders
	NewOrder    Key
	SetProduced Key
	DeleteOrder Key

	// Warehouse
	ToggleDepleted Key

	// Function keys for module navigation
	F1  Key
	F2  Key
	F3  Key
	F4  Key
	F10 Key
}

// Key represents a key binding.
type Key struct {
	Keys    []string
	Help    string
	Enabled bool
}

func bind(help string, keys ...string) Key {
	return Key{Keys: keys, Help: help, Enabled: true}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       bind("up", "up", "k"),
		Down:     bind("down", "down", "j"),
		PageUp:   bind("page up", "pgup", "ctrl+u"),
		PageDown: bind("page down", "pgdown", "ctrl+d"),

		Select:  bind("select", "enter"),
		Back:    bind("back", "esc", "backspace"),
		Quit:    bind("quit", "q", "ctrl+c"),
		Refresh: bind("refresh", "r"),

		NewOrder:    bind("new order", "n"),
		SetProduced: bind("set produced", "e"),
		DeleteOrder: bind("delete order", "d"),

		ToggleDepleted: bind("all lots", "a"),

		F1:  bind("Help", "f1", "?"),
		F2:  bind("Dashboard", "f2"),
		F3:  bind("Production", "f3"),
		F4:  bind("Warehouse", "f4"),
		F10: bind("Quit", "f10"),
	}
}

// Matches checks if a key message matches this key binding.
func (k Key) Matches(msg tea.KeyMsg) bool {
	if !k.Enabled {
		return false
	}

	keyStr := msg.String()
	for _, key := range k.Keys {
		if keyStr == key {
			return true
		}
	}
	return false
}

// MatchesAny checks if a key message matches any of the provided key bindings.
func MatchesAny(msg tea.KeyMsg, keys ...Key) bool {
	for _, k := range keys {
		if k.Matches(msg) {
			return true
		}
	}
	return false
}

// IsQuit checks if the key message is a quit command.
func (km KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return km.Quit.Matches(msg) || km.F10.Matches(msg)
}

// IsFunctionKey checks if the key message switches module.
func (km KeyMap) IsFunctionKey(msg tea.KeyMsg) bool {
	return MatchesAny(msg, km.F1, km.F2, km.F3, km.F4, km.F10)
}

// FunctionKeyModule returns the module a function key switches to, or
// "quit" for F10.
func (km KeyMap) FunctionKeyModule(msg tea.KeyMsg) Module {
	switch {
	case km.F1.Matches(msg):
		return ModuleHelp
	case km.F2.Matches(msg):
		return ModuleDashboard
	case km.F3.Matches(msg):
		return ModuleProduction
	case km.F4.Matches(msg):
		return ModuleWarehouse
	case km.F10.Matches(msg):
		return moduleQuit
	default:
		return ""
	}
}

// StatusBarHelp returns the help text for the status bar, shortened for
// narrow terminals.
func (km KeyMap) StatusBarHelp(width int) string {
	if GetBreakpoint(width) == BreakpointNarrow {
		return "F1 F2 F3 F4 F10:Quit"
	}
	return strings.Join([]string{
		"[F1]" + km.F1.Help,
		"[F2]" + km.F2.Help,
		"[F3]" + km.F3.Help,
		"[F4]" + km.F4.Help,
		"[F10]" + km.F10.Help,
	}, " ")
}
