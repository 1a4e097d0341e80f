package hypr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Shortcut is a sendshortcut target. An empty Window sends to the focused
// client as Hyprland resolves it at dispatch time.
type Shortcut struct {
	Mods   string
	Key    string
	Window string
}

// ParseShortcut reads the "MODS,KEY" form used in config, e.g. "CTRL,V" or
// "SUPER SHIFT,V".
func ParseShortcut(raw string) (Shortcut, error) {
	mods, key, ok := strings.Cut(strings.TrimSpace(raw), ",")
	if !ok {
		return Shortcut{}, fmt.Errorf("shortcut %q: want MODS,KEY", raw)
	}
	s := Shortcut{Mods: strings.TrimSpace(mods), Key: strings.TrimSpace(key)}
	if s.Key == "" {
		return Shortcut{}, fmt.Errorf("shortcut %q: key is empty", raw)
	}
	return s, nil
}

// Key builds an unmodified shortcut for a single keysym.
func Key(name string) Shortcut {
	return Shortcut{Key: strings.TrimSpace(name)}
}

// To returns a copy bound to the window at address.
func (s Shortcut) To(address string) Shortcut {
	s.Window = strings.TrimSpace(address)
	return s
}

func (s Shortcut) String() string {
	out := s.Mods + "," + s.Key
	if s.Window != "" {
		out += ",address:" + s.Window
	}
	return out
}

// SendShortcut dispatches s through `hyprctl dispatch sendshortcut`.
func SendShortcut(ctx context.Context, s Shortcut) error {
	if strings.TrimSpace(s.Key) == "" {
		return errors.New("sendshortcut: key is empty")
	}
	return dispatch(ctx, "sendshortcut", s.String())
}
