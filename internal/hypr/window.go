package hypr

import (
	"context"
	"errors"
	"strings"
)

// ErrNoActiveWindow is returned when Hyprland reports no focused client.
var ErrNoActiveWindow = errors.New("hyprctl activewindow returned empty address")

// Window is the subset of `hyprctl -j activewindow` used to target input.
type Window struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	Title        string `json:"title"`
}

// ActiveWindow returns the focused client.
func ActiveWindow(ctx context.Context) (Window, error) {
	var w Window
	if err := query(ctx, "activewindow", &w); err != nil {
		return Window{}, err
	}
	w.Address = strings.TrimSpace(w.Address)
	w.Class = strings.TrimSpace(w.Class)
	w.InitialClass = strings.TrimSpace(w.InitialClass)
	w.Title = strings.TrimSpace(w.Title)
	if w.Address == "" {
		return Window{}, ErrNoActiveWindow
	}
	return w, nil
}
