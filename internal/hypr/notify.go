package hypr

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Icon selects the glyph drawn next to a Hyprland notification.
type Icon int

const (
	IconNone     Icon = -1
	IconWarning  Icon = 0
	IconInfo     Icon = 1
	IconHint     Icon = 2
	IconError    Icon = 3
	IconConfused Icon = 4
	IconOK       Icon = 5
)

// DefaultColor is used when a Notification leaves Color empty.
const DefaultColor = "rgb(89b4fa)"

type Notification struct {
	Icon    Icon
	Timeout time.Duration
	// Color is a Hyprland color literal such as rgb(f38ba8).
	Color string
	Text  string
}

// Notify shows n on the compositor overlay.
func Notify(ctx context.Context, n Notification) error {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = DefaultColor
	}
	timeout := max(n.Timeout.Milliseconds(), 0)
	return dispatch(ctx, "notify",
		strconv.Itoa(int(n.Icon)),
		strconv.FormatInt(timeout, 10),
		color,
		n.Text,
	)
}

// DismissNotify clears every visible Hyprland notification.
func DismissNotify(ctx context.Context) error {
	return dispatch(ctx, "dismissnotify")
}
