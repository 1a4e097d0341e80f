package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// urgency is the freedesktop notification urgency hint.
type urgency byte

const (
	urgencyLow urgency = iota
	urgencyNormal
	urgencyCritical
)

type desktopNotification struct {
	appName   string
	replaceID uint32
	summary   string
	urgency   urgency
	timeoutMS int
}

// args renders the Notify call as busctl arguments for signature susssasa{sv}i.
func (d desktopNotification) args() []string {
	return []string{
		d.appName,
		strconv.FormatUint(uint64(d.replaceID), 10),
		"", // icon
		d.summary,
		"", // body
		"0",
		"1", "urgency", "y", strconv.Itoa(int(d.urgency)),
		strconv.Itoa(d.timeoutMS),
	}
}

// desktopNotify sends a notification over the session bus and returns the
// server-assigned ID used for later replacement or dismissal.
func desktopNotify(ctx context.Context, n desktopNotification) (uint32, error) {
	out, err := callNotifications(ctx, "Notify", "susssasa{sv}i", n.args()...)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(out)
	if len(fields) != 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := callNotifications(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

func callNotifications(ctx context.Context, method string, signature string, args ...string) (string, error) {
	argv := append([]string{
		"--user", "call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		method, signature,
	}, args...)

	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("busctl %s failed: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s failed: %w (%s)", method, err, trimmed)
	}
	return trimmed, nil
}
