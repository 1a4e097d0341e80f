package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/voce/internal/hypr"
)

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// PasteInjector places text on the clipboard and sends a paste shortcut to
// the active Hyprland window. The previous clipboard content is restored
// after each paste.
type PasteInjector struct {
	shortcut  hypr.Shortcut
	clipboard Clipboard
	logger    *slog.Logger
	settle    time.Duration
}

// NewPasteInjector uses clipboardArgv when set, otherwise the system clipboard library.
func NewPasteInjector(shortcut string, clipboardArgv []string, logger *slog.Logger) (*PasteInjector, error) {
	var cb Clipboard = systemClipboard{}
	if len(clipboardArgv) > 0 {
		cb = commandClipboard{argv: append([]string(nil), clipboardArgv...)}
	}
	return newPasteInjector(shortcut, cb, logger)
}

func newPasteInjector(shortcut string, cb Clipboard, logger *slog.Logger) (*PasteInjector, error) {
	parsed, err := hypr.ParseShortcut(shortcut)
	if err != nil {
		return nil, fmt.Errorf("paste shortcut: %w", err)
	}
	return &PasteInjector{
		shortcut:  parsed,
		clipboard: cb,
		logger:    logger,
		settle:    80 * time.Millisecond,
	}, nil
}

func (p *PasteInjector) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	previous, readErr := p.clipboard.Read(ctx)
	if err := p.clipboard.Write(ctx, text); err != nil {
		return injectionError("set clipboard", err)
	}
	if err := sleepContext(ctx, p.settle); err != nil {
		return injectionError("paste", err)
	}
	if err := sendToActiveWindow(ctx, p.shortcut); err != nil {
		return injectionError("paste", err)
	}

	if readErr != nil {
		return nil
	}
	if err := sleepContext(ctx, p.settle); err == nil {
		if err := p.clipboard.Write(ctx, previous); err != nil && p.logger != nil {
			p.logger.Warn("restore clipboard failed", "error", err.Error())
		}
	}
	return nil
}

func (p *PasteInjector) PressKey(ctx context.Context, key Key) error {
	name, err := keysymName(key)
	if err != nil {
		return injectionError("press key", err)
	}
	if err := sendToActiveWindow(ctx, hypr.Key(name)); err != nil {
		return injectionError("press key", err)
	}
	return nil
}

type systemClipboard struct{}

func (systemClipboard) Read(context.Context) (string, error) {
	return clipboard.ReadAll()
}

func (systemClipboard) Write(_ context.Context, text string) error {
	return clipboard.WriteAll(text)
}

// commandClipboard writes through an external command such as wl-copy.
// Reads are unsupported so nothing is restored.
type commandClipboard struct {
	argv []string
}

func (commandClipboard) Read(context.Context) (string, error) {
	return "", fmt.Errorf("clipboard command cannot read")
}

func (c commandClipboard) Write(ctx context.Context, text string) error {
	return runCommandWithInput(ctx, c.argv, text)
}

// sendToActiveWindow pins s to the focused client so focus changes during
// dispatch cannot redirect it.
func sendToActiveWindow(ctx context.Context, s hypr.Shortcut) error {
	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, s.To(window.Address))
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.Window, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := hypr.ActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		if err := sleepContext(ctx, delay); err != nil {
			return hypr.Window{}, err
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("active window unavailable")
	}
	return hypr.Window{}, fmt.Errorf("resolve active window: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
