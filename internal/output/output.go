// Package output turns parsed dictation actions into synthetic keyboard input.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbright/voce/internal/config"
)

// ErrInjection wraps every failure reported by an Injector.
var ErrInjection = errors.New("input injection failed")

// Key names a special key understood by every injector.
type Key string

// KeyEnter is the only special key dictation needs.
const KeyEnter Key = "enter"

// Injector synthesizes keystrokes into whatever control has input focus.
type Injector interface {
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key Key) error
}

// NewInjector builds the injector selected by inject.backend.
func NewInjector(cfg config.InjectConfig, logger *slog.Logger) (Injector, error) {
	switch cfg.Backend {
	case "", "command":
		injector, err := NewCommandInjector(cfg.TypeCmd.Argv, cfg.KeyCmd.Argv)
		if err != nil {
			return nil, err
		}
		return injector, nil
	case "paste":
		injector, err := NewPasteInjector(cfg.PasteShortcut, cfg.ClipboardCmd.Argv, logger)
		if err != nil {
			return nil, err
		}
		return injector, nil
	case "keyboard":
		injector, err := NewKeyboardInjector()
		if err != nil {
			return nil, err
		}
		return injector, nil
	default:
		return nil, fmt.Errorf("unsupported inject backend %q", cfg.Backend)
	}
}

func injectionError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInjection, op, err)
}
