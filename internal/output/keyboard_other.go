//go:build !linux

package output

import (
	"context"
	"errors"
)

// KeyboardInjector is only available on Linux.
type KeyboardInjector struct{}

func NewKeyboardInjector() (*KeyboardInjector, error) {
	return nil, errors.New("keyboard inject backend requires linux uinput")
}

func (*KeyboardInjector) TypeText(context.Context, string) error {
	return injectionError("type text", errors.New("keyboard backend unavailable"))
}

func (*KeyboardInjector) PressKey(context.Context, Key) error {
	return injectionError("press key", errors.New("keyboard backend unavailable"))
}
