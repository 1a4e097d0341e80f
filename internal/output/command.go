package output

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandInjector shells out to an external typing tool such as wtype.
type CommandInjector struct {
	typeArgv []string
	keyArgv  []string
}

// NewCommandInjector builds an injector that writes text to typeArgv's stdin
// and appends the key name to keyArgv.
func NewCommandInjector(typeArgv, keyArgv []string) (*CommandInjector, error) {
	if len(typeArgv) == 0 {
		return nil, errors.New("type command argv cannot be empty")
	}
	if len(keyArgv) == 0 {
		return nil, errors.New("key command argv cannot be empty")
	}
	return &CommandInjector{
		typeArgv: append([]string(nil), typeArgv...),
		keyArgv:  append([]string(nil), keyArgv...),
	}, nil
}

func (c *CommandInjector) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := runCommandWithInput(ctx, c.typeArgv, text); err != nil {
		return injectionError("type text", err)
	}
	return nil
}

func (c *CommandInjector) PressKey(ctx context.Context, key Key) error {
	name, err := keysymName(key)
	if err != nil {
		return injectionError("press key", err)
	}
	argv := append(append([]string(nil), c.keyArgv...), name)
	if err := runCommandWithInput(ctx, argv, ""); err != nil {
		return injectionError("press key", err)
	}
	return nil
}

// keysymName maps a Key to its XKB keysym name.
func keysymName(key Key) (string, error) {
	switch Key(strings.ToLower(string(key))) {
	case KeyEnter:
		return "Return", nil
	default:
		return "", fmt.Errorf("unsupported key %q", key)
	}
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
