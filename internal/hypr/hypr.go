// Package hypr drives Hyprland through hyprctl: active-window lookup,
// synthetic shortcuts, and compositor notifications.
package hypr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

const binary = "hyprctl"

// dispatch runs `hyprctl --quiet dispatch <name> <args...>`.
func dispatch(ctx context.Context, name string, args ...string) error {
	_, err := run(ctx, append([]string{"--quiet", "dispatch", name}, args...)...)
	return err
}

// query runs `hyprctl -j <target>` and decodes the reply into v.
func query(ctx context.Context, target string, v any) error {
	out, err := run(ctx, "-j", target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out, v); err != nil {
		return fmt.Errorf("decode hyprctl %s json: %w", target, err)
	}
	return nil
}

// run returns stdout. On failure the error carries whatever hyprctl printed.
func run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail == "" {
			return nil, fmt.Errorf("%s %s: %w", binary, strings.Join(args, " "), err)
		}
		return nil, fmt.Errorf("%s %s: %w (%s)", binary, strings.Join(args, " "), err, detail)
	}
	return stdout.Bytes(), nil
}
