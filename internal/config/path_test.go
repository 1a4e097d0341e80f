package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		xdg      bool
		existing []string
		want     string
	}{
		{name: "explicit wins", explicit: "/etc/voce.yaml", xdg: true, existing: []string{"config.jsonc"}, want: "/etc/voce.yaml"},
		{name: "xdg default name", xdg: true, want: "config.jsonc"},
		{name: "home default name", want: "config.jsonc"},
		{name: "existing yaml", xdg: true, existing: []string{"config.yaml"}, want: "config.yaml"},
		{name: "jsonc preferred over yml", existing: []string{"config.yml", "config.jsonc"}, want: "config.jsonc"},
		{name: "yaml preferred over yml", existing: []string{"config.yml", "config.yaml"}, want: "config.yaml"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			dir := filepath.Join(home, ".config", "voce")
			t.Setenv("XDG_CONFIG_HOME", "")
			if tc.xdg {
				xdg := t.TempDir()
				t.Setenv("XDG_CONFIG_HOME", xdg)
				dir = filepath.Join(xdg, "voce")
			}
			require.NoError(t, os.MkdirAll(dir, 0o700))
			for _, name := range tc.existing {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
			}

			got, err := ResolvePath(tc.explicit)
			require.NoError(t, err)
			if filepath.IsAbs(tc.want) {
				require.Equal(t, tc.want, got)
			} else {
				require.Equal(t, filepath.Join(dir, tc.want), got)
			}
		})
	}
}

func TestExpandUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := map[string]string{
		"~":                   home,
		" ~/models/tiny.bin ": filepath.Join(home, "models", "tiny.bin"),
		"/opt/models/a.bin":   "/opt/models/a.bin",
		"~alice/a.bin":        "~alice/a.bin",
		"models/a.bin":        "models/a.bin",
		"":                    "",
	}
	for in, want := range tests {
		require.Equal(t, want, ExpandUserPath(in), "input %q", in)
	}
}
