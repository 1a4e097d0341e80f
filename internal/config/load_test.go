package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, Default(), loaded.Config)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "using defaults")
}

func TestLoadJSONCWithTrailingCommas(t *testing.T) {
	path := writeConfig(t, "config.jsonc", `
{
  // local overrides
  "wake_word": "Clip",
  "activation": {"timeout_ms": 12000},
  "engine": {"backend": "riva"},
  "riva": {"grpc": "10.0.0.5:50051", "http": "10.0.0.5:9000",},
}
`)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "clip", loaded.Config.WakeWord)
	require.Equal(t, 12000, loaded.Config.Activation.TimeoutMS)
	require.Equal(t, "riva", loaded.Config.Engine.Backend)
	require.Equal(t, "10.0.0.5:50051", loaded.Config.Riva.GRPC)
	require.Equal(t, "10.0.0.5:9000", loaded.Config.Riva.HTTP)
}

func TestLoadPicksDecoderByExtension(t *testing.T) {
	for _, name := range []string{"voce.yaml", "voce.YML"} {
		loaded, err := Load(writeConfig(t, name, "activation:\n  timeout_ms: 4500\n"))
		require.NoError(t, err, name)
		require.Equal(t, 4500, loaded.Config.Activation.TimeoutMS, name)
	}
}

func TestLoadImplicitYAMLFromConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "voce"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "voce", "config.yaml"), []byte("wake_word: clip\n"), 0o600))

	loaded, err := Load("")
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "clip", loaded.Config.WakeWord)
}

func TestLoadErrorsNameThePath(t *testing.T) {
	path := writeConfig(t, "broken.jsonc", "{ not-json }")
	_, err := Load(path)
	require.ErrorContains(t, err, "parse config")
	require.ErrorContains(t, err, path)

	_, err = Load(t.TempDir())
	require.ErrorContains(t, err, "read config")
}
