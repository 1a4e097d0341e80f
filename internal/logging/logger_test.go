package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestResolveLogPathUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "voce", "log.jsonl"), path)
}

func TestResolveLogPathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "voce", "log.jsonl"), path)
}

func TestNewCreatesWritableJSONLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(LevelEnv, "")

	runtime, err := New(Options{Level: "info"})
	require.NoError(t, err)

	runtime.Logger.Info("unit-test-log", "component", "logging")
	runtime.Logger.Debug("hidden-debug-line")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"unit-test-log"`)
	require.Contains(t, string(contents), `"component":"logging"`)
	require.NotContains(t, string(contents), "hidden-debug-line")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestNewRendersCriticalLevel(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(LevelEnv, "")

	runtime, err := New(Options{Level: "error"})
	require.NoError(t, err)

	runtime.Logger.Log(context.Background(), LevelCritical, "listen loop crashed")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"level":"CRITICAL"`)
}

func TestEnvironmentLevelOverridesConfig(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(LevelEnv, "debug")

	runtime, err := New(Options{Level: "error"})
	require.NoError(t, err)
	defer runtime.Close()
	require.Equal(t, slog.LevelDebug, runtime.Level)

	t.Setenv(LevelEnv, "loud")
	_, err = New(Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), LevelEnv)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":         slog.LevelInfo,
		"INFO":     slog.LevelInfo,
		"debug":    slog.LevelDebug,
		"warning":  slog.LevelWarn,
		"error":    slog.LevelError,
		"critical": LevelCritical,
	}
	for raw, want := range tests {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func TestNewBoundsRotationWhenOptionsUnset(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv(LevelEnv, "")

	unset, err := New(Options{Level: "info", MaxBackups: 0})
	require.NoError(t, err)
	defer unset.Close()

	sink, ok := unset.closer.(*lumberjack.Logger)
	require.True(t, ok)
	require.Equal(t, defaultMaxBackups, sink.MaxBackups)
	require.Equal(t, defaultMaxSizeMB, sink.MaxSize)

	explicit, err := New(Options{Level: "info", MaxSizeMB: 2, MaxBackups: 7})
	require.NoError(t, err)
	defer explicit.Close()

	sink = explicit.closer.(*lumberjack.Logger)
	require.Equal(t, 7, sink.MaxBackups)
	require.Equal(t, 2, sink.MaxSize)
}
