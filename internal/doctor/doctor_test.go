package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/voce/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "wayland")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.EqualFold(v, "wayland") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "type_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	installFakeBinary(t, "fake-wtype")

	check := checkCommand([]string{"fake-wtype", "-"}, "type_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "type_cmd command is available")
}

func TestCheckWakeWord(t *testing.T) {
	cfg := config.Default()
	check := checkWakeWord(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, `"copy"`)

	cfg.WakeWord = "enter"
	check = checkWakeWord(cfg)
	require.False(t, check.Pass)
}

func TestCheckModelFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()

	cfg.Engine.ModelPath = filepath.Join(dir, "missing.bin")
	require.False(t, checkModelFile(cfg).Pass)

	cfg.Engine.ModelPath = dir
	require.False(t, checkModelFile(cfg).Pass)

	model := filepath.Join(dir, "ggml-tiny.bin")
	require.NoError(t, os.WriteFile(model, []byte("ggml"), 0o600))
	cfg.Engine.ModelPath = model
	check := checkModelFile(cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, model)
}

func TestCheckRivaReadySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/health/ready", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Riva.HTTP = strings.TrimPrefix(server.URL, "http://")

	check := checkRivaReady(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "ready at")
}

func TestCheckRivaReadyFailureStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Riva.HTTP = server.URL

	check := checkRivaReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")
}

func TestCheckRivaReadyEmptyBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Riva.HTTP = ""

	check := checkRivaReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "riva.http is empty")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestRunChecksCommandInjectorTools(t *testing.T) {
	installFakeBinary(t, "fake-type")
	installFakeBinary(t, "fake-key")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_SESSION_TYPE", "wayland")

	cfg := config.Default()
	cfg.Inject.TypeCmd = config.CommandConfig{Raw: "fake-type", Argv: []string{"fake-type"}}
	cfg.Inject.KeyCmd = config.CommandConfig{Raw: "fake-key -k", Argv: []string{"fake-key", "-k"}}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := checkNames(report)
	require.Contains(t, names, "fake-type")
	require.Contains(t, names, "fake-key")
	require.Contains(t, names, "engine.model")
	require.NotContains(t, names, "hyprctl")
}

func TestRunChecksPasteInjectorAndRiva(t *testing.T) {
	installFakeBinary(t, "hyprctl")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")

	cfg := config.Default()
	cfg.Inject.Backend = "paste"
	cfg.Engine.Backend = "riva"
	cfg.Riva.HTTP = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := checkNames(report)
	require.Contains(t, names, "hyprctl")
	require.Contains(t, names, "riva.ready")
	require.NotContains(t, names, "engine.model")
	require.False(t, report.OK())
}

func installFakeBinary(t *testing.T, name string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func checkNames(report Report) []string {
	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	return names
}
