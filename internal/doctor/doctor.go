// Package doctor runs runtime readiness diagnostics for config, tools, audio, and the speech engine.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/command"
	"github.com/rbright/voce/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})
	checks = append(checks, checkWakeWord(cfg.Config))
	checks = append(checks, checkInjector(cfg.Config)...)
	checks = append(checks, checkAudioSelection(ctx, cfg.Config))

	switch cfg.Config.Engine.Backend {
	case "riva":
		checks = append(checks, checkRivaReady(ctx, cfg.Config))
	default:
		checks = append(checks, checkModelFile(cfg.Config))
	}

	return Report{Checks: checks}
}

func checkWakeWord(cfg config.Config) Check {
	parser, err := command.NewParser(command.Options{WakeWord: cfg.WakeWord, StrictEnter: cfg.Parser.StrictEnter})
	if err != nil {
		return Check{Name: "wake_word", Pass: false, Message: err.Error()}
	}
	return Check{Name: "wake_word", Pass: true, Message: fmt.Sprintf("listening for %q", parser.WakeWord())}
}

// checkInjector validates the tools the configured injection backend shells out to.
func checkInjector(cfg config.Config) []Check {
	switch cfg.Inject.Backend {
	case "paste":
		checks := []Check{
			checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"),
			checkBinary("hyprctl", "paste shortcut requires hyprctl"),
		}
		if len(cfg.Inject.ClipboardCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Inject.ClipboardCmd.Argv, "clipboard_cmd"))
		}
		return checks
	case "keyboard":
		return []Check{checkUinput("/dev/uinput")}
	default:
		return []Check{
			checkEnv("XDG_SESSION_TYPE", func(v string) bool {
				return strings.EqualFold(strings.TrimSpace(v), "wayland")
			}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"),
			checkCommand(cfg.Inject.TypeCmd.Argv, "type_cmd"),
			checkCommand(cfg.Inject.KeyCmd.Argv, "key_cmd"),
		}
	}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkUinput(path string) Check {
	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return Check{Name: "uinput", Pass: false, Message: fmt.Sprintf("cannot open %s for writing: %v", path, err)}
	}
	_ = file.Close()
	return Check{Name: "uinput", Pass: true, Message: fmt.Sprintf("%s is writable", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Backend, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q via %s", selection.Device.ID, cfg.Audio.Backend)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkModelFile verifies the whisper model is a readable regular file.
func checkModelFile(cfg config.Config) Check {
	path := config.ExpandUserPath(cfg.Engine.ModelPath)
	if strings.TrimSpace(path) == "" {
		return Check{Name: "engine.model", Pass: false, Message: "engine.model_path is empty"}
	}

	file, err := os.Open(path)
	if err != nil {
		return Check{Name: "engine.model", Pass: false, Message: fmt.Sprintf("cannot read model: %v", err)}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Check{Name: "engine.model", Pass: false, Message: fmt.Sprintf("stat model: %v", err)}
	}
	if info.IsDir() || info.Size() == 0 {
		return Check{Name: "engine.model", Pass: false, Message: fmt.Sprintf("%s is not a model file", path)}
	}
	return Check{Name: "engine.model", Pass: true, Message: fmt.Sprintf("%s (%.1f MiB)", path, float64(info.Size())/(1<<20))}
}

// checkRivaReady probes the configured Riva HTTP ready endpoint.
func checkRivaReady(ctx context.Context, cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Riva.HTTP)
	if base == "" {
		return Check{Name: "riva.ready", Pass: false, Message: "riva.http is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := strings.TrimRight(base, "/") + cfg.Riva.HealthPath
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: "riva.ready", Pass: false, Message: fmt.Sprintf("build request: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "riva.ready", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: "riva.ready", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}

	bodyText := strings.ToLower(strings.TrimSpace(string(body)))
	if bodyText != "" && !strings.Contains(bodyText, "ready") {
		return Check{Name: "riva.ready", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}

	return Check{Name: "riva.ready", Pass: true, Message: fmt.Sprintf("ready at %s", url)}
}
