package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rbright/voce/internal/hypr"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateWakeWord(cfg.WakeWord); err != nil {
		return nil, err
	}
	if cfg.Activation.TimeoutMS < 0 {
		return nil, fmt.Errorf("activation.timeout_ms must be >= 0")
	}

	switch cfg.Engine.Backend {
	case "whisper":
		if strings.TrimSpace(cfg.Engine.ModelPath) == "" {
			return nil, fmt.Errorf("engine.model_path must not be empty when engine.backend=whisper")
		}
		if strings.TrimSpace(cfg.Engine.Language) == "" {
			return nil, fmt.Errorf("engine.language must not be empty")
		}
		if cfg.Engine.BeamSize <= 0 {
			return nil, fmt.Errorf("engine.beam_size must be > 0")
		}
		if cfg.Engine.Threads < 0 {
			return nil, fmt.Errorf("engine.threads must be >= 0")
		}
		if cfg.Engine.SilenceMS <= 0 {
			return nil, fmt.Errorf("engine.silence_ms must be > 0")
		}
		if cfg.Engine.MinSpeechMS < 0 {
			return nil, fmt.Errorf("engine.min_speech_ms must be >= 0")
		}
		if cfg.Engine.MaxUtteranceMS <= cfg.Engine.SilenceMS {
			return nil, fmt.Errorf("engine.max_utterance_ms must be > engine.silence_ms")
		}
		if cfg.Engine.RMSThreshold <= 0 {
			return nil, fmt.Errorf("engine.rms_threshold must be > 0")
		}
	case "riva":
		if strings.TrimSpace(cfg.Riva.GRPC) == "" {
			return nil, fmt.Errorf("riva.grpc must not be empty")
		}
		if strings.TrimSpace(cfg.Riva.HTTP) == "" {
			return nil, fmt.Errorf("riva.http must not be empty")
		}
		if !strings.HasPrefix(strings.TrimSpace(cfg.Riva.HealthPath), "/") {
			return nil, fmt.Errorf("riva.health_path must start with '/'")
		}
		if strings.TrimSpace(cfg.Riva.LanguageCode) == "" {
			return nil, fmt.Errorf("riva.language_code must not be empty")
		}
	default:
		return nil, fmt.Errorf("engine.backend must be one of: whisper, riva")
	}

	if cfg.Audio.Backend != "pulse" && cfg.Audio.Backend != "portaudio" {
		return nil, fmt.Errorf("audio.backend must be one of: pulse, portaudio")
	}

	switch cfg.Inject.Backend {
	case "command":
		if len(cfg.Inject.TypeCmd.Argv) == 0 {
			return nil, fmt.Errorf("inject.type_cmd must not be empty when inject.backend=command")
		}
		if len(cfg.Inject.KeyCmd.Argv) == 0 {
			return nil, fmt.Errorf("inject.key_cmd must not be empty when inject.backend=command")
		}
	case "paste":
		if strings.TrimSpace(cfg.Inject.PasteShortcut) == "" {
			return nil, fmt.Errorf("inject.paste_shortcut must not be empty when inject.backend=paste")
		}
		if _, err := hypr.ParseShortcut(cfg.Inject.PasteShortcut); err != nil {
			return nil, fmt.Errorf("inject.paste_shortcut: %w", err)
		}
		if cfg.Inject.ClipboardCmd.Raw != "" && len(cfg.Inject.ClipboardCmd.Argv) == 0 {
			return nil, fmt.Errorf("inject.clipboard_cmd is configured but empty")
		}
	case "keyboard":
	default:
		return nil, fmt.Errorf("inject.backend must be one of: command, paste, keyboard")
	}
	if cfg.Inject.TimeoutMS <= 0 {
		return nil, fmt.Errorf("inject.timeout_ms must be > 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" && backend != "console" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop, console")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if !cfg.Indicator.Enable && !cfg.Indicator.Console {
		warnings = append(warnings, Warning{Message: "indicator and console feedback are both disabled; voce will run silently"})
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("logging.max_size_mb must be > 0")
	}
	if cfg.Logging.MaxBackups < 1 {
		return nil, fmt.Errorf("logging.max_backups must be >= 1")
	}

	if listen := cfg.Metrics.Listen; listen != "" && !strings.Contains(listen, ":") {
		return nil, fmt.Errorf("metrics.listen must be host:port")
	}

	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}
	if cfg.Debug.EnableGRPCDump && cfg.Engine.Backend != "riva" {
		warnings = append(warnings, Warning{Message: "debug.grpc_dump has no effect unless engine.backend=riva"})
	}

	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, vocabWarnings...)

	return warnings, nil
}

func validateWakeWord(word string) error {
	if word == "" {
		return fmt.Errorf("wake_word must not be empty")
	}
	for _, r := range word {
		if r < 'a' || r > 'z' {
			return fmt.Errorf("wake_word %q must be a single alphabetic word", word)
		}
	}
	if word == "enter" {
		return fmt.Errorf("wake_word must not be %q", "enter")
	}
	return nil
}

// BuildSpeechPhrases merges enabled vocab sets into deterministic ASR phrase payloads.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	enabledSets := cfg.Vocab.GlobalSets
	if len(enabledSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	warnings := make([]Warning, 0)
	selected := make(map[string]candidate)

	for _, name := range enabledSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			if existing, exists := selected[phrase]; exists {
				if set.Boost > existing.boost {
					warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
					selected[phrase] = candidate{boost: set.Boost, from: name}
				}
				continue
			}
			selected[phrase] = candidate{boost: set.Boost, from: name}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}

	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Phrase == phrases[j].Phrase {
			return phrases[i].Boost < phrases[j].Boost
		}
		return phrases[i].Phrase < phrases[j].Phrase
	})

	return phrases, warnings, nil
}
