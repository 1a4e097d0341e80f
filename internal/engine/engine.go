// Package engine turns live microphone audio into finalized transcripts.
//
// Two backends exist: Local runs energy endpointing plus whisper.cpp
// inference in-process, and Riva streams audio to a Riva ASR server. Both
// hand transcripts to the session loop through Next.
package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/riva"
	"github.com/rbright/voce/internal/vad"
	"github.com/rbright/voce/internal/whisper"
)

// Engine is the transcript source consumed by the session loop.
type Engine interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Hooks observe speech boundaries. Callbacks run on engine goroutines and
// must not block.
type Hooks struct {
	OnRecordingStart func()
	OnRecordingStop  func()
}

func (h Hooks) recordingStarted() {
	if h.OnRecordingStart != nil {
		h.OnRecordingStart()
	}
}

func (h Hooks) recordingStopped() {
	if h.OnRecordingStop != nil {
		h.OnRecordingStop()
	}
}

// Open starts the configured backend on the selected audio device.
func Open(ctx context.Context, cfg config.Config, hooks Hooks, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	phrases, _, err := config.BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, fmt.Errorf("build speech contexts: %w", err)
	}

	switch cfg.Engine.Backend {
	case "", "whisper":
		recognizer, err := whisper.Load(whisper.Config{
			ModelPath: config.ExpandUserPath(cfg.Engine.ModelPath),
			Language:  cfg.Engine.Language,
			BeamSize:  cfg.Engine.BeamSize,
			Threads:   cfg.Engine.Threads,
			Prompt:    promptFromPhrases(phrases),
		})
		if err != nil {
			return nil, err
		}

		source, err := openSource(ctx, cfg.Audio, logger)
		if err != nil {
			_ = recognizer.Close()
			return nil, err
		}

		local := NewLocal(source, recognizer, LocalOptions{
			VAD: vad.Config{
				SampleRate:     audio.SampleRate,
				RMSThreshold:   cfg.Engine.RMSThreshold,
				SilenceMS:      cfg.Engine.SilenceMS,
				MinSpeechMS:    cfg.Engine.MinSpeechMS,
				MaxUtteranceMS: cfg.Engine.MaxUtteranceMS,
			},
			DumpAudio: cfg.Debug.EnableAudioDump,
			OnClose:   recognizer.Close,
		}, hooks, logger)
		return local, nil

	case "riva":
		rivaPhrases := make([]riva.SpeechPhrase, 0, len(phrases))
		for _, phrase := range phrases {
			rivaPhrases = append(rivaPhrases, riva.SpeechPhrase{Phrase: phrase.Phrase, Boost: phrase.Boost})
		}

		streamCfg := riva.StreamConfig{
			Endpoint:             cfg.Riva.GRPC,
			LanguageCode:         cfg.Riva.LanguageCode,
			Model:                cfg.Riva.Model,
			AutomaticPunctuation: cfg.Riva.AutomaticPunctuation,
			SpeechPhrases:        rivaPhrases,
			DialTimeout:          3 * time.Second,
		}
		var opts RivaOptions
		if cfg.Debug.EnableGRPCDump {
			file, err := createDebugFile("grpc", "jsonl")
			if err != nil {
				return nil, err
			}
			streamCfg.DebugResponseSinkJSON = file
			opts.OnClose = file.Close
		}

		source, err := openSource(ctx, cfg.Audio, logger)
		if err != nil {
			if opts.OnClose != nil {
				_ = opts.OnClose()
			}
			return nil, err
		}
		return NewRiva(source, DialRiva(streamCfg), opts, hooks, logger), nil

	default:
		return nil, fmt.Errorf("unsupported engine backend %q", cfg.Engine.Backend)
	}
}

func openSource(ctx context.Context, cfg config.AudioConfig, logger *slog.Logger) (audio.Source, error) {
	source, selection, err := audio.Open(ctx, cfg.Backend, cfg.Input, cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("open audio capture: %w", err)
	}
	if selection.Warning != "" {
		logger.Warn(selection.Warning)
	}
	logger.Info("audio capture started",
		"backend", cfg.Backend,
		"device", describeDevice(selection.Device),
		"fallback", selection.Fallback,
	)
	return source, nil
}

// promptFromPhrases turns vocabulary phrases into a whisper initial prompt.
// Higher boosts come first so truncation drops the weakest hints.
func promptFromPhrases(phrases []config.SpeechPhrase) string {
	ordered := slices.Clone(phrases)
	slices.SortStableFunc(ordered, func(a, b config.SpeechPhrase) int {
		return cmp.Compare(b.Boost, a.Boost)
	})

	seen := make(map[string]struct{}, len(ordered))
	parts := make([]string, 0, len(ordered))
	for _, phrase := range ordered {
		text := strings.TrimSpace(phrase.Phrase)
		key := strings.ToLower(text)
		if text == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		parts = append(parts, text)
	}
	return strings.Join(parts, ", ")
}
