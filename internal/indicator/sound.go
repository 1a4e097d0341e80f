package indicator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/jfreymuth/pulse"

	"github.com/rbright/voce/internal/config"
)

type cueKind int

const (
	cueActivate cueKind = iota + 1
	cueComplete
	cueExpire
	cueError
)

// cue pairs a built-in tone with the config field that may override it.
type cue struct {
	pcm  []int16
	file func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	cueActivate: {
		pcm:  render(tone{880, 70 * time.Millisecond}, tone{1175, 70 * time.Millisecond}),
		file: func(c config.IndicatorConfig) string { return c.SoundActivateFile },
	},
	cueComplete: {
		pcm:  render(tone{740, 65 * time.Millisecond}, tone{988, 90 * time.Millisecond}),
		file: func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
	},
	cueExpire: {
		pcm:  render(tone{620, 120 * time.Millisecond}),
		file: func(c config.IndicatorConfig) string { return c.SoundExpireFile },
	},
	cueError: {
		pcm:  render(tone{480, 75 * time.Millisecond}, tone{360, 90 * time.Millisecond}),
		file: func(c config.IndicatorConfig) string { return c.SoundErrorFile },
	},
}

// emitCue plays the configured cue file, falling back to the built-in tone.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := cues[kind]
	if !ok {
		return nil
	}
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}
	return playPCM(c.pcm, toneSampleRate)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	c, ok := cues[kind]
	if !ok {
		return ""
	}
	raw := strings.TrimSpace(c.file(cfg))
	if raw == "" {
		return ""
	}
	return config.ExpandUserPath(raw)
}

// playCueFile decodes WAV files in-process and hands anything else to pw-play.
func playCueFile(ctx context.Context, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		pcm, rate, err := loadWAV(path)
		if err != nil {
			return err
		}
		return playPCM(pcm, rate)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}
	cmd := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// loadWAV returns the file as mono s16 samples, averaging channels.
func loadWAV(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open cue file %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("cue file %q is not a PCM wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode cue file %q: %w", path, err)
	}

	channels := max(buf.Format.NumChannels, 1)
	shift := int(dec.BitDepth) - 16
	pcm := make([]int16, len(buf.Data)/channels)
	for i := range pcm {
		sum := 0
		for ch := range channels {
			sum += buf.Data[i*channels+ch]
		}
		sample := sum / channels
		switch {
		case shift > 0:
			sample >>= shift
		case shift < 0:
			sample = (sample - 128) << -shift // 8-bit wav is unsigned
		}
		pcm[i] = int16(sample)
	}
	return pcm, buf.Format.SampleRate, nil
}

func playPCM(samples []int16, rate int) error {
	if len(samples) == 0 {
		return nil
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voce"),
		pulse.ClientApplicationIconName("dialog-information"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(out []int16) (int, error) {
		n := copy(out, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(rate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voce indicator cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}
