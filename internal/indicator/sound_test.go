package indicator

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/rbright/voce/internal/config"
)

func TestEveryCueHasBuiltInTone(t *testing.T) {
	for _, kind := range []cueKind{cueActivate, cueComplete, cueExpire, cueError} {
		require.NotEmpty(t, cues[kind].pcm, "cue %d", kind)
	}
	require.Empty(t, cuePath(cueKind(99), config.IndicatorConfig{SoundActivateFile: "/x.wav"}))
}

func TestCuePathExpandsConfiguredFiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.IndicatorConfig{
		SoundActivateFile: "~/sounds/on.wav",
		SoundErrorFile:    " /tmp/err.oga ",
	}
	require.Equal(t, filepath.Join(home, "sounds", "on.wav"), cuePath(cueActivate, cfg))
	require.Equal(t, "/tmp/err.oga", cuePath(cueError, cfg))
	require.Empty(t, cuePath(cueComplete, cfg))
}

func TestRenderInsertsGapBetweenTones(t *testing.T) {
	pcm := render(tone{440, 50 * time.Millisecond}, tone{660, 50 * time.Millisecond})
	require.Len(t, pcm, 2*sampleCount(50*time.Millisecond)+sampleCount(toneGap))

	gapStart := sampleCount(50 * time.Millisecond)
	for _, s := range pcm[gapStart : gapStart+sampleCount(toneGap)] {
		require.Zero(t, s)
	}
}

func TestSineRampsAndStaysInRange(t *testing.T) {
	pcm := sine(440, 100*time.Millisecond, 0.5)
	require.Len(t, pcm, 1600)
	require.Zero(t, pcm[0])
	require.Zero(t, pcm[len(pcm)-1])

	limit := int16(math.Round(0.5 * math.MaxInt16))
	for _, s := range pcm {
		require.LessOrEqual(t, s, limit)
		require.GreaterOrEqual(t, s, -limit)
	}
}

func TestSineRejectsDegenerateInput(t *testing.T) {
	require.Empty(t, sine(0, time.Second, 0.2))
	require.Empty(t, sine(440, 0, 0.2))
	require.Empty(t, sine(440, time.Second, 0))
	require.Zero(t, sampleCount(-time.Second))
}

func TestLoadWAVDownmixesStereo(t *testing.T) {
	path := writeWAV(t, 22050, 16, 2, []int{1000, 3000, -200, -400})

	pcm, rate, err := loadWAV(path)
	require.NoError(t, err)
	require.Equal(t, 22050, rate)
	require.Equal(t, []int16{2000, -300}, pcm)
}

func TestLoadWAVScales24Bit(t *testing.T) {
	pcm, _, err := loadWAV(writeWAV(t, 8000, 24, 1, []int{1 << 20, -(1 << 20)}))
	require.NoError(t, err)
	require.Equal(t, []int16{1 << 12, -(1 << 12)}, pcm)
}

func TestLoadWAVRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cue.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file"), 0o600))

	_, _, err := loadWAV(path)
	require.ErrorContains(t, err, "not a PCM wav file")

	_, _, err = loadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorContains(t, err, "open cue file")
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueActivate, config.IndicatorConfig{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmitCueIgnoresUnknownKind(t *testing.T) {
	require.NoError(t, emitCue(context.Background(), cueKind(42), config.IndicatorConfig{}))
}

func writeWAV(t *testing.T, rate, depth, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cue.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}))
	require.NoError(t, enc.Close())
	return path
}
