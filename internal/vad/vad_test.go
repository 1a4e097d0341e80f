package vad

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunk20ms builds 20ms of 16kHz PCM at a constant amplitude.
func chunk20ms(amplitude int16) []byte {
	out := make([]byte, 640)
	for i := 0; i < 320; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(amplitude))
	}
	return out
}

func TestRMS(t *testing.T) {
	require.Zero(t, RMS(nil))
	require.Zero(t, RMS(chunk20ms(0)))
	require.InDelta(t, 1000, RMS(chunk20ms(1000)), 0.001)
	require.InDelta(t, 1000, RMS(chunk20ms(-1000)), 0.001)
}

func TestSegmenterEmitsUtteranceAfterTrailingSilence(t *testing.T) {
	seg := New(Config{SilenceMS: 100, MinSpeechMS: 40})

	require.Equal(t, Result{}, seg.Push(chunk20ms(0)))
	started := seg.Push(chunk20ms(2000))
	require.True(t, started.SpeechStarted)
	require.True(t, seg.InSpeech())

	for i := 0; i < 4; i++ {
		require.False(t, seg.Push(chunk20ms(2000)).Ended)
	}
	for i := 0; i < 4; i++ {
		require.False(t, seg.Push(chunk20ms(10)).Ended)
	}
	ended := seg.Push(chunk20ms(10))
	require.True(t, ended.Ended)
	require.False(t, ended.Forced)
	// pre-roll (1) + speech (5) + silence (5)
	require.Len(t, ended.Utterance, 11*640)
	require.False(t, seg.InSpeech())
}

func TestSegmenterDropsTooShortSpeech(t *testing.T) {
	seg := New(Config{SilenceMS: 40, MinSpeechMS: 100})

	require.True(t, seg.Push(chunk20ms(5000)).SpeechStarted)
	seg.Push(chunk20ms(0))
	ended := seg.Push(chunk20ms(0))
	require.True(t, ended.Ended)
	require.Nil(t, ended.Utterance)
}

func TestSegmenterForcesMaxUtterance(t *testing.T) {
	seg := New(Config{SilenceMS: 1000, MaxUtteranceMS: 100, PreRollMS: 20})

	var last Result
	for i := 0; i < 5; i++ {
		last = seg.Push(chunk20ms(3000))
	}
	require.True(t, last.Ended)
	require.True(t, last.Forced)
	require.Len(t, last.Utterance, 5*640)
}

func TestSegmenterPreRollIsBounded(t *testing.T) {
	seg := New(Config{PreRollMS: 40, SilenceMS: 20})
	for i := 0; i < 10; i++ {
		seg.Push(chunk20ms(0))
	}
	seg.Push(chunk20ms(4000))
	ended := seg.Push(chunk20ms(0))
	require.True(t, ended.Ended)
	// two pre-roll chunks + speech + silence
	require.Len(t, ended.Utterance, 4*640)
}

func TestSegmenterFlushAndReset(t *testing.T) {
	seg := New(Config{})
	require.Equal(t, Result{}, seg.Flush())

	seg.Push(chunk20ms(4000))
	for i := 0; i < 20; i++ {
		seg.Push(chunk20ms(4000))
	}
	flushed := seg.Flush()
	require.True(t, flushed.Ended)
	require.NotEmpty(t, flushed.Utterance)

	seg.Push(chunk20ms(4000))
	seg.Reset()
	require.False(t, seg.InSpeech())
	require.Equal(t, Result{}, seg.Flush())
}
