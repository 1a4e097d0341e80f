// Package vad splits a continuous 16-bit PCM stream into utterances using
// RMS energy endpointing.
package vad

import (
	"encoding/binary"
	"math"
)

const (
	// DefaultRMSThreshold is the energy (16-bit PCM units) below which a chunk is silent.
	DefaultRMSThreshold = 300.0

	bytesPerSample = 2
	defaultPreRoll = 200
)

// Config tunes utterance endpointing.
type Config struct {
	SampleRate     int
	RMSThreshold   float64
	SilenceMS      int
	MinSpeechMS    int
	MaxUtteranceMS int
	// PreRollMS keeps this much leading silence so the first syllable is not clipped.
	PreRollMS int
}

// Result reports what one pushed chunk changed.
type Result struct {
	// SpeechStarted is set on the chunk that opened an utterance.
	SpeechStarted bool
	// Ended is set when an utterance closed; Utterance is nil if it was too short.
	Ended     bool
	Utterance []byte
	Forced    bool
}

// Segmenter is a single-goroutine state machine over PCM chunks.
type Segmenter struct {
	cfg        Config
	bytesPerMS int

	preRoll   []byte
	buffer    []byte
	inSpeech  bool
	speechMS  int
	silenceMS int
}

// New builds a segmenter, filling zero fields with defaults.
func New(cfg Config) *Segmenter {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.RMSThreshold <= 0 {
		cfg.RMSThreshold = DefaultRMSThreshold
	}
	if cfg.SilenceMS <= 0 {
		cfg.SilenceMS = 1500
	}
	if cfg.MaxUtteranceMS <= 0 {
		cfg.MaxUtteranceMS = 30000
	}
	if cfg.PreRollMS <= 0 {
		cfg.PreRollMS = defaultPreRoll
	}
	bytesPerMS := cfg.SampleRate * bytesPerSample / 1000
	if bytesPerMS <= 0 {
		bytesPerMS = 32
	}
	return &Segmenter{cfg: cfg, bytesPerMS: bytesPerMS}
}

// InSpeech reports whether an utterance is currently open.
func (s *Segmenter) InSpeech() bool {
	return s.inSpeech
}

// Push feeds one chunk of s16le mono PCM.
func (s *Segmenter) Push(chunk []byte) Result {
	if len(chunk) == 0 {
		return Result{}
	}

	chunkMS := len(chunk) / s.bytesPerMS
	voiced := RMS(chunk) >= s.cfg.RMSThreshold

	if !s.inSpeech {
		if !voiced {
			s.keepPreRoll(chunk)
			return Result{}
		}
		s.inSpeech = true
		s.buffer = append(append(s.buffer[:0], s.preRoll...), chunk...)
		s.preRoll = s.preRoll[:0]
		s.speechMS = chunkMS
		s.silenceMS = 0
		return Result{SpeechStarted: true}
	}

	s.buffer = append(s.buffer, chunk...)
	if voiced {
		s.speechMS += chunkMS
		s.silenceMS = 0
	} else {
		s.silenceMS += chunkMS
	}

	if s.silenceMS >= s.cfg.SilenceMS {
		return s.finish(false)
	}
	if len(s.buffer)/s.bytesPerMS >= s.cfg.MaxUtteranceMS {
		return s.finish(true)
	}
	return Result{}
}

// Flush closes any open utterance, as at end of stream.
func (s *Segmenter) Flush() Result {
	if !s.inSpeech {
		return Result{}
	}
	return s.finish(false)
}

// Reset drops buffered audio without emitting it.
func (s *Segmenter) Reset() {
	s.preRoll = s.preRoll[:0]
	s.buffer = s.buffer[:0]
	s.inSpeech = false
	s.speechMS = 0
	s.silenceMS = 0
}

func (s *Segmenter) finish(forced bool) Result {
	result := Result{Ended: true, Forced: forced}
	if s.speechMS >= s.cfg.MinSpeechMS {
		result.Utterance = append([]byte(nil), s.buffer...)
	}
	s.Reset()
	return result
}

func (s *Segmenter) keepPreRoll(chunk []byte) {
	s.preRoll = append(s.preRoll, chunk...)
	limit := s.cfg.PreRollMS * s.bytesPerMS
	if over := len(s.preRoll) - limit; over > 0 {
		over += over % bytesPerSample
		s.preRoll = append(s.preRoll[:0], s.preRoll[over:]...)
	}
}

// RMS returns the root-mean-square energy of s16le PCM in sample units.
func RMS(pcm []byte) float64 {
	n := len(pcm) / bytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += sample * sample
	}
	return math.Sqrt(sum / float64(n))
}
