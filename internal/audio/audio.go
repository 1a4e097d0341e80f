// Package audio handles device discovery, selection, and continuous PCM capture streams.
package audio

import (
	"context"
	"fmt"
)

const (
	// SampleRate is the capture rate every backend delivers.
	SampleRate = 16000

	chunkSizeBytes = 640 // 20ms @ 16kHz mono s16
)

// Source is a running capture stream of 16kHz mono s16le PCM chunks.
type Source interface {
	Device() Device
	Chunks() <-chan []byte
	Stop() error
}

// ListDevices returns input devices known to the named backend.
func ListDevices(ctx context.Context, backend string) ([]Device, error) {
	switch backend {
	case "", "pulse":
		return listPulseDevices(ctx)
	case "portaudio":
		return listPortAudioDevices(ctx)
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", backend)
	}
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, backend string, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx, backend)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// Open selects a device and starts capturing from it.
func Open(ctx context.Context, backend string, input string, fallback string) (Source, Selection, error) {
	selection, err := SelectDevice(ctx, backend, input, fallback)
	if err != nil {
		return nil, Selection{}, err
	}

	switch backend {
	case "", "pulse":
		capture, err := StartPulseCapture(ctx, selection.Device)
		if err != nil {
			return nil, Selection{}, err
		}
		return capture, selection, nil
	default:
		capture, err := StartPortAudioCapture(ctx, selection.Device)
		if err != nil {
			return nil, Selection{}, err
		}
		return capture, selection, nil
	}
}
