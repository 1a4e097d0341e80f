package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const framesPerChunk = chunkSizeBytes / 2

// listPortAudioDevices returns devices with at least one input channel.
func listPortAudioDevices(_ context.Context) ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}

	defaultName := ""
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, portAudioDevice(info, defaultName))
	}
	return devices, nil
}

func portAudioDevice(info *portaudio.DeviceInfo, defaultName string) Device {
	description := info.Name
	if info.HostApi != nil {
		description = fmt.Sprintf("%s (%s)", info.Name, info.HostApi.Name)
	}
	return Device{
		ID:          info.Name,
		Description: description,
		State:       "idle",
		Available:   true,
		Default:     info.Name == defaultName,
	}
}

// PortAudioCapture streams fixed-size PCM chunks from a PortAudio input device.
type PortAudioCapture struct {
	device Device
	stream *portaudio.Stream
	buffer []int16

	chunks chan []byte
	stopCh chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
	err     error
}

// StartPortAudioCapture opens selected at 16kHz mono and starts a blocking read loop.
func StartPortAudioCapture(ctx context.Context, selected Device) (*PortAudioCapture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	info, err := findPortAudioDevice(selected.ID)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = 1
	params.SampleRate = SampleRate
	params.FramesPerBuffer = framesPerChunk

	capture := &PortAudioCapture{
		device: selected,
		buffer: make([]int16, framesPerChunk),
		chunks: make(chan []byte, 128),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	stream, err := portaudio.OpenStream(params, capture.buffer)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open portaudio stream %q: %w", selected.ID, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start portaudio stream %q: %w", selected.ID, err)
	}
	capture.stream = stream

	go capture.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.done:
		}
	}()

	return capture, nil
}

func findPortAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list portaudio devices: %w", err)
	}
	for _, info := range infos {
		if info != nil && info.Name == name && info.MaxInputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("portaudio device %q not found", name)
}

// Device returns capture metadata for logging and diagnostics.
func (c *PortAudioCapture) Device() Device {
	return c.device
}

// Chunks returns the PCM stream as fixed-size byte slices.
func (c *PortAudioCapture) Chunks() <-chan []byte {
	return c.chunks
}

// Err reports the read error that ended the stream, if any.
func (c *PortAudioCapture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Stop halts the read loop, releases PortAudio, and closes Chunks exactly once.
func (c *PortAudioCapture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	<-c.done

	var errs []error
	if err := c.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop portaudio stream: %w", err))
	}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close portaudio stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate portaudio: %w", err))
	}
	return errors.Join(errs...)
}

func (c *PortAudioCapture) readLoop() {
	defer close(c.done)
	defer close(c.chunks)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}

		select {
		case <-c.stopCh:
			return
		case c.chunks <- int16ToBytes(c.buffer):
		}
	}
}

// int16ToBytes encodes samples as little-endian s16 PCM.
func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
