package audio

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Source states as reported by the PulseAudio protocol.
const (
	pulseStateRunning   = 0
	pulseStateIdle      = 1
	pulseStateSuspended = 2
)

// Port availability values. Unknown ports are treated as usable.
const (
	pulsePortUnknown = 0
	pulsePortNo      = 1
	pulsePortYes     = 2
)

var pulseStateNames = map[uint32]string{
	pulseStateRunning:   "running",
	pulseStateIdle:      "idle",
	pulseStateSuspended: "suspended",
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voce"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

func listPulseDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	def, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(reply))
	for _, source := range reply {
		if source != nil {
			devices = append(devices, pulseDevice(source, def.ID()))
		}
	}
	return devices, nil
}

func pulseDevice(source *pulseproto.GetSourceInfoReply, defaultID string) Device {
	return Device{
		ID:          source.SourceName,
		Description: source.Device,
		State:       pulseStateName(source.State),
		Available:   pulseSourceUsable(source),
		Muted:       source.Mute,
		Default:     source.SourceName == defaultID,
	}
}

func pulseStateName(state uint32) string {
	if name, ok := pulseStateNames[state]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", state)
}

// pulseSourceUsable is false only when the active port is known to be
// unplugged. Sources without ports (virtual sinks, monitors) count as usable.
func pulseSourceUsable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != pulsePortNo
		}
	}
	return true
}
