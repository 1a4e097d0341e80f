package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestPulseDevice(t *testing.T) {
	source := &pulseproto.GetSourceInfoReply{
		SourceName:     "alsa_input.usb-jabra",
		Device:         "Jabra Evolve2 65",
		State:          pulseStateSuspended,
		Mute:           true,
		ActivePortName: "analog-input-mic",
	}
	withPorts(t, source, map[string]uint32{"analog-input-mic": pulsePortYes})

	require.Equal(t, Device{
		ID:          "alsa_input.usb-jabra",
		Description: "Jabra Evolve2 65",
		State:       "suspended",
		Available:   true,
		Muted:       true,
		Default:     true,
	}, pulseDevice(source, "alsa_input.usb-jabra"))

	require.False(t, pulseDevice(source, "other").Default)
}

func TestPulseStateName(t *testing.T) {
	require.Equal(t, "running", pulseStateName(pulseStateRunning))
	require.Equal(t, "idle", pulseStateName(pulseStateIdle))
	require.Equal(t, "unknown(7)", pulseStateName(7))
}

func TestPulseSourceUsable(t *testing.T) {
	require.False(t, pulseSourceUsable(nil))
	require.True(t, pulseSourceUsable(&pulseproto.GetSourceInfoReply{}))

	tests := map[uint32]bool{
		pulsePortUnknown: true,
		pulsePortNo:      false,
		pulsePortYes:     true,
	}
	for availability, want := range tests {
		source := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
		withPorts(t, source, map[string]uint32{"mic": availability, "line": pulsePortNo})
		require.Equal(t, want, pulseSourceUsable(source), "availability %d", availability)
	}

	inactive := &pulseproto.GetSourceInfoReply{ActivePortName: "headset"}
	withPorts(t, inactive, map[string]uint32{"mic": pulsePortNo})
	require.True(t, pulseSourceUsable(inactive))
}

func TestPulseBackendUnreachable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/voce-test-missing-pulse")

	_, err := ListDevices(context.Background(), "pulse")
	require.ErrorContains(t, err, "connect pulse server")

	_, err = SelectDevice(context.Background(), "", "default", "default")
	require.Error(t, err)

	_, _, err = Open(context.Background(), "pulse", "default", "default")
	require.Error(t, err)
}

func TestListDevicesRejectsUnknownBackend(t *testing.T) {
	_, err := ListDevices(context.Background(), "jack")
	require.ErrorContains(t, err, `unsupported audio backend "jack"`)
}

// withPorts fills source.Ports, whose element type is unexported by the
// protocol package.
func withPorts(t *testing.T, source *pulseproto.GetSourceInfoReply, ports map[string]uint32) {
	t.Helper()

	slice := reflect.MakeSlice(reflect.TypeOf(source.Ports), 0, len(ports))
	for name, availability := range ports {
		item := reflect.New(slice.Type().Elem()).Elem()
		item.FieldByName("Name").SetString(name)
		item.FieldByName("Available").SetUint(uint64(availability))
		slice = reflect.Append(slice, item)
	}
	reflect.ValueOf(source).Elem().FieldByName("Ports").Set(slice)
}
