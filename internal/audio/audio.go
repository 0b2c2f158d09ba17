package audio

import (
	"errors"
	"strings"
)

var (
	// ErrDeviceNotFound is returned when a device name is not enumerated by the host.
	ErrDeviceNotFound = errors.New("audio: device not found")
	// ErrHostClosed is returned after the host has been terminated.
	ErrHostClosed = errors.New("audio: host closed")
)

// Device represents an audio endpoint reported by the host
type Device struct {
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// DeviceList holds the names of the capture and playback devices.
type DeviceList struct {
	InputDevices  []string `json:"input_devices"`
	OutputDevices []string `json:"output_devices"`
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// Format is the interleaved layout of a stream.
type Format struct {
	Channels   int `json:"channels"`
	SampleRate int `json:"sample_rate"`
}

// PipelineConfig selects the devices and initial volumes of a pipeline.
type PipelineConfig struct {
	InputDevice  string
	OutputDevice string
	MicVolume    float32
	SoundVolume  float32
}

// Stream is an opened host stream.
type Stream interface {
	Start() error
	// Close stops the stream if needed and releases it. It is safe to call
	// after a failed Start.
	Close() error
}

// CaptureFunc receives interleaved input samples on the host's audio
// thread. overflowed reports that the host discarded input before this call.
type CaptureFunc func(in []float32, overflowed bool)

// RenderFunc fills out with interleaved samples on the host's audio thread.
type RenderFunc func(out []float32)

// Host is the interface to the platform audio system.
// This abstraction allows for future replacement of PortAudio with other libraries (e.g., miniaudio)
type Host interface {
	// Devices enumerates every device known to the host.
	Devices() ([]Device, error)

	// InputFormat reports the native format of the named capture device.
	InputFormat(name string) (Format, error)

	// OpenInput opens a capture stream on the named device.
	OpenInput(name string, f Format, fn CaptureFunc) (Stream, error)

	// OpenOutput opens a playback stream on the named device.
	OpenOutput(name string, f Format, fn RenderFunc) (Stream, error)

	// DefaultOutputFormat reports the native format of the default playback device.
	DefaultOutputFormat() (Format, error)

	// OpenDefaultOutput opens a playback stream on the default device.
	OpenDefaultOutput(f Format, fn RenderFunc) (Stream, error)
}

// ListDevices returns the names of the input and output devices of h.
func ListDevices(h Host) (DeviceList, error) {
	devices, err := h.Devices()
	if err != nil {
		return DeviceList{}, err
	}

	list := DeviceList{InputDevices: []string{}, OutputDevices: []string{}}
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			list.InputDevices = append(list.InputDevices, d.Name)
		}
		if d.MaxOutputChannels > 0 {
			list.OutputDevices = append(list.OutputDevices, d.Name)
		}
	}
	return list, nil
}

// FindDevice returns the first device named name with input (or output)
// channels.
func FindDevice(devices []Device, name string, input bool) (Device, bool) {
	for _, d := range devices {
		if d.Name != name {
			continue
		}
		if input && d.MaxInputChannels > 0 || !input && d.MaxOutputChannels > 0 {
			return d, true
		}
	}
	return Device{}, false
}

// IsVirtualCable reports whether a device name looks like a loopback device
// other applications can record from.
func IsVirtualCable(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "cable") || strings.Contains(n, "blackhole") || strings.Contains(n, "virtual")
}

// nativeChannels limits a device channel count to what the converter handles.
func nativeChannels(max int) int {
	switch {
	case max >= 2:
		return 2
	case max == 1:
		return 1
	default:
		return 0
	}
}
