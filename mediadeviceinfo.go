package sharedmic

import "github.com/pion/sharedmic/pkg/driver"

// MediaDeviceType enumerates type of media device.
type MediaDeviceType int

// MediaDeviceType definitions.
const (
	AudioInput MediaDeviceType = iota + 1
)

func (t MediaDeviceType) String() string {
	switch t {
	case AudioInput:
		return "audioinput"
	default:
		return "unknown"
	}
}

// MediaDeviceInfo represents https://w3c.github.io/mediacapture-main/#dom-mediadeviceinfo
type MediaDeviceInfo struct {
	DeviceID   string
	Kind       MediaDeviceType
	Label      string
	Name       string
	DeviceType driver.DeviceType
	// Default is true for the device picked when no device is requested.
	Default bool
}
