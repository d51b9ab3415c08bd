package driver

// DeviceType represents human readable device type. DeviceType
// can be useful to filter the drivers too.
type DeviceType string

const (
	// Microphone represents microphone devices
	Microphone DeviceType = "microphone"
)
