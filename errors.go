package sharedmic

import "errors"

// Errors returned by GetUserMedia. They wrap the driver's cause.
var (
	ErrPermissionDenied = errors.New("permission to capture audio was denied")
	ErrNotFound         = errors.New("failed to find a capture device that fits the constraints")
	ErrNotReadable      = errors.New("capture device could not be started")
)

// Errors surfaced by Manager.
var (
	// ErrDeviceUnavailable is returned by Acquire when the platform refuses
	// the capture request. The platform error is wrapped as well.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrDeviceRevoked is reported when capture ends outside of the
	// manager's control, e.g. the device is unplugged.
	ErrDeviceRevoked = errors.New("capture device revoked")
	// ErrManagerClosed is returned by Acquire after Close.
	ErrManagerClosed = errors.New("manager is closed")
)

var (
	errNoAudioConstraints = errors.New("audio constraints are required")
	errNotAudioRecorder   = errors.New("driver is not an audio recorder")
)
