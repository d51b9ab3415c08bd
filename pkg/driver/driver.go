// Package driver defines the adapters that talk to capture hardware and the
// registry the platform layer selects them from.
package driver

import (
	"github.com/pion/sharedmic/pkg/io/audio"
	"github.com/pion/sharedmic/pkg/prop"
)

// OpenCloser is a generic interface for opening and closing a device.
type OpenCloser interface {
	Open() error
	Close() error
}

// Infoer provides information about a driver.
type Infoer interface {
	Info() Info
}

// Info is the driver's static information.
type Info struct {
	Label      string
	DeviceType DeviceType
	Priority   Priority
	Name       string
}

// Priority represents how much a driver is preferred when several drivers
// fit the constraints equally well.
type Priority float32

const (
	PriorityHigh   Priority = 0.1
	PriorityNormal Priority = 0.0
	PriorityLow    Priority = -0.1
)

// Adapter is the interface hardware specific code implements. Properties
// must be callable in any state.
type Adapter interface {
	OpenCloser
	Properties() []prop.Media
}

// AudioRecorder is an interface to encapsulate the recording process.
// The returned reader must return an error once the adapter is closed,
// and an availability error if the device disappears while recording.
type AudioRecorder interface {
	AudioRecord(p prop.Media) (r audio.Reader, err error)
}

// Driver represents a registered adapter together with its state.
type Driver interface {
	Adapter
	ID() string
	Info() Info
	Status() State
}
